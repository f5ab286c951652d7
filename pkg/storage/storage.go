package storage

import (
	"context"
	"errors"

	"github.com/episodarr/episodarr/pkg/show"
)

//go:generate mockgen -source=storage.go -destination=mocks/mock_storage.go -package=mocks

var ErrNotFound = errors.New("not found")

// Store is the persistence gateway for tracked shows. It is authoritative
// storage for the episode collection and watch flags; derived show state is
// recomputed from episodes after loading, never read back.
type Store interface {
	// LoadShows returns every tracked show with its episode collection.
	LoadShows(ctx context.Context) ([]*show.Show, error)
	// GetShow returns one show by identifier or ErrNotFound.
	GetShow(ctx context.Context, id string) (*show.Show, error)
	// UpsertShow writes a show and its full episode collection. Episodes no
	// longer present in the collection are removed.
	UpsertShow(ctx context.Context, s *show.Show) error
	// DeleteShow removes a show and its episodes. Deleting an untracked show
	// is not an error.
	DeleteShow(ctx context.Context, id string) error
}

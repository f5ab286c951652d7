package tracker

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/episodarr/episodarr/config"
	"github.com/episodarr/episodarr/pkg/cache"
	"github.com/episodarr/episodarr/pkg/logger"
	"github.com/episodarr/episodarr/pkg/show"
	"github.com/episodarr/episodarr/pkg/storage"
	"github.com/episodarr/episodarr/pkg/tvmaze"
	"go.uber.org/zap"
)

//go:generate mockgen -source=tracker.go -destination=mocks/mock_tracker.go -package=mocks

// Source is the external episode catalog the tracker synchronizes against.
type Source interface {
	SearchShows(ctx context.Context, query string) ([]tvmaze.ShowInfo, error)
	GetShow(ctx context.Context, id int) (tvmaze.ShowInfo, error)
	GetEpisodes(ctx context.Context, id int) ([]show.Episode, error)
}

var (
	ErrEmptyQuery     = errors.New("query is empty")
	ErrShowExists     = errors.New("show is already tracked")
	ErrShowNotTracked = errors.New("show is not tracked")
	ErrClosed         = errors.New("tracker is closed")
)

const (
	DefaultWindow     = 24 * time.Hour
	DefaultBatchSize  = 4
	DefaultBatchDelay = time.Second
)

// Tracker owns the watchlist. All show-state mutations flow through one
// dispatcher goroutine so a refresh result and a user toggle can never
// interleave into an inconsistent snapshot; published snapshots are
// immutable clones, so reads need no locks.
type Tracker struct {
	source Source
	store  storage.Store
	cfg    config.Refresh

	shows  *cache.Cache[string, *show.Show]
	states *cache.Cache[string, RefreshState]

	updates   chan update
	done      chan struct{}
	closeOnce sync.Once
	now       func() time.Time
}

type update struct {
	fn   func()
	done chan struct{}
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// New creates a tracker and starts its state-update dispatcher. Call Close
// to stop it.
func New(source Source, store storage.Store, cfg config.Refresh, opts ...Option) *Tracker {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = DefaultBatchDelay
	}

	t := &Tracker{
		source:  source,
		store:   store,
		cfg:     cfg,
		shows:   cache.New[string, *show.Show](),
		states:  cache.New[string, RefreshState](),
		updates: make(chan update),
		done:    make(chan struct{}),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	go t.dispatch()
	return t
}

// Close stops the dispatcher. Operations after Close return ErrClosed.
// Close may be called more than once.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
	})
}

func (t *Tracker) dispatch() {
	for {
		select {
		case <-t.done:
			return
		case u := <-t.updates:
			u.fn()
			close(u.done)
		}
	}
}

// apply runs fn on the dispatcher goroutine and waits for it. Once enqueued
// an update always runs to completion; there is no cancellation of a state
// update in flight.
func (t *Tracker) apply(ctx context.Context, fn func()) error {
	u := update{fn: fn, done: make(chan struct{})}

	select {
	case t.updates <- u:
	case <-t.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	<-u.done
	return nil
}

// Load hydrates the in-memory watchlist from storage. Derived state is
// rebuilt from the episode collections; stored timestamps are kept so
// staleness survives a restart.
func (t *Tracker) Load(ctx context.Context) error {
	log := logger.FromCtx(ctx)

	shows, err := t.store.LoadShows(ctx)
	if err != nil {
		return err
	}

	return t.apply(ctx, func() {
		for _, s := range shows {
			s.Derive(t.now())
			t.shows.Set(s.ID, s)
			t.states.Set(s.ID, t.stateFor(s))
		}
		log.Info("loaded tracked shows", zap.Int("count", len(shows)))
	})
}

// Search queries the catalog for shows matching the query.
func (t *Tracker) Search(ctx context.Context, query string) ([]tvmaze.ShowInfo, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	return t.source.SearchShows(ctx, query)
}

// AddShow starts tracking a show. The episode collection starts empty and is
// populated by the first refresh; callers typically kick one off right after
// a successful add. A show row left behind in storage, from a remove whose
// delete never landed, is restored with its watch history intact.
func (t *Tracker) AddShow(ctx context.Context, id string) (*show.Show, error) {
	log := logger.FromCtx(ctx)

	native, err := tvmaze.ParseShowID(id)
	if err != nil {
		return nil, err
	}

	if _, ok := t.shows.Get(id); ok {
		return nil, ErrShowExists
	}

	info, err := t.source.GetShow(ctx, native)
	if err != nil {
		return nil, err
	}

	prior, err := t.store.GetShow(ctx, id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Warn("failed to check storage for prior show, starting empty",
			zap.String("show_id", id), zap.Error(err))
		prior = nil
	}

	var added *show.Show
	var opErr error
	err = t.apply(ctx, func() {
		if _, ok := t.shows.Get(id); ok {
			opErr = ErrShowExists
			return
		}

		s := prior
		if s == nil {
			s = &show.Show{ID: id}
		}
		s.Details = info.Details
		s.Recompute(t.now())
		t.states.Set(id, StateStale)
		t.commit(ctx, s)
		added = s
	})
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}

	log.Info("tracking new show", zap.String("show_id", id), zap.String("title", info.Title))
	return added, nil
}

// RemoveShow stops tracking a show. The in-memory entry goes first; a failed
// storage delete is reported but the show stays removed from the watchlist.
func (t *Tracker) RemoveShow(ctx context.Context, id string) error {
	var opErr error
	err := t.apply(ctx, func() {
		if _, ok := t.shows.Get(id); !ok {
			opErr = ErrShowNotTracked
			return
		}
		t.shows.Delete(id)
		t.states.Delete(id)
	})
	if err != nil {
		return err
	}
	if opErr != nil {
		return opErr
	}

	if err := t.store.DeleteShow(ctx, id); err != nil {
		logger.FromCtx(ctx).Error("failed to delete show from storage",
			zap.String("show_id", id), zap.Error(err))
		return err
	}

	return nil
}

// GetShow returns the current snapshot of a tracked show.
func (t *Tracker) GetShow(id string) (*show.Show, error) {
	s, ok := t.shows.Get(id)
	if !ok {
		return nil, ErrShowNotTracked
	}
	return s, nil
}

// ListShows returns current snapshots of all tracked shows ordered by title.
func (t *Tracker) ListShows() []*show.Show {
	shows := t.shows.Values()
	sort.Slice(shows, func(i, j int) bool {
		if shows[i].Details.Title != shows[j].Details.Title {
			return shows[i].Details.Title < shows[j].Details.Title
		}
		return shows[i].ID < shows[j].ID
	})
	return shows
}

// ToggleEpisode flips one episode's watched flag and recomputes the show.
func (t *Tracker) ToggleEpisode(ctx context.Context, showID string, episodeID int64) (*show.Show, error) {
	return t.mutate(ctx, showID, func(s *show.Show) error {
		return s.ToggleEpisode(episodeID, t.now())
	})
}

// SetSeasonWatched marks or unmarks a whole season, aired episodes only when
// marking.
func (t *Tracker) SetSeasonWatched(ctx context.Context, showID string, season int, watched bool) (*show.Show, error) {
	return t.mutate(ctx, showID, func(s *show.Show) error {
		return s.SetSeasonWatched(season, watched, t.now())
	})
}

// SetShowWatched marks or unmarks every episode of a show, aired episodes
// only when marking.
func (t *Tracker) SetShowWatched(ctx context.Context, showID string, watched bool) (*show.Show, error) {
	return t.mutate(ctx, showID, func(s *show.Show) error {
		s.SetWatched(watched, t.now())
		return nil
	})
}

// mutate applies fn to the current state of one show as an atomic
// read-modify-write on the dispatcher goroutine, then commits the new
// snapshot.
func (t *Tracker) mutate(ctx context.Context, showID string, fn func(*show.Show) error) (*show.Show, error) {
	var result *show.Show
	var opErr error

	err := t.apply(ctx, func() {
		cur, ok := t.shows.Get(showID)
		if !ok {
			opErr = ErrShowNotTracked
			return
		}

		next := cur.Clone()
		if err := fn(next); err != nil {
			opErr = err
			return
		}

		t.commit(ctx, next)
		result = next
	})
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}

	return result, nil
}

// commit publishes the new snapshot and makes the single upsert call that
// follows every recomputation. A failed write is logged and the in-memory
// state kept; the next mutation of the show retries the write.
func (t *Tracker) commit(ctx context.Context, s *show.Show) {
	t.shows.Set(s.ID, s)

	if err := t.store.UpsertShow(ctx, s); err != nil {
		logger.FromCtx(ctx).Error("failed to persist show, keeping in-memory state",
			zap.String("show_id", s.ID), zap.Error(err))
	}
}

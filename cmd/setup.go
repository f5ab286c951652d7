package cmd

import (
	"context"

	"github.com/episodarr/episodarr/config"
	phttp "github.com/episodarr/episodarr/pkg/http"
	"github.com/episodarr/episodarr/pkg/logger"
	"github.com/episodarr/episodarr/pkg/storage/sqlite"
	"github.com/episodarr/episodarr/pkg/tracker"
	"github.com/episodarr/episodarr/pkg/tvmaze"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// newTracker builds a tracker from the effective configuration and loads the
// watchlist. Callers own the returned tracker and must Close it.
func newTracker(ctx context.Context) (*tracker.Tracker, config.Config, error) {
	log := logger.FromCtx(ctx)

	cfg, err := config.New(viper.GetViper())
	if err != nil {
		return nil, cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, cfg, err
	}

	store, err := sqlite.New(ctx, cfg.Storage.FilePath)
	if err != nil {
		return nil, cfg, err
	}

	httpClient := phttp.NewRateLimitedHTTPClient(
		phttp.WithMaxRetries(cfg.TVMaze.MaxRetries),
		phttp.WithBaseBackoff(cfg.TVMaze.BaseBackoff),
	)
	client := tvmaze.New(
		tvmaze.WithScheme(cfg.TVMaze.Scheme),
		tvmaze.WithHost(cfg.TVMaze.Host),
		tvmaze.WithHTTPClient(httpClient),
	)

	t := tracker.New(client, store, cfg.Refresh)
	if err := t.Load(ctx); err != nil {
		t.Close()
		return nil, cfg, err
	}

	log.Debug("tracker ready", zap.String("db", cfg.Storage.FilePath))
	return t, cfg, nil
}

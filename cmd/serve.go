package cmd

import (
	"context"

	"github.com/episodarr/episodarr/pkg/logger"
	"github.com/episodarr/episodarr/pkg/tracker"
	"github.com/episodarr/episodarr/server"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the episode tracking server",
	Long:  `start the episode tracking server`,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.Get()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		ctx = logger.WithCtx(ctx, log)

		t, cfg, err := newTracker(ctx)
		if err != nil {
			log.Fatal("failed to set up tracker", zap.Error(err))
		}
		defer t.Close()

		scheduler := tracker.NewScheduler(t, cfg.Refresh.Interval)
		go func() {
			if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("refresh scheduler exited", zap.Error(err))
			}
		}()

		srv := server.New(log, t)
		log.Error(srv.Serve(cfg.Server.Port))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

package cmd

import (
	"context"
	"fmt"

	"github.com/episodarr/episodarr/pkg/logger"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh [show-id]",
	Short: "refresh episode data from the catalog",
	Long:  `refresh one show, or every stale show when no id is given`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.Get()
		ctx := logger.WithCtx(context.Background(), log)

		t, _, err := newTracker(ctx)
		if err != nil {
			log.Fatal("failed to set up tracker", zap.Error(err))
		}
		defer t.Close()

		if len(args) == 1 {
			if err := t.RefreshShow(ctx, args[0]); err != nil {
				log.Fatal("failed to refresh show", zap.Error(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "refreshed %s\n", args[0])
			return
		}

		result, err := t.RefreshStale(ctx)
		if err != nil {
			log.Fatal("failed to refresh shows", zap.Error(err))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "refreshed %d shows\n", len(result.Updated))
		for id, refreshErr := range result.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "failed %s: %v\n", id, refreshErr)
		}
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

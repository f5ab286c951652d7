package cmd

import (
	"context"
	"fmt"

	"github.com/episodarr/episodarr/pkg/logger"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:        "add <show-id>",
	Short:      "track a show by its catalog id",
	Long:       `track a show by its catalog id, e.g. tvmaze-82 from search results`,
	Args:       cobra.ExactArgs(1),
	ArgAliases: []string{"show id"},
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.Get()
		ctx := logger.WithCtx(context.Background(), log)

		t, _, err := newTracker(ctx)
		if err != nil {
			log.Fatal("failed to set up tracker", zap.Error(err))
		}
		defer t.Close()

		added, err := t.AddShow(ctx, args[0])
		if err != nil {
			log.Fatal("failed to add show", zap.Error(err))
		}

		if err := t.RefreshShow(ctx, added.ID); err != nil {
			log.Fatal("failed to fetch episodes", zap.Error(err))
		}

		s, err := t.GetShow(added.ID)
		if err != nil {
			log.Fatal("failed to read show", zap.Error(err))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "tracking %s (%s): %d episodes in %d seasons\n",
			s.Details.Title, s.ID, s.TotalEpisodes, len(s.Seasons))
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}

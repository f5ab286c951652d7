package cmd

import (
	"context"
	"fmt"

	"github.com/episodarr/episodarr/pkg/logger"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

// removeCmd represents the remove command
var removeCmd = &cobra.Command{
	Use:        "remove <show-id>",
	Short:      "stop tracking a show",
	Long:       `stop tracking a show and drop its watch history`,
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

		if err := t.RemoveShow(ctx, args[0]); err != nil {
			log.Fatal("failed to remove show", zap.Error(err))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

package cmd

import (
	"context"
	"fmt"

	"github.com/episodarr/episodarr/pkg/logger"
	"github.com/episodarr/episodarr/pkg/tvmaze"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:        "search <query>",
	Short:      "search the catalog for a show",
	Long:       `search the catalog for a show`,
	Args:       cobra.ExactArgs(1),
	ArgAliases: []string{"query"},
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.Get()
		ctx := logger.WithCtx(context.Background(), log)

		client := tvmaze.New()
		results, err := client.SearchShows(ctx, args[0])
		if err != nil {
			log.Fatal("failed to search shows", zap.Error(err))
		}

		for _, r := range results {
			line := fmt.Sprintf("%s\t%s", r.ID, r.Title)
			if !r.Premiered.IsZero() {
				line += fmt.Sprintf(" (%d)", r.Premiered.Year())
			}
			if r.Network != "" {
				line += "\t" + r.Network
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

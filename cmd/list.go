package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/episodarr/episodarr/pkg/logger"
	"github.com/episodarr/episodarr/pkg/show"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list tracked shows and watch progress",
	Long:  `list tracked shows and watch progress`,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.Get()
		ctx := logger.WithCtx(context.Background(), log)

		t, _, err := newTracker(ctx)
		if err != nil {
			log.Fatal("failed to set up tracker", zap.Error(err))
		}
		defer t.Close()

		for _, s := range t.ListShows() {
			fmt.Fprintln(cmd.OutOrStdout(), formatShow(s))
		}
	},
}

func formatShow(s *show.Show) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\t%s\t%d/%d watched", s.ID, s.Details.Title, s.WatchedEpisodes, s.TotalEpisodes)

	if s.NextEpisode != nil {
		fmt.Fprintf(&b, "\tnext S%02dE%02d", s.NextEpisode.Season, s.NextEpisode.Number)
	} else if s.Watched {
		b.WriteString("\tall caught up")
	}

	if len(s.Details.Genres) > 0 {
		title := cases.Title(language.English)
		genres := make([]string, len(s.Details.Genres))
		for i, g := range s.Details.Genres {
			genres[i] = title.String(g)
		}
		fmt.Fprintf(&b, "\t%s", strings.Join(genres, ", "))
	}

	if !s.LastUpdated.IsZero() {
		fmt.Fprintf(&b, "\tupdated %s", humanize.Time(s.LastUpdated))
	}

	return b.String()
}

func init() {
	rootCmd.AddCommand(listCmd)
}

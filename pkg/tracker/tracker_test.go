package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/episodarr/episodarr/config"
	"github.com/episodarr/episodarr/pkg/show"
	"github.com/episodarr/episodarr/pkg/storage"
	storagemocks "github.com/episodarr/episodarr/pkg/storage/mocks"
	"github.com/episodarr/episodarr/pkg/tracker/mocks"
	"github.com/episodarr/episodarr/pkg/tvmaze"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testNow = time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)

func testTime(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

type trackerMocks struct {
	source *mocks.MockSource
	store  *storagemocks.MockStore
}

func testTracker(t *testing.T, cfg config.Refresh) (*Tracker, trackerMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	tm := trackerMocks{
		source: mocks.NewMockSource(ctrl),
		store:  storagemocks.NewMockStore(ctrl),
	}

	tr := New(tm.source, tm.store, cfg, WithClock(func() time.Time { return testNow }))
	t.Cleanup(tr.Close)
	return tr, tm
}

func testShow(id, title string, lastUpdated time.Time, episodes ...show.Episode) *show.Show {
	s := &show.Show{
		ID:          id,
		Details:     show.Details{Title: title},
		Episodes:    episodes,
		LastUpdated: lastUpdated,
	}
	return s
}

// load seeds the tracker through the storage path.
func load(t *testing.T, tr *Tracker, tm trackerMocks, shows ...*show.Show) {
	t.Helper()
	tm.store.EXPECT().LoadShows(gomock.Any()).Times(1).Return(shows, nil)
	require.NoError(t, tr.Load(context.Background()))
}

func TestTracker_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("empty query", func(t *testing.T) {
		tr, _ := testTracker(t, config.Refresh{})
		_, err := tr.Search(ctx, "   ")
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("passes through results", func(t *testing.T) {
		tr, tm := testTracker(t, config.Refresh{})
		want := []tvmaze.ShowInfo{{ID: tvmaze.ShowID(82), Details: show.Details{Title: "Game of Thrones"}}}
		tm.source.EXPECT().SearchShows(ctx, "thrones").Times(1).Return(want, nil)

		got, err := tr.Search(ctx, "thrones")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

func TestTracker_AddShow(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid id", func(t *testing.T) {
		tr, _ := testTracker(t, config.Refresh{})
		_, err := tr.AddShow(ctx, "not-an-id")
		assert.ErrorIs(t, err, tvmaze.ErrInvalidID)
	})

	t.Run("starts with an empty episode collection", func(t *testing.T) {
		tr, tm := testTracker(t, config.Refresh{})
		id := tvmaze.ShowID(82)
		tm.source.EXPECT().GetShow(ctx, 82).Times(1).
			Return(tvmaze.ShowInfo{ID: id, Details: show.Details{Title: "Game of Thrones"}}, nil)
		tm.store.EXPECT().GetShow(ctx, id).Times(1).Return(nil, storage.ErrNotFound)
		tm.store.EXPECT().UpsertShow(gomock.Any(), gomock.Any()).Times(1).Return(nil)

		s, err := tr.AddShow(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, s.ID)
		assert.Equal(t, "Game of Thrones", s.Details.Title)
		assert.Empty(t, s.Episodes)
		assert.Zero(t, s.TotalEpisodes)
		assert.Nil(t, s.NextEpisode)
		assert.False(t, s.Watched)

		// the new show is immediately eligible for its first refresh
		assert.Equal(t, []string{id}, tr.StaleShows())
	})

	t.Run("restores a show row left in storage", func(t *testing.T) {
		tr, tm := testTracker(t, config.Refresh{})
		id := tvmaze.ShowID(82)
		watchedAt := testTime("2024-01-02")
		tm.source.EXPECT().GetShow(ctx, 82).Times(1).
			Return(tvmaze.ShowInfo{ID: id, Details: show.Details{Title: "Game of Thrones", Status: "Ended"}}, nil)
		tm.store.EXPECT().GetShow(ctx, id).Times(1).Return(&show.Show{
			ID:      id,
			Details: show.Details{Title: "Game of Thrones"},
			Episodes: []show.Episode{
				{ID: 100, Season: 1, Number: 1, AirDate: testTime("2024-01-01"), Watched: true, WatchedAt: &watchedAt},
				{ID: 101, Season: 1, Number: 2, AirDate: testTime("2024-01-08")},
			},
		}, nil)
		tm.store.EXPECT().UpsertShow(gomock.Any(), gomock.Any()).Times(1).Return(nil)

		s, err := tr.AddShow(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Ended", s.Details.Status)
		assert.Equal(t, 2, s.TotalEpisodes)
		assert.Equal(t, 1, s.WatchedEpisodes)
		assert.Equal(t, watchedAt, *s.Episodes[0].WatchedAt)
		assert.Equal(t, []string{id}, tr.StaleShows())
	})

	t.Run("duplicate add", func(t *testing.T) {
		tr, tm := testTracker(t, config.Refresh{})
		id := tvmaze.ShowID(82)
		tm.source.EXPECT().GetShow(ctx, 82).Times(1).
			Return(tvmaze.ShowInfo{ID: id, Details: show.Details{Title: "Game of Thrones"}}, nil)
		tm.store.EXPECT().GetShow(ctx, id).Times(1).Return(nil, storage.ErrNotFound)
		tm.store.EXPECT().UpsertShow(gomock.Any(), gomock.Any()).Times(1).Return(nil)

		_, err := tr.AddShow(ctx, id)
		require.NoError(t, err)

		_, err = tr.AddShow(ctx, id)
		assert.ErrorIs(t, err, ErrShowExists)
	})

	t.Run("source failure", func(t *testing.T) {
		tr, tm := testTracker(t, config.Refresh{})
		tm.source.EXPECT().GetShow(ctx, 82).Times(1).
			Return(tvmaze.ShowInfo{}, tvmaze.ErrUnavailable)

		_, err := tr.AddShow(ctx, tvmaze.ShowID(82))
		assert.ErrorIs(t, err, tvmaze.ErrUnavailable)
		_, err = tr.GetShow(tvmaze.ShowID(82))
		assert.ErrorIs(t, err, ErrShowNotTracked)
	})
}

func TestTracker_RemoveShow(t *testing.T) {
	ctx := context.Background()

	t.Run("not tracked", func(t *testing.T) {
		tr, _ := testTracker(t, config.Refresh{})
		assert.ErrorIs(t, tr.RemoveShow(ctx, tvmaze.ShowID(82)), ErrShowNotTracked)
	})

	t.Run("removes from memory and storage", func(t *testing.T) {
		tr, tm := testTracker(t, config.Refresh{})
		id := tvmaze.ShowID(82)
		load(t, tr, tm, testShow(id, "Game of Thrones", testNow))
		tm.store.EXPECT().DeleteShow(gomock.Any(), id).Times(1).Return(nil)

		require.NoError(t, tr.RemoveShow(ctx, id))
		_, err := tr.GetShow(id)
		assert.ErrorIs(t, err, ErrShowNotTracked)
		assert.Empty(t, tr.ListShows())
	})
}

func TestTracker_ListShows(t *testing.T) {
	tr, tm := testTracker(t, config.Refresh{})
	load(t, tr, tm,
		testShow(tvmaze.ShowID(3), "Severance", testNow),
		testShow(tvmaze.ShowID(1), "The Wire", testNow),
		testShow(tvmaze.ShowID(2), "Andor", testNow),
	)

	var titles []string
	for _, s := range tr.ListShows() {
		titles = append(titles, s.Details.Title)
	}
	assert.Equal(t, []string{"Andor", "Severance", "The Wire"}, titles)
}

func TestTracker_ToggleEpisode(t *testing.T) {
	ctx := context.Background()
	id := tvmaze.ShowID(82)
	episodes := []show.Episode{
		{ID: 100, Season: 1, Number: 1, AirDate: testTime("2024-01-01")},
		{ID: 101, Season: 1, Number: 2, AirDate: testTime("2024-01-08")},
	}

	t.Run("show not tracked", func(t *testing.T) {
		tr, _ := testTracker(t, config.Refresh{})
		_, err := tr.ToggleEpisode(ctx, id, 100)
		assert.ErrorIs(t, err, ErrShowNotTracked)
	})

	t.Run("episode not found", func(t *testing.T) {
		tr, tm := testTracker(t, config.Refresh{})
		load(t, tr, tm, testShow(id, "Game of Thrones", testNow, episodes...))

		_, err := tr.ToggleEpisode(ctx, id, 999)
		assert.ErrorIs(t, err, show.ErrEpisodeNotFound)
	})

	t.Run("toggles and publishes a new snapshot", func(t *testing.T) {
		tr, tm := testTracker(t, config.Refresh{})
		load(t, tr, tm, testShow(id, "Game of Thrones", testNow, episodes...))
		tm.store.EXPECT().UpsertShow(gomock.Any(), gomock.Any()).Times(1).Return(nil)

		before, err := tr.GetShow(id)
		require.NoError(t, err)

		after, err := tr.ToggleEpisode(ctx, id, 100)
		require.NoError(t, err)
		assert.True(t, after.Episodes[0].Watched)
		assert.Equal(t, testNow, *after.Episodes[0].WatchedAt)
		assert.Equal(t, 1, after.WatchedEpisodes)

		// the earlier snapshot is untouched
		assert.False(t, before.Episodes[0].Watched)
		assert.Zero(t, before.WatchedEpisodes)

		current, err := tr.GetShow(id)
		require.NoError(t, err)
		assert.Equal(t, after, current)
	})

	t.Run("persist failure keeps the in-memory state", func(t *testing.T) {
		tr, tm := testTracker(t, config.Refresh{})
		load(t, tr, tm, testShow(id, "Game of Thrones", testNow, episodes...))
		tm.store.EXPECT().UpsertShow(gomock.Any(), gomock.Any()).Times(1).
			Return(errors.New("expected testing error"))

		after, err := tr.ToggleEpisode(ctx, id, 100)
		require.NoError(t, err)
		assert.True(t, after.Episodes[0].Watched)

		current, err := tr.GetShow(id)
		require.NoError(t, err)
		assert.True(t, current.Episodes[0].Watched)
	})
}

func TestTracker_SetSeasonWatched(t *testing.T) {
	ctx := context.Background()
	id := tvmaze.ShowID(82)
	episodes := []show.Episode{
		{ID: 100, Season: 1, Number: 1, AirDate: testTime("2024-01-01")},
		{ID: 101, Season: 1, Number: 2, AirDate: testTime("2024-01-08")},
		{ID: 102, Season: 1, Number: 3, AirDate: testTime("2024-06-01")},
		{ID: 103, Season: 2, Number: 1, AirDate: testTime("2024-02-01")},
	}

	t.Run("season not found", func(t *testing.T) {
		tr, tm := testTracker(t, config.Refresh{})
		load(t, tr, tm, testShow(id, "Game of Thrones", testNow, episodes...))

		_, err := tr.SetSeasonWatched(ctx, id, 9, true)
		assert.ErrorIs(t, err, show.ErrSeasonNotFound)
	})

	t.Run("marks only aired episodes of the season", func(t *testing.T) {
		tr, tm := testTracker(t, config.Refresh{})
		load(t, tr, tm, testShow(id, "Game of Thrones", testNow, episodes...))
		tm.store.EXPECT().UpsertShow(gomock.Any(), gomock.Any()).Times(1).Return(nil)

		after, err := tr.SetSeasonWatched(ctx, id, 1, true)
		require.NoError(t, err)
		assert.True(t, after.Episodes[0].Watched)
		assert.True(t, after.Episodes[1].Watched)
		assert.False(t, after.Episodes[2].Watched, "unaired episode stays unwatched")
		assert.False(t, after.Episodes[3].Watched, "other season untouched")
		assert.Equal(t, 2, after.WatchedEpisodes)
	})
}

func TestTracker_SetShowWatched(t *testing.T) {
	ctx := context.Background()
	id := tvmaze.ShowID(82)
	tr, tm := testTracker(t, config.Refresh{})
	load(t, tr, tm, testShow(id, "Game of Thrones", testNow,
		show.Episode{ID: 100, Season: 1, Number: 1, AirDate: testTime("2024-01-01")},
		show.Episode{ID: 101, Season: 2, Number: 1, AirDate: testTime("2024-02-01")},
	))
	tm.store.EXPECT().UpsertShow(gomock.Any(), gomock.Any()).Times(2).Return(nil)

	after, err := tr.SetShowWatched(ctx, id, true)
	require.NoError(t, err)
	assert.True(t, after.Watched)
	assert.Equal(t, 2, after.WatchedEpisodes)

	after, err = tr.SetShowWatched(ctx, id, false)
	require.NoError(t, err)
	assert.False(t, after.Watched)
	assert.Zero(t, after.WatchedEpisodes)
}

func TestTracker_Closed(t *testing.T) {
	tr, _ := testTracker(t, config.Refresh{})
	tr.Close()

	err := tr.RemoveShow(context.Background(), tvmaze.ShowID(82))
	assert.ErrorIs(t, err, ErrClosed)
}

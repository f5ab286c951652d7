package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/episodarr/episodarr/config"
	"github.com/episodarr/episodarr/pkg/show"
	"github.com/episodarr/episodarr/pkg/storage"
	storagemocks "github.com/episodarr/episodarr/pkg/storage/mocks"
	"github.com/episodarr/episodarr/pkg/tracker"
	trackermocks "github.com/episodarr/episodarr/pkg/tracker/mocks"
	"github.com/episodarr/episodarr/pkg/tvmaze"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)

type serverMocks struct {
	source *trackermocks.MockSource
	store  *storagemocks.MockStore
}

func testServer(t *testing.T) (Server, serverMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	sm := serverMocks{
		source: trackermocks.NewMockSource(ctrl),
		store:  storagemocks.NewMockStore(ctrl),
	}

	tr := tracker.New(sm.source, sm.store, config.Refresh{},
		tracker.WithClock(func() time.Time { return testNow }))
	t.Cleanup(tr.Close)

	return New(zap.NewNop().Sugar(), tr), sm
}

func seedShow(t *testing.T, sm serverMocks, shows ...*show.Show) {
	t.Helper()
	sm.store.EXPECT().LoadShows(gomock.Any()).Times(1).Return(shows, nil)
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) GenericResponse {
	t.Helper()
	var response GenericResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	return response
}

func TestServer_Healthz(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		s, _ := testServer(t)

		req, err := http.NewRequest("GET", "/healthz", nil)
		assert.NoError(t, err)

		rr := httptest.NewRecorder()

		handler := s.Healthz()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		assert.Equal(t, "application/json", rr.Header().Get("content-type"))

		response := decodeResponse(t, rr)
		assert.Equal(t, "ok", response.Response)
	})
}

func TestServer_SearchShows(t *testing.T) {
	t.Run("empty query", func(t *testing.T) {
		s, _ := testServer(t)

		req := httptest.NewRequest("GET", "/api/v1/search", nil)
		rr := httptest.NewRecorder()
		s.SearchShows().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.NotEmpty(t, decodeResponse(t, rr).Error)
	})

	t.Run("results", func(t *testing.T) {
		s, sm := testServer(t)
		sm.source.EXPECT().SearchShows(gomock.Any(), "thrones").Times(1).
			Return([]tvmaze.ShowInfo{{ID: tvmaze.ShowID(82), Details: show.Details{Title: "Game of Thrones"}}}, nil)

		req := httptest.NewRequest("GET", "/api/v1/search?query=thrones", nil)
		rr := httptest.NewRecorder()
		s.SearchShows().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, decodeResponse(t, rr).Error)
	})
}

func TestServer_ListShows(t *testing.T) {
	t.Run("invalid page", func(t *testing.T) {
		s, _ := testServer(t)

		req := httptest.NewRequest("GET", "/api/v1/shows?page=0", nil)
		rr := httptest.NewRecorder()
		s.ListShows().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("paginates", func(t *testing.T) {
		s, sm := testServer(t)
		seedShow(t, sm,
			&show.Show{ID: tvmaze.ShowID(1), Details: show.Details{Title: "Andor"}},
			&show.Show{ID: tvmaze.ShowID(2), Details: show.Details{Title: "Severance"}},
			&show.Show{ID: tvmaze.ShowID(3), Details: show.Details{Title: "The Wire"}},
		)
		require.NoError(t, s.tracker.Load(context.Background()))

		req := httptest.NewRequest("GET", "/api/v1/shows?page=2&pageSize=2", nil)
		rr := httptest.NewRecorder()
		s.ListShows().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var response struct {
			Response PagedShows `json:"response"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		require.Len(t, response.Response.Shows, 1)
		assert.Equal(t, "The Wire", response.Response.Shows[0].Details.Title)
		assert.Equal(t, 3, response.Response.Meta.TotalItems)
		assert.Equal(t, 2, response.Response.Meta.TotalPages)
	})
}

func TestServer_AddShow(t *testing.T) {
	t.Run("missing id", func(t *testing.T) {
		s, _ := testServer(t)

		req := httptest.NewRequest("POST", "/api/v1/shows", strings.NewReader(`{}`))
		rr := httptest.NewRecorder()
		s.AddShow().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("tracks and kicks first refresh", func(t *testing.T) {
		s, sm := testServer(t)
		id := tvmaze.ShowID(82)

		refreshed := make(chan struct{})
		sm.source.EXPECT().GetShow(gomock.Any(), 82).Times(2).
			Return(tvmaze.ShowInfo{ID: id, Details: show.Details{Title: "Game of Thrones"}}, nil)
		sm.store.EXPECT().GetShow(gomock.Any(), id).Times(1).Return(nil, storage.ErrNotFound)
		sm.source.EXPECT().GetEpisodes(gomock.Any(), 82).Times(1).
			DoAndReturn(func(context.Context, int) ([]show.Episode, error) {
				defer close(refreshed)
				return []show.Episode{{ID: 100, Season: 1, Number: 1, AirDate: testNow.Add(-time.Hour)}}, nil
			})
		sm.store.EXPECT().UpsertShow(gomock.Any(), gomock.Any()).Times(2).Return(nil)

		body := strings.NewReader(`{"id": "` + id + `"}`)
		req := httptest.NewRequest("POST", "/api/v1/shows", body)
		rr := httptest.NewRecorder()
		s.AddShow().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		select {
		case <-refreshed:
		case <-time.After(5 * time.Second):
			t.Fatal("first refresh never ran")
		}

		// refresh commits on the dispatcher; a tracked-show read after an
		// empty queue round-trip sees the committed episodes
		assert.Eventually(t, func() bool {
			got, err := s.tracker.GetShow(id)
			return err == nil && got.TotalEpisodes == 1
		}, 5*time.Second, 10*time.Millisecond)
	})

	t.Run("duplicate", func(t *testing.T) {
		s, sm := testServer(t)
		id := tvmaze.ShowID(82)
		seedShow(t, sm, &show.Show{ID: id, Details: show.Details{Title: "Game of Thrones"}})
		require.NoError(t, s.tracker.Load(context.Background()))

		body := strings.NewReader(`{"id": "` + id + `"}`)
		req := httptest.NewRequest("POST", "/api/v1/shows", body)
		rr := httptest.NewRecorder()
		s.AddShow().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestServer_GetShow(t *testing.T) {
	t.Run("not tracked", func(t *testing.T) {
		s, _ := testServer(t)

		req := mux.SetURLVars(httptest.NewRequest("GET", "/api/v1/shows/tvmaze-82", nil),
			map[string]string{"id": "tvmaze-82"})
		rr := httptest.NewRecorder()
		s.GetShow().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("found", func(t *testing.T) {
		s, sm := testServer(t)
		id := tvmaze.ShowID(82)
		seedShow(t, sm, &show.Show{ID: id, Details: show.Details{Title: "Game of Thrones"}})
		require.NoError(t, s.tracker.Load(context.Background()))

		req := mux.SetURLVars(httptest.NewRequest("GET", "/api/v1/shows/"+id, nil),
			map[string]string{"id": id})
		rr := httptest.NewRecorder()
		s.GetShow().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestServer_ToggleEpisode(t *testing.T) {
	t.Run("bad episode id", func(t *testing.T) {
		s, _ := testServer(t)

		req := mux.SetURLVars(httptest.NewRequest("POST", "/api/v1/shows/tvmaze-82/episodes/nope/toggle", nil),
			map[string]string{"id": "tvmaze-82", "episodeID": "nope"})
		rr := httptest.NewRecorder()
		s.ToggleEpisode().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("toggles", func(t *testing.T) {
		s, sm := testServer(t)
		id := tvmaze.ShowID(82)
		seedShow(t, sm, &show.Show{
			ID:      id,
			Details: show.Details{Title: "Game of Thrones"},
			Episodes: []show.Episode{
				{ID: 100, Season: 1, Number: 1, AirDate: testNow.Add(-time.Hour)},
			},
		})
		require.NoError(t, s.tracker.Load(context.Background()))
		sm.store.EXPECT().UpsertShow(gomock.Any(), gomock.Any()).Times(1).Return(nil)

		req := mux.SetURLVars(httptest.NewRequest("POST", "/api/v1/shows/"+id+"/episodes/100/toggle", nil),
			map[string]string{"id": id, "episodeID": "100"})
		rr := httptest.NewRecorder()
		s.ToggleEpisode().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		got, err := s.tracker.GetShow(id)
		require.NoError(t, err)
		assert.Equal(t, 1, got.WatchedEpisodes)
	})
}

func TestServer_SetSeasonWatched(t *testing.T) {
	s, sm := testServer(t)
	id := tvmaze.ShowID(82)
	seedShow(t, sm, &show.Show{
		ID:      id,
		Details: show.Details{Title: "Game of Thrones"},
		Episodes: []show.Episode{
			{ID: 100, Season: 1, Number: 1, AirDate: testNow.Add(-time.Hour)},
			{ID: 101, Season: 1, Number: 2, AirDate: testNow.Add(time.Hour)},
		},
	})
	require.NoError(t, s.tracker.Load(context.Background()))
	sm.store.EXPECT().UpsertShow(gomock.Any(), gomock.Any()).Times(1).Return(nil)

	body := strings.NewReader(`{"watched": true}`)
	req := mux.SetURLVars(httptest.NewRequest("PUT", "/api/v1/shows/"+id+"/seasons/1/watched", body),
		map[string]string{"id": id, "season": "1"})
	rr := httptest.NewRecorder()
	s.SetSeasonWatched().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	got, err := s.tracker.GetShow(id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.WatchedEpisodes, "only the aired episode is marked")
}

func TestServer_SetShowWatched(t *testing.T) {
	t.Run("missing watched flag", func(t *testing.T) {
		s, _ := testServer(t)

		req := mux.SetURLVars(httptest.NewRequest("PUT", "/api/v1/shows/tvmaze-82/watched", strings.NewReader(`{}`)),
			map[string]string{"id": "tvmaze-82"})
		rr := httptest.NewRecorder()
		s.SetShowWatched().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("marks the show", func(t *testing.T) {
		s, sm := testServer(t)
		id := tvmaze.ShowID(82)
		seedShow(t, sm, &show.Show{
			ID:      id,
			Details: show.Details{Title: "Game of Thrones"},
			Episodes: []show.Episode{
				{ID: 100, Season: 1, Number: 1, AirDate: testNow.Add(-time.Hour)},
			},
		})
		require.NoError(t, s.tracker.Load(context.Background()))
		sm.store.EXPECT().UpsertShow(gomock.Any(), gomock.Any()).Times(1).Return(nil)

		body := strings.NewReader(`{"watched": true}`)
		req := mux.SetURLVars(httptest.NewRequest("PUT", "/api/v1/shows/"+id+"/watched", body),
			map[string]string{"id": id})
		rr := httptest.NewRecorder()
		s.SetShowWatched().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		got, err := s.tracker.GetShow(id)
		require.NoError(t, err)
		assert.True(t, got.Watched)
	})
}

func TestServer_RefreshShow(t *testing.T) {
	s, sm := testServer(t)
	id := tvmaze.ShowID(82)
	seedShow(t, sm, &show.Show{ID: id, Details: show.Details{Title: "Game of Thrones"}})
	require.NoError(t, s.tracker.Load(context.Background()))

	sm.source.EXPECT().GetShow(gomock.Any(), 82).Times(1).
		Return(tvmaze.ShowInfo{ID: id, Details: show.Details{Title: "Game of Thrones"}}, nil)
	sm.source.EXPECT().GetEpisodes(gomock.Any(), 82).Times(1).
		Return([]show.Episode{{ID: 100, Season: 1, Number: 1, AirDate: testNow.Add(-time.Hour)}}, nil)
	sm.store.EXPECT().UpsertShow(gomock.Any(), gomock.Any()).Times(1).Return(nil)

	req := mux.SetURLVars(httptest.NewRequest("POST", "/api/v1/shows/"+id+"/refresh", nil),
		map[string]string{"id": id})
	rr := httptest.NewRecorder()
	s.RefreshShow().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	got, err := s.tracker.GetShow(id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalEpisodes)
}

func TestServer_RefreshAll(t *testing.T) {
	s, sm := testServer(t)
	seedShow(t, sm, &show.Show{ID: tvmaze.ShowID(1), Details: show.Details{Title: "Andor"}})
	require.NoError(t, s.tracker.Load(context.Background()))

	sm.source.EXPECT().GetShow(gomock.Any(), 1).Times(1).
		Return(tvmaze.ShowInfo{ID: tvmaze.ShowID(1), Details: show.Details{Title: "Andor"}}, nil)
	sm.source.EXPECT().GetEpisodes(gomock.Any(), 1).Times(1).Return(nil, nil)
	sm.store.EXPECT().UpsertShow(gomock.Any(), gomock.Any()).Times(1).Return(nil)

	req := httptest.NewRequest("POST", "/api/v1/shows/refresh", nil)
	rr := httptest.NewRecorder()
	s.RefreshAll().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var response struct {
		Response struct {
			Updated []string          `json:"updated"`
			Errors  map[string]string `json:"errors"`
		} `json:"response"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, []string{tvmaze.ShowID(1)}, response.Response.Updated)
	assert.Empty(t, response.Response.Errors)
}

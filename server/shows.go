package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/episodarr/episodarr/pkg/logger"
	"github.com/episodarr/episodarr/pkg/pagination"
	"github.com/episodarr/episodarr/pkg/show"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AddShowRequest describes a show to start tracking.
type AddShowRequest struct {
	ID string `json:"id" validate:"required"`
}

// SetWatchedRequest carries the desired watched flag for bulk marking.
type SetWatchedRequest struct {
	Watched *bool `json:"watched" validate:"required"`
}

// PagedShows is one page of the watchlist.
type PagedShows struct {
	Shows []*show.Show    `json:"shows"`
	Meta  pagination.Meta `json:"meta"`
}

// SearchShows searches the catalog for shows matching the query parameter
func (s Server) SearchShows() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromCtx(r.Context())
		query := r.URL.Query().Get("query")

		result, err := s.tracker.Search(r.Context(), query)
		if err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}

		err = writeResponse(w, http.StatusOK, GenericResponse{Response: result})
		if err != nil {
			log.Error("failed to write response", zap.Error(err))
			return
		}
	}
}

// ListShows lists the tracked shows, paginated
func (s Server) ListShows() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := ParsePaginationParams(r)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		shows := s.tracker.ListShows()
		page := PagedShows{
			Shows: pagination.Slice(shows, params),
			Meta:  params.BuildMeta(len(shows)),
		}

		writeResponse(w, http.StatusOK, GenericResponse{Response: page})
	}
}

// AddShow starts tracking a show and kicks off its first refresh
func (s Server) AddShow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromCtx(r.Context())
		b, err := io.ReadAll(r.Body)
		if err != nil {
			log.Debug("invalid request body", zap.Error(err))
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		var request AddShowRequest
		err = json.Unmarshal(b, &request)
		if err != nil {
			log.Debug("invalid request body", zap.ByteString("body", b))
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if err := s.validate.Struct(request); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		added, err := s.tracker.AddShow(r.Context(), request.ID)
		if err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}

		// populate the episode collection without holding up the response
		refreshCtx := logger.WithCtx(context.WithoutCancel(r.Context()), log)
		go func() {
			if err := s.tracker.RefreshShow(refreshCtx, added.ID); err != nil {
				log.Error("first refresh failed", zap.String("show_id", added.ID), zap.Error(err))
			}
		}()

		writeResponse(w, http.StatusCreated, GenericResponse{Response: added})
	}
}

// GetShow returns one tracked show with its seasons and next episode
func (s Server) GetShow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		result, err := s.tracker.GetShow(id)
		if err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}

		writeResponse(w, http.StatusOK, GenericResponse{Response: result})
	}
}

// RemoveShow stops tracking a show
func (s Server) RemoveShow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		if err := s.tracker.RemoveShow(r.Context(), id); err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}

		writeResponse(w, http.StatusOK, GenericResponse{})
	}
}

// ToggleEpisode flips the watched state of one episode
func (s Server) ToggleEpisode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		id := vars["id"]

		episodeID, err := strconv.ParseInt(vars["episodeID"], 10, 64)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		result, err := s.tracker.ToggleEpisode(r.Context(), id, episodeID)
		if err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}

		writeResponse(w, http.StatusOK, GenericResponse{Response: result})
	}
}

// SetSeasonWatched marks or unmarks every episode of a season
func (s Server) SetSeasonWatched() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		id := vars["id"]

		season, err := strconv.Atoi(vars["season"])
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		request, err := s.decodeSetWatched(r)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		result, err := s.tracker.SetSeasonWatched(r.Context(), id, season, *request.Watched)
		if err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}

		writeResponse(w, http.StatusOK, GenericResponse{Response: result})
	}
}

// SetShowWatched marks or unmarks every episode of a show
func (s Server) SetShowWatched() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		request, err := s.decodeSetWatched(r)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		result, err := s.tracker.SetShowWatched(r.Context(), id, *request.Watched)
		if err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}

		writeResponse(w, http.StatusOK, GenericResponse{Response: result})
	}
}

// RefreshShow refreshes one show from the catalog
func (s Server) RefreshShow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		if err := s.tracker.RefreshShow(r.Context(), id); err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}

		result, err := s.tracker.GetShow(id)
		if err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}

		writeResponse(w, http.StatusOK, GenericResponse{Response: result})
	}
}

// RefreshAll refreshes every stale show
func (s Server) RefreshAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := s.tracker.RefreshStale(r.Context())
		if err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}

		resp := struct {
			Updated []string          `json:"updated"`
			Errors  map[string]string `json:"errors,omitempty"`
		}{Updated: result.Updated}
		if len(result.Errors) > 0 {
			resp.Errors = make(map[string]string, len(result.Errors))
			for id, refreshErr := range result.Errors {
				resp.Errors[id] = refreshErr.Error()
			}
		}

		writeResponse(w, http.StatusOK, GenericResponse{Response: resp})
	}
}

func (s Server) decodeSetWatched(r *http.Request) (SetWatchedRequest, error) {
	var request SetWatchedRequest

	b, err := io.ReadAll(r.Body)
	if err != nil {
		return request, err
	}
	if err := json.Unmarshal(b, &request); err != nil {
		return request, err
	}
	if err := s.validate.Struct(request); err != nil {
		return request, err
	}

	return request, nil
}

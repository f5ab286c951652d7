package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/episodarr/episodarr/pkg/machine"
	"github.com/episodarr/episodarr/pkg/show"
	"github.com/episodarr/episodarr/pkg/tracker"
	"github.com/episodarr/episodarr/pkg/tvmaze"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

type GenericResponse struct {
	Error    string `json:"error,omitempty"`
	Response any    `json:"response,omitempty"`
}

// Server houses all dependencies for the http api to work such as loggers and the tracker
type Server struct {
	baseLogger *zap.SugaredLogger
	tracker    *tracker.Tracker
	validate   *validator.Validate
}

// New creates a new api server
func New(logger *zap.SugaredLogger, tracker *tracker.Tracker) Server {
	return Server{
		baseLogger: logger,
		tracker:    tracker,
		validate:   validator.New(),
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, err error) error {
	return writeResponse(w, status, GenericResponse{
		Error: err.Error(),
	})
}

func writeResponse(w http.ResponseWriter, status int, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	w.Header().Set("content-type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}

	w.Write(b)
	return nil
}

// statusFor maps domain errors onto http status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, tracker.ErrShowNotTracked),
		errors.Is(err, show.ErrEpisodeNotFound),
		errors.Is(err, show.ErrSeasonNotFound),
		errors.Is(err, tvmaze.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tracker.ErrShowExists),
		errors.Is(err, machine.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, tracker.ErrEmptyQuery),
		errors.Is(err, tvmaze.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, tvmaze.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Serve starts the http server and is a blocking call
func (s Server) Serve(port int) error {
	rtr := mux.NewRouter()
	rtr.Use(s.LogMiddleware())
	rtr.HandleFunc("/healthz", s.Healthz()).Methods(http.MethodGet)

	api := rtr.PathPrefix("/api").Subrouter()

	v1 := api.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/search", s.SearchShows()).Methods(http.MethodGet)

	v1.HandleFunc("/shows", s.ListShows()).Methods(http.MethodGet)
	v1.HandleFunc("/shows", s.AddShow()).Methods(http.MethodPost)
	v1.HandleFunc("/shows/refresh", s.RefreshAll()).Methods(http.MethodPost)

	v1.HandleFunc("/shows/{id}", s.GetShow()).Methods(http.MethodGet)
	v1.HandleFunc("/shows/{id}", s.RemoveShow()).Methods(http.MethodDelete)
	v1.HandleFunc("/shows/{id}/refresh", s.RefreshShow()).Methods(http.MethodPost)
	v1.HandleFunc("/shows/{id}/watched", s.SetShowWatched()).Methods(http.MethodPut)
	v1.HandleFunc("/shows/{id}/seasons/{season}/watched", s.SetSeasonWatched()).Methods(http.MethodPut)
	v1.HandleFunc("/shows/{id}/episodes/{episodeID}/toggle", s.ToggleEpisode()).Methods(http.MethodPost)

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
	)(rtr)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: corsHandler,
	}

	go func() {
		s.baseLogger.Info("serving...", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil {
			s.baseLogger.Error(err.Error())
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()

	return srv.Shutdown(ctx)
}

// Healthz is an endpoint that can be used for probes
func (s Server) Healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := GenericResponse{
			Response: "ok",
		}
		writeResponse(w, http.StatusOK, response)
	}
}

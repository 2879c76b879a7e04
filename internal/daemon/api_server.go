package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"picker/internal/api"
	"picker/internal/config"
	"picker/internal/logging"
	"picker/internal/observability"
	"picker/internal/queue"
	"picker/internal/services"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	items  *api.ItemService
	router *mux.Router

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
		items:  d.Items(),
	}
	srv.router = srv.routes(cfg.API.CORSOrigins)
	srv.server = &http.Server{
		Handler:           srv.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes(origins []string) *mux.Router {
	r := mux.NewRouter()
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(s.logger))
	r.Use(mux.CORSMethodMiddleware(r))
	r.Use(corsMiddleware(origins))

	items := r.PathPrefix("/api/items").Subrouter()
	items.HandleFunc("/available", s.handleAvailable).Methods(http.MethodGet, http.MethodOptions)
	items.HandleFunc("/selected", s.handleSelected).Methods(http.MethodGet, http.MethodOptions)
	items.HandleFunc("/select", s.handleMutation(queue.OpSelect)).Methods(http.MethodPost, http.MethodOptions)
	items.HandleFunc("/deselect", s.handleMutation(queue.OpDeselect)).Methods(http.MethodPost, http.MethodOptions)
	items.HandleFunc("/add", s.handleMutation(queue.OpAdd)).Methods(http.MethodPost, http.MethodOptions)
	items.HandleFunc("/reorder", s.handleReorder).Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/flush/{lane}", s.handleFlush).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/batches", s.handleBatches).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/batches/{id}", s.handleBatch).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/events", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/logs", s.handleLogs).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_serve_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "restart the daemon"),
			)
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleAvailable(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.items.Available(s.pageQuery(r)))
}

func (s *apiServer) handleSelected(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.items.Selected(s.pageQuery(r)))
}

func (s *apiServer) pageQuery(r *http.Request) api.PageQuery {
	query := r.URL.Query()
	return api.ParsePageQuery(query.Get("offset"), query.Get("limit"), query.Get("filter"), s.items.Limits())
}

func (s *apiServer) handleMutation(opType queue.OpType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		id, err := api.DecodeID(body)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		resp, err := s.items.Mutate(r.Context(), opType, id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, resp)
	}
}

func (s *apiServer) handleReorder(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	order, err := api.DecodeOrder(body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	resp, err := s.items.Reorder(r.Context(), order)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, StatusDTO(s.daemon.Status(r.Context())))
}

func (s *apiServer) handleFlush(w http.ResponseWriter, r *http.Request) {
	lane, ok := queue.ParseLane(mux.Vars(r)["lane"])
	if !ok {
		s.writeError(w, http.StatusBadRequest, "lane must be fast or slow")
		return
	}
	flushed := s.daemon.Flush(r.Context(), lane)
	s.writeJSON(w, http.StatusOK, api.FlushResponse{Lane: string(lane), Flushed: flushed})
}

func (s *apiServer) handleBatches(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	lane := strings.TrimSpace(query.Get("lane"))
	if lane != "" {
		parsed, ok := queue.ParseLane(lane)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "lane must be fast or slow")
			return
		}
		lane = string(parsed)
	}
	batches, err := s.daemon.Batches(r.Context(), lane, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.BatchListResponse{Batches: api.FromJournalBatches(batches)})
}

func (s *apiServer) handleBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := s.daemon.Batch(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromJournalBatch(*batch))
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "api", "read body", "unreadable request body", err)
	}
	if len(body) > maxRequestBody {
		return nil, &api.ValidationError{Operation: "read body", Message: "Request body too large"}
	}
	return body, nil
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", logging.Error(err))
	}
	s.writeError(w, status, api.PublicMessage(err))
}

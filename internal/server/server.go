package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/paramstate/internal/config"
	"github.com/vango-dev/paramstate/internal/errors"
	"github.com/vango-dev/paramstate/internal/paramset"
	"github.com/vango-dev/paramstate/pkg/diag"
	"github.com/vango-dev/paramstate/pkg/history"
	"github.com/vango-dev/paramstate/pkg/param"
	"github.com/vango-dev/paramstate/pkg/reactive"
	"github.com/vango-dev/paramstate/pkg/storage"
)

const (
	// SessionCookie carries the session id between requests.
	SessionCookie = "paramstate_session"

	// SessionHeader may carry the session id instead of the cookie.
	SessionHeader = "X-Paramstate-Session"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 30 * time.Second

	// maxBodyBytes bounds POST bodies.
	maxBodyBytes = 64 << 10
)

// Options configures New.
type Options struct {
	// Config is the loaded configuration. Required.
	Config *config.Config

	// Store is the opened storage backend. Required.
	Store storage.Storage

	// Params is the compiled parameter set. Required.
	Params *paramset.Set

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Registry receives the metrics. A new registry is created when nil.
	Registry *prometheus.Registry
}

// Server serves one parameter set.
type Server struct {
	cfg    *config.Config
	store  storage.Storage
	params *paramset.Set
	logger *slog.Logger
	sink   diag.Sink

	metrics  *metrics
	registry *prometheus.Registry
	upgrader websocket.Upgrader
	router   chi.Router

	httpServer *http.Server

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// New builds the server and its routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    opts.Config,
		store:  opts.Store,
		params: opts.Params,
		logger: logger,
		conns:  make(map[*websocket.Conn]struct{}),
	}

	sinks := []diag.Sink{diag.NewLogger(logger), diag.NewTracing(diag.WithTracerName("paramstate/server"))}
	if s.cfg.Metrics.Enabled {
		s.registry = opts.Registry
		if s.registry == nil {
			s.registry = prometheus.NewRegistry()
		}
		s.metrics = newMetrics(s.cfg.Metrics.Namespace, s.registry)
		sinks = append(sinks, diag.NewMetrics(
			diag.WithNamespace(s.cfg.Metrics.Namespace),
			diag.WithRegistry(s.registry),
		))
	}
	s.sink = diag.Multi(sinks...)

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.instrument)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/params", s.handleGetParams)
	r.Post("/params/{name}", s.handleSetParam)
	r.Get("/live", s.handleLive)
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !stderrors.Is(err, http.ErrServerClosed) {
			return errors.New("E500").WithDetail("Could not listen on " + s.httpServer.Addr).Wrap(err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown closes live sessions, then stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// checkOrigin accepts the configured origins, or same-origin requests when
// none are configured.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(s.cfg.Server.AllowedOrigins) > 0 {
		return slices.Contains(s.cfg.Server.AllowedOrigins, origin)
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return r.Host != "" && u.Host == r.Host
}

// session resolves the request's session id, minting one when the request
// carries none or an invalid one. fresh reports a minted id.
func (s *Server) session(r *http.Request) (id string, fresh bool) {
	id = r.Header.Get(SessionHeader)
	if id == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		return uuid.NewString(), true
	}
	return id, false
}

func (s *Server) sessionCookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// sessionStore scopes the backend to one session.
func (s *Server) sessionStore(id string) storage.Storage {
	return storage.WithPrefix(s.store, s.cfg.Server.SessionPrefix+id+":")
}

// paramsResponse is the body of /params responses.
type paramsResponse struct {
	Session    string         `json:"session"`
	Location   string         `json:"location"`
	Navigation string         `json:"navigation,omitempty"`
	Values     map[string]any `json:"values"`
}

// requestLocation is the page location a /params request describes: the
// path from the "path" query key (default "/") and every other query key
// as the search.
func requestLocation(r *http.Request) history.Location {
	q := r.URL.Query()
	path := q.Get("path")
	if path == "" {
		path = "/"
	}
	q.Del("path")
	return history.Location{Path: path, Search: q.Encode()}
}

func (s *Server) handleGetParams(w http.ResponseWriter, r *http.Request) {
	defer reactive.ReleaseGoroutine()

	id, fresh := s.session(r)
	if fresh {
		http.SetCookie(w, s.sessionCookie(id))
	}

	h := history.NewMemory(requestLocation(r).String())
	p := s.params.Mount(s.sessionStore(id), h, s.sink)
	defer p.Close()
	p.Render()

	writeJSON(w, http.StatusOK, paramsResponse{
		Session:  id,
		Location: h.Location().String(),
		Values:   p.Values(),
	})
}

func (s *Server) handleSetParam(w http.ResponseWriter, r *http.Request) {
	defer reactive.ReleaseGoroutine()

	name := chi.URLParam(r, "name")
	if _, ok := s.params.Def(name); !ok {
		writeError(w, http.StatusNotFound, errors.New("E501").WithDetail("No parameter named "+name))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("E502").Wrap(err))
		return
	}
	value, err := s.params.Decode(name, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("E502").Wrap(err))
		return
	}

	id, fresh := s.session(r)
	if fresh {
		http.SetCookie(w, s.sessionCookie(id))
	}

	h := history.NewMemory(requestLocation(r).String())
	p := s.params.Mount(s.sessionStore(id), h, s.sink)
	defer p.Close()
	p.Render()

	// Only the write's own navigation is reported, not a migration's.
	var navigation string
	stop := h.Listen(func(_ history.Location, action history.Action) {
		navigation = action.String()
	})
	defer stop()

	if err := p.Set(name, value); err != nil {
		status := http.StatusBadRequest
		code := "E502"
		if stderrors.Is(err, param.ErrUnknownSlot) {
			status, code = http.StatusNotFound, "E501"
		}
		writeError(w, status, errors.New(code).Wrap(err))
		return
	}

	writeJSON(w, http.StatusOK, paramsResponse{
		Session:    id,
		Location:   h.Location().String(),
		Navigation: navigation,
		Values:     p.Values(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, e *errors.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, e.FormatJSON()+"\n")
}

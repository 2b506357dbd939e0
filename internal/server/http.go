package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/certprep/internal/auth"
	"github.com/gokatarajesh/certprep/internal/config"
	"github.com/gokatarajesh/certprep/internal/logging"
)

// NewWSUpgrader builds an upgrader that accepts the configured CORS origins.
// Requests without an Origin header (non-browser clients) are allowed.
func NewWSUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			wildcard = true
		}
		allowed[strings.ToLower(o)] = struct{}{}
	}

	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || wildcard {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil || u.Host == "" {
				return false
			}
			_, ok := allowed[strings.ToLower(u.Scheme+"://"+u.Host)]
			return ok
		},
	}
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Registrar mounts a feature's routes.
type Registrar interface {
	Register(mux *http.ServeMux)
}

// Routes holds the feature handlers mounted by NewHTTPServer. Nil entries
// are skipped.
type Routes struct {
	Sessions  Registrar
	Progress  Registrar
	SessionWS http.HandlerFunc
	History   http.HandlerFunc
	Auth      func(http.Handler) http.Handler
}

// NewHTTPServer wires base routes (health, metrics, ping) and the feature
// routes for the API service.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, checks []HealthCheck, routes Routes) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, check := range checks {
			if err := check(ctx); err != nil {
				reqLogger := logging.FromContext(r.Context())
				reqLogger.Error().Err(err).Msg("dependency ping failed")
				http.Error(w, "upstream error", http.StatusBadGateway)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	for _, reg := range []Registrar{routes.Sessions, routes.Progress} {
		if reg != nil {
			reg.Register(mux)
		}
	}
	if routes.SessionWS != nil {
		mux.HandleFunc("GET /ws/sessions/{id}", routes.SessionWS)
	}
	if routes.History != nil {
		mux.Handle("GET /v1/results", auth.RequireAuth(routes.History))
	}

	var handler http.Handler = mux
	if routes.Auth != nil {
		handler = routes.Auth(handler)
	}
	handler = cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	})(handler)
	handler = logging.Middleware(logger)(handler)

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

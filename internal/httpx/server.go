package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/metrics"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler is implemented by every route group.
type Handler interface {
	Register(r chi.Router)
}

func NewRouter(log *zap.Logger, service string, a *Authenticator, db Pinger, handlers ...Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(log), middleware.Recoverer)
	r.Use(metrics.Middleware(service))
	r.Use(middleware.Timeout(15 * time.Second))

	started := time.Now()
	r.Get("/healthz", health(db, started))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(a.Identify)
		for _, h := range handlers {
			h.Register(r)
		}
	})
	return r
}

type healthReport struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	Uptime    float64   `json:"uptime"`
	Error     string    `json:"error,omitempty"`
}

func health(db Pinger, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		rep := healthReport{Status: "ok", Timestamp: time.Now().UTC(), Database: "connected",
			Uptime: time.Since(started).Seconds()}
		if err := db.Ping(ctx); err != nil {
			logger.FromContext(r.Context()).Warn("health check failed", zap.Error(err))
			rep.Status, rep.Database, rep.Error = "error", "disconnected", "database connection failed"
			writeJSON(w, http.StatusServiceUnavailable, rep)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/logger"
)

// requestLogger attaches a logger carrying the request id to the context and logs one
// line per request once the response is written.
func requestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := base.With(zap.String("request_id", middleware.GetReqID(r.Context())))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), l)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			l.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr))
		})
	}
}

// Authenticator turns a bearer token into an auth.Identity on the request context.
type Authenticator struct {
	Tokens *auth.Tokens
}

// Identify attaches the identity when a valid bearer token is present. A malformed or
// expired token is rejected outright; no token at all is left for the route to decide.
func (a *Authenticator) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if h == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, r, apperr.Auth("invalid_token", "authorization header must be a bearer token"))
			return
		}
		id, err := a.Tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			logger.FromContext(r.Context()).Debug("token rejected", zap.Error(err))
			writeError(w, r, apperr.Auth("invalid_token", "token is invalid or expired"))
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			writeError(w, r, apperr.Auth("not_authenticated", "sign in required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, r, apperr.Auth("not_authenticated", "sign in required"))
			return
		}
		if !id.IsStaff() {
			writeError(w, r, apperr.Forbidden("insufficient role"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// identity is only called behind requireAuth or requireStaff.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

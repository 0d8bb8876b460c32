package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"quizdesk-service/internal/domain"
)

// TokenParser resolves a bearer token into a caller.
type TokenParser interface {
	Parse(token string) (*domain.Caller, error)
}

type callerCtxKey struct{}

// withCaller attaches the bearer token's caller to the request context. Requests without a token
// stay anonymous; a token that does not verify is rejected rather than downgraded.
func withCaller(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearerToken(r)
			if tok == "" {
				next.ServeHTTP(w, r)
				return
			}
			caller, err := tokens.Parse(tok)
			if err != nil {
				returnHTTPMessage(w, http.StatusUnauthorized, "error", "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerCtxKey{}, caller)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	// browsers cannot set headers on websocket upgrades
	if r.URL.Path == "/ws/play" {
		return r.URL.Query().Get("token")
	}
	return ""
}

// callerFrom returns nil for anonymous requests.
func callerFrom(r *http.Request) *domain.Caller {
	c, _ := r.Context().Value(callerCtxKey{}).(*domain.Caller)
	return c
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// accessLog logs one line per request. Websocket upgrades are passed through untouched because
// the upgrader needs the original http.Hijacker.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			log.WithFields(log.Fields{"path": r.URL.Path, "duration": time.Since(start)}).Debug("websocket closed")
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Info("request")
	})
}

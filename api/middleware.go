package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"
)

// OperatorName is the identity attached to requests carrying the admin token
const OperatorName = "operator"

var authenticator auth.Authenticator
var cache store.Cache

// TokenAuth validates bearer tokens against the configured admin token
type TokenAuth struct {
	Token string
}

// Middleware adds bearer token authentication around accessing the routes
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authenticator == nil {
			unauthorized(w, r)
			return
		}
		user, err := authenticator.Authenticate(r)
		if err != nil {
			unauthorized(w, r)
			return
		}
		zap.S().Debugw("request authenticated", "user", user.UserName(), "requestId", w.Header().Get(RequestIDHeader))
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	zap.S().Warnw("unauthorized", "url", r.URL.String())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error": "unauthorized"}`))
}

// SetupGoGuardian sets up the go-guardian middleware. Validated tokens are
// cached for an hour.
func (t TokenAuth) SetupGoGuardian() {
	authenticator = auth.New()
	cache = store.NewFIFO(context.Background(), time.Hour)
	tokenStrategy := bearer.New(t.ValidateToken, cache)

	authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
}

// ValidateToken compares token with the configured admin token. An empty
// configured token rejects everything.
func (t TokenAuth) ValidateToken(ctx context.Context, r *http.Request, token string) (auth.Info, error) {
	if t.Token == "" {
		return nil, errors.New("admin api token is not configured")
	}

	tokenHash := sha256.Sum256([]byte(token))
	expectedHash := sha256.Sum256([]byte(t.Token))
	if subtle.ConstantTimeCompare(tokenHash[:], expectedHash[:]) != 1 {
		return nil, errors.New("invalid token")
	}
	return auth.NewDefaultUser(OperatorName, "1", nil, nil), nil
}

// RequestIDHeader carries the id assigned to every ops request
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags each request with a fresh id and logs its outcome
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.New().String()
		w.Header().Set(RequestIDHeader, requestID)

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		zap.S().Infow("ops request",
			"requestId", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

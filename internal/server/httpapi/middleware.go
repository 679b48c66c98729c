package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/unrolled/secure"
)

type ctxKey string

const (
	userIDKey      ctxKey = "user_id"
	accessTokenKey ctxKey = "access_token"
	sessionKey     ctxKey = "session"
)

// Authenticator resolves a bearer access token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (string, models.TokenPair, error)
}

// UserIDFromContext returns the user id stored by AuthGate.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// AccessTokenFromContext returns the bearer token AuthGate or BearerGate
// extracted.
func AccessTokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(accessTokenKey).(string)
	return tok
}

// SessionFromContext returns the stored pair AuthGate matched the token against.
func SessionFromContext(ctx context.Context) (models.TokenPair, bool) {
	p, ok := ctx.Value(sessionKey).(models.TokenPair)
	return p, ok
}

// AuthGate admits a request only if its Authorization header carries a
// current access token.
func AuthGate(auth Authenticator, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeError(w, r, logger, err)
				return
			}

			userID, pair, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, r, logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, accessTokenKey, token)
			ctx = context.WithValue(ctx, sessionKey, pair)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerGate only requires a well-formed bearer header and stores the token
// for the handler. The token is not checked against the stored session, so
// the refresh flow can see a stale token and revoke the session.
func BearerGate(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeError(w, r, logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), accessTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var (
	errMissingAuthHeader = fmt.Errorf("%w: missing authorization header", common.ErrUnauthenticated)
	errMalformedHeader   = fmt.Errorf("%w: invalid authorization header format", common.ErrUnauthenticated)
)

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(common.AuthorizationHeaderName)
	if header == "" {
		return "", errMissingAuthHeader
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", errMalformedHeader
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", errMalformedHeader
	}
	return token, nil
}

// requestLogger logs one line per request.
func requestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			r = r.WithContext(logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context())))
			next.ServeHTTP(ww, r)

			logger.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

// secureHeaders sets the usual API hardening headers.
func secureHeaders(logger logging.Logger) func(http.Handler) http.Handler {
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'",
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sm.Process(w, r); err != nil {
				logger.Warn(r.Context(), "secure headers blocked request", "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

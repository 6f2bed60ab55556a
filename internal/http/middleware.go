package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	applog "finanzas/internal/log"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	accountKey   contextKey = "account"
)

// localAccount is used when authentication is off and no X-Account header
// is sent.
const localAccount = "local"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// withTrace assigns a request ID, puts a request-scoped logger in the
// context and logs the start and end of every request.
func (s *Server) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		id := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		ctx = context.WithValue(ctx, applog.LoggerContextKey, s.logger.With(applog.FieldRequestID, id))
		r = r.WithContext(ctx)

		atomic.AddInt64(&s.totalRequests, 1)
		s.structured.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			applog.FromContext(ctx).WarnContext(ctx, "Suspicious request",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.Header.Get("User-Agent"))
		}

		w.Header().Set("X-Request-ID", id)
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.structured.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		applySecurityHeaders(w, r)
		next.ServeHTTP(w, r)
	})
}

// withRateLimit throttles every method except GET and HEAD per client IP.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		clientIP := extractClientIP(r)
		if !s.rateLimiter.allow(clientIP, s.now(), s.metrics) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").
				Header("Retry-After", "60").
				Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAccount resolves the account key. With a JWT secret configured the
// key is the subject of an HS256 bearer token; otherwise it is the
// X-Account header, or the local account.
func (s *Server) withAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var account string
		if len(s.jwtSecret) > 0 {
			sub, err := s.parseToken(r)
			if err != nil {
				atomic.AddInt64(&s.metrics.authFailures, 1)
				applog.FromContext(r.Context()).WarnContext(r.Context(), "Authentication failed",
					applog.FieldError, err)
				UnauthorizedError(err.Error()).Write(w)
				return
			}
			account = sub
		} else {
			account = sanitizeInput(r.Header.Get("X-Account"))
			if account == "" {
				account = localAccount
			}
		}

		if !validAccount(account) {
			BadRequestError("invalid account key").Write(w)
			return
		}

		ctx := context.WithValue(r.Context(), accountKey, account)
		ctx = context.WithValue(ctx, applog.LoggerContextKey, applog.FromContext(ctx).With(applog.FieldAccount, account))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
)

func (s *Server) parseToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingToken
	}
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", errInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing subject", errInvalidToken)
	}
	return sub, nil
}

func accountFrom(ctx context.Context) string {
	if account, ok := ctx.Value(accountKey).(string); ok {
		return account
	}
	return localAccount
}

package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"diagramsync/pkg/auth"
	"diagramsync/pkg/common"

	"go.uber.org/zap"
)

// Headers set by the Lambda entrypoint once API Gateway's authorizer has
// validated the caller
const (
	HeaderGatewayAuthorized = "X-API-Gateway-Authorized"
	HeaderGatewayIdentity   = "X-User-ID"
	HeaderGatewayName       = "X-User-Name"
)

// Authenticate validates a bearer token when one is present and stores the
// identity in the request context. validator may be nil, which makes every
// request anonymous. With requireAuth, requests without a valid token are rejected.
func Authenticate(validator *auth.JWTValidator, requireAuth bool, requestsPerMinute int, logger *zap.Logger) func(next http.Handler) http.Handler {
	ipLimiter := auth.NewIPRateLimiter(requestsPerMinute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)

			allowed, err := ipLimiter.Allow(r.Context(), clientIP)
			if err != nil {
				logger.Error("Rate limiter error", zap.Error(err))
				respondWithError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if !allowed {
				respondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			token := extractToken(r)
			if token == "" || validator == nil {
				if requireAuth {
					respondUnauthorized(w, "Missing authentication token")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("ip", clientIP),
					zap.String("path", r.URL.Path),
				)

				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					respondUnauthorized(w, "Token has expired")
				case errors.Is(err, auth.ErrInvalidSignature):
					respondUnauthorized(w, "Invalid token signature")
				default:
					respondUnauthorized(w, "Invalid token")
				}
				return
			}

			logger.Debug("Request authenticated",
				zap.String("identity", claims.Identity),
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
			)

			ctx := common.WithIdentity(r.Context(), claims.Identity, claims.Name())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthenticateForLambda trusts the identity headers the Lambda entrypoint
// sets after API Gateway has validated the caller
func AuthenticateForLambda(requestsPerMinute int) func(next http.Handler) http.Handler {
	ipLimiter := auth.NewIPRateLimiter(requestsPerMinute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, _ := ipLimiter.Allow(r.Context(), getClientIP(r))
			if !allowed {
				respondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			if r.Header.Get(HeaderGatewayAuthorized) != "true" {
				respondUnauthorized(w, "Request not authorized by API Gateway")
				return
			}
			identity := r.Header.Get(HeaderGatewayIdentity)
			if identity == "" {
				respondUnauthorized(w, "Missing user context from API Gateway")
				return
			}

			ctx := common.WithIdentity(r.Context(), identity, r.Header.Get(HeaderGatewayName))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken extracts the JWT token from multiple sources
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
		return authHeader
	}

	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}

	return r.URL.Query().Get("token")
}

// getClientIP extracts the client IP address
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

// respondUnauthorized sends an unauthorized response
func respondUnauthorized(w http.ResponseWriter, message string) {
	respondWithError(w, http.StatusUnauthorized, message)
}

// respondWithError sends an error response with a specific status code
func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    code,
	})
}

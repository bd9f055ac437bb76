package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/logger"
	"github.com/sebuszqo/FinanceTracker/internal/user"
)

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// UserLookup confirms that a token's subject still exists.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*user.User, error)
}

type Middleware struct {
	jwtManager *JWTManager
	users      UserLookup
	log        zerolog.Logger
}

// NewMiddleware builds the access token middleware. users may be nil to skip the lookup.
func NewMiddleware(jwtManager *JWTManager, users UserLookup, log zerolog.Logger) *Middleware {
	return &Middleware{jwtManager: jwtManager, users: users, log: log}
}

// JWTAccessTokenMiddleware puts the authenticated user ID into the request context under "userID"
// and tags the request logger with it.
func (m *Middleware) JWTAccessTokenMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "Authorization header is required")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeJSONError(w, http.StatusUnauthorized, "Invalid token format")
				return
			}

			reqLog := logger.FromContextOr(r.Context(), m.log)
			userID, err := m.jwtManager.ValidateAccessToken(tokenString)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			if m.users != nil {
				if _, err := m.users.GetUserByID(r.Context(), userID); err != nil {
					if errors.Is(err, user.ErrUserNotFound) {
						writeJSONError(w, http.StatusUnauthorized, user.ErrUserNotFound.Error())
						return
					}
					reqLog.Error().Err(err).Str("user_id", userID).Msg("Failed to look up token subject")
					writeJSONError(w, http.StatusInternalServerError, "Internal server error")
					return
				}
			}

			ctx := context.WithValue(r.Context(), "userID", userID)
			ctx = logger.WithContext(ctx, reqLog.With().Str("user_id", userID).Logger())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Status:  "error",
		Message: message,
	})
}

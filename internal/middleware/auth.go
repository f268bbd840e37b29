package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/egov-portal/reserve-service/internal/auth"
	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/egov-portal/reserve-service/pkg/jwt"
	"github.com/egov-portal/reserve-service/pkg/logger"
	"go.uber.org/zap"
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string) (*jwt.CustomClaims, error)
}

func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, models.ErrorCodeMissingToken, "Missing authorization header")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader || strings.TrimSpace(tokenString) == "" {
				writeAuthError(w, models.ErrorCodeInvalidToken, "Invalid authorization header format")
				return
			}

			claims, err := validator.ValidateToken(r.Context(), tokenString)
			if err != nil {
				logger.Debug("Token validation failed",
					zap.String("error", err.Error()),
					zap.String("path", r.URL.Path),
				)
				switch {
				case errors.Is(err, jwt.ErrTokenRevoked):
					writeAuthError(w, models.ErrorCodeTokenRevoked, "Token has been revoked")
				case errors.Is(err, jwt.ErrMissingSubject):
					writeAuthError(w, models.ErrorCodeMissingUserID, "Token has no subject")
				default:
					writeAuthError(w, models.ErrorCodeTokenSignature, "Invalid token")
				}
				return
			}

			userCtx := &auth.UserContext{
				UserID:   claims.Subject,
				Username: claims.Username,
				Roles:    claims.Roles,
				IsAdmin:  claims.HasRole(models.RoleAdmin),
			}

			ctx := auth.WithUser(r.Context(), userCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: code, Message: message})
}

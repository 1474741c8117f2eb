package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"post-reorder-backend/pkg/models"
	"post-reorder-backend/pkg/utils"

	"go.uber.org/zap"
)

// ContextKey 用于在context中存储用户信息的键
type ContextKey string

const (
	UserContextKey ContextKey = "user"
)

// SessionCookieName carries the session token for browser requests.
const SessionCookieName = "reorder_session"

// TokenValidator resolves a session token to its principal.
type TokenValidator interface {
	ExtractUserFromToken(token string) (*models.User, error)
}

// AuthMiddleware JWT认证中间件: Bearer header first, then the session cookie.
func AuthMiddleware(tokens TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := sessionToken(r)
			if err != nil {
				logger.Debug("auth: no session", zap.String("path", r.URL.Path), zap.Error(err))
				utils.WriteUnauthorizedResponse(w, err.Error())
				return
			}

			user, err := tokens.ExtractUserFromToken(tokenString)
			if err != nil {
				logger.Debug("auth: token rejected", zap.String("path", r.URL.Path), zap.Error(err))
				utils.WriteUnauthorizedResponse(w, "Invalid token: "+err.Error())
				return
			}

			recordPrincipal(r.Context(), user.ID)
			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			return "", fmt.Errorf("Invalid authorization header format")
		}
		return tokenString, nil
	}
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", fmt.Errorf("Missing authorization header")
}

// RequireCapability rejects principals that lack capability.
func RequireCapability(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUserFromContext(r.Context())
			if !ok || !user.Can(capability) {
				utils.WriteForbiddenResponse(w, fmt.Sprintf("The %q capability is required", capability))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext 从context中获取用户信息
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}

// RequireUser 要求用户必须已认证的辅助函数
func RequireUser(ctx context.Context) (*models.User, error) {
	user, ok := GetUserFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("user not authenticated")
	}
	return user, nil
}

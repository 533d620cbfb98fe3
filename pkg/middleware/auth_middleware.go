package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace-service/internal/auth"
	"marketplace-service/internal/domain"
	stderrors "marketplace-service/pkg/errors"
)

const (
	UserIDContextKey = "user_id"
	RoleContextKey   = "role"
)

// AuthMiddleware validates the bearer token and puts the actor id and role in the context.
func AuthMiddleware(jwtManager *auth.JWTManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("Missing authorization header",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, stderrors.NewUnauthorized("missing authorization header", "Header: Authorization"))
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, stderrors.NewUnauthorized("invalid authorization header format", "Expected: Bearer <token>"))
			return
		}

		claims, err := jwtManager.ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, stderrors.NewUnauthorized("token expired", "Token has expired, please login again"))
				return
			}
			logger.Warn("Invalid token",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, stderrors.NewUnauthorized("invalid token", err.Error()))
			return
		}

		c.Set(UserIDContextKey, claims.Subject)
		c.Set(RoleContextKey, claims.Role)

		c.Next()
	}
}

// RequireRole rejects actors whose token carries a different role.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(RoleContextKey) != string(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, stderrors.NewForbidden("Required role: "+string(role)))
			return
		}
		c.Next()
	}
}

// Actor returns the authenticated user id and role set by AuthMiddleware.
func Actor(c *gin.Context) (uuid.UUID, domain.Role, bool) {
	id, err := uuid.Parse(c.GetString(UserIDContextKey))
	if err != nil {
		return uuid.Nil, "", false
	}
	role, err := domain.ToRole(c.GetString(RoleContextKey))
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, role, true
}

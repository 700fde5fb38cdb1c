package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskapp/backend/internal/model"
	"github.com/taskapp/backend/internal/service"
)

const (
	authUserKey  = "auth_user"
	authTokenKey = "auth_token"
)

// AuthMiddleware is the auth gate. It pulls the bearer token from the
// Authorization header (or the auth query parameter, for requests that
// cannot set headers, like embedded images), verifies it and attaches the
// resolved user plus the raw token to the context. Every failure mode gets
// the same 401 body.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token := c.Query("auth")
		if token == "" {
			header := c.GetHeader("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				abortUnauthorized(c)
				return
			}
			token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
		if token == "" {
			abortUnauthorized(c)
			return
		}

		user, err := authService.Verify(c.Request.Context(), token)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(authUserKey, user)
		c.Set(authTokenKey, token)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
	c.Abort()
}

func GetAuthUser(c *gin.Context) *model.User {
	if value, ok := c.Get(authUserKey); ok {
		if user, ok := value.(*model.User); ok {
			return user
		}
	}
	return nil
}

func GetAuthToken(c *gin.Context) string {
	if value, ok := c.Get(authTokenKey); ok {
		if token, ok := value.(string); ok {
			return token
		}
	}
	return ""
}

func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := originMap[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

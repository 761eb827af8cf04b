package api

import (
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"

	"github.com/campushub/backend/internal/domain"
)

const ctxIdentity = "identity"

// WithIdentity resolves the signed-in user for every request. With an auth
// client present it verifies the Firebase ID token from the Authorization
// header; without one (local development against the memory store) it accepts
// identity headers directly.
func WithIdentity(authClient *auth.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authClient != nil {
			token := extractToken(c)
			if token == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing authorization token"})
				c.Abort()
				return
			}
			decoded, err := authClient.VerifyIDToken(c.Request.Context(), token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
				c.Abort()
				return
			}
			id := domain.Identity{}
			if email, ok := decoded.Claims["email"].(string); ok {
				id.Email = email
			}
			if name, ok := decoded.Claims["name"].(string); ok {
				id.DisplayName = name
			}
			if picture, ok := decoded.Claims["picture"].(string); ok {
				id.AvatarURL = picture
			}
			if id.Email == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "token has no email"})
				c.Abort()
				return
			}
			c.Set(ctxIdentity, id)
			c.Next()
			return
		}

		email := strings.TrimSpace(c.GetHeader("X-User-Email"))
		if email == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing identity"})
			c.Abort()
			return
		}
		c.Set(ctxIdentity, domain.Identity{
			Email:       email,
			DisplayName: c.GetHeader("X-User-Name"),
			AvatarURL:   c.GetHeader("X-User-Photo"),
		})
		c.Next()
	}
}

// CurrentIdentity returns the identity set by WithIdentity.
func CurrentIdentity(c *gin.Context) domain.Identity {
	if v, ok := c.Get(ctxIdentity); ok {
		if id, ok := v.(domain.Identity); ok {
			return id
		}
	}
	return domain.Identity{}
}

func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}

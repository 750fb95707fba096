package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"backoffice/internal/domain"
)

const (
	userIDKey   = "userID"
	userRoleKey = "userRole"
)

// Actor identifies the admin behind a request. With a secret it requires an
// HS256 bearer token carrying user_id and role claims; without one it trusts
// the X-Actor-ID and X-Actor-Role headers (local development only).
func Actor(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		if secret == "" {
			id, _ := strconv.ParseInt(strings.TrimSpace(c.GetHeader("X-Actor-ID")), 10, 64)
			c.Set(userIDKey, domain.ID(id))
			c.Set(userRoleKey, strings.TrimSpace(c.GetHeader("X-Actor-Role")))
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing bearer token"})
			return
		}
		id, role, err := parseToken(strings.TrimSpace(raw), key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: " + err.Error()})
			return
		}
		c.Set(userIDKey, id)
		c.Set(userRoleKey, role)
		c.Next()
	}
}

func parseToken(raw string, key []byte) (domain.ID, string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return 0, "", fmt.Errorf("invalid token")
	}
	id, ok := claims["user_id"].(float64)
	if !ok || id <= 0 {
		return 0, "", fmt.Errorf("token has no user_id")
	}
	role, _ := claims["role"].(string)
	return domain.ID(id), role, nil
}

// GetActor returns the identity Actor stored on the context.
func GetActor(c *gin.Context) domain.RequestContext {
	rc := domain.RequestContext{RequestID: GetRequestID(c)}
	if v, ok := c.Get(userIDKey); ok {
		rc.UserID, _ = v.(domain.ID)
	}
	rc.Role = c.GetString(userRoleKey)
	return rc
}

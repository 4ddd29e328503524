package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/models"
)

const (
	ContextUserID    = "user_id"
	ContextSessionID = "session_id"
)

// Claims is the JWT payload issued by the auth service.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// OptionalAuth resolves the caller's identity if a bearer token is present.
// Requests without a token proceed as guests; requests with an invalid token
// are rejected.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		claims, err := parseToken(token, secret)
		if err != nil {
			errors.HandleError(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Next()
	}
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			errors.HandleError(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		claims, err := parseToken(token, secret)
		if err != nil {
			errors.HandleError(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Next()
	}
}

// RequireAdmin allows only tokens carrying the admin role.
func RequireAdmin(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			errors.HandleError(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		claims, err := parseToken(token, secret)
		if err != nil || claims.Role != "admin" {
			errors.HandleError(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Next()
	}
}

func parseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

// ResolveSession records the guest session header so handlers can build an
// owner key regardless of auth state.
func ResolveSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessionID := c.GetHeader("X-Session-ID"); sessionID != "" {
			c.Set(ContextSessionID, sessionID)
		}
		c.Next()
	}
}

// OwnerFromContext builds the cart owner key: an authenticated user id wins
// over a guest session id.
func OwnerFromContext(c *gin.Context) models.OwnerKey {
	if userID := c.GetString(ContextUserID); userID != "" {
		return models.OwnerKey{UserID: userID}
	}
	return models.OwnerKey{SessionID: c.GetString(ContextSessionID)}
}

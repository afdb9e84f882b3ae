package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/krishimitra/krishimitra-api/internal/config"
)

// VerifyTokenMiddleware verifies the JWT token provided in the Authorization header.
func VerifyTokenMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		tokenString = strings.TrimSpace(tokenString)

		deviceID, err := ParseAccessToken(tokenString, cfg.EnvVars.JwtSecretKey)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("device_id", deviceID)
		c.Next()
	}
}

// ParseAccessToken validates an access token and returns the device ID it
// was minted for. The voice WebSocket route reuses this for its query-param
// token, where the Authorization header is unavailable.
func ParseAccessToken(tokenString, secretKey string) (uint, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return 0, jwt.ErrTokenUnverifiable
	}

	// Ensure this is an access token, not a refresh token
	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "access" {
		return 0, jwt.ErrTokenInvalidClaims
	}

	// Type assert to float64 (default for JSON numbers)
	idFloat, ok := claims["device_id"].(float64)
	if !ok {
		return 0, jwt.ErrTokenInvalidClaims
	}
	return uint(idFloat), nil
}

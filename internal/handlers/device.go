package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/krishimitra/krishimitra-api/internal/logger"
	"github.com/krishimitra/krishimitra-api/internal/service"
	"github.com/krishimitra/krishimitra-api/internal/util"
	"go.uber.org/zap"
)

// DeviceHandler is the handler for device-related requests.
type DeviceHandler struct {
	Service *service.DeviceService
}

// NewDeviceHandler is the constructor function for initializing a new DeviceHandler.
func NewDeviceHandler(deviceService *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{Service: deviceService}
}

// RegisterDevice registers an anonymous device and returns its credentials.
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	var req struct {
		Locale      string `json:"locale"`
		VoiceGender string `json:"voice_gender"`
	}
	// All fields are optional; an empty body registers with defaults.
	_ = c.ShouldBindJSON(&req)

	device, secret, err := h.Service.RegisterDevice(req.Locale, req.VoiceGender)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accessToken, err := generateAccessToken(device.ID, h.Service.Cfg.EnvVars.JwtSecretKey)
	if err != nil {
		logger.Get().Error("failed to generate access token on registration", zap.Uint("device_id", device.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access token"})
		return
	}
	refreshToken, err := generateRefreshToken(device.ID, h.Service.Cfg.EnvVars.JwtSecretKey)
	if err != nil {
		logger.Get().Error("failed to generate refresh token on registration", zap.Uint("device_id", device.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"device_secret": secret,
		"device":        service.ToDeviceResponse(device),
	})
}

// Login re-authenticates a device with its stored secret and issues a new
// token pair. Used when the refresh token has expired.
func (h *DeviceHandler) Login(c *gin.Context) {
	var req struct {
		DeviceUID    string `json:"device_id" binding:"required"`
		DeviceSecret string `json:"device_secret" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id and device_secret are required"})
		return
	}

	device, err := h.Service.AuthenticateDevice(req.DeviceUID, req.DeviceSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid device credentials"})
		return
	}

	accessToken, err := generateAccessToken(device.ID, h.Service.Cfg.EnvVars.JwtSecretKey)
	if err != nil {
		logger.Get().Error("failed to generate access token on login", zap.Uint("device_id", device.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access token"})
		return
	}
	refreshToken, err := generateRefreshToken(device.ID, h.Service.Cfg.EnvVars.JwtSecretKey)
	if err != nil {
		logger.Get().Error("failed to generate refresh token on login", zap.Uint("device_id", device.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"device":        service.ToDeviceResponse(device),
	})
}

// GetMe returns the authenticated device's profile.
func (h *DeviceHandler) GetMe(c *gin.Context) {
	device, err := util.GetDeviceFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"device": service.ToDeviceResponse(device)})
}

// UpdateSettings updates the authenticated device's preferences.
func (h *DeviceHandler) UpdateSettings(c *gin.Context) {
	deviceID, err := util.GetDeviceIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Locale       string `json:"locale" binding:"required"`
		VoiceGender  string `json:"voice_gender" binding:"required"`
		AlwaysListen bool   `json:"always_listen"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "locale and voice_gender are required"})
		return
	}

	if err := h.Service.UpdateSettings(deviceID, req.Locale, req.VoiceGender, req.AlwaysListen); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings updated"})
}

// generateAccessToken generates a short-lived JWT access token for a device.
func generateAccessToken(deviceID uint, secretKey string) (string, error) {
	claims := jwt.MapClaims{
		"device_id": deviceID,
		"exp":       time.Now().Add(15 * time.Minute).Unix(),
		"iat":       time.Now().Unix(),
		"type":      "access",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("generateAccessToken: %v", err)
	}
	return tokenString, nil
}

// generateRefreshToken generates a long-lived JWT refresh token for a device.
func generateRefreshToken(deviceID uint, secretKey string) (string, error) {
	claims := jwt.MapClaims{
		"device_id": deviceID,
		"exp":       time.Now().Add(30 * 24 * time.Hour).Unix(),
		"iat":       time.Now().Unix(),
		"type":      "refresh",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("generateRefreshToken: %v", err)
	}
	return tokenString, nil
}

// RefreshToken validates a refresh token and issues a new token pair.
func (h *DeviceHandler) RefreshToken(c *gin.Context) {
	var request struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(request.RefreshToken, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(h.Service.Cfg.EnvVars.JwtSecretKey), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		return
	}

	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "refresh" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token type"})
		return
	}

	idFloat, ok := claims["device_id"].(float64)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid device_id in token"})
		return
	}
	deviceID := uint(idFloat)

	accessToken, err := generateAccessToken(deviceID, h.Service.Cfg.EnvVars.JwtSecretKey)
	if err != nil {
		logger.Get().Error("failed to generate access token on refresh", zap.Uint("device_id", deviceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access token"})
		return
	}
	refreshToken, err := generateRefreshToken(deviceID, h.Service.Cfg.EnvVars.JwtSecretKey)
	if err != nil {
		logger.Get().Error("failed to generate refresh token on refresh", zap.Uint("device_id", deviceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": accessToken, "refresh_token": refreshToken})
}

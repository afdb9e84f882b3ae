package handlers

import (
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/gin-gonic/gin"
	"github.com/krishimitra/krishimitra-api/internal/util"
	"github.com/krishimitra/krishimitra-api/internal/weather"
)

// WeatherHandler is the handler for weather and location requests.
type WeatherHandler struct {
	Client   *weather.Client
	Geocoder *weather.Geocoder
}

// NewWeatherHandler is the constructor function for initializing a new WeatherHandler.
func NewWeatherHandler(client *weather.Client, geocoder *weather.Geocoder) *WeatherHandler {
	return &WeatherHandler{Client: client, Geocoder: geocoder}
}

// GetForecast returns the normalized multi-day forecast for a place name.
func (h *WeatherHandler) GetForecast(c *gin.Context) {
	if _, err := util.GetDeviceIDFromContext(c); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	place := c.Query("place")
	if place == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "place is required"})
		return
	}

	forecast, err := h.Client.GetForecast(c.Request.Context(), place)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forecast": forecast})
}

// ReverseGeocode resolves coordinates to a district.
func (h *WeatherHandler) ReverseGeocode(c *gin.Context) {
	if _, err := util.GetDeviceIDFromContext(c); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if !govalidator.IsLatitude(latStr) || !govalidator.IsLongitude(lonStr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid lat and lon are required"})
		return
	}
	lat, _ := govalidator.ToFloat(latStr)
	lon, _ := govalidator.ToFloat(lonStr)

	location, err := h.Geocoder.Reverse(c.Request.Context(), lat, lon)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": location})
}

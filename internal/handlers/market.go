package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/krishimitra/krishimitra-api/internal/market"
	"github.com/krishimitra/krishimitra-api/internal/util"
)

// MarketHandler is the handler for mandi price requests.
type MarketHandler struct {
	Client *market.Client
}

// NewMarketHandler is the constructor function for initializing a new MarketHandler.
func NewMarketHandler(client *market.Client) *MarketHandler {
	return &MarketHandler{Client: client}
}

// GetPrices returns recent mandi prices filtered by state and commodity.
func (h *MarketHandler) GetPrices(c *gin.Context) {
	if _, err := util.GetDeviceIDFromContext(c); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	state := c.Query("state")
	commodity := c.Query("commodity")
	if state == "" && commodity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state or commodity is required"})
		return
	}

	records, err := h.Client.GetPrices(c.Request.Context(), state, commodity)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

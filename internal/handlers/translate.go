package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/krishimitra/krishimitra-api/internal/translate"
	"github.com/krishimitra/krishimitra-api/internal/util"
)

// TranslateHandler is the handler for translation requests.
type TranslateHandler struct {
	Client *translate.Client
}

// NewTranslateHandler is the constructor function for initializing a new TranslateHandler.
func NewTranslateHandler(client *translate.Client) *TranslateHandler {
	return &TranslateHandler{Client: client}
}

var translateTargets = map[string]bool{"en": true, "hi": true, "mr": true}

// Translate returns the text in the requested target language. Translation
// is best effort: a provider failure returns the input unchanged rather
// than an error.
func (h *TranslateHandler) Translate(c *gin.Context) {
	if _, err := util.GetDeviceIDFromContext(c); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Text   string `json:"text" binding:"required"`
		Target string `json:"target" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text and target are required"})
		return
	}
	if !translateTargets[req.Target] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target must be one of en, hi, mr"})
		return
	}

	translated := h.Client.Translate(c.Request.Context(), req.Text, req.Target)
	c.JSON(http.StatusOK, gin.H{"translated": translated})
}

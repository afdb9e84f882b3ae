package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/krishimitra/krishimitra-api/internal/service"
	"github.com/krishimitra/krishimitra-api/internal/util"
)

// SchemeHandler is the handler for government-scheme requests.
type SchemeHandler struct {
	Service *service.SchemeService
}

// NewSchemeHandler is the constructor function for initializing a new SchemeHandler.
func NewSchemeHandler(schemeService *service.SchemeService) *SchemeHandler {
	return &SchemeHandler{Service: schemeService}
}

// ExplainScheme streams a scheme explanation as server-sent events. Each
// completion fragment is one "delta" event; a final "done" event carries
// the full text.
func (h *SchemeHandler) ExplainScheme(c *gin.Context) {
	if _, err := util.GetDeviceIDFromContext(c); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	schemeName := c.Param("name")
	language := c.DefaultQuery("language", "en")

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	deltas := make(chan string, 16)
	errCh := make(chan error, 1)
	go func() {
		_, err := h.Service.ExplainScheme(c.Request.Context(), schemeName, language, func(d string) {
			deltas <- d
		})
		close(deltas)
		errCh <- err
	}()

	c.Stream(func(w io.Writer) bool {
		if delta, ok := <-deltas; ok {
			c.SSEvent("delta", delta)
			return true
		}
		if err := <-errCh; err != nil {
			c.SSEvent("error", err.Error())
		} else {
			c.SSEvent("done", "")
		}
		return false
	})
}

// RecommendSchemes returns scheme recommendations for a farmer profile.
func (h *SchemeHandler) RecommendSchemes(c *gin.Context) {
	if _, err := util.GetDeviceIDFromContext(c); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var profile service.FarmerProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a farmer profile is required"})
		return
	}

	recommendation, err := h.Service.RecommendSchemes(c.Request.Context(), profile)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendation": recommendation})
}

// CreateBookmark saves a scheme for the device.
func (h *SchemeHandler) CreateBookmark(c *gin.Context) {
	deviceID, err := util.GetDeviceIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		SchemeName string `json:"scheme_name" binding:"required"`
		Note       string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scheme_name is required"})
		return
	}

	bookmark, err := h.Service.BookmarkScheme(deviceID, req.SchemeName, req.Note)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmark": bookmark})
}

// ListBookmarks lists the device's saved schemes.
func (h *SchemeHandler) ListBookmarks(c *gin.Context) {
	deviceID, err := util.GetDeviceIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookmarks, err := h.Service.ListBookmarks(deviceID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": bookmarks})
}

// DeleteBookmark removes a saved scheme.
func (h *SchemeHandler) DeleteBookmark(c *gin.Context) {
	deviceID, err := util.GetDeviceIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookmarkID, err := parseUintParam(c.Param("bookmark_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bookmark id"})
		return
	}

	if err := h.Service.DeleteBookmark(deviceID, bookmarkID); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bookmark deleted"})
}

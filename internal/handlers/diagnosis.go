package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/krishimitra/krishimitra-api/internal/service"
	"github.com/krishimitra/krishimitra-api/internal/util"
)

// DiagnosisHandler is the handler for pest-diagnosis requests.
type DiagnosisHandler struct {
	Service *service.DiagnosisService
}

// NewDiagnosisHandler is the constructor function for initializing a new DiagnosisHandler.
func NewDiagnosisHandler(diagnosisService *service.DiagnosisService) *DiagnosisHandler {
	return &DiagnosisHandler{Service: diagnosisService}
}

// Diagnose accepts a multipart crop photo and returns the structured
// diagnosis.
func (h *DiagnosisHandler) Diagnose(c *gin.Context) {
	deviceID, err := util.GetDeviceIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	if fileHeader.Size > service.MaxDiagnosisImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds the 8 MB limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read image file"})
		return
	}
	defer file.Close()

	imgBytes, err := io.ReadAll(io.LimitReader(file, service.MaxDiagnosisImageBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read image file"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(imgBytes)
	}

	result, err := h.Service.Diagnose(c.Request.Context(), deviceID, imgBytes, contentType)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"diagnosis": result})
}

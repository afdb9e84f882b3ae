package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/krishimitra/krishimitra-api/internal/ai"
	"github.com/krishimitra/krishimitra-api/internal/conversation"
	"github.com/krishimitra/krishimitra-api/internal/repository"
	"github.com/krishimitra/krishimitra-api/internal/service"
)

// parseUintParam parses a string into a uint.
func parseUintParam(param string) (uint, error) {
	parsed, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		return 0, err
	}
	if parsed > uint64(^uint(0)) {
		return 0, fmt.Errorf("value out of range for uint: %d", parsed)
	}
	return uint(parsed), nil
}

// respondWithError maps domain errors onto HTTP statuses.
func respondWithError(c *gin.Context, err error) {
	var notFound repository.NotFoundError
	var forbidden service.ErrSessionForbidden
	var providerErr *ai.ProviderError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, conversation.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "A previous message is still being answered"})
	case errors.As(err, &providerErr):
		c.JSON(providerStatus(providerErr.Kind), gin.H{"error": providerErr.Message, "kind": string(providerErr.Kind)})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func providerStatus(kind ai.ErrorKind) int {
	switch kind {
	case ai.KindMissingCredential, ai.KindRecognitionUnsupported:
		return http.StatusServiceUnavailable
	case ai.KindInvalidCredential:
		return http.StatusBadGateway
	case ai.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case ai.KindLocationUnavailable:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

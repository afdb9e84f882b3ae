package util

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/krishimitra/krishimitra-api/internal/models"
)

// GetDeviceFromContext gets the device from the context.
func GetDeviceFromContext(c *gin.Context) (*models.Device, error) {
	val, ok := c.Get("device")
	if !ok {
		return nil, errors.New("no device information")
	}

	device, ok := val.(*models.Device)
	if !ok {
		return nil, errors.New("device information is of the wrong type")
	}

	return device, nil
}

// GetDeviceIDFromContext gets the device ID from the context.
func GetDeviceIDFromContext(c *gin.Context) (uint, error) {
	val, ok := c.Get("device_id")
	if !ok {
		return 0, errors.New("no device ID information")
	}

	deviceID, ok := val.(uint)
	if !ok {
		return 0, errors.New("device ID information is of the wrong type")
	}

	return deviceID, nil
}

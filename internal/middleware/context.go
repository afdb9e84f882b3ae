package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/krishimitra/krishimitra-api/internal/service"
	"github.com/krishimitra/krishimitra-api/internal/util"
)

// AttachDeviceToContext attaches the authenticated device to the context.
func AttachDeviceToContext(deviceService *service.DeviceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID, err := util.GetDeviceIDFromContext(c)
		if err != nil {
			c.Set("device", nil)
			c.Next()
			return
		}

		device, err := deviceService.GetDeviceByID(deviceID)
		if err != nil {
			c.Set("device", nil)
		} else {
			c.Set("device", device)
		}
		c.Next()
	}
}

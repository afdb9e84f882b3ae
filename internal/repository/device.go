package repository

import (
	"errors"
	"strings"

	"github.com/krishimitra/krishimitra-api/internal/logger"
	"github.com/krishimitra/krishimitra-api/internal/models"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DeviceRepository is a repository for anonymous devices.
type DeviceRepository struct {
	DB *gorm.DB
}

// NewDeviceRepository creates a new DeviceRepository.
func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{DB: db}
}

// CreateDevice registers a new device.
func (r *DeviceRepository) CreateDevice(device *models.Device) (*models.Device, error) {
	tx := r.DB.Begin()
	if err := tx.Create(device).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			if strings.Contains(pgErr.Error(), "uid") {
				return nil, errors.New("device already registered")
			}
		}
		return nil, err
	}
	return device, nil
}

// GetDeviceByID retrieves a device by its database id.
func (r *DeviceRepository) GetDeviceByID(deviceID uint) (*models.Device, error) {
	var device models.Device
	if err := r.DB.First(&device, deviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("device not found")
		}
		return nil, err
	}
	return &device, nil
}

// GetDeviceByUID retrieves a device by its public id.
func (r *DeviceRepository) GetDeviceByUID(uid string) (*models.Device, error) {
	var device models.Device
	if err := r.DB.Where("uid = ?", uid).First(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("device not found")
		}
		return nil, err
	}
	return &device, nil
}

// UpdateDeviceSettings updates a device's locale and voice preferences.
func (r *DeviceRepository) UpdateDeviceSettings(deviceID uint, locale, voiceGender string, alwaysListen bool) error {
	err := r.DB.Model(&models.Device{}).
		Where("id = ?", deviceID).
		Updates(map[string]interface{}{
			"locale":        locale,
			"voice_gender":  voiceGender,
			"always_listen": alwaysListen,
		}).Error
	if err != nil {
		logger.Get().Error("failed to update device settings", zap.Uint("device_id", deviceID), zap.Error(err))
	}
	return err
}

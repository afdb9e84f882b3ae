package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/krishimitra/krishimitra-api/internal/config"
	"github.com/krishimitra/krishimitra-api/internal/models"
	"github.com/krishimitra/krishimitra-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// DeviceService is the business logic layer for device registration and
// settings. There are no user accounts: a device registers anonymously and
// proves its identity with the secret minted at registration.
type DeviceService struct {
	Cfg  *config.Config
	Repo repository.DeviceRepo
}

// DeviceResponse is the response object for device-related operations.
type DeviceResponse struct {
	UID          string `json:"uid"`
	Locale       string `json:"locale"`
	VoiceGender  string `json:"voice_gender"`
	AlwaysListen bool   `json:"always_listen"`
	SpeechLocale string `json:"speech_locale"`
}

// NewDeviceService is the constructor function for initializing a new DeviceService.
func NewDeviceService(cfg *config.Config, repo repository.DeviceRepo) *DeviceService {
	return &DeviceService{
		Cfg:  cfg,
		Repo: repo,
	}
}

var validLocales = map[string]bool{"en": true, "hi": true, "mr": true}

var validVoiceGenders = map[string]bool{"male": true, "female": true}

// RegisterDevice registers a new anonymous device and returns it together
// with the one-time plaintext secret. The secret is only ever returned
// here; afterwards the device exchanges it for tokens.
func (s *DeviceService) RegisterDevice(locale, voiceGender string) (*models.Device, string, error) {
	if locale == "" {
		locale = "en"
	}
	if voiceGender == "" {
		voiceGender = "female"
	}
	if !validLocales[locale] {
		return nil, "", errors.New("locale must be one of en, hi, mr")
	}
	if !validVoiceGenders[voiceGender] {
		return nil, "", errors.New("voice_gender must be male or female")
	}

	secret := uuid.New().String()
	hashedSecret, err := bcrypt.GenerateFromPassword([]byte(secret), 10)
	if err != nil {
		return nil, "", fmt.Errorf("error hashing device secret: %v", err)
	}

	device := &models.Device{
		UID:         uuid.New().String(),
		SecretHash:  string(hashedSecret),
		Locale:      locale,
		VoiceGender: voiceGender,
	}

	created, err := s.Repo.CreateDevice(device)
	if err != nil {
		return nil, "", err
	}
	return created, secret, nil
}

// AuthenticateDevice verifies a device's secret and returns the device.
func (s *DeviceService) AuthenticateDevice(uid, secret string) (*models.Device, error) {
	device, err := s.Repo.GetDeviceByUID(uid)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(device.SecretHash), []byte(secret)); err != nil {
		return nil, errors.New("invalid device secret")
	}
	return device, nil
}

// GetDeviceByID retrieves a device by its database id.
func (s *DeviceService) GetDeviceByID(deviceID uint) (*models.Device, error) {
	return s.Repo.GetDeviceByID(deviceID)
}

// UpdateSettings updates a device's locale and voice preferences.
func (s *DeviceService) UpdateSettings(deviceID uint, locale, voiceGender string, alwaysListen bool) error {
	if !validLocales[locale] {
		return errors.New("locale must be one of en, hi, mr")
	}
	if !validVoiceGenders[voiceGender] {
		return errors.New("voice_gender must be male or female")
	}
	return s.Repo.UpdateDeviceSettings(deviceID, locale, voiceGender, alwaysListen)
}

// ToDeviceResponse converts a device to its response object.
func ToDeviceResponse(device *models.Device) DeviceResponse {
	return DeviceResponse{
		UID:          device.UID,
		Locale:       device.Locale,
		VoiceGender:  device.VoiceGender,
		AlwaysListen: device.AlwaysListen,
		SpeechLocale: device.SpeechLocale(),
	}
}

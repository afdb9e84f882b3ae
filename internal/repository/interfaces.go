package repository

import "github.com/krishimitra/krishimitra-api/internal/models"

// SessionRepo is the persistence contract for conversation sessions.
type SessionRepo interface {
	CreateSession(session *models.Session) (*models.Session, error)
	GetSessionByUID(uid string) (*models.Session, error)
	ListSessionsByDevice(deviceID uint) ([]*models.Session, error)
	AppendMessages(sessionID uint, messages []*models.Message) error
	UpdateSessionTitle(sessionID uint, title string) error
}

// DeviceRepo is the persistence contract for anonymous devices.
type DeviceRepo interface {
	CreateDevice(device *models.Device) (*models.Device, error)
	GetDeviceByID(deviceID uint) (*models.Device, error)
	GetDeviceByUID(uid string) (*models.Device, error)
	UpdateDeviceSettings(deviceID uint, locale, voiceGender string, alwaysListen bool) error
}

// BookmarkRepo is the persistence contract for scheme bookmarks.
type BookmarkRepo interface {
	CreateBookmark(bookmark *models.SchemeBookmark) (*models.SchemeBookmark, error)
	ListBookmarksByDevice(deviceID uint) ([]*models.SchemeBookmark, error)
	DeleteBookmark(deviceID, bookmarkID uint) error
}

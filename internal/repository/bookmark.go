package repository

import (
	"errors"

	"github.com/krishimitra/krishimitra-api/internal/models"
	"gorm.io/gorm"
)

// BookmarkRepository is a repository for saved government schemes.
type BookmarkRepository struct {
	DB *gorm.DB
}

// NewBookmarkRepository creates a new BookmarkRepository.
func NewBookmarkRepository(db *gorm.DB) *BookmarkRepository {
	return &BookmarkRepository{DB: db}
}

// CreateBookmark saves a scheme for a device.
func (r *BookmarkRepository) CreateBookmark(bookmark *models.SchemeBookmark) (*models.SchemeBookmark, error) {
	if err := r.DB.Create(bookmark).Error; err != nil {
		return nil, err
	}
	return bookmark, nil
}

// ListBookmarksByDevice retrieves a device's saved schemes, newest first.
func (r *BookmarkRepository) ListBookmarksByDevice(deviceID uint) ([]*models.SchemeBookmark, error) {
	var bookmarks []*models.SchemeBookmark
	err := r.DB.Where("device_id = ?", deviceID).
		Order("created_at DESC").
		Find(&bookmarks).Error
	if err != nil {
		return nil, err
	}
	return bookmarks, nil
}

// DeleteBookmark removes a saved scheme, scoped to the owning device.
func (r *BookmarkRepository) DeleteBookmark(deviceID, bookmarkID uint) error {
	result := r.DB.Where("id = ? AND device_id = ?", bookmarkID, deviceID).
		Delete(&models.SchemeBookmark{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("bookmark not found")
	}
	return nil
}

// ErrNotFound reports whether err is a repository NotFoundError.
func ErrNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

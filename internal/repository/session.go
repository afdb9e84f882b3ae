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

// Storage growth bounds: a device keeps the most recent MaxSessionsPerDevice
// sessions, and a session keeps its trailing MaxMessagesPerSession messages.
// Trimming only ever removes from the front, never from the middle.
const (
	MaxSessionsPerDevice  = 10
	MaxMessagesPerSession = 20
)

// SessionRepository is a repository for conversation sessions.
type SessionRepository struct {
	DB *gorm.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

// CreateSession creates a new session and rotates out the device's oldest
// sessions beyond the cap.
func (r *SessionRepository) CreateSession(session *models.Session) (*models.Session, error) {
	tx := r.DB.Begin()
	if err := tx.Create(session).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := r.trimSessionsTx(tx, session.DeviceID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			if strings.Contains(pgErr.Error(), "uid") {
				return nil, errors.New("session id already in use")
			}
		}
		return nil, err
	}

	return session, nil
}

// GetSessionByUID retrieves a session with its messages in turn order.
func (r *SessionRepository) GetSessionByUID(uid string) (*models.Session, error) {
	var session models.Session
	err := r.DB.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	}).Where("uid = ?", uid).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("session not found")
		}
		return nil, err
	}

	return &session, nil
}

// ListSessionsByDevice retrieves a device's sessions, newest first, without
// message bodies.
func (r *SessionRepository) ListSessionsByDevice(deviceID uint) ([]*models.Session, error) {
	var sessions []*models.Session
	err := r.DB.Where("device_id = ?", deviceID).
		Order("updated_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// AppendMessages appends turns to a session and trims the session to its
// trailing message window.
func (r *SessionRepository) AppendMessages(sessionID uint, messages []*models.Message) error {
	tx := r.DB.Begin()

	for _, m := range messages {
		m.SessionID = sessionID
		if err := tx.Create(m).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	// Count and drop everything before the trailing window.
	var count int64
	if err := tx.Model(&models.Message{}).Where("session_id = ?", sessionID).Count(&count).Error; err != nil {
		tx.Rollback()
		return err
	}
	if count > MaxMessagesPerSession {
		var cutoff models.Message
		err := tx.Where("session_id = ?", sessionID).
			Order("seq DESC").
			Offset(MaxMessagesPerSession - 1).
			First(&cutoff).Error
		if err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Unscoped().
			Where("session_id = ? AND seq < ?", sessionID, cutoff.Seq).
			Delete(&models.Message{}).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	// Touch the session so list ordering reflects activity.
	if err := tx.Model(&models.Session{}).Where("id = ?", sessionID).
		Update("updated_at", gorm.Expr("NOW()")).Error; err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// UpdateSessionTitle updates a session's title.
func (r *SessionRepository) UpdateSessionTitle(sessionID uint, title string) error {
	err := r.DB.Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("title", title).Error
	if err != nil {
		logger.Get().Error("failed to update session title", zap.Uint("session_id", sessionID), zap.Error(err))
	}
	return err
}

// trimSessionsTx deletes a device's oldest sessions beyond the cap.
func (r *SessionRepository) trimSessionsTx(tx *gorm.DB, deviceID uint) error {
	var ids []uint
	err := tx.Model(&models.Session{}).
		Where("device_id = ?", deviceID).
		Order("updated_at DESC").
		Offset(MaxSessionsPerDevice).
		Pluck("id", &ids).Error
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Unscoped().Where("session_id IN ?", ids).Delete(&models.Message{}).Error; err != nil {
		return err
	}
	return tx.Unscoped().Where("id IN ?", ids).Delete(&models.Session{}).Error
}

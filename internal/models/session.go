package models

import (
	"errors"

	"gorm.io/gorm"
)

// MessageRole is the type for the message role enum.
type MessageRole string

// MessageRole enum values.
const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Session is a persisted, ordered conversation thread. A device keeps at
// most MaxSessionsPerDevice sessions; older ones rotate out.
type Session struct {
	gorm.Model
	UID      string `gorm:"uniqueIndex;not null"` // client-visible session id (chat route)
	DeviceID uint   `gorm:"index;not null"`
	Title    string
	Voice    bool       // whether the session was opened on the voice route
	Messages []*Message `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// Message is a single immutable turn in a session. Seq orders turns within
// the session; it never decreases and is never reused after a trim.
type Message struct {
	gorm.Model
	SessionID uint        `gorm:"index;not null"`
	Seq       int         `gorm:"not null"`
	Role      MessageRole `gorm:"type:text;not null"`
	Content   string      `gorm:"not null"`
	IsError   bool        `gorm:"default:false"` // styling hint, not a taxonomy
}

// IsValidRole checks if the Role is valid.
func (m *Message) IsValidRole() bool {
	switch m.Role {
	case RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// BeforeCreate is a GORM hook that runs before creating a new Message.
func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if !m.IsValidRole() {
		return errors.New("invalid message role provided")
	}
	return nil
}

// SchemeBookmark is a government scheme saved by a device.
type SchemeBookmark struct {
	gorm.Model
	DeviceID   uint   `gorm:"index;not null"`
	SchemeName string `gorm:"not null"`
	Note       string
}

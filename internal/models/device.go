package models

import "gorm.io/gorm"

// Device is an anonymous client installation. There are no user accounts;
// a device registers once with a locally generated secret and afterwards
// authenticates with tokens minted against that secret's hash.
type Device struct {
	gorm.Model
	UID          string `gorm:"uniqueIndex;not null"`
	SecretHash   string `gorm:"not null"`
	Locale       string `gorm:"default:'en'"` // en, hi, mr
	VoiceGender  string `gorm:"default:'female'"`
	AlwaysListen bool   `gorm:"default:false"`
}

// SpeechLocale maps the device locale to the regional speech-recognition
// locale code the client binds its recognizer to.
func (d *Device) SpeechLocale() string {
	switch d.Locale {
	case "hi":
		return "hi-IN"
	case "mr":
		return "mr-IN"
	default:
		return "en-IN"
	}
}

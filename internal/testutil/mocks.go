// Package testutil provides function-field mocks and fixtures for tests.
package testutil

import (
	"bytes"
	"context"
	"io"

	"github.com/krishimitra/krishimitra-api/internal/ai"
	"github.com/krishimitra/krishimitra-api/internal/models"
	"github.com/krishimitra/krishimitra-api/internal/repository"
)

// MockCompletionProvider implements ai.CompletionProvider with overridable
// function fields. Unset fields return zero values.
type MockCompletionProvider struct {
	CompleteFn       func(ctx context.Context, history []ai.Message, systemPrompt string) (string, error)
	CompleteStreamFn func(ctx context.Context, history []ai.Message, systemPrompt string, onDelta func(string)) (string, error)
}

func (m *MockCompletionProvider) Complete(ctx context.Context, history []ai.Message, systemPrompt string) (string, error) {
	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, history, systemPrompt)
	}
	return "", nil
}

func (m *MockCompletionProvider) CompleteStream(ctx context.Context, history []ai.Message, systemPrompt string, onDelta func(string)) (string, error) {
	if m.CompleteStreamFn != nil {
		return m.CompleteStreamFn(ctx, history, systemPrompt, onDelta)
	}
	return "", nil
}

// MockVisionProvider implements ai.VisionProvider.
type MockVisionProvider struct {
	CompleteJSONFn func(ctx context.Context, prompt string, imageDataURL string) (string, error)
}

func (m *MockVisionProvider) CompleteJSON(ctx context.Context, prompt string, imageDataURL string) (string, error) {
	if m.CompleteJSONFn != nil {
		return m.CompleteJSONFn(ctx, prompt, imageDataURL)
	}
	return "{}", nil
}

// MockSpeechProvider implements ai.SpeechProvider.
type MockSpeechProvider struct {
	TranscribeFn func(ctx context.Context, audioData []byte, language string) (string, error)
}

func (m *MockSpeechProvider) Transcribe(ctx context.Context, audioData []byte, language string) (string, error) {
	if m.TranscribeFn != nil {
		return m.TranscribeFn(ctx, audioData, language)
	}
	return "", nil
}

// MockVoiceProvider implements ai.VoiceProvider.
type MockVoiceProvider struct {
	SynthesizeFn func(ctx context.Context, text string, voice string) (io.ReadCloser, error)
}

func (m *MockVoiceProvider) Synthesize(ctx context.Context, text string, voice string) (io.ReadCloser, error) {
	if m.SynthesizeFn != nil {
		return m.SynthesizeFn(ctx, text, voice)
	}
	return io.NopCloser(bytes.NewReader(nil)), nil
}

// MockSessionRepo implements repository.SessionRepo.
type MockSessionRepo struct {
	CreateSessionFn      func(session *models.Session) (*models.Session, error)
	GetSessionByUIDFn    func(uid string) (*models.Session, error)
	ListSessionsFn       func(deviceID uint) ([]*models.Session, error)
	AppendMessagesFn     func(sessionID uint, messages []*models.Message) error
	UpdateSessionTitleFn func(sessionID uint, title string) error
}

func (m *MockSessionRepo) CreateSession(session *models.Session) (*models.Session, error) {
	if m.CreateSessionFn != nil {
		return m.CreateSessionFn(session)
	}
	return session, nil
}

func (m *MockSessionRepo) GetSessionByUID(uid string) (*models.Session, error) {
	if m.GetSessionByUIDFn != nil {
		return m.GetSessionByUIDFn(uid)
	}
	return nil, repository.NewNotFoundError("session not found")
}

func (m *MockSessionRepo) ListSessionsByDevice(deviceID uint) ([]*models.Session, error) {
	if m.ListSessionsFn != nil {
		return m.ListSessionsFn(deviceID)
	}
	return nil, nil
}

func (m *MockSessionRepo) AppendMessages(sessionID uint, messages []*models.Message) error {
	if m.AppendMessagesFn != nil {
		return m.AppendMessagesFn(sessionID, messages)
	}
	return nil
}

func (m *MockSessionRepo) UpdateSessionTitle(sessionID uint, title string) error {
	if m.UpdateSessionTitleFn != nil {
		return m.UpdateSessionTitleFn(sessionID, title)
	}
	return nil
}

// MockDeviceRepo implements repository.DeviceRepo.
type MockDeviceRepo struct {
	CreateDeviceFn         func(device *models.Device) (*models.Device, error)
	GetDeviceByIDFn        func(deviceID uint) (*models.Device, error)
	GetDeviceByUIDFn       func(uid string) (*models.Device, error)
	UpdateDeviceSettingsFn func(deviceID uint, locale, voiceGender string, alwaysListen bool) error
}

func (m *MockDeviceRepo) GetDeviceByID(deviceID uint) (*models.Device, error) {
	if m.GetDeviceByIDFn != nil {
		return m.GetDeviceByIDFn(deviceID)
	}
	return nil, repository.NewNotFoundError("device not found")
}

func (m *MockDeviceRepo) CreateDevice(device *models.Device) (*models.Device, error) {
	if m.CreateDeviceFn != nil {
		return m.CreateDeviceFn(device)
	}
	return device, nil
}

func (m *MockDeviceRepo) GetDeviceByUID(uid string) (*models.Device, error) {
	if m.GetDeviceByUIDFn != nil {
		return m.GetDeviceByUIDFn(uid)
	}
	return nil, repository.NewNotFoundError("device not found")
}

func (m *MockDeviceRepo) UpdateDeviceSettings(deviceID uint, locale, voiceGender string, alwaysListen bool) error {
	if m.UpdateDeviceSettingsFn != nil {
		return m.UpdateDeviceSettingsFn(deviceID, locale, voiceGender, alwaysListen)
	}
	return nil
}

// MockBookmarkRepo implements repository.BookmarkRepo.
type MockBookmarkRepo struct {
	CreateBookmarkFn func(bookmark *models.SchemeBookmark) (*models.SchemeBookmark, error)
	ListBookmarksFn  func(deviceID uint) ([]*models.SchemeBookmark, error)
	DeleteBookmarkFn func(deviceID, bookmarkID uint) error
}

func (m *MockBookmarkRepo) CreateBookmark(bookmark *models.SchemeBookmark) (*models.SchemeBookmark, error) {
	if m.CreateBookmarkFn != nil {
		return m.CreateBookmarkFn(bookmark)
	}
	return bookmark, nil
}

func (m *MockBookmarkRepo) ListBookmarksByDevice(deviceID uint) ([]*models.SchemeBookmark, error) {
	if m.ListBookmarksFn != nil {
		return m.ListBookmarksFn(deviceID)
	}
	return nil, nil
}

func (m *MockBookmarkRepo) DeleteBookmark(deviceID uint, bookmarkID uint) error {
	if m.DeleteBookmarkFn != nil {
		return m.DeleteBookmarkFn(deviceID, bookmarkID)
	}
	return nil
}

package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/krishimitra/krishimitra-api/internal/ai"
	"github.com/krishimitra/krishimitra-api/internal/config"
	"github.com/krishimitra/krishimitra-api/internal/conversation"
	"github.com/krishimitra/krishimitra-api/internal/knowledge"
	"github.com/krishimitra/krishimitra-api/internal/models"
	"github.com/krishimitra/krishimitra-api/internal/repository"
)

// ErrSessionForbidden is returned when a device addresses a session it does
// not own.
type ErrSessionForbidden struct{}

func (ErrSessionForbidden) Error() string { return "session belongs to another device" }

// ConversationService owns session lifecycle and routes turns through one
// orchestrator per session. The orchestrator enforces the busy/barge-in
// rules; this layer enforces ownership and keeps the per-session registry.
type ConversationService struct {
	Cfg        *config.Config
	Repo       repository.SessionRepo
	Matcher    *knowledge.Matcher
	Completion ai.CompletionProvider

	mu     sync.Mutex
	active map[string]*conversation.Orchestrator // keyed by session UID
}

// NewConversationService is the constructor function for initializing a new ConversationService.
func NewConversationService(cfg *config.Config, repo repository.SessionRepo, matcher *knowledge.Matcher, completion ai.CompletionProvider) *ConversationService {
	return &ConversationService{
		Cfg:        cfg,
		Repo:       repo,
		Matcher:    matcher,
		Completion: completion,
		active:     make(map[string]*conversation.Orchestrator),
	}
}

// CreateSession opens a new session for a device. Older sessions beyond the
// per-device cap rotate out in the repository.
func (s *ConversationService) CreateSession(deviceID uint, voice bool) (*models.Session, error) {
	session := &models.Session{
		UID:      uuid.New().String(),
		DeviceID: deviceID,
		Voice:    voice,
	}
	return s.Repo.CreateSession(session)
}

// GetSessionForDevice loads a session and verifies the device owns it.
func (s *ConversationService) GetSessionForDevice(deviceID uint, sessionUID string) (*models.Session, error) {
	session, err := s.Repo.GetSessionByUID(sessionUID)
	if err != nil {
		return nil, err
	}
	if session.DeviceID != deviceID {
		return nil, ErrSessionForbidden{}
	}
	return session, nil
}

// ListSessions returns a device's sessions, most recently active first.
func (s *ConversationService) ListSessions(deviceID uint) ([]*models.Session, error) {
	return s.Repo.ListSessionsByDevice(deviceID)
}

// SubmitText runs one typed (non-voice) turn and returns the assistant
// reply. Turns for the same session share one orchestrator, so a turn
// arriving while another is processing is rejected.
func (s *ConversationService) SubmitText(ctx context.Context, deviceID uint, sessionUID, text string) (*models.Message, error) {
	session, err := s.GetSessionForDevice(deviceID, sessionUID)
	if err != nil {
		return nil, err
	}

	orch, err := s.orchestratorFor(session)
	if err != nil {
		return nil, err
	}
	return orch.Submit(ctx, text)
}

// orchestratorFor returns the registered orchestrator for the session,
// creating a speakerless one on first use.
func (s *ConversationService) orchestratorFor(session *models.Session) (*conversation.Orchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if orch, ok := s.active[session.UID]; ok {
		return orch, nil
	}

	orch := conversation.New(conversation.Config{
		Session:      session,
		Matcher:      s.Matcher,
		Completion:   s.Completion,
		Store:        s.Repo,
		SystemPrompt: s.Cfg.Prompts.Advisory.System,
	})
	s.active[session.UID] = orch
	return orch, nil
}

// Attach registers a voice-capable orchestrator for the session, replacing
// any speakerless one left over from typed turns. The caller must Release
// it when the voice connection closes.
func (s *ConversationService) Attach(session *models.Session, speaker *conversation.Speaker, listener conversation.Listener, alwaysListen bool) *conversation.Orchestrator {
	orch := conversation.New(conversation.Config{
		Session:      session,
		Matcher:      s.Matcher,
		Completion:   s.Completion,
		Speaker:      speaker,
		Store:        s.Repo,
		Listener:     listener,
		SystemPrompt: s.Cfg.Prompts.Advisory.System,
		VoiceEnabled: true,
		AlwaysListen: alwaysListen,
	})

	s.mu.Lock()
	s.active[session.UID] = orch
	s.mu.Unlock()
	return orch
}

// Release removes the orchestrator for a session if it is still the one
// the caller registered.
func (s *ConversationService) Release(sessionUID string, orch *conversation.Orchestrator) {
	s.mu.Lock()
	if s.active[sessionUID] == orch {
		delete(s.active, sessionUID)
	}
	s.mu.Unlock()
}

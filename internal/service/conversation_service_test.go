package service

import (
	"context"
	"errors"
	"testing"

	"github.com/krishimitra/krishimitra-api/internal/ai"
	"github.com/krishimitra/krishimitra-api/internal/config"
	"github.com/krishimitra/krishimitra-api/internal/conversation"
	"github.com/krishimitra/krishimitra-api/internal/knowledge"
	"github.com/krishimitra/krishimitra-api/internal/models"
	"github.com/krishimitra/krishimitra-api/internal/testutil"
)

func newConversationService(repo *testutil.MockSessionRepo, completion *testutil.MockCompletionProvider) *ConversationService {
	cfg := &config.Config{
		Prompts: &config.Prompts{Advisory: config.SinglePrompt{System: "advise farmers"}},
	}
	base, _ := knowledge.Parse([]byte("agro_zones: {}\nknowledge_chunks: []\n"))
	return NewConversationService(cfg, repo, knowledge.NewMatcher(base), completion)
}

func ownedSession(deviceID uint, uid string) *models.Session {
	s := &models.Session{UID: uid, DeviceID: deviceID}
	s.ID = 42
	return s
}

func TestSubmitText_OwnershipEnforced(t *testing.T) {
	repo := &testutil.MockSessionRepo{
		GetSessionByUIDFn: func(uid string) (*models.Session, error) {
			return ownedSession(1, uid), nil
		},
	}
	svc := newConversationService(repo, &testutil.MockCompletionProvider{})

	_, err := svc.SubmitText(context.Background(), 2, "sess-1", "hello crops")
	var forbidden ErrSessionForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrSessionForbidden, got %v", err)
	}
}

func TestSubmitText_ReusesOrchestrator(t *testing.T) {
	loads := 0
	repo := &testutil.MockSessionRepo{
		GetSessionByUIDFn: func(uid string) (*models.Session, error) {
			loads++
			return ownedSession(1, uid), nil
		},
	}
	release := make(chan struct{})
	started := make(chan struct{})
	completion := &testutil.MockCompletionProvider{
		CompleteStreamFn: func(ctx context.Context, history []ai.Message, systemPrompt string, onDelta func(string)) (string, error) {
			close(started)
			<-release
			return "answer", nil
		},
	}
	svc := newConversationService(repo, completion)

	done := make(chan error, 1)
	go func() {
		_, err := svc.SubmitText(context.Background(), 1, "sess-1", "first")
		done <- err
	}()

	<-started
	// The same session must hit the same orchestrator, so the concurrent
	// turn is rejected rather than run in parallel.
	_, err := svc.SubmitText(context.Background(), 1, "sess-1", "second")
	if !errors.Is(err, conversation.ErrBusy) {
		t.Fatalf("expected ErrBusy for a concurrent turn, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first turn error: %v", err)
	}
}

func TestAttachAndRelease(t *testing.T) {
	repo := &testutil.MockSessionRepo{}
	svc := newConversationService(repo, &testutil.MockCompletionProvider{})
	session := ownedSession(1, "sess-voice")

	orch := svc.Attach(session, nil, nil, false)
	if got := svc.active[session.UID]; got != orch {
		t.Fatal("Attach must register the voice orchestrator")
	}

	// Releasing a superseded orchestrator must not evict the current one.
	replacement := svc.Attach(session, nil, nil, false)
	svc.Release(session.UID, orch)
	if got := svc.active[session.UID]; got != replacement {
		t.Fatal("Release evicted an orchestrator it did not own")
	}

	svc.Release(session.UID, replacement)
	if _, ok := svc.active[session.UID]; ok {
		t.Fatal("Release must remove the registered orchestrator")
	}
}

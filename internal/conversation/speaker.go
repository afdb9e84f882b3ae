package conversation

import (
	"context"
	"strings"
	"sync"
)

// Output is a playback backend. Play blocks until playback finishes or ctx
// is cancelled. Implementations exist for hosted synthesis streamed to the
// client and for client-local synthesis; callers only see the Speaker.
type Output interface {
	Play(ctx context.Context, text string) error
}

// Speaker guards a playback backend: it refuses overlapping playback,
// empty text, and repeat playback of the most recently spoken utterance
// (dedup guard), and supports immediate cancellation.
type Speaker struct {
	out Output

	mu         sync.Mutex
	speaking   bool
	lastSpoken string
	cancel     context.CancelFunc
}

// NewSpeaker creates a Speaker over the given playback backend.
func NewSpeaker(out Output) *Speaker {
	return &Speaker{out: out}
}

// Speak plays text and blocks until playback ends, is cancelled, or fails.
// A call is a no-op when playback is already in progress, when text is
// empty, or when text equals the most recently spoken utterance. On error
// the dedup guard is cleared so the same text can be retried.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	text = stripMarkdown(text)

	s.mu.Lock()
	if s.speaking || text == "" || text == s.lastSpoken {
		s.mu.Unlock()
		return nil
	}
	playCtx, cancel := context.WithCancel(ctx)
	s.speaking = true
	s.lastSpoken = text
	s.cancel = cancel
	s.mu.Unlock()

	err := s.out.Play(playCtx, text)
	cancel()

	s.mu.Lock()
	s.speaking = false
	s.cancel = nil
	if err != nil && playCtx.Err() == nil {
		// Real failure, not a cancellation: allow a retry of the same text.
		s.lastSpoken = ""
	}
	s.mu.Unlock()

	return err
}

// Cancel stops in-flight playback immediately. IsSpeaking is reset
// synchronously so the orchestrator can react without waiting for a
// playback-end event.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.speaking = false
	s.mu.Unlock()
}

// IsSpeaking reports whether playback is in progress.
func (s *Speaker) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// ResetDedup clears the dedup guard, e.g. when a session is reopened.
func (s *Speaker) ResetDedup() {
	s.mu.Lock()
	s.lastSpoken = ""
	s.mu.Unlock()
}

// stripMarkdown removes the markdown tokens the knowledge matcher emits so
// they are not read aloud.
func stripMarkdown(text string) string {
	replacer := strings.NewReplacer("**", "", "###", "", "*", "")
	return replacer.Replace(text)
}

package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingOutput counts Play calls and optionally blocks until cancelled.
type recordingOutput struct {
	mu      sync.Mutex
	calls   []string
	block   bool
	started chan struct{}
	err     error
}

func (o *recordingOutput) Play(ctx context.Context, text string) error {
	o.mu.Lock()
	o.calls = append(o.calls, text)
	block, err := o.block, o.err
	o.mu.Unlock()
	if o.started != nil {
		o.started <- struct{}{}
	}
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (o *recordingOutput) setBlock(block bool) {
	o.mu.Lock()
	o.block = block
	o.mu.Unlock()
}

func (o *recordingOutput) playCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.calls)
}

func TestSpeaker_DedupSameText(t *testing.T) {
	out := &recordingOutput{}
	s := NewSpeaker(out)

	if err := s.Speak(context.Background(), "Spray neem oil"); err != nil {
		t.Fatalf("Speak error: %v", err)
	}
	if err := s.Speak(context.Background(), "Spray neem oil"); err != nil {
		t.Fatalf("repeat Speak error: %v", err)
	}
	if got := out.playCount(); got != 1 {
		t.Fatalf("identical text should play once, played %d times", got)
	}

	if err := s.Speak(context.Background(), "Check soil moisture"); err != nil {
		t.Fatalf("Speak error: %v", err)
	}
	if got := out.playCount(); got != 2 {
		t.Fatalf("different text should play, total plays = %d", got)
	}
}

func TestSpeaker_EmptyTextIsNoop(t *testing.T) {
	out := &recordingOutput{}
	s := NewSpeaker(out)

	if err := s.Speak(context.Background(), ""); err != nil {
		t.Fatalf("Speak error: %v", err)
	}
	if out.playCount() != 0 {
		t.Fatal("empty text must not reach the backend")
	}
}

func TestSpeaker_StripsMarkdown(t *testing.T) {
	out := &recordingOutput{}
	s := NewSpeaker(out)

	if err := s.Speak(context.Background(), "**Crop:** Tomato ### note *now*"); err != nil {
		t.Fatalf("Speak error: %v", err)
	}
	if got := out.calls[0]; got != "Crop: Tomato  note now" {
		t.Fatalf("markdown not stripped, got %q", got)
	}
}

func TestSpeaker_CancelStopsPlaybackSynchronously(t *testing.T) {
	out := &recordingOutput{block: true, started: make(chan struct{}, 1)}
	s := NewSpeaker(out)

	done := make(chan error, 1)
	go func() { done <- s.Speak(context.Background(), "long reply") }()

	<-out.started
	if !s.IsSpeaking() {
		t.Fatal("IsSpeaking should be true during playback")
	}
	s.Cancel()
	if s.IsSpeaking() {
		t.Fatal("Cancel must reset IsSpeaking without waiting for playback")
	}

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("playback did not unblock after Cancel")
	}
}

func TestSpeaker_ErrorClearsDedup(t *testing.T) {
	out := &recordingOutput{err: errors.New("synthesis failed")}
	s := NewSpeaker(out)

	if err := s.Speak(context.Background(), "retry me"); err == nil {
		t.Fatal("expected the backend error to propagate")
	}

	out.err = nil
	if err := s.Speak(context.Background(), "retry me"); err != nil {
		t.Fatalf("retry after failure should play: %v", err)
	}
	if got := out.playCount(); got != 2 {
		t.Fatalf("failed text must be retryable, plays = %d", got)
	}
}

func TestSpeaker_CancelKeepsDedup(t *testing.T) {
	out := &recordingOutput{block: true, started: make(chan struct{}, 1)}
	s := NewSpeaker(out)

	done := make(chan error, 1)
	go func() { done <- s.Speak(context.Background(), "interrupted reply") }()
	<-out.started
	s.Cancel()
	<-done

	// A cancelled utterance was deliberately interrupted; it is not replayed.
	out.block = false
	out.started = nil
	if err := s.Speak(context.Background(), "interrupted reply"); err != nil {
		t.Fatalf("Speak error: %v", err)
	}
	if got := out.playCount(); got != 1 {
		t.Fatalf("cancelled text must stay deduped, plays = %d", got)
	}
}

package conversation

import (
	"context"
	"sync"

	goaway "github.com/TwiN/go-away"
	"github.com/krishimitra/krishimitra-api/internal/ai"
	"github.com/krishimitra/krishimitra-api/internal/knowledge"
	"github.com/krishimitra/krishimitra-api/internal/logger"
	"github.com/krishimitra/krishimitra-api/internal/models"
	"go.uber.org/zap"
)

// Matcher is the local knowledge lookup consulted before any remote call.
type Matcher interface {
	Match(message string) *knowledge.Answer
}

// SessionStore is the slice of session persistence the orchestrator needs.
type SessionStore interface {
	AppendMessages(sessionID uint, messages []*models.Message) error
	UpdateSessionTitle(sessionID uint, title string) error
}

// Listener receives orchestration events. All methods may be called from
// the goroutine driving a turn; implementations must not block for long.
type Listener interface {
	OnState(state State)
	OnDelta(fragment string)
	OnAssistantMessage(msg *models.Message)
}

// nopListener is used when no listener is attached.
type nopListener struct{}

func (nopListener) OnState(State)                      {}
func (nopListener) OnDelta(string)                     {}
func (nopListener) OnAssistantMessage(*models.Message) {}

// Orchestrator sequences one session's conversation loop: append the user
// turn, try the local knowledge matcher, fall back to the remote completion
// provider, append and persist the assistant turn, then trigger speech
// playback. It owns the session exclusively.
type Orchestrator struct {
	session    *models.Session
	matcher    Matcher
	completion ai.CompletionProvider
	speaker    *Speaker // nil when the session has no voice output
	store      SessionStore
	listener   Listener

	systemPrompt string
	alwaysListen bool

	mu           sync.Mutex
	state        State
	seq          int // next message sequence number
	turn         int // submission counter for stale-response discard
	voiceEnabled bool
	spokenSeq    int // seq of the last message handed to the speaker
}

// Config bundles the orchestrator's collaborators.
type Config struct {
	Session      *models.Session
	Matcher      Matcher
	Completion   ai.CompletionProvider
	Speaker      *Speaker
	Store        SessionStore
	Listener     Listener
	SystemPrompt string
	VoiceEnabled bool
	AlwaysListen bool
}

// New creates an Orchestrator for one session.
func New(cfg Config) *Orchestrator {
	listener := cfg.Listener
	if listener == nil {
		listener = nopListener{}
	}

	seq := 0
	for _, m := range cfg.Session.Messages {
		if m.Seq >= seq {
			seq = m.Seq + 1
		}
	}

	return &Orchestrator{
		session:      cfg.Session,
		matcher:      cfg.Matcher,
		completion:   cfg.Completion,
		speaker:      cfg.Speaker,
		store:        cfg.Store,
		listener:     listener,
		systemPrompt: cfg.SystemPrompt,
		voiceEnabled: cfg.VoiceEnabled,
		alwaysListen: cfg.AlwaysListen,
		state:        StateIdle,
		seq:          seq,
		spokenSeq:    -1,
	}
}

// State returns the current tagged state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Session returns the session owned by this orchestrator.
func (o *Orchestrator) Session() *models.Session {
	return o.session
}

// SetListening marks the session as capturing an utterance. It is a no-op
// unless the session is idle.
func (o *Orchestrator) SetListening(listening bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case listening && o.state == StateIdle:
		o.state = StateListening
		o.listener.OnState(o.state)
	case !listening && o.state == StateListening:
		o.state = StateIdle
		o.listener.OnState(o.state)
	}
}

// SetVoiceEnabled toggles voice mode. Disabling it cancels in-flight
// playback immediately and suppresses auto-resume of listening.
func (o *Orchestrator) SetVoiceEnabled(enabled bool) {
	o.mu.Lock()
	o.voiceEnabled = enabled
	if !enabled && o.state == StateListening {
		o.state = StateIdle
		o.listener.OnState(o.state)
	}
	o.mu.Unlock()

	if !enabled && o.speaker != nil {
		o.speaker.Cancel()
	}
}

// Interrupt abandons any in-flight turn and stops playback. The voice
// transport calls it when the connection drops: the superseded turn's
// completion is discarded instead of being persisted and spoken to nobody.
func (o *Orchestrator) Interrupt() {
	o.mu.Lock()
	if o.state != StateIdle {
		o.turn++
		o.state = StateIdle
	}
	o.mu.Unlock()

	if o.speaker != nil {
		o.speaker.Cancel()
	}
}

// Submit runs one full turn for a finalized transcript or typed message and
// returns the assistant reply. A turn arriving while a previous one is
// still processing is rejected with ErrBusy. A turn arriving during
// playback barges in: playback is cancelled first.
func (o *Orchestrator) Submit(ctx context.Context, text string) (*models.Message, error) {
	o.mu.Lock()
	if !canSubmit(o.state) {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	wasSpeaking := o.state == StateSpeaking
	o.state = StateProcessing
	o.turn++
	myTurn := o.turn

	userMsg := &models.Message{
		SessionID: o.session.ID,
		Seq:       o.seq,
		Role:      models.RoleUser,
		Content:   text,
	}
	o.seq++
	o.mu.Unlock()

	if wasSpeaking && o.speaker != nil {
		// Barge-in: stop the previous reply before answering the new turn.
		o.speaker.Cancel()
	}
	o.listener.OnState(StateProcessing)

	if err := o.persist(userMsg); err != nil {
		o.toIdle()
		return nil, err
	}
	o.maybeSetTitle(text)

	answerText, isError := o.answer(ctx, text)

	o.mu.Lock()
	if o.turn != myTurn {
		// The turn was superseded while in flight (the voice connection
		// dropped and Interrupt ran). Discard rather than append a reply
		// nobody is waiting for.
		o.mu.Unlock()
		return nil, ErrStale
	}
	assistantMsg := &models.Message{
		SessionID: o.session.ID,
		Seq:       o.seq,
		Role:      models.RoleAssistant,
		Content:   answerText,
		IsError:   isError,
	}
	o.seq++
	o.mu.Unlock()

	if err := o.persist(assistantMsg); err != nil {
		o.toIdle()
		return nil, err
	}
	o.listener.OnAssistantMessage(assistantMsg)

	o.speakReply(ctx, assistantMsg)
	return assistantMsg, nil
}

// profanityReply is the canned response for a screened-out turn.
const profanityReply = "Let's keep the conversation respectful. I'm happy to help with any farming question."

// answer resolves the reply text: profanity screen first, then local
// knowledge, then remote completion. A completion failure becomes a visible
// assistant turn so the transcript stays self-explanatory.
func (o *Orchestrator) answer(ctx context.Context, text string) (reply string, isError bool) {
	if goaway.IsProfane(text) {
		logger.WithSession(o.session.UID).Info("refused a profane turn")
		return profanityReply, false
	}

	if answer := o.matcher.Match(text); answer != nil {
		return answer.Text, false
	}

	history := o.history()
	reply, err := o.completion.CompleteStream(ctx, history, o.systemPrompt, o.listener.OnDelta)
	if err != nil {
		logger.WithSession(o.session.UID).Error("completion failed", zap.Error(err))
		return presentableError(err), true
	}
	return reply, false
}

// speakReply plays the assistant turn when voice mode is on and the message
// has not been spoken yet (dedup by message identity).
func (o *Orchestrator) speakReply(ctx context.Context, msg *models.Message) {
	o.mu.Lock()
	shouldSpeak := o.voiceEnabled && o.speaker != nil && msg.Seq != o.spokenSeq
	if shouldSpeak {
		o.state = StateSpeaking
		o.spokenSeq = msg.Seq
	} else {
		o.state = StateIdle
	}
	resume := o.alwaysListen && o.voiceEnabled
	o.mu.Unlock()

	if !shouldSpeak {
		o.listener.OnState(StateIdle)
		return
	}

	o.listener.OnState(StateSpeaking)
	if err := o.speaker.Speak(ctx, msg.Content); err != nil {
		logger.WithSession(o.session.UID).Warn("speech playback failed", zap.Error(err))
	}

	o.mu.Lock()
	// Only the turn that started this playback may leave the speaking
	// state; a barge-in turn owns the state by now.
	if o.state == StateSpeaking && o.spokenSeq == msg.Seq {
		if resume && o.voiceEnabled {
			o.state = StateListening
		} else {
			o.state = StateIdle
		}
	}
	final := o.state
	o.mu.Unlock()
	o.listener.OnState(final)
}

// history returns the session's turns in order as provider messages.
func (o *Orchestrator) history() []ai.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	history := make([]ai.Message, 0, len(o.session.Messages))
	for _, m := range o.session.Messages {
		history = append(history, ai.Message{Role: string(m.Role), Content: m.Content})
	}
	return history
}

// persist appends a message to the in-memory session and the store.
func (o *Orchestrator) persist(msg *models.Message) error {
	o.mu.Lock()
	o.session.Messages = append(o.session.Messages, msg)
	if len(o.session.Messages) > maxWindow {
		o.session.Messages = o.session.Messages[len(o.session.Messages)-maxWindow:]
	}
	o.mu.Unlock()

	return o.store.AppendMessages(o.session.ID, []*models.Message{msg})
}

// maxWindow mirrors the store's trailing message window so the in-memory
// view matches what a reload would produce.
const maxWindow = 20

func (o *Orchestrator) maybeSetTitle(text string) {
	o.mu.Lock()
	needsTitle := o.session.Title == "" && len(o.session.Messages) > 0
	o.mu.Unlock()
	if !needsTitle {
		return
	}

	title := text
	if runes := []rune(title); len(runes) > 30 {
		title = string(runes[:30])
	}
	o.session.Title = title
	if err := o.store.UpdateSessionTitle(o.session.ID, title); err != nil {
		logger.WithSession(o.session.UID).Warn("failed to set session title", zap.Error(err))
	}
}

func (o *Orchestrator) toIdle() {
	o.mu.Lock()
	o.state = StateIdle
	o.mu.Unlock()
	o.listener.OnState(StateIdle)
}

// presentableError maps a provider error to the localized text rendered as
// a visible assistant turn.
func presentableError(err error) string {
	switch ai.KindOf(err) {
	case ai.KindInvalidCredential:
		return "The assistant's API key was rejected. Please configure a valid key and try again."
	case ai.KindQuotaExceeded:
		return "The assistant is receiving too many requests right now. Please try again in a moment."
	default:
		return "Sorry, I ran into a problem answering that. Please try again."
	}
}

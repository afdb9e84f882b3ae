package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/krishimitra/krishimitra-api/internal/ai"
	"github.com/krishimitra/krishimitra-api/internal/config"
	"github.com/krishimitra/krishimitra-api/internal/conversation"
	"github.com/krishimitra/krishimitra-api/internal/knowledge"
	"github.com/krishimitra/krishimitra-api/internal/models"
	"github.com/krishimitra/krishimitra-api/internal/service"
	"github.com/krishimitra/krishimitra-api/internal/testutil"
)

// setupTestVoiceHandler creates a VoiceHandler with mock providers and a
// running Hub. Callers can configure the mock funcs before invoking handlers.
func setupTestVoiceHandler(speech *testutil.MockSpeechProvider, completion *testutil.MockCompletionProvider) *VoiceHandler {
	cfg := &config.Config{
		Prompts: &config.Prompts{Advisory: config.SinglePrompt{System: "advise farmers"}},
	}
	base, _ := knowledge.Parse([]byte("agro_zones: {}\nknowledge_chunks: []\n"))
	conversations := service.NewConversationService(cfg, &testutil.MockSessionRepo{}, knowledge.NewMatcher(base), completion)

	var speechProvider ai.SpeechProvider
	if speech != nil {
		speechProvider = speech
	}
	voice := service.NewVoiceService(cfg, speechProvider, nil)
	devices := service.NewDeviceService(cfg, &testutil.MockDeviceRepo{})

	hub := NewHub()
	go hub.Run()
	return NewVoiceHandler(hub, "test-secret", devices, conversations, voice)
}

// newTestClient creates a Client with a buffered Send channel and no real
// websocket.Conn. This works because the handler methods write to client.Send
// rather than Conn directly.
func newTestClient(hub *Hub, sessionUID string, deviceID uint) *Client {
	return &Client{
		Hub:        hub,
		Send:       make(chan []byte, 256),
		SessionUID: sessionUID,
		DeviceID:   deviceID,
	}
}

// newTestVoiceSession wires a voiceSession whose orchestrator speaks through
// the client-local synthesis fallback.
func newTestVoiceSession(vh *VoiceHandler, client *Client) *voiceSession {
	session := &models.Session{UID: client.SessionUID, DeviceID: client.DeviceID}
	session.ID = 1
	device := &models.Device{Locale: "hi", VoiceGender: "female"}

	speaker := conversation.NewSpeaker(&clientSynthOutput{client: client, locale: device.SpeechLocale()})
	vs := &voiceSession{device: device}
	vs.orch = vh.Conversations.Attach(session, speaker, &wsListener{client: client}, false)
	return vs
}

// readMessage reads a single WSMessage from the client's Send channel with a
// short timeout to prevent tests from hanging.
func readMessage(t *testing.T, client *Client) WSMessage {
	t.Helper()
	select {
	case data := <-client.Send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("failed to unmarshal message from Send channel: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message on Send channel")
		return WSMessage{}
	}
}

// collectUntil reads messages until one of the wanted type arrives, keeping
// the full sequence for assertions.
func collectUntil(t *testing.T, client *Client, msgType string) []WSMessage {
	t.Helper()
	var seen []WSMessage
	for i := 0; i < 20; i++ {
		msg := readMessage(t, client)
		seen = append(seen, msg)
		if msg.Type == msgType {
			return seen
		}
	}
	t.Fatalf("never saw a %q message, got %+v", msgType, seen)
	return nil
}

func TestHandleUtteranceEnd_TranscribesAndAnswers(t *testing.T) {
	speech := &testutil.MockSpeechProvider{
		TranscribeFn: func(ctx context.Context, audioData []byte, language string) (string, error) {
			if string(audioData) != "webm-bytes" {
				t.Errorf("unexpected audio payload: %q", audioData)
			}
			if language != "hi" {
				t.Errorf("language = %q, want hi", language)
			}
			return "mera tamatar kharab hai", nil
		},
	}
	completion := &testutil.MockCompletionProvider{
		CompleteStreamFn: func(ctx context.Context, history []ai.Message, systemPrompt string, onDelta func(string)) (string, error) {
			onDelta("Neem oil ")
			onDelta("will help.")
			return "Neem oil will help.", nil
		},
	}
	vh := setupTestVoiceHandler(speech, completion)
	client := newTestClient(vh.Hub, "sess-1", 7)
	vs := newTestVoiceSession(vh, client)

	chunk, _ := json.Marshal(AudioChunkPayload{
		Data: base64.StdEncoding.EncodeToString([]byte("webm-bytes")),
	})
	vh.handleAudioChunk(client, vs, chunk)
	vh.handleUtteranceEnd(client, vs)

	seen := collectUntil(t, client, MsgTypeAssistantMessage)

	var transcript *TranscriptPayload
	var assistant *AssistantMessagePayload
	deltas := 0
	for _, msg := range seen {
		switch msg.Type {
		case MsgTypeTranscript:
			transcript = &TranscriptPayload{}
			json.Unmarshal(msg.Payload, transcript)
		case MsgTypeDelta:
			deltas++
		case MsgTypeAssistantMessage:
			assistant = &AssistantMessagePayload{}
			json.Unmarshal(msg.Payload, assistant)
		}
	}

	if transcript == nil || transcript.Text != "mera tamatar kharab hai" {
		t.Fatalf("transcript not forwarded: %+v", transcript)
	}
	if deltas != 2 {
		t.Errorf("expected 2 streamed deltas, got %d", deltas)
	}
	if assistant == nil || assistant.Content != "Neem oil will help." {
		t.Fatalf("assistant message not forwarded: %+v", assistant)
	}

	// Voice replies fall back to client-local synthesis without a TTS key.
	speak := collectUntil(t, client, MsgTypeSpeakText)
	var payload SpeakTextPayload
	json.Unmarshal(speak[len(speak)-1].Payload, &payload)
	if payload.Text == "" || payload.Locale != "hi-IN" {
		t.Fatalf("speak_text payload: %+v", payload)
	}
}

func TestHandleUtteranceEnd_TranscriptionFailure(t *testing.T) {
	speech := &testutil.MockSpeechProvider{
		TranscribeFn: func(ctx context.Context, audioData []byte, language string) (string, error) {
			return "", ai.NewProviderError(ai.KindQuotaExceeded, "rate limited", nil)
		},
	}
	vh := setupTestVoiceHandler(speech, &testutil.MockCompletionProvider{})
	client := newTestClient(vh.Hub, "sess-1", 7)
	vs := newTestVoiceSession(vh, client)

	chunk, _ := json.Marshal(AudioChunkPayload{
		Data: base64.StdEncoding.EncodeToString([]byte("audio")),
	})
	vh.handleAudioChunk(client, vs, chunk)
	vh.handleUtteranceEnd(client, vs)

	seen := collectUntil(t, client, MsgTypeError)
	var errPayload ErrorPayload
	json.Unmarshal(seen[len(seen)-1].Payload, &errPayload)
	if errPayload.Kind != string(ai.KindQuotaExceeded) {
		t.Fatalf("error kind = %q", errPayload.Kind)
	}
}

func TestHandleUtteranceEnd_NoHostedSTT(t *testing.T) {
	vh := setupTestVoiceHandler(nil, &testutil.MockCompletionProvider{})
	client := newTestClient(vh.Hub, "sess-1", 7)
	vs := newTestVoiceSession(vh, client)

	vh.handleUtteranceEnd(client, vs)

	seen := collectUntil(t, client, MsgTypeError)
	var errPayload ErrorPayload
	json.Unmarshal(seen[len(seen)-1].Payload, &errPayload)
	if errPayload.Kind != string(ai.KindRecognitionUnsupported) {
		t.Fatalf("error kind = %q, want recognition_unsupported", errPayload.Kind)
	}
}

func TestHandleMessage_ClientTranscriptRunsTurn(t *testing.T) {
	completion := &testutil.MockCompletionProvider{
		CompleteStreamFn: func(ctx context.Context, history []ai.Message, systemPrompt string, onDelta func(string)) (string, error) {
			return "Answer about onions.", nil
		},
	}
	vh := setupTestVoiceHandler(nil, completion)
	client := newTestClient(vh.Hub, "sess-1", 7)
	vs := newTestVoiceSession(vh, client)

	payload, _ := json.Marshal(TranscriptPayload{Text: "onion storage tips"})
	data, _ := json.Marshal(WSMessage{Type: MsgTypeTranscript, Payload: payload})
	vh.handleMessage(client, vs, data)

	seen := collectUntil(t, client, MsgTypeAssistantMessage)
	var assistant AssistantMessagePayload
	json.Unmarshal(seen[len(seen)-1].Payload, &assistant)
	if assistant.Content != "Answer about onions." {
		t.Fatalf("assistant content = %q", assistant.Content)
	}
}

func TestHandleMessage_UnknownType(t *testing.T) {
	vh := setupTestVoiceHandler(nil, &testutil.MockCompletionProvider{})
	client := newTestClient(vh.Hub, "sess-1", 7)
	vs := newTestVoiceSession(vh, client)

	data, _ := json.Marshal(WSMessage{Type: "bogus"})
	vh.handleMessage(client, vs, data)

	msg := readMessage(t, client)
	if msg.Type != MsgTypeError {
		t.Fatalf("expected error, got %q", msg.Type)
	}
}

func TestSendMessage_AfterDisconnect(t *testing.T) {
	vh := setupTestVoiceHandler(nil, &testutil.MockCompletionProvider{})
	client := newTestClient(vh.Hub, "sess-1", 7)

	client.closeSend()
	client.closeSend() // must be idempotent

	// A turn goroutine finishing after the connection dropped must have its
	// messages dropped, not crash the process.
	sendMessage(client, MsgTypeAssistantMessage, AssistantMessagePayload{Content: "late reply"})
	sendMessage(client, MsgTypeDelta, DeltaPayload{Text: "late fragment"})

	if client.trySend([]byte("raw")) {
		t.Fatal("trySend must refuse a closed client")
	}
}

func TestRunTurn_AfterDisconnectCompletesQuietly(t *testing.T) {
	inCompletion := make(chan struct{})
	release := make(chan struct{})
	completion := &testutil.MockCompletionProvider{
		CompleteStreamFn: func(ctx context.Context, history []ai.Message, systemPrompt string, onDelta func(string)) (string, error) {
			close(inCompletion)
			<-release
			return "answer nobody hears", nil
		},
	}
	vh := setupTestVoiceHandler(nil, completion)
	client := newTestClient(vh.Hub, "sess-1", 7)
	vs := newTestVoiceSession(vh, client)

	vh.runTurn(client, vs, "question")
	<-inCompletion

	// Simulate the connection teardown racing the in-flight turn.
	vs.orch.Interrupt()
	client.closeSend()
	close(release)

	// The turn goroutine's late events must be swallowed; give it a moment
	// to finish without panicking.
	time.Sleep(100 * time.Millisecond)
}

func TestHandleAudioChunk_RejectsOversizedUtterance(t *testing.T) {
	vh := setupTestVoiceHandler(&testutil.MockSpeechProvider{}, &testutil.MockCompletionProvider{})
	client := newTestClient(vh.Hub, "sess-1", 7)
	vs := newTestVoiceSession(vh, client)

	big := make([]byte, service.MaxUtteranceBytes+1)
	chunk, _ := json.Marshal(AudioChunkPayload{Data: base64.StdEncoding.EncodeToString(big)})
	vh.handleAudioChunk(client, vs, chunk)

	seen := collectUntil(t, client, MsgTypeError)
	if len(seen) == 0 {
		t.Fatal("expected an error for an oversized utterance")
	}
	vs.mu.Lock()
	if vs.audio.Len() != 0 {
		t.Fatal("oversized utterance buffer must be discarded")
	}
	vs.mu.Unlock()
}

package ws

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/krishimitra/krishimitra-api/internal/ai"
	"github.com/krishimitra/krishimitra-api/internal/conversation"
	"github.com/krishimitra/krishimitra-api/internal/logger"
	"github.com/krishimitra/krishimitra-api/internal/middleware"
	"github.com/krishimitra/krishimitra-api/internal/models"
	"github.com/krishimitra/krishimitra-api/internal/service"
	"go.uber.org/zap"
)

// WebSocket message types for the voice protocol.
const (
	MsgTypeAudioChunk       = "audio_chunk"       // Client streams utterance audio
	MsgTypeUtteranceEnd     = "utterance_end"     // Client finalizes the utterance
	MsgTypeTranscript       = "transcript"        // Recognized user text (either direction)
	MsgTypeState            = "state"             // Session state change
	MsgTypeDelta            = "delta"             // Streaming completion fragment
	MsgTypeAssistantMessage = "assistant_message" // Full assistant turn
	MsgTypeAudio            = "audio"             // Synthesized speech frames
	MsgTypeSpeakText        = "speak_text"        // Client-local synthesis fallback
	MsgTypeVoiceOn          = "voice_on"          // Re-enable voice replies
	MsgTypeVoiceOff         = "voice_off"         // Disable voice replies
	MsgTypeError            = "error"             // Error message
	MsgTypeConnected        = "connected"         // Connection confirmed
)

// WSMessage is the envelope for all messages sent over the voice WebSocket.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AudioChunkPayload carries one base64 chunk of recorded audio.
type AudioChunkPayload struct {
	Data string `json:"data"`
}

// TranscriptPayload carries recognized user text. The client sends it when
// it ran its own recognizer; the server sends it after hosted transcription.
type TranscriptPayload struct {
	Text string `json:"text"`
}

// StatePayload announces a session state change.
type StatePayload struct {
	State string `json:"state"`
}

// DeltaPayload carries one streaming completion fragment.
type DeltaPayload struct {
	Text string `json:"text"`
}

// AssistantMessagePayload carries a full assistant turn.
type AssistantMessagePayload struct {
	Seq     int    `json:"seq"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// AudioPayload carries one base64 frame of synthesized speech. Final marks
// the end of the utterance's audio.
type AudioPayload struct {
	Data  string `json:"data,omitempty"`
	Final bool   `json:"final,omitempty"`
}

// SpeakTextPayload tells the client to synthesize the reply locally.
type SpeakTextPayload struct {
	Text   string `json:"text"`
	Locale string `json:"locale"`
}

// ErrorPayload carries an error message to the client.
type ErrorPayload struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// ConnectedPayload confirms a successful connection.
type ConnectedPayload struct {
	SessionUID   string `json:"session_id"`
	SpeechLocale string `json:"speech_locale"`
	// HostedSTT tells the client whether to stream audio chunks or run its
	// local recognizer and send transcripts.
	HostedSTT bool `json:"hosted_stt"`
	HostedTTS bool `json:"hosted_tts"`
}

// VoiceHandler manages WebSocket connections for voice sessions.
type VoiceHandler struct {
	Hub           *Hub
	JwtSecret     string
	Devices       *service.DeviceService
	Conversations *service.ConversationService
	Voice         *service.VoiceService
}

// NewVoiceHandler returns a new VoiceHandler.
func NewVoiceHandler(hub *Hub, jwtSecret string, devices *service.DeviceService, conversations *service.ConversationService, voice *service.VoiceService) *VoiceHandler {
	return &VoiceHandler{
		Hub:           hub,
		JwtSecret:     jwtSecret,
		Devices:       devices,
		Conversations: conversations,
		Voice:         voice,
	}
}

// upgrader is configured for voice WebSocket upgrades.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		switch origin {
		case "https://krishimitra.app",
			"https://www.krishimitra.app",
			"https://api.krishimitra.app":
			return true
		}
		// Allow localhost for development
		if strings.HasPrefix(origin, "http://localhost:") || origin == "http://localhost" {
			return true
		}
		return false
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// voiceSession is the per-connection state: the orchestrator driving turns
// and the audio buffer accumulating the current utterance.
type voiceSession struct {
	device *models.Device
	orch   *conversation.Orchestrator

	mu    sync.Mutex
	audio bytes.Buffer
}

// HandleVoiceSession upgrades an HTTP request to a WebSocket connection for
// a voice session. Authentication is done via a "token" query parameter
// because WebSocket connections cannot easily use Authorization headers.
func (vh *VoiceHandler) HandleVoiceSession(c *gin.Context) {
	log := logger.Get()

	sessionUID := c.Param("session_id")
	if sessionUID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "session_id is required"})
		return
	}

	deviceID, err := middleware.ParseAccessToken(c.Query("token"), vh.JwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
		return
	}

	device, err := vh.Devices.GetDeviceByID(deviceID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unknown device"})
		return
	}

	session, err := vh.Conversations.GetSessionForDevice(deviceID, sessionUID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "session not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed",
			zap.String("session_id", sessionUID),
			zap.Uint("device_id", deviceID),
			zap.Error(err),
		)
		return
	}

	client := &Client{
		Hub:        vh.Hub,
		Conn:       conn,
		Send:       make(chan []byte, 256),
		SessionUID: sessionUID,
		DeviceID:   deviceID,
	}
	vh.Hub.Register <- client

	vs := &voiceSession{device: device}
	speaker := conversation.NewSpeaker(vh.outputFor(client, device))
	vs.orch = vh.Conversations.Attach(session, speaker, &wsListener{client: client}, device.AlwaysListen)

	sendMessage(client, MsgTypeConnected, ConnectedPayload{
		SessionUID:   sessionUID,
		SpeechLocale: device.SpeechLocale(),
		HostedSTT:    vh.Voice.CanTranscribe(),
		HostedTTS:    vh.Voice.CanSynthesize(),
	})

	log.Info("voice session started",
		zap.String("session_id", sessionUID),
		zap.Uint("device_id", deviceID),
	)

	go client.WritePump()
	go func() {
		client.ReadPump(func(cl *Client, data []byte) {
			vh.handleMessage(cl, vs, data)
		})
		// Connection gone: abandon any in-flight turn, stop playback, and
		// free the orchestrator.
		vs.orch.Interrupt()
		vh.Conversations.Release(sessionUID, vs.orch)
	}()
}

// outputFor picks the playback backend: hosted synthesis streamed to the
// client when a TTS credential is configured, client-local synthesis
// otherwise. The choice is fixed per connection, never probed per turn.
func (vh *VoiceHandler) outputFor(client *Client, device *models.Device) conversation.Output {
	if vh.Voice.CanSynthesize() {
		return &remoteVoiceOutput{
			client: client,
			voice:  vh.Voice,
			name:   vh.Voice.VoiceFor(device),
		}
	}
	return &clientSynthOutput{client: client, locale: device.SpeechLocale()}
}

// handleMessage parses an incoming WebSocket message and routes it to the
// appropriate handler.
func (vh *VoiceHandler) handleMessage(client *Client, vs *voiceSession, data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		vh.sendError(client, "invalid message format", "")
		return
	}

	switch msg.Type {
	case MsgTypeAudioChunk:
		vh.handleAudioChunk(client, vs, msg.Payload)

	case MsgTypeUtteranceEnd:
		vh.handleUtteranceEnd(client, vs)

	case MsgTypeTranscript:
		var payload TranscriptPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Text == "" {
			vh.sendError(client, "transcript text is required", "")
			return
		}
		vh.runTurn(client, vs, payload.Text)

	case MsgTypeVoiceOff:
		vs.orch.SetVoiceEnabled(false)

	case MsgTypeVoiceOn:
		vs.orch.SetVoiceEnabled(true)

	default:
		vh.sendError(client, "unknown message type: "+msg.Type, "")
	}
}

// handleAudioChunk appends one chunk to the current utterance buffer.
func (vh *VoiceHandler) handleAudioChunk(client *Client, vs *voiceSession, payload json.RawMessage) {
	var chunk AudioChunkPayload
	if err := json.Unmarshal(payload, &chunk); err != nil {
		vh.sendError(client, "invalid audio chunk payload", "")
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(chunk.Data)
	if err != nil {
		vh.sendError(client, "audio data is not valid base64", "")
		return
	}

	vs.mu.Lock()
	defer vs.mu.Unlock()
	if vs.audio.Len()+len(decoded) > service.MaxUtteranceBytes {
		vs.audio.Reset()
		vh.sendError(client, "utterance exceeds the 4 MB limit", "")
		return
	}
	vs.audio.Write(decoded)
	vs.orch.SetListening(true)
}

// handleUtteranceEnd transcribes the buffered utterance and runs the turn.
func (vh *VoiceHandler) handleUtteranceEnd(client *Client, vs *voiceSession) {
	vs.mu.Lock()
	audio := make([]byte, vs.audio.Len())
	copy(audio, vs.audio.Bytes())
	vs.audio.Reset()
	vs.mu.Unlock()
	vs.orch.SetListening(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	transcript, err := vh.Voice.Transcribe(ctx, audio, vs.device)
	if err != nil {
		logger.WithSession(client.SessionUID).Warn("transcription failed", zap.Error(err))
		vh.sendError(client, "could not understand the audio", string(ai.KindOf(err)))
		return
	}

	sendMessage(client, MsgTypeTranscript, TranscriptPayload{Text: transcript})
	vh.runTurn(client, vs, transcript)
}

// runTurn submits one user turn. The orchestrator emits state, delta and
// assistant_message events through the listener; here only submission
// errors need reporting.
func (vh *VoiceHandler) runTurn(client *Client, vs *voiceSession, text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		_, err := vs.orch.Submit(ctx, text)
		switch {
		case errors.Is(err, conversation.ErrBusy):
			vh.sendError(client, "still answering the previous question", "")
		case errors.Is(err, conversation.ErrStale):
			// Superseded turn, nothing to report.
		case err != nil:
			logger.WithSession(client.SessionUID).Error("voice turn failed", zap.Error(err))
			vh.sendError(client, "failed to answer", "")
		}
	}()
}

func (vh *VoiceHandler) sendError(client *Client, message, kind string) {
	sendMessage(client, MsgTypeError, ErrorPayload{Message: message, Kind: kind})
}

// sendMessage marshals and queues a message. A full send buffer or a
// disconnected client drops it; turn goroutines can outlive the connection.
func sendMessage(client *Client, msgType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	data, err := json.Marshal(WSMessage{Type: msgType, Payload: raw})
	if err != nil {
		return
	}
	client.trySend(data)
}

// wsListener forwards orchestration events to the connected client.
type wsListener struct {
	client *Client
}

func (l *wsListener) OnState(state conversation.State) {
	sendMessage(l.client, MsgTypeState, StatePayload{State: state.String()})
}

func (l *wsListener) OnDelta(fragment string) {
	sendMessage(l.client, MsgTypeDelta, DeltaPayload{Text: fragment})
}

func (l *wsListener) OnAssistantMessage(msg *models.Message) {
	sendMessage(l.client, MsgTypeAssistantMessage, AssistantMessagePayload{
		Seq:     msg.Seq,
		Content: msg.Content,
		IsError: msg.IsError,
	})
}

// audioFrameSize is the synthesized-audio chunk size sent to the client.
const audioFrameSize = 32 * 1024

// remoteVoiceOutput streams hosted TTS audio to the client as base64
// frames. Play blocks until the stream is fully forwarded or ctx is
// cancelled.
type remoteVoiceOutput struct {
	client *Client
	voice  *service.VoiceService
	name   string
}

func (o *remoteVoiceOutput) Play(ctx context.Context, text string) error {
	stream, err := o.voice.Voice.Synthesize(ctx, text, o.name)
	if err != nil {
		return err
	}
	defer stream.Close()

	buf := make([]byte, audioFrameSize)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := stream.Read(buf)
		if n > 0 {
			sendMessage(o.client, MsgTypeAudio, AudioPayload{
				Data: base64.StdEncoding.EncodeToString(buf[:n]),
			})
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	sendMessage(o.client, MsgTypeAudio, AudioPayload{Final: true})
	return nil
}

// clientSynthOutput delegates playback to the client's local synthesizer.
// Play returns immediately; the client owns playback timing.
type clientSynthOutput struct {
	client *Client
	locale string
}

func (o *clientSynthOutput) Play(ctx context.Context, text string) error {
	sendMessage(o.client, MsgTypeSpeakText, SpeakTextPayload{Text: text, Locale: o.locale})
	return nil
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/krishimitra/krishimitra-api/internal/ai"
	"github.com/krishimitra/krishimitra-api/internal/config"
	"github.com/krishimitra/krishimitra-api/internal/models"
)

// MaxUtteranceBytes caps a single recorded utterance at 4 MiB.
const MaxUtteranceBytes = 4 << 20

// VoiceService bridges the voice transport to the speech providers. Speech
// is optional at runtime: when no STT credential is configured the client
// is told to use its local recognizer, and when no TTS credential is
// configured replies fall back to client-local synthesis.
type VoiceService struct {
	Cfg    *config.Config
	Speech ai.SpeechProvider // nil when no STT credential is configured
	Voice  ai.VoiceProvider  // nil when no TTS credential is configured
}

// NewVoiceService is the constructor function for initializing a new VoiceService.
func NewVoiceService(cfg *config.Config, speech ai.SpeechProvider, voice ai.VoiceProvider) *VoiceService {
	return &VoiceService{
		Cfg:    cfg,
		Speech: speech,
		Voice:  voice,
	}
}

// CanTranscribe reports whether hosted speech-to-text is available.
func (s *VoiceService) CanTranscribe() bool {
	return s.Speech != nil
}

// CanSynthesize reports whether hosted text-to-speech is available.
func (s *VoiceService) CanSynthesize() bool {
	return s.Voice != nil
}

// Transcribe converts a finalized utterance to text for the device's
// locale. Blank transcripts are surfaced as an error so the caller does
// not run an empty turn.
func (s *VoiceService) Transcribe(ctx context.Context, audio []byte, device *models.Device) (string, error) {
	if s.Speech == nil {
		return "", ai.NewProviderError(ai.KindRecognitionUnsupported,
			"no speech-to-text credential configured", nil)
	}
	if len(audio) == 0 {
		return "", errors.New("empty utterance")
	}
	if len(audio) > MaxUtteranceBytes {
		return "", errors.New("utterance exceeds the 4 MB limit")
	}

	transcript, err := s.Speech.Transcribe(ctx, audio, speechLanguage(device))
	if err != nil {
		return "", err
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", errors.New("nothing was recognized")
	}
	return transcript, nil
}

// VoiceFor maps a device's preference to the synthesis voice name.
func (s *VoiceService) VoiceFor(device *models.Device) string {
	if device != nil && device.VoiceGender == "male" {
		return "male"
	}
	return "female"
}

// speechLanguage maps the device locale to the two-letter language hint the
// transcription model accepts.
func speechLanguage(device *models.Device) string {
	if device == nil {
		return "en"
	}
	switch device.Locale {
	case "hi":
		return "hi"
	case "mr":
		return "mr"
	default:
		return "en"
	}
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/krishimitra/krishimitra-api/internal/ai"
	"github.com/krishimitra/krishimitra-api/internal/config"
	"github.com/krishimitra/krishimitra-api/internal/models"
	"github.com/krishimitra/krishimitra-api/internal/repository"
)

// SchemeService answers government-scheme questions through the completion
// provider and persists per-device bookmarks.
type SchemeService struct {
	Cfg        *config.Config
	Completion ai.CompletionProvider
	Bookmarks  repository.BookmarkRepo
}

// FarmerProfile is the input for a scheme recommendation.
type FarmerProfile struct {
	State       string  `json:"state"`
	District    string  `json:"district"`
	LandAcres   float64 `json:"land_acres"`
	Crops       string  `json:"crops"`
	FarmerType  string  `json:"farmer_type"` // smallholder, tenant, fpo member
	Irrigation  string  `json:"irrigation"`
	HasKCC      bool    `json:"has_kcc"`
	Language    string  `json:"language"`
}

// NewSchemeService is the constructor function for initializing a new SchemeService.
func NewSchemeService(cfg *config.Config, completion ai.CompletionProvider, bookmarks repository.BookmarkRepo) *SchemeService {
	return &SchemeService{
		Cfg:        cfg,
		Completion: completion,
		Bookmarks:  bookmarks,
	}
}

// ExplainScheme streams a localized explanation of a named scheme through
// onDelta and returns the full text.
func (s *SchemeService) ExplainScheme(ctx context.Context, schemeName, language string, onDelta func(string)) (string, error) {
	schemeName = strings.TrimSpace(schemeName)
	if schemeName == "" {
		return "", errors.New("scheme name is required")
	}
	if language == "" {
		language = "en"
	}

	userPrompt, err := config.RenderPrompt(s.Cfg.Prompts.Scheme.Explain.User, map[string]interface{}{
		"SchemeName": schemeName,
		"Language":   language,
	})
	if err != nil {
		return "", err
	}

	history := []ai.Message{{Role: ai.RoleUser, Content: userPrompt}}
	return s.Completion.CompleteStream(ctx, history, s.Cfg.Prompts.Scheme.Explain.System, onDelta)
}

// RecommendSchemes returns scheme recommendations for a farmer profile.
func (s *SchemeService) RecommendSchemes(ctx context.Context, profile FarmerProfile) (string, error) {
	if profile.Language == "" {
		profile.Language = "en"
	}

	userPrompt, err := config.RenderPrompt(s.Cfg.Prompts.Scheme.Recommend.User, map[string]interface{}{
		"State":      profile.State,
		"District":   profile.District,
		"LandAcres":  profile.LandAcres,
		"Crops":      profile.Crops,
		"FarmerType": profile.FarmerType,
		"Irrigation": profile.Irrigation,
		"HasKCC":     profile.HasKCC,
		"Language":   profile.Language,
	})
	if err != nil {
		return "", err
	}

	history := []ai.Message{{Role: ai.RoleUser, Content: userPrompt}}
	return s.Completion.Complete(ctx, history, s.Cfg.Prompts.Scheme.Recommend.System)
}

// BookmarkScheme saves a scheme for a device.
func (s *SchemeService) BookmarkScheme(deviceID uint, schemeName, note string) (*models.SchemeBookmark, error) {
	schemeName = strings.TrimSpace(schemeName)
	if schemeName == "" {
		return nil, errors.New("scheme name is required")
	}
	return s.Bookmarks.CreateBookmark(&models.SchemeBookmark{
		DeviceID:   deviceID,
		SchemeName: schemeName,
		Note:       note,
	})
}

// ListBookmarks returns a device's saved schemes.
func (s *SchemeService) ListBookmarks(deviceID uint) ([]*models.SchemeBookmark, error) {
	return s.Bookmarks.ListBookmarksByDevice(deviceID)
}

// DeleteBookmark removes a saved scheme.
func (s *SchemeService) DeleteBookmark(deviceID, bookmarkID uint) error {
	return s.Bookmarks.DeleteBookmark(deviceID, bookmarkID)
}

package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/krishimitra/krishimitra-api/internal/ai"
	"github.com/krishimitra/krishimitra-api/internal/config"
	"github.com/krishimitra/krishimitra-api/internal/logger"
	"github.com/krishimitra/krishimitra-api/internal/s3"
	"github.com/krishimitra/krishimitra-api/internal/util"
	"go.uber.org/zap"
)

// MaxDiagnosisImageBytes caps pest-photo uploads at 8 MiB.
const MaxDiagnosisImageBytes = 8 << 20

// DiagnosisService runs pest diagnosis over an uploaded crop photo.
type DiagnosisService struct {
	Cfg    *config.Config
	Vision ai.VisionProvider
}

// DiagnosisResponse is the response object for a pest diagnosis.
type DiagnosisResponse struct {
	UID      string             `json:"uid"`
	ImageURL string             `json:"image_url,omitempty"`
	Result   ai.DiagnosisResult `json:"result"`
}

// NewDiagnosisService is the constructor function for initializing a new DiagnosisService.
func NewDiagnosisService(cfg *config.Config, vision ai.VisionProvider) *DiagnosisService {
	return &DiagnosisService{
		Cfg:    cfg,
		Vision: vision,
	}
}

var diagnosisContentTypes = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Diagnose stores the photo, sends it to the vision model with the
// diagnosis prompt, and parses the structured result. Storage is best
// effort: a missing bucket or failed upload never blocks the diagnosis.
func (s *DiagnosisService) Diagnose(ctx context.Context, deviceID uint, imgBytes []byte, contentType string) (*DiagnosisResponse, error) {
	if s.Vision == nil {
		return nil, ai.NewProviderError(ai.KindMissingCredential,
			"no vision-capable provider configured", nil)
	}
	if len(imgBytes) == 0 {
		return nil, errors.New("image is required")
	}
	if len(imgBytes) > MaxDiagnosisImageBytes {
		return nil, errors.New("image exceeds the 8 MB limit")
	}
	if _, ok := diagnosisContentTypes[contentType]; !ok {
		return nil, fmt.Errorf("unsupported image type %q", contentType)
	}

	uid := uuid.New().String()
	imageURL := ""
	if s.Cfg.EnvVars.S3Bucket != "" {
		location, err := s3.UploadDiagnosisImageToS3(ctx, s.Cfg, imgBytes, s3.GenerateS3Key(deviceID, uid))
		if err != nil {
			logger.Get().Warn("diagnosis image upload failed", zap.Uint("device_id", deviceID), zap.Error(err))
		} else {
			imageURL = location
		}
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(imgBytes))
	raw, err := s.Vision.CompleteJSON(ctx, s.Cfg.Prompts.Diagnosis.System, dataURL)
	if err != nil {
		return nil, err
	}

	var result ai.DiagnosisResult
	if err := util.DeserializeFromJSONString(util.ExtractJSONDocument(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to parse diagnosis output: %v", err)
	}

	return &DiagnosisResponse{UID: uid, ImageURL: imageURL, Result: result}, nil
}

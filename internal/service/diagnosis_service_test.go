package service

import (
	"context"
	"testing"

	"github.com/krishimitra/krishimitra-api/internal/ai"
	"github.com/krishimitra/krishimitra-api/internal/config"
	"github.com/krishimitra/krishimitra-api/internal/testutil"
)

func newDiagnosisService(vision *testutil.MockVisionProvider) *DiagnosisService {
	cfg := &config.Config{
		Prompts: &config.Prompts{
			Diagnosis: config.SinglePrompt{System: "diagnose the crop problem as JSON"},
		},
	}
	return NewDiagnosisService(cfg, vision)
}

const diagnosisJSON = `{
	"crop": "Tomato",
	"problem": "Early blight",
	"symptoms": "Dark concentric spots on lower leaves",
	"cause": "Alternaria solani fungus",
	"severity": "moderate",
	"treatment": ["Remove affected leaves", "Spray mancozeb"],
	"solutionType": "chemical",
	"organicOption": "Neem oil spray weekly",
	"prevention": "Rotate crops and avoid overhead irrigation"
}`

func TestDiagnose_ParsesResult(t *testing.T) {
	vision := &testutil.MockVisionProvider{
		CompleteJSONFn: func(ctx context.Context, prompt, imageDataURL string) (string, error) {
			if prompt != "diagnose the crop problem as JSON" {
				t.Errorf("wrong prompt: %q", prompt)
			}
			return diagnosisJSON, nil
		},
	}
	svc := newDiagnosisService(vision)

	resp, err := svc.Diagnose(context.Background(), 1, []byte{0xff, 0xd8, 0xff}, "image/jpeg")
	if err != nil {
		t.Fatalf("Diagnose error: %v", err)
	}
	if resp.Result.Crop != "Tomato" || resp.Result.Problem != "Early blight" {
		t.Fatalf("result not parsed: %+v", resp.Result)
	}
	if len(resp.Result.Treatment) != 2 {
		t.Fatalf("treatment list not parsed: %+v", resp.Result.Treatment)
	}
	if resp.UID == "" {
		t.Fatal("diagnosis needs a uid")
	}
}

func TestDiagnose_StripsCodeFences(t *testing.T) {
	vision := &testutil.MockVisionProvider{
		CompleteJSONFn: func(ctx context.Context, prompt, imageDataURL string) (string, error) {
			return "```json\n" + diagnosisJSON + "\n```", nil
		},
	}
	svc := newDiagnosisService(vision)

	resp, err := svc.Diagnose(context.Background(), 1, []byte{0x89, 0x50}, "image/png")
	if err != nil {
		t.Fatalf("fenced JSON should still parse: %v", err)
	}
	if resp.Result.Severity != "moderate" {
		t.Fatalf("result not parsed: %+v", resp.Result)
	}
}

func TestDiagnose_WithoutVisionProvider(t *testing.T) {
	cfg := &config.Config{Prompts: &config.Prompts{}}
	svc := NewDiagnosisService(cfg, nil)

	_, err := svc.Diagnose(context.Background(), 1, []byte{0xff, 0xd8, 0xff}, "image/jpeg")
	if !ai.IsKind(err, ai.KindMissingCredential) {
		t.Fatalf("credential-less diagnosis should report missing_credential, got %v", err)
	}
}

func TestDiagnose_RejectsBadInput(t *testing.T) {
	svc := newDiagnosisService(&testutil.MockVisionProvider{})

	if _, err := svc.Diagnose(context.Background(), 1, nil, "image/jpeg"); err == nil {
		t.Error("empty image accepted")
	}
	if _, err := svc.Diagnose(context.Background(), 1, []byte{1}, "application/pdf"); err == nil {
		t.Error("non-image content type accepted")
	}
	big := make([]byte, MaxDiagnosisImageBytes+1)
	if _, err := svc.Diagnose(context.Background(), 1, big, "image/jpeg"); err == nil {
		t.Error("oversized image accepted")
	}
}

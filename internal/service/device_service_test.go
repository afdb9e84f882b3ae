package service

import (
	"testing"

	"github.com/krishimitra/krishimitra-api/internal/config"
	"github.com/krishimitra/krishimitra-api/internal/models"
	"github.com/krishimitra/krishimitra-api/internal/testutil"
)

func newDeviceService(repo *testutil.MockDeviceRepo) *DeviceService {
	return NewDeviceService(&config.Config{}, repo)
}

func TestRegisterDevice_HashesSecret(t *testing.T) {
	var created *models.Device
	repo := &testutil.MockDeviceRepo{
		CreateDeviceFn: func(device *models.Device) (*models.Device, error) {
			created = device
			return device, nil
		},
	}
	svc := newDeviceService(repo)

	device, secret, err := svc.RegisterDevice("hi", "male")
	if err != nil {
		t.Fatalf("RegisterDevice error: %v", err)
	}
	if secret == "" {
		t.Fatal("plaintext secret must be returned once")
	}
	if created.SecretHash == secret {
		t.Fatal("secret must be stored hashed, not in plaintext")
	}
	if device.UID == "" {
		t.Fatal("device needs a public uid")
	}
	if device.Locale != "hi" || device.VoiceGender != "male" {
		t.Fatalf("preferences not applied: %+v", device)
	}
}

func TestRegisterDevice_Defaults(t *testing.T) {
	svc := newDeviceService(&testutil.MockDeviceRepo{})

	device, _, err := svc.RegisterDevice("", "")
	if err != nil {
		t.Fatalf("RegisterDevice error: %v", err)
	}
	if device.Locale != "en" || device.VoiceGender != "female" {
		t.Fatalf("defaults not applied: %+v", device)
	}
}

func TestRegisterDevice_RejectsUnknownLocale(t *testing.T) {
	svc := newDeviceService(&testutil.MockDeviceRepo{})
	if _, _, err := svc.RegisterDevice("fr", "female"); err == nil {
		t.Fatal("expected an error for an unsupported locale")
	}
}

func TestAuthenticateDevice(t *testing.T) {
	repo := &testutil.MockDeviceRepo{}
	svc := newDeviceService(repo)

	var stored *models.Device
	repo.CreateDeviceFn = func(device *models.Device) (*models.Device, error) {
		stored = device
		return device, nil
	}
	repo.GetDeviceByUIDFn = func(uid string) (*models.Device, error) {
		return stored, nil
	}

	_, secret, err := svc.RegisterDevice("en", "female")
	if err != nil {
		t.Fatalf("RegisterDevice error: %v", err)
	}

	if _, err := svc.AuthenticateDevice(stored.UID, secret); err != nil {
		t.Fatalf("valid secret rejected: %v", err)
	}
	if _, err := svc.AuthenticateDevice(stored.UID, "wrong-secret"); err == nil {
		t.Fatal("invalid secret accepted")
	}
}

func TestSpeechLocaleMapping(t *testing.T) {
	cases := map[string]string{"en": "en-IN", "hi": "hi-IN", "mr": "mr-IN", "": "en-IN"}
	for locale, want := range cases {
		d := &models.Device{Locale: locale}
		if got := d.SpeechLocale(); got != want {
			t.Errorf("SpeechLocale(%q) = %q, want %q", locale, got, want)
		}
	}
}

package auth

import (
	"errors"
	"testing"
	"time"
)

func TestDeviceToken(t *testing.T) {
	token := DeviceToken("pixel-7", "secret")
	if len(token) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(token))
	}
	if !VerifyDeviceToken("pixel-7", token, "secret") {
		t.Fatal("expected token to be valid")
	}
	if VerifyDeviceToken("pixel-8", token, "secret") {
		t.Fatal("token must be bound to the device id")
	}
	if VerifyDeviceToken("pixel-7", token, "other") {
		t.Fatal("token must be bound to the secret")
	}
	if VerifyDeviceToken("pixel-7", "not-hex", "secret") {
		t.Fatal("unexpected valid token")
	}
}

func TestManagerRoundTrip(t *testing.T) {
	m, err := NewManager("signing-key")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	token, err := m.NewJWT("pixel-7", time.Hour)
	if err != nil {
		t.Fatalf("NewJWT: %v", err)
	}
	subject, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if subject != "pixel-7" {
		t.Fatalf("expected pixel-7, got %s", subject)
	}
}

func TestManagerRejects(t *testing.T) {
	if _, err := NewManager(""); err == nil {
		t.Fatal("expected error for empty key")
	}

	m, _ := NewManager("signing-key")
	other, _ := NewManager("other-key")

	foreign, _ := other.NewJWT("pixel-7", time.Hour)
	if _, err := m.Parse(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	expired, _ := m.NewJWT("pixel-7", -time.Minute)
	if _, err := m.Parse(expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

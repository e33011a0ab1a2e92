package util

import (
	"errors"
	"testing"
	"time"
)

func TestTokenSigner_IssueAndValidate(t *testing.T) {
	signer := NewTokenSigner([]byte("test-secret"), 15*time.Minute)

	token, err := signer.Issue("demo")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := signer.Validate("demo", token); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestTokenSigner_TokenIsPadBound(t *testing.T) {
	signer := NewTokenSigner([]byte("test-secret"), 15*time.Minute)

	token, err := signer.Issue("demo")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := signer.Validate("other", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token for one pad must not open another, got %v", err)
	}
}

func TestTokenSigner_Expiry(t *testing.T) {
	signer := NewTokenSigner([]byte("test-secret"), -time.Minute)

	token, err := signer.Issue("demo")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := signer.Validate("demo", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestTokenSigner_Garbage(t *testing.T) {
	signer := NewTokenSigner([]byte("test-secret"), 15*time.Minute)

	for _, token := range []string{"", "no-dot", "a.b", "!!!.###"} {
		if err := signer.Validate("demo", token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Validate(%q) = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestTokenSigner_MissingSecret(t *testing.T) {
	signer := NewTokenSigner(nil, 15*time.Minute)

	if _, err := signer.Issue("demo"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("Issue: expected ErrMissingSecret, got %v", err)
	}
	if err := signer.Validate("demo", "x.y"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("Validate: expected ErrMissingSecret, got %v", err)
	}
}

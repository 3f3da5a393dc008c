package token

import (
	"errors"
	"testing"
	"time"
)

func TestSignAndVerify_Success(t *testing.T) {
	t.Parallel()

	codec := NewCodec("account-service", "super-secret", time.Hour)

	tok, err := codec.Sign("account-123")
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	subject, err := codec.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if subject != "account-123" {
		t.Fatalf("subject mismatch: got %q want %q", subject, "account-123")
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	codec := NewCodec("account-service", "secret", -1*time.Second)

	tok, err := codec.Sign("a1")
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	_, err = codec.Verify(tok)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerify_CrossCodec(t *testing.T) {
	t.Parallel()

	access := NewCodec("account-service", "access-secret", time.Hour)
	refresh := NewCodec("account-service", "refresh-secret", time.Hour)

	tok, err := access.Sign("a2")
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	_, err = refresh.Verify(tok)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for cross-codec token, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	codec := NewCodec("account-service", "k", time.Hour)

	for _, tok := range []string{"", "garbage", "not.a.jwt"} {
		if _, err := codec.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", tok, err)
		}
	}
}

func TestExtractSubject_SkipsVerification(t *testing.T) {
	t.Parallel()

	codec := NewCodec("account-service", "secret", -1*time.Second)

	tok, err := codec.Sign("a3")
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	// подпись и срок не проверяются, subject достается даже из
	// просроченного токена
	subject, err := codec.ExtractSubject(tok)
	if err != nil {
		t.Fatalf("ExtractSubject error: %v", err)
	}
	if subject != "a3" {
		t.Fatalf("subject mismatch: got %q want %q", subject, "a3")
	}
}

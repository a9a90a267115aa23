package auth

import (
	"testing"
	"time"
)

func TestToken_RoundTrip(t *testing.T) {
	token := NewToken("test-secret")

	signed, err := token.Generate("client-42")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	ok, clientID, err := token.Verify(signed)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected token to verify")
	}
	if clientID != "client-42" {
		t.Errorf("client id = %q, want client-42", clientID)
	}
}

func TestToken_WrongSecret(t *testing.T) {
	signed, err := NewToken("secret-a").Generate("client")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if ok, _, err := NewToken("secret-b").Verify(signed); ok || err == nil {
		t.Fatal("expected verification failure with a different secret")
	}
}

func TestToken_Expired(t *testing.T) {
	token := NewToken("test-secret").WithTTL(time.Nanosecond)
	signed, err := token.Generate("client")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if ok, _, err := token.Verify(signed); ok || err == nil {
		t.Fatal("expected expired token to fail verification")
	}
}

func TestToken_EmptySecret(t *testing.T) {
	if _, err := NewToken("").Generate("client"); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

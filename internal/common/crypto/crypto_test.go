package crypto

import (
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndCompare(t *testing.T) {
	h := &BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := h.Hash("password123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if hash == "password123" {
		t.Fatal("hash must not equal the plain password")
	}
	if err := h.Compare(hash, "password123"); err != nil {
		t.Errorf("expected matching password, got %v", err)
	}
	if err := h.Compare(hash, "wrong-password1"); err == nil {
		t.Error("expected mismatch error")
	}
}

func TestUUIDGenerator_NewID(t *testing.T) {
	g := NewUUIDGenerator()

	a, err := g.NewID()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b, _ := g.NewID()

	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("expected valid uuid, got %q", a)
	}
	if a == b {
		t.Error("expected distinct ids")
	}
}

func TestRandomHex(t *testing.T) {
	token, err := RandomHex(32)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(token) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(token))
	}
}

func TestSHA256Hex_Deterministic(t *testing.T) {
	if SHA256Hex("abc") != SHA256Hex("abc") {
		t.Error("expected deterministic hash")
	}
	if SHA256Hex("abc") == SHA256Hex("abd") {
		t.Error("expected different hashes for different input")
	}
	if len(SHA256Hex("abc")) != 64 {
		t.Error("expected 64 hex chars")
	}
}

package assertion

import (
	"strings"
	"testing"
	"time"

	"github.com/badgehub/badgehub-api/internal/models"
)

func TestSignAndParse(t *testing.T) {
	signer := NewSigner("test-secret", "pepper", "http://badges.test")
	badge := &models.Badge{Shortname: "night-owl", Name: "Night Owl"}
	issuedOn := time.Now()

	signed, hash, err := signer.Sign(badge, "owl@x.org", issuedOn)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if signed == "" || hash == "" {
		t.Fatal("empty assertion or hash")
	}

	claims, err := signer.Parse(signed)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := claims["badge"]; got != "http://badges.test/badge/night-owl.json" {
		t.Errorf("badge URL = %v", got)
	}
	recipient, ok := claims["recipient"].(map[string]any)
	if !ok {
		t.Fatalf("recipient claim = %v", claims["recipient"])
	}
	if recipient["identity"] != signer.HashIdentity("owl@x.org") {
		t.Error("recipient identity does not match hashed email")
	}
	if recipient["identity"] == signer.HashIdentity("someone-else@x.org") {
		t.Error("identity hash ignores the email")
	}
	if issued, ok := claims["issuedOn"].(float64); !ok || int64(issued) != issuedOn.Unix() {
		t.Errorf("issuedOn = %v", claims["issuedOn"])
	}
}

func TestHashIdentityFormat(t *testing.T) {
	signer := NewSigner("s", "salty", "http://badges.test")
	identity := signer.HashIdentity("a@b.c")
	if !strings.HasPrefix(identity, "sha256$") {
		t.Errorf("identity = %q", identity)
	}
	if len(identity) != len("sha256$")+64 {
		t.Errorf("unexpected digest length in %q", identity)
	}

	// Same salt, same email: stable. Different salt: different.
	if identity != NewSigner("s", "salty", "x").HashIdentity("a@b.c") {
		t.Error("hash not deterministic")
	}
	if identity == NewSigner("s", "other", "x").HashIdentity("a@b.c") {
		t.Error("salt has no effect")
	}
}

func TestSign_DistinctHashes(t *testing.T) {
	signer := NewSigner("test-secret", "pepper", "http://badges.test")
	badge := &models.Badge{Shortname: "twice"}

	_, hash1, err := signer.Sign(badge, "a@x.org", time.Now())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	_, hash2, err := signer.Sign(badge, "a@x.org", time.Now())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if hash1 == hash2 {
		t.Error("assertion hashes must be unique per award")
	}
}

func TestParse_RejectsTampering(t *testing.T) {
	signer := NewSigner("test-secret", "pepper", "http://badges.test")
	badge := &models.Badge{Shortname: "sealed"}

	signed, _, err := signer.Sign(badge, "a@x.org", time.Now())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if _, err := NewSigner("wrong-secret", "pepper", "http://badges.test").Parse(signed); err == nil {
		t.Error("assertion verified with the wrong secret")
	}
	if _, err := signer.Parse(signed[:len(signed)-2]); err == nil {
		t.Error("truncated assertion verified")
	}
}

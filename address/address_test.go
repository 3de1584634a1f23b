package address

import (
	"crypto/rand"
	"strings"
	"testing"
)

func TestDerive_Deterministic(t *testing.T) {
	pub := make([]byte, 1952)
	if _, err := rand.Read(pub); err != nil {
		t.Fatalf("rand: %v", err)
	}

	a, err := Derive(pub)
	if err != nil {
		t.Fatalf("Derive(1): %v", err)
	}
	b, err := Derive(pub)
	if err != nil {
		t.Fatalf("Derive(2): %v", err)
	}
	if a != b {
		t.Fatalf("same key derived different addresses: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, HRP+"1") {
		t.Fatalf("address %q does not carry prefix %q", a, HRP)
	}
}

func TestDerive_NoCollisionsOverManyKeys(t *testing.T) {
	// Distinct public key bytes must yield distinct addresses. Random byte
	// strings stand in for real keys; derivation only sees bytes.
	const n = 2000
	seen := make(map[string]struct{}, n)
	pub := make([]byte, 64)
	for i := 0; i < n; i++ {
		if _, err := rand.Read(pub); err != nil {
			t.Fatalf("rand: %v", err)
		}
		addr, err := Derive(pub)
		if err != nil {
			t.Fatalf("Derive: %v", err)
		}
		if _, dup := seen[addr]; dup {
			t.Fatalf("address collision after %d keys: %s", i, addr)
		}
		seen[addr] = struct{}{}
	}
}

func TestDerive_EmptyKeyRejected(t *testing.T) {
	if _, err := Derive(nil); err == nil {
		t.Fatalf("expected error for empty public key")
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	pub := []byte("some public key bytes for round trip")
	addr, err := Derive(pub)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	payload, err := Decode(addr)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(payload) != PayloadSize {
		t.Fatalf("payload length %d, want %d", len(payload), PayloadSize)
	}
}

func TestValidate_Rejections(t *testing.T) {
	pub := []byte("pk")
	addr, err := Derive(pub)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	cases := map[string]string{
		"empty":          "",
		"not bech32":     "dyt1!!!!",
		"wrong prefix":   strings.Replace(addr, "dyt1", "cosmos1", 1),
		"checksum break": addr[:len(addr)-1] + flipLastChar(addr),
	}
	for name, bad := range cases {
		if err := Validate(bad); err == nil {
			t.Errorf("%s: Validate(%q) accepted", name, bad)
		}
	}

	if err := Validate(addr); err != nil {
		t.Fatalf("Validate(valid): %v", err)
	}
}

func flipLastChar(s string) string {
	last := s[len(s)-1]
	if last == 'q' {
		return "p"
	}
	return "q"
}

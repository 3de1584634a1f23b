// Package archivetest runs the shared conformance suite every archive.Store
// implementation must pass.
package archivetest

import (
	"bytes"
	"testing"

	"github.com/ipfs/go-cid"

	"dytallix.io/pqcwallet/archive"
)

// NewStore constructs a fresh, empty store isolated from other tests.
type NewStore func(t *testing.T) archive.Store

func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		want := []byte(`{"tx":{"nonce":1}}`)

		id, err := s.Put(want)
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		wantID, err := archive.CID(want)
		if err != nil {
			t.Fatalf("CID: %v", err)
		}
		if id != wantID {
			t.Fatalf("Put CID: got %s want %s", id, wantID)
		}

		got, err := s.Get(id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		s := newStore(t)
		b := []byte("same bytes")

		id1, err := s.Put(b)
		if err != nil {
			t.Fatalf("Put(1): %v", err)
		}
		id2, err := s.Put(b)
		if err != nil {
			t.Fatalf("Put(2): %v", err)
		}
		if id1 != id2 {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		s := newStore(t)
		b := []byte("missing")
		id, err := archive.CID(b)
		if err != nil {
			t.Fatalf("CID: %v", err)
		}

		if s.Has(id) {
			t.Fatalf("Has true for missing CID")
		}
		if _, err := s.Get(id); !archive.IsNotFound(err) {
			t.Fatalf("Get missing: got %v, want ErrNotFound", err)
		}

		if _, err := s.Put(b); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if !s.Has(id) {
			t.Fatalf("Has false after Put")
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		s := newStore(t)
		var undef cid.Cid
		if s.Has(undef) {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := s.Get(undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
	})
}

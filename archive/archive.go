// Package archive is a content-addressed, immutable record of submitted
// signed-transaction envelopes.
//
// Envelopes are keyed by the CID of their canonical encoding, so the same
// logical envelope always maps to the same CID no matter which client
// archived it. Stores never overwrite: content under a CID is immutable.
package archive

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"dytallix.io/pqcwallet/canonical"
	"dytallix.io/pqcwallet/tx"
)

var (
	ErrNotFound    = errors.New("archive: not found")
	ErrInvalidCID  = errors.New("archive: invalid cid")
	ErrCIDMismatch = errors.New("archive: cid mismatch")
	ErrImmutable   = errors.New("archive: immutable object mismatch")
)

// IsNotFound reports whether err is an absent-object error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Store is the archive storage boundary.
//
// Contract:
// - Put is idempotent and derives the CID from the bytes written.
// - Stored objects are immutable.
// - Get returns ErrNotFound when the CID is absent and re-verifies the
//   returned bytes against the requested CID.
type Store interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

// CID derives the CIDv1 (raw codec, sha2-256) of data.
func CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// EnvelopeBytes returns the canonical encoding of a signed envelope, the only
// form the archive stores. Canonicalizing here keeps the CID independent of
// the field order a particular JSON encoder happened to emit.
func EnvelopeBytes(env *tx.SignedTx) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("archive: nil envelope")
	}
	return canonical.Encode(env)
}

// PutEnvelope verifies and archives a signed envelope, returning its CID.
// Unverifiable envelopes never enter the archive.
func PutEnvelope(s Store, env *tx.SignedTx) (cid.Cid, error) {
	if s == nil {
		return cid.Undef, fmt.Errorf("archive: nil store")
	}
	if err := env.Verify(); err != nil {
		return cid.Undef, fmt.Errorf("archive: refusing unverifiable envelope: %w", err)
	}
	b, err := EnvelopeBytes(env)
	if err != nil {
		return cid.Undef, err
	}
	return s.Put(b)
}

// GetEnvelope loads an archived envelope and re-verifies its signature.
func GetEnvelope(s Store, id cid.Cid) (*tx.SignedTx, error) {
	if s == nil {
		return nil, fmt.Errorf("archive: nil store")
	}
	b, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	env, err := tx.UnmarshalSigned(b)
	if err != nil {
		return nil, fmt.Errorf("archive: %s: %w", id, err)
	}
	if err := env.Verify(); err != nil {
		return nil, fmt.Errorf("archive: %s: %w", id, err)
	}
	return env, nil
}

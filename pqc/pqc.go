// Package pqc wraps the ML-DSA (FIPS 204) signature primitives behind a
// strict, injectable boundary.
//
// The underlying lattice arithmetic comes from cloudflare/circl and is treated
// as a trusted black box. This package owns the boundary contract: byte lengths
// are validated on every crossing, Verify never panics or errors on malformed
// input (it returns false), and all keys and signatures are raw byte slices in
// the scheme's standard encoding.
package pqc

import (
	"encoding"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/schemes"
)

// Supported algorithm identifiers. Each names an exact FIPS 204 parameter set.
const (
	MLDSA44 = "ML-DSA-44" // NIST security category 2
	MLDSA65 = "ML-DSA-65" // NIST security category 3
	MLDSA87 = "ML-DSA-87" // NIST security category 5
)

// DefaultAlgorithm is used when callers do not ask for a specific parameter set.
const DefaultAlgorithm = MLDSA65

var (
	ErrUnknownAlgorithm = errors.New("pqc: unknown algorithm")
	ErrPublicKeySize    = errors.New("pqc: invalid public key length")
	ErrSecretKeySize    = errors.New("pqc: invalid secret key length")
	ErrSign             = errors.New("pqc: signing failed")
)

// Scheme is an ML-DSA signature scheme at a fixed parameter set.
//
// A Scheme is an immutable value and safe for concurrent use. Construct one
// with ByName or Default and inject it where signing or verification is
// needed; there is no package-level singleton. The zero Scheme carries no
// primitive: its operations fail with ErrUnknownAlgorithm, Verify returns
// false, and the size accessors report zero.
type Scheme struct {
	name string
	impl sign.Scheme
}

// ByName returns the Scheme for an algorithm identifier.
//
// Unknown identifiers are a configuration error: signing cannot proceed
// without a working primitive, so callers should fail fast.
func ByName(name string) (Scheme, error) {
	switch name {
	case MLDSA44, MLDSA65, MLDSA87:
	default:
		return Scheme{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	impl := schemes.ByName(name)
	if impl == nil {
		return Scheme{}, fmt.Errorf("%w: %q not present in primitive library", ErrUnknownAlgorithm, name)
	}
	return Scheme{name: name, impl: impl}, nil
}

// Default returns the ML-DSA-65 scheme.
func Default() Scheme {
	s, err := ByName(DefaultAlgorithm)
	if err != nil {
		// The default parameter set is compiled into the primitive library;
		// its absence means the binary is unusable.
		panic(err)
	}
	return s
}

// Name returns the algorithm identifier.
func (s Scheme) Name() string { return s.name }

// PublicKeySize returns the fixed public key length in bytes.
func (s Scheme) PublicKeySize() int {
	if s.impl == nil {
		return 0
	}
	return s.impl.PublicKeySize()
}

// SecretKeySize returns the fixed secret key length in bytes.
func (s Scheme) SecretKeySize() int {
	if s.impl == nil {
		return 0
	}
	return s.impl.PrivateKeySize()
}

// SignatureSize returns the fixed signature length in bytes.
func (s Scheme) SignatureSize() int {
	if s.impl == nil {
		return 0
	}
	return s.impl.SignatureSize()
}

func (s Scheme) check() error {
	if s.impl == nil {
		return fmt.Errorf("%w: zero Scheme, construct with ByName or Default", ErrUnknownAlgorithm)
	}
	return nil
}

// GenerateKey produces a fresh key pair from the library's CSPRNG
// (crypto/rand via circl).
func (s Scheme) GenerateKey() (pub, sec []byte, err error) {
	if err := s.check(); err != nil {
		return nil, nil, err
	}
	pk, sk, err := s.impl.GenerateKey()
	if err != nil {
		return nil, nil, fmt.Errorf("pqc: keygen: %w", err)
	}
	pub, err = pk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("pqc: keygen: %w", err)
	}
	sec, err = sk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("pqc: keygen: %w", err)
	}
	return pub, sec, nil
}

// Sign signs message with the secret key and returns the raw signature bytes.
// The message is signed as-is; callers hash first where the protocol requires.
func (s Scheme) Sign(sec, message []byte) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if len(sec) != s.SecretKeySize() {
		return nil, fmt.Errorf("%w: got %d want %d", ErrSecretKeySize, len(sec), s.SecretKeySize())
	}
	sk, err := s.impl.UnmarshalBinaryPrivateKey(sec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSecretKeySize, err)
	}
	return s.safeSign(sk, message)
}

// Verify reports whether sig is a valid signature of message under pub.
//
// Malformed input of any kind (wrong-length key or signature, undecodable key
// bytes) yields false, never a panic or an error.
func (s Scheme) Verify(pub, message, sig []byte) (ok bool) {
	if s.impl == nil {
		return false
	}
	if len(pub) != s.PublicKeySize() || len(sig) != s.SignatureSize() {
		return false
	}
	pk, err := s.impl.UnmarshalBinaryPublicKey(pub)
	if err != nil {
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return s.impl.Verify(pk, message, sig, nil)
}

// PublicKeyFromSecret re-derives the public key from an ML-DSA secret key.
// The secret key encoding carries everything needed; wrong-length or
// undecodable input is rejected before any derivation.
func (s Scheme) PublicKeyFromSecret(sec []byte) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if len(sec) != s.SecretKeySize() {
		return nil, fmt.Errorf("%w: got %d want %d", ErrSecretKeySize, len(sec), s.SecretKeySize())
	}
	sk, err := s.impl.UnmarshalBinaryPrivateKey(sec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSecretKeySize, err)
	}
	pk, ok := sk.Public().(encoding.BinaryMarshaler)
	if !ok {
		return nil, errors.New("pqc: primitive cannot derive public key from secret key")
	}
	pub, err := pk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("pqc: derive public key: %w", err)
	}
	if len(pub) != s.PublicKeySize() {
		return nil, ErrPublicKeySize
	}
	return pub, nil
}

// ValidatePublicKey rejects public keys of the wrong length or encoding.
func (s Scheme) ValidatePublicKey(pub []byte) error {
	if err := s.check(); err != nil {
		return err
	}
	if len(pub) != s.PublicKeySize() {
		return fmt.Errorf("%w: got %d want %d", ErrPublicKeySize, len(pub), s.PublicKeySize())
	}
	if _, err := s.impl.UnmarshalBinaryPublicKey(pub); err != nil {
		return fmt.Errorf("%w: %v", ErrPublicKeySize, err)
	}
	return nil
}

func (s Scheme) safeSign(sk sign.PrivateKey, message []byte) (sig []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig, err = nil, fmt.Errorf("%w: %v", ErrSign, r)
		}
	}()
	return s.impl.Sign(sk, message, nil), nil
}

// Zero overwrites b in place. Best-effort secret hygiene: Go's runtime may
// have copied the slice's backing array, so this reduces, not eliminates,
// secret residue in memory.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

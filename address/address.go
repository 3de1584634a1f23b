// Package address derives and validates Dytallix account identifiers.
//
// An address is the bech32 encoding, with human-readable prefix "dyt", of the
// first 20 bytes of the SHA3-256 digest of the raw public key. This local
// derivation is the single authoritative path; the bech32 checksum provides
// error detection and the fixed prefix distinguishes Dytallix addresses from
// other networks.
package address

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/sha3"
)

// HRP is the fixed bech32 human-readable prefix for Dytallix accounts.
const HRP = "dyt"

// PayloadSize is the length of the hashed public key material in an address.
const PayloadSize = 20

var (
	ErrEmptyPublicKey = errors.New("address: empty public key")
	ErrInvalid        = errors.New("address: invalid")
)

// Derive returns the account address for a raw public key.
//
// Derive is a pure function: identical public key bytes always yield the
// identical address string.
func Derive(pub []byte) (string, error) {
	if len(pub) == 0 {
		return "", ErrEmptyPublicKey
	}
	sum := sha3.Sum256(pub)
	conv, err := bech32.ConvertBits(sum[:PayloadSize], 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("address: convert bits: %w", err)
	}
	addr, err := bech32.Encode(HRP, conv)
	if err != nil {
		return "", fmt.Errorf("address: encode: %w", err)
	}
	return addr, nil
}

// Decode validates addr and returns the 20-byte hashed key payload.
func Decode(addr string) ([]byte, error) {
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if hrp != HRP {
		return nil, fmt.Errorf("%w: prefix %q, want %q", ErrInvalid, hrp, HRP)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(payload) != PayloadSize {
		return nil, fmt.Errorf("%w: payload length %d, want %d", ErrInvalid, len(payload), PayloadSize)
	}
	return payload, nil
}

// Validate reports whether addr is a well-formed Dytallix address.
func Validate(addr string) error {
	_, err := Decode(addr)
	return err
}

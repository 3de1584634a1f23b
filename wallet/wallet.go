// Package wallet ties the signing scheme, address derivation, transaction
// encoding, and keystore together behind one type.
//
// A Wallet holds a live secret key in memory. Callers that are done with a
// wallet should call Zero; the wipe is best effort, Go gives no guarantee
// the garbage collector has not already copied the bytes.
package wallet

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"dytallix.io/pqcwallet/address"
	"dytallix.io/pqcwallet/keystore"
	"dytallix.io/pqcwallet/pqc"
	"dytallix.io/pqcwallet/tx"
)

// ErrNoSecretKey marks a signing attempt on a zeroed or verify-only wallet.
var ErrNoSecretKey = errors.New("wallet: no secret key")

// Wallet is a single keypair bound to its derived address.
type Wallet struct {
	scheme pqc.Scheme
	addr   string
	pub    []byte
	sec    []byte
}

// Generate creates a fresh wallet with the given algorithm ("" selects the
// default, ML-DSA-65).
func Generate(algorithm string) (*Wallet, error) {
	if algorithm == "" {
		algorithm = pqc.DefaultAlgorithm
	}
	scheme, err := pqc.ByName(algorithm)
	if err != nil {
		return nil, err
	}
	pub, sec, err := scheme.GenerateKey()
	if err != nil {
		return nil, err
	}
	return fromKeyPair(scheme, pub, sec)
}

// FromSecretKey reconstructs a wallet from raw secret key bytes. The public
// key and address are re-derived, never trusted from the caller.
func FromSecretKey(algorithm string, sec []byte) (*Wallet, error) {
	scheme, err := pqc.ByName(algorithm)
	if err != nil {
		return nil, err
	}
	pub, err := scheme.PublicKeyFromSecret(sec)
	if err != nil {
		return nil, err
	}
	return fromKeyPair(scheme, pub, sec)
}

// FromKeystore decrypts a keystore and reconstructs the wallet, verifying the
// stored public key and address against the recovered secret key.
func FromKeystore(k *keystore.Keystore, password string) (*Wallet, error) {
	if k == nil {
		return nil, fmt.Errorf("%w: nil keystore", keystore.ErrMalformed)
	}
	scheme, err := pqc.ByName(k.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", keystore.ErrMalformed, err)
	}
	sec, pub, err := keystore.Open(k, password, scheme)
	if err != nil {
		return nil, err
	}
	return fromKeyPair(scheme, pub, sec)
}

func fromKeyPair(scheme pqc.Scheme, pub, sec []byte) (*Wallet, error) {
	addr, err := address.Derive(pub)
	if err != nil {
		return nil, err
	}
	return &Wallet{scheme: scheme, addr: addr, pub: pub, sec: sec}, nil
}

// Address returns the bech32 wallet address.
func (w *Wallet) Address() string { return w.addr }

// Algorithm returns the signing algorithm name.
func (w *Wallet) Algorithm() string { return w.scheme.Name() }

// PublicKey returns a copy of the raw public key bytes.
func (w *Wallet) PublicKey() []byte {
	out := make([]byte, len(w.pub))
	copy(out, w.pub)
	return out
}

// PublicKeyB64 returns the public key in the wire encoding.
func (w *Wallet) PublicKeyB64() string {
	return base64.StdEncoding.EncodeToString(w.pub)
}

// Sign signs an arbitrary message with the wallet's secret key.
func (w *Wallet) Sign(msg []byte) ([]byte, error) {
	if len(w.sec) == 0 {
		return nil, ErrNoSecretKey
	}
	return w.scheme.Sign(w.sec, msg)
}

// Verify reports whether sig is a valid signature by this wallet over msg.
func (w *Wallet) Verify(msg, sig []byte) bool {
	return w.scheme.Verify(w.pub, msg, sig)
}

// VerifyWith checks a signature against an arbitrary public key, for callers
// that hold key bytes but no wallet.
func VerifyWith(scheme pqc.Scheme, pub, msg, sig []byte) bool {
	return scheme.Verify(pub, msg, sig)
}

// SignTx validates, canonical-encodes, and signs a transaction, returning the
// submittable envelope.
func (w *Wallet) SignTx(t *tx.Tx, gasLimit, gasPrice uint64) (*tx.SignedTx, error) {
	if len(w.sec) == 0 {
		return nil, ErrNoSecretKey
	}
	return tx.Sign(w.scheme, t, w.sec, w.pub, gasLimit, gasPrice)
}

// ExportKeystore seals the wallet's secret key under password.
func (w *Wallet) ExportKeystore(password string, params keystore.KDFParams) (*keystore.Keystore, error) {
	if len(w.sec) == 0 {
		return nil, ErrNoSecretKey
	}
	return keystore.Encrypt(w.sec, w.pub, w.addr, w.scheme.Name(), password, params)
}

// plainKey is the unencrypted export shape. For trusted channels only.
type plainKey struct {
	Address   string `json:"address"`
	Algorithm string `json:"algorithm"`
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key"`
}

// MarshalPlain serializes the wallet including the secret key in cleartext.
// Only for explicitly trusted destinations; the keystore export is the safe
// default.
func (w *Wallet) MarshalPlain() ([]byte, error) {
	if len(w.sec) == 0 {
		return nil, ErrNoSecretKey
	}
	return json.MarshalIndent(plainKey{
		Address:   w.addr,
		Algorithm: w.scheme.Name(),
		PublicKey: base64.StdEncoding.EncodeToString(w.pub),
		SecretKey: base64.StdEncoding.EncodeToString(w.sec),
	}, "", "  ")
}

// UnmarshalPlain reconstructs a wallet from a cleartext export, re-deriving
// and cross-checking the public key and address.
func UnmarshalPlain(data []byte) (*Wallet, error) {
	var p plainKey
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("wallet: parse plain key: %w", err)
	}
	sec, err := base64.StdEncoding.DecodeString(p.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("wallet: secret key: %w", err)
	}
	w, err := FromSecretKey(p.Algorithm, sec)
	if err != nil {
		return nil, err
	}
	if p.Address != "" && p.Address != w.addr {
		w.Zero()
		return nil, fmt.Errorf("wallet: export address %s does not match derived %s", p.Address, w.addr)
	}
	return w, nil
}

// Zero wipes the in-memory secret key. The wallet can still verify afterwards
// but any signing attempt returns ErrNoSecretKey.
func (w *Wallet) Zero() {
	pqc.Zero(w.sec)
	w.sec = nil
}

// Package keystore encrypts wallet secret keys at rest behind a password.
//
// Version 1 scheme, fixed and versioned: scrypt derives 32 bytes from the
// password and a random salt; the first half encrypts the secret key with
// AES-128-CTR under a random IV; the second half keys a SHA3-256 MAC over the
// ciphertext. The MAC never sees the plaintext secret key, so a password can
// be checked without decrypting, and it is compared in constant time before
// any decryption is attempted.
package keystore

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/crypto/sha3"

	"dytallix.io/pqcwallet/address"
	"dytallix.io/pqcwallet/pqc"
)

// Version is the current keystore schema version. Field names and KDF defaults
// are a compatibility surface; any change bumps this and keeps old versions
// importable.
const Version = 1

const (
	cipherAES128CTR = "aes-128-ctr"
	kdfScrypt       = "scrypt"

	saltSize = 16
	ivSize   = 16
	dkLen    = 32
)

// KDFParams are the scrypt work parameters stored in the keystore.
type KDFParams struct {
	Salt  string `json:"salt"`
	N     int    `json:"n"`
	R     int    `json:"r"`
	P     int    `json:"p"`
	DKLen int    `json:"dklen"`
}

// DefaultKDFParams returns production scrypt parameters (~128 MiB, interactive
// latency). The work factor is a tunable knob: higher N trades import latency
// for brute-force resistance.
func DefaultKDFParams() KDFParams {
	return KDFParams{N: 1 << 17, R: 8, P: 1, DKLen: dkLen}
}

// LightKDFParams returns weakened parameters for tests only.
func LightKDFParams() KDFParams {
	return KDFParams{N: 1 << 12, R: 8, P: 1, DKLen: dkLen}
}

type cipherParams struct {
	IV string `json:"iv"`
}

type cryptoBlock struct {
	Cipher       string       `json:"cipher"`
	Ciphertext   string       `json:"ciphertext"`
	CipherParams cipherParams `json:"cipherparams"`
	KDF          string       `json:"kdf"`
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"`
}

// Keystore is the persisted, password-protected form of a wallet key.
// The address and public key are plaintext so stores can be indexed without
// decryption; only the secret key is encrypted.
type Keystore struct {
	Version   int         `json:"version"`
	Address   string      `json:"address"`
	Algorithm string      `json:"algorithm"`
	PublicKey string      `json:"publicKey"`
	Crypto    cryptoBlock `json:"crypto"`
}

// Encrypt seals a secret key under password with the version-1 scheme.
func Encrypt(sec, pub []byte, addr, algorithm, password string, params KDFParams) (*Keystore, error) {
	if len(sec) == 0 {
		return nil, fmt.Errorf("%w: empty secret key", ErrInvalidParams)
	}
	if err := checkKDFParams(params); err != nil {
		return nil, err
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("keystore: salt: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("keystore: iv: %w", err)
	}

	dk, err := scrypt.Key([]byte(password), salt, params.N, params.R, params.P, params.DKLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	defer pqc.Zero(dk)
	encKey, macKey := dk[:16], dk[16:32]

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("keystore: cipher: %w", err)
	}
	ct := make([]byte, len(sec))
	cipher.NewCTR(block, iv).XORKeyStream(ct, sec)

	params.Salt = hex.EncodeToString(salt)
	return &Keystore{
		Version:   Version,
		Address:   addr,
		Algorithm: algorithm,
		PublicKey: hex.EncodeToString(pub),
		Crypto: cryptoBlock{
			Cipher:       cipherAES128CTR,
			Ciphertext:   hex.EncodeToString(ct),
			CipherParams: cipherParams{IV: hex.EncodeToString(iv)},
			KDF:          kdfScrypt,
			KDFParams:    params,
			MAC:          hex.EncodeToString(computeMAC(macKey, ct)),
		},
	}, nil
}

// Decrypt recovers the secret key, verifying the password via the MAC before
// any decryption.
//
// A wrong password and a corrupted file are deliberately indistinguishable:
// both return ErrInvalidPassword.
func (k *Keystore) Decrypt(password string) ([]byte, error) {
	if err := k.validateStructure(); err != nil {
		return nil, err
	}

	salt, err := hex.DecodeString(k.Crypto.KDFParams.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", ErrMalformed, err)
	}
	iv, err := hex.DecodeString(k.Crypto.CipherParams.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: iv: %v", ErrMalformed, err)
	}
	ct, err := hex.DecodeString(k.Crypto.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", ErrMalformed, err)
	}
	mac, err := hex.DecodeString(k.Crypto.MAC)
	if err != nil {
		return nil, fmt.Errorf("%w: mac: %v", ErrMalformed, err)
	}

	p := k.Crypto.KDFParams
	dk, err := scrypt.Key([]byte(password), salt, p.N, p.R, p.P, p.DKLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	defer pqc.Zero(dk)
	encKey, macKey := dk[:16], dk[16:32]

	if subtle.ConstantTimeCompare(computeMAC(macKey, ct), mac) != 1 {
		return nil, ErrInvalidPassword
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("keystore: cipher: %w", err)
	}
	sec := make([]byte, len(ct))
	cipher.NewCTR(block, iv).XORKeyStream(sec, ct)
	return sec, nil
}

// Open decrypts the keystore and verifies internal consistency: the secret key
// must have the scheme's exact length, re-derive the stored public key, and
// that public key must re-derive the stored address.
func Open(k *Keystore, password string, scheme pqc.Scheme) (sec, pub []byte, err error) {
	if k == nil {
		return nil, nil, fmt.Errorf("%w: nil keystore", ErrMalformed)
	}
	if k.Algorithm != scheme.Name() {
		return nil, nil, fmt.Errorf("%w: keystore algorithm %q, scheme %q", ErrMalformed, k.Algorithm, scheme.Name())
	}

	sec, err = k.Decrypt(password)
	if err != nil {
		return nil, nil, err
	}
	if len(sec) != scheme.SecretKeySize() {
		pqc.Zero(sec)
		return nil, nil, fmt.Errorf("%w: secret key length %d, want %d", ErrIntegrity, len(sec), scheme.SecretKeySize())
	}

	storedPub, err := hex.DecodeString(k.PublicKey)
	if err != nil {
		pqc.Zero(sec)
		return nil, nil, fmt.Errorf("%w: public key: %v", ErrMalformed, err)
	}
	derivedPub, err := scheme.PublicKeyFromSecret(sec)
	if err != nil {
		pqc.Zero(sec)
		return nil, nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	if !bytes.Equal(storedPub, derivedPub) {
		pqc.Zero(sec)
		return nil, nil, fmt.Errorf("%w: stored public key does not match secret key", ErrIntegrity)
	}

	derivedAddr, err := address.Derive(derivedPub)
	if err != nil {
		pqc.Zero(sec)
		return nil, nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	if derivedAddr != k.Address {
		pqc.Zero(sec)
		return nil, nil, fmt.Errorf("%w: stored address does not match public key", ErrIntegrity)
	}
	return sec, derivedPub, nil
}

// PublicKeyBytes decodes the stored public key. No decryption happens; the
// public half is plaintext by design.
func (k *Keystore) PublicKeyBytes() ([]byte, error) {
	pub, err := hex.DecodeString(k.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %v", ErrMalformed, err)
	}
	return pub, nil
}

// Marshal renders the keystore JSON.
func (k *Keystore) Marshal() ([]byte, error) {
	return json.MarshalIndent(k, "", "  ")
}

// Unmarshal parses and structurally validates keystore JSON.
func Unmarshal(data []byte) (*Keystore, error) {
	var k Keystore
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := k.validateStructure(); err != nil {
		return nil, err
	}
	return &k, nil
}

func (k *Keystore) validateStructure() error {
	if k == nil {
		return fmt.Errorf("%w: nil keystore", ErrMalformed)
	}
	if k.Version != Version {
		return fmt.Errorf("%w: version %d", ErrUnsupportedVersion, k.Version)
	}
	if k.Crypto.Cipher != cipherAES128CTR {
		return fmt.Errorf("%w: cipher %q", ErrUnsupportedVersion, k.Crypto.Cipher)
	}
	if k.Crypto.KDF != kdfScrypt {
		return fmt.Errorf("%w: kdf %q", ErrUnsupportedVersion, k.Crypto.KDF)
	}
	if k.Address == "" || k.PublicKey == "" || k.Crypto.Ciphertext == "" || k.Crypto.MAC == "" {
		return fmt.Errorf("%w: missing required fields", ErrMalformed)
	}
	if err := checkKDFParams(k.Crypto.KDFParams); err != nil {
		return err
	}
	// The MAC covers only the ciphertext, so IV and salt damage would slip
	// past the password check. Reject wrong lengths here, before any key
	// derivation or cipher construction.
	iv, err := hex.DecodeString(k.Crypto.CipherParams.IV)
	if err != nil {
		return fmt.Errorf("%w: iv: %v", ErrMalformed, err)
	}
	if len(iv) != ivSize {
		return fmt.Errorf("%w: iv length %d, want %d", ErrMalformed, len(iv), ivSize)
	}
	salt, err := hex.DecodeString(k.Crypto.KDFParams.Salt)
	if err != nil {
		return fmt.Errorf("%w: salt: %v", ErrMalformed, err)
	}
	if len(salt) != saltSize {
		return fmt.Errorf("%w: salt length %d, want %d", ErrMalformed, len(salt), saltSize)
	}
	return nil
}

func checkKDFParams(p KDFParams) error {
	if p.N < 2 || p.N&(p.N-1) != 0 {
		return fmt.Errorf("%w: scrypt n=%d", ErrInvalidParams, p.N)
	}
	if p.R <= 0 || p.P <= 0 {
		return fmt.Errorf("%w: scrypt r=%d p=%d", ErrInvalidParams, p.R, p.P)
	}
	if p.DKLen < dkLen {
		return fmt.Errorf("%w: dklen=%d, need >= %d", ErrInvalidParams, p.DKLen, dkLen)
	}
	return nil
}

// computeMAC binds the MAC subkey to the ciphertext. The plaintext secret key
// is never an input.
func computeMAC(macKey, ciphertext []byte) []byte {
	h := sha3.New256()
	h.Write(macKey)
	h.Write(ciphertext)
	return h.Sum(nil)
}

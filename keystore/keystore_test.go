package keystore

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"dytallix.io/pqcwallet/address"
	"dytallix.io/pqcwallet/pqc"
)

const testPassword = "correct-horse-battery-staple"

func encryptedFixture(t *testing.T) (*Keystore, []byte, []byte, pqc.Scheme) {
	t.Helper()
	scheme := pqc.Default()
	pub, sec, err := scheme.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr, err := address.Derive(pub)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	k, err := Encrypt(sec, pub, addr, scheme.Name(), testPassword, LightKDFParams())
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	return k, sec, pub, scheme
}

func TestEncrypt_Decrypt_RoundTrip(t *testing.T) {
	k, sec, _, _ := encryptedFixture(t)

	got, err := k.Decrypt(testPassword)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if hex.EncodeToString(got) != hex.EncodeToString(sec) {
		t.Fatalf("decrypted secret differs from original")
	}

	// The secret key must not appear in the serialized keystore.
	raw, err := k.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(raw), hex.EncodeToString(sec[:32])) {
		t.Fatalf("plaintext secret key leaked into keystore JSON")
	}
}

func TestOpen_VerifiesConsistency(t *testing.T) {
	k, sec, pub, scheme := encryptedFixture(t)

	gotSec, gotPub, err := Open(k, testPassword, scheme)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if hex.EncodeToString(gotSec) != hex.EncodeToString(sec) {
		t.Fatalf("secret mismatch")
	}
	if hex.EncodeToString(gotPub) != hex.EncodeToString(pub) {
		t.Fatalf("public mismatch")
	}
}

func TestDecrypt_WrongPassword(t *testing.T) {
	k, _, _, _ := encryptedFixture(t)
	if _, err := k.Decrypt("wrong-password"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	k, _, _, _ := encryptedFixture(t)
	ct, err := hex.DecodeString(k.Crypto.Ciphertext)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ct[len(ct)/2] ^= 0x01
	k.Crypto.Ciphertext = hex.EncodeToString(ct)
	if _, err := k.Decrypt(testPassword); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestDecrypt_TamperedMAC(t *testing.T) {
	k, _, _, _ := encryptedFixture(t)
	mac, _ := hex.DecodeString(k.Crypto.MAC)
	mac[0] ^= 0xff
	k.Crypto.MAC = hex.EncodeToString(mac)
	if _, err := k.Decrypt(testPassword); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestDecrypt_MalformedIV(t *testing.T) {
	cases := []struct {
		name string
		iv   string
	}{
		{"truncated", "00112233"},
		{"oversized", strings.Repeat("ab", 17)},
		{"empty", ""},
		{"not hex", "zz"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k, _, _, _ := encryptedFixture(t)
			k.Crypto.CipherParams.IV = tc.iv
			if _, err := k.Decrypt(testPassword); !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestDecrypt_MalformedSalt(t *testing.T) {
	k, _, _, _ := encryptedFixture(t)
	k.Crypto.KDFParams.Salt = "0011"
	if _, err := k.Decrypt(testPassword); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestDecrypt_UnsupportedVersion(t *testing.T) {
	k, _, _, _ := encryptedFixture(t)
	k.Version = 2
	if _, err := k.Decrypt(testPassword); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestUnmarshal_Rejections(t *testing.T) {
	cases := []struct {
		name string
		data string
		want error
	}{
		{"not json", `{`, ErrMalformed},
		{"empty object", `{}`, ErrUnsupportedVersion},
		{"unknown cipher", `{"version":1,"address":"a","publicKey":"ab","crypto":{"cipher":"aes-256-gcm","kdf":"scrypt","ciphertext":"ab","mac":"ab","kdfparams":{"n":4096,"r":8,"p":1,"dklen":32}}}`, ErrUnsupportedVersion},
		{"unknown kdf", `{"version":1,"address":"a","publicKey":"ab","crypto":{"cipher":"aes-128-ctr","kdf":"pbkdf2","ciphertext":"ab","mac":"ab","kdfparams":{"n":4096,"r":8,"p":1,"dklen":32}}}`, ErrUnsupportedVersion},
		{"missing mac", `{"version":1,"address":"a","publicKey":"ab","crypto":{"cipher":"aes-128-ctr","kdf":"scrypt","ciphertext":"ab","kdfparams":{"n":4096,"r":8,"p":1,"dklen":32}}}`, ErrMalformed},
		{"bad scrypt n", `{"version":1,"address":"a","publicKey":"ab","crypto":{"cipher":"aes-128-ctr","kdf":"scrypt","ciphertext":"ab","mac":"ab","kdfparams":{"n":1000,"r":8,"p":1,"dklen":32}}}`, ErrInvalidParams},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Unmarshal([]byte(tc.data)); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestOpen_AlgorithmMismatch(t *testing.T) {
	k, _, _, _ := encryptedFixture(t)
	other, err := pqc.ByName(pqc.MLDSA44)
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	if _, _, err := Open(k, testPassword, other); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestOpen_SwappedPublicKey(t *testing.T) {
	k, _, _, scheme := encryptedFixture(t)
	otherPub, _, err := scheme.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	k.PublicKey = hex.EncodeToString(otherPub)
	if _, _, err := Open(k, testPassword, scheme); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
}

func TestEncrypt_SaltAndIVAreFresh(t *testing.T) {
	scheme := pqc.Default()
	pub, sec, err := scheme.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr, err := address.Derive(pub)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	a, err := Encrypt(sec, pub, addr, scheme.Name(), testPassword, LightKDFParams())
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := Encrypt(sec, pub, addr, scheme.Name(), testPassword, LightKDFParams())
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a.Crypto.KDFParams.Salt == b.Crypto.KDFParams.Salt {
		t.Fatalf("salt reused across encryptions")
	}
	if a.Crypto.CipherParams.IV == b.Crypto.CipherParams.IV {
		t.Fatalf("iv reused across encryptions")
	}
	if a.Crypto.Ciphertext == b.Crypto.Ciphertext {
		t.Fatalf("identical ciphertext across encryptions")
	}
}

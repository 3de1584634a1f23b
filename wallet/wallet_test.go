package wallet

import (
	"errors"
	"strings"
	"testing"

	"dytallix.io/pqcwallet/address"
	"dytallix.io/pqcwallet/keystore"
	"dytallix.io/pqcwallet/pqc"
	"dytallix.io/pqcwallet/tx"
)

func TestGenerate_SignVerify(t *testing.T) {
	w, err := Generate("")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	defer w.Zero()

	if w.Algorithm() != pqc.DefaultAlgorithm {
		t.Fatalf("algorithm: got %q", w.Algorithm())
	}
	if err := address.Validate(w.Address()); err != nil {
		t.Fatalf("address %q invalid: %v", w.Address(), err)
	}

	msg := []byte("hello")
	sig, err := w.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !w.Verify(msg, sig) {
		t.Fatalf("own signature did not verify")
	}
	if !VerifyWith(pqc.Default(), w.PublicKey(), msg, sig) {
		t.Fatalf("VerifyWith rejected a valid signature")
	}
	if w.Verify([]byte("hello!"), sig) {
		t.Fatalf("signature verified against forged message")
	}
}

func TestKeystore_ExportImport(t *testing.T) {
	w, err := Generate("")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	defer w.Zero()

	ks, err := w.ExportKeystore("correct-horse", keystore.LightKDFParams())
	if err != nil {
		t.Fatalf("ExportKeystore: %v", err)
	}
	if ks.Address != w.Address() {
		t.Fatalf("keystore address %q, wallet %q", ks.Address, w.Address())
	}

	back, err := FromKeystore(ks, "correct-horse")
	if err != nil {
		t.Fatalf("FromKeystore: %v", err)
	}
	defer back.Zero()
	if back.Address() != w.Address() {
		t.Fatalf("imported address %q, want %q", back.Address(), w.Address())
	}

	// The two instances must be interchangeable signers.
	msg := []byte("cross-instance")
	sig, err := back.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !w.Verify(msg, sig) {
		t.Fatalf("original wallet rejected imported wallet's signature")
	}

	if _, err := FromKeystore(ks, "wrong-password"); !errors.Is(err, keystore.ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestFromSecretKey_RederivesIdentity(t *testing.T) {
	w, err := Generate(pqc.MLDSA44)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	plain, err := w.MarshalPlain()
	if err != nil {
		t.Fatalf("MarshalPlain: %v", err)
	}

	back, err := UnmarshalPlain(plain)
	if err != nil {
		t.Fatalf("UnmarshalPlain: %v", err)
	}
	if back.Address() != w.Address() || back.Algorithm() != pqc.MLDSA44 {
		t.Fatalf("identity not preserved: %q %q", back.Address(), back.Algorithm())
	}

	if strings.Contains(string(plain), `"secret_key": ""`) {
		t.Fatalf("plain export missing secret key")
	}
}

func TestSignTx_ProducesVerifiableEnvelope(t *testing.T) {
	w, err := Generate("")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	defer w.Zero()

	tr, err := tx.New("dyt-local-1", 7,
		[]tx.Msg{tx.Send(w.Address(), "dyt1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqk79qmc", tx.DenomDGT, 42)},
		1000, "rent")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	env, err := w.SignTx(tr, 21000, 1000)
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}
	if err := env.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if env.PublicKey != w.PublicKeyB64() {
		t.Fatalf("envelope public key does not match wallet")
	}
}

func TestZero_DisablesSigning(t *testing.T) {
	w, err := Generate("")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	msg := []byte("before")
	sig, err := w.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	w.Zero()

	if _, err := w.Sign(msg); !errors.Is(err, ErrNoSecretKey) {
		t.Fatalf("expected ErrNoSecretKey, got %v", err)
	}
	if _, err := w.ExportKeystore("pw", keystore.LightKDFParams()); !errors.Is(err, ErrNoSecretKey) {
		t.Fatalf("expected ErrNoSecretKey, got %v", err)
	}
	// Verification still works without the secret half.
	if !w.Verify(msg, sig) {
		t.Fatalf("zeroed wallet lost verification capability")
	}
}

func TestGenerate_UnknownAlgorithm(t *testing.T) {
	if _, err := Generate("ed25519"); !errors.Is(err, pqc.ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

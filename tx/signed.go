package tx

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"dytallix.io/pqcwallet/pqc"
)

// EnvelopeVersion is the current signed-envelope schema version.
const EnvelopeVersion = 1

// SignedTx is the wire envelope submitted to the ledger RPC.
//
// The public key and algorithm travel with the signature so a verifier needs
// no prior key registry; key and signature bytes are base64.
type SignedTx struct {
	Tx        Tx     `json:"tx"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
	Algorithm string `json:"algorithm"`
	Version   uint32 `json:"version"`
	GasLimit  uint64 `json:"gas_limit"`
	GasPrice  uint64 `json:"gas_price"`
}

// Sign canonical-encodes t, hashes it, and signs the digest.
//
// The transaction is validated against its own chain ID before any
// cryptographic work; invalid input never reaches the primitive.
func Sign(scheme pqc.Scheme, t *Tx, sec, pub []byte, gasLimit, gasPrice uint64) (*SignedTx, error) {
	if t == nil {
		return nil, newError(KindInput, "TX-VAL-100", "nil transaction")
	}
	if err := t.Validate(t.ChainID); err != nil {
		return nil, err
	}
	if err := scheme.ValidatePublicKey(pub); err != nil {
		return nil, wrapError(KindInput, "TX-SIG-100", "invalid public key", err)
	}

	digest, err := t.Hash()
	if err != nil {
		return nil, err
	}
	sig, err := scheme.Sign(sec, digest[:])
	if err != nil {
		return nil, wrapError(KindCrypto, "TX-SIG-101", "signing failed", err)
	}

	return &SignedTx{
		Tx:        *t,
		PublicKey: base64.StdEncoding.EncodeToString(pub),
		Signature: base64.StdEncoding.EncodeToString(sig),
		Algorithm: scheme.Name(),
		Version:   EnvelopeVersion,
		GasLimit:  gasLimit,
		GasPrice:  gasPrice,
	}, nil
}

// Verify re-derives the canonical bytes of the embedded transaction and checks
// the signature against them.
//
// The envelope's own byte order is irrelevant: verification never trusts
// attacker-supplied raw bytes, only the re-derived canonical encoding.
func (s *SignedTx) Verify() error {
	if s == nil {
		return newError(KindEnvelope, "TX-ENV-100", "nil envelope")
	}
	if s.Version != EnvelopeVersion {
		return newError(KindEnvelope, "TX-ENV-101", fmt.Sprintf("unsupported envelope version %d", s.Version))
	}
	scheme, err := pqc.ByName(s.Algorithm)
	if err != nil {
		return wrapError(KindEnvelope, "TX-ENV-102", fmt.Sprintf("unsupported algorithm %q", s.Algorithm), err)
	}
	pub, err := base64.StdEncoding.DecodeString(s.PublicKey)
	if err != nil {
		return wrapError(KindEnvelope, "TX-ENV-103", "invalid public key encoding", err)
	}
	sig, err := base64.StdEncoding.DecodeString(s.Signature)
	if err != nil {
		return wrapError(KindEnvelope, "TX-ENV-104", "invalid signature encoding", err)
	}
	if err := s.Tx.Validate(s.Tx.ChainID); err != nil {
		return err
	}

	digest, err := s.Tx.Hash()
	if err != nil {
		return err
	}
	if !scheme.Verify(pub, digest[:], sig) {
		return newError(KindCrypto, "TX-SIG-201", "signature verification failed")
	}
	return nil
}

// MarshalIndent renders the envelope as indented JSON for files and stdout.
// The node re-canonicalizes before verifying, so presentation whitespace is
// harmless.
func (s *SignedTx) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// UnmarshalSigned parses a signed envelope from JSON. The result is not yet
// verified; callers decide when to pay for Verify.
func UnmarshalSigned(data []byte) (*SignedTx, error) {
	var s SignedTx
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, wrapError(KindEnvelope, "TX-ENV-100", "unparseable envelope", err)
	}
	return &s, nil
}

// Hash returns the embedded transaction's 0x-prefixed hash.
func (s *SignedTx) Hash() (string, error) {
	return s.Tx.HashHex()
}

// TotalFee returns gasLimit*gasPrice in base units, saturating on overflow.
func (s *SignedTx) TotalFee() uint64 {
	if s.GasPrice != 0 && s.GasLimit > ^uint64(0)/s.GasPrice {
		return ^uint64(0)
	}
	return s.GasLimit * s.GasPrice
}

// Package tx defines the Dytallix logical transaction, its canonical byte
// encoding, and the signed wire envelope.
//
// The canonical bytes of a transaction are its identity: hashing, signing, and
// verification all operate on the output of CanonicalBytes, never on
// caller-supplied raw bytes.
package tx

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/crypto/sha3"

	"dytallix.io/pqcwallet/canonical"
)

// MsgTypeSend is the message discriminator for bank transfers.
const MsgTypeSend = "send"

// Valid denominations on the Dytallix ledger.
const (
	DenomDGT = "DGT"
	DenomDRT = "DRT"
)

// Amount is a base-unit token quantity. It serializes as a decimal string on
// the wire (the canonical integer-as-string convention shared with the node).
type Amount uint64

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(a), 10))
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("amount must be a decimal string: %w", err)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("amount %q: %w", s, err)
	}
	*a = Amount(v)
	return nil
}

// Msg is a single transaction message. Only the send kind exists today; the
// Type field keeps the wire shape open for future kinds.
type Msg struct {
	Type   string `json:"type"`
	From   string `json:"from"`
	To     string `json:"to"`
	Denom  string `json:"denom"`
	Amount Amount `json:"amount"`
}

// Send constructs a bank-transfer message.
func Send(from, to, denom string, amount Amount) Msg {
	return Msg{Type: MsgTypeSend, From: from, To: to, Denom: denom, Amount: amount}
}

// Validate enforces per-message rules before any cryptographic work.
func (m Msg) Validate() error {
	if m.Type != MsgTypeSend {
		return newError(KindInput, "TX-VAL-110", fmt.Sprintf("unsupported message type %q", m.Type))
	}
	if m.From == "" {
		return newError(KindInput, "TX-VAL-111", "from address cannot be empty")
	}
	if m.To == "" {
		return newError(KindInput, "TX-VAL-112", "to address cannot be empty")
	}
	if m.Amount == 0 {
		return newError(KindInput, "TX-VAL-113", "amount cannot be zero")
	}
	if m.Denom != DenomDGT && m.Denom != DenomDRT {
		return newError(KindInput, "TX-VAL-114", fmt.Sprintf("unsupported denom %q; valid: %s, %s", m.Denom, DenomDGT, DenomDRT))
	}
	return nil
}

// Tx is the logical transaction body covered by a signature.
type Tx struct {
	ChainID string `json:"chain_id"`
	Nonce   uint64 `json:"nonce"`
	Msgs    []Msg  `json:"msgs"`
	Fee     Amount `json:"fee"`
	Memo    string `json:"memo"`
}

// New validates fields and constructs a transaction.
func New(chainID string, nonce uint64, msgs []Msg, fee Amount, memo string) (*Tx, error) {
	t := &Tx{ChainID: chainID, Nonce: nonce, Msgs: msgs, Fee: fee, Memo: memo}
	if err := t.Validate(chainID); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate enforces structural rules against an expected chain.
func (t *Tx) Validate(expectedChainID string) error {
	if t == nil {
		return newError(KindInput, "TX-VAL-100", "nil transaction")
	}
	if t.ChainID == "" {
		return newError(KindInput, "TX-VAL-101", "chain_id cannot be empty")
	}
	if t.ChainID != expectedChainID {
		return newError(KindInput, "TX-VAL-102", fmt.Sprintf("invalid chain_id: expected %q, got %q", expectedChainID, t.ChainID))
	}
	if len(t.Msgs) == 0 {
		return newError(KindInput, "TX-VAL-103", "transaction must contain at least one message")
	}
	if t.Fee == 0 {
		return newError(KindInput, "TX-VAL-104", "fee cannot be zero")
	}
	for i, m := range t.Msgs {
		if err := m.Validate(); err != nil {
			return wrapError(KindInput, "TX-VAL-105", fmt.Sprintf("message %d invalid", i), err)
		}
	}
	return nil
}

// CanonicalBytes returns the deterministic byte encoding of the transaction.
func (t *Tx) CanonicalBytes() ([]byte, error) {
	if t == nil {
		return nil, newError(KindInput, "TX-VAL-100", "nil transaction")
	}
	b, err := canonical.Encode(t)
	if err != nil {
		return nil, wrapError(KindCanonical, "TX-CANON-100", "transaction not canonicalizable", err)
	}
	return b, nil
}

// Hash returns the SHA3-256 digest of the canonical bytes. This digest is the
// message that gets signed and is the transaction's identity on the ledger.
func (t *Tx) Hash() ([32]byte, error) {
	b, err := t.CanonicalBytes()
	if err != nil {
		return [32]byte{}, err
	}
	return sha3.Sum256(b), nil
}

// HashHex returns the 0x-prefixed hex transaction hash.
func (t *Tx) HashHex() (string, error) {
	h, err := t.Hash()
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(h[:]), nil
}

// FirstFrom returns the sender of the first message, or "".
func (t *Tx) FirstFrom() string {
	if t == nil || len(t.Msgs) == 0 {
		return ""
	}
	return t.Msgs[0].From
}

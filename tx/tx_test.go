package tx

import (
	"bytes"
	"encoding/json"
	"testing"

	"dytallix.io/pqcwallet/canonical"
)

func validTx(t *testing.T) *Tx {
	t.Helper()
	tr, err := New("dyt-local-1", 0,
		[]Msg{Send("dyt1sender", "dyt1recipient", DenomDGT, 1000000)},
		1000, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func TestCanonicalBytes_ExactShape(t *testing.T) {
	tr := validTx(t)
	got, err := tr.CanonicalBytes()
	if err != nil {
		t.Fatalf("CanonicalBytes: %v", err)
	}
	want := `{"chain_id":"dyt-local-1","fee":"1000","memo":"","msgs":[{"amount":"1000000","denom":"DGT","from":"dyt1sender","to":"dyt1recipient","type":"send"}],"nonce":0}`
	if string(got) != want {
		t.Fatalf("canonical bytes mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestCanonicalBytes_FieldOrderIndependent(t *testing.T) {
	tr := validTx(t)
	want, err := tr.CanonicalBytes()
	if err != nil {
		t.Fatalf("CanonicalBytes: %v", err)
	}

	// The same logical transaction assembled as a map in a different insertion
	// order must canonicalize to identical bytes.
	shuffled := map[string]any{
		"nonce": 0,
		"memo":  "",
		"msgs": []any{map[string]any{
			"to":     "dyt1recipient",
			"type":   "send",
			"amount": "1000000",
			"from":   "dyt1sender",
			"denom":  "DGT",
		}},
		"fee":      "1000",
		"chain_id": "dyt-local-1",
	}
	got, err := canonical.Encode(shuffled)
	if err != nil {
		t.Fatalf("Encode(shuffled): %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("field order changed canonical bytes:\n got %s\nwant %s", got, want)
	}
}

func TestHash_DeterministicAndOrderIndependent(t *testing.T) {
	a := validTx(t)
	b := validTx(t)
	ha, err := a.HashHex()
	if err != nil {
		t.Fatalf("HashHex(a): %v", err)
	}
	hb, err := b.HashHex()
	if err != nil {
		t.Fatalf("HashHex(b): %v", err)
	}
	if ha != hb {
		t.Fatalf("equal transactions hashed differently: %s vs %s", ha, hb)
	}
	if len(ha) != 2+64 {
		t.Fatalf("hash %q has unexpected length", ha)
	}
}

func TestValidate_Rules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Tx)
		rule   string
	}{
		{"empty chain id", func(tr *Tx) { tr.ChainID = "" }, "TX-VAL-101"},
		{"no messages", func(tr *Tx) { tr.Msgs = nil }, "TX-VAL-103"},
		{"zero fee", func(tr *Tx) { tr.Fee = 0 }, "TX-VAL-104"},
		{"zero amount", func(tr *Tx) { tr.Msgs[0].Amount = 0 }, "TX-VAL-105"},
		{"bad denom", func(tr *Tx) { tr.Msgs[0].Denom = "BTC" }, "TX-VAL-105"},
		{"empty from", func(tr *Tx) { tr.Msgs[0].From = "" }, "TX-VAL-105"},
		{"empty to", func(tr *Tx) { tr.Msgs[0].To = "" }, "TX-VAL-105"},
		{"bad msg type", func(tr *Tx) { tr.Msgs[0].Type = "mint" }, "TX-VAL-105"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := validTx(t)
			tc.mutate(tr)
			err := tr.Validate(tr.ChainID)
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !IsKind(err, KindInput) {
				t.Fatalf("expected KindInput, got %v", err)
			}
			if RuleID(err) != tc.rule {
				t.Fatalf("rule: got %s want %s", RuleID(err), tc.rule)
			}
		})
	}
}

func TestValidate_WrongChain(t *testing.T) {
	tr := validTx(t)
	if err := tr.Validate("dyt-main-1"); RuleID(err) != "TX-VAL-102" {
		t.Fatalf("expected TX-VAL-102, got %v", err)
	}
}

func TestAmount_JSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(Amount(18446744073709551615))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `"18446744073709551615"` {
		t.Fatalf("amount serialized as %s", b)
	}

	var a Amount
	if err := json.Unmarshal(b, &a); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if a != 18446744073709551615 {
		t.Fatalf("round trip lost value: %d", a)
	}

	// Bare JSON numbers are not the wire convention for amounts.
	if err := json.Unmarshal([]byte(`5`), &a); err == nil {
		t.Fatalf("expected rejection of numeric amount")
	}
}

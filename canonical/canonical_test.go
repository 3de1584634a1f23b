package canonical

import (
	"bytes"
	"testing"
)

func TestEncode_SortsKeysRecursively(t *testing.T) {
	got, err := Encode(map[string]any{
		"zeta":  1,
		"alpha": map[string]any{"b": "x", "a": "y"},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := `{"alpha":{"a":"y","b":"x"},"zeta":1}`
	if string(got) != want {
		t.Fatalf("canonical bytes mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestEncode_InsertionOrderIndependent(t *testing.T) {
	a := map[string]any{"to": "X", "amount": "5", "nonce": 1}
	b := map[string]any{"nonce": 1, "amount": "5", "to": "X"}

	ca, err := Encode(a)
	if err != nil {
		t.Fatalf("Encode(a): %v", err)
	}
	cb, err := Encode(b)
	if err != nil {
		t.Fatalf("Encode(b): %v", err)
	}
	if !bytes.Equal(ca, cb) {
		t.Fatalf("expected identical bytes:\n a=%s\n b=%s", ca, cb)
	}
}

func TestEncode_ArraysPreserveOrder(t *testing.T) {
	got, err := Encode(map[string]any{"xs": []any{3, 1, 2}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := `{"xs":[3,1,2]}`
	if string(got) != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestTransform_RejectsNonIntegerNumbers(t *testing.T) {
	cases := []string{
		`{"x":1.5}`,
		`{"x":1e3}`,
		`{"x":1.0}`,
		`{"x":01}`,
		`{"x":-0}`,
	}
	for _, c := range cases {
		if _, err := Transform([]byte(c)); err == nil {
			t.Errorf("Transform(%s): expected error", c)
		}
	}
}

func TestTransform_Idempotent(t *testing.T) {
	in := []byte(`{"b":2,"a":[true,null,"s"],"c":{"y":0,"x":-7}}`)
	once, err := Transform(in)
	if err != nil {
		t.Fatalf("Transform(1): %v", err)
	}
	twice, err := Transform(once)
	if err != nil {
		t.Fatalf("Transform(2): %v", err)
	}
	if !bytes.Equal(once, twice) {
		t.Fatalf("not idempotent:\n once  %s\n twice %s", once, twice)
	}
}

func TestTransform_RejectsTrailingData(t *testing.T) {
	if _, err := Transform([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Fatalf("expected trailing data rejection")
	}
}

func TestEncode_EscapingStable(t *testing.T) {
	a, err := Encode(map[string]any{"memo": "tab\tand \"quote\""})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := Transform(a)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("escaped string not stable: %s vs %s", a, b)
	}
}

package tx

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Error() strings are for humans and may evolve.
type Kind string

const (
	KindInput     Kind = "Input"     // malformed transaction fields, recoverable by the caller
	KindCanonical Kind = "Canonical" // value has no canonical encoding
	KindEnvelope  Kind = "Envelope"  // signed-envelope structure problems
	KindCrypto    Kind = "Crypto"    // signature verification failures
)

// Error is the package's structured error type.
//
// RuleID is a stable identifier (e.g., TX-VAL-101, TX-SIG-201) naming the
// violated rule. Use errors.As to extract *Error for structured handling.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return newError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}

package keystore

import "errors"

var (
	// ErrMalformed marks keystore JSON that cannot be parsed or is missing
	// required fields.
	ErrMalformed = errors.New("keystore: malformed")

	// ErrUnsupportedVersion marks a keystore whose version, cipher, or KDF is
	// not one this implementation can open.
	ErrUnsupportedVersion = errors.New("keystore: unsupported version")

	// ErrInvalidPassword marks a MAC mismatch. A wrong password and tampered
	// ciphertext are indistinguishable by construction.
	ErrInvalidPassword = errors.New("keystore: invalid password or corrupted keystore")

	// ErrIntegrity marks a keystore that decrypted cleanly but whose contents
	// are inconsistent with each other.
	ErrIntegrity = errors.New("keystore: integrity check failed")

	// ErrInvalidParams marks unusable KDF parameters.
	ErrInvalidParams = errors.New("keystore: invalid kdf params")

	// ErrNotFound marks a lookup for an address with no stored keystore.
	ErrNotFound = errors.New("keystore: not found")

	// ErrExists marks an attempt to overwrite an existing keystore file.
	ErrExists = errors.New("keystore: already exists")
)

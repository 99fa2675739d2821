package keyvault

import "errors"

// Error kinds surfaced by the key service. Callers match these with
// errors.Is to decide between aborting (pseudonymization) and degrading
// per token (depseudonymization).
var (
	// ErrKeyUnavailable indicates the key service could not be reached.
	ErrKeyUnavailable = errors.New("key service unavailable")

	// ErrKeyNotFound indicates the configured key name (or the key
	// version referenced by a ciphertext) is not provisioned.
	ErrKeyNotFound = errors.New("encryption key not found")

	// ErrInvalidCiphertext indicates MAC verification failed or the
	// ciphertext is malformed.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")

	// ErrPlaintextTooLarge indicates the plaintext exceeds the 64 KiB
	// encryption input bound.
	ErrPlaintextTooLarge = errors.New("plaintext exceeds encryption input limit")
)

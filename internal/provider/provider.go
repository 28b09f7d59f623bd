// Package provider abstracts where signing keys live and how signing
// operations reach them. Two implementations exist: the external hardware
// provider, driven as a child process speaking a strict one-line JSON
// protocol, and the in-process software provider backed by the encrypted
// key store. Callers dispatch on the key's recorded backing, never on
// provider names.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Typed provider failures. Callers branch with errors.Is; message text is
// never inspected outside this package.
var (
	// ErrUnavailable means the hardware probe reported no usable provider.
	ErrUnavailable = errors.New("provider: hardware provider unavailable")
	// ErrTimeout means a provider subprocess exceeded its operation timeout
	// and was killed.
	ErrTimeout = errors.New("provider: operation timed out")
	// ErrProtocol means the subprocess produced no well-formed result line.
	ErrProtocol = errors.New("provider: malformed provider response")
	// ErrKeyNotFound means the provider has no key for the given handle.
	// Deletion treats this as already satisfied.
	ErrKeyNotFound = errors.New("provider: key not found")
)

// OperationError is a provider-reported failure (Success=false with an
// Error string). It wraps none of the sentinel errors above.
type OperationError struct {
	Op      string
	Message string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("provider: %s failed: %s", e.Op, e.Message)
}

// CreateResult is the outcome of a key-creation call.
type CreateResult struct {
	// Handle is the provider's opaque reference for the new key. It is
	// never the private key itself.
	Handle string
	// PublicKey is the PEM-encoded public key exported by the provider.
	PublicKey string
	// Provider is the creating adapter's self-reported identifier.
	Provider string
	// Algorithm is the signature algorithm the key supports.
	Algorithm string
	// SecretRef is set only by the software provider: the sealed reference
	// to the private key material in the secret store.
	SecretRef string
}

// SignRequest addresses one signing operation.
type SignRequest struct {
	// KeyName is the key's unique name.
	KeyName string
	// Handle is the provider reference recorded at creation time.
	Handle string
	// SecretRef is required for software-backed keys and ignored otherwise.
	SecretRef string
	// Digest is the raw SHA-256 digest to sign.
	Digest []byte
}

// Provider issues and uses signing keys.
type Provider interface {
	// Name identifies the provider in key records and logs.
	Name() string
	// CreateKey generates a new signing key addressed by name.
	CreateKey(ctx context.Context, keyName string) (*CreateResult, error)
	// Sign produces an ASN.1 DER-encoded signature over req.Digest.
	Sign(ctx context.Context, req SignRequest) ([]byte, error)
	// DeleteKey erases the key material behind handle. Implementations
	// return ErrKeyNotFound when there is nothing to erase.
	DeleteKey(ctx context.Context, keyName, handle string) error
}

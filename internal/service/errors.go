package service

import "errors"

// Service-level errors. This is the closed taxonomy callers branch on with
// errors.Is; nothing outside the provider boundary matches message strings.
var (
	// ErrDuplicateName means a key with that name already exists,
	// logically-deleted keys included.
	ErrDuplicateName = errors.New("key name already exists")
	// ErrKeyNotFound means no key exists for the given ID or name.
	ErrKeyNotFound = errors.New("key not found")
	// ErrKeyNotActive means the key's status forbids signing.
	ErrKeyNotActive = errors.New("key is not active")
	// ErrDocumentNotFound means no document exists for the given ID.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDuplicateContent means a document with identical content exists.
	ErrDuplicateContent = errors.New("document content already exists")
	// ErrDocumentHasSignatures means the document cannot be deleted while
	// signatures reference it.
	ErrDocumentHasSignatures = errors.New("document has signatures")
	// ErrSignatureNotFound means no signature exists for the given ID.
	ErrSignatureNotFound = errors.New("signature not found")
	// ErrArtifactNotFound means no artifact exists for the given ID.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrValidation means a request field violated the schema.
	ErrValidation = errors.New("validation failed")
	// ErrSigningFailure means the key's provider could not produce a
	// signature. Hardware keys are never silently re-signed in software.
	ErrSigningFailure = errors.New("signing failed")
)

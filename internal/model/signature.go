package model

import "time"

// VerificationStatus is the last known verification outcome of a signature.
type VerificationStatus string

const (
	VerificationPending VerificationStatus = "pending"
	VerificationValid   VerificationStatus = "valid"
	VerificationInvalid VerificationStatus = "invalid"
	VerificationExpired VerificationStatus = "expired"
)

// Signature references one document and one key. DocumentHash is captured
// at signing time and never re-derived; verification compares the current
// document hash against it before any cryptographic check runs.
type Signature struct {
	ID                 string             `json:"id"`
	DocumentID         string             `json:"documentId"`
	KeyID              string             `json:"keyId"`
	Value              string             `json:"value"` // hex-encoded ASN.1 DER
	DocumentHash       string             `json:"documentHash"`
	Algorithm          string             `json:"algorithm"`
	SignedAt           time.Time          `json:"signedAt"`
	SignedBy           string             `json:"signedBy"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	LastVerified       *time.Time         `json:"lastVerified,omitempty"`
	VerificationCount  int64              `json:"verificationCount"`
}

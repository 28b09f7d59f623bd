package model

import "time"

// ArtifactFormat distinguishes the two signed-document renderings.
type ArtifactFormat string

const (
	// ArtifactEmbedded splices signature metadata into a copy of the
	// original content.
	ArtifactEmbedded ArtifactFormat = "embedded"
	// ArtifactDetached is a self-contained JSON manifest that leaves the
	// original document bytes untouched.
	ArtifactDetached ArtifactFormat = "detached"
)

// Artifact is a derived, regenerable signed-document output tied to one
// signature. Composition failure never invalidates the signature record.
type Artifact struct {
	ID          string         `json:"id"`
	SignatureID string         `json:"signatureId"`
	Format      ArtifactFormat `json:"format"`
	FileName    string         `json:"fileName"`
	Content     []byte         `json:"-"`
	CreatedAt   time.Time      `json:"createdAt"`
}

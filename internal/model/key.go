package model

import "time"

// KeyBacking identifies where a key's private material lives.
// It is the single authoritative field for dispatching provider
// operations; callers must never infer backing from the provider name.
type KeyBacking string

const (
	// BackingHardware means the private key lives in the external
	// hardware provider and is addressed only by handle.
	BackingHardware KeyBacking = "hardware"
	// BackingSoftware means the private key lives in the encrypted
	// software key store.
	BackingSoftware KeyBacking = "software"
)

// KeyStatus is the lifecycle state of a key.
type KeyStatus string

const (
	KeyStatusActive   KeyStatus = "active"
	KeyStatusDisabled KeyStatus = "disabled"
	// KeyStatusDeleted is terminal. Keys are never physically removed;
	// deletion is a status transition decoupled from whether the provider
	// actually erased the material.
	KeyStatusDeleted KeyStatus = "deleted"
)

// Key represents a signing key stored in the database.
// For hardware-backed keys Handle is the provider's opaque reference and no
// private material ever enters the application. For software-backed keys
// SecretRef points into the encrypted key store; raw key material is never
// stored on the record itself.
type Key struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Handle             string            `json:"handle"`
	PublicKey          string            `json:"publicKey"`
	Backing            KeyBacking        `json:"backing"`
	Provider           *string           `json:"provider,omitempty"`
	Algorithm          string            `json:"algorithm"`
	Status             KeyStatus         `json:"status"`
	SecretRef          *string           `json:"-"`
	UsageCount         int64             `json:"usageCount"`
	LastUsed           *time.Time        `json:"lastUsed,omitempty"`
	CertificateRequest *string           `json:"-"`
	Certificate        *string           `json:"-"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// IsActive reports whether the key may be used for signing.
func (k *Key) IsActive() bool {
	return k.Status == KeyStatusActive
}

// KeyInfo is the public view of a key (no secret reference).
type KeyInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	PublicKey  string     `json:"publicKey"`
	Backing    KeyBacking `json:"backing"`
	Provider   *string    `json:"provider,omitempty"`
	Algorithm  string     `json:"algorithm"`
	Status     KeyStatus  `json:"status"`
	UsageCount int64      `json:"usageCount"`
	LastUsed   *time.Time `json:"lastUsed,omitempty"`
	HasCSR     bool       `json:"hasCsr"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// ToInfo converts a Key to its public-safe representation.
func (k *Key) ToInfo() *KeyInfo {
	return &KeyInfo{
		ID:         k.ID,
		Name:       k.Name,
		PublicKey:  k.PublicKey,
		Backing:    k.Backing,
		Provider:   k.Provider,
		Algorithm:  k.Algorithm,
		Status:     k.Status,
		UsageCount: k.UsageCount,
		LastUsed:   k.LastUsed,
		HasCSR:     k.CertificateRequest != nil,
		CreatedAt:  k.CreatedAt,
	}
}

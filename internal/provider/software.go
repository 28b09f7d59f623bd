package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sealdoc/sealdoc/internal/crypto"
	"github.com/sealdoc/sealdoc/internal/logger"
	"github.com/sealdoc/sealdoc/internal/secrets"
)

// Software is the in-process provider used when no hardware provider is
// available. Private keys are generated locally and sealed into the
// encrypted secret store; the key record only carries the sealed reference.
type Software struct {
	store secrets.Store
	log   *logger.Logger
}

// NewSoftware creates the software provider.
func NewSoftware(store secrets.Store, log *logger.Logger) *Software {
	return &Software{
		store: store,
		log:   log.WithComponent("software_provider"),
	}
}

// Name identifies the provider in logs.
func (s *Software) Name() string {
	return "software"
}

// CreateKey generates an ECDSA P-256 key pair, seals the private key and
// returns the sealed reference alongside the exported public key.
func (s *Software) CreateKey(ctx context.Context, keyName string) (*CreateResult, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("software provider: %w", err)
	}

	pubPEM, err := crypto.EncodePublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("software provider: %w", err)
	}

	der, err := crypto.MarshalPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("software provider: %w", err)
	}

	ref, err := s.store.Seal(keyName, der)
	if err != nil {
		return nil, fmt.Errorf("software provider: seal private key: %w", err)
	}

	handle := "sw-" + strings.ReplaceAll(uuid.New().String(), "-", "")

	s.log.Debug().Str("key_name", keyName).Msg("software key generated")

	return &CreateResult{
		Handle:    handle,
		PublicKey: pubPEM,
		Algorithm: crypto.AlgorithmES256,
		SecretRef: string(ref),
	}, nil
}

// Sign unseals the private key and signs the digest in process.
func (s *Software) Sign(ctx context.Context, req SignRequest) ([]byte, error) {
	if req.SecretRef == "" {
		return nil, fmt.Errorf("%w: software key %q has no secret reference", ErrKeyNotFound, req.KeyName)
	}

	der, err := s.store.Open(req.KeyName, secrets.Ref(req.SecretRef))
	if err != nil {
		return nil, fmt.Errorf("software provider: unseal private key: %w", err)
	}

	key, err := crypto.UnmarshalPrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("software provider: %w", err)
	}

	sig, err := crypto.SignDigest(key, req.Digest)
	if err != nil {
		return nil, fmt.Errorf("software provider: %w", err)
	}
	return sig, nil
}

// DeleteKey is a logical no-op for software keys: the sealed material
// becomes unreachable once the key record transitions to deleted.
func (s *Software) DeleteKey(ctx context.Context, keyName, handle string) error {
	s.log.Debug().Str("key_name", keyName).Msg("software key deletion is a provider no-op")
	return nil
}

var _ Provider = (*Software)(nil)

package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/sealdoc/sealdoc/internal/crypto"
	"github.com/sealdoc/sealdoc/internal/logger"
	"github.com/sealdoc/sealdoc/internal/model"
	"github.com/sealdoc/sealdoc/internal/provider"
	"github.com/sealdoc/sealdoc/internal/repository"
)

// keyNamePattern bounds names so they survive as provider container names
// and artifact filename components.
var keyNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// KeyService manages the key lifecycle across both provider kinds.
type KeyService struct {
	keys     keyRepository
	audits   auditRepository
	probe    hardwareProbe
	hardware provider.Provider
	software provider.Provider
	locks    KeyLocker
	log      *logger.Logger
}

// NewKeyService creates a new KeyService.
func NewKeyService(keys keyRepository, audits auditRepository, probe hardwareProbe, hardware, software provider.Provider, locks KeyLocker, log *logger.Logger) *KeyService {
	return &KeyService{
		keys:     keys,
		audits:   audits,
		probe:    probe,
		hardware: hardware,
		software: software,
		locks:    locks,
		log:      log.WithComponent("key_service"),
	}
}

// CreateKey issues a new signing key. When the probe reports hardware and
// the adapter succeeds, the key is hardware-backed; any adapter failure at
// creation time falls back to the software path. This is the only point in
// the system where such a fallback happens.
func (s *KeyService) CreateKey(ctx context.Context, name, actor string) (*model.Key, error) {
	if !keyNamePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: invalid key name %q", ErrValidation, name)
	}

	// Uniqueness spans the whole key space, deleted keys included, so a
	// recreated name can never collide with stale provider state.
	if _, err := s.keys.GetByName(ctx, name); err == nil {
		return nil, ErrDuplicateName
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check key name: %w", err)
	}

	backing := model.BackingSoftware
	var res *provider.CreateResult
	var providerName *string

	if s.probe.HardwareAvailable() {
		hwRes, err := s.hardware.CreateKey(ctx, name)
		if err == nil {
			res = hwRes
			backing = model.BackingHardware
			if hwRes.Provider != "" {
				providerName = &hwRes.Provider
			}
		} else {
			// Degraded success, not an error to the caller.
			s.log.Warn().Err(err).Str("key_name", name).Msg("hardware key creation failed, falling back to software")
			s.audit(ctx, actor, model.AuditActionKeyFallback, "key", name, map[string]interface{}{
				"reason": err.Error(),
			})
		}
	} else {
		s.log.Debug().Str("probe", s.probe.Detail()).Str("key_name", name).Msg("hardware unavailable, creating software key")
	}

	if res == nil {
		swRes, err := s.software.CreateKey(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to create software key: %w", err)
		}
		res = swRes
	}

	now := time.Now()
	algorithm := res.Algorithm
	if algorithm == "" {
		algorithm = crypto.AlgorithmES256
	}

	key := &model.Key{
		ID:         generateID("key"),
		Name:       name,
		Handle:     res.Handle,
		PublicKey:  res.PublicKey,
		Backing:    backing,
		Provider:   providerName,
		Algorithm:  algorithm,
		Status:     model.KeyStatusActive,
		UsageCount: 0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if res.SecretRef != "" {
		key.SecretRef = &res.SecretRef
	}

	if err := s.keys.Create(ctx, key); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to store key: %w", err)
	}

	s.log.Info().Str("key_id", key.ID).Str("key_name", name).Str("backing", string(backing)).Msg("key created")
	s.audit(ctx, actor, model.AuditActionKeyCreated, "key", key.ID, map[string]interface{}{
		"name":    name,
		"backing": string(backing),
	})

	return key, nil
}

// GetKey retrieves a key by ID.
func (s *KeyService) GetKey(ctx context.Context, id string) (*model.Key, error) {
	key, err := s.keys.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	return key, err
}

// ListKeys returns the public view of all keys.
func (s *KeyService) ListKeys(ctx context.Context) ([]*model.KeyInfo, error) {
	keys, err := s.keys.List(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]*model.KeyInfo, len(keys))
	for i, k := range keys {
		infos[i] = k.ToInfo()
	}
	return infos, nil
}

// DisableKey transitions an active key to disabled.
func (s *KeyService) DisableKey(ctx context.Context, id, actor string) error {
	key, err := s.GetKey(ctx, id)
	if err != nil {
		return err
	}
	if key.Status != model.KeyStatusActive {
		return ErrKeyNotActive
	}
	if err := s.keys.UpdateStatus(ctx, id, model.KeyStatusDisabled); err != nil {
		return fmt.Errorf("failed to disable key: %w", err)
	}
	s.audit(ctx, actor, model.AuditActionKeyDisabled, "key", id, nil)
	return nil
}

// EnableKey transitions a disabled key back to active.
func (s *KeyService) EnableKey(ctx context.Context, id, actor string) error {
	key, err := s.GetKey(ctx, id)
	if err != nil {
		return err
	}
	if key.Status != model.KeyStatusDisabled {
		return fmt.Errorf("%w: only disabled keys can be re-enabled", ErrValidation)
	}
	if err := s.keys.UpdateStatus(ctx, id, model.KeyStatusActive); err != nil {
		return fmt.Errorf("failed to enable key: %w", err)
	}
	s.audit(ctx, actor, model.AuditActionKeyEnabled, "key", id, nil)
	return nil
}

// DeleteKey logically deletes a key. Provider-side erasure is attempted for
// hardware keys but its outcome is observability only: the status always
// transitions to deleted, and a provider "not found" counts as already
// satisfied. Database consistency never depends on external hardware state.
func (s *KeyService) DeleteKey(ctx context.Context, id, actor string) error {
	key, err := s.GetKey(ctx, id)
	if err != nil {
		return err
	}
	if key.Status == model.KeyStatusDeleted {
		// Idempotent: deleting a deleted key succeeds.
		return nil
	}

	if key.Backing == model.BackingHardware {
		release, err := s.locks.Acquire(ctx, key.ID)
		if err != nil {
			return err
		}
		err = s.hardware.DeleteKey(ctx, key.Name, key.Handle)
		release()

		switch {
		case err == nil:
			s.log.Info().Str("key_id", id).Msg("hardware key material erased")
		case errors.Is(err, provider.ErrKeyNotFound):
			s.log.Debug().Str("key_id", id).Msg("provider reports key already gone")
		default:
			s.log.Warn().Err(err).Str("key_id", id).Msg("provider deletion failed, proceeding with logical delete")
		}
	}

	if err := s.keys.UpdateStatus(ctx, id, model.KeyStatusDeleted); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	s.audit(ctx, actor, model.AuditActionKeyDeleted, "key", id, map[string]interface{}{
		"name":    key.Name,
		"backing": string(key.Backing),
	})
	return nil
}

// GenerateCSR builds a PKCS#10 request binding the key's public key and the
// subject fields, stores it on the key record and returns the PEM. The
// private key is only touched through the provider abstraction: the request
// signature is produced the same way a document signature would be.
func (s *KeyService) GenerateCSR(ctx context.Context, id string, subject crypto.CSRSubject, actor string) (string, error) {
	key, err := s.GetKey(ctx, id)
	if err != nil {
		return "", err
	}
	if !key.IsActive() {
		return "", ErrKeyNotActive
	}
	if subject.CommonName == "" {
		return "", fmt.Errorf("%w: common name is required", ErrValidation)
	}

	signer, err := newProviderSigner(ctx, s.providerFor(key.Backing), key)
	if err != nil {
		return "", err
	}

	// CSR creation signs with the key, so hardware sessions are serialized
	// the same way signing is.
	if key.Backing == model.BackingHardware {
		release, err := s.locks.Acquire(ctx, key.ID)
		if err != nil {
			return "", err
		}
		defer release()
	}

	csrPEM, err := crypto.CreateCSR(signer, subject)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSR: %w", err)
	}

	if err := s.keys.SetCertificateRequest(ctx, id, csrPEM); err != nil {
		return "", fmt.Errorf("failed to store CSR: %w", err)
	}

	s.audit(ctx, actor, model.AuditActionKeyCSRGenerated, "key", id, map[string]interface{}{
		"common_name": subject.CommonName,
	})
	return csrPEM, nil
}

// StoreCertificate records a certificate issued for a previously generated CSR.
func (s *KeyService) StoreCertificate(ctx context.Context, id, certPEM string) error {
	if _, err := s.GetKey(ctx, id); err != nil {
		return err
	}
	if certPEM == "" {
		return fmt.Errorf("%w: certificate is required", ErrValidation)
	}
	if err := s.keys.SetCertificate(ctx, id, certPEM); err != nil {
		return fmt.Errorf("failed to store certificate: %w", err)
	}
	return nil
}

func (s *KeyService) providerFor(backing model.KeyBacking) provider.Provider {
	if backing == model.BackingHardware {
		return s.hardware
	}
	return s.software
}

func (s *KeyService) audit(ctx context.Context, actor, action, resourceType, resourceID string, metadata map[string]interface{}) {
	entry := &model.AuditLog{
		ID:           generateID("aud"),
		Actor:        actor,
		Action:       action,
		ResourceType: &resourceType,
		ResourceID:   &resourceID,
		Metadata:     metadata,
		CreatedAt:    time.Now(),
	}
	if err := s.audits.Create(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("action", action).Msg("failed to create audit log")
	}
	s.log.AuditLog(actor, action, resourceType, resourceID, metadata)
}

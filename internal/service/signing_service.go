package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/sealdoc/sealdoc/internal/crypto"
	"github.com/sealdoc/sealdoc/internal/logger"
	"github.com/sealdoc/sealdoc/internal/model"
	"github.com/sealdoc/sealdoc/internal/provider"
	"github.com/sealdoc/sealdoc/internal/repository"
)

// SigningService signs documents and verifies signatures, dispatching to
// the provider recorded in the key's backing field.
type SigningService struct {
	keys       keyRepository
	documents  documentRepository
	signatures signatureRepository
	audits     auditRepository
	hardware   provider.Provider
	software   provider.Provider
	composer   *Composer
	locks      KeyLocker
	log        *logger.Logger
}

// NewSigningService creates a new SigningService.
func NewSigningService(keys keyRepository, documents documentRepository, signatures signatureRepository, audits auditRepository, hardware, software provider.Provider, composer *Composer, locks KeyLocker, log *logger.Logger) *SigningService {
	return &SigningService{
		keys:       keys,
		documents:  documents,
		signatures: signatures,
		audits:     audits,
		hardware:   hardware,
		software:   software,
		composer:   composer,
		locks:      locks,
		log:        log.WithComponent("signing_service"),
	}
}

// Sign produces a signature over the document's SHA-256 hash with the given
// key. A hardware key whose provider is unreachable fails the call: silently
// re-signing in software would violate the key's declared backing.
// The signature is committed before artifact composition runs; composer
// failures are logged and never unwind the signature.
func (s *SigningService) Sign(ctx context.Context, documentID, keyID, signedBy string) (*model.Signature, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	key, err := s.keys.GetByID(ctx, keyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	if !key.IsActive() {
		return nil, ErrKeyNotActive
	}

	// The hash is captured here, at signing time, and stored on the
	// signature; verification compares against this value, never a
	// re-derived one.
	digest := crypto.HashBytes(doc.Content)
	documentHash := hex.EncodeToString(digest)

	req := provider.SignRequest{
		KeyName: key.Name,
		Handle:  key.Handle,
		Digest:  digest,
	}
	if key.SecretRef != nil {
		req.SecretRef = *key.SecretRef
	}

	var sigBytes []byte
	if key.Backing == model.BackingHardware {
		// One external provider session per key at a time.
		release, err := s.locks.Acquire(ctx, key.ID)
		if err != nil {
			return nil, err
		}
		sigBytes, err = s.hardware.Sign(ctx, req)
		release()
		if err != nil {
			s.log.Error().Err(err).Str("key_id", keyID).Str("document_id", documentID).Msg("hardware signing failed")
			return nil, fmt.Errorf("%w: %w", ErrSigningFailure, err)
		}
	} else {
		sigBytes, err = s.software.Sign(ctx, req)
		if err != nil {
			s.log.Error().Err(err).Str("key_id", keyID).Str("document_id", documentID).Msg("software signing failed")
			return nil, fmt.Errorf("%w: %w", ErrSigningFailure, err)
		}
	}

	signedAt := time.Now()
	sig := &model.Signature{
		ID:                 generateID("sig"),
		DocumentID:         doc.ID,
		KeyID:              key.ID,
		Value:              hex.EncodeToString(sigBytes),
		DocumentHash:       documentHash,
		Algorithm:          key.Algorithm,
		SignedAt:           signedAt,
		SignedBy:           signedBy,
		VerificationStatus: model.VerificationPending,
		VerificationCount:  0,
	}

	if err := s.signatures.Create(ctx, sig); err != nil {
		return nil, fmt.Errorf("failed to store signature: %w", err)
	}

	if err := s.keys.RecordUsage(ctx, key.ID, signedAt); err != nil {
		s.log.Error().Err(err).Str("key_id", key.ID).Msg("failed to record key usage")
	}

	s.log.Info().
		Str("signature_id", sig.ID).
		Str("document_id", doc.ID).
		Str("key_id", key.ID).
		Str("backing", string(key.Backing)).
		Msg("document signed")
	s.audit(ctx, signedBy, model.AuditActionDocumentSigned, "signature", sig.ID, map[string]interface{}{
		"document_id": doc.ID,
		"key_id":      key.ID,
	})

	// Artifact composition is an independent outcome. The signature above
	// is already committed and stays valid whatever happens here.
	if _, err := s.composer.Compose(ctx, doc, sig, key); err != nil {
		s.log.Error().Err(err).
			Str("signature_id", sig.ID).
			Str("document_id", doc.ID).
			Msg("artifact composition failed, signature unaffected")
	}

	return sig, nil
}

// Verify re-checks a signature against the current document content.
// A hash mismatch is a normal Invalid outcome and short-circuits before any
// cryptographic work: content that no longer matches the hash captured at
// signing time means corruption or tampering, and no signature over the old
// hash can vouch for the new bytes. Public-key verification runs in process
// for both backings; it never needs the hardware.
func (s *SigningService) Verify(ctx context.Context, signatureID, actor string) (*model.Signature, error) {
	sig, err := s.signatures.GetByID(ctx, signatureID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSignatureNotFound
		}
		return nil, err
	}

	doc, err := s.documents.GetByID(ctx, sig.DocumentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	status := model.VerificationInvalid
	currentHash := crypto.HashContent(doc.Content)

	if currentHash == sig.DocumentHash {
		key, err := s.keys.GetByID(ctx, sig.KeyID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrKeyNotFound
			}
			return nil, err
		}

		pub, err := crypto.DecodePublicKey(key.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode key public key: %w", err)
		}

		sigBytes, err := hex.DecodeString(sig.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to decode signature value: %w", err)
		}

		if crypto.VerifyDigest(pub, crypto.HashBytes(doc.Content), sigBytes) {
			status = model.VerificationValid
		}
	} else {
		s.log.Warn().
			Str("signature_id", sig.ID).
			Str("document_id", doc.ID).
			Str("expected_hash", sig.DocumentHash).
			Str("current_hash", currentHash).
			Msg("document hash mismatch, content changed since signing")
	}

	verifiedAt := time.Now()
	if err := s.signatures.RecordVerification(ctx, sig.ID, status, verifiedAt); err != nil {
		return nil, fmt.Errorf("failed to record verification: %w", err)
	}

	sig.VerificationStatus = status
	sig.LastVerified = &verifiedAt
	sig.VerificationCount++

	s.audit(ctx, actor, model.AuditActionSignatureChecked, "signature", sig.ID, map[string]interface{}{
		"status": string(status),
	})

	return sig, nil
}

// GetSignature retrieves a signature by ID.
func (s *SigningService) GetSignature(ctx context.Context, id string) (*model.Signature, error) {
	sig, err := s.signatures.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSignatureNotFound
	}
	return sig, err
}

func (s *SigningService) audit(ctx context.Context, actor, action, resourceType, resourceID string, metadata map[string]interface{}) {
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

package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sealdoc/sealdoc/internal/crypto"
	"github.com/sealdoc/sealdoc/internal/logger"
	"github.com/sealdoc/sealdoc/internal/model"
	"github.com/sealdoc/sealdoc/internal/repository"
)

// maxDocumentSize bounds uploads at 10 MiB.
const maxDocumentSize = 10 << 20

// DocumentService manages immutable document uploads.
type DocumentService struct {
	documents  documentRepository
	signatures signatureRepository
	audits     auditRepository
	log        *logger.Logger
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(documents documentRepository, signatures signatureRepository, audits auditRepository, log *logger.Logger) *DocumentService {
	return &DocumentService{
		documents:  documents,
		signatures: signatures,
		audits:     audits,
		log:        log.WithComponent("document_service"),
	}
}

// Upload stores a new document. Content is hashed with SHA-256 and
// deduplicated globally: identical content is rejected whatever its
// file name.
func (s *DocumentService) Upload(ctx context.Context, fileName string, fileType model.DocumentType, content []byte, uploadedBy string) (*model.Document, error) {
	if fileName == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrValidation)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: content is empty", ErrValidation)
	}
	if len(content) > maxDocumentSize {
		return nil, fmt.Errorf("%w: content exceeds %d bytes", ErrValidation, maxDocumentSize)
	}
	if fileType == "" {
		fileType = inferFileType(fileName)
	}
	switch fileType {
	case model.DocumentTypeText, model.DocumentTypeMarkdown, model.DocumentTypeJSON:
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrValidation, fileType)
	}

	hash := crypto.HashContent(content)

	if _, err := s.documents.GetByHash(ctx, hash); err == nil {
		return nil, ErrDuplicateContent
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check content hash: %w", err)
	}

	doc := &model.Document{
		ID:         generateID("doc"),
		FileName:   fileName,
		FileType:   fileType,
		Content:    content,
		Hash:       hash,
		Size:       int64(len(content)),
		UploadedBy: uploadedBy,
		UploadedAt: time.Now(),
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateContent
		}
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	s.log.Info().Str("document_id", doc.ID).Str("hash", hash).Int64("size", doc.Size).Msg("document uploaded")
	s.audit(ctx, uploadedBy, model.AuditActionDocumentUploaded, "document", doc.ID, map[string]interface{}{
		"file_name": fileName,
		"hash":      hash,
	})
	return doc, nil
}

// GetDocument retrieves a document with content.
func (s *DocumentService) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrDocumentNotFound
	}
	return doc, err
}

// ListDocuments returns all documents without content.
func (s *DocumentService) ListDocuments(ctx context.Context) ([]*model.Document, error) {
	return s.documents.List(ctx)
}

// DeleteDocument removes a document. Documents carrying one or more
// signatures are immutable evidence and cannot be deleted.
func (s *DocumentService) DeleteDocument(ctx context.Context, id, actor string) error {
	if _, err := s.GetDocument(ctx, id); err != nil {
		return err
	}

	count, err := s.signatures.CountByDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count signatures: %w", err)
	}
	if count > 0 {
		return ErrDocumentHasSignatures
	}

	if err := s.documents.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}

	s.audit(ctx, actor, model.AuditActionDocumentDeleted, "document", id, nil)
	return nil
}

// ListSignatures returns all signatures on a document.
func (s *DocumentService) ListSignatures(ctx context.Context, documentID string) ([]*model.Signature, error) {
	if _, err := s.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.signatures.ListByDocument(ctx, documentID)
}

func inferFileType(fileName string) model.DocumentType {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".json":
		return model.DocumentTypeJSON
	case ".md", ".markdown":
		return model.DocumentTypeMarkdown
	default:
		return model.DocumentTypeText
	}
}

func (s *DocumentService) audit(ctx context.Context, actor, action, resourceType, resourceID string, metadata map[string]interface{}) {
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

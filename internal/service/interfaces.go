package service

import (
	"context"
	"time"

	"github.com/sealdoc/sealdoc/internal/model"
)

// Consumer-side repository interfaces. The concrete SQL repositories in
// internal/repository satisfy these; tests substitute in-memory fakes.

type keyRepository interface {
	Create(ctx context.Context, key *model.Key) error
	GetByID(ctx context.Context, id string) (*model.Key, error)
	GetByName(ctx context.Context, name string) (*model.Key, error)
	List(ctx context.Context) ([]*model.Key, error)
	UpdateStatus(ctx context.Context, id string, status model.KeyStatus) error
	RecordUsage(ctx context.Context, id string, usedAt time.Time) error
	SetCertificateRequest(ctx context.Context, id, csrPEM string) error
	SetCertificate(ctx context.Context, id, certPEM string) error
}

type documentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, id string) (*model.Document, error)
	GetByHash(ctx context.Context, hash string) (*model.Document, error)
	List(ctx context.Context) ([]*model.Document, error)
	Delete(ctx context.Context, id string) error
}

type signatureRepository interface {
	Create(ctx context.Context, sig *model.Signature) error
	GetByID(ctx context.Context, id string) (*model.Signature, error)
	ListByDocument(ctx context.Context, documentID string) ([]*model.Signature, error)
	CountByDocument(ctx context.Context, documentID string) (int64, error)
	RecordVerification(ctx context.Context, id string, status model.VerificationStatus, verifiedAt time.Time) error
}

type artifactRepository interface {
	Create(ctx context.Context, art *model.Artifact) error
	GetByID(ctx context.Context, id string) (*model.Artifact, error)
	ListBySignature(ctx context.Context, signatureID string) ([]*model.Artifact, error)
}

type auditRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
}

// hardwareProbe is the capability flag computed once at startup.
type hardwareProbe interface {
	HardwareAvailable() bool
	Detail() string
}

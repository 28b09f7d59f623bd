package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sealdoc/sealdoc/internal/database"
	"github.com/sealdoc/sealdoc/internal/model"
)

// SignatureRepository handles signature persistence.
type SignatureRepository struct {
	db *database.Postgres
}

// NewSignatureRepository creates a new SignatureRepository.
func NewSignatureRepository(db *database.Postgres) *SignatureRepository {
	return &SignatureRepository{db: db}
}

const signatureColumns = `id, document_id, key_id, value, document_hash, algorithm,
	signed_at, signed_by, verification_status, last_verified, verification_count`

// Create stores a new signature.
func (r *SignatureRepository) Create(ctx context.Context, sig *model.Signature) error {
	query := `
		INSERT INTO signatures (id, document_id, key_id, value, document_hash, algorithm,
		    signed_at, signed_by, verification_status, last_verified, verification_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		sig.ID,
		sig.DocumentID,
		sig.KeyID,
		sig.Value,
		sig.DocumentHash,
		sig.Algorithm,
		sig.SignedAt,
		sig.SignedBy,
		sig.VerificationStatus,
		sig.LastVerified,
		sig.VerificationCount,
	)
	if err != nil {
		return fmt.Errorf("failed to create signature: %w", err)
	}
	return nil
}

// GetByID retrieves a signature by ID.
func (r *SignatureRepository) GetByID(ctx context.Context, id string) (*model.Signature, error) {
	query := `SELECT ` + signatureColumns + ` FROM signatures WHERE id = $1`
	return r.scanSignature(r.db.QueryRowContext(ctx, query, id))
}

// ListByDocument returns all signatures on a document, newest first.
func (r *SignatureRepository) ListByDocument(ctx context.Context, documentID string) ([]*model.Signature, error) {
	query := `SELECT ` + signatureColumns + ` FROM signatures WHERE document_id = $1 ORDER BY signed_at DESC`
	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signatures: %w", err)
	}
	defer rows.Close()

	var sigs []*model.Signature
	for rows.Next() {
		var sig model.Signature
		if err := rows.Scan(
			&sig.ID, &sig.DocumentID, &sig.KeyID, &sig.Value, &sig.DocumentHash,
			&sig.Algorithm, &sig.SignedAt, &sig.SignedBy, &sig.VerificationStatus,
			&sig.LastVerified, &sig.VerificationCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan signature: %w", err)
		}
		sigs = append(sigs, &sig)
	}
	return sigs, rows.Err()
}

// CountByDocument returns the number of signatures on a document.
func (r *SignatureRepository) CountByDocument(ctx context.Context, documentID string) (int64, error) {
	query := `SELECT COUNT(*) FROM signatures WHERE document_id = $1`
	var count int64
	if err := r.db.QueryRowContext(ctx, query, documentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count signatures: %w", err)
	}
	return count, nil
}

// RecordVerification updates the verification outcome and increments the
// monotonic verification counter.
func (r *SignatureRepository) RecordVerification(ctx context.Context, id string, status model.VerificationStatus, verifiedAt time.Time) error {
	query := `
		UPDATE signatures
		SET verification_status = $1, last_verified = $2, verification_count = verification_count + 1
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, status, verifiedAt, id)
	if err != nil {
		return fmt.Errorf("failed to record verification: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SignatureRepository) scanSignature(row *sql.Row) (*model.Signature, error) {
	var sig model.Signature
	err := row.Scan(
		&sig.ID, &sig.DocumentID, &sig.KeyID, &sig.Value, &sig.DocumentHash,
		&sig.Algorithm, &sig.SignedAt, &sig.SignedBy, &sig.VerificationStatus,
		&sig.LastVerified, &sig.VerificationCount,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan signature: %w", err)
	}
	return &sig, nil
}

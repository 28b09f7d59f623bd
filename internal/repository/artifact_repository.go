package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sealdoc/sealdoc/internal/database"
	"github.com/sealdoc/sealdoc/internal/model"
)

// ArtifactRepository handles signed-artifact persistence.
type ArtifactRepository struct {
	db *database.Postgres
}

// NewArtifactRepository creates a new ArtifactRepository.
func NewArtifactRepository(db *database.Postgres) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Create stores a composed artifact.
func (r *ArtifactRepository) Create(ctx context.Context, art *model.Artifact) error {
	query := `
		INSERT INTO artifacts (id, signature_id, format, file_name, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		art.ID,
		art.SignatureID,
		art.Format,
		art.FileName,
		art.Content,
		art.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	return nil
}

// GetByID retrieves an artifact with content.
func (r *ArtifactRepository) GetByID(ctx context.Context, id string) (*model.Artifact, error) {
	query := `
		SELECT id, signature_id, format, file_name, content, created_at
		FROM artifacts WHERE id = $1
	`
	var art model.Artifact
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&art.ID, &art.SignatureID, &art.Format, &art.FileName, &art.Content, &art.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan artifact: %w", err)
	}
	return &art, nil
}

// ListBySignature returns the artifacts composed for a signature, without content.
func (r *ArtifactRepository) ListBySignature(ctx context.Context, signatureID string) ([]*model.Artifact, error) {
	query := `
		SELECT id, signature_id, format, file_name, created_at
		FROM artifacts WHERE signature_id = $1 ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, signatureID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var arts []*model.Artifact
	for rows.Next() {
		var art model.Artifact
		if err := rows.Scan(&art.ID, &art.SignatureID, &art.Format, &art.FileName, &art.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		arts = append(arts, &art)
	}
	return arts, rows.Err()
}

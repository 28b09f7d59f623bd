package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sealdoc/sealdoc/internal/database"
	"github.com/sealdoc/sealdoc/internal/model"
)

// DocumentRepository handles document persistence.
type DocumentRepository struct {
	db *database.Postgres
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(db *database.Postgres) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, file_name, file_type, content, hash, size, uploaded_by, uploaded_at`

// Create stores a new document. Content is globally deduplicated by hash;
// a second upload with identical content returns ErrDuplicate.
func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	query := `
		INSERT INTO documents (id, file_name, file_type, content, hash, size, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.FileName,
		doc.FileType,
		doc.Content,
		doc.Hash,
		doc.Size,
		doc.UploadedBy,
		doc.UploadedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by ID.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*model.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return r.scanDocument(r.db.QueryRowContext(ctx, query, id))
}

// GetByHash retrieves a document by its content hash.
func (r *DocumentRepository) GetByHash(ctx context.Context, hash string) (*model.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE hash = $1`
	return r.scanDocument(r.db.QueryRowContext(ctx, query, hash))
}

// List returns all documents, newest first, without content.
func (r *DocumentRepository) List(ctx context.Context) ([]*model.Document, error) {
	query := `
		SELECT id, file_name, file_type, hash, size, uploaded_by, uploaded_at
		FROM documents
		ORDER BY uploaded_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*model.Document
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(
			&doc.ID, &doc.FileName, &doc.FileType, &doc.Hash,
			&doc.Size, &doc.UploadedBy, &doc.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// Delete removes a document. The service layer rejects deletion while
// signatures reference the document.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM documents WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DocumentRepository) scanDocument(row *sql.Row) (*model.Document, error) {
	var doc model.Document
	err := row.Scan(
		&doc.ID, &doc.FileName, &doc.FileType, &doc.Content, &doc.Hash,
		&doc.Size, &doc.UploadedBy, &doc.UploadedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	return &doc, nil
}

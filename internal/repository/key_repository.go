package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sealdoc/sealdoc/internal/database"
	"github.com/sealdoc/sealdoc/internal/model"
)

// KeyRepository handles signing key persistence.
type KeyRepository struct {
	db *database.Postgres
}

// NewKeyRepository creates a new KeyRepository.
func NewKeyRepository(db *database.Postgres) *KeyRepository {
	return &KeyRepository{db: db}
}

const keyColumns = `id, name, handle, public_key, backing, provider, algorithm, status,
	secret_ref, usage_count, last_used, certificate_request, certificate, metadata,
	created_at, updated_at`

// Create stores a new key. Name and handle are unique across the whole key
// space, logically-deleted keys included.
func (r *KeyRepository) Create(ctx context.Context, key *model.Key) error {
	metadataJSON, err := json.Marshal(key.Metadata)
	if err != nil {
		metadataJSON = []byte("{}")
	}

	query := `
		INSERT INTO keys (id, name, handle, public_key, backing, provider, algorithm,
		    status, secret_ref, usage_count, last_used, certificate_request, certificate,
		    metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = r.db.ExecContext(ctx, query,
		key.ID,
		key.Name,
		key.Handle,
		key.PublicKey,
		key.Backing,
		key.Provider,
		key.Algorithm,
		key.Status,
		key.SecretRef,
		key.UsageCount,
		key.LastUsed,
		key.CertificateRequest,
		key.Certificate,
		metadataJSON,
		key.CreatedAt,
		key.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create key: %w", err)
	}
	return nil
}

// GetByID retrieves a key by ID.
func (r *KeyRepository) GetByID(ctx context.Context, id string) (*model.Key, error) {
	query := `SELECT ` + keyColumns + ` FROM keys WHERE id = $1`
	return r.scanKey(r.db.QueryRowContext(ctx, query, id))
}

// GetByName retrieves a key by its unique name, deleted keys included.
func (r *KeyRepository) GetByName(ctx context.Context, name string) (*model.Key, error) {
	query := `SELECT ` + keyColumns + ` FROM keys WHERE name = $1`
	return r.scanKey(r.db.QueryRowContext(ctx, query, name))
}

// List returns all keys, newest first.
func (r *KeyRepository) List(ctx context.Context) ([]*model.Key, error) {
	query := `SELECT ` + keyColumns + ` FROM keys ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []*model.Key
	for rows.Next() {
		key, err := r.scanKeyRow(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// UpdateStatus transitions a key's lifecycle status.
func (r *KeyRepository) UpdateStatus(ctx context.Context, id string, status model.KeyStatus) error {
	query := `UPDATE keys SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update key status: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordUsage increments the usage counter and stamps last_used after a
// successful signing operation.
func (r *KeyRepository) RecordUsage(ctx context.Context, id string, usedAt time.Time) error {
	query := `
		UPDATE keys SET usage_count = usage_count + 1, last_used = $1, updated_at = $1
		WHERE id = $2
	`
	result, err := r.db.ExecContext(ctx, query, usedAt, id)
	if err != nil {
		return fmt.Errorf("failed to record key usage: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCertificateRequest stores a generated CSR blob on the key.
func (r *KeyRepository) SetCertificateRequest(ctx context.Context, id, csrPEM string) error {
	query := `UPDATE keys SET certificate_request = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, csrPEM, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to store certificate request: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCertificate stores an issued certificate blob on the key.
func (r *KeyRepository) SetCertificate(ctx context.Context, id, certPEM string) error {
	query := `UPDATE keys SET certificate = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, certPEM, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to store certificate: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type keyScanner interface {
	Scan(dest ...interface{}) error
}

func (r *KeyRepository) scanKey(row *sql.Row) (*model.Key, error) {
	key, err := r.scanKeyRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return key, err
}

func (r *KeyRepository) scanKeyRow(s keyScanner) (*model.Key, error) {
	var key model.Key
	var metadataJSON []byte
	err := s.Scan(
		&key.ID, &key.Name, &key.Handle, &key.PublicKey, &key.Backing, &key.Provider,
		&key.Algorithm, &key.Status, &key.SecretRef, &key.UsageCount, &key.LastUsed,
		&key.CertificateRequest, &key.Certificate, &metadataJSON,
		&key.CreatedAt, &key.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan key: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &key.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode key metadata: %w", err)
		}
	}
	return &key, nil
}

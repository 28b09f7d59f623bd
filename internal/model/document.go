package model

import "time"

// DocumentType is the content type of an uploaded document.
type DocumentType string

const (
	DocumentTypeText     DocumentType = "text"
	DocumentTypeMarkdown DocumentType = "markdown"
	DocumentTypeJSON     DocumentType = "json"
)

// Document represents an immutable uploaded document.
// Content is deduplicated globally by its SHA-256 hash; two uploads with
// identical content are rejected as duplicates. Content is never mutated
// after upload, so a later hash mismatch during verification indicates
// corruption or tampering, not a legitimate edit.
type Document struct {
	ID         string       `json:"id"`
	FileName   string       `json:"fileName"`
	FileType   DocumentType `json:"fileType"`
	Content    []byte       `json:"-"`
	Hash       string       `json:"hash"` // SHA-256, lowercase hex
	Size       int64        `json:"size"`
	UploadedBy string       `json:"uploadedBy"`
	UploadedAt time.Time    `json:"uploadedAt"`
}

package model

import "time"

// AuditLog represents an audit log entry
type AuditLog struct {
	ID           string                 `json:"id"`
	Actor        string                 `json:"actor"`
	Action       string                 `json:"action"`
	ResourceType *string                `json:"resourceType,omitempty"`
	ResourceID   *string                `json:"resourceId,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// Audit action constants
const (
	AuditActionKeyCreated       = "key.created"
	AuditActionKeyFallback      = "key.hardware_fallback"
	AuditActionKeyDisabled      = "key.disabled"
	AuditActionKeyEnabled       = "key.enabled"
	AuditActionKeyDeleted       = "key.deleted"
	AuditActionKeyCSRGenerated  = "key.csr_generated"
	AuditActionDocumentUploaded = "document.uploaded"
	AuditActionDocumentDeleted  = "document.deleted"
	AuditActionDocumentSigned   = "document.signed"
	AuditActionSignatureChecked = "signature.verified"
)

package handler

import (
	"errors"
	"net/http"

	"github.com/sealdoc/sealdoc/internal/model"
	"github.com/sealdoc/sealdoc/internal/service"
)

// --- Upload ---

type uploadDocumentRequest struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType,omitempty"`
	// Content is base64-encoded by encoding/json.
	Content []byte `json:"content"`
}

// UploadDocument stores a new document
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	var req uploadDocumentRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	doc, err := h.docSvc.Upload(r.Context(), req.FileName, model.DocumentType(req.FileType), req.Content, actor(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		case errors.Is(err, service.ErrDuplicateContent):
			writeError(w, http.StatusConflict, "duplicate_content", "A document with identical content already exists")
		default:
			h.log.Error().Err(err).Msg("failed to upload document")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to upload document")
		}
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// ListDocuments returns all documents without content
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docSvc.ListDocuments(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list documents")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list documents")
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

// GetDocument returns a document's metadata
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docSvc.GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDocumentNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Document not found")
		default:
			h.log.Error().Err(err).Msg("failed to get document")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get document")
		}
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// GetDocumentContent streams the raw document bytes
func (h *Handler) GetDocumentContent(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docSvc.GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDocumentNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Document not found")
		default:
			h.log.Error().Err(err).Msg("failed to get document content")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get document content")
		}
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	w.Write(doc.Content)
}

// DeleteDocument removes an unsigned document
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	err := h.docSvc.DeleteDocument(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDocumentNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Document not found")
		case errors.Is(err, service.ErrDocumentHasSignatures):
			writeError(w, http.StatusConflict, "document_signed", "Signed documents cannot be deleted")
		default:
			h.log.Error().Err(err).Msg("failed to delete document")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete document")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListDocumentSignatures returns all signatures on a document
func (h *Handler) ListDocumentSignatures(w http.ResponseWriter, r *http.Request) {
	sigs, err := h.docSvc.ListSignatures(r.Context(), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDocumentNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Document not found")
		default:
			h.log.Error().Err(err).Msg("failed to list signatures")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list signatures")
		}
		return
	}

	writeJSON(w, http.StatusOK, sigs)
}

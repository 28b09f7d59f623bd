package handler

import (
	"errors"
	"net/http"

	"github.com/sealdoc/sealdoc/internal/service"
)

// --- Sign ---

type signRequest struct {
	DocumentID string `json:"documentId"`
	KeyID      string `json:"keyId"`
}

// Sign produces a signature over a document with a key
func (h *Handler) Sign(w http.ResponseWriter, r *http.Request) {
	var req signRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	if req.DocumentID == "" || req.KeyID == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "documentId and keyId are required")
		return
	}

	sig, err := h.signSvc.Sign(r.Context(), req.DocumentID, req.KeyID, actor(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDocumentNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Document not found")
		case errors.Is(err, service.ErrKeyNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Key not found")
		case errors.Is(err, service.ErrKeyNotActive):
			writeError(w, http.StatusConflict, "key_not_active", "Key is not active")
		case errors.Is(err, service.ErrSigningFailure):
			h.log.Error().Err(err).Msg("signing failed")
			writeError(w, http.StatusBadGateway, "signing_failure", "The signing provider failed to produce a signature")
		default:
			h.log.Error().Err(err).Msg("failed to sign document")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to sign document")
		}
		return
	}

	writeJSON(w, http.StatusCreated, sig)
}

// GetSignature returns a signature record
func (h *Handler) GetSignature(w http.ResponseWriter, r *http.Request) {
	sig, err := h.signSvc.GetSignature(r.Context(), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSignatureNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Signature not found")
		default:
			h.log.Error().Err(err).Msg("failed to get signature")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get signature")
		}
		return
	}

	writeJSON(w, http.StatusOK, sig)
}

// VerifySignature re-checks a signature against the current document content
func (h *Handler) VerifySignature(w http.ResponseWriter, r *http.Request) {
	sig, err := h.signSvc.Verify(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSignatureNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Signature not found")
		case errors.Is(err, service.ErrDocumentNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Document not found")
		default:
			h.log.Error().Err(err).Msg("failed to verify signature")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to verify signature")
		}
		return
	}

	writeJSON(w, http.StatusOK, sig)
}

// ListArtifacts returns the artifacts produced for a signature
func (h *Handler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	arts, err := h.composer.ListArtifacts(r.Context(), r.PathValue("id"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list artifacts")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list artifacts")
		return
	}

	writeJSON(w, http.StatusOK, arts)
}

// DownloadArtifact streams a composed artifact
func (h *Handler) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	art, err := h.composer.GetArtifact(r.Context(), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrArtifactNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Artifact not found")
		default:
			h.log.Error().Err(err).Msg("failed to get artifact")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get artifact")
		}
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+art.FileName+`"`)
	w.Write(art.Content)
}

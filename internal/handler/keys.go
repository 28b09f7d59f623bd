package handler

import (
	"errors"
	"net/http"

	"github.com/sealdoc/sealdoc/internal/crypto"
	"github.com/sealdoc/sealdoc/internal/service"
)

// --- Create Key ---

type createKeyRequest struct {
	Name string `json:"name"`
}

// CreateKey issues a new signing key
func (h *Handler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	key, err := h.keySvc.CreateKey(r.Context(), req.Name, actor(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		case errors.Is(err, service.ErrDuplicateName):
			writeError(w, http.StatusConflict, "duplicate_name", "A key with this name already exists")
		default:
			h.log.Error().Err(err).Msg("failed to create key")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create key")
		}
		return
	}

	writeJSON(w, http.StatusCreated, key.ToInfo())
}

// ListKeys returns all keys
func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keySvc.ListKeys(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list keys")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list keys")
		return
	}

	writeJSON(w, http.StatusOK, keys)
}

// GetKey returns a single key
func (h *Handler) GetKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.keySvc.GetKey(r.Context(), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrKeyNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Key not found")
		default:
			h.log.Error().Err(err).Msg("failed to get key")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get key")
		}
		return
	}

	writeJSON(w, http.StatusOK, key.ToInfo())
}

// DeleteKey logically deletes a key
func (h *Handler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	err := h.keySvc.DeleteKey(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrKeyNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Key not found")
		default:
			h.log.Error().Err(err).Msg("failed to delete key")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete key")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DisableKey transitions an active key to disabled
func (h *Handler) DisableKey(w http.ResponseWriter, r *http.Request) {
	err := h.keySvc.DisableKey(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrKeyNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Key not found")
		case errors.Is(err, service.ErrKeyNotActive):
			writeError(w, http.StatusConflict, "key_not_active", "Key is not active")
		default:
			h.log.Error().Err(err).Msg("failed to disable key")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to disable key")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// EnableKey transitions a disabled key back to active
func (h *Handler) EnableKey(w http.ResponseWriter, r *http.Request) {
	err := h.keySvc.EnableKey(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrKeyNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Key not found")
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusConflict, "invalid_transition", err.Error())
		default:
			h.log.Error().Err(err).Msg("failed to enable key")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to enable key")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- CSR ---

type generateCSRRequest struct {
	CommonName   string `json:"commonName"`
	Organization string `json:"organization,omitempty"`
	Country      string `json:"country,omitempty"`
}

// GenerateCSR builds a PKCS#10 certificate request for the key
func (h *Handler) GenerateCSR(w http.ResponseWriter, r *http.Request) {
	var req generateCSRRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	subject := crypto.CSRSubject{
		CommonName:   req.CommonName,
		Organization: req.Organization,
		Country:      req.Country,
	}

	csrPEM, err := h.keySvc.GenerateCSR(r.Context(), r.PathValue("id"), subject, actor(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrKeyNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Key not found")
		case errors.Is(err, service.ErrKeyNotActive):
			writeError(w, http.StatusConflict, "key_not_active", "Key is not active")
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		default:
			h.log.Error().Err(err).Msg("failed to generate CSR")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to generate CSR")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"csr": csrPEM})
}

type storeCertificateRequest struct {
	Certificate string `json:"certificate"`
}

// StoreCertificate records an issued certificate on the key
func (h *Handler) StoreCertificate(w http.ResponseWriter, r *http.Request) {
	var req storeCertificateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	err := h.keySvc.StoreCertificate(r.Context(), r.PathValue("id"), req.Certificate)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrKeyNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Key not found")
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		default:
			h.log.Error().Err(err).Msg("failed to store certificate")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to store certificate")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

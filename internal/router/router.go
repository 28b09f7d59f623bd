package router

import (
	"net/http"

	"github.com/sealdoc/sealdoc/internal/handler"
	"github.com/sealdoc/sealdoc/internal/middleware"
)

// New creates and configures the HTTP router
func New(h *handler.Handler, mw *middleware.Middleware) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	// API v1 routes
	mux.HandleFunc("GET /api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"SealDoc API v1","version":"0.1.0"}`))
	})

	// Key lifecycle
	mux.HandleFunc("POST /api/v1/keys", h.CreateKey)
	mux.HandleFunc("GET /api/v1/keys", h.ListKeys)
	mux.HandleFunc("GET /api/v1/keys/{id}", h.GetKey)
	mux.HandleFunc("DELETE /api/v1/keys/{id}", h.DeleteKey)
	mux.HandleFunc("POST /api/v1/keys/{id}/disable", h.DisableKey)
	mux.HandleFunc("POST /api/v1/keys/{id}/enable", h.EnableKey)
	mux.HandleFunc("POST /api/v1/keys/{id}/csr", h.GenerateCSR)
	mux.HandleFunc("PUT /api/v1/keys/{id}/certificate", h.StoreCertificate)

	// Documents
	mux.HandleFunc("POST /api/v1/documents", h.UploadDocument)
	mux.HandleFunc("GET /api/v1/documents", h.ListDocuments)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.GetDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}/content", h.GetDocumentContent)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.DeleteDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}/signatures", h.ListDocumentSignatures)

	// Signing and verification
	mux.HandleFunc("POST /api/v1/signatures", h.Sign)
	mux.HandleFunc("GET /api/v1/signatures/{id}", h.GetSignature)
	mux.HandleFunc("POST /api/v1/signatures/{id}/verify", h.VerifySignature)
	mux.HandleFunc("GET /api/v1/signatures/{id}/artifacts", h.ListArtifacts)

	// Artifacts
	mux.HandleFunc("GET /api/v1/artifacts/{id}", h.DownloadArtifact)

	// Apply middleware stack
	var handler http.Handler = mux

	// Request logging
	handler = mw.Logger(handler)

	// Request ID
	handler = mw.RequestID(handler)

	// Panic recovery (outermost)
	handler = mw.Recover(handler)

	return handler
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sealdoc/sealdoc/internal/config"
	"github.com/sealdoc/sealdoc/internal/database"
	"github.com/sealdoc/sealdoc/internal/logger"
	"github.com/sealdoc/sealdoc/internal/service"
)

// Handler holds all HTTP handlers
type Handler struct {
	db       *database.Postgres
	rdb      *database.Redis
	log      *logger.Logger
	cfg      *config.Config
	keySvc   *service.KeyService
	docSvc   *service.DocumentService
	signSvc  *service.SigningService
	composer *service.Composer
}

// New creates a new Handler instance
func New(db *database.Postgres, rdb *database.Redis, log *logger.Logger, cfg *config.Config, keySvc *service.KeyService, docSvc *service.DocumentService, signSvc *service.SigningService, composer *service.Composer) *Handler {
	return &Handler{
		db:       db,
		rdb:      rdb,
		log:      log,
		cfg:      cfg,
		keySvc:   keySvc,
		docSvc:   docSvc,
		signSvc:  signSvc,
		composer: composer,
	}
}

// JSON helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// actor identifies the caller for audit purposes. The service runs without
// authentication, so the identity is self-reported via header.
func actor(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return "anonymous"
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sealdoc/sealdoc/internal/logger"
	"github.com/sealdoc/sealdoc/internal/model"
)

const (
	signatureBlockBegin = "---BEGIN DIGITAL SIGNATURE---"
	signatureBlockEnd   = "---END DIGITAL SIGNATURE---"

	// artifactTimeLayout keeps filenames sortable and shell-safe.
	artifactTimeLayout = "20060102T150405Z"
)

// Composer renders signed-document artifacts from a committed signature.
// Artifacts are derived data: every output can be regenerated from the
// document, the signature and the key record.
type Composer struct {
	artifacts artifactRepository
	outputDir string
	log       *logger.Logger
}

// NewComposer creates a Composer. outputDir may be empty, in which case
// artifacts are only persisted to the database.
func NewComposer(artifacts artifactRepository, outputDir string, log *logger.Logger) *Composer {
	return &Composer{
		artifacts: artifacts,
		outputDir: outputDir,
		log:       log.WithComponent("composer"),
	}
}

// Compose produces both the embedded and the detached artifact. Each format
// is attempted independently so one failing render still yields the other;
// the combined error reports every failure.
func (c *Composer) Compose(ctx context.Context, doc *model.Document, sig *model.Signature, key *model.Key) ([]*model.Artifact, error) {
	stamp := sig.SignedAt.UTC().Format(artifactTimeLayout)
	base := strings.TrimSuffix(doc.FileName, filepath.Ext(doc.FileName))
	ext := filepath.Ext(doc.FileName)
	if ext == "" {
		ext = ".txt"
	}

	var artifacts []*model.Artifact
	var errs []error

	embedded, err := c.composeEmbedded(doc, sig, key)
	if err != nil {
		errs = append(errs, fmt.Errorf("embedded artifact: %w", err))
	} else {
		art := &model.Artifact{
			ID:          generateID("art"),
			SignatureID: sig.ID,
			Format:      model.ArtifactEmbedded,
			FileName:    fmt.Sprintf("%s_%s_%s%s", base, key.Name, stamp, ext),
			Content:     embedded,
			CreatedAt:   time.Now(),
		}
		if err := c.persist(ctx, art); err != nil {
			errs = append(errs, fmt.Errorf("embedded artifact: %w", err))
		} else {
			artifacts = append(artifacts, art)
		}
	}

	detached, err := c.composeDetached(doc, sig, key)
	if err != nil {
		errs = append(errs, fmt.Errorf("detached artifact: %w", err))
	} else {
		art := &model.Artifact{
			ID:          generateID("art"),
			SignatureID: sig.ID,
			Format:      model.ArtifactDetached,
			FileName:    fmt.Sprintf("%s_%s_%s.sig", base, key.Name, stamp),
			Content:     detached,
			CreatedAt:   time.Now(),
		}
		if err := c.persist(ctx, art); err != nil {
			errs = append(errs, fmt.Errorf("detached artifact: %w", err))
		} else {
			artifacts = append(artifacts, art)
		}
	}

	return artifacts, errors.Join(errs...)
}

// GetArtifact retrieves an artifact with content.
func (c *Composer) GetArtifact(ctx context.Context, id string) (*model.Artifact, error) {
	art, err := c.artifacts.GetByID(ctx, id)
	if err != nil {
		return nil, ErrArtifactNotFound
	}
	return art, nil
}

// ListArtifacts returns the artifacts produced for a signature, without content.
func (c *Composer) ListArtifacts(ctx context.Context, signatureID string) ([]*model.Artifact, error) {
	return c.artifacts.ListBySignature(ctx, signatureID)
}

func (c *Composer) persist(ctx context.Context, art *model.Artifact) error {
	if err := c.artifacts.Create(ctx, art); err != nil {
		return fmt.Errorf("store artifact: %w", err)
	}

	// Writing to the output directory is a convenience export. The database
	// row is the system of record, so filesystem errors are logged only.
	if c.outputDir != "" {
		path := filepath.Join(c.outputDir, art.FileName)
		if err := os.WriteFile(path, art.Content, 0o644); err != nil {
			c.log.Warn().Err(err).Str("path", path).Msg("failed to export artifact to output directory")
		}
	}

	c.log.Info().
		Str("artifact_id", art.ID).
		Str("signature_id", art.SignatureID).
		Str("format", string(art.Format)).
		Str("file_name", art.FileName).
		Msg("artifact composed")
	return nil
}

// composeEmbedded splices signature metadata into a copy of the document.
// JSON documents get a _digitalSignature object merged at the top level;
// anything else, including JSON that no longer parses, gets a delimited
// text block appended. The original document bytes are never modified.
func (c *Composer) composeEmbedded(doc *model.Document, sig *model.Signature, key *model.Key) ([]byte, error) {
	if doc.FileType == model.DocumentTypeJSON {
		var parsed map[string]interface{}
		if err := json.Unmarshal(doc.Content, &parsed); err == nil {
			parsed["_digitalSignature"] = map[string]interface{}{
				"signatureId":  sig.ID,
				"algorithm":    sig.Algorithm,
				"value":        sig.Value,
				"documentHash": sig.DocumentHash,
				"signedAt":     sig.SignedAt.UTC().Format(time.RFC3339),
				"signedBy":     sig.SignedBy,
				"keyName":      key.Name,
				"keyType":      string(key.Backing),
			}
			return json.MarshalIndent(parsed, "", "  ")
		}
		c.log.Warn().Str("document_id", doc.ID).Msg("document content is not a JSON object, appending signature block instead")
	}

	var b strings.Builder
	b.Write(doc.Content)
	if len(doc.Content) > 0 && doc.Content[len(doc.Content)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(signatureBlockBegin)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Signature-ID: %s\n", sig.ID)
	fmt.Fprintf(&b, "Algorithm: %s\n", sig.Algorithm)
	fmt.Fprintf(&b, "Signature: %s\n", sig.Value)
	fmt.Fprintf(&b, "Document-Hash: %s\n", sig.DocumentHash)
	fmt.Fprintf(&b, "Signed-At: %s\n", sig.SignedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Signed-By: %s\n", sig.SignedBy)
	fmt.Fprintf(&b, "Key-Name: %s\n", key.Name)
	fmt.Fprintf(&b, "Key-Type: %s\n", key.Backing)
	b.WriteString(signatureBlockEnd)
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// composeDetached builds the standalone manifest. It carries everything a
// verifier needs except the document bytes themselves.
func (c *Composer) composeDetached(doc *model.Document, sig *model.Signature, key *model.Key) ([]byte, error) {
	providerName := ""
	if key.Provider != nil {
		providerName = *key.Provider
	}

	manifest := map[string]interface{}{
		"documentInfo": map[string]interface{}{
			"fileName": doc.FileName,
			"fileType": string(doc.FileType),
			"hash":     doc.Hash,
			"size":     doc.Size,
		},
		"signature": map[string]interface{}{
			"id":           sig.ID,
			"algorithm":    sig.Algorithm,
			"value":        sig.Value,
			"documentHash": sig.DocumentHash,
			"signedAt":     sig.SignedAt.UTC().Format(time.RFC3339),
			"signedBy":     sig.SignedBy,
		},
		"key": map[string]interface{}{
			"name":       key.Name,
			"type":       string(key.Backing),
			"provider":   providerName,
			"isHardware": key.Backing == model.BackingHardware,
		},
	}
	return json.MarshalIndent(manifest, "", "  ")
}

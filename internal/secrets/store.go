// Package secrets is the storage abstraction for software-backed private
// key material. Material is sealed with AES-256-GCM under a key derived
// from the configured master key, and addressed by an opaque Ref. Nothing
// outside this package ever sees plaintext key bytes at rest, and key
// material never travels through generic metadata maps.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// Ref is an opaque, versioned reference to sealed key material.
// It is safe to persist alongside the key record.
type Ref string

const refPrefixV1 = "aesgcm-v1:"

var (
	// ErrNoMasterKey is returned when the store is constructed without a
	// master key; software key creation is disabled in that state.
	ErrNoMasterKey = errors.New("secrets: master key not configured")
	// ErrMalformedRef is returned for refs this store did not produce.
	ErrMalformedRef = errors.New("secrets: malformed secret reference")
)

// Store seals and opens software private key material.
type Store interface {
	// Seal encrypts material bound to the given key name and returns a Ref.
	Seal(keyName string, material []byte) (Ref, error)
	// Open decrypts the material referenced by ref. The key name must match
	// the one used at Seal time.
	Open(keyName string, ref Ref) ([]byte, error)
}

// KeyStore is the AES-256-GCM implementation of Store.
type KeyStore struct {
	encKey []byte
}

// NewKeyStore derives the sealing key from a hex-encoded 256-bit master key
// using HKDF-SHA256.
func NewKeyStore(masterKeyHex string) (*KeyStore, error) {
	if masterKeyHex == "" {
		return nil, ErrNoMasterKey
	}
	master, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("secrets: decode master key: %w", err)
	}
	if len(master) != 32 {
		return nil, fmt.Errorf("secrets: master key must be 32 bytes, got %d", len(master))
	}

	r := hkdf.New(sha256.New, master, nil, []byte("sealdoc/software-key-store/v1"))
	encKey := make([]byte, 32)
	if _, err := io.ReadFull(r, encKey); err != nil {
		return nil, fmt.Errorf("secrets: derive sealing key: %w", err)
	}

	return &KeyStore{encKey: encKey}, nil
}

// Seal encrypts material with AES-256-GCM. The key name is bound as
// additional authenticated data, so a ref cannot be replayed onto a
// different key record.
func (s *KeyStore) Seal(keyName string, material []byte) (Ref, error) {
	gcm, err := s.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secrets: generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, material, []byte(keyName))
	return Ref(refPrefixV1 + base64.StdEncoding.EncodeToString(sealed)), nil
}

// Open decrypts material sealed by Seal.
func (s *KeyStore) Open(keyName string, ref Ref) ([]byte, error) {
	encoded, ok := strings.CutPrefix(string(ref), refPrefixV1)
	if !ok {
		return nil, ErrMalformedRef
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrMalformedRef
	}

	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrMalformedRef
	}

	nonce, ct := sealed[:nonceSize], sealed[nonceSize:]
	material, err := gcm.Open(nil, nonce, ct, []byte(keyName))
	if err != nil {
		return nil, fmt.Errorf("secrets: open sealed material: %w", err)
	}
	return material, nil
}

func (s *KeyStore) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.encKey)
	if err != nil {
		return nil, fmt.Errorf("secrets: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets: aes gcm: %w", err)
	}
	return gcm, nil
}

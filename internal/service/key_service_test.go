package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sealdoc/sealdoc/internal/crypto"
	"github.com/sealdoc/sealdoc/internal/logger"
	"github.com/sealdoc/sealdoc/internal/model"
	"github.com/sealdoc/sealdoc/internal/provider"
	"github.com/sealdoc/sealdoc/internal/secrets"
)

const testMasterKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func testLogger() *logger.Logger {
	return logger.New("error", "json")
}

func newSoftwareProvider(t *testing.T) provider.Provider {
	t.Helper()
	store, err := secrets.NewKeyStore(testMasterKey)
	require.NoError(t, err)
	return provider.NewSoftware(store, testLogger())
}

// newHardwareFake returns a fake hardware provider that produces genuine
// ECDSA signatures, so CSR and verification flows see real cryptography.
func newHardwareFake(t *testing.T) (*fakeProvider, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	pubPEM, err := crypto.EncodePublicKey(&key.PublicKey)
	require.NoError(t, err)

	return &fakeProvider{
		name: "Test Platform Provider",
		createFn: func(_ context.Context, keyName string) (*provider.CreateResult, error) {
			return &provider.CreateResult{
				Handle:    "tpm-" + keyName,
				PublicKey: pubPEM,
				Provider:  "Test Platform Provider",
				Algorithm: crypto.AlgorithmES256,
			}, nil
		},
		signFn: func(_ context.Context, req provider.SignRequest) ([]byte, error) {
			return crypto.SignDigest(key, req.Digest)
		},
	}, key
}

type keyServiceFixture struct {
	svc      *KeyService
	keys     *fakeKeyRepo
	audits   *fakeAuditRepo
	probe    *fakeProbe
	hardware *fakeProvider
}

func newKeyServiceFixture(t *testing.T, hardwareAvailable bool) *keyServiceFixture {
	t.Helper()
	keys := newFakeKeyRepo()
	audits := newFakeAuditRepo()
	probe := &fakeProbe{available: hardwareAvailable, detail: "test probe"}
	hardware, _ := newHardwareFake(t)

	svc := NewKeyService(keys, audits, probe, hardware, newSoftwareProvider(t), NewLocalKeyLock(), testLogger())
	return &keyServiceFixture{svc: svc, keys: keys, audits: audits, probe: probe, hardware: hardware}
}

func TestCreateKeyHardware(t *testing.T) {
	f := newKeyServiceFixture(t, true)

	key, err := f.svc.CreateKey(context.Background(), "release-signing", "tester")
	require.NoError(t, err)

	assert.Equal(t, model.BackingHardware, key.Backing)
	require.NotNil(t, key.Provider)
	assert.Equal(t, "Test Platform Provider", *key.Provider)
	assert.Equal(t, "tpm-release-signing", key.Handle)
	assert.Equal(t, model.KeyStatusActive, key.Status)
	assert.Nil(t, key.SecretRef)
	assert.Contains(t, f.audits.actions(), model.AuditActionKeyCreated)
}

func TestCreateKeySoftwareWhenHardwareUnavailable(t *testing.T) {
	f := newKeyServiceFixture(t, false)

	key, err := f.svc.CreateKey(context.Background(), "release-signing", "tester")
	require.NoError(t, err)

	assert.Equal(t, model.BackingSoftware, key.Backing)
	assert.Nil(t, key.Provider)
	require.NotNil(t, key.SecretRef)
	assert.NotEmpty(t, *key.SecretRef)
	assert.Equal(t, crypto.AlgorithmES256, key.Algorithm)
}

func TestCreateKeyFallsBackOnHardwareFailure(t *testing.T) {
	f := newKeyServiceFixture(t, true)
	f.hardware.createFn = func(context.Context, string) (*provider.CreateResult, error) {
		return nil, &provider.OperationError{Op: "create", Message: "TPM rejected template"}
	}

	key, err := f.svc.CreateKey(context.Background(), "release-signing", "tester")
	require.NoError(t, err)

	// Creation succeeds degraded: the key is software-backed and the
	// fallback is audited.
	assert.Equal(t, model.BackingSoftware, key.Backing)
	assert.Nil(t, key.Provider)
	assert.Contains(t, f.audits.actions(), model.AuditActionKeyFallback)
	assert.Contains(t, f.audits.actions(), model.AuditActionKeyCreated)
}

func TestCreateKeyDuplicateName(t *testing.T) {
	f := newKeyServiceFixture(t, false)

	_, err := f.svc.CreateKey(context.Background(), "release-signing", "tester")
	require.NoError(t, err)

	_, err = f.svc.CreateKey(context.Background(), "release-signing", "tester")
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestCreateKeyDuplicateNameAfterDeletion(t *testing.T) {
	f := newKeyServiceFixture(t, false)

	key, err := f.svc.CreateKey(context.Background(), "release-signing", "tester")
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteKey(context.Background(), key.ID, "tester"))

	// Deleted keys still occupy their name.
	_, err = f.svc.CreateKey(context.Background(), "release-signing", "tester")
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestCreateKeyNameValidation(t *testing.T) {
	f := newKeyServiceFixture(t, false)

	for _, name := range []string{
		"",
		"-leading-dash",
		".leading-dot",
		"has spaces",
		"slash/in/name",
		"waaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaay-too-long",
	} {
		_, err := f.svc.CreateKey(context.Background(), name, "tester")
		assert.ErrorIs(t, err, ErrValidation, "name %q", name)
	}
}

func TestDisableEnableKey(t *testing.T) {
	f := newKeyServiceFixture(t, false)

	key, err := f.svc.CreateKey(context.Background(), "release-signing", "tester")
	require.NoError(t, err)

	require.NoError(t, f.svc.DisableKey(context.Background(), key.ID, "tester"))
	got, err := f.svc.GetKey(context.Background(), key.ID)
	require.NoError(t, err)
	assert.Equal(t, model.KeyStatusDisabled, got.Status)

	// Disabling twice is a conflict.
	assert.ErrorIs(t, f.svc.DisableKey(context.Background(), key.ID, "tester"), ErrKeyNotActive)

	require.NoError(t, f.svc.EnableKey(context.Background(), key.ID, "tester"))
	got, err = f.svc.GetKey(context.Background(), key.ID)
	require.NoError(t, err)
	assert.Equal(t, model.KeyStatusActive, got.Status)

	// Enabling an active key is a validation error.
	assert.ErrorIs(t, f.svc.EnableKey(context.Background(), key.ID, "tester"), ErrValidation)
}

func TestDeleteKeyIsIdempotent(t *testing.T) {
	f := newKeyServiceFixture(t, true)

	key, err := f.svc.CreateKey(context.Background(), "release-signing", "tester")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteKey(context.Background(), key.ID, "tester"))
	got, err := f.svc.GetKey(context.Background(), key.ID)
	require.NoError(t, err)
	assert.Equal(t, model.KeyStatusDeleted, got.Status)

	// Second delete succeeds without touching the provider again.
	require.NoError(t, f.svc.DeleteKey(context.Background(), key.ID, "tester"))
	assert.Equal(t, 1, f.hardware.delCalls)
}

func TestDeleteKeyToleratesProviderNotFound(t *testing.T) {
	f := newKeyServiceFixture(t, true)
	f.hardware.deleteFn = func(context.Context, string, string) error {
		return provider.ErrKeyNotFound
	}

	key, err := f.svc.CreateKey(context.Background(), "release-signing", "tester")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteKey(context.Background(), key.ID, "tester"))
	got, err := f.svc.GetKey(context.Background(), key.ID)
	require.NoError(t, err)
	assert.Equal(t, model.KeyStatusDeleted, got.Status)
}

func TestDeleteKeyToleratesProviderFailure(t *testing.T) {
	f := newKeyServiceFixture(t, true)
	f.hardware.deleteFn = func(context.Context, string, string) error {
		return errors.New("TPM wedged")
	}

	key, err := f.svc.CreateKey(context.Background(), "release-signing", "tester")
	require.NoError(t, err)

	// The logical delete always wins; provider state is observability only.
	require.NoError(t, f.svc.DeleteKey(context.Background(), key.ID, "tester"))
	got, err := f.svc.GetKey(context.Background(), key.ID)
	require.NoError(t, err)
	assert.Equal(t, model.KeyStatusDeleted, got.Status)
}

func TestDeleteKeySoftwareSkipsProvider(t *testing.T) {
	f := newKeyServiceFixture(t, false)

	key, err := f.svc.CreateKey(context.Background(), "release-signing", "tester")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteKey(context.Background(), key.ID, "tester"))
	assert.Equal(t, 0, f.hardware.delCalls)
}

func TestDeleteKeyNotFound(t *testing.T) {
	f := newKeyServiceFixture(t, false)
	assert.ErrorIs(t, f.svc.DeleteKey(context.Background(), "key_missing", "tester"), ErrKeyNotFound)
}

func TestGenerateCSR(t *testing.T) {
	f := newKeyServiceFixture(t, true)

	key, err := f.svc.CreateKey(context.Background(), "release-signing", "tester")
	require.NoError(t, err)

	csrPEM, err := f.svc.GenerateCSR(context.Background(), key.ID, crypto.CSRSubject{
		CommonName:   "release.example.com",
		Organization: "Example Corp",
	}, "tester")
	require.NoError(t, err)

	block, _ := pem.Decode([]byte(csrPEM))
	require.NotNil(t, block)
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	require.NoError(t, err)
	require.NoError(t, csr.CheckSignature())
	assert.Equal(t, "release.example.com", csr.Subject.CommonName)

	// The CSR lands on the key record.
	got, err := f.svc.GetKey(context.Background(), key.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CertificateRequest)
	assert.Equal(t, csrPEM, *got.CertificateRequest)
	assert.Contains(t, f.audits.actions(), model.AuditActionKeyCSRGenerated)
}

func TestGenerateCSRSoftwareKey(t *testing.T) {
	f := newKeyServiceFixture(t, false)

	key, err := f.svc.CreateKey(context.Background(), "release-signing", "tester")
	require.NoError(t, err)

	csrPEM, err := f.svc.GenerateCSR(context.Background(), key.ID, crypto.CSRSubject{
		CommonName: "release.example.com",
	}, "tester")
	require.NoError(t, err)

	block, _ := pem.Decode([]byte(csrPEM))
	require.NotNil(t, block)
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	require.NoError(t, err)
	assert.NoError(t, csr.CheckSignature())
}

func TestGenerateCSRRequiresActiveKey(t *testing.T) {
	f := newKeyServiceFixture(t, false)

	key, err := f.svc.CreateKey(context.Background(), "release-signing", "tester")
	require.NoError(t, err)
	require.NoError(t, f.svc.DisableKey(context.Background(), key.ID, "tester"))

	_, err = f.svc.GenerateCSR(context.Background(), key.ID, crypto.CSRSubject{CommonName: "x"}, "tester")
	assert.ErrorIs(t, err, ErrKeyNotActive)
}

func TestStoreCertificate(t *testing.T) {
	f := newKeyServiceFixture(t, false)

	key, err := f.svc.CreateKey(context.Background(), "release-signing", "tester")
	require.NoError(t, err)

	require.NoError(t, f.svc.StoreCertificate(context.Background(), key.ID, "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n"))

	assert.ErrorIs(t, f.svc.StoreCertificate(context.Background(), key.ID, ""), ErrValidation)
	assert.ErrorIs(t, f.svc.StoreCertificate(context.Background(), "key_missing", "cert"), ErrKeyNotFound)
}

func TestListKeysReturnsPublicView(t *testing.T) {
	f := newKeyServiceFixture(t, false)

	_, err := f.svc.CreateKey(context.Background(), "key-one", "tester")
	require.NoError(t, err)
	_, err = f.svc.CreateKey(context.Background(), "key-two", "tester")
	require.NoError(t, err)

	infos, err := f.svc.ListKeys(context.Background())
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

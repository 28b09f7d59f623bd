package service

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sealdoc/sealdoc/internal/crypto"
	"github.com/sealdoc/sealdoc/internal/model"
	"github.com/sealdoc/sealdoc/internal/provider"
)

type signingFixture struct {
	keySvc   *KeyService
	docSvc   *DocumentService
	signSvc  *SigningService
	keys     *fakeKeyRepo
	docs     *fakeDocRepo
	sigs     *fakeSigRepo
	arts     *fakeArtRepo
	audits   *fakeAuditRepo
	hardware *fakeProvider
}

func newSigningFixture(t *testing.T, hardwareAvailable bool) *signingFixture {
	t.Helper()
	keys := newFakeKeyRepo()
	docs := newFakeDocRepo()
	sigs := newFakeSigRepo()
	arts := newFakeArtRepo()
	audits := newFakeAuditRepo()
	probe := &fakeProbe{available: hardwareAvailable, detail: "test probe"}
	hardware, _ := newHardwareFake(t)
	software := newSoftwareProvider(t)
	locks := NewLocalKeyLock()
	log := testLogger()

	composer := NewComposer(arts, "", log)
	return &signingFixture{
		keySvc:   NewKeyService(keys, audits, probe, hardware, software, locks, log),
		docSvc:   NewDocumentService(docs, sigs, audits, log),
		signSvc:  NewSigningService(keys, docs, sigs, audits, hardware, software, composer, locks, log),
		keys:     keys,
		docs:     docs,
		sigs:     sigs,
		arts:     arts,
		audits:   audits,
		hardware: hardware,
	}
}

func (f *signingFixture) createKeyAndDocument(t *testing.T, content []byte) (*model.Key, *model.Document) {
	t.Helper()
	key, err := f.keySvc.CreateKey(context.Background(), "release-signing", "tester")
	require.NoError(t, err)
	doc, err := f.docSvc.Upload(context.Background(), "contract.txt", "", content, "tester")
	require.NoError(t, err)
	return key, doc
}

func TestSignSoftwareKey(t *testing.T) {
	f := newSigningFixture(t, false)
	content := []byte("sign me")
	key, doc := f.createKeyAndDocument(t, content)

	sig, err := f.signSvc.Sign(context.Background(), doc.ID, key.ID, "tester")
	require.NoError(t, err)

	assert.Equal(t, doc.ID, sig.DocumentID)
	assert.Equal(t, key.ID, sig.KeyID)
	assert.Equal(t, crypto.HashContent(content), sig.DocumentHash)
	assert.Equal(t, model.VerificationPending, sig.VerificationStatus)
	assert.Equal(t, "tester", sig.SignedBy)

	// The stored value is a hex ASN.1 DER signature verifiable with the
	// key's exported public key.
	pub, err := crypto.DecodePublicKey(key.PublicKey)
	require.NoError(t, err)
	raw, err := hex.DecodeString(sig.Value)
	require.NoError(t, err)
	assert.True(t, crypto.VerifyDigest(pub, crypto.HashBytes(content), raw))

	assert.Contains(t, f.audits.actions(), model.AuditActionDocumentSigned)
}

func TestSignHardwareKey(t *testing.T) {
	f := newSigningFixture(t, true)
	key, doc := f.createKeyAndDocument(t, []byte("hardware signed"))

	sig, err := f.signSvc.Sign(context.Background(), doc.ID, key.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, 1, f.hardware.signCalls)

	pub, err := crypto.DecodePublicKey(key.PublicKey)
	require.NoError(t, err)
	raw, err := hex.DecodeString(sig.Value)
	require.NoError(t, err)
	assert.True(t, crypto.VerifyDigest(pub, crypto.HashBytes([]byte("hardware signed")), raw))
}

func TestSignUpdatesUsage(t *testing.T) {
	f := newSigningFixture(t, false)
	key, doc := f.createKeyAndDocument(t, []byte("usage tracking"))

	doc2, err := f.docSvc.Upload(context.Background(), "second.txt", "", []byte("another document"), "tester")
	require.NoError(t, err)

	_, err = f.signSvc.Sign(context.Background(), doc.ID, key.ID, "tester")
	require.NoError(t, err)
	_, err = f.signSvc.Sign(context.Background(), doc2.ID, key.ID, "tester")
	require.NoError(t, err)

	got, err := f.keySvc.GetKey(context.Background(), key.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.UsageCount)
	assert.NotNil(t, got.LastUsed)
}

func TestSignRejectsInactiveKey(t *testing.T) {
	f := newSigningFixture(t, false)
	key, doc := f.createKeyAndDocument(t, []byte("content"))

	require.NoError(t, f.keySvc.DisableKey(context.Background(), key.ID, "tester"))
	_, err := f.signSvc.Sign(context.Background(), doc.ID, key.ID, "tester")
	assert.ErrorIs(t, err, ErrKeyNotActive)

	require.NoError(t, f.keySvc.EnableKey(context.Background(), key.ID, "tester"))
	require.NoError(t, f.keySvc.DeleteKey(context.Background(), key.ID, "tester"))
	_, err = f.signSvc.Sign(context.Background(), doc.ID, key.ID, "tester")
	assert.ErrorIs(t, err, ErrKeyNotActive)
}

func TestSignHardwareFailureNeverFallsBack(t *testing.T) {
	f := newSigningFixture(t, true)
	key, doc := f.createKeyAndDocument(t, []byte("content"))

	f.hardware.signFn = func(context.Context, provider.SignRequest) ([]byte, error) {
		return nil, provider.ErrTimeout
	}

	_, err := f.signSvc.Sign(context.Background(), doc.ID, key.ID, "tester")
	require.ErrorIs(t, err, ErrSigningFailure)
	// The cause stays inspectable through the wrap.
	assert.ErrorIs(t, err, provider.ErrTimeout)

	// No signature record and no usage update leak out of the failure.
	sigs, err := f.sigs.ListByDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Empty(t, sigs)

	got, err := f.keySvc.GetKey(context.Background(), key.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.UsageCount)
}

func TestSignComposesArtifacts(t *testing.T) {
	f := newSigningFixture(t, false)
	key, doc := f.createKeyAndDocument(t, []byte("artifact source"))

	sig, err := f.signSvc.Sign(context.Background(), doc.ID, key.ID, "tester")
	require.NoError(t, err)

	arts, err := f.arts.ListBySignature(context.Background(), sig.ID)
	require.NoError(t, err)
	require.Len(t, arts, 2)

	formats := map[model.ArtifactFormat]bool{}
	for _, a := range arts {
		formats[a.Format] = true
	}
	assert.True(t, formats[model.ArtifactEmbedded])
	assert.True(t, formats[model.ArtifactDetached])
}

func TestSignSurvivesArtifactFailure(t *testing.T) {
	f := newSigningFixture(t, false)
	key, doc := f.createKeyAndDocument(t, []byte("content"))

	f.arts.createErr = errors.New("artifact store down")

	// Composition failure is logged, never surfaced: the signature stands.
	sig, err := f.signSvc.Sign(context.Background(), doc.ID, key.ID, "tester")
	require.NoError(t, err)

	stored, err := f.sigs.GetByID(context.Background(), sig.ID)
	require.NoError(t, err)
	assert.Equal(t, sig.Value, stored.Value)
}

func TestSignUnknownDocumentAndKey(t *testing.T) {
	f := newSigningFixture(t, false)
	key, doc := f.createKeyAndDocument(t, []byte("content"))

	_, err := f.signSvc.Sign(context.Background(), "doc_missing", key.ID, "tester")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = f.signSvc.Sign(context.Background(), doc.ID, "key_missing", "tester")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestVerifyValidSignature(t *testing.T) {
	f := newSigningFixture(t, false)
	key, doc := f.createKeyAndDocument(t, []byte("verify me"))

	sig, err := f.signSvc.Sign(context.Background(), doc.ID, key.ID, "tester")
	require.NoError(t, err)

	verified, err := f.signSvc.Verify(context.Background(), sig.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, model.VerificationValid, verified.VerificationStatus)
	assert.Equal(t, int64(1), verified.VerificationCount)
	assert.NotNil(t, verified.LastVerified)

	// Verification is repeatable and counted.
	verified, err = f.signSvc.Verify(context.Background(), sig.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, int64(2), verified.VerificationCount)
	assert.Contains(t, f.audits.actions(), model.AuditActionSignatureChecked)
}

func TestVerifyDetectsContentChange(t *testing.T) {
	f := newSigningFixture(t, false)
	key, doc := f.createKeyAndDocument(t, []byte("original"))

	sig, err := f.signSvc.Sign(context.Background(), doc.ID, key.ID, "tester")
	require.NoError(t, err)

	// Corrupt the stored content. The hash precondition must fail the
	// verification before any cryptographic check runs.
	f.docs.setContent(doc.ID, []byte("tampered"))

	verified, err := f.signSvc.Verify(context.Background(), sig.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, model.VerificationInvalid, verified.VerificationStatus)
}

func TestVerifyDetectsForgedSignature(t *testing.T) {
	f := newSigningFixture(t, false)
	key, doc := f.createKeyAndDocument(t, []byte("content"))

	sig, err := f.signSvc.Sign(context.Background(), doc.ID, key.ID, "tester")
	require.NoError(t, err)

	// Replace the signature value with one from a different key.
	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	forged, err := crypto.SignDigest(other, crypto.HashBytes([]byte("content")))
	require.NoError(t, err)
	stored, err := f.sigs.GetByID(context.Background(), sig.ID)
	require.NoError(t, err)
	stored.Value = hex.EncodeToString(forged)
	require.NoError(t, f.sigs.Create(context.Background(), stored))

	verified, err := f.signSvc.Verify(context.Background(), sig.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, model.VerificationInvalid, verified.VerificationStatus)
}

func TestVerifyUnknownSignature(t *testing.T) {
	f := newSigningFixture(t, false)
	_, err := f.signSvc.Verify(context.Background(), "sig_missing", "tester")
	assert.ErrorIs(t, err, ErrSignatureNotFound)
}

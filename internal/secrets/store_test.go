package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMasterKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newTestStore(t *testing.T) *KeyStore {
	t.Helper()
	store, err := NewKeyStore(testMasterKey)
	require.NoError(t, err)
	return store
}

func TestSealOpenRoundTrip(t *testing.T) {
	store := newTestStore(t)

	material := []byte("pkcs8 private key bytes")
	ref, err := store.Seal("release-signing", material)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(ref), "aesgcm-v1:"))

	opened, err := store.Open("release-signing", ref)
	require.NoError(t, err)
	assert.Equal(t, material, opened)
}

func TestOpenRejectsWrongKeyName(t *testing.T) {
	store := newTestStore(t)

	ref, err := store.Seal("release-signing", []byte("material"))
	require.NoError(t, err)

	// The key name is authenticated data; a ref cannot be replayed onto
	// another key record.
	_, err = store.Open("other-key", ref)
	assert.Error(t, err)
}

func TestOpenRejectsMalformedRefs(t *testing.T) {
	store := newTestStore(t)

	for _, ref := range []Ref{
		"",
		"plain text",
		"aesgcm-v1:!!!not base64!!!",
		"aesgcm-v1:aGk=", // too short to carry a nonce
		"aesgcm-v2:AAAA",
	} {
		_, err := store.Open("key", ref)
		assert.ErrorIs(t, err, ErrMalformedRef, "ref %q", ref)
	}
}

func TestOpenRejectsCorruptedCiphertext(t *testing.T) {
	store := newTestStore(t)

	ref, err := store.Seal("key", []byte("material"))
	require.NoError(t, err)

	// Re-seal under a different store; the ref shape is valid but the
	// ciphertext does not authenticate.
	other, err := NewKeyStore("ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	require.NoError(t, err)
	_, err = other.Open("key", ref)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedRef)
}

func TestNewKeyStoreValidation(t *testing.T) {
	_, err := NewKeyStore("")
	assert.ErrorIs(t, err, ErrNoMasterKey)

	_, err = NewKeyStore("not hex")
	assert.Error(t, err)

	_, err = NewKeyStore("abcd") // too short
	assert.Error(t, err)
}

func TestSealIsNonDeterministic(t *testing.T) {
	store := newTestStore(t)

	a, err := store.Seal("key", []byte("material"))
	require.NoError(t, err)
	b, err := store.Seal("key", []byte("material"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

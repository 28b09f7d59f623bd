package service

import (
	"context"
	stdcrypto "crypto"
	"fmt"
	"io"

	"github.com/sealdoc/sealdoc/internal/crypto"
	"github.com/sealdoc/sealdoc/internal/model"
	"github.com/sealdoc/sealdoc/internal/provider"
)

// providerSigner adapts a key's provider to crypto.Signer so CSR creation
// can sign through the same dispatch path as document signing. Private key
// material stays wherever the provider keeps it.
type providerSigner struct {
	ctx  context.Context
	prov provider.Provider
	key  *model.Key
	pub  stdcrypto.PublicKey
}

func newProviderSigner(ctx context.Context, prov provider.Provider, key *model.Key) (*providerSigner, error) {
	pub, err := crypto.DecodePublicKey(key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("decode key public key: %w", err)
	}
	return &providerSigner{ctx: ctx, prov: prov, key: key, pub: pub}, nil
}

// Public returns the key's exported public key.
func (s *providerSigner) Public() stdcrypto.PublicKey {
	return s.pub
}

// Sign delegates the digest to the key's provider.
func (s *providerSigner) Sign(_ io.Reader, digest []byte, _ stdcrypto.SignerOpts) ([]byte, error) {
	req := provider.SignRequest{
		KeyName: s.key.Name,
		Handle:  s.key.Handle,
		Digest:  digest,
	}
	if s.key.SecretRef != nil {
		req.SecretRef = *s.key.SecretRef
	}
	return s.prov.Sign(s.ctx, req)
}

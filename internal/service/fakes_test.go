package service

import (
	"context"
	"sync"
	"time"

	"github.com/sealdoc/sealdoc/internal/model"
	"github.com/sealdoc/sealdoc/internal/provider"
	"github.com/sealdoc/sealdoc/internal/repository"
)

// In-memory fakes for the consumer-side repository interfaces.

type fakeKeyRepo struct {
	mu   sync.Mutex
	keys map[string]*model.Key
}

func newFakeKeyRepo() *fakeKeyRepo {
	return &fakeKeyRepo{keys: make(map[string]*model.Key)}
}

func (r *fakeKeyRepo) Create(_ context.Context, key *model.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.Name == key.Name {
			return repository.ErrDuplicate
		}
	}
	cp := *key
	r.keys[key.ID] = &cp
	return nil
}

func (r *fakeKeyRepo) GetByID(_ context.Context, id string) (*model.Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *k
	return &cp, nil
}

func (r *fakeKeyRepo) GetByName(_ context.Context, name string) (*model.Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.Name == name {
			cp := *k
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeKeyRepo) List(_ context.Context) ([]*model.Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Key, 0, len(r.keys))
	for _, k := range r.keys {
		cp := *k
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeKeyRepo) UpdateStatus(_ context.Context, id string, status model.KeyStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return repository.ErrNotFound
	}
	k.Status = status
	k.UpdatedAt = time.Now()
	return nil
}

func (r *fakeKeyRepo) RecordUsage(_ context.Context, id string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return repository.ErrNotFound
	}
	k.UsageCount++
	k.LastUsed = &usedAt
	return nil
}

func (r *fakeKeyRepo) SetCertificateRequest(_ context.Context, id, csrPEM string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return repository.ErrNotFound
	}
	k.CertificateRequest = &csrPEM
	return nil
}

func (r *fakeKeyRepo) SetCertificate(_ context.Context, id, certPEM string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return repository.ErrNotFound
	}
	k.Certificate = &certPEM
	return nil
}

type fakeDocRepo struct {
	mu   sync.Mutex
	docs map[string]*model.Document
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: make(map[string]*model.Document)}
}

func (r *fakeDocRepo) Create(_ context.Context, doc *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.Hash == doc.Hash {
			return repository.ErrDuplicate
		}
	}
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *fakeDocRepo) GetByID(_ context.Context, id string) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDocRepo) GetByHash(_ context.Context, hash string) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.Hash == hash {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeDocRepo) List(_ context.Context) ([]*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Document, 0, len(r.docs))
	for _, d := range r.docs {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeDocRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

// setContent mutates stored content in place, simulating corruption.
func (r *fakeDocRepo) setContent(id string, content []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[id].Content = content
}

type fakeSigRepo struct {
	mu   sync.Mutex
	sigs map[string]*model.Signature
}

func newFakeSigRepo() *fakeSigRepo {
	return &fakeSigRepo{sigs: make(map[string]*model.Signature)}
}

func (r *fakeSigRepo) Create(_ context.Context, sig *model.Signature) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sig
	r.sigs[sig.ID] = &cp
	return nil
}

func (r *fakeSigRepo) GetByID(_ context.Context, id string) (*model.Signature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sigs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSigRepo) ListByDocument(_ context.Context, documentID string) ([]*model.Signature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Signature
	for _, s := range r.sigs {
		if s.DocumentID == documentID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeSigRepo) CountByDocument(_ context.Context, documentID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sigs {
		if s.DocumentID == documentID {
			n++
		}
	}
	return n, nil
}

func (r *fakeSigRepo) RecordVerification(_ context.Context, id string, status model.VerificationStatus, verifiedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sigs[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.VerificationStatus = status
	s.LastVerified = &verifiedAt
	s.VerificationCount++
	return nil
}

type fakeArtRepo struct {
	mu        sync.Mutex
	arts      map[string]*model.Artifact
	createErr error
}

func newFakeArtRepo() *fakeArtRepo {
	return &fakeArtRepo{arts: make(map[string]*model.Artifact)}
}

func (r *fakeArtRepo) Create(_ context.Context, art *model.Artifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *art
	r.arts[art.ID] = &cp
	return nil
}

func (r *fakeArtRepo) GetByID(_ context.Context, id string) (*model.Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.arts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeArtRepo) ListBySignature(_ context.Context, signatureID string) ([]*model.Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Artifact
	for _, a := range r.arts {
		if a.SignatureID == signatureID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*model.AuditLog
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

type fakeProbe struct {
	available bool
	detail    string
}

func (p *fakeProbe) HardwareAvailable() bool { return p.available }
func (p *fakeProbe) Detail() string          { return p.detail }

// fakeProvider scripts provider behavior per test. Unset functions fall back
// to a real in-memory ECDSA implementation so CSR and verification paths can
// exercise genuine signatures.
type fakeProvider struct {
	name      string
	createFn  func(ctx context.Context, keyName string) (*provider.CreateResult, error)
	signFn    func(ctx context.Context, req provider.SignRequest) ([]byte, error)
	deleteFn  func(ctx context.Context, keyName, handle string) error
	signCalls int
	delCalls  int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) CreateKey(ctx context.Context, keyName string) (*provider.CreateResult, error) {
	if p.createFn != nil {
		return p.createFn(ctx, keyName)
	}
	return nil, provider.ErrUnavailable
}

func (p *fakeProvider) Sign(ctx context.Context, req provider.SignRequest) ([]byte, error) {
	p.signCalls++
	if p.signFn != nil {
		return p.signFn(ctx, req)
	}
	return nil, provider.ErrUnavailable
}

func (p *fakeProvider) DeleteKey(ctx context.Context, keyName, handle string) error {
	p.delCalls++
	if p.deleteFn != nil {
		return p.deleteFn(ctx, keyName, handle)
	}
	return nil
}

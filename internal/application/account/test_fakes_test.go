package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/account-service/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Fakes for ports
*/

type fakeStore struct {
	mu   sync.Mutex
	recs map[string]domain.Record

	// injected errors (if set, method returns error)
	getErr    error
	existsErr error
	findErr   error
	createErr error
	updateErr error
	deleteErr error

	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: map[string]domain.Record{}}
}

func (f *fakeStore) Get(ctx context.Context, key string) (domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.Record{}, f.getErr
	}
	r, ok := f.recs[key]
	if !ok {
		return domain.Record{}, domain.ErrUserNotFound()
	}
	return r, nil
}

func (f *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.recs[key]
	return ok, nil
}

func (f *fakeStore) FindByField(ctx context.Context, field, value string) (domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return domain.Record{}, f.findErr
	}
	for _, r := range f.recs {
		v, ok := r.Field(field)
		if !ok {
			return domain.Record{}, domain.ErrInvalidField("field", "unsupported")
		}
		if strings.EqualFold(v, value) {
			return r, nil
		}
	}
	return domain.Record{}, domain.ErrUserNotFound()
}

func (f *fakeStore) Create(ctx context.Context, key string, rec domain.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.recs[key]; ok {
		return domain.ErrRecordExists(key)
	}
	f.recs[key] = rec
	return nil
}

func (f *fakeStore) Update(ctx context.Context, key string, rec domain.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.recs[key]; !ok {
		return domain.ErrUserNotFound()
	}
	f.recs[key] = rec
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.recs[key]; !ok {
		return domain.ErrUserNotFound()
	}
	delete(f.recs, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) Keys(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.recs))
	for k := range f.recs {
		out = append(out, k)
	}
	return out, nil
}

func (f *fakeStore) put(key string, rec domain.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[key] = rec
}

func (f *fakeStore) peek(key string) (domain.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recs[key]
	return r, ok
}

// fakeHasher "hashes" by prefixing, so tests can tell plaintext from hash.
type fakeHasher struct {
	hashFn func(pw string) (string, error)
	calls  int
}

func (h *fakeHasher) Hash(pw string) (string, error) {
	h.calls++
	if h.hashFn != nil {
		return h.hashFn(pw)
	}
	return "hash:" + pw, nil
}

func (h *fakeHasher) Compare(hash, pw string) error {
	if hash == "hash:"+pw {
		return nil
	}
	return errors.New("mismatch")
}

type fakeCodes struct {
	code string
	err  error
}

func (c *fakeCodes) Issue() (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.code, nil
}

type fakeHuman struct {
	res      VerifyResult
	err      error
	calls    int
	lastIP   string
	deadline bool
}

func (h *fakeHuman) Verify(ctx context.Context, token, remoteIP string) (VerifyResult, error) {
	h.calls++
	h.lastIP = remoteIP
	_, h.deadline = ctx.Deadline()
	return h.res, h.err
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error

	ctxErr error
}

func (m *fakeMailer) Send(ctx context.Context, msg EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctxErr = ctx.Err()
	m.sent = append(m.sent, msg)
	return m.err
}

type testDeps struct {
	store  *fakeStore
	hasher *fakeHasher
	codes  *fakeCodes
	human  *fakeHuman
	mailer *fakeMailer
	audits *[]auditEntry
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newSvcForTest(t *testing.T, cfg Config) (*Service, testDeps) {
	t.Helper()

	d := testDeps{
		store:  newFakeStore(),
		hasher: &fakeHasher{},
		codes:  &fakeCodes{code: "042117"},
		human:  &fakeHuman{res: VerifyResult{Success: true}},
		mailer: &fakeMailer{},
		audits: &[]auditEntry{},
	}

	var mu sync.Mutex
	svc := NewService(d.store, d.hasher, d.codes, d.human, d.mailer, cfg).
		WithClock(func() time.Time { return fixedNow }).
		WithAudit(func(ctx context.Context, action string, fields map[string]string) {
			mu.Lock()
			defer mu.Unlock()
			*d.audits = append(*d.audits, auditEntry{action: action, fields: fields})
		})
	return svc, d
}

func (d testDeps) hasAudit(action string) bool {
	for _, a := range *d.audits {
		if a.action == action {
			return true
		}
	}
	return false
}

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code=%q, got nil", code)
	}
	if !domain.Is(err, code) {
		t.Fatalf("expected code=%q, got err=%v", code, err)
	}
}

func registerInput(email, username, password string) RegisterInput {
	return RegisterInput{
		Email:             email,
		Username:          username,
		Password:          password,
		VerificationToken: "tok",
		RemoteIP:          "203.0.113.7",
	}
}

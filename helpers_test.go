package authkit

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bookvault/authkit/mailer"
)

// memCredStore is an in-memory CredentialStore. Assigned account ids are
// all-digit strings, matching the direct-id login mode.
type memCredStore struct {
	mu      sync.Mutex
	next    int
	byID    map[string]*Credential
	byEmail map[string]string
}

func newMemCredStore() *memCredStore {
	return &memCredStore{
		next:    1000,
		byID:    make(map[string]*Credential),
		byEmail: make(map[string]string),
	}
}

func (s *memCredStore) FindByID(_ context.Context, accountID string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.byID[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	clone := *cred
	return &clone, nil
}

func (s *memCredStore) FindByEmail(_ context.Context, email string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrAccountNotFound
	}
	clone := *s.byID[id]
	return &clone, nil
}

func (s *memCredStore) Insert(_ context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[cred.Email]; ok {
		return ErrAccountExists
	}
	cred.AccountID = strconv.Itoa(s.next)
	s.next++
	clone := *cred
	s.byID[cred.AccountID] = &clone
	s.byEmail[cred.Email] = cred.AccountID
	return nil
}

func (s *memCredStore) Update(_ context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[cred.AccountID]; !ok {
		return ErrAccountNotFound
	}
	clone := *cred
	s.byID[cred.AccountID] = &clone
	return nil
}

type testEnv struct {
	engine *Engine
	creds  *memCredStore
	mail   *mailer.Capture
	redis  *miniredis.Miniredis
	events <-chan AuditEvent
}

// newTestEnv builds an engine on miniredis with a capture mailer and a
// channel audit sink. Bcrypt cost is lowered so the suite stays fast.
func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := defaultConfig()
	cfg.Passwd.Cost = 4
	for _, fn := range mutate {
		fn(&cfg)
	}

	creds := newMemCredStore()
	mail := &mailer.Capture{}
	sink := NewChannelAuditSink(128)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithCredentialStore(creds).
		WithMailer(mail).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{
		engine: engine,
		creds:  creds,
		mail:   mail,
		redis:  mr,
		events: sink.Events(),
	}
}

// drainAudit closes the engine's dispatcher (flushing buffered events) and
// returns everything the sink received. The env is unusable afterwards.
func (env *testEnv) drainAudit() []AuditEvent {
	env.engine.Close()
	var out []AuditEvent
	for {
		select {
		case ev := <-env.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// register creates an active account directly through the store and returns
// its id, bypassing the verification flow.
func (env *testEnv) registerActive(t *testing.T, email, pass string) string {
	t.Helper()

	hash, err := env.engine.hasher.Hash(pass)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	cred := &Credential{
		Email:        email,
		PasswordHash: hash,
		Status:       StatusActive,
		Role:         RoleCustomer,
	}
	if err := env.creds.Insert(context.Background(), cred); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return cred.AccountID
}

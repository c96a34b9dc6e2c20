package authkit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func (env *testEnv) loginAs(t *testing.T, email, pass string, role Role) (accountID, sessionID string) {
	t.Helper()

	hash, err := env.engine.hasher.Hash(pass)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	cred := &Credential{Email: email, PasswordHash: hash, Status: StatusActive, Role: role}
	if err := env.creds.Insert(context.Background(), cred); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	res, err := env.engine.Login(context.Background(), email, pass)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return cred.AccountID, res.SessionID
}

func TestAuthorizeAdmin(t *testing.T) {
	env := newTestEnv(t)
	id, sid := env.loginAs(t, "admin@example.com", "correct horse", RoleAdmin)

	dec, err := env.engine.Authorize(context.Background(), sid)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !dec.Allowed || dec.AccountID != id || dec.Role != RoleAdmin {
		t.Errorf("decision = %+v", dec)
	}
}

func TestAuthorizeCustomerDenied(t *testing.T) {
	env := newTestEnv(t)
	id, sid := env.loginAs(t, "reader@example.com", "correct horse", RoleCustomer)

	dec, err := env.engine.Authorize(context.Background(), sid)
	if !errors.Is(err, ErrAuthorizationDenied) {
		t.Fatalf("err = %v, want ErrAuthorizationDenied", err)
	}
	if dec.Allowed || dec.AccountID != id || dec.Reason != "role_mismatch" {
		t.Errorf("decision = %+v", dec)
	}
}

func TestAuthorizeNoSession(t *testing.T) {
	env := newTestEnv(t)

	dec, err := env.engine.Authorize(context.Background(), "bogus-session-id")
	if !errors.Is(err, ErrAuthorizationDenied) {
		t.Fatalf("err = %v, want ErrAuthorizationDenied", err)
	}
	if dec.Reason != "no_session" {
		t.Errorf("reason = %q, want no_session", dec.Reason)
	}
}

func TestAuthorizeSeesDemotionImmediately(t *testing.T) {
	env := newTestEnv(t)
	id, sid := env.loginAs(t, "admin@example.com", "correct horse", RoleAdmin)

	if _, err := env.engine.Authorize(context.Background(), sid); err != nil {
		t.Fatalf("Authorize before demotion: %v", err)
	}

	cred, _ := env.creds.FindByID(context.Background(), id)
	cred.Role = RoleEmployee
	if err := env.creds.Update(context.Background(), cred); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// The session is still live; the fresh role read denies anyway.
	dec, err := env.engine.Authorize(context.Background(), sid)
	if !errors.Is(err, ErrAuthorizationDenied) {
		t.Fatalf("err = %v, want ErrAuthorizationDenied after demotion", err)
	}
	if dec.Reason != "role_mismatch" {
		t.Errorf("reason = %q, want role_mismatch", dec.Reason)
	}
}

func TestAuthorizeDisabledAccountDenied(t *testing.T) {
	env := newTestEnv(t)
	id, sid := env.loginAs(t, "admin@example.com", "correct horse", RoleAdmin)

	cred, _ := env.creds.FindByID(context.Background(), id)
	cred.Status = StatusDisabled
	if err := env.creds.Update(context.Background(), cred); err != nil {
		t.Fatalf("Update: %v", err)
	}

	dec, err := env.engine.Authorize(context.Background(), sid)
	if !errors.Is(err, ErrAuthorizationDenied) {
		t.Fatalf("err = %v, want ErrAuthorizationDenied", err)
	}
	if dec.Reason != "account_disabled" {
		t.Errorf("reason = %q, want account_disabled", dec.Reason)
	}
}

func TestAuthorizeDoesNotExtendSession(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.Session.InactivityWindow = time.Minute
	})
	_, sid := env.loginAs(t, "admin@example.com", "correct horse", RoleAdmin)

	// Keep probing the gate; the session must still idle out on schedule.
	env.redis.FastForward(40 * time.Second)
	if _, err := env.engine.Authorize(context.Background(), sid); err != nil {
		t.Fatalf("Authorize at 40s: %v", err)
	}
	env.redis.FastForward(40 * time.Second)

	if _, err := env.engine.Validate(context.Background(), sid); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("session survived idle timeout despite only gate probes: %v", err)
	}
}

func TestAuthorizeAuditsEveryDecision(t *testing.T) {
	env := newTestEnv(t)
	_, sid := env.loginAs(t, "admin@example.com", "correct horse", RoleAdmin)

	if _, err := env.engine.Authorize(context.Background(), sid); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if _, err := env.engine.Authorize(context.Background(), "bogus"); !errors.Is(err, ErrAuthorizationDenied) {
		t.Fatalf("Authorize(bogus): %v", err)
	}

	var granted, denied int
	for _, ev := range env.drainAudit() {
		if ev.Event != "authorize" {
			continue
		}
		if ev.Success {
			granted++
		} else {
			denied++
		}
	}
	if granted != 1 || denied != 1 {
		t.Errorf("audit: granted=%d denied=%d, want 1/1", granted, denied)
	}
}

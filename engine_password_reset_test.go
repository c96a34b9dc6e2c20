package authkit

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	env.registerActive(t, "reader@example.com", "old password")

	res, err := env.engine.RequestPasswordReset(context.Background(), "reader@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if !res.Issued || res.ResetToken == "" {
		t.Fatalf("no token issued: %+v", res)
	}
	if !res.EmailDelivered {
		t.Error("EmailDelivered = false with a working mailer")
	}

	if err := env.engine.ConfirmPasswordReset(context.Background(), res.ResetToken, "new password"); err != nil {
		t.Fatalf("ConfirmPasswordReset: %v", err)
	}

	// Old password dead, new one live.
	if _, err := env.engine.Login(context.Background(), "reader@example.com", "old password"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("old password still works: %v", err)
	}
	if _, err := env.engine.Login(context.Background(), "reader@example.com", "new password"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

func TestPasswordResetTokenSingleUse(t *testing.T) {
	env := newTestEnv(t)
	env.registerActive(t, "reader@example.com", "old password")

	res, err := env.engine.RequestPasswordReset(context.Background(), "reader@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if err := env.engine.ConfirmPasswordReset(context.Background(), res.ResetToken, "new password"); err != nil {
		t.Fatalf("ConfirmPasswordReset: %v", err)
	}

	err = env.engine.ConfirmPasswordReset(context.Background(), res.ResetToken, "attacker password")
	if !errors.Is(err, ErrTokenAlreadyUsed) {
		t.Fatalf("replay err = %v, want ErrTokenAlreadyUsed", err)
	}
	if _, err := env.engine.Login(context.Background(), "reader@example.com", "attacker password"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatal("replayed reset changed the password")
	}
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.engine.RequestPasswordReset(context.Background(), "ghost@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if res.Issued || res.ResetToken != "" || res.EmailDelivered {
		t.Errorf("unknown email produced output: %+v", res)
	}
	if n := len(env.mail.Sent()); n != 0 {
		t.Errorf("sent %d mails, want 0", n)
	}
}

func TestPasswordResetRequestReplacesPrior(t *testing.T) {
	env := newTestEnv(t)
	env.registerActive(t, "reader@example.com", "old password")

	first, err := env.engine.RequestPasswordReset(context.Background(), "reader@example.com")
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	second, err := env.engine.RequestPasswordReset(context.Background(), "reader@example.com")
	if err != nil {
		t.Fatalf("second request: %v", err)
	}

	if err := env.engine.ConfirmPasswordReset(context.Background(), first.ResetToken, "x new password"); err == nil {
		t.Fatal("replaced token still confirmed")
	}
	if err := env.engine.ConfirmPasswordReset(context.Background(), second.ResetToken, "x new password"); err != nil {
		t.Fatalf("live token rejected: %v", err)
	}
}

func TestPasswordResetRejectsVerificationToken(t *testing.T) {
	env := newTestEnv(t)

	reg, err := env.engine.Register(context.Background(), "new@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	err = env.engine.ConfirmPasswordReset(context.Background(), reg.VerificationToken, "new password")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("err = %v, want ErrTokenNotFound for cross-purpose token", err)
	}
}

func TestConfirmPasswordResetWeakInputDoesNotBurnToken(t *testing.T) {
	env := newTestEnv(t)
	env.registerActive(t, "reader@example.com", "old password")

	res, err := env.engine.RequestPasswordReset(context.Background(), "reader@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}

	// Hashing fails before the token is touched.
	if err := env.engine.ConfirmPasswordReset(context.Background(), res.ResetToken, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if err := env.engine.ConfirmPasswordReset(context.Background(), res.ResetToken, strings.Repeat("x", 73)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}

	if err := env.engine.ConfirmPasswordReset(context.Background(), res.ResetToken, "new password"); err != nil {
		t.Fatalf("token burned by invalid attempts: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	id := env.registerActive(t, "reader@example.com", "old password")

	if err := env.engine.ChangePassword(context.Background(), id, "wrong", "new password"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("err = %v, want ErrAuthenticationFailed for wrong current password", err)
	}
	if err := env.engine.ChangePassword(context.Background(), id, "old password", "new password"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := env.engine.Login(context.Background(), "reader@example.com", "new password"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

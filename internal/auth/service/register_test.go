package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRegister_IssuesChallengeAndDispatchesBothChannels(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()

	res, err := env.svc.Register(ctx, "User@Example.com", "+1 (555) 123-4567", "Pat", "en", "", Meta{IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !res.Delivery.Delivered() {
		t.Error("delivery should succeed on both channels")
	}
	if res.ExpiresAt.Before(time.Now()) {
		t.Error("challenge expiry in the past")
	}
	if env.sms.count() != 1 || env.email.count() != 1 {
		t.Errorf("sms sends = %d, email sends = %d, want 1 each", env.sms.count(), env.email.count())
	}

	// Email and phone are normalized before storage.
	pending, err := env.chals.GetPending(ctx, "user@example.com", "15551234567")
	if err != nil || pending == nil {
		t.Fatalf("pending challenge = %v, err = %v", pending, err)
	}
	if pending.Attempts != 0 || pending.MaxAttempts != 3 {
		t.Errorf("attempts = %d/%d, want 0/3", pending.Attempts, pending.MaxAttempts)
	}

	code := env.code(t, "user@example.com")
	if !strings.Contains(env.sms.lastBody(), code) || !strings.Contains(env.email.lastBody(), code) {
		t.Error("both channels should carry the code")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.registerAndVerify(t, "user@example.com", "15551234567")

	_, err := env.svc.Register(context.Background(), "user@example.com", "15559999999", "", "en", "", Meta{})
	if !errors.Is(err, ErrDuplicateRegistration) {
		t.Fatalf("err = %v, want ErrDuplicateRegistration", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()

	cases := []struct {
		name, email, phone, field string
	}{
		{"missing email", "", "15551234567", "email"},
		{"bad email", "not-an-email", "15551234567", "email"},
		{"missing phone", "user@example.com", "", "phone"},
		{"short phone", "user@example.com", "123", "phone"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Register(ctx, tc.email, tc.phone, "", "en", "", Meta{})
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if verr.Field != tc.field {
				t.Errorf("field = %q, want %q", verr.Field, tc.field)
			}
		})
	}
}

func TestRegister_ChannelFailureDoesNotRollBack(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.sms.err = errors.New("gateway down")

	res, err := env.svc.Register(context.Background(), "user@example.com", "15551234567", "", "en", "", Meta{})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	failed := res.Delivery.Failed()
	if len(failed) != 1 || failed[0] != "sms" {
		t.Errorf("Failed = %v, want [sms]", failed)
	}
	if !res.Delivery.Delivered() {
		t.Error("email alone should count as delivered")
	}

	// The challenge survives the partial failure and verifies normally.
	if _, err := env.svc.VerifyOTP(context.Background(), "user@example.com", "15551234567", env.code(t, "user@example.com"), Meta{}); err != nil {
		t.Fatalf("VerifyOTP after SMS failure: %v", err)
	}
}

func TestRegister_SupersedesPendingChallenge(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()

	env.register(t, "user@example.com", "15551234567")
	oldCode := env.code(t, "user@example.com")

	env.register(t, "user@example.com", "15551234567")
	newCode := env.code(t, "user@example.com")

	if oldCode != newCode {
		if _, err := env.svc.VerifyOTP(ctx, "user@example.com", "15551234567", oldCode, Meta{}); err == nil {
			t.Fatal("old code should stop verifying after supersession")
		}
	}
	if _, err := env.svc.VerifyOTP(ctx, "user@example.com", "15551234567", newCode, Meta{}); err != nil {
		t.Fatalf("new code should verify: %v", err)
	}
}

func TestRegister_PasswordHashAppliedAtCreation(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()

	if _, err := env.svc.Register(ctx, "user@example.com", "15551234567", "Pat", "fr", "s3cret-enough", Meta{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	res, err := env.svc.VerifyOTP(ctx, "user@example.com", "15551234567", env.code(t, "user@example.com"), Meta{})
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}

	u, _ := env.users.GetByID(ctx, res.UserID)
	if u == nil {
		t.Fatal("user not created")
	}
	if u.PasswordHash == "" {
		t.Error("password hash should be stored on the account")
	}
	if u.Name != "Pat" || u.Locale != "fr" {
		t.Errorf("profile = %q/%q, want Pat/fr", u.Name, u.Locale)
	}
}

func TestVerifyOTP_Success(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	env.register(t, "user@example.com", "15551234567")

	res, err := env.svc.VerifyOTP(ctx, "user@example.com", "15551234567", env.code(t, "user@example.com"), Meta{IP: "10.0.0.1", UserAgent: "cli"})
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" || res.UserID == "" || res.SessionID == "" {
		t.Errorf("result incomplete: %+v", res)
	}
	if res.User == nil || res.User.Email != "user@example.com" {
		t.Error("result should carry the created user's profile")
	}

	u, _ := env.users.GetByEmail(ctx, "user@example.com")
	if u == nil {
		t.Fatal("user should be created with verification")
	}
	sess, _ := env.sessions.GetByID(ctx, res.SessionID)
	if sess == nil || sess.UserID != u.ID {
		t.Fatal("session should be created for the new user")
	}
	if sess.IPAddress != "10.0.0.1" || sess.UserAgent != "cli" {
		t.Errorf("session meta = %q/%q", sess.IPAddress, sess.UserAgent)
	}

	// Welcome email is async best-effort: registration email + welcome.
	deadline := time.Now().Add(2 * time.Second)
	for env.email.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("welcome email never sent")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestVerifyOTP_WrongCodeConsumesAttempts(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	env.register(t, "user@example.com", "15551234567")
	code := env.code(t, "user@example.com")
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for want := 2; want >= 0; want-- {
		_, err := env.svc.VerifyOTP(ctx, "user@example.com", "15551234567", wrong, Meta{})
		var mismatch *CodeMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("err = %v, want CodeMismatchError", err)
		}
		if mismatch.Remaining != want {
			t.Errorf("remaining = %d, want %d", mismatch.Remaining, want)
		}
	}

	// Fourth wrong presentation: the budget is exhausted.
	if _, err := env.svc.VerifyOTP(ctx, "user@example.com", "15551234567", wrong, Meta{}); !errors.Is(err, ErrChallengeExhausted) {
		t.Fatalf("err = %v, want ErrChallengeExhausted", err)
	}
	// The correct code no longer verifies either.
	if _, err := env.svc.VerifyOTP(ctx, "user@example.com", "15551234567", code, Meta{}); !errors.Is(err, ErrChallengeExhausted) {
		t.Fatalf("correct code after exhaustion: err = %v, want ErrChallengeExhausted", err)
	}
	if u, _ := env.users.GetByEmail(ctx, "user@example.com"); u != nil {
		t.Error("no user should be created after exhaustion")
	}
}

func TestVerifyOTP_ExpiredBeforeCodeCheck(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	env.register(t, "user@example.com", "15551234567")
	code := env.code(t, "user@example.com")

	// Push the challenge past its TTL (T0+16min against a 10min TTL).
	env.chals.mu.Lock()
	for _, c := range env.chals.m {
		c.IssuedAt = c.IssuedAt.Add(-16 * time.Minute)
		c.ExpiresAt = c.ExpiresAt.Add(-16 * time.Minute)
	}
	env.chals.mu.Unlock()

	_, err := env.svc.VerifyOTP(ctx, "user@example.com", "15551234567", code, Meta{})
	if !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("err = %v, want ErrChallengeExpired (expiry wins over correct code)", err)
	}
	if u, _ := env.users.GetByEmail(ctx, "user@example.com"); u != nil {
		t.Error("no user should be created from an expired challenge")
	}
}

func TestVerifyOTP_NoPendingChallenge(t *testing.T) {
	env := newTestEnv(t, Config{})
	_, err := env.svc.VerifyOTP(context.Background(), "nobody@example.com", "15551234567", "123456", Meta{})
	if !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("err = %v, want ErrChallengeNotFound", err)
	}
}

func TestVerifyOTP_ConcurrentPresentations(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	env.register(t, "user@example.com", "15551234567")
	code := env.code(t, "user@example.com")

	const n = 8
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.svc.VerifyOTP(ctx, "user@example.com", "15551234567", code, Meta{})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Errorf("successes = %d, want exactly 1 (transitions serialize)", succeeded)
	}
	env.users.mu.Lock()
	created := len(env.users.byID)
	env.users.mu.Unlock()
	if created != 1 {
		t.Errorf("users created = %d, want 1", created)
	}
}

func TestResendOTP_InvalidatesPriorCode(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	env.register(t, "user@example.com", "15551234567")
	oldCode := env.code(t, "user@example.com")

	// Burn an attempt, then resend: the budget resets with the new challenge.
	wrong := "000000"
	if wrong == oldCode {
		wrong = "000001"
	}
	if _, err := env.svc.VerifyOTP(ctx, "user@example.com", "15551234567", wrong, Meta{}); err == nil {
		t.Fatal("wrong code should fail")
	}

	if _, err := env.svc.ResendOTP(ctx, "user@example.com", "15551234567", Meta{}); err != nil {
		t.Fatalf("ResendOTP: %v", err)
	}
	newCode := env.code(t, "user@example.com")

	if oldCode != newCode {
		if _, err := env.svc.VerifyOTP(ctx, "user@example.com", "15551234567", oldCode, Meta{}); err == nil {
			t.Fatal("prior code should stop verifying after resend")
		}
	}
	res, err := env.svc.VerifyOTP(ctx, "user@example.com", "15551234567", newCode, Meta{})
	if err != nil {
		t.Fatalf("VerifyOTP with resent code: %v", err)
	}
	if res.UserID == "" {
		t.Error("verification should create the account")
	}

	pending, _ := env.chals.GetPending(ctx, "user@example.com", "15551234567")
	if pending != nil {
		t.Error("no challenge should stay pending after verification")
	}
}

func TestResendOTP_NoPendingChallenge(t *testing.T) {
	env := newTestEnv(t, Config{})
	_, err := env.svc.ResendOTP(context.Background(), "nobody@example.com", "15551234567", Meta{})
	if !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("err = %v, want ErrChallengeNotFound", err)
	}
}

func TestResendOTP_CarriesRegistrationProfile(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	if _, err := env.svc.Register(ctx, "user@example.com", "15551234567", "Sam", "de", "", Meta{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := env.svc.ResendOTP(ctx, "user@example.com", "15551234567", Meta{}); err != nil {
		t.Fatalf("ResendOTP: %v", err)
	}
	res, err := env.svc.VerifyOTP(ctx, "user@example.com", "15551234567", env.code(t, "user@example.com"), Meta{})
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	u, _ := env.users.GetByID(ctx, res.UserID)
	if u.Name != "Sam" || u.Locale != "de" {
		t.Errorf("profile = %q/%q, want Sam/de (carried through resend)", u.Name, u.Locale)
	}
}

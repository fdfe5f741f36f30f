package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"veo-auth-service/internal/audit"
	challengedomain "veo-auth-service/internal/challenge/domain"
	"veo-auth-service/internal/notify"
	"veo-auth-service/internal/otp"
	userdomain "veo-auth-service/internal/user/domain"
)

// Register starts a registration: supersedes any pending challenge for the
// email/phone pair, stores a fresh hashed code, and dispatches it over SMS and
// email. Per-channel delivery failure is recorded in the result, never rolled
// back. password is optional; when present its hash is applied to the account
// created at verification.
func (s *AuthService) Register(ctx context.Context, email, phone, name, locale, password string, meta Meta) (*RegistrationResult, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	phone = normalizePhone(phone)
	if err := validatePhone(phone); err != nil {
		return nil, err
	}
	if err := s.limiter.Allow(ctx, "otp", email, meta.IP); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateRegistration
	}

	passwordHash := ""
	if password != "" {
		passwordHash, err = s.hasher.Hash([]byte(password))
		if err != nil {
			return nil, err
		}
	}

	c := &challengedomain.Challenge{
		Email:        email,
		Phone:        phone,
		Name:         name,
		Locale:       locale,
		PasswordHash: passwordHash,
		IPAddress:    meta.IP,
	}
	result, err := s.issueChallenge(ctx, c)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "", audit.ActionRegister, audit.ResourceChallenge, email)
	return result, nil
}

// ResendOTP supersedes the pending challenge for the email/phone pair with a
// fresh code (attempts reset) and dispatches it again. The prior code stops
// verifying the moment the new challenge is stored.
func (s *AuthService) ResendOTP(ctx context.Context, email, phone string, meta Meta) (*RegistrationResult, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	phone = normalizePhone(phone)
	if err := validatePhone(phone); err != nil {
		return nil, err
	}
	if err := s.limiter.Allow(ctx, "otp", email, meta.IP); err != nil {
		return nil, err
	}

	pending, err := s.challenges.GetPending(ctx, email, phone)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, ErrChallengeNotFound
	}

	c := &challengedomain.Challenge{
		Email:        email,
		Phone:        phone,
		Name:         pending.Name,
		Locale:       pending.Locale,
		PasswordHash: pending.PasswordHash,
		IPAddress:    meta.IP,
	}
	result, err := s.issueChallenge(ctx, c)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "", audit.ActionOTPResent, audit.ResourceChallenge, email)
	return result, nil
}

// issueChallenge generates the code, persists the challenge (superseding any
// pending one for the pair), and dispatches the code over both channels.
func (s *AuthService) issueChallenge(ctx context.Context, c *challengedomain.Challenge) (*RegistrationResult, error) {
	code, err := otp.Generate()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c.ID = uuid.New().String()
	c.CodeHash = otp.Hash(code)
	c.MaxAttempts = s.cfg.MaxAttempts
	c.IssuedAt = now
	c.ExpiresAt = now.Add(s.cfg.ChallengeTTL)

	if err := s.challenges.Replace(ctx, c); err != nil {
		return nil, err
	}
	if s.devStore != nil {
		s.devStore.Put(ctx, c.Email, code, c.ExpiresAt)
	}

	minutes := int(s.cfg.ChallengeTTL.Minutes())
	delivery := s.dispatcher.Dispatch(
		notify.Send{Channel: s.smsCh, Message: notify.Message{
			To:   c.Phone,
			Body: fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes),
		}},
		notify.Send{Channel: s.emailCh, Message: notify.Message{
			To:      c.Email,
			Subject: "Your verification code",
			Body:    fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes),
		}},
	)
	return &RegistrationResult{ExpiresAt: c.ExpiresAt, Delivery: delivery}, nil
}

// VerifyOTP presents a code against the pending challenge for the email/phone
// pair. On success the account is created in the same transaction that marks
// the challenge verified, a session is issued, and a welcome email goes out
// best-effort. A wrong code consumes one attempt and reports how many remain.
func (s *AuthService) VerifyOTP(ctx context.Context, email, phone, code string, meta Meta) (*AuthResult, error) {
	email = normalizeEmail(email)
	phone = normalizePhone(phone)
	if code == "" {
		return nil, &ValidationError{Field: "code", Reason: "required"}
	}

	// The account may have appeared since the challenge was issued (e.g. a
	// parallel registration); treat that as a duplicate, not a verification.
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateRegistration
	}

	var outcome challengedomain.Outcome
	resolved, err := s.challenges.Resolve(ctx, email, phone, func(c *challengedomain.Challenge) (*userdomain.User, error) {
		outcome = c.Present(code, time.Now().UTC())
		if outcome != challengedomain.OutcomeVerified {
			return nil, nil
		}
		now := time.Now().UTC()
		u := &userdomain.User{
			ID:           uuid.New().String(),
			Email:        c.Email,
			Name:         c.Name,
			Phone:        c.Phone,
			Locale:       c.Locale,
			PasswordHash: c.PasswordHash,
			Status:       userdomain.UserStatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := u.Validate(); err != nil {
			return nil, err
		}
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, ErrChallengeNotFound
	}

	switch outcome {
	case challengedomain.OutcomeVerified:
		result, err := s.createSession(ctx, resolved.UserID, meta)
		if err != nil {
			return nil, err
		}
		s.sendWelcome(resolved.Email, resolved.Name)
		s.audit(ctx, resolved.UserID, audit.ActionOTPVerified, audit.ResourceChallenge, "")
		return result, nil
	case challengedomain.OutcomeCodeMismatch:
		s.audit(ctx, "", audit.ActionOTPFailed, audit.ResourceChallenge, email)
		return nil, &CodeMismatchError{Remaining: resolved.Remaining()}
	case challengedomain.OutcomeExpired:
		return nil, ErrChallengeExpired
	default:
		return nil, ErrChallengeExhausted
	}
}

// sendWelcome fires the post-registration welcome email. Fully best-effort:
// failures are only logged and never affect the registration outcome.
func (s *AuthService) sendWelcome(email, name string) {
	greeting := "Welcome!"
	if name != "" {
		greeting = "Welcome, " + name + "!"
	}
	s.dispatcher.DispatchAsync(notify.Send{Channel: s.emailCh, Message: notify.Message{
		To:      email,
		Subject: "Welcome aboard",
		Body:    greeting + " Your account is ready. You can now sign in with a magic link.",
	}})
}

package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"veo-auth-service/internal/audit"
	magiclinkdomain "veo-auth-service/internal/magiclink/domain"
	"veo-auth-service/internal/notify"
	"veo-auth-service/internal/security"
	userdomain "veo-auth-service/internal/user/domain"
)

// RequestMagicLink issues a single-use login link for the account owning
// email and dispatches it. The operation succeeds externally whether or not
// the account exists, so callers cannot probe for registered addresses.
func (s *AuthService) RequestMagicLink(ctx context.Context, email string, meta Meta) error {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	if err := s.limiter.Allow(ctx, "magiclink", email, meta.IP); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		// Same external outcome as success; only the audit trail differs.
		s.audit(ctx, "", audit.ActionLoginFailure, audit.ResourceMagicLink, email)
		return nil
	}

	token, err := security.GenerateOpaqueToken()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if s.cfg.SupersedeLinks {
		if err := s.links.SupersedeActiveByUser(ctx, user.ID, now); err != nil {
			return err
		}
	}
	link := &magiclinkdomain.MagicLink{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: security.HashToken(token),
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.LinkTTL),
	}
	if err := s.links.Create(ctx, link); err != nil {
		return err
	}

	url := strings.TrimRight(s.cfg.LinkBaseURL, "/") + "/auth/verify-magic-link?token=" + token
	minutes := int(s.cfg.LinkTTL.Minutes())
	s.dispatcher.Dispatch(notify.Send{Channel: s.emailCh, Message: notify.Message{
		To:      user.Email,
		Subject: "Your login link",
		Body:    "Click to sign in: " + url + "\nThe link works once and expires in " + strconv.Itoa(minutes) + " minutes.",
	}})

	s.audit(ctx, user.ID, audit.ActionMagicLinkIssued, audit.ResourceMagicLink, "")
	return nil
}

// VerifyMagicLink consumes a magic-link token and logs the owning user in.
// Consumed, superseded, and unknown tokens are indistinguishable; expiry is
// reported distinctly so the UI can offer a fresh link.
func (s *AuthService) VerifyMagicLink(ctx context.Context, token string, meta Meta) (*AuthResult, error) {
	if token == "" {
		return nil, ErrInvalidMagicLink
	}
	tokenHash := security.HashToken(token)
	now := time.Now().UTC()

	link, err := s.links.Consume(ctx, tokenHash, now)
	if err != nil {
		return nil, err
	}
	if link == nil {
		stale, err := s.links.GetByTokenHash(ctx, tokenHash)
		if err != nil {
			return nil, err
		}
		s.audit(ctx, "", audit.ActionMagicLinkRejected, audit.ResourceMagicLink, "")
		if stale != nil && stale.ConsumedAt == nil && stale.SupersededAt == nil && !now.Before(stale.ExpiresAt) {
			return nil, ErrMagicLinkExpired
		}
		return nil, ErrInvalidMagicLink
	}

	user, err := s.users.GetByID(ctx, link.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		return nil, ErrInvalidMagicLink
	}

	result, err := s.createSession(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, user.ID, audit.ActionMagicLinkConsumed, audit.ResourceMagicLink, "")
	return result, nil
}

package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"veo-auth-service/internal/audit"
	"veo-auth-service/internal/security"
	sessiondomain "veo-auth-service/internal/session/domain"
	userdomain "veo-auth-service/internal/user/domain"
)

// createSession opens a session for userID and issues the access/refresh pair.
// The refresh token's jti and hash are bound to the session row for rotation.
func (s *AuthService) createSession(ctx context.Context, userID string, meta Meta) (*AuthResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	sessionID := uuid.New().String()
	now := time.Now().UTC()
	refreshToken, jti, _, err := s.tokens.IssueRefresh(sessionID, userID)
	if err != nil {
		return nil, err
	}
	accessToken, _, accessExp, err := s.tokens.IssueAccess(sessionID, userID)
	if err != nil {
		return nil, err
	}
	sess := &sessiondomain.Session{
		ID:               sessionID,
		UserID:           userID,
		RefreshJti:       jti,
		RefreshTokenHash: security.HashToken(refreshToken),
		IPAddress:        meta.IP,
		UserAgent:        meta.UserAgent,
		DeviceType:       meta.DeviceType,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.cfg.RefreshTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExp,
		UserID:       userID,
		SessionID:    sessionID,
		User:         user,
	}, nil
}

// Refresh validates the refresh token, rotates it, and returns new tokens.
// Reuse of a rotated token is treated as theft: every session of the user is revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	sessionID, jti, userID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if sess == nil || !sess.Active(now) {
		return nil, ErrInvalidRefreshToken
	}
	if sess.RefreshJti != jti {
		_ = s.sessions.RevokeAllByUser(ctx, userID)
		s.audit(ctx, userID, audit.ActionRefreshReuse, audit.ResourceSession, sessionID)
		return nil, ErrRefreshTokenReuse
	}
	if sess.RefreshTokenHash != "" && !security.TokenHashEqual(refreshToken, sess.RefreshTokenHash) {
		return nil, ErrInvalidRefreshToken
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		return nil, ErrInvalidRefreshToken
	}
	_ = s.sessions.UpdateLastSeen(ctx, sessionID, now)
	newRefresh, newJti, _, err := s.tokens.IssueRefresh(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateRefreshToken(ctx, sessionID, newJti, security.HashToken(newRefresh)); err != nil {
		return nil, err
	}
	accessToken, _, accessExp, err := s.tokens.IssueAccess(sessionID, userID)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, userID, audit.ActionRefresh, audit.ResourceSession, sessionID)
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresAt:    accessExp,
		UserID:       userID,
		SessionID:    sessionID,
		User:         user,
	}, nil
}

// Logout revokes the session identified by the refresh token, or by sessionID
// (from the authenticated request) when no refresh token is supplied.
// Invalid tokens are a no-op; logout never fails for credential reasons.
func (s *AuthService) Logout(ctx context.Context, refreshToken, sessionID string) error {
	if refreshToken != "" {
		sid, _, userID, err := s.tokens.ValidateRefresh(refreshToken)
		if err != nil {
			return nil
		}
		s.audit(ctx, userID, audit.ActionLogout, audit.ResourceSession, sid)
		return s.sessions.Revoke(ctx, sid)
	}
	if sessionID == "" {
		return nil
	}
	s.audit(ctx, "", audit.ActionLogout, audit.ResourceSession, sessionID)
	return s.sessions.Revoke(ctx, sessionID)
}

// ListSessions returns the user's active sessions, newest first.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	return s.sessions.ListActiveByUser(ctx, userID)
}

// RevokeSession revokes one of the caller's own sessions. Revocation is final:
// the refresh token bound to the session stops working immediately.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil || sess.UserID != userID {
		return ErrSessionNotFound
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}
	s.audit(ctx, userID, audit.ActionSessionRevoked, audit.ResourceSession, sessionID)
	return nil
}

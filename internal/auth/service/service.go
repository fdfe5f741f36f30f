// Package service implements the passwordless auth operations: registration
// challenges, magic-link login, and session management.
package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	challengedomain "veo-auth-service/internal/challenge/domain"
	challengerepo "veo-auth-service/internal/challenge/repository"
	"veo-auth-service/internal/audit"
	"veo-auth-service/internal/devotp"
	magiclinkdomain "veo-auth-service/internal/magiclink/domain"
	"veo-auth-service/internal/notify"
	"veo-auth-service/internal/ratelimit"
	"veo-auth-service/internal/security"
	sessiondomain "veo-auth-service/internal/session/domain"
	userdomain "veo-auth-service/internal/user/domain"
)

// Meta carries request metadata recorded on credentials and sessions.
type Meta struct {
	IP         string
	UserAgent  string
	DeviceType string
}

// AuthResult holds the outcome of a successful login (OTP verification,
// magic-link consumption, or refresh). User carries the profile of the
// session's owner so clients need no follow-up fetch.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
	SessionID    string
	User         *userdomain.User
}

// RegistrationResult holds the outcome of Register and ResendOTP: when the
// challenge expires and how delivery went per channel. Delivery failures never
// roll back the challenge.
type RegistrationResult struct {
	ExpiresAt time.Time
	Delivery  notify.Result
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// ChallengeRepo is the minimal challenge repository needed by the auth service.
type ChallengeRepo interface {
	GetPending(ctx context.Context, email, phone string) (*challengedomain.Challenge, error)
	Replace(ctx context.Context, c *challengedomain.Challenge) error
	Resolve(ctx context.Context, email, phone string, fn challengerepo.ResolveFunc) (*challengedomain.Challenge, error)
}

// MagicLinkRepo is the minimal magic-link repository needed by the auth service.
type MagicLinkRepo interface {
	Create(ctx context.Context, l *magiclinkdomain.MagicLink) error
	Consume(ctx context.Context, tokenHash string, now time.Time) (*magiclinkdomain.MagicLink, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*magiclinkdomain.MagicLink, error)
	SupersedeActiveByUser(ctx context.Context, userID string, at time.Time) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*sessiondomain.Session, error)
	Create(ctx context.Context, s *sessiondomain.Session) error
	Revoke(ctx context.Context, id string) error
	RevokeAllByUser(ctx context.Context, userID string) error
	UpdateRefreshToken(ctx context.Context, sessionID, jti, refreshTokenHash string) error
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
}

// Config holds the auth service's policy knobs.
type Config struct {
	ChallengeTTL time.Duration // OTP challenge lifetime (default 10m)
	MaxAttempts  int           // wrong-code budget per challenge (default 3)
	LinkTTL      time.Duration // magic-link lifetime (default 15m)
	LinkBaseURL  string        // base URL embedded in magic-link emails
	// SupersedeLinks invalidates a user's earlier unconsumed links on each new
	// request. Off by default: multiple outstanding links may coexist.
	SupersedeLinks bool
	RefreshTTL     time.Duration // session absolute lifetime
}

// AuthService implements registration, passwordless login, and session management.
type AuthService struct {
	users      UserRepo
	challenges ChallengeRepo
	links      MagicLinkRepo
	sessions   SessionRepo
	hasher     *security.Hasher
	tokens     *security.TokenProvider
	dispatcher *notify.Dispatcher
	smsCh      notify.Channel
	emailCh    notify.Channel
	limiter    *ratelimit.Limiter
	auditLog   audit.AuditLogger
	devStore   devotp.Store // nil outside dev OTP mode
	cfg        Config
}

// NewAuthService returns an AuthService with the given dependencies.
// limiter and devStore may be nil; auditLog may be nil to disable auditing.
func NewAuthService(
	users UserRepo,
	challenges ChallengeRepo,
	links MagicLinkRepo,
	sessions SessionRepo,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	dispatcher *notify.Dispatcher,
	smsCh, emailCh notify.Channel,
	limiter *ratelimit.Limiter,
	auditLog audit.AuditLogger,
	devStore devotp.Store,
	cfg Config,
) *AuthService {
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = 10 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	return &AuthService{
		users:      users,
		challenges: challenges,
		links:      links,
		sessions:   sessions,
		hasher:     hasher,
		tokens:     tokens,
		dispatcher: dispatcher,
		smsCh:      smsCh,
		emailCh:    emailCh,
		limiter:    limiter,
		auditLog:   auditLog,
		devStore:   devStore,
		cfg:        cfg,
	}
}

// GetUser returns the profile of the user identified by userID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*userdomain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *AuthService) audit(ctx context.Context, userID, action, resource, metadata string) {
	if s.auditLog == nil {
		return
	}
	s.auditLog.LogEventAsync(ctx, "", userID, action, resource, metadata)
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func validateEmail(email string) error {
	if email == "" {
		return &ValidationError{Field: "email", Reason: "required"}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Reason: "invalid format"}
	}
	return nil
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validatePhone(phone string) error {
	if phone == "" {
		return &ValidationError{Field: "phone", Reason: "required"}
	}
	if len(phone) < 8 || len(phone) > 15 {
		return &ValidationError{Field: "phone", Reason: "must be 8-15 digits including country code"}
	}
	return nil
}

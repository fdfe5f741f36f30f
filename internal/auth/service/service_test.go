package service

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	challengedomain "veo-auth-service/internal/challenge/domain"
	challengerepo "veo-auth-service/internal/challenge/repository"
	"veo-auth-service/internal/devotp"
	magiclinkdomain "veo-auth-service/internal/magiclink/domain"
	"veo-auth-service/internal/notify"
	"veo-auth-service/internal/security"
	sessiondomain "veo-auth-service/internal/session/domain"
	userdomain "veo-auth-service/internal/user/domain"
)

type memUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*userdomain.User
	byEmail map[string]*userdomain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*userdomain.User{}, byEmail: map[string]*userdomain.User{}}
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byEmail[email], nil
}

func (r *memUserRepo) create(u *userdomain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u2 := *u
	r.byID[u.ID] = &u2
	r.byEmail[u.Email] = &u2
}

type memChallengeRepo struct {
	mu    sync.Mutex
	m     map[string]*challengedomain.Challenge
	users *memUserRepo
}

func newMemChallengeRepo(users *memUserRepo) *memChallengeRepo {
	return &memChallengeRepo{m: map[string]*challengedomain.Challenge{}, users: users}
}

func (r *memChallengeRepo) pendingLocked(email, phone string) *challengedomain.Challenge {
	var latest *challengedomain.Challenge
	for _, c := range r.m {
		if c.Email == email && c.Phone == phone && c.Pending() {
			if latest == nil || c.IssuedAt.After(latest.IssuedAt) {
				latest = c
			}
		}
	}
	return latest
}

func (r *memChallengeRepo) GetPending(ctx context.Context, email, phone string) (*challengedomain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c := r.pendingLocked(email, phone); c != nil {
		c2 := *c
		return &c2, nil
	}
	return nil, nil
}

func (r *memChallengeRepo) Replace(ctx context.Context, c *challengedomain.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for _, prev := range r.m {
		if prev.Email == c.Email && prev.Phone == c.Phone && prev.Pending() {
			at := now
			prev.SupersededAt = &at
		}
	}
	c2 := *c
	r.m[c.ID] = &c2
	return nil
}

func (r *memChallengeRepo) Resolve(ctx context.Context, email, phone string, fn challengerepo.ResolveFunc) (*challengedomain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.pendingLocked(email, phone)
	if c == nil {
		return nil, nil
	}
	u, err := fn(c)
	if err != nil {
		return nil, err
	}
	if u != nil {
		r.users.create(u)
		c.UserID = u.ID
	}
	c2 := *c
	return &c2, nil
}

type memLinkRepo struct {
	mu sync.Mutex
	m  map[string]*magiclinkdomain.MagicLink // by token hash
}

func newMemLinkRepo() *memLinkRepo {
	return &memLinkRepo{m: map[string]*magiclinkdomain.MagicLink{}}
}

func (r *memLinkRepo) Create(ctx context.Context, l *magiclinkdomain.MagicLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l2 := *l
	r.m[l.TokenHash] = &l2
	return nil
}

func (r *memLinkRepo) Consume(ctx context.Context, tokenHash string, now time.Time) (*magiclinkdomain.MagicLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.m[tokenHash]
	if !ok || !l.Consumable(now) {
		return nil, nil
	}
	at := now
	l.ConsumedAt = &at
	l2 := *l
	return &l2, nil
}

func (r *memLinkRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*magiclinkdomain.MagicLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.m[tokenHash]; ok {
		l2 := *l
		return &l2, nil
	}
	return nil, nil
}

func (r *memLinkRepo) SupersedeActiveByUser(ctx context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.m {
		if l.UserID == userID && l.ConsumedAt == nil && l.SupersededAt == nil {
			t := at
			l.SupersededAt = &t
		}
	}
	return nil
}

type memSessionRepo struct {
	mu sync.Mutex
	m  map[string]*sessiondomain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{m: map[string]*sessiondomain.Session{}}
}

func (r *memSessionRepo) GetByID(ctx context.Context, id string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		s2 := *s
		return &s2, nil
	}
	return nil, nil
}

func (r *memSessionRepo) ListActiveByUser(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var out []*sessiondomain.Session
	for _, s := range r.m {
		if s.UserID == userID && s.Active(now) {
			s2 := *s
			out = append(out, &s2)
		}
	}
	return out, nil
}

func (r *memSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	r.m[s.ID] = &s2
	return nil
}

func (r *memSessionRepo) Revoke(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok && s.RevokedAt == nil {
		t := time.Now().UTC()
		s.RevokedAt = &t
	}
	return nil
}

func (r *memSessionRepo) RevokeAllByUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := time.Now().UTC()
	for _, s := range r.m {
		if s.UserID == userID && s.RevokedAt == nil {
			at := t
			s.RevokedAt = &at
		}
	}
	return nil
}

func (r *memSessionRepo) UpdateRefreshToken(ctx context.Context, sessionID, jti, refreshTokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[sessionID]; ok {
		s.RefreshJti = jti
		s.RefreshTokenHash = refreshTokenHash
	}
	return nil
}

func (r *memSessionRepo) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		t := at
		s.LastSeenAt = &t
	}
	return nil
}

// recordChannel is a notify.Channel capturing sent messages.
type recordChannel struct {
	name string
	err  error
	mu   sync.Mutex
	sent []notify.Message
}

func (c *recordChannel) Name() string { return c.name }

func (c *recordChannel) Send(ctx context.Context, msg notify.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return c.err
}

func (c *recordChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *recordChannel) lastBody() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1].Body
}

type testEnv struct {
	svc      *AuthService
	users    *memUserRepo
	chals    *memChallengeRepo
	links    *memLinkRepo
	sessions *memSessionRepo
	sms      *recordChannel
	email    *recordChannel
	dev      *devotp.MemoryStore
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	users := newMemUserRepo()
	env := &testEnv{
		users:    users,
		chals:    newMemChallengeRepo(users),
		links:    newMemLinkRepo(),
		sessions: newMemSessionRepo(),
		sms:      &recordChannel{name: "sms"},
		email:    &recordChannel{name: "email"},
		dev:      devotp.NewMemoryStore(),
	}
	env.svc = NewAuthService(
		env.users, env.chals, env.links, env.sessions,
		security.NewHasher(4), tokens,
		notify.NewDispatcher(time.Second, nil),
		env.sms, env.email,
		nil, nil, env.dev,
		cfg,
	)
	return env
}

// code returns the plain OTP most recently issued for email, via the dev store.
func (e *testEnv) code(t *testing.T, email string) string {
	t.Helper()
	code, ok := e.dev.Get(context.Background(), email)
	if !ok {
		t.Fatal("no code in dev store")
	}
	return code
}

var tokenParam = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)

// linkToken extracts the magic-link token from the last email body.
func (e *testEnv) linkToken(t *testing.T) string {
	t.Helper()
	m := tokenParam.FindStringSubmatch(e.email.lastBody())
	if m == nil {
		t.Fatalf("no token in email body: %q", e.email.lastBody())
	}
	return m[1]
}

func (e *testEnv) register(t *testing.T, email, phone string) {
	t.Helper()
	if _, err := e.svc.Register(context.Background(), email, phone, "Pat", "en", "", Meta{IP: "10.0.0.1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func (e *testEnv) registerAndVerify(t *testing.T, email, phone string) *AuthResult {
	t.Helper()
	e.register(t, email, phone)
	res, err := e.svc.VerifyOTP(context.Background(), email, phone, e.code(t, email), Meta{IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	return res
}

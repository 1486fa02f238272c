// Package identity issues and looks up learner sessions. Sessions are
// signed tokens; sign-out is tracked in memory until the token expires.
package identity

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lessonmark/lessonmark/internal/config"
	"github.com/lessonmark/lessonmark/internal/ulid"
)

var (
	ErrSessionNotFound = stderrors.New("session not found")
	ErrInvalidSignIn   = stderrors.New("provider and subject are required")
)

type Session struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type claims struct {
	Provider string `json:"prv"`
	jwt.RegisteredClaims
}

type Option func(*Provider)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
		p.ids = ulid.Generator{Now: now}
	}
}

type Provider struct {
	issuer string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	ids    ulid.Generator
	logger *zap.Logger

	mu      sync.Mutex
	revoked map[string]time.Time // session ID to expiry
}

// New creates a Provider. Without a configured secret a random key is
// generated, so tokens do not survive a restart.
func New(cfg config.IdentityConfig, opts ...Option) (*Provider, error) {
	p := &Provider{
		issuer:  cfg.Issuer,
		secret:  []byte(cfg.Secret),
		ttl:     cfg.TTL,
		now:     time.Now,
		logger:  zap.NewNop(),
		revoked: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	if len(p.secret) == 0 {
		p.secret = make([]byte, 32)
		if _, err := rand.Read(p.secret); err != nil {
			return nil, errors.Wrap(err, "failed to generate signing key")
		}
		p.logger.Info("using an ephemeral signing key")
	}
	return p, nil
}

// SignIn starts a session for subject as authenticated by provider and
// returns its token.
func (p *Provider) SignIn(ctx context.Context, provider, subject string) (string, *Session, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if provider == "" || subject == "" {
		return "", nil, errors.WithStack(ErrInvalidSignIn)
	}

	now := p.now().Truncate(time.Second)
	session := &Session{
		ID:        p.ids.New(),
		Provider:  provider,
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: now.Add(p.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Issuer:    p.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to sign session")
	}

	p.logger.Debug("signed in", zap.String("session", session.ID), zap.String("provider", provider))
	return signed, session, nil
}

// Session returns the session of a valid, unexpired and not signed out
// token.
func (p *Provider) Session(ctx context.Context, token string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	session, err := p.parse(token)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	_, revoked := p.revoked[session.ID]
	p.mu.Unlock()
	if revoked {
		return nil, errors.WithStack(ErrSessionNotFound)
	}
	return session, nil
}

func (p *Provider) SignOut(ctx context.Context, token string) error {
	session, err := p.Session(ctx, token)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for id, expiry := range p.revoked {
		if now.After(expiry) {
			delete(p.revoked, id)
		}
	}
	p.revoked[session.ID] = session.ExpiresAt

	p.logger.Debug("signed out", zap.String("session", session.ID))
	return nil
}

func (p *Provider) parse(token string) (*Session, error) {
	var c claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return p.secret, nil
	})
	if err != nil {
		p.logger.Debug("rejected session token", zap.Error(err))
		return nil, errors.Wrap(ErrSessionNotFound, err.Error())
	}
	if c.IssuedAt == nil || c.ExpiresAt == nil {
		return nil, errors.WithStack(ErrSessionNotFound)
	}
	if !c.VerifyIssuer(p.issuer, true) || !c.VerifyExpiresAt(p.now(), true) || !ulid.ValidID(c.ID) {
		return nil, errors.WithStack(ErrSessionNotFound)
	}

	return &Session{
		ID:        c.ID,
		Provider:  c.Provider,
		Subject:   c.Subject,
		IssuedAt:  c.IssuedAt.Time,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

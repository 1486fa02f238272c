package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lessonmark/lessonmark/internal/config"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newProvider(t *testing.T, c *clock) *Provider {
	t.Helper()
	p, err := New(
		config.IdentityConfig{Issuer: "lessonmark", Secret: "s3cret", TTL: time.Hour},
		WithClock(c.now),
		WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)
	return p
}

func TestProvider_SignIn(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	p := newProvider(t, c)
	ctx := context.Background()

	token, session, err := p.SignIn(ctx, "github", "ada")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "github", session.Provider)
	assert.Equal(t, "ada", session.Subject)
	assert.True(t, c.t.Add(time.Hour).Equal(session.ExpiresAt))

	got, err := p.Session(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, "github", got.Provider)
	assert.Equal(t, "ada", got.Subject)
	assert.True(t, session.IssuedAt.Equal(got.IssuedAt))

	_, _, err = p.SignIn(ctx, "", "ada")
	assert.ErrorIs(t, err, ErrInvalidSignIn)
	_, _, err = p.SignIn(ctx, "github", "")
	assert.ErrorIs(t, err, ErrInvalidSignIn)
}

func TestProvider_SignOut(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	p := newProvider(t, c)
	ctx := context.Background()

	token, _, err := p.SignIn(ctx, "google", "grace")
	require.NoError(t, err)
	other, _, err := p.SignIn(ctx, "google", "grace")
	require.NoError(t, err)

	require.NoError(t, p.SignOut(ctx, token))

	_, err = p.Session(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, p.SignOut(ctx, token), ErrSessionNotFound)

	_, err = p.Session(ctx, other)
	assert.NoError(t, err, "other sessions stay valid")
}

func TestProvider_Session(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	p := newProvider(t, c)
	ctx := context.Background()

	token, _, err := p.SignIn(ctx, "github", "ada")
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := p.Session(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("other key", func(t *testing.T) {
		foreign, err := New(config.IdentityConfig{Issuer: "lessonmark", TTL: time.Hour}, WithClock(c.now))
		require.NoError(t, err)
		_, err = foreign.Session(ctx, token)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("other issuer", func(t *testing.T) {
		foreign, err := New(config.IdentityConfig{Issuer: "elsewhere", Secret: "s3cret", TTL: time.Hour}, WithClock(c.now))
		require.NoError(t, err)
		_, err = foreign.Session(ctx, token)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("expired", func(t *testing.T) {
		c.t = c.t.Add(2 * time.Hour)
		_, err := p.Session(ctx, token)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := p.Session(canceled, token)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNew(t *testing.T) {
	_, err := New(config.IdentityConfig{Issuer: "lessonmark"})
	assert.Error(t, err)
}

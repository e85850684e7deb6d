package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muralhq/walletgate/core"
)

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func TestSessionRoundTrip(t *testing.T) {
	tk := NewJWTTokenizer(newKey(t))

	now := time.Now()
	session := &core.Session{
		UserID:    "user-1",
		JTI:       "jti-1",
		Address:   "0x52908400098527886E0F7030069857D2E4169EE7",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}

	token, err := tk.SessionToToken(session)
	require.NoError(t, err)

	parsed, err := tk.TokenToSession(token)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, parsed.UserID)
	assert.Equal(t, session.JTI, parsed.JTI)
	assert.Equal(t, session.Address, parsed.Address)
	assert.WithinDuration(t, session.ExpiresAt, parsed.ExpiresAt, time.Second)
}

func TestTokenToSessionFailsClosed(t *testing.T) {
	key := newKey(t)
	tk := NewJWTTokenizer(key)

	t.Run("expired credential", func(t *testing.T) {
		token, err := tk.SessionToToken(&core.Session{
			UserID:    "user-1",
			JTI:       "jti-1",
			IssuedAt:  time.Now().Add(-2 * time.Hour),
			ExpiresAt: time.Now().Add(-time.Hour),
		})
		require.NoError(t, err)

		_, err = tk.TokenToSession(token)
		assert.ErrorIs(t, err, core.ErrUnauthenticated)
	})

	t.Run("garbage input", func(t *testing.T) {
		_, err := tk.TokenToSession("not.a.jwt")
		assert.ErrorIs(t, err, core.ErrUnauthenticated)
	})

	t.Run("foreign signing key", func(t *testing.T) {
		other := NewJWTTokenizer(newKey(t))
		token, err := other.SessionToToken(&core.Session{
			UserID:    "user-1",
			JTI:       "jti-1",
			IssuedAt:  time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		})
		require.NoError(t, err)

		_, err = tk.TokenToSession(token)
		assert.ErrorIs(t, err, core.ErrUnauthenticated)
	})

	t.Run("tampered payload", func(t *testing.T) {
		token, err := tk.SessionToToken(&core.Session{
			UserID:    "user-1",
			JTI:       "jti-1",
			IssuedAt:  time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		})
		require.NoError(t, err)

		tampered := token[:len(token)-6] + "XXXXXX"
		_, err = tk.TokenToSession(tampered)
		assert.ErrorIs(t, err, core.ErrUnauthenticated)
	})
}

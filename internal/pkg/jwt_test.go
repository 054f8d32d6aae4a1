package pkg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_PairRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("access", "refresh", time.Minute, time.Hour)

	pair, err := issuer.GeneratePair(42)
	require.NoError(t, err)

	claims, err := issuer.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.NotEmpty(t, claims.ID)

	// refresh token 不能当 access 用，反之亦然
	_, err = issuer.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = issuer.Refresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrRefreshInvalid)

	next, err := issuer.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, next.AccessToken)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer("access", "refresh", time.Minute, time.Hour)
	expired, err := issuer.sign(7, "access", time.Now().Add(-2*time.Minute), time.Minute, issuer.accessSecret)
	require.NoError(t, err)

	_, err = issuer.ParseAccess(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	a := NewTokenIssuer("one", "r", 0, 0)
	b := NewTokenIssuer("two", "r", 0, 0)
	pair, err := a.GeneratePair(1)
	require.NoError(t, err)

	_, err = b.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.Equal(t, DefaultAccessTTL, b.AccessTTL())
}

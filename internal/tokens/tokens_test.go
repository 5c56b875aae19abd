package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer() *Issuer {
	return &Issuer{
		AccessSecret:  []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		Pepper:        "pepper",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
	}
}

func TestIssuer_AccessToken_SetsExpectedClaims(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer()
	accountID := uuid.NewString()

	token, exp, err := iss.CreateAccessToken(accountID, []string{"user", "admin"})
	require.NoError(t, err)

	claims, err := iss.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, accountID, claims.Subject)
	assert.Equal(t, []string{"user", "admin"}, claims.Roles)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)
}

func TestIssuer_RefreshToken_HashOnly(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer()
	rt, err := iss.CreateRefreshToken("acc")
	require.NoError(t, err)

	assert.NotEqual(t, rt.Token, rt.Hash)
	assert.Len(t, rt.Hash, 64)
	assert.Equal(t, iss.Hash(rt.Token), rt.Hash)

	other := newTestIssuer()
	other.Pepper = "different"
	assert.NotEqual(t, rt.Hash, other.Hash(rt.Token))

	claims, err := iss.ParseRefresh(rt.Token)
	require.NoError(t, err)
	assert.Equal(t, rt.JTI, claims.ID)
	assert.Equal(t, "acc", claims.Subject)
}

func TestIssuer_ParseRejects(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer()
	access, _, err := iss.CreateAccessToken("acc", nil)
	require.NoError(t, err)
	refresh, err := iss.CreateRefreshToken("acc")
	require.NoError(t, err)

	expired := newTestIssuer()
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.CreateAccessToken("acc", nil)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		parse func() error
		want  error
	}{
		{"refresh as access", func() error { _, err := iss.ParseAccess(refresh.Token); return err }, jwt.ErrTokenSignatureInvalid},
		{"access as refresh", func() error { _, err := iss.ParseRefresh(access); return err }, jwt.ErrTokenSignatureInvalid},
		{"expired", func() error { _, err := iss.ParseAccess(old); return err }, jwt.ErrTokenExpired},
		{"alg none", func() error { _, err := iss.ParseAccess(none); return err }, jwt.ErrTokenUnverifiable},
		{"garbage", func() error { _, err := iss.ParseAccess("x.y.z"); return err }, jwt.ErrTokenMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, tt.parse(), tt.want)
		})
	}
}

func TestDeleteCookie(t *testing.T) {
	t.Parallel()

	c := DeleteCookie(AccessCookie, "/", true)
	assert.Equal(t, -1, c.MaxAge)
	assert.True(t, c.Secure)
	assert.True(t, c.HttpOnly)
}

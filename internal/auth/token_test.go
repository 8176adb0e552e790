package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	for _, id := range []Identity{
		{Role: RoleAdmin, UserID: 1, Username: "admin"},
		{Role: RoleSector, UserID: 3, Username: "ops", SectorID: 2, SectorName: "Operations"},
	} {
		token, err := m.Issue(id)
		require.NoError(t, err)

		got, err := m.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestVerify_Expired(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := issuedAt
	m := NewTokenManager(testSecret, time.Hour).WithClock(func() time.Time { return clock })

	token, err := m.Issue(Identity{Role: RoleAdmin, UserID: 1, Username: "admin"})
	require.NoError(t, err)

	clock = issuedAt.Add(59 * time.Minute)
	_, err = m.Verify(token)
	require.NoError(t, err)

	clock = issuedAt.Add(2 * time.Hour)
	_, err = m.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Tampered(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	token, err := m.Issue(Identity{Role: RoleSector, UserID: 3, Username: "ops", SectorID: 2})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	_, err = m.Verify(parts[0] + "." + parts[1] + "." + string(sig))
	require.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenManager("another-secret-another-secret!!", time.Hour)
	_, err = other.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsForeignClaims(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	now := time.Now()

	sign := func(c Claims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, c).SignedString(key)
		require.NoError(t, err)
		return s
	}
	exp := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}

	tests := map[string]string{
		"unknown role":         sign(Claims{RegisteredClaims: exp, Role: "root"}, jwt.SigningMethodHS256, []byte(testSecret)),
		"sector without id":    sign(Claims{RegisteredClaims: exp, Role: RoleSector}, jwt.SigningMethodHS256, []byte(testSecret)),
		"no expiry":            sign(Claims{Role: RoleAdmin}, jwt.SigningMethodHS256, []byte(testSecret)),
		"other hmac algorithm": sign(Claims{RegisteredClaims: exp, Role: RoleAdmin}, jwt.SigningMethodHS512, []byte(testSecret)),
		"garbage":              "not-a-token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.Verify(token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("admin123")
	require.NoError(t, err)
	assert.NotEqual(t, "admin123", hash)
	assert.True(t, CheckPassword(hash, "admin123"))
	assert.False(t, CheckPassword(hash, "admin124"))
	assert.False(t, CheckPassword("not-a-hash", "admin123"))
}

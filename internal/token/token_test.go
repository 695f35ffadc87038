package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "student-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func tokenWithoutExpiry(t *testing.T) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "student-1"}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"future expiry", signedToken(t, time.Now().Add(time.Hour)), true},
		{"past expiry", signedToken(t, time.Now().Add(-10*time.Second)), false},
		{"no expiry claim", tokenWithoutExpiry(t), false},
		{"malformed", "not-a-jwt", false},
		{"empty", "", false},
		{"garbage segments", "aaa.bbb.ccc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.token))
		})
	}
}

func TestExpiresAt(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	got, err := ExpiresAt(signedToken(t, exp))
	require.NoError(t, err)
	assert.Equal(t, exp.Unix(), got.Unix())

	_, err = ExpiresAt(tokenWithoutExpiry(t))
	assert.ErrorIs(t, err, ErrNoExpiry)

	_, err = ExpiresAt("definitely not a token")
	assert.Error(t, err)
}

func TestIssueParseRoundTrip(t *testing.T) {
	signed, exp, err := Issue("student-1", "s1@campus.edu", "student", "clockin-dev", "test-key", time.Hour)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := Parse(signed, "test-key", "clockin-dev")
	require.NoError(t, err)
	assert.Equal(t, "student-1", claims.Subject)
	assert.Equal(t, "student", claims.Role)

	_, err = Parse(signed, "wrong-key", "clockin-dev")
	assert.Error(t, err)

	_, err = Parse(signed, "test-key", "other-issuer")
	assert.Error(t, err)
}

func TestIsValidAcceptsIssuedTokens(t *testing.T) {
	signed, _, err := Issue("student-1", "s1@campus.edu", "student", "clockin-dev", "test-key", time.Hour)
	require.NoError(t, err)
	assert.True(t, IsValid(signed))

	expired, _, err := Issue("student-1", "s1@campus.edu", "student", "clockin-dev", "test-key", -time.Minute)
	require.NoError(t, err)
	assert.False(t, IsValid(expired))
}

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789"

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer(testSecret, time.Hour)
	id := Identity{UserID: "user-1", Username: "alice"}

	tok, err := iss.Issue(id)
	require.NoError(t, err)

	got, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestIssue_RejectsAnonymous(t *testing.T) {
	iss := NewIssuer(testSecret, time.Hour)
	_, err := iss.Issue(Anonymous)
	require.Error(t, err)
}

func TestParse_WrongSecret(t *testing.T) {
	tok, err := NewIssuer(testSecret, time.Hour).Issue(Identity{UserID: "user-1"})
	require.NoError(t, err)

	_, err = NewIssuer("another-secret-0123456789", time.Hour).Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_Expired(t *testing.T) {
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	iss := NewIssuer(testSecret, time.Hour).WithClock(func() time.Time { return issued })

	tok, err := iss.Issue(Identity{UserID: "user-1"})
	require.NoError(t, err)

	later := iss.WithClock(func() time.Time { return issued.Add(2 * time.Hour) })
	_, err = later.Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewIssuer(testSecret, time.Hour).Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_MissingSubject(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewIssuer(testSecret, time.Hour).Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseBearer(t *testing.T) {
	iss := NewIssuer(testSecret, time.Hour)
	tok, err := iss.Issue(Identity{UserID: "user-1", Username: "alice"})
	require.NoError(t, err)

	got, err := iss.ParseBearer("Bearer " + tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)

	for _, header := range []string{"", "Basic abc", tok} {
		_, err := iss.ParseBearer(header)
		assert.ErrorIs(t, err, ErrMissingToken, "header %q", header)
	}
}

func TestIdentity_Owns(t *testing.T) {
	id := Identity{UserID: "user-1"}
	assert.True(t, id.Owns("user-1"))
	assert.False(t, id.Owns("user-2"))
	assert.False(t, Anonymous.Owns(""))
	assert.True(t, Anonymous.IsAnonymous())
}

package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParse(t *testing.T) {
	p := NewParser(Config{Secret: testSecret})

	token := signToken(t, testSecret, Claims{
		UserID:    "u-42",
		Email:     "cashier@example.com",
		SessionID: "s-1",
	})

	actor, err := p.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-42", actor.UserID)
	assert.Equal(t, "cashier@example.com", actor.Email)
	assert.Equal(t, "s-1", actor.SessionID)
}

func TestParse_SubjectFallback(t *testing.T) {
	p := NewParser(Config{Secret: testSecret})

	token := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-7"},
	})

	actor, err := p.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-7", actor.UserID)
}

func TestParse_NoSubject(t *testing.T) {
	p := NewParser(Config{Secret: testSecret})

	token := signToken(t, testSecret, Claims{Email: "nobody@example.com"})

	_, err := p.Parse(token)
	assert.Error(t, err)
}

func TestParse_WrongSecret(t *testing.T) {
	p := NewParser(Config{Secret: testSecret})

	token := signToken(t, "other-secret", Claims{UserID: "u-1"})

	_, err := p.Parse(token)
	assert.Error(t, err)
}

func TestParse_Expired(t *testing.T) {
	p := NewParser(Config{Secret: testSecret})

	token := signToken(t, testSecret, Claims{
		UserID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := p.Parse(token)
	assert.Error(t, err)
}

func TestParse_IssuerCheck(t *testing.T) {
	p := NewParser(Config{Secret: testSecret, Issuer: "identity-svc"})

	good := signToken(t, testSecret, Claims{
		UserID:           "u-1",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "identity-svc"},
	})
	_, err := p.Parse(good)
	assert.NoError(t, err)

	bad := signToken(t, testSecret, Claims{
		UserID:           "u-1",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
	})
	_, err = p.Parse(bad)
	assert.Error(t, err)
}

func TestParse_RejectsUnsignedToken(t *testing.T) {
	p := NewParser(Config{Secret: testSecret})

	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u-1"})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = p.Parse(unsigned)
	assert.Error(t, err)
}

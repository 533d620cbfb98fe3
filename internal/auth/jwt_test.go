package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marketplace-service/internal/domain"
)

const testSecret = "test-secret-key-with-at-least-32-chars"

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager(testSecret, time.Minute, zap.NewNop())
	userID := uuid.New()

	token, err := m.GenerateToken(userID, domain.RoleSeller)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "seller", claims.Role)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestJWTManager_Expired(t *testing.T) {
	m := NewJWTManager(testSecret, -time.Minute, zap.NewNop())

	token, err := m.GenerateToken(uuid.New(), domain.RoleBuyer)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	issuer := NewJWTManager("another-secret-key-with-at-least-32-chars", time.Minute, zap.NewNop())
	verifier := NewJWTManager(testSecret, time.Minute, zap.NewNop())

	token, err := issuer.GenerateToken(uuid.New(), domain.RoleBuyer)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_RejectsBadClaims(t *testing.T) {
	m := NewJWTManager(testSecret, time.Minute, zap.NewNop())

	sign := func(claims JWTClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return s
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Minute))

	_, err := m.ValidateToken(sign(JWTClaims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString(), ExpiresAt: exp}}))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ValidateToken(sign(JWTClaims{Role: "buyer", RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", ExpiresAt: exp}}))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace-service/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

const tokenIssuer = "marketplace-service"

// JWTClaims carries the acting user id in Subject and the marketplace role.
type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject into the canonical id type.
func (c *JWTClaims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

// JWTManager handles JWT token generation and validation
type JWTManager struct {
	secretKey []byte
	ttl       time.Duration
	logger    *zap.Logger
}

func NewJWTManager(secretKey string, ttl time.Duration, logger *zap.Logger) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		logger:    logger,
	}
}

// GenerateToken issues a token for userID acting as role. Token issuance for
// end users belongs to the identity service; this is used by tooling and tests.
func (j *JWTManager) GenerateToken(userID uuid.UUID, role domain.Role) (string, error) {
	now := time.Now()
	expiresAt := now.Add(j.ttl)

	claims := JWTClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		j.logger.Error("Failed to generate token", zap.Error(err))
		return "", err
	}
	return tokenString, nil
}

// ValidateToken validates a JWT token and returns the claims
func (j *JWTManager) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return j.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			j.logger.Warn("Token expired", zap.Error(err))
			return nil, ErrExpiredToken
		}
		j.logger.Warn("Invalid token", zap.Error(err))
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		j.logger.Warn("Invalid token claims")
		return nil, ErrInvalidToken
	}
	if _, err := domain.ToRole(claims.Role); err != nil {
		j.logger.Warn("Invalid role claim", zap.String("role", claims.Role))
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}

	return claims, nil
}

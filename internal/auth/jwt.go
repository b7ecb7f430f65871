package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer is stamped into and required on every session token
const tokenIssuer = "sendwave-gateway"

var (
	ErrSecretNotInitialized = errors.New("JWT secret not initialized")
	ErrTokenExpired         = errors.New("session token expired")
	ErrInvalidToken         = errors.New("invalid session token")
)

var jwtSecret []byte

// SessionClaims are carried by a session token. Role is informational; the
// gateway re-reads it from the user record on every request.
type SessionClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// InitializeJWT sets the signing secret
func InitializeJWT(secret string) {
	jwtSecret = []byte(secret)
}

// IsInitialized reports whether a secret has been loaded
func IsInitialized() bool {
	return len(jwtSecret) > 0
}

// GenerateToken issues a session token for a user, valid for ttl
func GenerateToken(userID, email, role string, ttl time.Duration) (string, error) {
	if !IsInitialized() {
		return "", ErrSecretNotInitialized
	}

	now := time.Now()
	claims := SessionClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks signature, issuer and expiry and returns the claims
func ValidateToken(tokenString string) (*SessionClaims, error) {
	if !IsInitialized() {
		return nil, ErrSecretNotInitialized
	}

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject != claims.UserID {
		return nil, fmt.Errorf("%w: subject mismatch", ErrInvalidToken)
	}
	return claims, nil
}

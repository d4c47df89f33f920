// Package auth issues and verifies the access tokens that identify callers.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures and wrong
	// signing methods. A token is either fully trusted or not at all.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned for structurally valid but expired tokens.
	ErrTokenExpired = errors.New("token expired")
)

// TokenService signs and verifies HS256 bearer tokens carrying a numeric
// user id claim. It holds no state beyond the configured secret and TTL.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService constructs a TokenService. The secret must be non-empty;
// config.LoadConfig guarantees that before this is ever called.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue creates a signed token embedding the user id, valid for the
// configured TTL.
func (s *TokenService) Issue(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates signature and expiry and returns the embedded user id.
// Every failure mode maps to ErrTokenExpired or ErrInvalidToken.
func (s *TokenService) Verify(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}

	// JSON numbers decode as float64; convert to the int64 identity type
	// used everywhere else exactly once, here.
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return 0, ErrInvalidToken
	}

	return int64(userIDFloat), nil
}

package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose distinguishes access tokens from single-use email verification
// tokens; a token issued for one purpose never validates for another.
type Purpose string

const (
	PurposeAccess Purpose = "access"
	PurposeVerify Purpose = "verify"
)

type Claims struct {
	UserID  string  `json:"uid"`
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// Issue signs a token for the given user and purpose.
func Issue(secret, userID string, purpose Purpose, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:  userID,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token, checking it was issued for the
// expected purpose.
func Validate(secret, tokenStr string, purpose Purpose) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("token purpose mismatch")
	}
	return &claims, nil
}

package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"schoolpay/internal/platform/middleware"
	"schoolpay/internal/user"
	id "schoolpay/pkg/domain"
)

// TokenIssuer mints and validates HS256 session tokens. It satisfies
// middleware.TokenValidator so the router can gate authenticated routes on it.
type TokenIssuer struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

func NewTokenIssuer(signingKey string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		signingKey: []byte(signingKey),
		ttl:        ttl,
		now:        time.Now,
	}
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a token for the user valid for the configured TTL.
func (t *TokenIssuer) Issue(u *user.User) (string, error) {
	now := t.now()
	claims := sessionClaims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a bearer token.
func (t *TokenIssuer) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Header["alg"])
		}
		return t.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("token subject: %w", err)
	}
	return &middleware.TokenClaims{UserID: userID, Role: claims.Role}, nil
}

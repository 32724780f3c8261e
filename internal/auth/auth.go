// Package auth resolves bearer credentials to caller identities.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Identity is the resolved caller: a user id plus role. Name and email
// ride along for notification purposes when the token carries them.
type Identity struct {
	UserID string
	Role   Role
	Name   string
	Email  string
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

var (
	ErrMissingSecret = errors.New("token secret is required")
	ErrInvalidToken  = errors.New("invalid bearer token")
)

// TokenVerifier verifies HS256 bearer tokens issued by the identity
// provider.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) (*TokenVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	return &TokenVerifier{secret: []byte(secret)}, nil
}

// Verify parses and validates token, returning the caller identity.
func (v *TokenVerifier) Verify(tokenString string) (*Identity, error) {
	if v == nil {
		return nil, ErrMissingSecret
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	subject, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	identity := &Identity{
		UserID: subject,
		Role:   RoleCustomer,
	}
	if role, ok := claims["role"].(string); ok && Role(role) == RoleAdmin {
		identity.Role = RoleAdmin
	}
	if name, ok := claims["name"].(string); ok {
		identity.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}

	return identity, nil
}

// Issue creates a signed token for identity, valid for ttl. Used by tests
// and local tooling; production tokens come from the identity provider.
func (v *TokenVerifier) Issue(identity *Identity, ttl time.Duration) (string, error) {
	if v == nil {
		return "", ErrMissingSecret
	}
	if identity == nil || strings.TrimSpace(identity.UserID) == "" {
		return "", fmt.Errorf("identity with user id is required")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  identity.UserID,
		"role": string(identity.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	if identity.Name != "" {
		claims["name"] = identity.Name
	}
	if identity.Email != "" {
		claims["email"] = identity.Email
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// SecretEqual compares a presented webhook credential against the
// configured one in constant time.
func SecretEqual(presented, configured string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}

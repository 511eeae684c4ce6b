// Package auth issues and verifies the HS256 access tokens used by the
// REST API. Every token carries a unique id so logout can revoke it
// before expiry.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/zestcart/zestcart/internal/domain"
)

// Claims is the JWT payload of an access token.
type Claims struct {
	UserID   int64  `json:"uid,string"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret  []byte
	issuer  string
	expire  time.Duration
	revoked RevocationStore
}

func NewTokenService(secret, issuer string, expire time.Duration, store RevocationStore) *TokenService {
	if expire <= 0 {
		expire = time.Hour * 24
	}
	return &TokenService{
		secret:  []byte(secret),
		issuer:  issuer,
		expire:  expire,
		revoked: store,
	}
}

// Issue signs a new access token for the user.
func (t *TokenService) Issue(user *domain.User) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expire)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, errors.Wrap(err, "sign token")
	}
	return signed, claims, nil
}

// Verify parses and validates a token string, including a revocation
// check on the token id. A revocation store failure rejects the token.
func (t *TokenService) Verify(ctx context.Context, tokenstr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenstr, claims, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tk.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthenticated
	}

	if claims.ID != "" && t.revoked != nil {
		revoked, err := t.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, errors.Wrap(err, "revocation check")
		}
		if revoked {
			return nil, domain.ErrUnauthenticated
		}
	}
	return claims, nil
}

// Revoke blacklists the token id for the remaining token lifetime.
func (t *TokenService) Revoke(ctx context.Context, claims *Claims) error {
	if t.revoked == nil || claims.ID == "" {
		return nil
	}
	remaining := time.Hour * 24
	if claims.ExpiresAt != nil {
		remaining = time.Until(claims.ExpiresAt.Time)
	}
	if remaining <= 0 {
		return nil
	}
	return t.revoked.Revoke(ctx, claims.ID, remaining)
}

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"

	"fabricstore/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identify a principal. Staff tokens carry their user role; customer
// tokens carry domain.RoleCustomer and the customer id.
type Claims struct {
	ID   int64       `json:"id"`
	Role domain.Role `json:"role"`
	jwt.StandardClaims
}

type TokenIssuer struct {
	secret   []byte
	lifespan time.Duration
	now      func() time.Time
}

func NewTokenIssuer(secret string, lifespan time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), lifespan: lifespan, now: time.Now}
}

func (i *TokenIssuer) Issue(principal domain.Principal) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.lifespan)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		ID:   principal.ID,
		Role: principal.Role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expires.Unix(),
			IssuedAt:  now.Unix(),
		},
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

func (i *TokenIssuer) Parse(raw string) (domain.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Principal{}, ErrInvalidToken
	}
	if claims.ID <= 0 || (claims.Role != domain.RoleCustomer && !claims.Role.Valid()) {
		return domain.Principal{}, ErrInvalidToken
	}
	return domain.Principal{ID: claims.ID, Role: claims.Role}, nil
}

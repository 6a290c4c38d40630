// Package auth turns bearer tokens into actors and answers role checks.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the actor kind in Role and the actor id in Subject.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type TokenParser struct {
	secret []byte
	issuer string
}

func NewTokenParser(secret, issuer string) *TokenParser {
	return &TokenParser{secret: []byte(secret), issuer: strings.TrimSpace(issuer)}
}

func (p *TokenParser) ParseActor(tokenString string) (entity.Actor, error) {
	if len(p.secret) == 0 {
		return entity.Actor{}, ErrInvalidToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		return entity.Actor{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return entity.Actor{}, ErrInvalidToken
	}

	kind, ok := entity.ParseActorKind(claims.Role)
	if !ok {
		return entity.Actor{}, ErrInvalidToken
	}
	actor := entity.Actor{Kind: kind, ID: strings.TrimSpace(claims.Subject)}
	if !actor.Valid() {
		return entity.Actor{}, ErrInvalidToken
	}
	return actor, nil
}

// IssueToken signs an HS256 token for actor. Used by tooling and tests.
func IssueToken(secret, issuer string, actor entity.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(actor.Kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Package auth verifies the credential token presented when a realtime
// connection is established. Verification is the whole session gate:
// a token either maps to a user identity or the connection is refused.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lumachat/chatrelay/internal/ierr"
)

type Identity struct {
	UserID string
	Name   string
}

type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

type Verifier struct {
	secret    []byte
	jwtParser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	jwtParser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithAudience("chatrelay"),
	)

	return &Verifier{
		secret:    []byte(secret),
		jwtParser: jwtParser,
	}
}

func (v *Verifier) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("unexpected signing method"))
	}
	return v.secret, nil
}

func (v *Verifier) Verify(tokenString string) (Identity, error) {
	claims := Claims{}

	_, err := v.jwtParser.ParseWithClaims(tokenString, &claims, v.keyFunc)
	if err != nil {
		return Identity{}, ierr.New(ierr.ErrorCodeUnauthenticated, err)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return Identity{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid subject claim"))
	}

	name := claims.Name
	if name == "" {
		name = subject
	}

	return Identity{
		UserID: subject,
		Name:   name,
	}, nil
}

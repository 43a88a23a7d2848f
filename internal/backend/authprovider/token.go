package authprovider

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// idClaims are the claims carried by ID tokens minted by Local.
type idClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// tokenIssuer mints and validates HS256 ID tokens.
type tokenIssuer struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	clock      func() time.Time
}

func newTokenIssuer(signingKey, issuer string, ttl time.Duration, clock func() time.Time) *tokenIssuer {
	return &tokenIssuer{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
		clock:      clock,
	}
}

func (t *tokenIssuer) issue(u User) (string, error) {
	now := t.clock()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, idClaims{
		Email: u.Email,
		Name:  u.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.UID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(t.signingKey)
}

// verifiedToken is a token that passed signature, issuer and expiry checks.
type verifiedToken struct {
	User
	ID        string
	ExpiresAt time.Time
}

func (t *tokenIssuer) parse(raw string) (verifiedToken, error) {
	parsed, err := jwt.ParseWithClaims(raw, &idClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return t.signingKey, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithTimeFunc(t.clock))
	if err != nil {
		return verifiedToken{}, newError(CodeInvalidCredential, err)
	}
	claims, ok := parsed.Claims.(*idClaims)
	if !ok || !parsed.Valid || claims.Subject == "" || claims.ExpiresAt == nil {
		return verifiedToken{}, newError(CodeInvalidCredential, errors.New("invalid token claims"))
	}
	return verifiedToken{
		User:      User{UID: claims.Subject, Email: claims.Email, DisplayName: claims.Name, IDToken: raw},
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

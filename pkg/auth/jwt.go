package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultJWTLifetime = 5 * time.Minute

// jwtHandler signs a fresh HS256 token for every request.
type jwtHandler struct {
	subject  string
	issuer   string
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

func newJWTHandler(creds Credentials) *jwtHandler {
	lifetime := creds.Lifetime
	if lifetime <= 0 {
		lifetime = defaultJWTLifetime
	}
	return &jwtHandler{
		subject:  creds.Username,
		issuer:   creds.Issuer,
		secret:   []byte(creds.Secret),
		lifetime: lifetime,
		now:      time.Now,
	}
}

func (h *jwtHandler) Scheme() Scheme { return SchemeJWT }

func (h *jwtHandler) FormatGetArgs(args RequestArgs) RequestArgs {
	return h.format(args)
}

func (h *jwtHandler) FormatPostArgs(args RequestArgs) RequestArgs {
	return h.format(args)
}

func (h *jwtHandler) format(args RequestArgs) RequestArgs {
	if len(h.secret) == 0 {
		return args.Clone()
	}

	now := h.now()
	claims := jwt.RegisteredClaims{
		Issuer:    h.issuer,
		Subject:   h.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(h.lifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return args.Clone()
	}
	return args.withAuthorization("Bearer " + signed)
}

package handlers

import (
	"time"

	"github.com/agendly/agendly/libs/auth"
	"github.com/agendly/agendly/services/identity-service/internal/model"
)

// TokenSigner mints access tokens for authenticated accounts.
type TokenSigner interface {
	Sign(acct model.Account) (string, error)
}

type hs256Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewHS256Signer(secret []byte, ttl time.Duration) TokenSigner {
	return &hs256Signer{secret: secret, ttl: ttl}
}

func (s *hs256Signer) Sign(acct model.Account) (string, error) {
	now := time.Now()
	return auth.SignHS256(auth.Claims{
		Sub:   acct.ID,
		Role:  acct.Role,
		Email: acct.Email,
		Name:  acct.Name,
		Iat:   now.Unix(),
		Exp:   now.Add(s.ttl).Unix(),
	}, s.secret)
}

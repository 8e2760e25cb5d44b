// Package token signs and checks the session tokens whose lifetime the auth
// cache mirrors.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/darkomike/bloggie-sub001/authcache"
)

const DefaultIssuer = "bloggie"

// Config holds the shared secret and issuer used to sign and verify tokens.
type Config struct {
	Secret []byte
	Issuer string
	Now    func() time.Time
}

func (c Config) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c Config) issuer() string {
	if c.Issuer == "" {
		return DefaultIssuer
	}
	return c.Issuer
}

// Claims are the validated contents of a session token.
type Claims struct {
	UserID    string
	Name      string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// User rebuilds the cached user from the claims.
func (c *Claims) User() *authcache.User {
	return &authcache.User{ID: c.UserID, Name: c.Name, Email: c.Email}
}

// sessionClaims is the wire form.
type sessionClaims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (s *sessionClaims) claims() *Claims {
	out := &Claims{
		UserID: s.Subject,
		Name:   s.Name,
		Email:  s.Email,
	}
	if s.IssuedAt != nil {
		out.IssuedAt = s.IssuedAt.Time.UTC()
	}
	if s.ExpiresAt != nil {
		out.ExpiresAt = s.ExpiresAt.Time.UTC()
	}
	return out
}

type Signer struct {
	cfg Config
}

func NewSigner(cfg Config) (*Signer, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	return &Signer{cfg: cfg}, nil
}

// Sign issues an HS256 token for u that expires after ttl.
func (s *Signer) Sign(u authcache.User, ttl time.Duration) (string, error) {
	if strings.TrimSpace(u.ID) == "" {
		return "", errors.New("user id is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	now := s.cfg.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.issuer(),
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:  u.Name,
		Email: u.Email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

type Verifier struct {
	cfg Config
}

func NewVerifier(cfg Config) *Verifier {
	return &Verifier{cfg: cfg}
}

/*
Verify returns the claims of a valid, unexpired token signed with the
configured secret and issuer. Any other input, including a malformed token,
yields nil.
*/
func (v *Verifier) Verify(tok string) (out *Claims) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("[TOKEN] verify panicked")
			out = nil
		}
	}()

	tok = strings.TrimSpace(tok)
	if tok == "" || len(v.cfg.Secret) == 0 {
		return nil
	}

	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(tok, &parsed, func(*jwt.Token) (any, error) {
		return v.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.cfg.issuer()),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.cfg.now),
	)
	if err != nil {
		logrus.WithError(err).Debug("[TOKEN] rejected session token")
		return nil
	}
	if parsed.Subject == "" {
		return nil
	}
	return parsed.claims()
}

// Decode reads the claims without checking the signature or expiry. Use it
// for display only.
func Decode(tok string) *Claims {
	var parsed sessionClaims
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(tok), &parsed); err != nil {
		return nil
	}
	return parsed.claims()
}

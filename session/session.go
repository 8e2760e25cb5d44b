// Package session connects the authoritative session check to the auth
// cache. The check decides; the cache only remembers the last answer.
package session

import (
	"context"
	"strings"

	"github.com/darkomike/bloggie-sub001/authcache"
	"github.com/darkomike/bloggie-sub001/token"
)

type AuthState string

const (
	Authenticated   AuthState = "authenticated"
	Unauthenticated AuthState = "unauthenticated"
	Unknown         AuthState = "unknown"
)

// Result is one resolution of the session check. User is set only when
// State is Authenticated.
type Result struct {
	User  *authcache.User
	State AuthState
}

// Checker asks the authority who the current user is.
type Checker interface {
	Check(ctx context.Context) (Result, error)
}

type CheckerFunc func(ctx context.Context) (Result, error)

func (f CheckerFunc) Check(ctx context.Context) (Result, error) { return f(ctx) }

type tokenKey struct{}

// WithToken attaches a session token to ctx for TokenChecker.
func WithToken(ctx context.Context, tok string) context.Context {
	return context.WithValue(ctx, tokenKey{}, tok)
}

func TokenFromContext(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(tokenKey{}).(string)
	if !ok || strings.TrimSpace(tok) == "" {
		return "", false
	}
	return tok, true
}

/*
TokenChecker resolves the session from the token carried on the context. No
token, or one that fails verification, means signed out.
*/
type TokenChecker struct {
	Verifier *token.Verifier
}

func (c TokenChecker) Check(ctx context.Context) (Result, error) {
	tok, ok := TokenFromContext(ctx)
	if !ok {
		return Result{State: Unauthenticated}, nil
	}
	claims := c.Verifier.Verify(tok)
	if claims == nil {
		return Result{State: Unauthenticated}, nil
	}
	return Result{User: claims.User(), State: Authenticated}, nil
}

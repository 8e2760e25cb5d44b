package rest

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/darkomike/bloggie-sub001/authcache"
	"github.com/darkomike/bloggie-sub001/session"
)

type Auth struct {
	Cache       *authcache.Cache
	Revalidator *session.Revalidator
}

// StateJSON is the wire form of the cached auth state.
type StateJSON struct {
	Status string          `json:"status"`
	User   *authcache.User `json:"user"`
}

func toStateJSON(st authcache.State) StateJSON {
	return StateJSON{Status: st.Status.String(), User: st.User}
}

func InitRestAuth(app fiber.Router, cache *authcache.Cache, revalidator *session.Revalidator) Auth {
	rest := Auth{Cache: cache, Revalidator: revalidator}
	app.Get("/auth/state", rest.State)
	app.Post("/auth/revalidate", rest.Revalidate)
	app.Post("/auth/signout", rest.SignOut)
	return rest
}

// State returns the cached best guess without checking the session.
func (handler *Auth) State(c *fiber.Ctx) error {
	return respond(c, ResponseData{
		Code:    "SUCCESS",
		Message: "Cached auth state",
		Results: toStateJSON(handler.Cache.Get(requestContext(c))),
	})
}

/*
Revalidate runs the session check with the bearer token of the request and
returns the state it cached. A failing check is reported as unknown, never as
an error: the cache is advisory.
*/
func (handler *Auth) Revalidate(c *fiber.Ctx) error {
	st, err := handler.Revalidator.Revalidate(requestContext(c))
	res := ResponseData{
		Code:    "SUCCESS",
		Message: "Session revalidated",
		Results: toStateJSON(st),
	}
	if err != nil {
		res.Message = "Session check failed, cached state cleared"
	}
	return respond(c, res)
}

// SignOut records a known signed-out state.
func (handler *Auth) SignOut(c *fiber.Ctx) error {
	handler.Cache.Set(c.UserContext(), nil)
	return respond(c, ResponseData{
		Code:    "SUCCESS",
		Message: "Signed out",
		Results: toStateJSON(authcache.State{Status: authcache.StatusSignedOut}),
	})
}

// requestContext carries the request's bearer token, so a refresh started by a
// read runs with the reader's own credentials.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if tok, ok := BearerToken(c); ok {
		ctx = session.WithToken(ctx, tok)
	}
	return ctx
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	return bearer(c.Get(fiber.HeaderAuthorization))
}

func bearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

package session

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/darkomike/bloggie-sub001/authcache"
	"github.com/darkomike/bloggie-sub001/types"
)

/*
Revalidator runs the session check and writes its answer to the auth cache,
exactly once per resolution:

	authenticated    -> Set(user)
	unauthenticated  -> Set(nil)
	unknown or error -> Invalidate

Concurrent calls share a single check.
*/
type Revalidator struct {
	checker Checker
	auth    *authcache.Cache
	sf      singleflight.Group
}

func NewRevalidator(checker Checker, auth *authcache.Cache) *Revalidator {
	return &Revalidator{checker: checker, auth: auth}
}

// Revalidate checks the session and returns the state it cached.
func (r *Revalidator) Revalidate(ctx context.Context) (authcache.State, error) {
	v, err, _ := r.sf.Do("session", func() (any, error) {
		res, err := r.checker.Check(ctx)
		if err != nil {
			logrus.WithError(err).Warn("[SESSION] session check failed, forgetting cached user")
			r.auth.Invalidate(ctx)
			return authcache.State{}, err
		}
		return r.apply(ctx, res), nil
	})
	return v.(authcache.State), err
}

func (r *Revalidator) apply(ctx context.Context, res Result) authcache.State {
	switch {
	case res.State == Authenticated && res.User != nil:
		r.auth.Set(ctx, res.User)
		return authcache.State{Status: authcache.StatusSignedIn, User: res.User}
	case res.State == Unauthenticated:
		r.auth.Set(ctx, nil)
		return authcache.State{Status: authcache.StatusSignedOut}
	default:
		r.auth.Invalidate(ctx)
		return authcache.State{}
	}
}

/*
Trigger revalidates with the context of the read that saw the entry close to
expiry. It has the shape of refresh.BeforeExpiry.Trigger:

	hook := &refresh.BeforeExpiry{Window: time.Minute, Namespace: authcache.Namespace}
	// build the store with hook, then the auth cache and the revalidator
	hook.Trigger = session.TokenScoped(revalidator.Trigger)
*/
func (r *Revalidator) Trigger(ctx context.Context, ent types.CacheEntry) {
	if ent.Namespace != authcache.Namespace || ent.Key != authcache.Key {
		return
	}
	if _, err := r.Revalidate(ctx); err != nil {
		logrus.WithError(err).Debug("[SESSION] background revalidation failed")
	}
}

/*
TokenScoped only lets a refresh run for reads that carry a session token, so
the check always runs with the reader's own credentials. A read without a
token leaves the entry to expire and the state to fall back to unknown.
*/
func TokenScoped(trigger func(context.Context, types.CacheEntry)) func(context.Context, types.CacheEntry) {
	return func(ctx context.Context, ent types.CacheEntry) {
		if _, ok := TokenFromContext(ctx); !ok {
			logrus.WithField("entry", ent.ID()).Debug("[SESSION] skipping refresh of a read without a session token")
			return
		}
		trigger(ctx, ent)
	}
}

package hydration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cache "github.com/darkomike/bloggie-sub001"
	"github.com/darkomike/bloggie-sub001/authcache"
	"github.com/darkomike/bloggie-sub001/contextsync"
	"github.com/darkomike/bloggie-sub001/hydration"
	"github.com/darkomike/bloggie-sub001/storage"
)

func newAuth(t *testing.T) (*authcache.Cache, *cache.CacheStore) {
	t.Helper()
	store, err := cache.New(cache.Options{Store: storage.NewMemStore()})
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return authcache.New(store, time.Hour), store
}

//
// ================= MOUNT =================
//

func TestMountReadsCachedUserSynchronously(t *testing.T) {
	ctx := context.Background()
	auth, _ := newAuth(t)
	auth.Set(ctx, &authcache.User{ID: "u1"})

	var renders []authcache.State
	h := hydration.Mount(ctx, auth, hydration.WithRender(func(st authcache.State) {
		renders = append(renders, st)
	}))
	defer h.Close()

	require.NotNil(t, h.CachedUser())
	assert.Equal(t, "u1", h.CachedUser().ID)
	assert.True(t, h.IsHydrated())
	assert.Empty(t, renders, "no intermediate render")

	// session check resolves signed out
	auth.Set(ctx, nil)

	assert.Nil(t, h.CachedUser())
	assert.Equal(t, authcache.StatusSignedOut, h.State().Status)
	require.Len(t, renders, 1)
	assert.Equal(t, authcache.StatusSignedOut, renders[0].Status)
}

func TestMountWithoutCacheIsUnknown(t *testing.T) {
	auth, _ := newAuth(t)

	h := hydration.Mount(context.Background(), auth)
	defer h.Close()

	assert.True(t, h.IsHydrated())
	assert.Nil(t, h.CachedUser())
	assert.Equal(t, authcache.StatusUnknown, h.State().Status)
}

func TestMountPicksUpPersistedUser(t *testing.T) {
	ctx := context.Background()
	disk := storage.NewMemStore()

	before, err := cache.New(cache.Options{Store: disk})
	require.NoError(t, err)
	authcache.New(before, time.Hour).Set(ctx, &authcache.User{ID: "u1"})

	// a fresh context over the same storage, as after a reload
	after, err := cache.New(cache.Options{Store: disk})
	require.NoError(t, err)

	h := hydration.Mount(ctx, authcache.New(after, time.Hour))
	defer h.Close()
	require.NotNil(t, h.CachedUser())
	assert.Equal(t, "u1", h.CachedUser().ID)
}

// signOutDuringRead signs the user out from another goroutine after the cached
// state has been read, before Mount has stored it.
type signOutDuringRead struct {
	*authcache.Cache
}

func (s signOutDuringRead) Get(ctx context.Context) authcache.State {
	st := s.Cache.Get(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Cache.Set(ctx, nil)
	}()
	<-done
	return st
}

func TestWriteDuringMountIsNotLost(t *testing.T) {
	ctx := context.Background()
	auth, _ := newAuth(t)
	auth.Set(ctx, &authcache.User{ID: "u1"})

	h := hydration.Mount(ctx, signOutDuringRead{auth})
	defer h.Close()

	assert.Equal(t, authcache.StatusSignedOut, h.State().Status)
	assert.Nil(t, h.CachedUser())
	assert.Equal(t, auth.Get(ctx).Status, h.State().Status)
}

//
// ================= TEARDOWN =================
//

func TestCloseStopsUpdates(t *testing.T) {
	ctx := context.Background()
	auth, _ := newAuth(t)
	auth.Set(ctx, &authcache.User{ID: "u1"})

	renders := 0
	h := hydration.Mount(ctx, auth, hydration.WithRender(func(authcache.State) { renders++ }))
	h.Close()
	h.Close()

	auth.Set(ctx, nil)

	assert.Zero(t, renders)
	assert.Equal(t, "u1", h.CachedUser().ID)
}

//
// ================= OTHER CONTEXTS =================
//

func TestRemoteWriteUpdatesMountedView(t *testing.T) {
	ctx := context.Background()
	hub := contextsync.NewHub()
	defer hub.Close()

	authA, storeA := newAuth(t)
	authB, storeB := newAuth(t)

	syncA := contextsync.New(storeA, hub)
	syncB := contextsync.New(storeB, hub)
	require.NoError(t, syncA.Start(ctx))
	require.NoError(t, syncB.Start(ctx))
	defer syncA.Close()
	defer syncB.Close()

	h := hydration.Mount(ctx, authB)
	defer h.Close()

	authA.Set(ctx, &authcache.User{ID: "u2"})

	require.Eventually(t, func() bool {
		u := h.CachedUser()
		return u != nil && u.ID == "u2"
	}, 2*time.Second, 5*time.Millisecond)
}

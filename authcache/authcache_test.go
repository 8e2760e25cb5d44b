package authcache_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cache "github.com/darkomike/bloggie-sub001"
	"github.com/darkomike/bloggie-sub001/authcache"
	"github.com/darkomike/bloggie-sub001/debug"
	"github.com/darkomike/bloggie-sub001/storage"
	"github.com/darkomike/bloggie-sub001/types"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newAuthCache(t *testing.T, ttl time.Duration) (*authcache.Cache, *cache.CacheStore, *clock) {
	t.Helper()
	clk := &clock{now: time.UnixMilli(1_700_000_000_000)}
	store, err := cache.New(cache.Options{Store: storage.NewMemStore(), Now: clk.Now})
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return authcache.New(store, ttl), store, clk
}

//
// ================= THREE STATES =================
//

func TestUnknownBeforeAnyCheck(t *testing.T) {
	auth, _, _ := newAuthCache(t, time.Hour)

	st := auth.Get(context.Background())
	assert.Equal(t, authcache.StatusUnknown, st.Status)
	assert.False(t, st.Known())
	assert.Nil(t, st.User)
}

func TestSignedIn(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newAuthCache(t, time.Hour)

	auth.Set(ctx, &authcache.User{ID: "u1", Name: "Ada", Email: "ada@example.com"})

	st := auth.Get(ctx)
	require.Equal(t, authcache.StatusSignedIn, st.Status)
	assert.Equal(t, "u1", st.User.ID)
	assert.Equal(t, "Ada", st.User.Name)
	assert.Equal(t, "ada@example.com", st.User.Email)
}

func TestSignedOutIsAFact(t *testing.T) {
	ctx := context.Background()
	auth, store, _ := newAuthCache(t, time.Hour)

	auth.Set(ctx, nil)

	st := auth.Get(ctx)
	assert.Equal(t, authcache.StatusSignedOut, st.Status)
	assert.True(t, st.Known())

	v, ok := store.Get(ctx, authcache.Namespace, authcache.Key)
	require.True(t, ok)
	assert.Equal(t, "null", string(v))
}

func TestInvalidateReturnsToUnknown(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newAuthCache(t, time.Hour)

	auth.Set(ctx, &authcache.User{ID: "u1"})
	auth.Invalidate(ctx)
	auth.Invalidate(ctx)

	assert.Equal(t, authcache.StatusUnknown, auth.Get(ctx).Status)
}

func TestEntryExpiresWithSession(t *testing.T) {
	ctx := context.Background()
	auth, store, clk := newAuthCache(t, time.Minute)

	auth.Set(ctx, &authcache.User{ID: "u1"})
	assert.Equal(t, time.Minute, store.TTL(authcache.Namespace, authcache.Key))

	clk.Advance(time.Minute + time.Millisecond)
	assert.Equal(t, authcache.StatusUnknown, auth.Get(ctx).Status)
}

func TestUnreadableUserIsDropped(t *testing.T) {
	ctx := context.Background()
	auth, store, _ := newAuthCache(t, time.Hour)

	store.Set(ctx, authcache.Namespace, authcache.Key, json.RawMessage(`{"name":"no id"}`), 0)

	assert.Equal(t, authcache.StatusUnknown, auth.Get(ctx).Status)
	_, ok := store.Get(ctx, authcache.Namespace, authcache.Key)
	assert.False(t, ok)
}

//
// ================= SUBSCRIPTIONS =================
//

func TestOnChangeSeesEveryChange(t *testing.T) {
	ctx := context.Background()
	auth, store, clk := newAuthCache(t, time.Minute)

	var got []authcache.State
	auth.OnChange(func(st authcache.State) { got = append(got, st) })

	auth.Set(ctx, &authcache.User{ID: "u1"})
	auth.Set(ctx, nil)
	auth.Invalidate(ctx)

	store.SetEntry(ctx, types.CacheEntry{
		Namespace: authcache.Namespace,
		Key:       authcache.Key,
		Value:     json.RawMessage(`{"id":"u2"}`),
		WrittenAt: clk.Now(),
		TTL:       time.Minute,
	}, debug.OriginRemote)

	clk.Advance(2 * time.Minute)
	auth.Get(ctx)

	require.Len(t, got, 5)
	assert.Equal(t, "u1", got[0].User.ID)
	assert.Equal(t, authcache.StatusSignedOut, got[1].Status)
	assert.Equal(t, authcache.StatusUnknown, got[2].Status)
	assert.Equal(t, "u2", got[3].User.ID)
	assert.Equal(t, authcache.StatusUnknown, got[4].Status)
}

func TestOnChangeIgnoresOtherEntries(t *testing.T) {
	ctx := context.Background()
	auth, store, _ := newAuthCache(t, time.Hour)

	calls := 0
	auth.OnChange(func(authcache.State) { calls++ })

	store.Set(ctx, "posts", "p1", json.RawMessage(`1`), 0)
	store.Set(ctx, authcache.Namespace, "other", json.RawMessage(`1`), 0)

	assert.Zero(t, calls)
}

func TestOnChangeOrderPanicAndUnsubscribe(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newAuthCache(t, time.Hour)

	var order []int
	auth.OnChange(func(authcache.State) { order = append(order, 1) })
	auth.OnChange(func(authcache.State) { panic("subscriber bug") })
	unsub := auth.OnChange(func(authcache.State) { order = append(order, 3) })

	auth.Set(ctx, &authcache.User{ID: "u1"})
	unsub()
	unsub()
	auth.Set(ctx, nil)

	assert.Equal(t, []int{1, 3, 1}, order)
}

//
// ================= USER JSON =================
//

func TestUserKeepsProfileFieldsFlat(t *testing.T) {
	var u authcache.User
	require.NoError(t, json.Unmarshal([]byte(`{"id":"u1","name":"Ada","avatar":"a.png","roles":["admin"]}`), &u))

	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "a.png", u.Profile["avatar"])
	assert.Equal(t, []any{"admin"}, u.Profile["roles"])

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"u1","name":"Ada","avatar":"a.png","roles":["admin"]}`, string(data))
}

func TestUserRequiresID(t *testing.T) {
	var u authcache.User
	assert.Error(t, json.Unmarshal([]byte(`{"name":"Ada"}`), &u))
	assert.Error(t, json.Unmarshal([]byte(`[]`), &u))
}

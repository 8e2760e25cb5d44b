package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	cache "github.com/darkomike/bloggie-sub001"
	"github.com/darkomike/bloggie-sub001/authcache"
	"github.com/darkomike/bloggie-sub001/contextsync"
	"github.com/darkomike/bloggie-sub001/debug"
	"github.com/darkomike/bloggie-sub001/hydration"
	"github.com/darkomike/bloggie-sub001/storage"
	"github.com/darkomike/bloggie-sub001/types"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Walk through hydration, sync and expiry with two in-process contexts",
	RunE:  runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

// ================= METRICS =================
type demoMetrics struct {
	types.NoopMetrics

	mu      sync.Mutex
	hits    int
	misses  int
	sets    int
	expired int
}

func (m *demoMetrics) Hit(string)    { m.mu.Lock(); m.hits++; m.mu.Unlock() }
func (m *demoMetrics) Miss(string)   { m.mu.Lock(); m.misses++; m.mu.Unlock() }
func (m *demoMetrics) Set(string)    { m.mu.Lock(); m.sets++; m.mu.Unlock() }
func (m *demoMetrics) Expire(string) { m.mu.Lock(); m.expired++; m.mu.Unlock() }

func (m *demoMetrics) Print(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Printf("%s → HITS %d  MISSES %d  SETS %d  EXPIRED %d\n", name, m.hits, m.misses, m.sets, m.expired)
}

func runDemo(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	fmt.Println("\n==================== SYSTEM BOOT ====================")
	fmt.Println("CONTEXTS        : A, B (in-process hub)")
	fmt.Println("STORAGE         : memory, one per context")
	fmt.Println("SESSION MAX AGE :", cfg.SessionMaxAge)

	bus := debug.NewBus()
	panel := debug.NewPanel(bus, debug.WithMaxEntries(20))
	defer panel.Close()

	hub := contextsync.NewHub()
	defer hub.Close()

	type execContext struct {
		name    string
		store   *cache.CacheStore
		auth    *authcache.Cache
		metrics *demoMetrics
	}
	contexts := make([]execContext, 0, 2)
	for _, name := range []string{"A", "B"} {
		m := &demoMetrics{}
		store, err := cache.New(cache.Options{Store: storage.NewMemStore(), Metrics: m, Events: bus})
		if err != nil {
			return err
		}
		defer store.Close()

		s := contextsync.New(store, hub, contextsync.WithContextID(name))
		if err := s.Start(ctx); err != nil {
			return err
		}
		defer s.Close()

		contexts = append(contexts, execContext{name: name, store: store, auth: authcache.New(store, cfg.SessionMaxAge), metrics: m})
	}
	a, b := contexts[0], contexts[1]

	// ====================================================
	fmt.Println("\n==================== 1) MOUNT WITHOUT CACHE ====================")
	view := hydration.Mount(ctx, b.auth, hydration.WithRender(func(st authcache.State) {
		fmt.Printf("VIEW B → render %s %v\n", st.Status, userID(st.User))
	}))
	defer view.Close()
	fmt.Printf("VIEW B → hydrated=%v state=%s\n", view.IsHydrated(), view.State().Status)

	// ====================================================
	fmt.Println("\n==================== 2) SIGN IN ON A ====================")
	a.auth.Set(ctx, &authcache.User{ID: "u1", Name: "Ada"})
	fmt.Println("CACHE A → SET auth/currentUser = u1")
	waitFor(func() bool { return b.auth.Get(ctx).Status == authcache.StatusSignedIn })

	// ====================================================
	fmt.Println("\n==================== 3) SIGN OUT ON B ====================")
	b.auth.Set(ctx, nil)
	fmt.Println("CACHE B → SET auth/currentUser = null")
	waitFor(func() bool { return a.auth.Get(ctx).Status == authcache.StatusSignedOut })
	fmt.Println("CACHE A →", a.auth.Get(ctx).Status)

	// ====================================================
	fmt.Println("\n==================== 4) TTL EXPIRATION ====================")
	a.store.Set(ctx, "posts", "draft", []byte(`"temp-value"`), time.Second)
	fmt.Println("CACHE A → SET posts/draft (TTL = 1s)")
	time.Sleep(1100 * time.Millisecond)
	_, ok := a.store.Get(ctx, "posts", "draft")
	fmt.Println("CACHE A → GET posts/draft after TTL, present =", ok)

	// ====================================================
	fmt.Println("\n==================== 5) INVALIDATE ====================")
	a.auth.Invalidate(ctx)
	fmt.Println("CACHE A → INVALIDATE auth/currentUser")
	waitFor(func() bool { return b.auth.Get(ctx).Status == authcache.StatusUnknown })

	// ====================================================
	fmt.Println("\n==================== METRICS ====================")
	for _, c := range contexts {
		c.metrics.Print(c.name)
	}

	fmt.Println("\n==================== DEBUG PANEL ====================")
	if err := panel.Render(cmd.OutOrStdout()); err != nil {
		return err
	}

	fmt.Println("\n==================== SHUTDOWN ====================")
	return nil
}

func userID(u *authcache.User) string {
	if u == nil {
		return "-"
	}
	return u.ID
}

func waitFor(cond func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for !cond() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	cache "github.com/darkomike/bloggie-sub001"
	"github.com/darkomike/bloggie-sub001/debug"
	"github.com/darkomike/bloggie-sub001/eviction"
	"github.com/darkomike/bloggie-sub001/storage"
	"github.com/darkomike/bloggie-sub001/writepolicy"
)

// ================= BENCHMARK =================

func main() {
	ctx := context.Background()

	useSQLite := flag.Bool("sqlite", false, "persist to a temporary sqlite file instead of memory")
	withPanel := flag.Bool("panel", false, "attach a debug panel to the event bus")
	flag.Parse()

	// ---------------- Cache Config ----------------
	const (
		shards      = 8
		capacity    = 200000
		preloadKeys = 100000
		goroutines  = 200
		opsPerG     = 5000
	)

	// ---------------- Backing Store ----------------
	var store storage.Store = storage.NewMemStore()
	if *useSQLite {
		dir, err := os.MkdirTemp("", "bloggie-bench")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer os.RemoveAll(dir)

		db, err := storage.OpenSQLite(filepath.Join(dir, "cache.db"))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		store = db
	}
	defer store.Close()

	// ---------------- Cache ----------------
	bus := debug.NewBus()
	if *withPanel {
		panel := debug.NewPanel(bus)
		defer panel.Close()
	}

	c, err := cache.New(cache.Options{
		Shards:      shards,
		Capacity:    capacity,
		Eviction:    eviction.LRU,
		Store:       store,
		WritePolicy: writepolicy.WriteBack,
		WriteBuffer: 4096,
		Events:      bus,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// ---------------- Preload Cache ----------------
	for i := 0; i < preloadKeys; i++ {
		key := fmt.Sprintf("key-%d", i)
		c.Set(ctx, "posts", key, json.RawMessage(fmt.Sprintf(`{"id":%d}`, i)), time.Minute)
	}

	// ---------------- Warmup ----------------
	for i := 0; i < 10000; i++ {
		c.Get(ctx, "posts", fmt.Sprintf("key-%d", i%preloadKeys))
	}

	// ---------------- Load Test ----------------
	start := time.Now()

	wg := sync.WaitGroup{}
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < opsPerG; j++ {
				key := fmt.Sprintf("key-%d", j%preloadKeys)
				c.Get(ctx, "posts", key)
			}
		}(i)
	}

	wg.Wait()

	duration := time.Since(start)
	totalOps := goroutines * opsPerG

	fmt.Println("\n================ CACHE LOAD BENCHMARK =================")

	fmt.Println("CONFIG")
	fmt.Println("---------------------------------")
	fmt.Println("Shards       :", shards)
	fmt.Println("Capacity     :", humanize.Comma(capacity))
	fmt.Println("Preload Keys :", humanize.Comma(preloadKeys))
	fmt.Println("Goroutines   :", goroutines)
	fmt.Println("Ops/Goroutine:", humanize.Comma(opsPerG))
	fmt.Println("SQLite       :", *useSQLite)
	fmt.Println("Debug panel  :", *withPanel)
	fmt.Println("---------------------------------")

	fmt.Println("\n================ RESULTS =================")
	fmt.Printf("Total Operations : %s\n", humanize.Comma(int64(totalOps)))
	fmt.Printf("Total Time       : %v\n", duration)
	fmt.Printf("Throughput       : %s ops/sec\n", humanize.Commaf(float64(totalOps)/duration.Seconds()))
	fmt.Println("=========================================")

	c.Close()
}

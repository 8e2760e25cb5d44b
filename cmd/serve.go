package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/darkomike/bloggie-sub001/authcache"
	"github.com/darkomike/bloggie-sub001/contextsync"
	"github.com/darkomike/bloggie-sub001/debug"
	"github.com/darkomike/bloggie-sub001/metrics"
	"github.com/darkomike/bloggie-sub001/refresh"
	"github.com/darkomike/bloggie-sub001/rest"
	"github.com/darkomike/bloggie-sub001/session"
	"github.com/darkomike/bloggie-sub001/token"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the auth state, debug panel and metrics over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (overrides BLOGGIE_LISTEN_ADDR)")
	serveCmd.Flags().Bool("debug-cache", false, "enable the cache debug panel (overrides BLOGGIE_DEBUG_CACHE)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
		cfg.ListenAddr = addr
	}
	if cmd.Flags().Changed("debug-cache") {
		cfg.DebugCache, _ = cmd.Flags().GetBool("debug-cache")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------- Metrics & events ----------------
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	bus := debug.NewBus()
	panel := debug.NewPanel(bus, debug.WithEnabled(cfg.DebugCache), debug.WithMaxEntries(cfg.DebugMaxEntries))
	defer panel.Close()

	// ---------------- Cache ----------------
	store := openStorage(cfg, m)
	defer store.Close()

	hook := &refresh.BeforeExpiry{Window: cfg.RefreshWindow, Namespace: authcache.Namespace}
	cacheStore, err := newContextCache(cfg, store, m, bus, hook)
	if err != nil {
		return err
	}
	defer cacheStore.Close()

	auth := authcache.New(cacheStore, cfg.SessionMaxAge)

	// ---------------- Session ----------------
	if cfg.TokenSecret == "" {
		logrus.Warn("[SESSION] BLOGGIE_TOKEN_SECRET is empty, every token will be rejected")
	}
	revalidator := session.NewRevalidator(session.TokenChecker{Verifier: token.NewVerifier(tokenConfig(cfg))}, auth)

	hook.Trigger = session.TokenScoped(revalidator.Trigger)

	// ---------------- Cross-context sync ----------------
	var transport contextsync.Transport
	if cfg.ValkeyAddr != "" {
		vt, err := contextsync.DialValkey(ctx, cfg.ValkeyAddr, cfg.ValkeyPassword, cfg.SyncChannel)
		if err != nil {
			return err
		}
		defer vt.Close()
		transport = vt
	} else {
		logrus.Info("[SYNC] no valkey address, syncing in-process contexts only")
		hub := contextsync.NewHub()
		defer hub.Close()
		transport = hub
	}

	syncer := contextsync.New(cacheStore, transport, contextsync.WithKeyFilter(func(namespace, _ string) bool {
		return namespace == authcache.Namespace
	}))
	if err := syncer.Start(ctx); err != nil {
		return err
	}
	defer syncer.Close()

	// ---------------- HTTP ----------------
	app := fiber.New(fiber.Config{
		AppName:               "bloggie",
		DisableStartupMessage: true,
	})
	app.Use(requestid.New())
	app.Use(recover.New())

	rest.InitRestAuth(app.Group("/api"), auth, revalidator)
	rest.InitRestDebug(app, panel, bus)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	go func() {
		<-ctx.Done()
		logrus.Info("[REST] Reception of termination signal, shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			logrus.WithError(err).Error("[REST] shutdown failed")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"addr":       cfg.ListenAddr,
		"context_id": syncer.ID(),
		"debug":      cfg.DebugCache,
	}).Info("[REST] listening")
	return app.Listen(cfg.ListenAddr)
}

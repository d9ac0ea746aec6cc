package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront/internal/auth"
	"storefront/internal/backend"
	"storefront/internal/broadcast"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/gate"
	"storefront/internal/platform/config"
	"storefront/internal/platform/health"
	"storefront/internal/platform/logger"
	"storefront/internal/platform/metrics"
	"storefront/internal/platform/tracer"
	"storefront/internal/session"
	httptransport "storefront/internal/transport/http"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/circuit"
	"storefront/pkg/platform/middleware/request"
)

const shutdownTimeout = 10 * time.Second

// main wires one tab of the storefront agent and keeps the lifecycle small.
// Session, cart and checkout logic live in the internal packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "storefront-agent:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	tab := id.NewTabID()
	if cfg.TabID != "" {
		if tab, err = id.ParseTabID(cfg.TabID); err != nil {
			return fmt.Errorf("STOREFRONT_TAB_ID: %w", err)
		}
	}

	log := logger.ForTab(logger.New(), cfg.Origin, tab.String())
	log.Info("initializing storefront agent",
		"addr", cfg.Addr,
		"storage", cfg.StorageDriver,
		"broadcast", cfg.BroadcastDriver,
		"backend", cfg.BackendURL,
	)

	reg := metrics.New()
	reg.Info.WithLabelValues(cfg.Origin, cfg.StorageDriver, cfg.BroadcastDriver).Set(1)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := health.New(cfg.Environment, cfg.Origin, tab.String())
	deps := &drivers{cfg: cfg, log: log, reg: reg.Registerer(), checks: checks}
	defer deps.close()

	store, err := deps.storage(ctx)
	if err != nil {
		return err
	}
	channel, err := deps.channel(ctx)
	if err != nil {
		return err
	}

	bus := broadcast.New(tab, channel,
		broadcast.WithLogger(log),
		broadcast.WithMetrics(broadcast.NewMetrics(reg.Registerer())),
	)
	client := backend.New(cfg.BackendURL,
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithTracer(tracer.NewOTel()),
		backend.WithBreaker(circuit.New("backend")),
		backend.WithLogger(log),
		backend.WithMetrics(backend.NewMetrics(reg.Registerer())),
	)
	sessions := session.NewStore(store, bus,
		session.WithLogger(log),
		session.WithMetrics(session.NewMetrics(reg.Registerer())),
	)
	defer sessions.Close()
	carts := cart.New(client, sessions, bus,
		cart.WithLogger(log),
		cart.WithMetrics(cart.NewMetrics(reg.Registerer())),
		cart.WithRequestTimeout(cfg.BackendTimeout),
	)
	defer carts.Close()
	authn := auth.New(client, sessions,
		auth.WithLogger(log),
		auth.WithMetrics(auth.NewMetrics(reg.Registerer())),
	)
	orders := checkout.New(client, carts, sessions, checkout.WithLogger(log))

	handler := httptransport.NewHandler(httptransport.Services{
		Sessions: sessions,
		Auth:     authn,
		Cart:     carts,
		Checkout: orders,
		Gate:     gate.New(sessions),
		Events:   bus,
	}, log)
	router := httptransport.NewRouter(handler, log, request.NewMetrics(reg.Registerer()))
	checks.Register(router)
	router.Handle("/metrics", reg.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bus.Run(gctx) })
	g.Go(func() error {
		if err := sessions.Initialize(gctx); err != nil {
			return fmt.Errorf("restore session: %w", err)
		}
		carts.Start()
		return nil
	})
	for _, task := range deps.background {
		g.Go(func() error {
			task(gctx)
			return nil
		})
	}
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("agent stopped with error", "error", err)
		return err
	}
	log.Info("agent stopped")
	return nil
}

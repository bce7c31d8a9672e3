package main

// GET    /api/cart              - priced cart for the X-Session-Id session
// POST   /api/cart              - add a product (merges duplicates)
// PUT    /api/cart/{lineItemId} - set quantity, <= 0 removes
// DELETE /api/cart/{lineItemId} - remove a line item
// DELETE /api/cart              - empty the cart
// GET    /api/products[/{id}]   - catalog
// POST   /api/checkout          - turn the cart into an order
// GET    /api/orders/{id}       - order lookup
// /api/auth/*                   - accounts
// GET    /healthz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storefront/config"
	"storefront/handler"
	"storefront/logger"
	"storefront/middleware"
	"storefront/model"
	"storefront/service"
	"storefront/session"
	"storefront/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "storefront:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("STOREFRONT_CONFIG")
	loader, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg := loader.Config()

	// --- Logger ---
	log, level, err := logger.New(logger.Options{Mode: cfg.LogMode, Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if configPath != "" {
		loader.Watch(func(c config.Config) {
			if lvl, err := logger.ParseLevel(c.LogLevel); err == nil && c.LogLevel != "" {
				level.SetLevel(lvl)
			}
			log.Info("config reloaded", zap.String("log_level", level.String()))
		}, func(err error) {
			log.Warn("config reload rejected", zap.Error(err))
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Store ---
	products, err := store.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg, products)
	if err != nil {
		return err
	}
	defer st.Close()
	log.Info("store ready", zap.String("driver", cfg.StoreDriver), zap.Int("products", len(products)))

	// --- Services ---
	carts := service.NewCartService(st, log.Named("cart"))
	sweeper := service.NewSweeper(st, cfg.CartSessionTTL, log.Named("sweeper"))
	if cfg.CartSessionTTL > 0 {
		if err := sweeper.Start(cfg.CartSweepSchedule); err != nil {
			return err
		}
		log.Info("idle cart sweeper started",
			zap.Duration("ttl", cfg.CartSessionTTL),
			zap.String("schedule", cfg.CartSweepSchedule))
	}

	secret := []byte(cfg.AuthCookieSecret)
	if len(secret) == 0 {
		log.Warn("AUTH_COOKIE_SECRET not set, login sessions will not survive a restart")
		secret = securecookie.GenerateRandomKey(32)
	}

	// --- Handlers ---
	h := handler.NewHandler(handler.Deps{
		Carts:         carts,
		Catalog:       service.NewCatalogService(st),
		Checkout:      service.NewCheckoutService(st, log.Named("checkout")),
		Accounts:      service.NewAccountService(st, log.Named("account"), 0),
		Resolver:      session.NewResolver(),
		SessionHeader: cfg.SessionHeader,
		Cookies:       handler.NewCookieStore(cfg.AuthCookieSecure, secret),
		Log:           log,
	})

	// --- Router ---
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Logger(log, cfg.SessionHeader), middleware.Recover(log))
	h.RegisterRoutes(r)

	// --- Server ---
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		<-sweeper.Stop().Done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown", zap.Error(err))
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("closed completed")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, products []model.Product) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pg, err := store.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		if err := pg.SeedProducts(ctx, products); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	default:
		return store.NewMemoryStore(products), nil
	}
}

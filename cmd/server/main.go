package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	authHandler "vras/internal/auth/handler"
	authMetrics "vras/internal/auth/metrics"
	authMiddleware "vras/internal/auth/middleware"
	authService "vras/internal/auth/service"
	"vras/internal/auth/store/revocation"
	userStore "vras/internal/auth/store/user"
	catalogHandler "vras/internal/catalog/handler"
	catalogService "vras/internal/catalog/service"
	catalogStore "vras/internal/catalog/store"
	contactHandler "vras/internal/contact/handler"
	"vras/internal/mail"
	"vras/internal/platform/config"
	"vras/internal/platform/database"
	"vras/internal/platform/health"
	"vras/internal/platform/logger"
	platformRedis "vras/internal/platform/redis"
	tenantHandler "vras/internal/tenant/handler"
	tenantMetrics "vras/internal/tenant/metrics"
	tenantService "vras/internal/tenant/service"
	tenantStore "vras/internal/tenant/store"
	trainingHandler "vras/internal/training/handler"
	trainingService "vras/internal/training/service"
	trainingStore "vras/internal/training/store"
	"vras/internal/transport/http/router"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing vras server", "addr", cfg.Addr)

	pool, err := database.New(database.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := platformRedis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}

	// Stores. Without DATABASE_URL everything runs on the in-memory stores,
	// which is only useful for local development.
	var (
		users    authService.UserStore
		tenants  tenantService.TenantStore
		catalog  catalogService.CatalogStore
		training trainingService.TrainingStore
	)
	if pool != nil {
		users = userStore.NewPostgres(pool.DB())
		tenants = tenantStore.NewPostgres(pool.DB())
		catalog = catalogStore.NewPostgres(pool.DB())
		training = trainingStore.NewPostgres(pool.DB())
	} else {
		log.Warn("no DATABASE_URL set, using in-memory stores")
		users = userStore.New()
		tenants = tenantStore.New()
		catalog = catalogStore.New()
		training = trainingStore.New()
	}

	var revocationList authService.RevocationList
	var sweeper *revocation.InMemoryList
	if redisClient != nil {
		revocationList = revocation.NewRedis(redisClient.Client)
	} else {
		log.Warn("no REDIS_URL set, revoked tokens will not survive restarts")
		sweeper = revocation.NewInMemory()
		revocationList = sweeper
	}

	var mailer mail.Mailer
	if cfg.SMTP.Host != "" {
		mailer = mail.NewSMTP(mail.SMTPConfig(cfg.SMTP))
	} else {
		mailer = mail.NewLog(log)
	}

	authM := authMetrics.New()
	tenantM := tenantMetrics.New()

	authSvc := authService.NewService(users, tenants, revocationList,
		authService.WithLogger(log),
		authService.WithMetrics(authM),
		authService.WithMailer(mailer),
		authService.WithTokenTTL(cfg.TokenTTL),
		authService.WithBcryptCost(cfg.BcryptCost),
		authService.WithLoginRateLimit(float64(cfg.LoginRatePerMinute), cfg.LoginBurst),
	)
	tenantSvc := tenantService.NewService(tenants, users,
		tenantService.WithLogger(log),
		tenantService.WithMetrics(tenantM),
		tenantService.WithMailer(mailer),
		tenantService.WithBcryptCost(cfg.BcryptCost),
	)
	catalogSvc := catalogService.NewService(catalog, catalogService.WithLogger(log))
	trainingSvc := trainingService.NewService(training, trainingService.WithLogger(log))

	authenticator := authMiddleware.NewAuthenticator(users, revocationList,
		authMiddleware.WithLogger(log),
		authMiddleware.WithMetrics(authM),
		authMiddleware.WithCookie(cfg.CookieName, cfg.TokenTTL),
	)

	mux := router.New(router.Deps{
		Logger:        log,
		Authenticator: authenticator,
		Auth:          authHandler.New(authSvc, log, cfg.CookieName),
		Tenant:        tenantHandler.New(tenantSvc, log),
		Catalog:       catalogHandler.New(catalogSvc, log),
		Training:      trainingHandler.New(trainingSvc, log),
		Contact:       contactHandler.New(mailer, cfg.ContactInbox, log),
		Health:        health.New(dbChecker(pool), redisChecker(redisClient)),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if sweeper != nil {
		g.Go(func() error {
			sweeper.Sweep(ctx, time.Hour)
			return nil
		})
	}
	if redisClient != nil {
		g.Go(func() error {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return redisClient.Close()
				case <-ticker.C:
					redisClient.RecordPoolStats()
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// Typed nils must not reach the health handler, it only skips untyped ones.

func dbChecker(p *database.Pool) health.Checker {
	if p == nil {
		return nil
	}
	return p
}

func redisChecker(c *platformRedis.Client) health.Checker {
	if c == nil {
		return nil
	}
	return c
}

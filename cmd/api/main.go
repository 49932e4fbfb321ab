// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "go.uber.org/automaxprocs"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/carterperez-dev/reseller-console/internal/admin"
	"github.com/carterperez-dev/reseller-console/internal/analytics"
	"github.com/carterperez-dev/reseller-console/internal/authz"
	"github.com/carterperez-dev/reseller-console/internal/config"
	"github.com/carterperez-dev/reseller-console/internal/console"
	"github.com/carterperez-dev/reseller-console/internal/core"
	"github.com/carterperez-dev/reseller-console/internal/coupon"
	"github.com/carterperez-dev/reseller-console/internal/health"
	"github.com/carterperez-dev/reseller-console/internal/housekeeping"
	"github.com/carterperez-dev/reseller-console/internal/identity"
	"github.com/carterperez-dev/reseller-console/internal/member"
	"github.com/carterperez-dev/reseller-console/internal/middleware"
	"github.com/carterperez-dev/reseller-console/internal/offer"
	"github.com/carterperez-dev/reseller-console/internal/order"
	"github.com/carterperez-dev/reseller-console/internal/plan"
	"github.com/carterperez-dev/reseller-console/internal/server"
	"github.com/carterperez-dev/reseller-console/internal/store"
	"github.com/carterperez-dev/reseller-console/internal/storefront"
)

const (
	drainDelay = 5 * time.Second

	identityPasswordEnv = "CONSOLE_IDENTITY_PASSWORD"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	generateKeys := flag.Bool("generate-keys", false,
		"write a new ES256 key pair to the configured paths and exit")
	createIdentity := flag.String("create-identity", "",
		"create an operator identity with this email and exit; password is read from "+
			identityPasswordEnv)
	flag.Parse()

	var err error
	switch {
	case *generateKeys:
		err = runGenerateKeys(*configPath)
	case *createIdentity != "":
		err = runCreateIdentity(*configPath, *createIdentity)
	default:
		err = run(*configPath)
	}

	if err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, closeLog := setupLogger(cfg.Log)
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := identity.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.KeyID(),
	)

	notifier := identity.NewNotifier()

	roleRecords := authz.NewRecordStore(db.DB)
	registry := authz.NewRegistry(
		authz.NewResolver(cfg.Authz.AdminIDs, roleRecords, logger),
		logger,
	)
	registryDone := make(chan struct{})
	go func() {
		defer close(registryDone)
		registry.Run(ctx, notifier.Transitions())
	}()

	identitySvc := identity.NewService(identity.ServiceConfig{
		Identities: identity.NewIdentityRepository(db.DB),
		Tokens:     identity.NewTokenRepository(db.DB),
		JWT:        jwtManager,
		Redis:      redis.Client,
		Notifier:   notifier,
		Logger:     logger,
	})

	repos := bindRepositories(db.DB)
	repos.Tx = store.Transactional(db.DB, bindRepositories)
	backing := store.New(repos, redis.Client, logger)

	loop := console.NewLoop(console.Config{
		Store:    backing,
		Interval: cfg.Console.RefreshInterval,
		Logger:   logger,
	})
	if err := loop.Mount(ctx); err != nil {
		return fmt.Errorf("mount console loop: %w", err)
	}
	logger.Info("console loop mounted",
		"interval", cfg.Console.RefreshInterval,
	)

	hub := console.NewHub(loop, logger)
	go hub.Run(ctx)

	var scheduler *housekeeping.Scheduler
	if cfg.Housekeeping.Enabled {
		scheduler, err = startHousekeeping(cfg.Housekeeping, redis, backing, identitySvc, logger)
		if err != nil {
			return err
		}
	}

	healthHandler := health.NewHandler().
		Register("postgres", db).
		Register("redis", redis).
		Register("console", health.CheckFunc(func(context.Context) error {
			if !loop.Mounted() {
				return errConsoleUnmounted
			}
			return nil
		}))

	identityHandler := identity.NewHandler(identitySvc, registry)
	storefrontHandler := storefront.NewHandler(backing)
	consoleHandler := console.NewHandler(console.HandlerConfig{
		Loop:           loop,
		Hub:            hub,
		ExportPrefix:   cfg.Console.ExportPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
	})
	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:     db.Stats,
		RedisStats:  redis.PoolStats,
		DBPing:      db.Ping,
		RedisPing:   redis.Ping,
		SyncVersion: backing.Version,
		Console:     loop,
		Hub:         hub,
		Records:     roleRecords,
		Principals:  registry,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			BypassFunc: isProbe,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.JWKSHandler())

	tiered := middleware.TieredRateLimiter(redis.Client, middleware.DefaultTiers)
	verify := middleware.Authenticator(identitySvc, registry)
	authenticator := func(next http.Handler) http.Handler {
		return verify(tiered(next))
	}

	router.Route("/v1", func(r chi.Router) {
		identityHandler.RegisterRoutes(r, authenticator)
		storefrontHandler.RegisterRoutes(r, authenticator)
		consoleHandler.RegisterRoutes(r, authenticator)
		adminHandler.RegisterRoutes(r,
			authenticator,
			middleware.RequireAdmin,
			middleware.RequireSuperAdmin,
		)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	loop.Unmount()

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}

	notifier.Close()
	<-registryDone

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

var errConsoleUnmounted = errors.New("console loop not mounted")

// isProbe keeps orchestrator probes out of the per-address rate limit.
func isProbe(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/livez", "/readyz":
		return true
	}
	return false
}

func openDatabase(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (*core.Database, error) {
	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("schema migrated")
	}

	return db, nil
}

func startHousekeeping(
	cfg config.HousekeepingConfig,
	redis *core.Redis,
	coupons housekeeping.CouponExpirer,
	tokens housekeeping.TokenPurger,
	logger *slog.Logger,
) (*housekeeping.Scheduler, error) {
	scheduler := housekeeping.New(housekeeping.Config{
		Locker:  redis.Locker(),
		LockTTL: cfg.LockTTL,
		Logger:  logger,
	})

	jobs := []housekeeping.Job{
		housekeeping.CouponExpiryJob(cfg.CouponExpirySchedule, coupons),
		housekeeping.TokenPurgeJob(cfg.TokenPurgeSchedule, tokens),
	}
	for _, job := range jobs {
		if err := scheduler.Add(job); err != nil {
			return nil, err
		}
	}

	scheduler.Start()
	return scheduler, nil
}

func runGenerateKeys(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := identity.GenerateKeyPair(
		cfg.JWT.PrivateKeyPath,
		cfg.JWT.PublicKeyPath,
	); err != nil {
		return err
	}

	slog.Info("key pair written",
		"private_key", cfg.JWT.PrivateKeyPath,
		"public_key", cfg.JWT.PublicKeyPath,
	)
	return nil
}

func runCreateIdentity(configPath, email string) error {
	password := os.Getenv(identityPasswordEnv)
	if len(password) < 8 {
		return fmt.Errorf("%s must hold a password of at least 8 characters",
			identityPasswordEnv)
	}

	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // process exits next

	svc := identity.NewService(identity.ServiceConfig{
		Identities: identity.NewIdentityRepository(db.DB),
		Tokens:     identity.NewTokenRepository(db.DB),
	})

	ident, err := svc.CreateIdentity(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrEmailExists) {
			return fmt.Errorf("identity %s already exists", email)
		}
		return err
	}

	slog.Info("identity created",
		"identity_id", ident.ID,
		"email", ident.Email,
	)
	return nil
}

// setupLogger writes to stdout and, when a log file is configured, tees
// into a size-rotated file.
func setupLogger(cfg config.LogConfig) (*slog.Logger, func()) {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var out io.Writer = os.Stdout
	closeFn := func() {}

	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		out = io.MultiWriter(os.Stdout, rotating)
		closeFn = func() { _ = rotating.Close() }
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), closeFn
}

func bindRepositories(db core.DBTX) store.Repositories {
	return store.Repositories{
		Members:   member.NewRepository(db),
		Orders:    order.NewRepository(db),
		Offers:    offer.NewRepository(db),
		Coupons:   coupon.NewRepository(db),
		Plans:     plan.NewRepository(db),
		Analytics: analytics.NewRepository(db),
	}
}

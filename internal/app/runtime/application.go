// Package runtime assembles the configured application and manages the HTTP
// server lifecycle.
package runtime

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	app "github.com/egov-platform/citizen-services/internal/app"
	"github.com/egov-platform/citizen-services/internal/app/auth"
	"github.com/egov-platform/citizen-services/internal/app/httpapi"
	"github.com/egov-platform/citizen-services/internal/app/metrics"
	"github.com/egov-platform/citizen-services/internal/app/services/requests"
	"github.com/egov-platform/citizen-services/internal/app/storage/postgres"
	"github.com/egov-platform/citizen-services/internal/app/system"
	"github.com/egov-platform/citizen-services/internal/config"
	"github.com/egov-platform/citizen-services/internal/middleware"
	"github.com/egov-platform/citizen-services/internal/platform/database"
	"github.com/egov-platform/citizen-services/internal/platform/migrations"
	"github.com/egov-platform/citizen-services/pkg/logger"
)

// publicPaths bypass bearer authentication.
var publicPaths = []string{
	"/users/signup",
	"/users/login",
	"/users/token/refresh",
	"/health",
	"/metrics",
}

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	httpServer *http.Server
	manager    *system.Manager
	db         *sqlx.DB
	redis      *redis.Client
}

// NewApplication constructs a fully wired application from the environment.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	stores, db, err := buildStores(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	var redisClient *redis.Client
	var revocations auth.RevocationStore = auth.NewMemoryRevocations()
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		revocations = auth.NewRedisRevocations(redisClient, cfg.Auth.RefreshTTL)
	}

	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, revocations)

	classifier, err := loadClassifier(cfg, log)
	if err != nil {
		return nil, err
	}

	opts := app.Options{
		InstrumentMode: cfg.Instrument.Mode,
		Classifier:     classifier,
		SweepSchedule:  cfg.Fines.SweepSchedule,
		Logger:         log,
	}
	if db != nil {
		opts.DB = db.DB
	}
	application := app.New(stores, tokens, opts)

	manager := system.NewManager()
	manager.Register(application.Sweeper)

	handler := httpapi.NewHandler(application, cfg.Audit.LogFile)

	authMW := middleware.NewAuthMiddleware(tokens, log, publicPaths)
	rateMW := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	corsMW := middleware.NewCORSMiddleware(splitOrigins(cfg.CORS.AllowedOrigins))

	chain := metrics.InstrumentHandler(
		corsMW.Handler(
			authMW.Handler(
				rateMW.Handler(handler))))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Application{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		manager:    manager,
		db:         db,
		redis:      redisClient,
	}, nil
}

// Run starts background services and the HTTP server, blocking until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.manager.StartAll(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server, background services and
// connections.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	a.manager.StopAll(shutdownCtx)

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis connection")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return nil
}

// buildStores opens Postgres when a DSN is configured, applying pending
// migrations; otherwise every store falls back to the shared in-memory
// implementation.
func buildStores(cfg *config.Config, log *logger.Logger) (app.Stores, *sqlx.DB, error) {
	if cfg.Database.DSN == "" {
		log.Warn("DATABASE_URL not set, using in-memory store")
		return app.Stores{}, nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Open(ctx, database.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return app.Stores{}, nil, err
	}

	if err := migrations.Apply(db.DB); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("apply migrations: %w", err)
	}

	store := postgres.New(db)
	return app.Stores{
		Users:        store,
		Catalog:      store,
		Requests:     store,
		Appointments: store,
		Instruments:  store,
		Fines:        store,
		Documents:    store,
	}, db, nil
}

func loadClassifier(cfg *config.Config, log *logger.Logger) (*requests.Classifier, error) {
	if cfg.Classification.RulesPath == "" {
		return requests.DefaultClassifier(), nil
	}
	classifier, err := requests.LoadClassifier(cfg.Classification.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load classification rules: %w", err)
	}
	log.WithField("path", cfg.Classification.RulesPath).Info("loaded classification rules")
	return classifier, nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"scopedrest/docs/swagger"
	"scopedrest/internal/api"
	"scopedrest/internal/api/controllers"
	"scopedrest/internal/api/registry"
	"scopedrest/internal/audit"
	"scopedrest/internal/config"
	"scopedrest/internal/db"
	"scopedrest/internal/guard"
	"scopedrest/internal/models"
	"scopedrest/internal/pagination"
	"scopedrest/internal/policy"
	"scopedrest/internal/query"
	"scopedrest/internal/ratelimit"
	"scopedrest/internal/services"
	"scopedrest/internal/tasks"
	"scopedrest/internal/utils/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logger.New("scopedrest")
	if err := run(log); err != nil {
		_ = log.Error("exiting", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	// check if .env file exists
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		log.Info("No .env file found, skipping environment variable loading")
	} else {
		log.Info("Loading environment variables from .env file")
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("failed to load environment variables: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	if err := db.Connect(cfg); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			_ = log.Error("Failed to close database connection", err)
		}
	}()
	gdb := db.GetDB()

	if err := models.SeedAPIKeyFromEnv(gdb, cfg); err != nil {
		log.Warn("Warning: Failed to seed api key: %v", err)
	}
	if err := models.SeedDemoFromEnv(gdb, cfg); err != nil {
		log.Warn("Warning: Failed to seed demo data: %v", err)
	}

	reg, err := registry.Catalog(gdb.NamingStrategy)
	if err != nil {
		return fmt.Errorf("failed to register resources: %w", err)
	}
	log.Info("Serving resources %v", reg.Names())

	enforcer, err := policy.NewEnforcer(policy.EnforcerConfig{
		PolicyPath:     cfg.Policy.File,
		ReloadInterval: cfg.Policy.ReloadInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to load policy: %w", err)
	}
	defer enforcer.Stop()

	taskClient := tasks.NewTaskClient(cfg.Redis)
	defer func() {
		if err := taskClient.Close(); err != nil {
			_ = log.Error("Failed to close task client", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := audit.NewGormStore(gdb)
	var dispatcher *audit.AsynqDispatcher
	if cfg.Audit.Async {
		dispatcher = audit.NewAsynqDispatcher(taskClient.GetClient(), audit.DispatcherConfig{
			Queue:    tasks.QueueCritical,
			MaxRetry: tasks.RetryDefault,
			Failures: cfg.Audit.BreakerFailures,
			Timeout:  cfg.Audit.BreakerTimeout,
		})
	}
	recorder := newRecorder(dispatcher, store)

	archiver, err := newArchiver(ctx, cfg, gdb)
	if err != nil {
		return err
	}
	archiveSpec := ""
	if archiver != nil {
		archiveSpec = cfg.Audit.ArchiveCron
	}

	taskServer := tasks.NewServer(cfg.Redis, cfg.Worker.Concurrency, tasks.NewTaskHandler(audit.NewHandler(store), archiver), log)
	taskScheduler := tasks.NewScheduler(cfg.Redis, archiveSpec, log)

	g := guard.New()
	deps := api.Deps{
		Resources: controllers.Deps{
			Registry:   reg,
			Authorizer: policy.NewAuthorizer(enforcer, policy.NewGormRuleStore(gdb), g),
			Compiler:   query.NewCompiler(cfg.API.DefaultPerPage, cfg.API.MaxPerPage),
			Engine:     pagination.NewEngine(gdb),
			Guard:      g,
			PublicURL:  cfg.Server.PublicURL,
		},
		Tokens: services.NewIdentityService(gdb),
		Audit:  recorder,
		Health: map[string]api.HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := gdb.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": taskClient.Ping,
		},
	}
	if dispatcher != nil {
		deps.Health["audit_queue"] = func(context.Context) error {
			if dispatcher.State() == gobreaker.StateOpen {
				return errors.New("circuit breaker open")
			}
			return nil
		}
	}
	if cfg.API.RateLimitPerMinute > 0 {
		deps.KeyLimiter = ratelimit.NewLimiter(taskClient.Redis(), ratelimit.Config{
			Name:      "api_key",
			RateLimit: ratelimit.RateLimit{Window: time.Minute, Max: cfg.API.RateLimitPerMinute},
		})
	}

	apiServer, err := api.NewServer(cfg, deps)
	if err != nil {
		return fmt.Errorf("failed to create api server: %w", err)
	}

	// Swagger documentation
	swagger.SwaggerInfo.Title = "scopedrest API Documentation"
	swagger.SwaggerInfo.Description = "Read-only access to registered resources, limited to the caller's scope"
	swagger.SwaggerInfo.Version = "1.0"
	swagger.SwaggerInfo.BasePath = "/api/v1"
	swagger.SwaggerInfo.Host = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return taskServer.Start(gctx)
	})
	group.Go(func() error {
		return taskScheduler.Start()
	})
	group.Go(func() error {
		log.Success("API server listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
		return apiServer.Start()
	})
	group.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := apiServer.Shutdown(shutdownCtx)
		if werr := recorder.Wait(shutdownCtx); werr != nil {
			log.Warn("Audit entries still pending at shutdown: %v", werr)
		}
		taskScheduler.Stop()
		taskServer.Shutdown()
		return err
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("Servers shutdown gracefully")
	return nil
}

// newRecorder keeps a nil dispatcher from becoming a non-nil interface.
func newRecorder(dispatcher *audit.AsynqDispatcher, store audit.Store) *audit.Recorder {
	if dispatcher == nil {
		return audit.NewRecorder(nil, store)
	}
	return audit.NewRecorder(dispatcher, store)
}

// newArchiver returns nil when no bucket is configured.
func newArchiver(ctx context.Context, cfg *config.Config, gdb *gorm.DB) (*tasks.Archiver, error) {
	if !cfg.S3.Enabled() {
		return nil, nil
	}
	s3Service, err := services.NewS3Service(ctx, cfg.S3)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 service: %w", err)
	}
	return tasks.NewArchiver(gdb, s3Service, cfg.S3.Prefix, cfg.Audit.ArchiveBatch), nil
}

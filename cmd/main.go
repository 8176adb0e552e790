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

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"regportal/cmd/buildCFG"
	"regportal/internal/api/api"
	"regportal/internal/auth"
	exportReader "regportal/internal/consumerWorker"
	"regportal/internal/model"
	"regportal/internal/rabbit"
	"regportal/internal/registration"
	"regportal/internal/repo"
	"regportal/internal/service"
)

// queue is what the HTTP side publishes to and the export worker reads from.
type queue interface {
	service.Publisher
	exportReader.Consumer
}

func main() {
	zlog.Init()
	log := zlog.Logger

	cfg := config.New()
	if err := cfg.Load("config.yaml", "", "PORTAL"); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	serverCfg := buildCFG.BuildServerConfig(cfg, &log)
	authCfg, err := buildCFG.BuildAuthConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build auth config")
	}
	migrationsCfg := buildCFG.BuildMigrationsConfig(cfg, &log)
	appCfg := buildCFG.BuildAppConfig(cfg)

	var (
		repository repo.Repository
		jobs       queue
		closers    []func()
	)

	switch serverCfg.Driver {
	case buildCFG.DriverMemory:
		log.Warn().Msg("running with in-memory storage and queue, data is lost on exit")
		repository = repo.NewMemoryRepository()
		jobs = rabbit.NewLocal(64)
	default:
		masterDSN, slaveDSNs, poolOptions, err := buildCFG.BuildDBConfig(cfg, &log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build DB config")
		}
		db, err := dbpg.New(masterDSN, slaveDSNs, poolOptions)
		if err != nil {
			log.Fatal().Msgf("failed to connect to DB: %v", err)
		}
		closers = append(closers, func() { _ = db.Master.Close() })

		repository, err = repo.NewRepository(db, &log)
		if err != nil {
			log.Fatal().Msgf("failed to initialize repository: %v", err)
		}
		log.Info().Msg("Database connected successfully")

		if err := repository.MigrateUp(migrationsCfg.Path); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Str("path", migrationsCfg.Path).Msg("Migrations applied successfully")

		rabbitCfg, err := buildCFG.BuildRabbitConfig(cfg, &log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load RabbitMQ config")
		}
		rmq, err := rabbit.NewRabbit(rabbitCfg.Url, rabbitCfg.Exchange, rabbitCfg.Queue)
		if err != nil {
			log.Fatal().Msgf("Failed to connect to RabbitMQ: %v", err)
		}
		closers = append(closers, rmq.Close)
		jobs = rmq
	}

	if err := seed(context.Background(), repository, buildCFG.BuildSeedConfig(cfg), &log); err != nil {
		log.Fatal().Err(err).Msg("failed to seed defaults")
	}

	tokens := auth.NewTokenManager(authCfg.JWTSecret, authCfg.TokenTTL)
	allocator := registration.NewAllocator(repository, appCfg.MaxAttempts, &log)
	serviceInstance := service.NewService(service.Options{
		Repo:         repository,
		Intake:       registration.NewIntakeService(repository, allocator, &log),
		Admission:    registration.NewAdmissionService(repository, &log),
		Auth:         auth.NewAuthenticator(repository, tokens),
		Exports:      jobs,
		ExportsDir:   appCfg.ExportsDir,
		CookieSecure: authCfg.CookieSecure,
		Log:          &log,
	})

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	worker := exportReader.NewReader(jobs, repository, appCfg.ExportsDir, &log)
	worker.Start(workerCtx)

	app := api.NewRouters(&api.Routers{
		Service:      serviceInstance,
		Tokens:       tokens,
		Mode:         serverCfg.Mode,
		AllowOrigins: serverCfg.CORSOrigins,
	})
	srv := &http.Server{
		Addr:              ":" + serverCfg.Port,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	cancelWorkers()
	worker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Msgf("Error shutting down server: %v", err)
	}

	if migrationsCfg.RollbackOnShutdown {
		log.Info().Msg("Rolling back migrations...")
		if err := repository.MigrateDown(migrationsCfg.Path); err != nil {
			log.Error().Err(err).Msg("failed to rollback migrations")
		} else {
			log.Info().Msg("Migrations rolled back successfully")
		}
	}

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	log.Info().Msg("Shutdown complete")
}

// seed creates the bootstrap admin and default settings. Both are idempotent.
func seed(ctx context.Context, repository repo.Repository, sc buildCFG.SeedConfig, log *zerolog.Logger) error {
	if sc.AdminPassword == buildCFG.DefaultAdminPassword {
		log.Warn().Str("username", sc.AdminUsername).Msg("bootstrap admin uses the default password, change seed.admin_password")
	}
	hash, err := auth.HashPassword(sc.AdminPassword)
	if err != nil {
		return err
	}
	if err := repository.EnsureAdmin(ctx, sc.AdminUsername, hash); err != nil {
		return fmt.Errorf("failed to ensure admin: %w", err)
	}
	if err := repository.SeedSettings(ctx, model.DefaultSettings()); err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}
	log.Info().Str("admin", sc.AdminUsername).Msg("defaults seeded")
	return nil
}

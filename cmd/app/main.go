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

	"dispatch/cmd"
	"dispatch/internal/adapters/out/postgres"

	"github.com/labstack/gommon/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatalf("dispatch: %v", err)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "dispatch",
		Short:         "Delivery dispatch service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.RegisterFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the order consumer and the scheduled jobs",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := cmd.LoadConfig(c.Flags())
			if err != nil {
				return err
			}
			return serve(c.Context(), cfg)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := cmd.LoadConfig(c.Flags())
			if err != nil {
				return err
			}
			logger := cmd.NewLogger(cfg)
			db, err := openDB(cfg, logger)
			if err != nil {
				return err
			}
			if err = postgres.Migrate(c.Context(), db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			logger.Info().Msg("schema is up to date")
			return nil
		},
	})
	return root
}

func serve(ctx context.Context, cfg cmd.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := cmd.NewLogger(cfg)

	var db *gorm.DB
	if cfg.StorageDriver == cmd.StoragePostgres {
		var err error
		if db, err = openDB(cfg, logger); err != nil {
			return err
		}
	}

	app, err := cmd.NewCompositionRoot(cfg, db, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close adapters")
		}
	}()

	router, err := app.CreateRouter()
	if err != nil {
		return err
	}
	consumer, err := app.CreateOrderConsumer()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("port", cfg.HTTPPort).Msg("http server starting")
		if err := router.Start(fmt.Sprintf("0.0.0.0:%s", cfg.HTTPPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return router.Shutdown(shutdownCtx)
	})

	if consumer != nil {
		g.Go(func() error {
			return consumer.Run(ctx)
		})
	}

	if cfg.Jobs.Enabled {
		jobManager := app.CreateJobManager()
		if err = jobManager.StartAll(); err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			jobManager.StopAll()
			return nil
		})
	}

	return g.Wait()
}

func openDB(cfg cmd.Config, logger zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(gormpostgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	logger.Info().Str("host", cfg.DB.Host).Str("database", cfg.DB.Name).Msg("database connected")
	return db, nil
}

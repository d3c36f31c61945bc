package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/labadmin/labadmin/internal/config"
	"github.com/labadmin/labadmin/internal/domain/catalog"
	"github.com/labadmin/labadmin/internal/domain/contracts"
	"github.com/labadmin/labadmin/internal/domain/invoicing"
	"github.com/labadmin/labadmin/internal/domain/orders"
	"github.com/labadmin/labadmin/internal/domain/patients"
	"github.com/labadmin/labadmin/internal/domain/results"
	"github.com/labadmin/labadmin/internal/domain/samples"
	"github.com/labadmin/labadmin/internal/platform/auth"
	"github.com/labadmin/labadmin/internal/platform/db"
	"github.com/labadmin/labadmin/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "labadmin-server",
		Short: "Laboratory order fulfillment and billing API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	runner := db.PoolRunner{Pool: pool}

	// Repositories
	catalogRepo := catalog.NewPostgresRepository(pool)
	contractRepo := contracts.NewPostgresRepository(pool)
	patientRepo := patients.NewPostgresRepository(pool)
	orderRepo := orders.NewPostgresRepository(pool)
	lineItemRepo := orders.NewPostgresLineItemRepository(pool)
	paymentRepo := orders.NewPostgresPaymentRepository(pool)
	sampleRepo := samples.NewPostgresRepository(pool)
	resultRepo := results.NewPostgresRepository(pool)
	invoiceRepo := invoicing.NewPostgresRepository(pool)

	// Services
	catalogSvc := catalog.NewService(catalogRepo, logger)
	contractSvc := contracts.NewService(contractRepo, logger)
	patientSvc := patients.NewService(patientRepo)
	orderSvc := orders.NewService(orderRepo, lineItemRepo, paymentRepo,
		catalogSvc, contractSvc, runner, decimal.NewFromFloat(cfg.TaxRate), logger)
	resultSvc := results.NewService(resultRepo, orderSvc, catalogSvc, runner, logger)
	sampleSvc := samples.NewService(sampleRepo, orderSvc, catalogSvc, resultSvc, runner, logger)
	invoiceSvc := invoicing.NewService(invoiceRepo, orderSvc, patientSvc, contractSvc, runner, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware([]byte(cfg.AuthSecret)))
	}

	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", func(c echo.Context) error {
		h := db.Check(c.Request().Context(), pool)
		code := http.StatusOK
		if !h.OK {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, h)
	})

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	catalog.NewHandler(catalogSvc).RegisterRoutes(apiV1)
	contracts.NewHandler(contractSvc).RegisterRoutes(apiV1)
	patients.NewHandler(patientSvc).RegisterRoutes(apiV1)
	orders.NewHandler(orderSvc).RegisterRoutes(apiV1)
	samples.NewHandler(sampleSvc).RegisterRoutes(apiV1)
	results.NewHandler(resultSvc).RegisterRoutes(apiV1)
	invoicing.NewHandler(invoiceSvc).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/medvault/medvault/internal/audit"
	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/domain"
	v1 "github.com/medvault/medvault/internal/handler/v1"
	"github.com/medvault/medvault/internal/ledger"
	"github.com/medvault/medvault/internal/service"
	"github.com/medvault/medvault/internal/storage/postgres"
	"github.com/medvault/medvault/pkg/auth"
	"github.com/medvault/medvault/pkg/logger"
	"github.com/medvault/medvault/pkg/metrics"
	"github.com/medvault/medvault/pkg/tracer"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medvault",
		Short: "Permissioned medical record store",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(hashSecretCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			tp, err := tracer.Init(cfg.Tracing)
			if err != nil {
				return fmt.Errorf("initializing tracer: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				_ = tp.Shutdown(shutdownCtx)
			}()

			col := metrics.NewCollector("medvault")

			var (
				sinks  audit.MultiSink
				events audit.Reader
				store  *postgres.EventStore
			)
			if cfg.Database.Enabled {
				db, err := postgres.Connect(cfg.Database)
				if err != nil {
					return err
				}
				if err := postgres.Migrate(db, log); err != nil {
					return err
				}
				store = postgres.NewEventStore(db)
				sinks = append(sinks, store)
				events = store
			} else {
				log.Warn("durable audit store disabled; state will not survive restarts")
			}
			sinks = append(sinks, audit.NewLogSink(log))
			sinks = append(sinks, audit.SinkFunc(func(_ context.Context, e *audit.Event) error {
				col.AuditEventsTotal.WithLabelValues(string(e.Kind)).Inc()
				return nil
			}))

			led, err := ledger.New(cfg.Ledger.AdminAddress, sinks, log)
			if err != nil {
				return err
			}
			if store != nil {
				history, err := store.ListAll(cmd.Context())
				if err != nil {
					return err
				}
				if err := led.Replay(history); err != nil {
					return fmt.Errorf("replaying audit history: %w", err)
				}
			}

			jwtManager := auth.NewJWTManager(cfg.JWT)
			tokenSvc := service.NewTokenService(cfg.Ledger.RegistrarSecretHash, jwtManager, log)
			handler := v1.NewHandler(led, tokenSvc, events, col, log)

			srv := &http.Server{
				Addr:         cfg.Server.Address(),
				Handler:      handler.NewRouter(cfg, jwtManager),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				IdleTimeout:  cfg.Server.IdleTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("server listening",
					zap.String("addr", srv.Addr),
					zap.String("admin", cfg.Ledger.AdminAddress.String()),
					zap.String("environment", cfg.App.Environment),
				)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-quit:
				log.Info("shutting down", zap.String("signal", sig.String()))
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("graceful shutdown: %w", err)
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := postgres.Connect(cfg.Database)
			if err != nil {
				return err
			}
			return postgres.Migrate(db, log)
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		address string
		role    string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a caller token (operator tool)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			addr := domain.NormalizeAddress(address)
			if addr.IsZero() {
				return fmt.Errorf("a non-zero --address is required")
			}
			r := domain.Role(role)
			if !r.IsValid() {
				return fmt.Errorf("invalid --role %q", role)
			}

			pair, err := auth.NewJWTManager(cfg.JWT).GenerateTokenPair(&domain.Claims{Address: addr, Role: r})
			if err != nil {
				return err
			}

			fmt.Println(pair.AccessToken)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "caller address to bind into the token")
	cmd.Flags().StringVar(&role, "role", string(domain.RolePatient), "caller role: admin, provider, or patient")
	return cmd
}

func hashSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-secret <secret>",
		Short: "Bcrypt-hash a registrar secret for LEDGER_REGISTRAR_SECRET_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			fmt.Println(string(hash))
			return nil
		},
	}
}

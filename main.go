package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"

	"github.com/riwart/taskr/internal/config"
	"github.com/riwart/taskr/internal/identity"
	"github.com/riwart/taskr/internal/session"
	"github.com/riwart/taskr/internal/store/memorystore"
	"github.com/riwart/taskr/internal/store/sqlstore"
	"github.com/riwart/taskr/internal/task"
)

// Version is set at build time with -ldflags.
var Version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		os.Exit(1)
	}

	var configPath string
	rootCmd := &cobra.Command{
		Use:     "taskr",
		Short:   "taskr - personal task tracker with per-user task ownership",
		Version: Version,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(createAdminCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.ValidateSession(); err != nil {
				return err
			}
			logger := newLogger(cfg.Log.Level)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			sessions, err := session.NewManager(a.users, session.Options{
				Secret:     []byte(cfg.Session.Secret),
				TTL:        cfg.Session.TTL,
				CookieName: cfg.Session.CookieName,
				Secure:     cfg.Session.SecureCookie,
			})
			if err != nil {
				return err
			}

			var db Pinger
			if a.db != nil {
				db = a.db
			}

			e := NewServer(NewHandler(a.users, a.tasks, sessions, db), logger, cfg.HTTP.RequestTimeout)
			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           e,
				ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Infoj(log.JSON{"msg": "listening", "addr": srv.Addr, "driver": cfg.Database.Driver})
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Errorf("shutdown error: %v", err)
			}
			logger.Info("bye")
			return nil
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the users and tasks tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.Driver == "memory" {
				return errors.New("migrate needs a SQL database driver")
			}

			// openApp migrates on open
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", cfg.Database.Driver)
			return nil
		},
	}
}

func createAdminCmd(configPath *string) *cobra.Command {
	var in identity.RegisterInput

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a user with the admin role",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.Driver == "memory" {
				return errors.New("create-admin needs a SQL database driver")
			}

			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if in.Password == "" {
				in.Password = os.Getenv("TASKR_ADMIN_PASSWORD")
			}
			in.Confirm = in.Password

			u, err := a.users.CreateAdmin(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (id %d)\n", u.Name, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Admin user name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Admin email")
	cmd.Flags().StringVar(&in.Password, "password", "", "Admin password (defaults to $TASKR_ADMIN_PASSWORD)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// app holds the services built on top of the configured store.
type app struct {
	users *identity.Service
	tasks *task.Service
	db    *sqlstore.DB
}

func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func openApp(ctx context.Context, cfg config.Config) (*app, error) {
	hasher := identity.NewBcryptHasher(cfg.Security.BcryptCost)

	if cfg.Database.Driver == "memory" {
		return &app{
			users: identity.NewService(memorystore.NewUserStore(), hasher),
			tasks: task.NewService(memorystore.NewTaskStore()),
		}, nil
	}

	db, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &app{
		users: identity.NewService(sqlstore.NewUserRepo(db), hasher),
		tasks: task.NewService(sqlstore.NewTaskRepo(db)),
		db:    db,
	}, nil
}

func newLogger(level string) *log.Logger {
	logger := log.New("taskr")
	logger.SetHeader(`{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}"}`)

	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(log.DEBUG)
	case "warn":
		logger.SetLevel(log.WARN)
	case "error":
		logger.SetLevel(log.ERROR)
	case "off":
		logger.SetLevel(log.OFF)
	default:
		logger.SetLevel(log.INFO)
	}
	return logger
}

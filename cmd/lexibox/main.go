package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/conorfennell/lexibox/internal/config"
	"github.com/conorfennell/lexibox/internal/deckimport"
	"github.com/conorfennell/lexibox/internal/reminder"
	"github.com/conorfennell/lexibox/internal/review"
	"github.com/conorfennell/lexibox/internal/storage"
	"github.com/conorfennell/lexibox/internal/web"
)

const usage = `Usage: lexibox [command] [flags]

Commands:
  serve     Run the HTTP API (default)
  import    Import a deck file, directory or git repository: lexibox import --user <uuid> <source>
  migrate   Apply database migrations and exit

Flags:
`

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && (args[0] == "serve" || args[0] == "import" || args[0] == "migrate") {
		cmd, args = args[0], args[1:]
	}

	flags := pflag.NewFlagSet("lexibox", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	user := flags.String("user", "", "User ID to import cards for (import only)")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "migrate":
		err = runMigrate(ctx, cfg)
	case "import":
		err = runImport(ctx, cfg, *user, flags.Args())
	default:
		err = runServe(ctx, cfg, logger)
	}
	if err != nil {
		logger.Error("Command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func openDB(ctx context.Context, cfg config.DatabaseConfig) (*storage.DB, error) {
	db, err := storage.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	slog.Info("Database opened successfully", "driver", cfg.Driver, "migrations_applied", db.MigrationsApplied())
	return db, nil
}

func runMigrate(ctx context.Context, cfg config.Config) error {
	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	return db.Close()
}

func runImport(ctx context.Context, cfg config.Config, user string, args []string) error {
	userID, err := uuid.Parse(user)
	if err != nil {
		return fmt.Errorf("--user must be a UUID: %w", err)
	}
	if len(args) != 1 {
		return errors.New("import takes exactly one source")
	}

	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := deckimport.NewImporter(db, cfg.Import.ReposDir).Import(ctx, userID, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Found %d cards, imported %d, skipped %d, %d errors.\n", res.Parsed, res.Imported, res.Skipped, len(res.Errors))
	if len(res.Errors) > 0 {
		fmt.Println("\nErrors:")
		for _, e := range res.Errors {
			fmt.Printf("- %s\n", e)
		}
	}
	return nil
}

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	reviews, err := review.NewService(db, cfg.Review.Mode, review.WithLogger(logger))
	if err != nil {
		return err
	}

	if cfg.Reminder.Enabled {
		notifier, err := newNotifier(cfg.Reminder, logger)
		if err != nil {
			return err
		}
		r := reminder.New(db, reviews, notifier, cfg.Reminder.Interval, logger)
		if err := r.Start(ctx); err != nil {
			return err
		}
		defer r.Stop()
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: web.NewServer(db, reviews, web.Options{
			Logger:       logger,
			SessionLimit: cfg.Review.SessionLimit,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", cfg.Server.Addr, "review_mode", reviews.Mode())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func newNotifier(cfg config.ReminderConfig, logger *slog.Logger) (reminder.Notifier, error) {
	fallback := reminder.LogNotifier{Logger: logger}
	if cfg.TelegramToken == "" {
		return fallback, nil
	}
	n, err := reminder.NewTelegramNotifier(cfg.TelegramToken, fallback)
	if err != nil {
		return nil, err
	}
	return n, nil
}

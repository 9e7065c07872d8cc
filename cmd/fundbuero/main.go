package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fundbuero/internal/api"
	"fundbuero/internal/db"
	"fundbuero/internal/registry"
	"fundbuero/internal/session"
	"fundbuero/internal/store"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

// envDefault returns the environment value for key, or fallback when
// unset.
func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// Optional .env file; real environment variables take precedence.
	_ = godotenv.Load()

	fs := flag.NewFlagSet("fundbuero", flag.ContinueOnError)

	defaultDB := envDefault("FUNDBUERO_DB", "fundbuero.sqlite3")
	var dbPath string
	fs.StringVar(&dbPath, "db", defaultDB, "")
	fs.StringVar(&dbPath, "d", defaultDB, "")

	defaultAddr := envDefault("FUNDBUERO_ADDR", ":8080")
	var addr string
	fs.StringVar(&addr, "addr", defaultAddr, "")
	fs.StringVar(&addr, "a", defaultAddr, "")

	defaultLog := envDefault("FUNDBUERO_LOG", "")
	var logPath string
	fs.StringVar(&logPath, "log", defaultLog, "")
	fs.StringVar(&logPath, "l", defaultLog, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: fundbuero [flags]

Flags:
  -d, -db <path>          SQLite database path (default: fundbuero.sqlite3, env FUNDBUERO_DB)
  -a, -addr <host:port>   listen address (default: :8080, env FUNDBUERO_ADDR)
  -l, -log <path>         log file path (default: no file, env FUNDBUERO_LOG)
  -h, -help               show this help and exit
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	// Open database and ensure the schema (idempotent).
	database, err := db.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	slog.Info("database ready", "path", dbPath)

	ctx := context.Background()

	// Bootstrap accounts on an empty database.
	seeded, err := store.SeedDefaultUsers(ctx, database)
	if err != nil {
		slog.Error("failed to seed default accounts", "error", err)
		os.Exit(1)
	}
	if seeded {
		printSeedResult()
	}

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		slog.Error("failed to get JWT secret", "error", err)
		os.Exit(1)
	}

	// Restore a persisted session if its idle window has not run out,
	// then start the idle watchdog.
	sessions := session.NewManager(database)
	if err := sessions.Resume(ctx); err != nil {
		slog.Error("failed to resume session", "error", err)
		os.Exit(1)
	}
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go sessions.Watch(watchCtx)

	reg := registry.New(database)

	handler := api.LoggingMiddleware(api.NewRouter(database, sessions, reg, jwtSecret))

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())
		stopWatch()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped, closing database")
}

// printSeedResult prints the bootstrap accounts to stdout.
func printSeedResult() {
	fmt.Println("Default accounts created:")
	fmt.Printf("  Admin:   %s / %s\n", store.DefaultAdminEmail, store.DefaultAdminPassword)
	fmt.Printf("  Counter: %s / %s\n", store.DefaultUserEmail, store.DefaultUserPassword)
	fmt.Println()
	fmt.Println("Change both passwords after the first login.")
}

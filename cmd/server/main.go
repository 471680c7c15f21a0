// Package main initializes and starts the lpbridge HTTP server, setting up
// configuration, logging, the optional audit database, the lastpass data
// source, services and handlers.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/atinyakov/lpbridge/internal/command"
	"github.com/atinyakov/lpbridge/internal/config"
	"github.com/atinyakov/lpbridge/internal/db"
	"github.com/atinyakov/lpbridge/internal/lastpass"
	"github.com/atinyakov/lpbridge/internal/logger"
	"github.com/atinyakov/lpbridge/internal/prompt"
	"github.com/atinyakov/lpbridge/internal/repository"
	"github.com/atinyakov/lpbridge/internal/server/handler/http"
	"github.com/atinyakov/lpbridge/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line, environment and file configuration.
	fs := pflag.NewFlagSet("lpbridged", pflag.ExitOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])
	options, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(cmp.Or(options.LogLevel, "info")); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The audit log is optional.
	var operations service.OperationRepository
	if options.DatabaseDSN != "" {
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			zapLogger.Fatal("cannot init database", zap.Error(err))
		}
		defer postgresDB.Close()

		db.StartAuditCleaner(ctx, postgresDB,
			options.CleanupInterval,
			options.AuditRetention,
			zapLogger,
		)
		operations = repository.NewPostgresOperationRepository(postgresDB)
	}

	// Headless: the master password comes from a file or is declined.
	var prompter lastpass.SecretPrompter = prompt.Decline{}
	if options.PasswordFile != "" {
		prompter = prompt.File{Path: options.PasswordFile}
	}

	locator := lastpass.NewLocator(lastpass.LocatorConfig{
		Path:       options.LpassPath,
		Candidates: options.Candidates,
		SearchPATH: true,
	})
	source := lastpass.NewDataSource(
		lastpass.Config{
			Namespace:   options.Namespace,
			Home:        options.Home,
			AskpassPath: options.AskpassPath,
			Timeout:     options.Timeout,
		},
		locator,
		command.NewExecutor(zapLogger),
		prompter,
		lastpass.LogNotifier{Log: zapLogger},
		zapLogger,
	)
	accountService := service.NewAccountService(source, operations, zapLogger)

	if !accountService.Status(ctx).Available {
		zapLogger.Warn("lpass is not available yet; requests will fail until it is")
	}

	// Build the router with middleware and routes.
	accountHandler := &http.AccountHandler{Service: accountService, Log: zapLogger}
	router := http.NewRouter(accountHandler, options.Token, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("failed to shut down HTTP server", zap.Error(err))
		}
	}()

	zapLogger.Info("starting HTTP server",
		zap.String("addr", options.Addr),
		zap.Bool("audit", operations != nil),
		zap.Bool("token", options.Token != ""),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/examgen/internal/config"
	"github.com/pavelanni/examgen/internal/handler"
	appI18n "github.com/pavelanni/examgen/internal/i18n"
	"github.com/pavelanni/examgen/internal/llm"
	"github.com/pavelanni/examgen/internal/workspace"
)

//go:generate templ generate -path ../../internal/handler/views

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "examgen",
		Short:        "Exam subject breakdown generator powered by LLMs",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, generateCmd(), lambdaCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examgen --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	addServerFlags(f)
	addLLMFlags(f)
	addLogFlags(f)
	return cmd
}

func addServerFlags(f *pflag.FlagSet) {
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("lang", "l", "en", "Default UI language (en, ru)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /ru)")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	f.Duration("workspace-ttl", time.Hour, "Drop page state idle for longer than this")
	f.Uint64("max-workspaces", config.DefaultMaxWorkspaces, "Maximum page states kept in memory")
}

func addLLMFlags(f *pflag.FlagSet) {
	f.String("llm-provider", config.ProviderGemini, "LLM provider (gemini, openai)")
	f.String("llm-model", "", "Model name (default depends on provider)")
	f.String("llm-url", "", "Base URL for an OpenAI-compatible API")
	f.String("llm-key", "", "API key (or set GEMINI_API_KEY / OPENAI_API_KEY)")
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func setupLogging(cfg config.LogConfig) {
	var logLevel slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// loadConfig binds a command's flags to a fresh viper instance, loads the
// configuration and installs the logger.
func loadConfig(cmd *cobra.Command) (*viper.Viper, config.Config, error) {
	v := config.NewViper()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, config.Config{}, fmt.Errorf("bind flags: %w", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, config.Config{}, err
	}
	setupLogging(cfg.Log)
	return v, cfg, nil
}

// newApp wires the LLM client, the workspace registry and the router.
func newApp(ctx context.Context, cfg config.Config) (*chi.Mux, *workspace.Registry, error) {
	if err := appI18n.Init(cfg.Server.Lang); err != nil {
		return nil, nil, fmt.Errorf("init i18n: %w", err)
	}

	llmClient, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("create LLM client: %w", err)
	}
	if !llmClient.Configured() {
		slog.Warn("no API key configured, breakdown requests will fail",
			"provider", llmClient.Provider())
	}

	reg := workspace.New(llmClient, cfg.Server.WorkspaceTTL, cfg.Server.MaxWorkspaces)
	h := handler.New(llmClient, reg, cfg.Server)
	return handler.NewRouter(h), reg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	router, reg, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	go reg.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("starting server",
		"addr", cfg.Server.Addr,
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"lang", cfg.Server.Lang,
		"base_path", cfg.Server.BasePath,
		"workspace_ttl", cfg.Server.WorkspaceTTL,
		"max_workspaces", cfg.Server.MaxWorkspaces,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

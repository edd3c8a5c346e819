// Package main provides the CLI entry point for the conductor agent gateway.
//
// Conductor fronts an LLM with a tool-calling agent loop and a filesystem
// retrieval tool, exposed over a small HTTP API.
//
// # Basic Usage
//
// Start the server:
//
//	conductor serve --config conductor.yaml
//
// Print the configuration schema:
//
//	conductor config schema
//
// Mint a development token:
//
//	conductor token --user alice --scopes rag.search
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/conductor/internal/agent"
	"github.com/haasonsaas/conductor/internal/agent/transport"
	"github.com/haasonsaas/conductor/internal/auth"
	"github.com/haasonsaas/conductor/internal/config"
	"github.com/haasonsaas/conductor/internal/gateway"
	"github.com/haasonsaas/conductor/internal/observability"
	"github.com/haasonsaas/conductor/internal/tools/retrieve"
)

// Build information - populated by ldflags during build.
//
// Example build command:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "conductor",
		Short:        "Conductor - agentic retrieval gateway",
		Long:         "Conductor runs a tool-calling agent loop against an LLM backend\nand serves it over HTTP.",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildConfigCmd(),
		buildTokenCmd(),
	)
	return rootCmd
}

func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the conductor gateway server",
		Example: `  # Start with default config
  conductor serve

  # Start with custom config
  conductor serve --config /etc/conductor/production.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "conductor.yaml",
		"Path to configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false,
		"Enable debug logging (verbose output)")

	return cmd
}

// runServe loads configuration, wires the agent stack, and serves until a
// shutdown signal arrives.
func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:  level,
		Format: cfg.Logging.Format,
	})
	slog.SetDefault(logger)

	logger.Info("starting conductor",
		"version", version,
		"commit", commit,
		"config", configPath,
		"model", cfg.LLM.Model,
	)

	traceEndpoint := ""
	if cfg.Tracing.Enabled {
		traceEndpoint = cfg.Tracing.Endpoint
	}
	tracer, shutdownTracing := observability.NewTracerProvider(observability.TraceConfig{
		ServiceName:    cfg.Server.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		Endpoint:       traceEndpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		EnableInsecure: cfg.Tracing.Insecure,
	})

	registry := agent.NewToolRegistry()
	for _, name := range cfg.Tools.Enabled {
		switch name {
		case "retrieve":
			tool := retrieve.New(retrieve.Config{
				SearchPaths:     cfg.Retrieval.SearchPaths,
				FileGlobs:       cfg.Retrieval.FileGlobs,
				MaxResults:      cfg.Retrieval.MaxResults,
				MaxSnippetChars: cfg.Retrieval.MaxSnippetChars,
				MaxFileSizeKB:   cfg.Retrieval.MaxFileSizeKB,
			})
			if err := registry.Register(tool); err != nil {
				return fmt.Errorf("register %s: %w", name, err)
			}
		default:
			logger.Warn("unknown tool in config, skipping", "tool", name)
		}
	}

	policy := agent.NewToolPolicy(agent.PolicyConfig{
		AllowedTools: cfg.Tools.Enabled,
		DeniedTools:  cfg.Tools.Denied,
		MaxCalls:     cfg.Tools.MaxCalls,
	})
	executor := agent.NewToolExecutor(registry, policy, agent.ExecutorConfig{
		Logger: logger,
		Tracer: tracer,
	})

	primary := transport.NewResponses(transport.ResponsesConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
	})
	var fallback agent.Transport
	if cfg.LLM.Fallback.Enabled {
		fallback = transport.NewOpenAI(transport.OpenAIConfig{
			APIKey:  cfg.LLM.Fallback.APIKey,
			BaseURL: cfg.LLM.Fallback.BaseURL,
		})
	}
	client := agent.NewChatClient(primary, fallback, agent.ClientConfig{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout(),
		Logger:      logger,
	})

	runner := agent.NewAgentRunner(client, registry, executor, agent.RunnerConfig{
		MaxSteps: cfg.Agent.MaxSteps,
		Logger:   logger,
	})

	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry.Std())
	server := gateway.NewServer(cfg, runner, authService, logger)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received, initiating graceful shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Warn("http server shutdown error", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown error", "error", err)
	}

	logger.Info("conductor stopped gracefully")
	return nil
}

func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	cmd.AddCommand(buildConfigSchemaCmd())
	return cmd
}

func buildConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the configuration JSON schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := config.JSONSchema()
			if err != nil {
				return fmt.Errorf("generate schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(schema))
			return nil
		},
	}
}

func buildTokenCmd() *cobra.Command {
	var (
		configPath string
		userID     string
		scopes     []string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		Example: `  # Token with retrieval scope
  conductor token --user alice --scopes rag.search

  # Token with several scopes
  conductor token --user admin --scopes rag.search,admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			service := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry.Std())
			if !service.Enabled() {
				return fmt.Errorf("auth.jwt_secret is not configured")
			}

			var cleaned []string
			for _, scope := range scopes {
				if s := strings.TrimSpace(scope); s != "" {
					cleaned = append(cleaned, s)
				}
			}
			token, err := service.Generate(userID, cleaned)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "conductor.yaml",
		"Path to configuration file")
	cmd.Flags().StringVarP(&userID, "user", "u", "dev",
		"Subject user id for the token")
	cmd.Flags().StringSliceVar(&scopes, "scopes", nil,
		"Comma-separated scopes to embed in the token")

	return cmd
}

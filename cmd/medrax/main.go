// Command medrax runs the medical-imaging assistant HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/coolkidhugh/streamlit-medrax-agent/agent"
	"github.com/coolkidhugh/streamlit-medrax-agent/artifact"
	"github.com/coolkidhugh/streamlit-medrax-agent/config"
	"github.com/coolkidhugh/streamlit-medrax-agent/logging"
	"github.com/coolkidhugh/streamlit-medrax-agent/medrax"
	"github.com/coolkidhugh/streamlit-medrax-agent/planner"
	anthropicplanner "github.com/coolkidhugh/streamlit-medrax-agent/planner/anthropic"
	openaiplanner "github.com/coolkidhugh/streamlit-medrax-agent/planner/openai"
	"github.com/coolkidhugh/streamlit-medrax-agent/server"
	"github.com/coolkidhugh/streamlit-medrax-agent/session"
	"github.com/coolkidhugh/streamlit-medrax-agent/tool"
)

const deepseekBaseURL = "https://api.deepseek.com"

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "medrax:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	p, err := buildPlanner(cfg.Planner)
	if err != nil {
		return err
	}

	registry := tool.NewRegistry(
		medrax.NewClassifyTool(),
		medrax.NewSegmentTool(),
	)

	executor := agent.NewExecutor(p, registry, func(o *agent.Options) {
		o.MaxIterations = cfg.Agent.MaxIterations
		if cfg.Planner.Timeout > 0 {
			o.PlannerTimeout = cfg.Planner.Timeout
		}
		o.Logger = logger
	})

	artifacts, err := artifact.NewFileStore(cfg.Storage.ArtifactDir)
	if err != nil {
		return fmt.Errorf("artifact store: %w", err)
	}

	sessions := session.NewStore()
	orchestrator := session.NewOrchestrator(executor, artifacts, func(o *session.OrchestratorOptions) {
		o.UploadDir = cfg.Storage.UploadDir
		o.Configured = cfg.Planner.Configured()
		o.Logger = logger
	})

	if !cfg.Planner.Configured() {
		logger.Warn("planner api key not set, turns will be rejected until configured")
	}

	e := server.New(server.NewHandler(sessions, orchestrator, artifacts, logger))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.listening", "addr", cfg.Server.Addr, "provider", cfg.Planner.Provider)
		if err := e.Start(cfg.Server.Addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("server.shutdown", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}

// buildPlanner selects the planning backend from configuration. DeepSeek
// speaks the OpenAI wire protocol, so it reuses that adapter with its own
// base URL.
func buildPlanner(cfg config.PlannerConfig) (planner.Planner, error) {
	switch cfg.Provider {
	case "openai":
		return openaiplanner.New(func(o *openaiplanner.Options) {
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		}), nil
	case "deepseek":
		return openaiplanner.New(func(o *openaiplanner.Options) {
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			if o.BaseURL == "" {
				o.BaseURL = deepseekBaseURL
			}
			o.Model = "deepseek-chat"
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		}), nil
	case "anthropic":
		return anthropicplanner.New(func(o *anthropicplanner.Options) {
			o.APIKey = cfg.APIKey
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown planner provider %q", cfg.Provider)
	}
}

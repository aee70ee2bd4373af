package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/petasbytes/code-agent/internal/config"
	"github.com/petasbytes/code-agent/internal/errorsx"
	"github.com/petasbytes/code-agent/internal/fsops"
	"github.com/petasbytes/code-agent/internal/logging"
	"github.com/petasbytes/code-agent/internal/provider"
	"github.com/petasbytes/code-agent/internal/runner"
	"github.com/petasbytes/code-agent/internal/telemetry"
	"github.com/petasbytes/code-agent/internal/ui"
	"github.com/petasbytes/code-agent/tools"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", errorsx.Reason(err), err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", errorsx.Reason(err), err)
		return 1
	}
	if cfg.NoColor {
		color.NoColor = true
	}

	logger := logging.InitLogger(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := fsops.SetRoots(cfg.ReadRoot, cfg.WriteRoot, cfg.ArtifactsDir); err != nil {
		fmt.Fprintf(os.Stderr, "sandbox: %v\n", err)
		return 1
	}
	log := logging.NewComponentLogger(logger, "main")
	readRoot, writeRoot, _ := fsops.Roots()
	log.Info("sandbox ready", "read_root", readRoot, "write_root", writeRoot)

	events := telemetry.New(cfg.ArtifactsDir, cfg.ObserveJSON, logging.NewComponentLogger(logger, "telemetry"))

	client := provider.NewAnthropicClient(provider.Options{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		MaxRetries: cfg.MaxRetries,
		Timeout:    cfg.RequestTimeout,
	})

	console := ui.NewConsole(os.Stdout, os.Stderr, cfg.NoColor)
	if !cfg.NoBanner {
		ui.PrintBanner(os.Stdout, cfg.Model, !cfg.NoColor && !color.NoColor)
	}
	console.Greeting()

	r := runner.New(client, tools.NewDefaultRegistry(),
		runner.WithPresenter(console),
		runner.WithEvents(events),
		runner.WithLogger(logger),
		runner.WithModel(anthropic.Model(cfg.Model)),
		runner.WithMaxTokens(cfg.MaxTokens),
		runner.WithSystemPrompt(cfg.SystemPrompt),
		runner.WithMaxToolRounds(cfg.MaxToolRounds),
		runner.WithTokenBudget(cfg.TokenBudget, nil),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := r.Run(ctx, os.Stdin); err != nil {
		console.Error(err)
		return 1
	}
	return 0
}

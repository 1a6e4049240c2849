// Package main - balance-report
// Plays a scripted session headlessly and prints how the economy paced out.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/MRamiBalles/IdleAbsurditree/internal/config"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/logger"
	"github.com/MRamiBalles/IdleAbsurditree/internal/simulation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "balance-report:", err)
		os.Exit(1)
	}
}

func run() error {
	sc := simulation.DefaultScenario()

	configPath := flag.String("config", "", "YAML config to take the economy from (default: built-in tuning)")
	flag.StringVar(&sc.Name, "name", sc.Name, "Scenario name")
	flag.DurationVar(&sc.Duration, "duration", sc.Duration, "Active play time")
	flag.DurationVar(&sc.FrameDelta, "frame", sc.FrameDelta, "Simulated time per frame")
	flag.Float64Var(&sc.ClicksPerSecond, "cps", sc.ClicksPerSecond, "Clicks per second")
	flag.DurationVar(&sc.Absence, "absence", sc.Absence, "Time away after playing")
	asJSON := flag.Bool("json", false, "Print the report as JSON")
	verbose := flag.Bool("v", false, "Log engine activity to stderr")
	flag.Parse()

	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		settings, err := cfg.EngineSettings()
		if err != nil {
			return err
		}
		sc.Settings = settings
		sc.Catalog = cfg.Catalog()
	}

	log := logger.NewNop()
	if *verbose {
		l, err := logger.New(logger.Options{Level: "info", Format: "console", Stderr: true})
		if err != nil {
			return err
		}
		log = l
		defer func() { _ = log.Sync() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := simulation.Run(ctx, sc, log)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return report.WriteText(os.Stdout)
}

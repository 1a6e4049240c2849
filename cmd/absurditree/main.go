// Package main is the IdleAbsurditree command line client. Every command
// opens the configured save, credits offline time, acts and saves again.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/IdleAbsurditree/internal/app"
	"github.com/MRamiBalles/IdleAbsurditree/internal/config"
	"github.com/MRamiBalles/IdleAbsurditree/internal/engine"
	"github.com/MRamiBalles/IdleAbsurditree/internal/format"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/logger"
)

func main() {
	if err := newRootCmd(engine.SystemClock()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli holds the global flags shared by every command.
type cli struct {
	configPath string
	verbose    bool
	clock      engine.Clock
}

// session is one opened save.
type session struct {
	app      *app.App
	out      io.Writer
	lastSave time.Time // Before this session's offline reconciliation
	now      time.Time
}

func newRootCmd(clock engine.Clock) *cobra.Command {
	c := &cli{clock: clock}
	root := &cobra.Command{
		Use:   "absurditree",
		Short: "Grow the Absurditree from the terminal",
		Long: `absurditree plays IdleAbsurditree against the configured save.

Nutrients come from clicks and from generators. Generators keep producing
while you are away, up to the configured offline cap.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", envOr("ABSURDITREE_CONFIG", config.DefaultPath), "Path to the YAML config")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log engine activity to stderr")

	root.AddCommand(
		c.statusCmd(),
		c.clickCmd(),
		c.buyCmd(),
		c.generatorsCmd(),
		c.devCmd(),
		c.resetCmd(),
		c.exportCmd(),
		c.importCmd(),
		c.historyCmd(),
	)
	return root
}

// withGame opens the save, runs fn and performs the final save.
func (c *cli) withGame(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) (err error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	level := "warn"
	if c.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level, Format: "console", File: cfg.Logging.File, Stderr: true})
	if err != nil {
		return err
	}

	a, err := app.New(cfg, app.Options{Logger: log, Clock: c.clock})
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		if cerr := a.Close(context.Background()); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err := a.Manager.Load(ctx); err != nil {
		return err
	}
	s := &session{
		app:      a,
		out:      cmd.OutOrStdout(),
		lastSave: a.Manager.Data().LastSave(),
		now:      c.clock.Now(),
	}
	report, err := a.Manager.ProcessOfflineGains(ctx)
	if err != nil {
		return err
	}
	s.printOffline(report)
	return fn(ctx, s)
}

func (s *session) printf(tmpl string, args ...interface{}) {
	fmt.Fprintf(s.out, tmpl, args...)
}

func (s *session) printOffline(r engine.OfflineReport) {
	if !r.Credited() {
		return
	}
	s.printf("Welcome back! You earned %s nutrients while away for %s\n",
		format.Number(r.Nutrients), format.Duration(r.SecondsCredited))
	if r.Capped {
		s.printf("(offline progress is capped at %s)\n", format.Duration(r.SecondsCredited))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

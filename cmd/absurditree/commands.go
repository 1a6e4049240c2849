package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MRamiBalles/IdleAbsurditree/internal/engine"
	"github.com/MRamiBalles/IdleAbsurditree/internal/format"
	"github.com/MRamiBalles/IdleAbsurditree/internal/infra/storage"
)

// clipboardWriteAll is swapped out in tests.
var clipboardWriteAll = clipboard.WriteAll

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show nutrients, production and the last save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withGame(cmd, func(ctx context.Context, s *session) error {
				snap := s.app.Manager.Snapshot()
				settings := s.app.Manager.Settings()
				s.printf("Available:   %s\n", format.Number(snap.AvailableNutrients))
				s.printf("Lifetime:    %s\n", format.Number(snap.LifetimeNutrients))
				s.printf("Production:  %s\n", format.Rate(snap.AutoProductionPerSecond))
				s.printf("Click value: %s\n", format.NumberPrecise(settings.ClickBaseValue*settings.ClickMultiplier))
				if s.lastSave.IsZero() {
					s.printf("Last save:   never\n")
				} else {
					s.printf("Last save:   %s\n", humanize.RelTime(s.lastSave, s.now, "ago", "from now"))
				}
				return nil
			})
		},
	}
}

func (c *cli) clickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "click [n]",
		Short: "Click the tree n times (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 1
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v <= 0 {
					return fmt.Errorf("click count must be a positive integer, got %q", args[0])
				}
				n = v
			}
			return c.withGame(cmd, func(ctx context.Context, s *session) error {
				var earned float64
				for i := 0; i < n; i++ {
					earned += s.app.Manager.Click()
				}
				snap := s.app.Manager.Snapshot()
				s.printf("Clicked %s times for %s nutrients (available %s)\n",
					humanize.Comma(int64(n)), format.Number(earned), format.Number(snap.AvailableNutrients))
				return nil
			})
		},
	}
}

func (c *cli) buyCmd() *cobra.Command {
	var count int
	var buyMax bool
	cmd := &cobra.Command{
		Use:   "buy <index>",
		Short: "Buy generators",
		Long: `Buy units of the generator at <index> (see "absurditree generators").

Buying several units at once costs the same as buying them one by one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("generator index must be an integer, got %q", args[0])
			}
			return c.withGame(cmd, func(ctx context.Context, s *session) error {
				var p engine.Purchase
				if buyMax {
					p, err = s.app.Manager.BuyMaxGenerators(ctx, index)
				} else {
					p, err = s.app.Manager.BuyGenerators(ctx, index, count)
				}
				if err != nil {
					return err
				}
				snap := s.app.Manager.Snapshot()
				s.printf("Bought %d x %s for %s nutrients (own %d, production %s)\n",
					p.Units, p.Name, format.Number(p.Cost), p.Count, format.Rate(snap.AutoProductionPerSecond))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Units to buy")
	cmd.Flags().BoolVar(&buyMax, "max", false, "Buy as many units as affordable")
	cmd.MarkFlagsMutuallyExclusive("count", "max")
	return cmd
}

func (c *cli) generatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generators",
		Short: "List generators with their next price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withGame(cmd, func(ctx context.Context, s *session) error {
				w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "#\tNAME\tOWNED\tNEXT COST\tPRODUCTION\tAFFORDABLE")
				for _, g := range s.app.Manager.Generators() {
					fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%d\n",
						g.Index, g.Name, g.Count, format.Number(g.NextCost), format.Rate(g.Production), g.MaxAffordable)
				}
				return w.Flush()
			})
		},
	}
}

func (c *cli) devCmd() *cobra.Command {
	var target string
	dev := &cobra.Command{
		Use:   "dev",
		Short: "Developer commands that edit the save directly",
	}
	dev.PersistentFlags().StringVarP(&target, "target", "t", string(engine.TargetBoth), "Balance to edit: available, lifetime or both")

	amountCmd := func(use, short string, apply func(m *engine.Manager, t engine.Target, v float64) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <amount>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				t, err := engine.ParseTarget(target)
				if err != nil {
					return err
				}
				v, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return fmt.Errorf("amount must be a number, got %q", args[0])
				}
				return c.withGame(cmd, func(ctx context.Context, s *session) error {
					if err := apply(s.app.Manager, t, v); err != nil {
						return err
					}
					s.printBalances()
					return nil
				})
			},
		}
	}

	dev.AddCommand(
		amountCmd("add", "Add nutrients", func(m *engine.Manager, t engine.Target, v float64) error {
			return m.DevAdd(t, v)
		}),
		amountCmd("set", "Set nutrients", func(m *engine.Manager, t engine.Target, v float64) error {
			return m.DevSet(t, v)
		}),
		&cobra.Command{
			Use:   "clear",
			Short: "Zero nutrients",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				t, err := engine.ParseTarget(target)
				if err != nil {
					return err
				}
				return c.withGame(cmd, func(ctx context.Context, s *session) error {
					if err := s.app.Manager.DevClear(t); err != nil {
						return err
					}
					s.printBalances()
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "production <rate>",
			Short: "Override passive production until the next purchase",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				rate, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return fmt.Errorf("rate must be a number, got %q", args[0])
				}
				return c.withGame(cmd, func(ctx context.Context, s *session) error {
					s.app.Manager.SetAutoProduction(rate)
					s.printf("Production: %s\n", format.Rate(s.app.Manager.Snapshot().AutoProductionPerSecond))
					return nil
				})
			},
		},
	)
	return dev
}

func (s *session) printBalances() {
	snap := s.app.Manager.Snapshot()
	s.printf("Available: %s\nLifetime:  %s\n",
		format.NumberPrecise(snap.AvailableNutrients), format.NumberPrecise(snap.LifetimeNutrients))
}

func (c *cli) resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Wipe all progress",
		Long:  `Wipe all progress. The previous save is moved to the trash, not deleted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			return c.withGame(cmd, func(ctx context.Context, s *session) error {
				if err := s.app.Manager.Reset(ctx); err != nil {
					return err
				}
				s.printf("Game has been reset\n")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var toClipboard bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the save as a portable string",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withGame(cmd, func(ctx context.Context, s *session) error {
				if err := s.app.Manager.Save(ctx); err != nil {
					return err
				}
				str, err := storage.ExportString(s.app.Manager.Data())
				if err != nil {
					return err
				}
				if toClipboard {
					if err := clipboardWriteAll(str); err != nil {
						return fmt.Errorf("failed to copy to clipboard: %w", err)
					}
					s.printf("Save copied to clipboard (%s)\n", humanize.Bytes(uint64(len(str))))
					return nil
				}
				s.printf("%s\n", str)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&toClipboard, "clipboard", false, "Copy to the clipboard instead of printing")
	return cmd
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <string>",
		Short: "Replace the save with an exported string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := storage.ImportString(args[0])
			if err != nil {
				return err
			}
			return c.withGame(cmd, func(ctx context.Context, s *session) error {
				if err := s.app.Store.Save(ctx, d); err != nil {
					return err
				}
				if err := s.app.Manager.Load(ctx); err != nil {
					return err
				}
				report, err := s.app.Manager.ProcessOfflineGains(ctx)
				if err != nil {
					return err
				}
				s.printOffline(report)
				s.printBalances()
				return nil
			})
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent events and purchase totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withGame(cmd, func(ctx context.Context, s *session) error {
				h := s.app.History()
				recap, err := h.GenerateRecap(ctx, limit)
				if err != nil {
					return err
				}
				for _, e := range recap {
					s.printf("%s  %-8s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Impact, e.Summary)
				}

				purchases, err := h.PurchaseHistory(ctx)
				if err != nil {
					return err
				}
				s.printf("\nPurchases: %s units for %s nutrients\n",
					humanize.Comma(int64(purchases.TotalUnits)), format.Number(purchases.TotalSpent))
				for _, g := range purchases.Generators {
					s.printf("  %-14s %4d units  %s\n", g.Name, g.Units, format.Number(g.Spent))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of recent events to show")
	return cmd
}

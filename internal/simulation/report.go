package simulation

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/MRamiBalles/IdleAbsurditree/internal/format"
)

// WriteText renders the report for a terminal.
func (r Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Scenario:\t%s\n", r.Scenario)
	fmt.Fprintf(tw, "Played:\t%s (%d frames)\n", format.Duration(r.Played.Seconds()), r.Frames)
	fmt.Fprintf(tw, "Clicks:\t%d\n", r.Clicks)
	fmt.Fprintf(tw, "Purchases:\t%d\n", r.Purchases)
	fmt.Fprintf(tw, "Peak rate:\t%s\n", format.Rate(r.PeakRate))
	fmt.Fprintf(tw, "Before leaving:\t%s available, %s\n",
		format.Number(r.BeforeAbsence.AvailableNutrients), format.Rate(r.BeforeAbsence.AutoProductionPerSecond))
	if r.Offline.Credited() {
		capped := ""
		if r.Offline.Capped {
			capped = " (capped)"
		}
		fmt.Fprintf(tw, "Offline:\t%s nutrients over %s%s\n",
			format.Number(r.Offline.Nutrients), format.Duration(r.Offline.SecondsCredited), capped)
	} else {
		fmt.Fprintf(tw, "Offline:\tnothing earned\n")
	}
	fmt.Fprintf(tw, "Final:\t%s available, %s lifetime\n",
		format.Number(r.Final.AvailableNutrients), format.Number(r.Final.LifetimeNutrients))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Milestones) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tGENERATOR\tCOUNT\tCOST")
	for _, m := range r.Milestones {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", format.Duration(m.At.Seconds()), m.Generator, m.Count, format.Number(m.Cost))
	}
	return tw.Flush()
}

// Package view renders the collection, its value totals and the latest analysis
// as plain text.
package view

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/atinyakov/BagWardrobe/internal/collection"
	"github.com/atinyakov/BagWardrobe/internal/models"
)

// EmptyCollectionHint is shown instead of the table when there are no bags.
const EmptyCollectionHint = "Upload photos of your bags to get started!"

// Collection writes the records as a table in collection order.
func Collection(w io.Writer, records []models.BagRecord) error {
	noun := "bags"
	if len(records) == 1 {
		noun = "bag"
	}
	if _, err := fmt.Fprintf(w, "Your Collection (%d %s)\n", len(records), noun); err != nil {
		return err
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, EmptyCollectionHint)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBRAND\tMODEL\tPURCHASE\tESTIMATED\tCONDITION")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Name, dash(r.Brand), dash(r.Model),
			dash(r.PurchasePrice), dash(r.EstimatedValue), r.Condition)
	}
	return tw.Flush()
}

// Totals writes the value dashboard.
func Totals(w io.Writer, t collection.Totals) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total purchase price\t%.2f\n", t.TotalPurchasePrice)
	fmt.Fprintf(tw, "Total estimated value\t%.2f\n", t.TotalEstimatedValue)
	fmt.Fprintf(tw, "Appreciation\t%+.2f (%+.1f%%)\n", t.Appreciation, t.AppreciationPercent)
	fmt.Fprintf(tw, "Tracked\t%d of %d bags\n", t.TrackedCount, t.TotalCount)
	return tw.Flush()
}

// Analysis writes the critique. Empty gap and outdated sections are omitted.
func Analysis(w io.Writer, a *models.AnalysisResult) error {
	if a == nil {
		_, err := fmt.Fprintln(w, "No analysis yet.")
		return err
	}

	var b strings.Builder
	b.WriteString("Collection Overview\n")
	b.WriteString(indent(a.Overview))

	if len(a.Gaps) > 0 {
		b.WriteString("\nIdentified Gaps\n")
		for _, g := range a.Gaps {
			fmt.Fprintf(&b, "  - %s\n", g)
		}
	}
	if len(a.Outdated) > 0 {
		b.WriteString("\nItems to Consider\n")
		for _, o := range a.Outdated {
			fmt.Fprintf(&b, "  - %s\n", o)
		}
	}
	if len(a.Recommendations) > 0 {
		b.WriteString("\nRecommended Additions\n")
		for _, r := range a.Recommendations {
			fmt.Fprintf(&b, "  * %s [%s priority]\n", r.Type, r.Priority)
			if r.Reason != "" {
				fmt.Fprintf(&b, "    %s\n", r.Reason)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func indent(s string) string {
	if s == "" {
		return "  -\n"
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return "  " + strings.Join(lines, "\n  ") + "\n"
}

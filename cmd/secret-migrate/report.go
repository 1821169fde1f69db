package main

import (
	"fmt"
	"io"

	"github.com/nikicat/secret-migrate/internal/reconcile"
)

// printReports writes the outcome of every imported record. Conflicting
// secrets are printed here and nowhere else.
func printReports(w io.Writer, source string, reports []*reconcile.Report) {
	for _, report := range reports {
		for _, res := range report.Results {
			name := res.Record.DisplayName
			switch res.Outcome {
			case reconcile.OutcomeExists:
				fmt.Fprintf(w, "Skipping %s because it already exists\n", name)
			case reconcile.OutcomeConflict:
				fmt.Fprintf(w, "Existing secrets found for '%s'\n", name)
				for _, ex := range res.Conflicting {
					fmt.Fprintf(w, " %s\n", ex.Secret)
				}
				fmt.Fprintf(w, "So skipping value from '%s':\n", source)
				fmt.Fprintf(w, " %s\n", res.Record.Secret)
			case reconcile.OutcomeUnsupported:
				fmt.Fprintf(w, "Can't handle secret '%s' of type '%s', skipping\n", name, res.Record.Attr("xdg:schema"))
			case reconcile.OutcomeCreated:
				fmt.Fprintf(w, "Copying secret %s\n", name)
			}
		}
		fmt.Fprintf(w, "%s: %d created, %d already present, %d conflicts, %d unsupported\n",
			report.Collection,
			report.Count(reconcile.OutcomeCreated),
			report.Count(reconcile.OutcomeExists),
			report.Count(reconcile.OutcomeConflict),
			report.Count(reconcile.OutcomeUnsupported))
	}
}

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openmined/solarsync/internal/syncer"
)

func printReport(w io.Writer, r *syncer.Report) {
	title := string(r.Direction)
	if r.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintln(w, bold(title))

	if r.DryRun {
		for _, step := range r.Plan {
			state := cyan("new")
			if step.Exists() {
				state = "exists"
			}
			fmt.Fprintf(w, "  %-14s %-7s %s\n", step.Action, state, step.Path)
		}
		fmt.Fprintf(w, "  %d planned, %d to create\n", len(r.Plan), len(r.Plan.Creates()))
		return
	}

	fmt.Fprintf(w, "  created      %d\n", len(r.Created))
	fmt.Fprintf(w, "  transferred  %s (%s)\n", green(len(r.Transferred)), humanize.Bytes(uint64(r.Bytes)))
	if len(r.Failed) > 0 {
		fmt.Fprintf(w, "  failed       %s\n", red(len(r.Failed)))
		for _, f := range r.Failed {
			fmt.Fprintf(w, "    %s %s: %v\n", red("x"), f.Path, f.Err)
		}
	}
	fmt.Fprintf(w, "  took         %s\n", r.Duration.Round(time.Millisecond))
}

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openmined/solarsync/internal/history"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	var prune time.Duration
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.HistoryDB == "" {
				return errors.New("history is disabled, set history_db")
			}
			cmd.SilenceUsage = true
			journal := history.NewJournal(a.cfg.HistoryDB)
			if err := journal.Open(); err != nil {
				return err
			}
			defer journal.Close()

			out := cmd.OutOrStdout()
			if prune > 0 {
				n, err := journal.Prune(time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "pruned %d run(s)\n", n)
			}

			runs, err := journal.Recent(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs recorded")
				return nil
			}
			for _, r := range runs {
				status := green("ok")
				if r.Failed > 0 || r.Error != "" {
					status = red("failed")
				}
				if r.DryRun {
					status = cyan("dry-run")
				}
				fmt.Fprintf(out, "%s  %-8s %-7s %s  %s -> %s/%s  created=%d transferred=%d failed=%d\n",
					r.StartedAt.Local().Format(time.DateTime), r.Direction, status, humanize.Time(r.StartedAt),
					r.LocalPath, r.RemoteID, r.Subfolder, r.Created, r.Transferred, r.Failed)
				for _, f := range r.Failures {
					fmt.Fprintf(out, "    %s %s %s: %s\n", red("x"), f.Action, f.Path, f.Error)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete runs older than this before listing")
	return cmd
}

package main

import (
	"fmt"
	"io"

	"github.com/openmined/solarsync/internal/etl"
	"github.com/openmined/solarsync/internal/utils"
	"github.com/spf13/cobra"
)

func newUpdateCmd(a *app) *cobra.Command {
	var previous, latest, updated, remapPath string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Merge the latest data files into the previous ones, adding new rows only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// loaded up front so a bad remap file aborts before anything is written
			var remap *etl.Remap
			if remapPath != "" {
				var err error
				if remap, err = etl.LoadRemap(remapPath); err != nil {
					return err
				}
			}
			cmd.SilenceUsage = true

			if previous != "" && !utils.DirExists(previous) {
				previous = ""
			}
			res, err := etl.Update(cmd.Context(), previous, latest, updated, remap)
			printResult(cmd.OutOrStdout(), "update", res)
			return err
		},
	}
	cmd.Flags().SortFlags = false
	cmd.Flags().StringVarP(&previous, "previous", "p", "", "directory holding the previous data")
	cmd.Flags().StringVarP(&latest, "latest", "l", "", "directory holding the latest data")
	cmd.Flags().StringVarP(&updated, "updated", "u", "", "output directory")
	cmd.Flags().StringVarP(&remapPath, "remap", "r", "", "column remap configuration (json or yaml)")
	_ = cmd.MarkFlagRequired("latest")
	_ = cmd.MarkFlagRequired("updated")
	return cmd
}

func newStandardizeCmd(a *app) *cobra.Command {
	var source, destination, remapPath string
	cmd := &cobra.Command{
		Use:   "standardize",
		Short: "Convert vendor data files to the standard columns and codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			remap, err := etl.LoadRemap(remapPath)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			res, err := etl.Standardize(cmd.Context(), source, destination, remap)
			printResult(cmd.OutOrStdout(), "standardize", res)
			return err
		},
	}
	cmd.Flags().SortFlags = false
	cmd.Flags().StringVarP(&source, "source", "s", "", "source directory")
	cmd.Flags().StringVarP(&destination, "destination", "d", "", "destination directory")
	cmd.Flags().StringVarP(&remapPath, "remap", "r", "", "column remap configuration (json or yaml)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("destination")
	_ = cmd.MarkFlagRequired("remap")
	return cmd
}

func newAggregateCmd(a *app) *cobra.Command {
	var source, destination string
	var patterns []string
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Concatenate per-source data files into one file per data family",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			res, err := etl.Aggregate(cmd.Context(), source, destination, patterns)
			printResult(cmd.OutOrStdout(), "aggregate", res)
			return err
		},
	}
	cmd.Flags().SortFlags = false
	cmd.Flags().StringVarP(&source, "source", "s", "", "source directory")
	cmd.Flags().StringVarP(&destination, "destination", "d", "", "destination directory")
	cmd.Flags().StringSliceVar(&patterns, "pattern", etl.DefaultPatterns, "data families to aggregate")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("destination")
	return cmd
}

func printResult(w io.Writer, name string, res *etl.Result) {
	if res == nil {
		return
	}
	fmt.Fprintf(w, "%s: %s written, %d skipped\n", bold(name), green(len(res.Written)), len(res.Skipped))
	for _, p := range res.Written {
		fmt.Fprintf(w, "  %s\n", p)
	}
}

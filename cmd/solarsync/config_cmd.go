package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration, optionally saving it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			if err := cfg.Validate(); err != nil {
				return err
			}
			cmd.SilenceUsage = true

			if save {
				if err := cfg.Save(cfg.Path); err != nil {
					return fmt.Errorf("save config: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green("saved"), cfg.Path)
			}

			cfg.Credentials = mask(cfg.Credentials)
			cfg.S3.SecretKey = mask(cfg.S3.SecretKey)
			data, err := json.MarshalIndent(&cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "write the effective configuration to the config file")
	return cmd
}

// mask keeps the first and last 4 characters of secrets long enough to have them.
func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 12 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

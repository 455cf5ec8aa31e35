package main

import (
	"errors"
	"fmt"

	"github.com/openmined/solarsync/internal/config"
	"github.com/openmined/solarsync/internal/remote"
	"github.com/spf13/cobra"
)

func newInitRootCmd(a *app) *cobra.Command {
	var title, parentID string
	cmd := &cobra.Command{
		Use:   "init-root",
		Short: "Create a remote root folder and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if err := cfg.Validate(); err != nil {
				return err
			}
			cmd.SilenceUsage = true
			ctx := cmd.Context()

			var node *remote.Node
			switch cfg.Backend {
			case config.BackendS3:
				store, err := newBlobStore(ctx, cfg)
				if err != nil {
					return err
				}
				if node, err = store.CreateRoot(ctx, title); err != nil {
					return err
				}
			case config.BackendDrive:
				store, err := newStore(ctx, cfg)
				if err != nil {
					return err
				}
				if node, err = store.Create(ctx, parentID, title, remote.KindFolder, ""); err != nil {
					return err
				}
			default:
				return errors.New("init-root needs a persistent backend (drive or s3)")
			}

			fmt.Fprintln(cmd.OutOrStdout(), node.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "solarsync", "folder title")
	cmd.Flags().StringVar(&parentID, "parent", "root", "parent folder id (drive backend)")
	return cmd
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/interprelab/go-offline-cache/pkg/commands"
	"github.com/interprelab/go-offline-cache/pkg/offline"
)

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Pre-cache critical resources and API snapshots, then activate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := buildServices(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			var installed offline.InstallReport
			var activated offline.ActivateReport
			if err := svc.Commands.Install.Execute(ctx, commands.Install{Report: &installed, Activate: &activated}); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"state":    svc.Controller.State(),
				"install":  installed,
				"activate": activated,
			})
		},
	}
}

func newActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate",
		Short: "Delete caches from previous versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := buildServices(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			var report offline.ActivateReport
			if err := svc.Commands.Activate.Execute(ctx, commands.Activate{Report: &report}); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

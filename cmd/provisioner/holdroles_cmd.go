package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/crm-provisioner/modules/provision/services"
)

func newHoldRolesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hold-roles",
		Short: "Snapshot and restore a user's direct roles across destructive operations",
	}
	cmd.AddCommand(newHoldCmd())
	cmd.AddCommand(newRestoreCmd())
	return cmd
}

func newHoldCmd() *cobra.Command {
	var user, file string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Write the user's current direct roles to a snapshot file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := services.NewHoldRolesService(a.dir, a.lookups, a.roles, a.log)
			snapshot, err := svc.Hold(ctx, user, file)
			if err != nil {
				return withCode(exitDirectory, err)
			}
			fmt.Printf("Saved %d role(s) for %s to %s.\n", len(snapshot.Roles), user, file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Username, email or full name (required)")
	cmd.Flags().StringVarP(&file, "file", "f", "roles.yaml", "Snapshot file path")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newRestoreCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replay a role snapshot onto its user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := services.NewHoldRolesService(a.dir, a.lookups, a.roles, a.log)
			changes, err := svc.Restore(ctx, file)
			if err != nil {
				return withCode(exitDirectory, err)
			}
			fmt.Printf("Restored %d role(s); %d missing in scope.\n", len(changes.Added), len(changes.NotFound))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "roles.yaml", "Snapshot file path")
	return cmd
}

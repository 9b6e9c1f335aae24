package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/crm-provisioner/modules/provision/services"
)

func newCopyPermissionsCmd() *cobra.Command {
	var from, to string
	var scope services.CopyScope

	cmd := &cobra.Command{
		Use:   "copy-permissions",
		Short: "Replicate one user's business unit, teams and roles onto another",
		RunE: func(cmd *cobra.Command, args []string) error {
			// No selection flags means copy everything.
			if scope.Empty() {
				scope = services.CopyScope{BusinessUnit: true, Teams: true, Roles: true}
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := services.NewPermissionService(a.dir, a.lookups, a.roles, a.log)
			res, err := svc.Copy(ctx, from, to, scope)
			if err != nil {
				return withCode(exitDirectory, err)
			}
			fmt.Printf("Copied %s -> %s: bu changed %t, %d team(s) joined, %d role(s) added.\n",
				res.Source, res.Target, res.BuChanged, len(res.TeamsJoined), len(res.Roles.Added))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Source user (required)")
	cmd.Flags().StringVar(&to, "to", "", "Target user (required)")
	cmd.Flags().BoolVar(&scope.BusinessUnit, "bu", false, "Copy the business unit")
	cmd.Flags().BoolVar(&scope.Teams, "teams", false, "Copy team memberships")
	cmd.Flags().BoolVar(&scope.Roles, "roles", false, "Copy direct roles")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

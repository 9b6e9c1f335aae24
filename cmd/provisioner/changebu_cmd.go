package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/crm-provisioner/modules/provision/services"
)

func newChangeBuCmd() *cobra.Command {
	var user string
	var bu string

	cmd := &cobra.Command{
		Use:   "change-bu",
		Short: "Move a user to another business unit, keeping their roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := services.NewChangeBuService(a.dir, a.lookups, a.roles, a.log)
			res, err := svc.ChangeBu(ctx, user, bu)
			if err != nil {
				return withCode(exitDirectory, err)
			}
			if res.FromBu == res.ToBu {
				fmt.Printf("%s already belongs to %q.\n", user, bu)
				return nil
			}
			fmt.Printf("%s moved from %q to %q; %d role(s) restored", user, res.FromBu, res.ToBu, len(res.RestoredRoles.Added))
			if len(res.RestoredRoles.NotFound) > 0 {
				fmt.Printf(", %d missing in the new scope", len(res.RestoredRoles.NotFound))
			}
			fmt.Println(".")
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Username, email or full name (required)")
	cmd.Flags().StringVarP(&bu, "bu", "b", "", "Destination business-unit name (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("bu")
	return cmd
}

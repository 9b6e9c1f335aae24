package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/crm-provisioner/modules/provision/services"
)

func newUserInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user-info <username>",
		Short: "Show a user's placement, teams and direct roles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := services.NewUserInfoService(a.lookups)
			info, err := svc.Describe(ctx, args[0])
			if err != nil {
				return withCode(exitDirectory, err)
			}

			kind := "external"
			if info.Internal {
				kind = "internal"
			}
			status := "enabled"
			if info.User.Disabled {
				status = "disabled"
			}
			fmt.Printf("%s <%s> (%s, %s)\n", info.User.FullName, info.User.DomainName, kind, status)
			fmt.Printf("Business unit: %s\n", info.User.BusinessUnit.Name)
			fmt.Printf("Teams (%d):\n", len(info.Teams))
			for _, team := range info.Teams {
				fmt.Printf("  - %s\n", team.Name)
			}
			fmt.Printf("Roles (%d):\n", len(info.Roles))
			for _, role := range info.Roles {
				fmt.Printf("  - %s\n", role.Name)
			}
			return nil
		},
	}
	return cmd
}

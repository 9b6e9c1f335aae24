package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iota-uz/crm-provisioner/modules/provision/services"
)

func newNormalizeCmd() *cobra.Command {
	var resco bool

	cmd := &cobra.Command{
		Use:   "normalize-user <username>...",
		Short: "Apply the baseline region, roles and shared teams to users",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := services.NewNormalizeService(a.dir, a.lookups, a.roles, a.defaults, a.log)
			failures := 0
			for _, username := range args {
				res, err := svc.Normalize(ctx, username, resco)
				if err != nil {
					failures++
					fmt.Fprintf(os.Stderr, "%s: %v\n", username, err)
					continue
				}
				kind := "external"
				if res.Internal {
					kind = "internal"
				}
				fmt.Printf("%s (%s, %s): %d role(s) added, %d team(s) joined.\n",
					username, kind, res.Region.Name, len(res.Roles.Added), len(res.TeamsJoined))
			}
			if failures > 0 {
				return withCode(exitDirectory, fmt.Errorf("%d user(s) failed", failures))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&resco, "resco", false, "Also enroll in the inspections team and role")
	return cmd
}

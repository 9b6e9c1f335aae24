package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/plan"
	"github.com/iota-uz/crm-provisioner/modules/provision/services"
)

func newOnboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign-new-team",
		Short: "Attach existing park users to the teams created from the Create Teams sheet",
		Long: "For each valid Create Teams row, collects the park's users (business " +
			"unit plus umbrella team), adds every active one to the new contractor " +
			"team, and moves users named after the contractor into the new business " +
			"unit. Run this after 'create'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := a.workbook.TeamRows()
			if err != nil {
				return withCode(exitWorkbook, err)
			}
			valid, rowErrs := plan.ValidateRows(plan.NewRowValidator(), rows, a.defaults)
			for _, re := range rowErrs {
				fmt.Fprintln(os.Stderr, re.Error())
			}
			if len(valid) == 0 {
				return withCode(exitUsage, fmt.Errorf("no valid rows in %q", a.cfg.WorkbookPath))
			}

			// Park users were just enrolled by create; the gate would block
			// everyone who is new to the umbrella team.
			membership := services.NewMembershipService(a.dir, a.lookups, services.AutoEnrollUmbrella, services.UmbrellaByTruncation, a.log)
			changeBu := services.NewChangeBuService(a.dir, a.lookups, a.roles, a.log)
			svc := services.NewOnboardService(a.dir, a.lookups, membership, changeBu, a.log)

			failures := 0
			for _, row := range valid {
				data := plan.Derive(row, a.defaults)
				res, err := svc.Onboard(ctx, data)
				if err != nil {
					failures++
					fmt.Fprintf(os.Stderr, "%s: %v\n", data.Bu, err)
					continue
				}
				added := 0
				for _, assignment := range res.Assignments {
					if assignment.Status == services.MemberAdded {
						added++
					}
				}
				for user, moveErr := range res.MoveErrs {
					fmt.Fprintf(os.Stderr, "%s: move of %s failed: %v\n", data.Bu, user, moveErr)
				}
				fmt.Printf("%s: %d user(s) seen, %d added to %s, %d moved.\n",
					data.Bu, len(res.Assignments), added, data.StandardTeamName, len(res.Moves))
			}
			if failures > 0 {
				return withCode(exitDirectory, fmt.Errorf("%d row(s) failed", failures))
			}
			return nil
		},
	}
	return cmd
}

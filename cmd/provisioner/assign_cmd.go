package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/plan"
	"github.com/iota-uz/crm-provisioner/modules/provision/services"
	"github.com/iota-uz/crm-provisioner/pkg/batch"
)

func newAssignCmd() *cobra.Command {
	var autoEnroll bool
	var bySiteCode bool

	cmd := &cobra.Command{
		Use:   "assign-teams",
		Short: "Add users to contractor teams from the Assign Teams sheet",
		Long: "Adds each user of the Assign Teams sheet to their target team. " +
			"Users must already belong to the park's umbrella team unless " +
			"--auto-enroll is given, in which case they are enrolled first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := a.workbook.AssignmentRows()
			if err != nil {
				return withCode(exitWorkbook, err)
			}
			if len(rows) == 0 {
				return withCode(exitUsage, fmt.Errorf("no assignment rows in %q", a.cfg.WorkbookPath))
			}

			policy := services.RequireUmbrella
			if autoEnroll {
				policy = services.AutoEnrollUmbrella
			}
			strategy := services.UmbrellaByTruncation
			if bySiteCode {
				strategy = services.UmbrellaBySiteCode
			}

			membership := services.NewMembershipService(a.dir, a.lookups, policy, strategy, a.log)
			svc := services.NewAssignService(membership, newRunner[plan.AssignmentRow, services.MembershipResult](a), a.log)

			outcomes := svc.AssignAll(ctx, rows)
			counts := map[services.MembershipStatus]int{}
			for _, o := range outcomes {
				if o.Status != batch.Succeeded {
					fmt.Fprintf(os.Stderr, "%s -> %s: %v\n", o.Item.Username, o.Item.Team, o.Err)
					continue
				}
				counts[o.Result.Status]++
				if o.Result.Status != services.MemberAdded && o.Result.Status != services.AlreadyMember {
					fmt.Fprintf(os.Stderr, "%s -> %s: %s\n", o.Item.Username, o.Item.Team, o.Result.Status)
				}
			}
			fmt.Printf("Added %d, already members %d, other %d of %d row(s).\n",
				counts[services.MemberAdded],
				counts[services.AlreadyMember],
				len(outcomes)-counts[services.MemberAdded]-counts[services.AlreadyMember],
				len(outcomes))
			return nil
		},
	}

	cmd.Flags().BoolVar(&autoEnroll, "auto-enroll", false, "Enroll users in the umbrella team when missing")
	cmd.Flags().BoolVar(&bySiteCode, "umbrella-by-site", false, "Derive the umbrella team from the site code instead of name truncation")
	return cmd
}

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/plan"
	"github.com/iota-uz/crm-provisioner/modules/provision/services"
	"github.com/iota-uz/crm-provisioner/pkg/batch"
)

func newCreateCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create business units and teams from the Create Teams sheet",
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

			fmt.Printf("About to provision %d row(s) (%d skipped).\n", len(valid), len(rowErrs))
			if !yes && !confirm("Continue? [y/N] ") {
				fmt.Println("Aborted.")
				return nil
			}

			bus := services.NewBusinessUnitService(a.dir, a.lookups, a.log)
			teams := services.NewTeamService(a.dir, a.lookups, a.roles, a.log)
			svc := services.NewProvisionService(bus, teams, a.defaults, newRunner[plan.TeamData, services.RowResult](a), a.log)

			outcomes := svc.Provision(ctx, valid)
			failed := batch.Failures(outcomes)
			for _, o := range failed {
				fmt.Fprintf(os.Stderr, "%s: %v\n", o.Item.Bu, o.Err)
			}
			fmt.Printf("Provisioned %d/%d row(s).\n", len(outcomes)-len(failed), len(outcomes))
			if len(failed) > 0 {
				return withCode(exitDirectory, fmt.Errorf("%d row(s) failed", len(failed)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

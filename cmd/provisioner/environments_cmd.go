package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/crm-provisioner/modules/provision/infrastructure/spreadsheet"
	"github.com/iota-uz/crm-provisioner/pkg/configuration"
)

func newEnvironmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "environments",
		Short: "List the environments configured in the workbook's Login sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configuration.Use()
			workbook, err := spreadsheet.Open(cfg.WorkbookPath)
			if err != nil {
				return withCode(exitWorkbook, err)
			}
			defer func() { _ = workbook.Close() }()

			active := cfg.Environment()
			for _, environment := range []configuration.Environment{configuration.Dev, configuration.Pre, configuration.Prd} {
				conn, err := workbook.Connection(environment)
				if err != nil {
					fmt.Printf("%-4s (not configured)\n", environment)
					continue
				}
				marker := " "
				if environment == active {
					marker = "*"
				}
				fmt.Printf("%s %-4s %s\n", marker, environment, conn.URL)
			}
			return nil
		},
	}
	return cmd
}

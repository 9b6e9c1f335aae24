package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "provisioner",
		Short:         "Provision contractor business units, teams and users in the CRM directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("env", "", "Target environment (dev|pre|prd); overrides CRM_ENVIRONMENT")

	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newExtractCmd())
	cmd.AddCommand(newAssignCmd())
	cmd.AddCommand(newOnboardCmd())
	cmd.AddCommand(newChangeBuCmd())
	cmd.AddCommand(newNormalizeCmd())
	cmd.AddCommand(newCopyPermissionsCmd())
	cmd.AddCommand(newHoldRolesCmd())
	cmd.AddCommand(newUserInfoCmd())
	cmd.AddCommand(newEnvironmentsCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}

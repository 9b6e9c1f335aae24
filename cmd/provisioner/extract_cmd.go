package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/crm-provisioner/modules/provision/services"
)

func newExtractCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "extract-users <site-code>...",
		Short: "Export the members of every contractor team under a park",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			dir := outDir
			if dir == "" {
				dir = a.cfg.ExportDir
			}
			svc := services.NewExtractService(a.dir, a.lookups, dir, a.log)

			for _, siteCode := range args {
				res, err := svc.ExtractUsers(ctx, siteCode)
				if err != nil {
					return withCode(exitDirectory, err)
				}
				fmt.Printf("%s: %d user(s) -> %s\n", res.Park, res.Users, res.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for the export workbooks (default EXPORT_DIR)")
	return cmd
}

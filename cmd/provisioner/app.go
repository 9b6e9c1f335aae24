package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
	"github.com/iota-uz/crm-provisioner/modules/provision/domain/plan"
	"github.com/iota-uz/crm-provisioner/modules/provision/infrastructure/dataverse"
	"github.com/iota-uz/crm-provisioner/modules/provision/infrastructure/spreadsheet"
	"github.com/iota-uz/crm-provisioner/modules/provision/services"
	"github.com/iota-uz/crm-provisioner/pkg/batch"
	"github.com/iota-uz/crm-provisioner/pkg/configuration"
)

// app bundles everything a subcommand needs: parsed configuration, the
// control workbook, a connected directory client and the shared services.
type app struct {
	cfg      *configuration.Configuration
	log      *logrus.Entry
	defaults plan.Defaults
	workbook *spreadsheet.Workbook
	dir      directory.Service
	lookups  *services.LookupService
	roles    *services.RoleService
}

// newApp wires the application for one command invocation. The --env flag
// overrides the configured environment; the workbook's Login sheet supplies
// the instance URL for whichever environment wins.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg := configuration.Use()
	log := logrus.NewEntry(cfg.Logger())

	environment := cfg.Environment()
	if override, _ := cmd.Flags().GetString("env"); override != "" {
		parsed, err := configuration.ParseEnvironment(override)
		if err != nil {
			return nil, withCode(exitUsage, err)
		}
		environment = parsed
	}

	defaults, err := plan.LoadDefaults(cfg.DefaultsPath)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}

	workbook, err := spreadsheet.Open(cfg.WorkbookPath)
	if err != nil {
		return nil, withCode(exitWorkbook, err)
	}

	conn, err := workbook.Connection(environment)
	if err != nil {
		_ = workbook.Close()
		return nil, withCode(exitWorkbook, err)
	}

	clientID := cfg.OAuth.ClientID
	if clientID == "" {
		clientID = conn.AppID
	}
	session := dataverse.NewSession(dataverse.Options{
		BaseURL:      conn.URL,
		TenantID:     cfg.OAuth.TenantID,
		ClientID:     clientID,
		ClientSecret: cfg.OAuth.ClientSecret,
	}, log)
	dir, err := session.Connect(ctx)
	if err != nil {
		_ = workbook.Close()
		return nil, withCode(exitDirectory, err)
	}

	lookups := services.NewLookupService(dir)
	return &app{
		cfg:      cfg,
		log:      log.WithField("env", string(environment)),
		defaults: defaults,
		workbook: workbook,
		dir:      dir,
		lookups:  lookups,
		roles:    services.NewRoleService(dir, lookups, log),
	}, nil
}

func (a *app) Close() {
	if a.workbook != nil {
		_ = a.workbook.Close()
	}
}

// newRunner builds a batch runner from the configured pacing.
func newRunner[T, R any](a *app) *batch.Runner[T, R] {
	r := batch.New[T, R](a.log)
	b := a.cfg.Batch
	if b.Size > 0 {
		r.BatchSize = b.Size
	}
	if b.MaxRetries > 0 {
		r.MaxRetries = b.MaxRetries
	}
	r.RetryDelay = b.RetryDelay
	r.ItemDelay = b.ItemDelay
	r.BatchDelay = b.BatchDelay
	r.AttemptTimeout = b.AttemptTimeout
	return r
}

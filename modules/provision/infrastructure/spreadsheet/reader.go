// Package spreadsheet reads the control workbook and writes the user-export
// workbooks. All worksheet quirks (merged whitespace, stray words, empty
// tails) are repaired here so the domain only ever sees clean rows.
package spreadsheet

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/plan"
	"github.com/iota-uz/crm-provisioner/pkg/configuration"
)

// Worksheet names in the control workbook.
const (
	loginSheet       = "Login"
	createTeamsSheet = "Create Teams"
	assignTeamsSheet = "Assign Teams"
)

// Connection is one environment row of the Login sheet.
type Connection struct {
	Environment configuration.Environment
	URL         string
	Username    string
	AppID       string
	RedirectURI string
	AuthType    string
}

// Workbook is an open control workbook.
type Workbook struct {
	file *excelize.File
}

// Open loads the control workbook from disk.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open workbook %s", path)
	}
	return &Workbook{file: f}, nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// Connection returns the Login-sheet row for the environment. Rows are laid
// out one environment per row: name, url, username, appId, redirectUri,
// authType.
func (w *Workbook) Connection(environment configuration.Environment) (Connection, error) {
	rows, err := w.file.GetRows(loginSheet)
	if err != nil {
		return Connection{}, errors.Wrapf(err, "read sheet %q", loginSheet)
	}
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(cell(row, 0)))
		if name != string(environment) {
			continue
		}
		conn := Connection{
			Environment: environment,
			URL:         strings.TrimSpace(cell(row, 1)),
			Username:    strings.TrimSpace(cell(row, 2)),
			AppID:       strings.TrimSpace(cell(row, 3)),
			RedirectURI: strings.TrimSpace(cell(row, 4)),
			AuthType:    strings.TrimSpace(cell(row, 5)),
		}
		if conn.URL == "" {
			return Connection{}, errors.Errorf("login row for %q has no URL", environment)
		}
		return conn, nil
	}
	return Connection{}, errors.Errorf("no login row for environment %q", environment)
}

// TeamRows reads the Create Teams sheet. Each code cell keeps only its
// first whitespace-separated word; rows whose cells are all empty are
// skipped rather than treated as errors. Validation happens downstream.
func (w *Workbook) TeamRows() ([]plan.TeamRow, error) {
	rows, err := w.file.GetRows(createTeamsSheet)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", createTeamsSheet)
	}
	out := make([]plan.TeamRow, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		r := plan.TeamRow{
			SiteCode:       firstWord(cell(row, 0)),
			ContractorCode: firstWord(cell(row, 1)),
			PlannerGroup:   firstWord(cell(row, 2)),
			PlanningCenter: firstWord(cell(row, 3)),
			ContractorName: strings.TrimSpace(cell(row, 4)),
		}
		if r.SiteCode == "" && r.ContractorCode == "" && r.PlannerGroup == "" &&
			r.PlanningCenter == "" && r.ContractorName == "" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// AssignmentRows reads the Assign Teams sheet. Usernames lose all embedded
// spaces; team names get runs of whitespace collapsed to single spaces.
func (w *Workbook) AssignmentRows() ([]plan.AssignmentRow, error) {
	rows, err := w.file.GetRows(assignTeamsSheet)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", assignTeamsSheet)
	}
	out := make([]plan.AssignmentRow, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		username := strings.Join(strings.Fields(cell(row, 0)), "")
		team := strings.Join(strings.Fields(cell(row, 1)), " ")
		if username == "" && team == "" {
			continue
		}
		out = append(out, plan.AssignmentRow{Username: username, Team: team})
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

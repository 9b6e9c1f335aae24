package services

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
	"github.com/iota-uz/crm-provisioner/modules/provision/domain/naming"
	"github.com/iota-uz/crm-provisioner/modules/provision/infrastructure/spreadsheet"
)

// ExtractService exports the members of every contractor team under a park
// into one workbook per park.
type ExtractService struct {
	dir       directory.Service
	lookups   *LookupService
	exportDir string
	log       *logrus.Entry
}

func NewExtractService(dir directory.Service, lookups *LookupService, exportDir string, log *logrus.Entry) *ExtractService {
	return &ExtractService{dir: dir, lookups: lookups, exportDir: exportDir, log: log}
}

// ExtractResult reports one written workbook.
type ExtractResult struct {
	Park  string
	Path  string
	Users int
}

// ExtractUsers finds every contractor team whose name starts with the
// park's standard-team prefix, collects the members, and writes the export
// workbook. Team names are the source of truth; the park is identified by
// its site code.
func (s *ExtractService) ExtractUsers(ctx context.Context, siteCode string) (ExtractResult, error) {
	prefix := naming.StandardTeamName(siteCode)
	entities, err := s.dir.FindMany(ctx, directory.KindTeam,
		directory.Where(directory.StartsWith(directory.AttrName, prefix)))
	if err != nil {
		return ExtractResult{}, errors.Wrapf(err, "teams of park %q", siteCode)
	}
	if len(entities) == 0 {
		return ExtractResult{}, errors.Wrapf(directory.ErrNotFound, "no contractor teams under %q", siteCode)
	}

	rows := make([]spreadsheet.ExportUser, 0)
	seen := map[string]bool{}
	appendUser := func(user directory.User, teamName string) {
		key := user.DomainName + "\x00" + teamName
		if user.Disabled || seen[key] {
			return
		}
		seen[key] = true
		rows = append(rows, spreadsheet.ExportUser{
			YomiFullName: user.YomiFullName,
			DomainName:   user.DomainName,
			BusinessUnit: user.BusinessUnit.Name,
			Team:         teamName,
		})
	}

	for _, e := range entities {
		team := directory.TeamView(e)
		members, err := s.lookups.TeamMembers(ctx, directory.Ref{Kind: directory.KindTeam, ID: team.ID, Name: team.Name})
		if err != nil {
			return ExtractResult{}, err
		}
		for _, user := range members {
			appendUser(user, team.Name)
		}
	}

	// Users hung directly under the park business unit belong in the export
	// even when no contractor team lists them yet.
	if bu, found, err := s.lookups.BusinessUnit(ctx, siteCode); err != nil {
		return ExtractResult{}, err
	} else if found {
		direct, err := s.lookups.BusinessUnitMembers(ctx, directory.Ref{Kind: directory.KindBusinessUnit, ID: bu.ID, Name: bu.Name})
		if err != nil {
			return ExtractResult{}, err
		}
		for _, user := range direct {
			appendUser(user, "")
		}
	}

	fileName := strings.ReplaceAll(strings.TrimSpace(siteCode), " ", "_") + "_users.xlsx"
	path, err := spreadsheet.WriteUserExport(s.exportDir, fileName, rows)
	if err != nil {
		return ExtractResult{}, err
	}
	s.log.WithFields(logrus.Fields{"park": siteCode, "users": len(rows), "path": path}).Info("users exported")
	return ExtractResult{Park: siteCode, Path: path, Users: len(rows)}, nil
}

package spreadsheet

import (
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
)

// ExportUser is one row of a per-park user extraction workbook.
type ExportUser struct {
	YomiFullName string
	DomainName   string
	BusinessUnit string
	Team         string
}

var exportHeader = []string{"Yomi Full Name", "Domain Name", "Business Unit", "Team"}

// WriteUserExport writes the extraction workbook for one park into dir and
// returns the full path.
func WriteUserExport(dir, fileName string, users []ExportUser) (string, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for col, title := range exportHeader {
		axis, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", errors.Wrap(err, "header cell name")
		}
		if err := f.SetCellValue(sheet, axis, title); err != nil {
			return "", errors.Wrap(err, "write header")
		}
	}

	for i, user := range users {
		row := i + 2
		values := []string{user.YomiFullName, user.DomainName, user.BusinessUnit, user.Team}
		for col, value := range values {
			axis, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return "", errors.Wrap(err, "data cell name")
			}
			if err := f.SetCellValue(sheet, axis, value); err != nil {
				return "", errors.Wrapf(err, "write row %d", row)
			}
		}
	}

	path := filepath.Join(dir, fileName)
	if err := f.SaveAs(path); err != nil {
		return "", errors.Wrapf(err, "save export %s", path)
	}
	return path, nil
}

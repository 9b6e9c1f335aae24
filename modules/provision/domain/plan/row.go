// Package plan models the desired state derived from the control workbook:
// validated team rows, the records the reconcilers consume, and the region
// defaults (administrators, role sets, normalizer teams) that parameterize
// provisioning.
package plan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// TeamRow is one raw row of the "Create Teams" worksheet after cell-level
// cleanup (trimming, first-word collapsing, uppercasing of the code columns).
type TeamRow struct {
	// SiteCode is the park site code, e.g. 0-ES-ZGZ-01.
	SiteCode string `validate:"required,site_code"`
	// ContractorCode is the 8-character SAP contractor code.
	ContractorCode string `validate:"required,len=8"`
	// PlannerGroup is ZP followed by one character; ZP1 is the default group.
	PlannerGroup string `validate:"required,planner_group"`
	// PlanningCenter is the 4-character planning-center name.
	PlanningCenter string `validate:"required,len=4"`
	// ContractorName is the contractor's display name, free text.
	ContractorName string `validate:"required"`
}

// CountryCode is the second dash-separated segment of the site code.
func (r TeamRow) CountryCode() string {
	parts := strings.Split(r.SiteCode, "-")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// RowError reports a row excluded by validation. Reported once, never
// retried; the run continues with the remaining rows.
type RowError struct {
	// Line is the 1-based worksheet row number.
	Line   int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
}

var (
	siteCodePattern     = regexp.MustCompile(`^\d-[A-Z]{2}-[A-Z0-9]{3}-\d{2}$`)
	plannerGroupPattern = regexp.MustCompile(`^ZP[A-Za-z0-9]$`)
)

// NewRowValidator builds the validator with the workbook's naming-pattern
// checks registered.
func NewRowValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for empty tags; these are static.
	_ = v.RegisterValidation("site_code", func(fl validator.FieldLevel) bool {
		return siteCodePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("planner_group", func(fl validator.FieldLevel) bool {
		return plannerGroupPattern.MatchString(fl.Field().String())
	})
	return v
}

// rowReason maps a failed validation back to the operator-facing message.
func rowReason(err validator.FieldError) string {
	switch err.Field() {
	case "SiteCode":
		return "site code must be in the format '0-XX-XXX-00' where X is a letter and 0 is any digit"
	case "ContractorCode":
		return "contractor code must contain exactly 8 characters"
	case "PlannerGroup":
		return "planner group must start with 'ZP' followed by a single character"
	case "PlanningCenter":
		return "planning center must contain exactly 4 characters"
	case "ContractorName":
		return "contractor name must not be empty"
	}
	return err.Error()
}

// ValidateRows normalizes and validates the raw rows. EU rows that pass all
// pattern checks are returned; failing EU rows and non-EU rows are reported
// through errs with their worksheet line numbers. Rows are numbered from 2,
// the first data row under the header.
func ValidateRows(v *validator.Validate, rows []TeamRow, defaults Defaults) (valid []TeamRow, errs []RowError) {
	for i, row := range rows {
		line := i + 2

		row.SiteCode = strings.ToUpper(row.SiteCode)
		row.ContractorCode = strings.ToUpper(row.ContractorCode)
		row.PlannerGroup = strings.ToUpper(row.PlannerGroup)

		country := row.CountryCode()
		switch {
		case defaults.IsEUCountry(country):
			if err := v.Struct(row); err != nil {
				reasons := make([]string, 0, 1)
				var fieldErrs validator.ValidationErrors
				if ok := asValidationErrors(err, &fieldErrs); ok {
					for _, fe := range fieldErrs {
						reasons = append(reasons, rowReason(fe))
					}
				} else {
					reasons = append(reasons, err.Error())
				}
				errs = append(errs, RowError{Line: line, Reason: strings.Join(reasons, "; ")})
				continue
			}
			valid = append(valid, row)
		case defaults.IsNACountry(country):
			errs = append(errs, RowError{Line: line, Reason: "NA country code, row skipped (EU-only flow)"})
		default:
			errs = append(errs, RowError{Line: line, Reason: fmt.Sprintf("invalid country code %q", country)})
		}
	}
	return valid, errs
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	v, ok := err.(validator.ValidationErrors)
	if ok {
		*target = v
	}
	return ok
}

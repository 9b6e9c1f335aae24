package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/plan"
	"github.com/iota-uz/crm-provisioner/pkg/batch"
)

// RowResult is the outcome of provisioning one worksheet row end to end.
type RowResult struct {
	Data  plan.TeamData
	Bu    BuResult
	Teams []TeamResult
}

// ProvisionService drives the create flow: validated rows in, business
// units and teams reconciled out, paced through the batch runner so a long
// workbook neither floods the API nor dies on one flaky row.
type ProvisionService struct {
	bus      *BusinessUnitService
	teams    *TeamService
	defaults plan.Defaults
	runner   *batch.Runner[plan.TeamData, RowResult]
	log      *logrus.Entry
}

func NewProvisionService(
	bus *BusinessUnitService,
	teams *TeamService,
	defaults plan.Defaults,
	runner *batch.Runner[plan.TeamData, RowResult],
	log *logrus.Entry,
) *ProvisionService {
	return &ProvisionService{bus: bus, teams: teams, defaults: defaults, runner: runner, log: log}
}

// Provision reconciles every row and reports one outcome per row. Row
// failures are isolated; the runner retries transient ones and the caller
// gets the final per-row record either way.
func (s *ProvisionService) Provision(ctx context.Context, rows []plan.TeamRow) []batch.Outcome[plan.TeamData, RowResult] {
	targets := make([]plan.TeamData, 0, len(rows))
	for _, row := range rows {
		targets = append(targets, plan.Derive(row, s.defaults))
	}
	return s.runner.Run(ctx, targets, s.provisionOne)
}

func (s *ProvisionService) provisionOne(ctx context.Context, data plan.TeamData) (RowResult, error) {
	result := RowResult{Data: data}

	bu, err := s.bus.Reconcile(ctx, data)
	if err != nil {
		return result, err
	}
	result.Bu = bu

	for _, spec := range data.Teams(s.defaults) {
		team, err := s.teams.Reconcile(ctx, spec, bu.Ref)
		if err != nil {
			return result, err
		}
		result.Teams = append(result.Teams, team)
	}

	s.log.WithFields(logrus.Fields{
		"bu":    data.Bu,
		"teams": len(result.Teams),
	}).Info("row provisioned")
	return result, nil
}

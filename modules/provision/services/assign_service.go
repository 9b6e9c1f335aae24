package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/plan"
	"github.com/iota-uz/crm-provisioner/pkg/batch"
)

// AssignService runs the bulk team-assignment flow over worksheet rows,
// caching terminal per-user failures so a user who cannot be processed is
// not retried for every one of their rows.
type AssignService struct {
	membership *MembershipService
	runner     *batch.Runner[plan.AssignmentRow, MembershipResult]
	log        *logrus.Entry
}

func NewAssignService(membership *MembershipService, runner *batch.Runner[plan.AssignmentRow, MembershipResult], log *logrus.Entry) *AssignService {
	return &AssignService{membership: membership, runner: runner, log: log}
}

// AssignAll processes every assignment row. Users already known to be
// unusable (not found or disabled) are short-circuited without another
// directory round trip.
func (s *AssignService) AssignAll(ctx context.Context, rows []plan.AssignmentRow) []batch.Outcome[plan.AssignmentRow, MembershipResult] {
	skip := make(map[string]MembershipStatus)

	return s.runner.Run(ctx, rows, func(ctx context.Context, row plan.AssignmentRow) (MembershipResult, error) {
		if status, ok := skip[row.Username]; ok {
			s.log.WithFields(logrus.Fields{
				"user":   row.Username,
				"status": status,
			}).Debug("skipping user with known terminal status")
			return MembershipResult{Username: row.Username, Team: row.Team, Status: status}, nil
		}

		res, err := s.membership.AssignUser(ctx, row.Username, row.Team)
		if res.Status == UserNotFound || res.Status == UserDisabled {
			skip[row.Username] = res.Status
		}
		return res, err
	})
}

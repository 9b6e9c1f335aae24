package services

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
	"github.com/iota-uz/crm-provisioner/modules/provision/domain/plan"
)

// OnboardResult reports one park rollout: the membership outcome for every
// park user and the business-unit moves applied to the contractor's own
// people.
type OnboardResult struct {
	Data        plan.TeamData
	Assignments []MembershipResult
	Moves       []ChangeBuResult
	// MoveErrs holds per-user move failures; a failed move never stops the
	// remaining users.
	MoveErrs map[string]error
}

// OnboardService attaches a park's existing contractor users to a freshly
// provisioned contractor team. Every active user found under the park joins
// the new standard team; users whose full name carries the contractor's name
// also move into the new business unit and leave the umbrella team, since
// the new unit becomes their home.
type OnboardService struct {
	dir        directory.Service
	lookups    *LookupService
	membership *MembershipService
	changeBu   *ChangeBuService
	log        *logrus.Entry
}

func NewOnboardService(
	dir directory.Service,
	lookups *LookupService,
	membership *MembershipService,
	changeBu *ChangeBuService,
	log *logrus.Entry,
) *OnboardService {
	return &OnboardService{dir: dir, lookups: lookups, membership: membership, changeBu: changeBu, log: log}
}

// Onboard runs the rollout for one derived row. The park business unit and
// its umbrella team must already exist; the standard team is expected from a
// prior create run and surfaces as TargetTeamNotFound per user if missing.
func (s *OnboardService) Onboard(ctx context.Context, data plan.TeamData) (OnboardResult, error) {
	res := OnboardResult{Data: data, MoveErrs: map[string]error{}}

	umbrella, found, err := s.lookups.Team(ctx, data.UmbrellaTeam)
	if err != nil {
		return res, err
	}
	if !found {
		return res, errors.Wrapf(directory.ErrPrerequisiteNotFound, "umbrella team %q", data.UmbrellaTeam)
	}
	umbrellaRef := directory.Ref{Kind: directory.KindTeam, ID: umbrella.ID, Name: umbrella.Name}

	users, err := s.parkUsers(ctx, data.ParentBu, umbrellaRef)
	if err != nil {
		return res, err
	}

	for _, user := range users {
		if user.Disabled {
			res.Assignments = append(res.Assignments, MembershipResult{
				Username: user.DomainName,
				Team:     data.StandardTeamName,
				Status:   UserDisabled,
			})
			continue
		}

		assignment, err := s.membership.AssignUser(ctx, user.DomainName, data.StandardTeamName)
		res.Assignments = append(res.Assignments, assignment)
		if err != nil {
			s.log.WithError(err).WithField("user", user.DomainName).Warn("assignment failed, user skipped")
			continue
		}

		if !contractorStaff(user.FullName, data.ContractorName) {
			continue
		}
		move, err := s.changeBu.ChangeBu(ctx, user.DomainName, data.Bu)
		if err != nil {
			res.MoveErrs[user.DomainName] = err
			s.log.WithError(err).WithField("user", user.DomainName).Warn("business-unit move failed")
			continue
		}
		userRef := directory.Ref{Kind: directory.KindUser, ID: user.ID, Name: user.FullName}
		if err := s.dir.Disassociate(ctx, umbrellaRef, directory.RelTeamMembership, userRef); err != nil {
			res.MoveErrs[user.DomainName] = errors.Wrap(err, "leave umbrella team")
			continue
		}
		res.Moves = append(res.Moves, move)
	}

	s.log.WithFields(logrus.Fields{
		"park":     data.SiteCode,
		"users":    len(res.Assignments),
		"moves":    len(res.Moves),
		"failures": len(res.MoveErrs),
	}).Info("park rollout finished")
	return res, nil
}

// parkUsers is the union of the park business unit's direct users and the
// umbrella team's members, in discovery order without duplicates.
func (s *OnboardService) parkUsers(ctx context.Context, parkBu string, umbrella directory.Ref) ([]directory.User, error) {
	bu, found, err := s.lookups.BusinessUnit(ctx, parkBu)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Wrapf(directory.ErrPrerequisiteNotFound, "business unit %q", parkBu)
	}
	buRef := directory.Ref{Kind: directory.KindBusinessUnit, ID: bu.ID, Name: bu.Name}

	direct, err := s.lookups.BusinessUnitMembers(ctx, buRef)
	if err != nil {
		return nil, err
	}
	members, err := s.lookups.TeamMembers(ctx, umbrella)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(direct)+len(members))
	users := make([]directory.User, 0, len(direct)+len(members))
	for _, u := range append(direct, members...) {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		users = append(users, u)
	}
	return users, nil
}

// contractorStaff matches the contractor's own employees by name, the only
// signal the worksheet carries.
func contractorStaff(fullName, contractorName string) bool {
	c := strings.TrimSpace(contractorName)
	if c == "" {
		return false
	}
	return strings.Contains(strings.ToUpper(fullName), strings.ToUpper(c))
}

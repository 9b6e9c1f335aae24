package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
	"github.com/iota-uz/crm-provisioner/modules/provision/domain/naming"
)

// MembershipStatus is the terminal state of one assignment attempt. Every
// attempt ends in exactly one of these; nothing is reported as a bare error
// unless the directory itself failed.
type MembershipStatus string

const (
	MemberAdded          MembershipStatus = "added"
	AlreadyMember        MembershipStatus = "already-member"
	UserNotFound         MembershipStatus = "user-not-found"
	TargetTeamNotFound   MembershipStatus = "target-team-not-found"
	UmbrellaTeamNotFound MembershipStatus = "umbrella-team-not-found"
	GateNotSatisfied     MembershipStatus = "gate-not-satisfied"
	UserDisabled         MembershipStatus = "user-disabled"
	AssociationFailed    MembershipStatus = "association-failed"
)

// GatePolicy decides what happens when the user is not yet in the site's
// umbrella team.
type GatePolicy int

const (
	// RequireUmbrella refuses the assignment until someone enrolls the user
	// in the umbrella team.
	RequireUmbrella GatePolicy = iota
	// AutoEnrollUmbrella enrolls the user in the umbrella team first, then
	// proceeds with the target team.
	AutoEnrollUmbrella
)

// UmbrellaStrategy derives the umbrella-team name from the target team name.
type UmbrellaStrategy int

const (
	// UmbrellaByTruncation keeps the target name up to and including the
	// second contractor token. Matches how umbrella teams are named from
	// contractor teams, planner-group qualifier included.
	UmbrellaByTruncation UmbrellaStrategy = iota
	// UmbrellaBySiteCode rebuilds the name from the park site code alone,
	// collapsing planner-group variants onto the one park umbrella.
	UmbrellaBySiteCode
)

// MembershipResult records one assignment attempt.
type MembershipResult struct {
	Username string
	Team     string
	Status   MembershipStatus
	// Umbrella is the derived umbrella-team name, set whenever the gate was
	// evaluated.
	Umbrella string
	Err      error
}

// MembershipService adds users to contractor teams behind the umbrella-team
// gate: a user may only join a park's contractor team once they belong to
// the park's umbrella team.
type MembershipService struct {
	dir      directory.Service
	lookups  *LookupService
	policy   GatePolicy
	strategy UmbrellaStrategy
	log      *logrus.Entry
}

func NewMembershipService(dir directory.Service, lookups *LookupService, policy GatePolicy, strategy UmbrellaStrategy, log *logrus.Entry) *MembershipService {
	return &MembershipService{dir: dir, lookups: lookups, policy: policy, strategy: strategy, log: log}
}

// UmbrellaName derives the umbrella-team name for a target team.
func (s *MembershipService) UmbrellaName(teamName string) string {
	if s.strategy == UmbrellaBySiteCode {
		stripped := naming.StripStandardTeamPrefix(teamName)
		return naming.UmbrellaTeamName(naming.LeadingSiteCode(stripped))
	}
	return naming.MasterDataTeamName(teamName)
}

// AssignUser walks the gated state machine for one username/team pair. The
// returned result always has a terminal status; err is non-nil only for
// directory failures that are worth retrying.
func (s *MembershipService) AssignUser(ctx context.Context, username, teamName string) (MembershipResult, error) {
	res := MembershipResult{Username: username, Team: teamName}

	user, found, err := s.lookups.User(ctx, username)
	if err != nil {
		return res, err
	}
	if !found {
		res.Status = UserNotFound
		return res, nil
	}
	if user.Disabled {
		res.Status = UserDisabled
		return res, nil
	}
	userRef := directory.Ref{Kind: directory.KindUser, ID: user.ID, Name: user.FullName}

	res.Umbrella = s.UmbrellaName(teamName)
	umbrella, found, err := s.lookups.Team(ctx, res.Umbrella)
	if err != nil {
		return res, err
	}
	if !found {
		res.Status = UmbrellaTeamNotFound
		return res, nil
	}
	umbrellaRef := directory.Ref{Kind: directory.KindTeam, ID: umbrella.ID, Name: umbrella.Name}

	inUmbrella, err := s.lookups.IsTeamMember(ctx, umbrellaRef, userRef)
	if err != nil {
		return res, err
	}
	if !inUmbrella {
		switch s.policy {
		case AutoEnrollUmbrella:
			if err := s.dir.Associate(ctx, umbrellaRef, directory.RelTeamMembership, userRef); err != nil {
				res.Status = AssociationFailed
				res.Err = err
				return res, err
			}
			s.log.WithFields(logrus.Fields{
				"user": username,
				"team": umbrella.Name,
			}).Info("user enrolled in umbrella team")
		default:
			res.Status = GateNotSatisfied
			return res, nil
		}
	}

	target, found, err := s.lookups.Team(ctx, teamName)
	if err != nil {
		return res, err
	}
	if !found {
		res.Status = TargetTeamNotFound
		return res, nil
	}
	targetRef := directory.Ref{Kind: directory.KindTeam, ID: target.ID, Name: target.Name}

	inTarget, err := s.lookups.IsTeamMember(ctx, targetRef, userRef)
	if err != nil {
		return res, err
	}
	if inTarget {
		res.Status = AlreadyMember
		return res, nil
	}

	if err := s.dir.Associate(ctx, targetRef, directory.RelTeamMembership, userRef); err != nil {
		res.Status = AssociationFailed
		res.Err = err
		return res, err
	}
	s.log.WithFields(logrus.Fields{"user": username, "team": teamName}).Info("user added to team")
	res.Status = MemberAdded
	return res, nil
}

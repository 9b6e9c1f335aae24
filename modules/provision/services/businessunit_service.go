package services

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
	"github.com/iota-uz/crm-provisioner/modules/provision/domain/plan"
)

// BuOutcome says what Reconcile did to the business unit.
type BuOutcome string

const (
	BuCreated   BuOutcome = "created"
	BuUpdated   BuOutcome = "updated"
	BuUnchanged BuOutcome = "unchanged"
)

// BuResult is the reconciled business unit plus what happened to it.
type BuResult struct {
	Ref     directory.Ref
	Outcome BuOutcome
}

// BusinessUnitService reconciles one business unit per worksheet row:
// resolve prerequisites, then find-or-create and patch only what differs.
type BusinessUnitService struct {
	dir     directory.Service
	lookups *LookupService
	log     *logrus.Entry
}

func NewBusinessUnitService(dir directory.Service, lookups *LookupService, log *logrus.Entry) *BusinessUnitService {
	return &BusinessUnitService{dir: dir, lookups: lookups, log: log}
}

// Reconcile brings the business unit for the row to its desired state.
// Prerequisite failures (missing parent, planner group or work center) abort
// this row only; the error wraps ErrPrerequisiteNotFound or the lookup
// sentinels so callers can report without retrying.
func (s *BusinessUnitService) Reconcile(ctx context.Context, data plan.TeamData) (BuResult, error) {
	parent, ok, err := s.lookups.BusinessUnit(ctx, data.ParentBu)
	if err != nil {
		return BuResult{}, err
	}
	if !ok {
		return BuResult{}, errors.Wrapf(directory.ErrPrerequisiteNotFound, "parent business unit %q", data.ParentBu)
	}

	plannerGroup, err := s.lookups.PlannerGroup(ctx, data.PlannerGroup, data.PlanningCenter)
	if err != nil {
		return BuResult{}, err
	}
	workCenter, err := s.lookups.WorkCenter(ctx, data.SiteCode)
	if err != nil {
		return BuResult{}, err
	}

	desired := directory.Attributes{
		directory.AttrBuCode:          data.ContractorCode,
		directory.AttrParentBu:        directory.Ref{Kind: directory.KindBusinessUnit, ID: parent.ID},
		directory.AttrPlannerGroupRef: plannerGroup,
		directory.AttrWorkCenterRef:   workCenter,
	}

	existing, ok, err := s.lookups.BusinessUnit(ctx, data.Bu)
	if err != nil {
		return BuResult{}, err
	}

	if !ok {
		attrs := directory.Attributes{directory.AttrName: data.Bu}
		for k, v := range desired {
			attrs[k] = v
		}
		id, err := s.dir.Create(ctx, directory.KindBusinessUnit, attrs)
		if err != nil {
			return BuResult{}, errors.Wrapf(err, "create business unit %q", data.Bu)
		}
		s.log.WithField("bu", data.Bu).Info("business unit created")
		return BuResult{
			Ref:     directory.Ref{Kind: directory.KindBusinessUnit, ID: id, Name: data.Bu},
			Outcome: BuCreated,
		}, nil
	}

	patch := directory.Attributes{}
	if existing.Code != data.ContractorCode {
		patch[directory.AttrBuCode] = data.ContractorCode
	}
	if existing.ParentBu.ID != parent.ID {
		patch[directory.AttrParentBu] = desired[directory.AttrParentBu]
	}
	if existing.PlannerGroup.ID != plannerGroup.ID {
		patch[directory.AttrPlannerGroupRef] = plannerGroup
	}
	if existing.WorkCenter.ID != workCenter.ID {
		patch[directory.AttrWorkCenterRef] = workCenter
	}

	ref := directory.Ref{Kind: directory.KindBusinessUnit, ID: existing.ID, Name: existing.Name}
	if len(patch) == 0 {
		return BuResult{Ref: ref, Outcome: BuUnchanged}, nil
	}
	if err := s.dir.Update(ctx, directory.KindBusinessUnit, existing.ID, patch); err != nil {
		return BuResult{}, errors.Wrapf(err, "update business unit %q", data.Bu)
	}
	s.log.WithFields(logrus.Fields{"bu": data.Bu, "fields": len(patch)}).Info("business unit updated")
	return BuResult{Ref: ref, Outcome: BuUpdated}, nil
}

package directory

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var (
	// ErrNotFound reports a lookup that matched no entity.
	ErrNotFound = errors.New("directory: entity not found")
	// ErrAmbiguousMatch reports a lookup that matched more than one entity
	// where exactly one was expected. The tool never guesses among
	// duplicates.
	ErrAmbiguousMatch = errors.New("directory: ambiguous match")
	// ErrPrerequisiteNotFound reports a referenced entity (parent business
	// unit, planner group, work center, administrator) that could not be
	// resolved by name. Fatal for the item being processed, not the run.
	ErrPrerequisiteNotFound = errors.New("directory: prerequisite not found")
)

// Service is the remote directory store. Every call is a network round trip
// and a suspension point; no call is atomic with any other. Implementations
// must honor context cancellation.
type Service interface {
	// FindMany returns all entities of kind matching the filter. Columns
	// restricts the attributes fetched; empty means all.
	FindMany(ctx context.Context, kind Kind, filter Filter, columns ...string) ([]Entity, error)

	// Create inserts a new entity and returns its identifier.
	Create(ctx context.Context, kind Kind, attrs Attributes) (uuid.UUID, error)

	// Update patches only the attributes present in attrs; absent fields are
	// left untouched remotely.
	Update(ctx context.Context, kind Kind, id uuid.UUID, attrs Attributes) error

	// Delete removes an entity.
	Delete(ctx context.Context, kind Kind, id uuid.UUID) error

	// Associate adds many-to-many relationship edges from the target entity
	// to each related reference.
	Associate(ctx context.Context, target Ref, relationship string, related ...Ref) error

	// Disassociate removes relationship edges.
	Disassociate(ctx context.Context, target Ref, relationship string, related ...Ref) error
}

// One runs the lookup and demands exactly one match: zero yields
// ErrNotFound, more than one ErrAmbiguousMatch. Used where the original
// process halts rather than guess (planner groups, work centers).
func One(ctx context.Context, svc Service, kind Kind, filter Filter, columns ...string) (Entity, error) {
	entities, err := svc.FindMany(ctx, kind, filter, columns...)
	if err != nil {
		return Entity{}, err
	}
	switch len(entities) {
	case 0:
		return Entity{}, errors.Wrapf(ErrNotFound, "%s", kind)
	case 1:
		return entities[0], nil
	default:
		return Entity{}, errors.Wrapf(ErrAmbiguousMatch, "%s: %d matches", kind, len(entities))
	}
}

// First runs the lookup and returns the first match, reporting absence
// through the boolean rather than an error. Used where duplicates are
// tolerated and the first row wins.
func First(ctx context.Context, svc Service, kind Kind, filter Filter, columns ...string) (Entity, bool, error) {
	entities, err := svc.FindMany(ctx, kind, filter, columns...)
	if err != nil {
		return Entity{}, false, err
	}
	if len(entities) == 0 {
		return Entity{}, false, nil
	}
	return entities[0], true, nil
}

package services_test

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
)

// fakeDirectory is an in-memory directory.Service. It stores entities and
// relationship edges and evaluates the filter subset the services actually
// issue, including the membership and role link joins.
type fakeDirectory struct {
	mu       sync.Mutex
	entities map[directory.Kind]map[uuid.UUID]directory.Entity
	// edges[relationship][ownerID][relatedID]
	edges map[string]map[uuid.UUID]map[uuid.UUID]bool

	creates       []directory.Kind
	updates       []uuid.UUID
	deletes       []uuid.UUID
	associates    int
	disassociates int

	onAssociate func(target directory.Ref, relationship string, related directory.Ref) error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		entities: map[directory.Kind]map[uuid.UUID]directory.Entity{},
		edges:    map[string]map[uuid.UUID]map[uuid.UUID]bool{},
	}
}

func (f *fakeDirectory) seed(kind directory.Kind, attrs directory.Attributes) directory.Ref {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.put(kind, attrs)
}

func (f *fakeDirectory) put(kind directory.Kind, attrs directory.Attributes) directory.Ref {
	id := uuid.New()
	if f.entities[kind] == nil {
		f.entities[kind] = map[uuid.UUID]directory.Entity{}
	}
	copied := directory.Attributes{}
	for k, v := range attrs {
		copied[k] = v
	}
	f.entities[kind][id] = directory.Entity{ID: id, Kind: kind, Attributes: copied}
	name, _ := attrs[directory.AttrName].(string)
	return directory.Ref{Kind: kind, ID: id, Name: name}
}

func (f *fakeDirectory) link(relationship string, owner, related directory.Ref) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addEdge(relationship, owner.ID, related.ID)
}

func (f *fakeDirectory) addEdge(relationship string, owner, related uuid.UUID) {
	if f.edges[relationship] == nil {
		f.edges[relationship] = map[uuid.UUID]map[uuid.UUID]bool{}
	}
	if f.edges[relationship][owner] == nil {
		f.edges[relationship][owner] = map[uuid.UUID]bool{}
	}
	f.edges[relationship][owner][related] = true
}

func (f *fakeDirectory) get(kind directory.Kind, id uuid.UUID) (directory.Entity, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entities[kind][id]
	return e, ok
}

func (f *fakeDirectory) FindMany(_ context.Context, kind directory.Kind, filter directory.Filter, _ ...string) ([]directory.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	allowed := f.linkedIDs(kind, filter.Links)

	out := make([]directory.Entity, 0)
	for _, e := range f.entities[kind] {
		if allowed != nil && !allowed[e.ID] {
			continue
		}
		if matches(e, filter) {
			out = append(out, e)
		}
	}
	return out, nil
}

// linkedIDs resolves link joins against the edge store. Nil means the
// filter has no links and every entity is a candidate.
func (f *fakeDirectory) linkedIDs(kind directory.Kind, links []directory.Link) map[uuid.UUID]bool {
	if len(links) == 0 {
		return nil
	}
	handled := false
	allowed := map[uuid.UUID]bool{}
	for _, link := range links {
		var relationship, ownerField string
		switch link.Kind {
		case directory.KindTeamMembership:
			relationship = directory.RelTeamMembership
			ownerField = "teamid"
		case directory.KindTeamRole:
			relationship = directory.RelTeamRoles
			ownerField = "teamid"
		case directory.KindUserRole:
			relationship = directory.RelUserRoles
			ownerField = "systemuserid"
		default:
			// Joins against master-data kinds are not modeled; they do not
			// constrain the result here.
			continue
		}
		handled = true
		for _, cond := range link.Filter.Conditions {
			id, err := uuid.Parse(condValue(cond))
			if err != nil {
				continue
			}
			if cond.Field == ownerField {
				// Joined on the owner side: collect the related entities.
				// Memberships joined from the team side yield users; the
				// kind being queried decides which end we want.
				if link.Kind == directory.KindTeamMembership && kind == directory.KindTeam {
					for owner, related := range f.edges[relationship] {
						if related[id] {
							allowed[owner] = true
						}
					}
					continue
				}
				for related := range f.edges[relationship][id] {
					allowed[related] = true
				}
			} else {
				// Joined on the related side: collect owners.
				for owner, related := range f.edges[relationship] {
					if related[id] {
						allowed[owner] = true
					}
				}
			}
		}
	}
	if !handled {
		return nil
	}
	return allowed
}

func condValue(c directory.Condition) string {
	s, _ := c.Value.(string)
	return s
}

func matches(e directory.Entity, filter directory.Filter) bool {
	condOK := func(c directory.Condition) bool {
		if c.Field == string(e.Kind)+"id" {
			return condValue(c) == e.ID.String()
		}
		raw := e.Attributes[c.Field]
		var value string
		switch v := raw.(type) {
		case string:
			value = v
		case directory.Ref:
			value = v.ID.String()
		case int:
			if s, ok := c.Value.(string); ok {
				return s == ""
			}
			if want, ok := c.Value.(int); ok {
				return v == want
			}
			return false
		default:
			value = ""
		}
		switch c.Op {
		case directory.Equal:
			return value == condValue(c)
		case directory.Like:
			return strings.Contains(value, condValue(c))
		case directory.BeginsWith:
			return strings.HasPrefix(value, condValue(c))
		case directory.NotLike:
			return !strings.Contains(value, condValue(c))
		case directory.In:
			values, _ := c.Value.([]string)
			for _, want := range values {
				if value == want {
					return true
				}
			}
			return false
		}
		return false
	}

	if len(filter.Conditions) == 0 && len(filter.Filters) == 0 {
		return true
	}
	if filter.Logic == directory.Or {
		for _, c := range filter.Conditions {
			if condOK(c) {
				return true
			}
		}
		for _, nested := range filter.Filters {
			if matches(e, nested) {
				return true
			}
		}
		return false
	}
	for _, c := range filter.Conditions {
		if !condOK(c) {
			return false
		}
	}
	for _, nested := range filter.Filters {
		if !matches(e, nested) {
			return false
		}
	}
	return true
}

func (f *fakeDirectory) Create(_ context.Context, kind directory.Kind, attrs directory.Attributes) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := f.put(kind, attrs)
	f.creates = append(f.creates, kind)
	return ref.ID, nil
}

func (f *fakeDirectory) Update(_ context.Context, kind directory.Kind, id uuid.UUID, attrs directory.Attributes) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entities[kind][id]
	if !ok {
		return directory.ErrNotFound
	}
	for k, v := range attrs {
		e.Attributes[k] = v
	}
	f.entities[kind][id] = e
	f.updates = append(f.updates, id)
	return nil
}

func (f *fakeDirectory) Delete(_ context.Context, kind directory.Kind, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entities[kind], id)
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeDirectory) Associate(_ context.Context, target directory.Ref, relationship string, related ...directory.Ref) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rel := range related {
		if f.onAssociate != nil {
			if err := f.onAssociate(target, relationship, rel); err != nil {
				return err
			}
		}
		f.addEdge(relationship, target.ID, rel.ID)
		f.associates++
	}
	return nil
}

func (f *fakeDirectory) Disassociate(_ context.Context, target directory.Ref, relationship string, related ...directory.Ref) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rel := range related {
		if f.edges[relationship][target.ID] != nil {
			delete(f.edges[relationship][target.ID], rel.ID)
		}
		f.disassociates++
	}
	return nil
}

package directory

// Operator enumerates the comparison operators the remote query language
// supports for the filters this tool issues.
type Operator string

const (
	Equal      Operator = "eq"
	Like       Operator = "like"
	BeginsWith Operator = "begins-with"
	NotLike    Operator = "not-like"
	In         Operator = "in"
)

// Logic joins sibling conditions of a filter node.
type Logic string

const (
	And Logic = "and"
	Or  Logic = "or"
)

// Condition is a single field comparison. Value is a scalar, or a []string
// for the In operator.
type Condition struct {
	Field string
	Op    Operator
	Value any
}

// Filter is a conjunction/disjunction tree of conditions, optionally joined
// across related entity kinds through Links.
type Filter struct {
	Logic      Logic
	Conditions []Condition
	Filters    []Filter
	Links      []Link
}

// Link joins the filtered kind to a related kind, constraining the result to
// rows whose related records satisfy the nested filter. From and To are the
// join attributes on either side.
type Link struct {
	Kind   Kind
	From   string
	To     string
	Filter Filter
}

// Where builds an AND filter from conditions.
func Where(conds ...Condition) Filter {
	return Filter{Logic: And, Conditions: conds}
}

// AnyOf builds an OR filter from conditions.
func AnyOf(conds ...Condition) Filter {
	return Filter{Logic: Or, Conditions: conds}
}

// Eq is shorthand for an exact-match condition.
func Eq(field string, value any) Condition {
	return Condition{Field: field, Op: Equal, Value: value}
}

// Contains is shorthand for a substring Like condition; the transport layer
// adds the wildcards.
func Contains(field, value string) Condition {
	return Condition{Field: field, Op: Like, Value: value}
}

// StartsWith is shorthand for a prefix condition.
func StartsWith(field, value string) Condition {
	return Condition{Field: field, Op: BeginsWith, Value: value}
}

// OneOf is shorthand for an In condition over names.
func OneOf(field string, values ...string) Condition {
	return Condition{Field: field, Op: In, Value: values}
}

// WithLink returns a copy of the filter extended with a related-kind join.
func (f Filter) WithLink(l Link) Filter {
	f.Links = append(f.Links, l)
	return f
}

// ByName is the exact-name filter used for every canonical-name lookup.
func ByName(name string) Filter {
	return Where(Eq("name", name))
}

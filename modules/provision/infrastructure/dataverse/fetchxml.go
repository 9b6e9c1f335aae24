package dataverse

import (
	"encoding/xml"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
)

// FetchXML rendering of the filter tree. The Web API accepts a fetchxml
// query parameter, which maps one-to-one onto the filter model including
// related-entity joins.

type fetchEnvelope struct {
	XMLName xml.Name    `xml:"fetch"`
	Mapping string      `xml:"mapping,attr"`
	Entity  fetchEntity `xml:"entity"`
}

type fetchEntity struct {
	Name       string        `xml:"name,attr"`
	Attributes []fetchAttr   `xml:"attribute"`
	AllAttrs   *struct{}     `xml:"all-attributes"`
	Filter     *fetchFilter  `xml:"filter"`
	Links      []fetchLinked `xml:"link-entity"`
}

type fetchAttr struct {
	Name string `xml:"name,attr"`
}

type fetchFilter struct {
	Type       string           `xml:"type,attr"`
	Conditions []fetchCondition `xml:"condition"`
	Filters    []fetchFilter    `xml:"filter"`
}

type fetchCondition struct {
	Attribute string `xml:"attribute,attr"`
	Operator  string `xml:"operator,attr"`
	// Value is the scalar operand; In conditions use Values children instead.
	Value  string       `xml:"value,attr,omitempty"`
	Values []fetchValue `xml:"value,omitempty"`
}

type fetchValue struct {
	Value string `xml:",chardata"`
}

type fetchLinked struct {
	Name   string       `xml:"name,attr"`
	From   string       `xml:"from,attr"`
	To     string       `xml:"to,attr"`
	Filter *fetchFilter `xml:"filter"`
}

// RenderFetchXML serializes a query against kind into FetchXML. An empty
// columns list selects all attributes.
func RenderFetchXML(kind directory.Kind, filter directory.Filter, columns ...string) (string, error) {
	entity := fetchEntity{Name: string(kind)}
	if len(columns) == 0 {
		entity.AllAttrs = &struct{}{}
	} else {
		for _, c := range columns {
			entity.Attributes = append(entity.Attributes, fetchAttr{Name: c})
		}
	}

	f, err := renderFilter(filter)
	if err != nil {
		return "", err
	}
	entity.Filter = f

	for _, link := range filter.Links {
		nested, err := renderFilter(link.Filter)
		if err != nil {
			return "", err
		}
		entity.Links = append(entity.Links, fetchLinked{
			Name:   string(link.Kind),
			From:   link.From,
			To:     link.To,
			Filter: nested,
		})
	}

	out, err := xml.Marshal(fetchEnvelope{Mapping: "logical", Entity: entity})
	if err != nil {
		return "", errors.Wrap(err, "marshal fetchxml")
	}
	return string(out), nil
}

func renderFilter(f directory.Filter) (*fetchFilter, error) {
	if len(f.Conditions) == 0 && len(f.Filters) == 0 {
		return nil, nil
	}
	logic := "and"
	if f.Logic == directory.Or {
		logic = "or"
	}
	out := &fetchFilter{Type: logic}
	for _, c := range f.Conditions {
		fc, err := renderCondition(c)
		if err != nil {
			return nil, err
		}
		out.Conditions = append(out.Conditions, fc)
	}
	for _, nested := range f.Filters {
		nf, err := renderFilter(nested)
		if err != nil {
			return nil, err
		}
		if nf != nil {
			out.Filters = append(out.Filters, *nf)
		}
	}
	return out, nil
}

func renderCondition(c directory.Condition) (fetchCondition, error) {
	switch c.Op {
	case directory.Equal:
		return fetchCondition{Attribute: c.Field, Operator: "eq", Value: scalar(c.Value)}, nil
	case directory.Like:
		return fetchCondition{Attribute: c.Field, Operator: "like", Value: "%" + scalar(c.Value) + "%"}, nil
	case directory.BeginsWith:
		return fetchCondition{Attribute: c.Field, Operator: "like", Value: scalar(c.Value) + "%"}, nil
	case directory.NotLike:
		return fetchCondition{Attribute: c.Field, Operator: "not-like", Value: "%" + scalar(c.Value) + "%"}, nil
	case directory.In:
		values, ok := c.Value.([]string)
		if !ok {
			return fetchCondition{}, errors.Errorf("in condition on %q requires []string", c.Field)
		}
		out := fetchCondition{Attribute: c.Field, Operator: "in"}
		for _, v := range values {
			out.Values = append(out.Values, fetchValue{Value: v})
		}
		return out, nil
	}
	return fetchCondition{}, errors.Errorf("unsupported operator %q", c.Op)
}

func scalar(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

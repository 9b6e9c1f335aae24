// Package dataverse implements the directory contract against the Dynamics
// Web API: OAuth client-credentials auth, FetchXML queries and OData writes.
package dataverse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
)

const apiPath = "/api/data/v9.2"

// entitySets maps logical entity names onto their Web API collection names.
// The convention is logical name + "s", with the intersect entities exposed
// under their own collection names.
var entitySets = map[directory.Kind]string{
	directory.KindUser:           "systemusers",
	directory.KindTeam:           "teams",
	directory.KindBusinessUnit:   "businessunits",
	directory.KindRole:           "roles",
	directory.KindTeamRole:       "teamrolescollection",
	directory.KindTeamMembership: "teammemberships",
	directory.KindUserRole:       "systemuserrolescollection",
	directory.KindPlannerGroup:   "atos_grupoplanificadors",
	directory.KindPlanningCenter: "atos_centrodeplanificacions",
	directory.KindWorkCenter:     "atos_puestodetrabajos",
	directory.KindSiteCenter:     "atos_centrodeemplazamientos",
}

func entitySet(kind directory.Kind) string {
	if set, ok := entitySets[kind]; ok {
		return set
	}
	return string(kind) + "s"
}

// Options identify one directory instance and the app registration used to
// reach it.
type Options struct {
	// BaseURL is the organization URL, e.g. https://org.crm4.dynamics.com.
	BaseURL      string
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Client talks to one directory instance. Safe for concurrent use.
type Client struct {
	base string
	http *http.Client
	log  *logrus.Entry
}

// New builds a client authenticating with the client-credentials grant.
// Token acquisition and refresh happen lazily inside the HTTP transport.
func New(ctx context.Context, opts Options, log *logrus.Entry) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		return nil, errors.New("dataverse: base URL is required")
	}
	cfg := clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", opts.TenantID),
		Scopes:       []string{base + "/.default"},
	}
	return &Client{
		base: base,
		http: cfg.Client(ctx),
		log:  log,
	}, nil
}

var _ directory.Service = (*Client)(nil)

// FindMany runs a FetchXML query and converts the rows.
func (c *Client) FindMany(ctx context.Context, kind directory.Kind, filter directory.Filter, columns ...string) ([]directory.Entity, error) {
	fetch, err := RenderFetchXML(kind, filter, columns...)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s%s/%s?fetchXml=%s", c.base, apiPath, entitySet(kind), url.QueryEscape(fetch))

	var payload struct {
		Value []map[string]any `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &payload, nil); err != nil {
		return nil, errors.Wrapf(err, "query %s", kind)
	}

	entities := make([]directory.Entity, 0, len(payload.Value))
	for _, row := range payload.Value {
		entities = append(entities, decodeEntity(kind, row))
	}
	return entities, nil
}

// Create inserts an entity and reads its identifier from the response.
func (c *Client) Create(ctx context.Context, kind directory.Kind, attrs directory.Attributes) (uuid.UUID, error) {
	body, err := encodeAttributes(attrs)
	if err != nil {
		return uuid.Nil, err
	}
	endpoint := fmt.Sprintf("%s%s/%s", c.base, apiPath, entitySet(kind))

	var header http.Header
	if err := c.do(ctx, http.MethodPost, endpoint, body, nil, &header); err != nil {
		return uuid.Nil, errors.Wrapf(err, "create %s", kind)
	}
	id, err := idFromEntityHeader(header.Get("OData-EntityId"))
	if err != nil {
		return uuid.Nil, errors.Wrapf(err, "create %s", kind)
	}
	return id, nil
}

// Update patches only the given attributes.
func (c *Client) Update(ctx context.Context, kind directory.Kind, id uuid.UUID, attrs directory.Attributes) error {
	if len(attrs) == 0 {
		return nil
	}
	body, err := encodeAttributes(attrs)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s%s/%s(%s)", c.base, apiPath, entitySet(kind), id)
	if err := c.do(ctx, http.MethodPatch, endpoint, body, nil, nil); err != nil {
		return errors.Wrapf(err, "update %s %s", kind, id)
	}
	return nil
}

// Delete removes an entity.
func (c *Client) Delete(ctx context.Context, kind directory.Kind, id uuid.UUID) error {
	endpoint := fmt.Sprintf("%s%s/%s(%s)", c.base, apiPath, entitySet(kind), id)
	if err := c.do(ctx, http.MethodDelete, endpoint, nil, nil, nil); err != nil {
		return errors.Wrapf(err, "delete %s %s", kind, id)
	}
	return nil
}

// Associate adds relationship edges through the $ref endpoint.
func (c *Client) Associate(ctx context.Context, target directory.Ref, relationship string, related ...directory.Ref) error {
	endpoint := fmt.Sprintf("%s%s/%s(%s)/%s/$ref", c.base, apiPath, entitySet(target.Kind), target.ID, relationship)
	for _, rel := range related {
		body := map[string]string{
			"@odata.id": fmt.Sprintf("%s%s/%s(%s)", c.base, apiPath, entitySet(rel.Kind), rel.ID),
		}
		if err := c.do(ctx, http.MethodPost, endpoint, body, nil, nil); err != nil {
			return errors.Wrapf(err, "associate %s to %s %s via %s", rel.ID, target.Kind, target.ID, relationship)
		}
	}
	return nil
}

// Disassociate removes relationship edges.
func (c *Client) Disassociate(ctx context.Context, target directory.Ref, relationship string, related ...directory.Ref) error {
	for _, rel := range related {
		endpoint := fmt.Sprintf("%s%s/%s(%s)/%s(%s)/$ref",
			c.base, apiPath, entitySet(target.Kind), target.ID, relationship, rel.ID)
		if err := c.do(ctx, http.MethodDelete, endpoint, nil, nil, nil); err != nil {
			return errors.Wrapf(err, "disassociate %s from %s %s via %s", rel.ID, target.Kind, target.ID, relationship)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any, header *http.Header) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")
	req.Header.Set("Prefer", `odata.include-annotations="*"`)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.log != nil {
		c.log.WithFields(logrus.Fields{"method": method, "url": endpoint}).Debug("dataverse request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("%s %s: %s: %s", method, endpoint, resp.Status, strings.TrimSpace(string(snippet)))
	}

	if header != nil {
		*header = resp.Header
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "decode response")
		}
	}
	return nil
}

const (
	formattedValueAnnotation = "@OData.Community.Display.V1.FormattedValue"
	lookupLogicalAnnotation  = "@Microsoft.Dynamics.CRM.lookuplogicalname"
	lookupValuePrefix        = "_"
	lookupValueSuffix        = "_value"
)

// decodeEntity converts a Web API row into the generic entity form. Lookup
// columns arrive as "_field_value" with annotation keys carrying the display
// name and target logical name; they become Refs under the bare field name.
func decodeEntity(kind directory.Kind, row map[string]any) directory.Entity {
	e := directory.Entity{Kind: kind, Attributes: directory.Attributes{}}
	idAttr := string(kind) + "id"

	for key, value := range row {
		if strings.Contains(key, "@") {
			continue
		}
		if key == idAttr {
			if s, ok := value.(string); ok {
				if id, err := uuid.Parse(s); err == nil {
					e.ID = id
				}
			}
			continue
		}
		if strings.HasPrefix(key, lookupValuePrefix) && strings.HasSuffix(key, lookupValueSuffix) {
			field := strings.TrimSuffix(strings.TrimPrefix(key, lookupValuePrefix), lookupValueSuffix)
			s, ok := value.(string)
			if !ok {
				continue
			}
			id, err := uuid.Parse(s)
			if err != nil {
				continue
			}
			ref := directory.Ref{ID: id}
			if name, ok := row[key+formattedValueAnnotation].(string); ok {
				ref.Name = name
			}
			if logical, ok := row[key+lookupLogicalAnnotation].(string); ok {
				ref.Kind = directory.Kind(logical)
			}
			e.Attributes[field] = ref
			continue
		}
		e.Attributes[key] = value
	}
	return e
}

// encodeAttributes converts the attribute bag into an OData payload. Refs
// become @odata.bind navigation properties.
func encodeAttributes(attrs directory.Attributes) (map[string]any, error) {
	out := make(map[string]any, len(attrs))
	for key, value := range attrs {
		ref, ok := value.(directory.Ref)
		if !ok {
			out[key] = value
			continue
		}
		if ref.Kind == "" {
			return nil, errors.Errorf("attribute %q: reference without a kind", key)
		}
		// Lookup attribute names double as the single-valued navigation
		// property names in this schema.
		out[key+"@odata.bind"] = fmt.Sprintf("/%s(%s)", entitySet(ref.Kind), ref.ID)
	}
	return out, nil
}

func idFromEntityHeader(value string) (uuid.UUID, error) {
	open := strings.LastIndex(value, "(")
	closing := strings.LastIndex(value, ")")
	if open < 0 || closing <= open {
		return uuid.Nil, errors.Errorf("malformed OData-EntityId header %q", value)
	}
	return uuid.Parse(value[open+1 : closing])
}

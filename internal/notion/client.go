package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jomei/notionapi"
)

const (
	DefaultBaseURL = "https://api.notion.com"
	DefaultVersion = "2022-06-28"
)

// Client wraps the subset of the Notion API the service reads from and
// converts responses into this package's types. It is safe for concurrent
// use.
type Client struct {
	api *notionapi.Client
}

type settings struct {
	baseURL string
	version string
}

// Option customises a Client.
type Option func(*settings)

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) Option {
	return func(s *settings) {
		if u != "" {
			s.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithVersion overrides the Notion-Version header.
func WithVersion(v string) Option {
	return func(s *settings) {
		if v != "" {
			s.version = v
		}
	}
}

// New creates a client authenticated with an integration token.
func New(httpClient *http.Client, token string, opts ...Option) *Client {
	s := settings{baseURL: DefaultBaseURL, version: DefaultVersion}
	for _, opt := range opts {
		opt(&s)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	hc := *httpClient
	if s.baseURL != DefaultBaseURL {
		if base, err := url.Parse(s.baseURL); err == nil && base.Host != "" {
			next := hc.Transport
			if next == nil {
				next = http.DefaultTransport
			}
			hc.Transport = rewriteHost{base: base, next: next}
		}
	}

	return &Client{api: notionapi.NewClient(notionapi.Token(token),
		notionapi.WithHTTPClient(&hc),
		notionapi.WithVersion(s.version),
	)}
}

// rewriteHost sends every request to base instead of the public API host.
type rewriteHost struct {
	base *url.URL
	next http.RoundTripper
}

func (t rewriteHost) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = t.base.Scheme
	r.URL.Host = t.base.Host
	r.URL.Path = strings.TrimRight(t.base.Path, "/") + r.URL.Path
	r.Host = t.base.Host
	return t.next.RoundTrip(r)
}

// QueryDatabase runs one page of a database query.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, q Query) (QueryResponse, error) {
	req := &notionapi.DatabaseQueryRequest{
		StartCursor: notionapi.Cursor(q.StartCursor),
		PageSize:    q.PageSize,
	}
	if q.Filter != nil {
		req.Filter = toFilter(*q.Filter)
	}
	for _, s := range q.Sorts {
		req.Sorts = append(req.Sorts, notionapi.SortObject{
			Property:  s.Property,
			Direction: notionapi.SortOrder(s.Direction),
		})
	}

	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(databaseID), req)
	if err != nil {
		return QueryResponse{}, convertError("query database", err)
	}
	out := QueryResponse{HasMore: resp.HasMore, NextCursor: string(resp.NextCursor)}
	for _, p := range resp.Results {
		out.Results = append(out.Results, fromPage(p))
	}
	return out, nil
}

// RetrieveDatabase returns database metadata.
func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (Database, error) {
	db, err := c.api.Database.Get(ctx, notionapi.DatabaseID(databaseID))
	if err != nil {
		return Database{}, convertError("retrieve database", err)
	}
	props := make(map[string]json.RawMessage, len(db.Properties))
	for name, cfg := range db.Properties {
		raw, err := json.Marshal(cfg)
		if err != nil {
			return Database{}, fmt.Errorf("encode property %q: %w", name, err)
		}
		props[name] = raw
	}
	return Database{
		ID:             string(db.ID),
		Title:          fromRichText(db.Title),
		Properties:     props,
		CreatedTime:    timestamp(db.CreatedTime),
		LastEditedTime: timestamp(db.LastEditedTime),
	}, nil
}

// RetrievePage returns a single page with its properties.
func (c *Client) RetrievePage(ctx context.Context, pageID string) (Page, error) {
	p, err := c.api.Page.Get(ctx, notionapi.PageID(pageID))
	if err != nil {
		return Page{}, convertError("retrieve page", err)
	}
	return fromPage(*p), nil
}

// ListBlockChildren returns the first page of child blocks of a block or
// page.
func (c *Client) ListBlockChildren(ctx context.Context, blockID string) (BlockList, error) {
	resp, err := c.api.Block.GetChildren(ctx, notionapi.BlockID(blockID), &notionapi.Pagination{PageSize: 100})
	if err != nil {
		return BlockList{}, convertError("list block children", err)
	}
	out := BlockList{
		Results:    make([]json.RawMessage, 0, len(resp.Results)),
		HasMore:    resp.HasMore,
		NextCursor: string(resp.NextCursor),
	}
	for _, b := range resp.Results {
		raw, err := json.Marshal(b)
		if err != nil {
			return BlockList{}, fmt.Errorf("encode block: %w", err)
		}
		out.Results = append(out.Results, raw)
	}
	return out, nil
}

func convertError(op string, err error) error {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		return &APIError{Status: apiErr.Status, Code: string(apiErr.Code), Message: apiErr.Message}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toFilter(f Filter) notionapi.Filter {
	if len(f.Or) > 0 {
		or := make(notionapi.OrCompoundFilter, 0, len(f.Or))
		for _, sub := range f.Or {
			or = append(or, toFilter(sub))
		}
		return &or
	}
	pf := notionapi.PropertyFilter{Property: f.Property}
	if f.Select != nil {
		pf.Select = &notionapi.SelectFilterCondition{Equals: f.Select.Equals, IsEmpty: f.Select.IsEmpty}
	}
	return &pf
}

func fromPage(p notionapi.Page) Page {
	out := Page{
		Object:         string(p.Object),
		ID:             string(p.ID),
		LastEditedTime: timestamp(p.LastEditedTime),
	}
	if p.Properties == nil {
		return out
	}
	out.Properties = make(map[string]Property, len(p.Properties))
	for name, prop := range p.Properties {
		out.Properties[name] = fromProperty(prop)
	}
	return out
}

func fromProperty(prop notionapi.Property) Property {
	switch v := prop.(type) {
	case *notionapi.TitleProperty:
		return Property{Type: TypeTitle, Title: fromRichText(v.Title)}
	case *notionapi.RichTextProperty:
		return Property{Type: TypeRichText, RichText: fromRichText(v.RichText)}
	case *notionapi.DateProperty:
		out := Property{Type: TypeDate}
		if v.Date != nil && v.Date.Start != nil {
			out.Date = &Date{Start: time.Time(*v.Date.Start).Format(time.RFC3339)}
			if v.Date.End != nil {
				out.Date.End = time.Time(*v.Date.End).Format(time.RFC3339)
			}
		}
		return out
	case *notionapi.SelectProperty:
		return Property{Type: TypeSelect, Select: &SelectOption{Name: v.Select.Name}}
	case *notionapi.StatusProperty:
		return Property{Type: TypeSelect, Select: &SelectOption{Name: v.Status.Name}}
	case *notionapi.MultiSelectProperty:
		opts := make([]SelectOption, 0, len(v.MultiSelect))
		for _, o := range v.MultiSelect {
			opts = append(opts, SelectOption{Name: o.Name})
		}
		return Property{Type: TypeMultiSelect, MultiSelect: opts}
	case nil:
		return Property{}
	default:
		return Property{Type: string(prop.GetType())}
	}
}

func fromRichText(rt []notionapi.RichText) []RichText {
	out := make([]RichText, 0, len(rt))
	for _, r := range rt {
		out = append(out, RichText{PlainText: r.PlainText})
	}
	return out
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/raffaelramalhorosa/folio-api/internal/config"
	"github.com/raffaelramalhorosa/folio-api/internal/models"
	"github.com/raffaelramalhorosa/folio-api/internal/notion"
)

const (
	defaultTitle    = "Untitled"
	defaultExcerpt  = "No excerpt available"
	defaultCategory = "general"
	defaultStatus   = "published"

	displayDate = "Jan 2, 2006"
)

var (
	// ErrNotConfigured is returned by operations that cannot fall back when
	// the document store has no credentials.
	ErrNotConfigured = errors.New("document store not configured")
	// ErrNotFound means the requested record does not exist upstream.
	ErrNotFound = errors.New("entry not found")
)

// Store is the subset of the document store client a NotionSource uses.
type Store interface {
	QueryDatabase(ctx context.Context, databaseID string, q notion.Query) (notion.QueryResponse, error)
	RetrieveDatabase(ctx context.Context, databaseID string) (notion.Database, error)
	RetrievePage(ctx context.Context, pageID string) (notion.Page, error)
	ListBlockChildren(ctx context.Context, blockID string) (notion.BlockList, error)
}

// NotionOptions tunes how a NotionSource queries and normalizes records.
type NotionOptions struct {
	Aliases        config.Aliases
	Categories     []string
	PublishedValue string
	MaxPages       int
}

// NotionSource lists published pages of a Notion database.
type NotionSource struct {
	store      Store
	token      string
	databaseID string
	aliases    config.Aliases
	categories map[string]bool
	published  string
	maxPages   int
	logger     *slog.Logger
	now        func() time.Time
}

// NewNotionSource builds a source over store. token is only inspected for
// presence; store is expected to already be authenticated with it.
func NewNotionSource(store Store, token, databaseID string, opts NotionOptions, logger *slog.Logger) *NotionSource {
	if opts.PublishedValue == "" {
		opts.PublishedValue = "Published"
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	if len(opts.Aliases.Title) == 0 {
		opts.Aliases.Title = []string{"Title", "Name"}
	}
	if len(opts.Aliases.Status) == 0 {
		opts.Aliases.Status = []string{"Status"}
	}
	if len(opts.Aliases.Date) == 0 {
		opts.Aliases.Date = []string{"Date"}
	}
	cats := make(map[string]bool, len(opts.Categories)+1)
	for _, c := range opts.Categories {
		cats[strings.ToLower(strings.TrimSpace(c))] = true
	}
	cats[defaultCategory] = true

	return &NotionSource{
		store:      store,
		token:      token,
		databaseID: databaseID,
		aliases:    opts.Aliases,
		categories: cats,
		published:  opts.PublishedValue,
		maxPages:   opts.MaxPages,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *NotionSource) Name() string { return "notion" }

func (s *NotionSource) Configured() bool {
	return s.store != nil && s.token != "" && s.databaseID != ""
}

// Entries queries published pages, newest first, following pagination
// cursors up to the configured page limit.
func (s *NotionSource) Entries(ctx context.Context) ([]models.ListEntry, error) {
	status := s.aliases.Status[0]
	q := notion.Query{
		Filter: &notion.Filter{Or: []notion.Filter{
			{Property: status, Select: &notion.SelectCondition{Equals: s.published}},
			{Property: status, Select: &notion.SelectCondition{IsEmpty: true}},
		}},
		Sorts: []notion.Sort{{Property: s.aliases.Date[0], Direction: notion.Descending}},
	}

	var entries []models.ListEntry
	for page := 0; page < s.maxPages; page++ {
		resp, err := s.store.QueryDatabase(ctx, s.databaseID, q)
		if err != nil {
			return nil, fmt.Errorf("query database %s: %w", s.databaseID, err)
		}
		for _, p := range resp.Results {
			if (p.Object != "" && p.Object != "page") || p.Properties == nil {
				continue
			}
			entries = append(entries, s.normalize(p))
		}
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		q.StartCursor = resp.NextCursor
	}

	s.logger.Debug("notion query complete", "database", s.databaseID, "entries", len(entries))
	return entries, nil
}

// Entry returns one page with its first page of content blocks.
func (s *NotionSource) Entry(ctx context.Context, id string) (models.EntryDetail, error) {
	if !s.Configured() {
		return models.EntryDetail{}, ErrNotConfigured
	}
	page, err := s.store.RetrievePage(ctx, id)
	if err != nil {
		return models.EntryDetail{}, classify(err)
	}
	if page.Properties == nil {
		return models.EntryDetail{}, ErrNotFound
	}
	blocks, err := s.store.ListBlockChildren(ctx, id)
	if err != nil {
		return models.EntryDetail{}, classify(err)
	}
	if blocks.Results == nil {
		blocks.Results = []json.RawMessage{}
	}
	return models.EntryDetail{
		Entry:      s.normalize(page),
		Content:    blocks.Results,
		LastEdited: page.LastEditedTime,
		Timestamp:  s.now().UTC(),
	}, nil
}

// TestConnection retrieves the database schema and reports on it. It never
// returns an error; failures are described in the report.
func (s *NotionSource) TestConnection(ctx context.Context) models.ConnectionReport {
	if s.store == nil || s.token == "" {
		return models.ConnectionReport{Message: "document store client could not be initialized: token missing"}
	}
	if s.databaseID == "" {
		return models.ConnectionReport{Message: "database id missing"}
	}

	db, err := s.store.RetrieveDatabase(ctx, s.databaseID)
	if err != nil {
		s.logger.Warn("notion connection test failed", "error", err)
		return models.ConnectionReport{Message: "connection failed: " + err.Error()}
	}

	props := make([]string, 0, len(db.Properties))
	for name := range db.Properties {
		props = append(props, name)
	}
	sort.Strings(props)

	return models.ConnectionReport{
		Success: true,
		Message: "successfully connected to database",
		Details: &models.ConnectionDetails{
			Title:      notion.PlainText(db.Title),
			Properties: props,
			Created:    db.CreatedTime,
			LastEdited: db.LastEditedTime,
		},
	}
}

func (s *NotionSource) normalize(p notion.Page) models.ListEntry {
	now := s.now()

	entry := models.ListEntry{
		ID:           p.ID,
		Title:        defaultTitle,
		Date:         now.Format(displayDate),
		Excerpt:      defaultExcerpt,
		Category:     defaultCategory,
		Status:       defaultStatus,
		Tags:         []string{},
		LastModified: p.LastEditedTime,
	}

	if prop, ok := firstProperty(p.Properties, s.aliases.Title, func(pr notion.Property) bool {
		return pr.Type == notion.TypeTitle && strings.TrimSpace(notion.PlainText(pr.Title)) != ""
	}); ok {
		entry.Title = strings.TrimSpace(notion.PlainText(prop.Title))
	}

	if prop, ok := firstProperty(p.Properties, s.aliases.Date, func(pr notion.Property) bool {
		return pr.Type == notion.TypeDate && pr.Date != nil && pr.Date.Start != ""
	}); ok {
		if t, ok := parseDate(prop.Date.Start); ok {
			entry.Date = t.Format(displayDate)
		}
	}

	if prop, ok := firstProperty(p.Properties, s.aliases.Excerpt, func(pr notion.Property) bool {
		return pr.Type == notion.TypeRichText && strings.TrimSpace(notion.PlainText(pr.RichText)) != ""
	}); ok {
		entry.Excerpt = strings.TrimSpace(notion.PlainText(prop.RichText))
	}

	if prop, ok := firstProperty(p.Properties, s.aliases.Category, isSelect); ok {
		if c := strings.ToLower(strings.TrimSpace(prop.Select.Name)); s.categories[c] {
			entry.Category = c
		}
	}

	if prop, ok := firstProperty(p.Properties, s.aliases.Status, isSelect); ok {
		entry.Status = strings.ToLower(strings.TrimSpace(prop.Select.Name))
	}

	if prop, ok := firstProperty(p.Properties, s.aliases.Tags, func(pr notion.Property) bool {
		return pr.Type == notion.TypeMultiSelect
	}); ok {
		for _, o := range prop.MultiSelect {
			if o.Name != "" {
				entry.Tags = append(entry.Tags, o.Name)
			}
		}
	}

	if entry.LastModified == "" {
		entry.LastModified = now.UTC().Format(time.RFC3339)
	}
	return entry
}

func isSelect(pr notion.Property) bool {
	return pr.Type == notion.TypeSelect && pr.Select != nil && strings.TrimSpace(pr.Select.Name) != ""
}

// firstProperty returns the first alias whose property exists and passes ok.
func firstProperty(props map[string]notion.Property, aliases []string, ok func(notion.Property) bool) (notion.Property, bool) {
	for _, name := range aliases {
		if pr, exists := props[name]; exists && ok(pr) {
			return pr, true
		}
	}
	return notion.Property{}, false
}

// parseDate accepts the date-only and date-time forms Notion emits.
func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func classify(err error) error {
	var apiErr *notion.APIError
	if errors.As(err, &apiErr) && (apiErr.Code == notion.CodeObjectNotFound || apiErr.Status == 404) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

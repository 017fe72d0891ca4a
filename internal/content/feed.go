package content

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/raffaelramalhorosa/folio-api/internal/models"
)

// FeedSource lists the items of an RSS or Atom feed.
type FeedSource struct {
	url        string
	parser     *gofeed.Parser
	categories map[string]bool
	excerptLen int
	logger     *slog.Logger
	now        func() time.Time
}

// NewFeedSource returns a source over feedURL. An empty URL leaves the source
// unconfigured. httpClient may be nil.
func NewFeedSource(feedURL string, httpClient *http.Client, categories []string, excerptLen int, logger *slog.Logger) *FeedSource {
	parser := gofeed.NewParser()
	if httpClient != nil {
		parser.Client = httpClient
	}
	if excerptLen <= 0 {
		excerptLen = 300
	}
	cats := make(map[string]bool, len(categories))
	for _, c := range categories {
		cats[strings.ToLower(strings.TrimSpace(c))] = true
	}
	return &FeedSource{
		url:        feedURL,
		parser:     parser,
		categories: cats,
		excerptLen: excerptLen,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *FeedSource) Name() string { return "feed" }

func (s *FeedSource) Configured() bool { return s.url != "" }

// Entries downloads and parses the feed.
func (s *FeedSource) Entries(ctx context.Context) ([]models.ListEntry, error) {
	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.url, err)
	}

	now := s.now()
	entries := make([]models.ListEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, s.normalize(item, now))
	}
	s.logger.Debug("feed parsed", "url", s.url, "items", len(entries))
	return entries, nil
}

func (s *FeedSource) normalize(item *gofeed.Item, now time.Time) models.ListEntry {
	pub := now
	switch {
	case item.PublishedParsed != nil:
		pub = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		pub = *item.UpdatedParsed
	}
	modified := pub
	if item.UpdatedParsed != nil {
		modified = *item.UpdatedParsed
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = defaultTitle
	}

	desc := item.Description
	if strings.TrimSpace(desc) == "" {
		desc = item.Content
	}
	excerpt := truncate(plainText(desc), s.excerptLen)
	if excerpt == "" {
		excerpt = defaultExcerpt
	}

	category := defaultCategory
	tags := []string{}
	for _, c := range item.Categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		tags = append(tags, c)
		if lc := strings.ToLower(c); category == defaultCategory && s.categories[lc] {
			category = lc
		}
	}

	key := item.GUID
	if key == "" {
		key = item.Link
	}
	if key == "" {
		key = title
	}

	return models.ListEntry{
		ID:           itemID(key),
		Title:        title,
		Date:         pub.Format(displayDate),
		Excerpt:      excerpt,
		Category:     category,
		Status:       defaultStatus,
		Tags:         tags,
		LastModified: modified.UTC().Format(time.RFC3339),
	}
}

// itemID derives a stable id so re-fetching the same item keeps its id.
func itemID(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h[:8])
}

// plainText strips markup from an HTML fragment and collapses whitespace.
func plainText(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return strings.TrimSpace(string(runes[:n-3])) + "..."
}

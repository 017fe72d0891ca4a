package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raffaelramalhorosa/folio-api/internal/models"
)

// Source is an upstream that yields list entries.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// Configured reports whether the source has what it needs to make a
	// network call. An unconfigured source is served from the fallback.
	Configured() bool
	// Entries queries upstream and returns normalized entries.
	Entries(ctx context.Context) ([]models.ListEntry, error)
}

// Fetcher wraps a Source with the fallback contract: Fetch never fails and
// never returns an empty list.
type Fetcher struct {
	source   Source
	fallback []models.ListEntry
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewFetcher returns a Fetcher that bounds each call by timeout (0 means no
// extra bound) and substitutes fallback whenever the source cannot serve.
func NewFetcher(src Source, fallback []models.ListEntry, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if len(fallback) == 0 {
		fallback = JournalFallback()
	}
	return &Fetcher{
		source:   src,
		fallback: fallback,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Fetch queries the source once. Any failure, an empty upstream listing and
// an unconfigured source all yield the fallback list.
func (f *Fetcher) Fetch(ctx context.Context) (res models.ListResult) {
	start := f.now()
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("content fetch panicked", "source", f.source.Name(), "panic", r)
			res = f.fallbackResult(fmt.Sprint(r))
		}
	}()

	if !f.source.Configured() {
		f.logger.Debug("content source not configured, serving fallback", "source", f.source.Name())
		return f.fallbackResult("")
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	entries, err := f.source.Entries(ctx)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "upstream timeout: " + msg
		}
		f.logger.Warn("content fetch failed, serving fallback",
			"source", f.source.Name(),
			"error", err,
			"elapsed", time.Since(start),
		)
		return f.fallbackResult(msg)
	}
	if len(entries) == 0 {
		f.logger.Info("content source returned no entries, serving fallback", "source", f.source.Name())
		return f.fallbackResult("")
	}

	f.logger.Info("content fetched",
		"source", f.source.Name(),
		"entries", len(entries),
		"elapsed", time.Since(start),
	)
	return models.ListResult{
		Entries:   entries,
		Count:     len(entries),
		Source:    models.SourceLive,
		Timestamp: f.now().UTC(),
	}
}

func (f *Fetcher) fallbackResult(msg string) models.ListResult {
	entries := cloneEntries(f.fallback)
	return models.ListResult{
		Entries:   entries,
		Count:     len(entries),
		Source:    models.SourceFallback,
		Error:     msg,
		Timestamp: f.now().UTC(),
	}
}

// cloneEntries copies the fallback so callers cannot mutate the shared set.
func cloneEntries(in []models.ListEntry) []models.ListEntry {
	out := make([]models.ListEntry, len(in))
	for i, e := range in {
		e.Tags = append([]string{}, e.Tags...)
		out[i] = e
	}
	return out
}

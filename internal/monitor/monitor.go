package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/raffaelramalhorosa/folio-api/internal/models"
	"github.com/raffaelramalhorosa/folio-api/internal/spotify"
	"github.com/raffaelramalhorosa/folio-api/internal/store"
)

// ListFetcher is satisfied by content.Fetcher.
type ListFetcher interface {
	Fetch(ctx context.Context) models.ListResult
}

// StatusFetcher is satisfied by spotify.Fetcher.
type StatusFetcher interface {
	Fetch(ctx context.Context) models.PlaybackStatus
}

// Probe is one named upstream check.
type Probe struct {
	Name  string
	Check func(ctx context.Context) (models.ProbeState, string)
}

// ListProbe checks a content fetcher.
func ListProbe(name string, f ListFetcher) Probe {
	return Probe{Name: name, Check: func(ctx context.Context) (models.ProbeState, string) {
		return ClassifyList(f.Fetch(ctx))
	}}
}

// PlaybackProbe checks the playback fetcher.
func PlaybackProbe(name string, f StatusFetcher) Probe {
	return Probe{Name: name, Check: func(ctx context.Context) (models.ProbeState, string) {
		return ClassifyPlayback(f.Fetch(ctx))
	}}
}

// ClassifyList maps a content result onto a probe state.
func ClassifyList(res models.ListResult) (models.ProbeState, string) {
	switch {
	case res.Source == models.SourceLive:
		return models.ProbeOK, ""
	case res.Error != "":
		return models.ProbeDegraded, res.Error
	default:
		return models.ProbeFallback, "serving fallback content"
	}
}

// ClassifyPlayback separates credentials that need re-authorization from
// transient failures.
func ClassifyPlayback(st models.PlaybackStatus) (models.ProbeState, string) {
	switch st.ErrorReason {
	case "":
		return models.ProbeOK, ""
	case spotify.ReasonInvalidRefreshToken, spotify.ReasonAuthExpired:
		return models.ProbeReauth, st.ErrorReason
	case spotify.ReasonNoRefreshToken, spotify.ReasonMissingCredentials:
		return models.ProbeFallback, st.ErrorReason
	default:
		return models.ProbeDegraded, st.ErrorReason
	}
}

// Monitor periodically runs every probe concurrently and records the
// outcomes in the store.
type Monitor struct {
	store    *store.Store
	probes   []Probe
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// New returns a Monitor that checks probes every interval.
func New(s *store.Store, probes []Probe, interval time.Duration, logger *slog.Logger) *Monitor {
	return &Monitor{
		store:    s,
		probes:   probes,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start begins the background loop. It blocks until ctx is cancelled.
// A non-positive interval returns immediately.
func (m *Monitor) Start(ctx context.Context) {
	if m.interval <= 0 {
		m.logger.Info("monitor disabled")
		return
	}
	m.logger.Info("monitor started", "interval", m.interval, "probes", len(m.probes))

	// Run immediately on startup, then on every tick.
	m.RunOnce(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

// RunOnce fans out one goroutine per probe, collects the records through a
// channel and saves them.
func (m *Monitor) RunOnce(ctx context.Context) {
	if len(m.probes) == 0 {
		return
	}

	results := make(chan models.ProbeRecord, len(m.probes))

	var wg sync.WaitGroup
	for _, p := range m.probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			results <- m.run(ctx, p)
		}(p)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for rec := range results {
		m.store.Save(rec)
		level := slog.LevelInfo
		if rec.State == models.ProbeReauth || rec.State == models.ProbeDegraded {
			level = slog.LevelWarn
		}
		m.logger.Log(ctx, level, "probe checked",
			"probe", rec.Name,
			"state", rec.State,
			"detail", rec.Detail,
			"latency_ms", rec.LatencyMs,
		)
	}
}

func (m *Monitor) run(ctx context.Context, p Probe) (rec models.ProbeRecord) {
	start := m.now()
	rec = models.ProbeRecord{Name: p.Name, CheckedAt: start.UTC()}
	defer func() {
		if r := recover(); r != nil {
			rec.State = models.ProbeDegraded
			rec.Detail = "probe panicked"
		}
		rec.LatencyMs = m.now().Sub(start).Milliseconds()
	}()

	rec.State, rec.Detail = p.Check(ctx)
	return rec
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/raffaelramalhorosa/folio-api/internal/content"
	"github.com/raffaelramalhorosa/folio-api/internal/models"
	"github.com/raffaelramalhorosa/folio-api/internal/store"
)

// NowPlayingCacheControl lets shared caches serve the playback status
// briefly since it changes often but cheaply.
const NowPlayingCacheControl = "public, s-maxage=60, stale-while-revalidate=30"

type ListFetcher interface {
	Fetch(ctx context.Context) models.ListResult
}

type PlaybackFetcher interface {
	Fetch(ctx context.Context) models.PlaybackStatus
}

// EntryReader serves single journal entries and the connection self-test.
type EntryReader interface {
	Entry(ctx context.Context, id string) (models.EntryDetail, error)
	TestConnection(ctx context.Context) models.ConnectionReport
}

// Deps are the components the handlers call into.
type Deps struct {
	Journal  ListFetcher
	Entries  EntryReader
	Writing  ListFetcher
	Playback PlaybackFetcher
	Probes   *store.Store

	// Only used to describe the environment in the connection test.
	NotionToken      string
	NotionDatabaseID string
}

// Server holds dependencies for the HTTP handlers.
type Server struct {
	deps    Deps
	logger  *slog.Logger
	mux     *http.ServeMux
	handler http.Handler
}

// New wires up routes and returns a ready-to-use Server.
func New(deps Deps, logger *slog.Logger) *Server {
	srv := &Server{deps: deps, logger: logger, mux: http.NewServeMux()}
	srv.routes()
	srv.handler = requestID(srv.logRequests(srv.mux))
	return srv
}

// ServeHTTP makes Server satisfy the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ---------- Routes ----------

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)

	s.mux.HandleFunc("GET /api/journal", s.handleJournal)
	s.mux.HandleFunc("GET /api/journal/test", s.handleJournalTest)
	s.mux.HandleFunc("GET /api/journal/{id}", s.handleJournalEntry)

	s.mux.HandleFunc("GET /api/writing", s.handleWriting)

	s.mux.HandleFunc("GET /api/spotify/now-playing", s.handleNowPlaying)
	s.mux.HandleFunc("GET /api/auth/callback/spotify", s.handleSpotifyCallback)
}

// ---------- Handlers ----------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Probes == nil {
		writeJSON(w, http.StatusOK, map[string]any{"probes": []models.ProbeRecord{}})
		return
	}
	if name := r.URL.Query().Get("probe"); name != "" {
		limit := 0
		if l := r.URL.Query().Get("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"probe":   name,
			"history": s.deps.Probes.History(name, limit),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"probes": s.deps.Probes.Latest()})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Journal.Fetch(r.Context()))
}

func (s *Server) handleWriting(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Writing.Fetch(r.Context()))
}

func (s *Server) handleJournalTest(w http.ResponseWriter, r *http.Request) {
	report := s.deps.Entries.TestConnection(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   report.Success,
		"message":   report.Message,
		"details":   report.Details,
		"timestamp": time.Now().UTC(),
		"environment": map[string]any{
			"hasToken":      s.deps.NotionToken != "",
			"hasDatabaseId": s.deps.NotionDatabaseID != "",
			"tokenPrefix":   redact(s.deps.NotionToken, 10),
			"databaseId":    redact(s.deps.NotionDatabaseID, 8),
		},
	})
}

func (s *Server) handleJournalEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "entry id is required"})
		return
	}

	detail, err := s.deps.Entries.Entry(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, detail)
	case errors.Is(err, content.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "journal entry not found"})
	case errors.Is(err, content.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "journal store not configured"})
	default:
		s.logger.Error("journal entry fetch failed", "id", id, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to fetch journal entry"})
	}
}

func (s *Server) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	status := s.deps.Playback.Fetch(r.Context())
	w.Header().Set("Cache-Control", NowPlayingCacheControl)
	writeJSON(w, http.StatusOK, status)
}

// ---------- Helpers ----------

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func redact(s string, keep int) string {
	if s == "" {
		return "not set"
	}
	if len(s) <= keep {
		return "..."
	}
	return s[:keep] + "..."
}

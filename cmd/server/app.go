package main

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/raffaelramalhorosa/folio-api/internal/config"
	"github.com/raffaelramalhorosa/folio-api/internal/content"
	"github.com/raffaelramalhorosa/folio-api/internal/monitor"
	"github.com/raffaelramalhorosa/folio-api/internal/notion"
	"github.com/raffaelramalhorosa/folio-api/internal/spotify"
	"github.com/raffaelramalhorosa/folio-api/internal/store"
)

// app holds every component built from one configuration. The HTTP client
// and the document store client are shared by all of them.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	journal  *content.Fetcher
	entries  *content.NotionSource
	writing  *content.Fetcher
	playback *spotify.Fetcher
	probes   *store.Store
	monitor  *monitor.Monitor
}

// loadApp loads the configuration and builds the components, logging JSON
// to logOut.
func loadApp(logOut io.Writer) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	return buildApp(cfg, logger), nil
}

func buildApp(cfg *config.Config, logger *slog.Logger) *app {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	notionClient := notion.New(httpClient, cfg.Notion.Token,
		notion.WithBaseURL(cfg.Notion.BaseURL),
		notion.WithVersion(cfg.Notion.Version),
	)
	entries := content.NewNotionSource(notionClient, cfg.Notion.Token, cfg.Notion.DatabaseID, content.NotionOptions{
		Aliases:        cfg.Content.Aliases,
		Categories:     cfg.Content.Categories,
		PublishedValue: cfg.Notion.PublishedValue,
		MaxPages:       cfg.Content.MaxPages,
	}, logger.With("component", "notion"))

	feed := content.NewFeedSource(cfg.Writing.FeedURL, httpClient, cfg.Content.Categories, cfg.Writing.ExcerptLength, logger.With("component", "feed"))

	playback := spotify.New(spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RefreshToken: cfg.Spotify.RefreshToken,
		RedirectURI:  cfg.Spotify.RedirectURI,
		TokenURL:     cfg.Spotify.TokenURL,
		AuthURL:      cfg.Spotify.AuthURL,
		APIBaseURL:   cfg.Spotify.APIBaseURL,
		Timeout:      cfg.SpotifyTimeout(),
	}, httpClient, logger.With("component", "spotify"))

	a := &app{
		cfg:      cfg,
		logger:   logger,
		journal:  content.NewFetcher(entries, content.JournalFallback(), cfg.ContentTimeout(), logger.With("component", "journal")),
		entries:  entries,
		writing:  content.NewFetcher(feed, content.WritingFallback(), cfg.ContentTimeout(), logger.With("component", "writing")),
		playback: playback,
		probes:   store.New(cfg.Monitor.History),
	}
	a.monitor = monitor.New(a.probes, []monitor.Probe{
		monitor.ListProbe("journal", a.journal),
		monitor.ListProbe("writing", a.writing),
		monitor.PlaybackProbe("now-playing", a.playback),
	}, cfg.MonitorInterval(), logger.With("component", "monitor"))
	return a
}

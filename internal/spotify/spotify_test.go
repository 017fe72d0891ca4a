package spotify_test

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raffaelramalhorosa/folio-api/internal/models"
	"github.com/raffaelramalhorosa/folio-api/internal/spotify"
)

type upstream struct {
	tokenStatus int
	tokenBody   string

	playStatus int
	playBody   string
	playDelay  time.Duration

	tokenCalls atomic.Int32
	playCalls  atomic.Int32
	lastAuth   atomic.Value
}

func (u *upstream) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", func(w http.ResponseWriter, r *http.Request) {
		u.tokenCalls.Add(1)
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("cid:secret"))
		if r.Header.Get("Authorization") != want {
			t.Errorf("token request auth = %q", r.Header.Get("Authorization"))
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "refresh" {
			t.Errorf("unexpected token form: %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(u.tokenStatus)
		io.WriteString(w, u.tokenBody)
	})
	mux.HandleFunc("GET /v1/me/player/currently-playing", func(w http.ResponseWriter, r *http.Request) {
		u.playCalls.Add(1)
		u.lastAuth.Store(r.Header.Get("Authorization"))
		if u.playDelay > 0 {
			select {
			case <-time.After(u.playDelay):
			case <-r.Context().Done():
				return
			}
		}
		if u.playBody != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(u.playStatus)
		io.WriteString(w, u.playBody)
	})
	return mux
}

func okToken() (int, string) {
	return http.StatusOK, `{"access_token":"access-123","token_type":"Bearer","expires_in":3600}`
}

func newFetcher(t *testing.T, u *upstream, mutate func(*spotify.Config)) *spotify.Fetcher {
	t.Helper()
	srv := httptest.NewServer(u.handler(t))
	t.Cleanup(srv.Close)

	cfg := spotify.Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		RefreshToken: "refresh",
		TokenURL:     srv.URL + "/api/token",
		APIBaseURL:   srv.URL,
		Timeout:      2 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return spotify.New(cfg, srv.Client(), logger)
}

const playingBody = `{
  "is_playing": true,
  "progress_ms": 42000,
  "item": {
    "name": "Teardrop",
    "duration_ms": 330000,
    "artists": [{"name": "Massive Attack"}, {"name": "Elizabeth Fraser"}],
    "album": {"name": "Mezzanine", "images": [{"url": "https://img/640"}, {"url": "https://img/300"}]},
    "external_urls": {"spotify": "https://open.spotify.com/track/1"}
  }
}`

func TestNoRefreshToken(t *testing.T) {
	u := &upstream{}
	f := newFetcher(t, u, func(c *spotify.Config) { c.RefreshToken = "" })

	got := f.Fetch(context.Background())
	if got != models.Idle(spotify.ReasonNoRefreshToken) {
		t.Fatalf("unexpected status: %+v", got)
	}
	if u.tokenCalls.Load() != 0 || u.playCalls.Load() != 0 {
		t.Fatal("expected no upstream calls without a refresh token")
	}
}

func TestMissingClientCredentials(t *testing.T) {
	u := &upstream{}
	f := newFetcher(t, u, func(c *spotify.Config) { c.ClientSecret = "" })

	got := f.Fetch(context.Background())
	if got.IsActive || got.ErrorReason != spotify.ReasonMissingCredentials {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestExpiredRefreshToken(t *testing.T) {
	u := &upstream{tokenStatus: http.StatusBadRequest, tokenBody: `{"error":"invalid_grant","error_description":"Refresh token revoked"}`}
	f := newFetcher(t, u, nil)

	got := f.Fetch(context.Background())
	if got != models.Idle(spotify.ReasonInvalidRefreshToken) {
		t.Fatalf("unexpected status: %+v", got)
	}
	if u.playCalls.Load() != 0 {
		t.Fatal("status endpoint must not be called after a failed refresh")
	}
}

func TestTokenEndpointOtherError(t *testing.T) {
	u := &upstream{tokenStatus: http.StatusBadRequest, tokenBody: `{"error":"invalid_client"}`}
	got := newFetcher(t, u, nil).Fetch(context.Background())
	if got.IsActive || got.ErrorReason != "invalid_client" {
		t.Fatalf("unexpected status: %+v", got)
	}

	u = &upstream{tokenStatus: http.StatusInternalServerError, tokenBody: `{}`}
	got = newFetcher(t, u, nil).Fetch(context.Background())
	if got.IsActive || got.ErrorReason != spotify.ReasonTokenRefreshFailed {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestTokenResponseWithoutAccessToken(t *testing.T) {
	u := &upstream{tokenStatus: http.StatusOK, tokenBody: `{"token_type":"Bearer"}`}

	got := newFetcher(t, u, nil).Fetch(context.Background())
	if got != models.Idle(spotify.ReasonTokenRefreshFailed) {
		t.Fatalf("unexpected status: %+v", got)
	}
	if u.playCalls.Load() != 0 {
		t.Fatal("status endpoint must not be called without an access token")
	}
}

func TestNothingPlaying(t *testing.T) {
	status, body := okToken()
	u := &upstream{tokenStatus: status, tokenBody: body, playStatus: http.StatusNoContent}

	got := newFetcher(t, u, nil).Fetch(context.Background())
	if got != (models.PlaybackStatus{}) {
		t.Fatalf("expected exactly {isActive:false}, got %+v", got)
	}
	if auth, _ := u.lastAuth.Load().(string); auth != "Bearer access-123" {
		t.Fatalf("status request auth = %q", auth)
	}
}

func TestAuthorizationExpired(t *testing.T) {
	status, body := okToken()
	u := &upstream{tokenStatus: status, tokenBody: body, playStatus: http.StatusUnauthorized}

	got := newFetcher(t, u, nil).Fetch(context.Background())
	if got.IsActive || got.ErrorReason == "" {
		t.Fatalf("expected error reason for 401, got %+v", got)
	}
	if got.ErrorReason != spotify.ReasonAuthExpired {
		t.Fatalf("reason = %q", got.ErrorReason)
	}
}

func TestAuthorizationExpiredWithErrorBody(t *testing.T) {
	status, body := okToken()
	u := &upstream{tokenStatus: status, tokenBody: body, playStatus: http.StatusUnauthorized,
		playBody: `{"error":{"status":401,"message":"The access token expired"}}`}

	got := newFetcher(t, u, nil).Fetch(context.Background())
	if got.IsActive || got.ErrorReason != spotify.ReasonAuthExpired {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestUpstreamError(t *testing.T) {
	for _, playBody := range []string{"", `{"error":{"status":503,"message":"Service unavailable"}}`} {
		status, body := okToken()
		u := &upstream{tokenStatus: status, tokenBody: body, playStatus: http.StatusServiceUnavailable, playBody: playBody}

		got := newFetcher(t, u, nil).Fetch(context.Background())
		if got.IsActive || got.ErrorReason != "upstream error 503" {
			t.Fatalf("body %q: reason = %q", playBody, got.ErrorReason)
		}
	}
}

func TestEmptyAndMalformedBodies(t *testing.T) {
	bodies := []string{"", "{not json", `{"is_playing":true,"item":null}`, `{"is_playing":true,"item":{"name":"","artists":[]}}`}
	for _, b := range bodies {
		status, body := okToken()
		u := &upstream{tokenStatus: status, tokenBody: body, playStatus: http.StatusOK, playBody: b}
		got := newFetcher(t, u, nil).Fetch(context.Background())
		if got != (models.PlaybackStatus{}) {
			t.Errorf("body %q: expected idle, got %+v", b, got)
		}
	}
}

func TestTrackPlaying(t *testing.T) {
	status, body := okToken()
	u := &upstream{tokenStatus: status, tokenBody: body, playStatus: http.StatusOK, playBody: playingBody}

	got := newFetcher(t, u, nil).Fetch(context.Background())
	if !got.IsActive {
		t.Fatalf("expected active status, got %+v", got)
	}
	if got.Title != "Teardrop" || got.Performer != "Massive Attack, Elizabeth Fraser" {
		t.Errorf("title/performer = %q / %q", got.Title, got.Performer)
	}
	if got.CollectionName != "Mezzanine" || got.ArtworkURL != "https://img/640" || got.ExternalURL != "https://open.spotify.com/track/1" {
		t.Errorf("unexpected metadata: %+v", got)
	}
	if got.ElapsedMs == nil || got.TotalMs == nil || *got.ElapsedMs > *got.TotalMs {
		t.Fatalf("expected elapsed <= total, got %v / %v", got.ElapsedMs, got.TotalMs)
	}
	if got.ErrorReason != "" {
		t.Errorf("unexpected error reason %q", got.ErrorReason)
	}
}

func TestPausedTrackIsInactive(t *testing.T) {
	status, body := okToken()
	paused := strings.Replace(playingBody, `"is_playing": true`, `"is_playing": false`, 1)
	u := &upstream{tokenStatus: status, tokenBody: body, playStatus: http.StatusOK, playBody: paused}

	got := newFetcher(t, u, nil).Fetch(context.Background())
	if got != (models.PlaybackStatus{}) {
		t.Fatalf("paused track must report no now-playing fields, got %+v", got)
	}
}

func TestPlaybackTimeout(t *testing.T) {
	status, body := okToken()
	u := &upstream{tokenStatus: status, tokenBody: body, playStatus: http.StatusOK, playBody: playingBody, playDelay: time.Second}
	f := newFetcher(t, u, func(c *spotify.Config) { c.Timeout = 50 * time.Millisecond })

	got := f.Fetch(context.Background())
	if got.IsActive || got.ErrorReason != spotify.ReasonTimeout {
		t.Fatalf("expected timeout reason, got %+v", got)
	}
}

func TestEachFetchRefreshesToken(t *testing.T) {
	status, body := okToken()
	u := &upstream{tokenStatus: status, tokenBody: body, playStatus: http.StatusNoContent}
	f := newFetcher(t, u, nil)

	f.Fetch(context.Background())
	f.Fetch(context.Background())
	if n := u.tokenCalls.Load(); n != 2 {
		t.Fatalf("expected a token refresh per call, got %d", n)
	}
}

func TestAuthCodeURL(t *testing.T) {
	f := spotify.New(spotify.Config{ClientID: "cid", RedirectURI: "https://example.com/cb"}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	u := f.AuthCodeURL("xyz")
	for _, want := range []string{
		"https://accounts.spotify.com/authorize?",
		"client_id=cid",
		"response_type=code",
		"state=xyz",
		"scope=user-read-currently-playing+user-read-playback-state",
		"redirect_uri=https%3A%2F%2Fexample.com%2Fcb",
	} {
		if !strings.Contains(u, want) {
			t.Errorf("auth url %q missing %q", u, want)
		}
	}
}

func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("grant_type") != "authorization_code" {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"unsupported_grant_type"}`)
			return
		}
		if r.PostForm.Get("code") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		io.WriteString(w, `{"access_token":"a","refresh_token":"r","token_type":"Bearer","expires_in":3600}`)
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := spotify.New(spotify.Config{ClientID: "cid", ClientSecret: "secret", TokenURL: srv.URL}, srv.Client(), logger)

	tok, err := f.Exchange(context.Background(), "good")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if tok.RefreshToken != "r" {
		t.Errorf("refresh token = %q", tok.RefreshToken)
	}

	if _, err := f.Exchange(context.Background(), "stale"); err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expired-code error, got %v", err)
	}
}

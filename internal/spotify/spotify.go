package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	spotifyapi "github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/raffaelramalhorosa/folio-api/internal/models"
)

// Error reasons reported in PlaybackStatus.ErrorReason.
const (
	ReasonNoRefreshToken      = "no refresh credential configured"
	ReasonMissingCredentials  = "missing client credentials"
	ReasonInvalidRefreshToken = "invalid_refresh_token"
	ReasonTokenRefreshFailed  = "token_refresh_failed"
	ReasonAuthExpired         = "authorization expired"
	ReasonTimeout             = "upstream timeout"
)

const (
	DefaultTokenURL   = "https://accounts.spotify.com/api/token"
	DefaultAuthURL    = "https://accounts.spotify.com/authorize"
	DefaultAPIBaseURL = "https://api.spotify.com"
)

// Scopes needed to read playback state.
var Scopes = []string{"user-read-currently-playing", "user-read-playback-state"}

// Config holds the static credentials and endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	RedirectURI  string
	TokenURL     string
	AuthURL      string
	APIBaseURL   string
	Timeout      time.Duration
}

// Fetcher resolves the current playback status. Each Fetch performs its own
// token refresh; nothing is cached between calls.
type Fetcher struct {
	cfg        Config
	oauth      *oauth2.Config
	httpClient *http.Client
	logger     *slog.Logger
}

// New returns a Fetcher. httpClient is used for both the token and the
// status endpoint; nil means http.DefaultClient.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	return &Fetcher{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: httpClient,
		logger:     logger,
	}
}

// Fetch returns the current playback status. It never fails: every error is
// reported through ErrorReason on an inactive status.
func (f *Fetcher) Fetch(ctx context.Context) (status models.PlaybackStatus) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("playback fetch panicked", "panic", r)
			status = models.Idle(fmt.Sprint(r))
		}
	}()

	if f.cfg.RefreshToken == "" {
		return models.Idle(ReasonNoRefreshToken)
	}
	if f.cfg.ClientID == "" || f.cfg.ClientSecret == "" {
		return models.Idle(ReasonMissingCredentials)
	}

	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	tok, reason := f.accessToken(ctx)
	if reason != "" {
		return models.Idle(reason)
	}
	return f.currentlyPlaying(ctx, tok)
}

// accessToken runs the refresh-token grant. On failure it returns the
// reason to report instead of a token.
func (f *Fetcher) accessToken(ctx context.Context) (*oauth2.Token, string) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	tok, err := f.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: f.cfg.RefreshToken}).Token()
	if err == nil {
		return tok, ""
	}

	reason := tokenFailureReason(ctx, err)
	if reason == ReasonInvalidRefreshToken {
		f.logger.Warn("refresh token is invalid or expired")
	} else {
		f.logger.Error("token refresh failed", "error", err, "reason", reason)
	}
	return nil, reason
}

func tokenFailureReason(ctx context.Context, err error) string {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		switch {
		case rErr.ErrorCode == "invalid_grant":
			return ReasonInvalidRefreshToken
		case rErr.ErrorCode != "":
			return rErr.ErrorCode
		default:
			return ReasonTokenRefreshFailed
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonTokenRefreshFailed
}

func (f *Fetcher) currentlyPlaying(ctx context.Context, tok *oauth2.Token) models.PlaybackStatus {
	next := f.httpClient.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	rec := &statusRecorder{next: next}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: rec})

	client := spotifyapi.New(oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok)),
		spotifyapi.WithBaseURL(f.cfg.APIBaseURL+"/v1/"),
	)
	playing, err := client.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return f.playbackFailure(ctx, err, rec.status)
	}

	status := statusFrom(playing)
	if status.ElapsedMs != nil && status.TotalMs != nil && *status.ElapsedMs > *status.TotalMs {
		f.logger.Warn("playback progress exceeds duration",
			"elapsed_ms", *status.ElapsedMs,
			"total_ms", *status.TotalMs,
		)
	}
	return status
}

// playbackFailure maps a failed status query. httpStatus is the last
// response status seen, 0 when no response arrived.
func (f *Fetcher) playbackFailure(ctx context.Context, err error, httpStatus int) models.PlaybackStatus {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.Idle(ReasonTimeout)
	}

	var apiErr spotifyapi.Error
	var apiErrPtr *spotifyapi.Error
	switch {
	case errors.As(err, &apiErr):
		httpStatus = apiErr.Status
	case errors.As(err, &apiErrPtr):
		httpStatus = apiErrPtr.Status
	}

	switch {
	case httpStatus == http.StatusUnauthorized:
		return models.Idle(ReasonAuthExpired)
	case httpStatus >= 400:
		f.logger.Warn("playback endpoint error", "status", httpStatus, "error", err)
		return models.Idle(fmt.Sprintf("upstream error %d", httpStatus))
	case httpStatus >= 200 && httpStatus < 300:
		// 2xx with an empty or undecodable body.
		if !errors.Is(err, io.EOF) {
			f.logger.Warn("malformed playback payload", "error", err)
		}
		return models.PlaybackStatus{}
	}
	f.logger.Error("playback request failed", "error", err)
	return models.Idle(err.Error())
}

// statusRecorder remembers the status of the last response it carried.
type statusRecorder struct {
	next   http.RoundTripper
	status int
}

func (r *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := r.next.RoundTrip(req)
	if resp != nil {
		r.status = resp.StatusCode
	}
	return resp, err
}

// AuthCodeURL returns the user authorization URL for the code flow.
func (f *Fetcher) AuthCodeURL(state string) string {
	return f.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token pair.
func (f *Fetcher) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if f.cfg.ClientID == "" || f.cfg.ClientSecret == "" {
		return nil, errors.New(ReasonMissingCredentials)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	tok, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.ErrorCode == "invalid_grant" {
			return nil, fmt.Errorf("authorization code expired or already used: %w", err)
		}
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tok, nil
}

package api

import (
	"html/template"
	"net/http"
)

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
  <head>
    <title>{{.Title}}</title>
    <style>
      body { font-family: system-ui, sans-serif; background: #1e3a8a; color: white; display: flex; align-items: center; justify-content: center; min-height: 100vh; margin: 0; }
      .container { text-align: center; padding: 2rem; background: rgba(0,0,0,0.3); border-radius: 1rem; max-width: 600px; }
      .error { color: #ef4444; }
      .success { color: #10b981; }
      .code { background: rgba(0,0,0,0.5); padding: 1rem; border-radius: 0.5rem; font-family: monospace; word-break: break-all; margin: 1rem 0; }
      a { color: white; }
    </style>
  </head>
  <body>
    <div class="container">
      <h1>{{.Title}}</h1>
      {{if .Error}}<p class="error">Error: {{.Error}}</p><p>Authorization was denied or failed.</p>{{end}}
      {{if .Missing}}<p class="error">No authorization code received.</p>{{end}}
      {{if .Code}}
      <p class="success">Authorization code received.</p>
      <div class="code" id="authCode">{{.Code}}</div>
      <p>Exchange it for a refresh token:</p>
      <div class="code">folio spotify exchange {{.Code}}</div>
      <p>Then set SPOTIFY_REFRESH_TOKEN and restart the service.</p>
      {{end}}
      <a href="/">Return to Home</a>
    </div>
  </body>
</html>
`))

type callbackView struct {
	Title   string
	Error   string
	Missing bool
	Code    string
}

// handleSpotifyCallback is the OAuth redirect target. It only displays the
// authorization code; exchanging it is done out of band with the CLI.
func (s *Server) handleSpotifyCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := callbackView{Title: "Spotify Authorization"}
	status := http.StatusOK

	switch {
	case q.Get("error") != "":
		view.Error = q.Get("error")
		status = http.StatusBadRequest
	case q.Get("code") == "":
		view.Missing = true
		status = http.StatusBadRequest
	default:
		view.Title = "Spotify Authorization Success"
		view.Code = q.Get("code")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := callbackPage.Execute(w, view); err != nil {
		s.logger.Error("render callback page", "error", err)
	}
}

package spotify

import (
	"strings"

	spotifyapi "github.com/zmb3/spotify/v2"

	"github.com/raffaelramalhorosa/folio-api/internal/models"
)

// statusFrom maps a currently-playing response onto a PlaybackStatus.
// Anything short of a playing track with a title and performer is reported
// as idle. A 204 response arrives here as the zero value.
func statusFrom(cp *spotifyapi.CurrentlyPlaying) models.PlaybackStatus {
	if cp == nil || !cp.Playing || cp.Item == nil {
		return models.PlaybackStatus{}
	}
	item := cp.Item

	names := make([]string, 0, len(item.Artists))
	for _, a := range item.Artists {
		if n := strings.TrimSpace(a.Name); n != "" {
			names = append(names, n)
		}
	}
	title := strings.TrimSpace(item.Name)
	if title == "" || len(names) == 0 {
		return models.PlaybackStatus{}
	}

	st := models.PlaybackStatus{
		IsActive:       true,
		Title:          title,
		Performer:      strings.Join(names, ", "),
		CollectionName: item.Album.Name,
		ExternalURL:    item.ExternalURLs["spotify"],
	}
	for _, img := range item.Album.Images {
		if img.URL != "" {
			st.ArtworkURL = img.URL
			break
		}
	}
	if total := int64(item.Duration); total > 0 {
		elapsed := int64(cp.Progress)
		st.ElapsedMs = &elapsed
		st.TotalMs = &total
	}
	return st
}

package models

import (
	"encoding/json"
	"time"
)

// SourceTag marks whether a list came from upstream or the static fallback.
type SourceTag string

const (
	SourceLive     SourceTag = "live"
	SourceFallback SourceTag = "fallback"
)

// ListEntry is a single normalized record of a content listing.
type ListEntry struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Date         string   `json:"date"`
	Excerpt      string   `json:"excerpt"`
	Category     string   `json:"category"`
	Status       string   `json:"status"`
	Tags         []string `json:"tags"`
	LastModified string   `json:"lastModified"`
}

// ListResult is what a content fetch hands back to its caller.
// Entries is never empty.
type ListResult struct {
	Entries   []ListEntry `json:"entries"`
	Count     int         `json:"count"`
	Source    SourceTag   `json:"source"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// EntryDetail is a single content record with its body blocks.
type EntryDetail struct {
	Entry      ListEntry         `json:"entry"`
	Content    []json.RawMessage `json:"content"`
	LastEdited string            `json:"lastEdited"`
	Timestamp  time.Time         `json:"timestamp"`
}

// ConnectionDetails describes the upstream collection when a connection
// test succeeds.
type ConnectionDetails struct {
	Title      string   `json:"title"`
	Properties []string `json:"properties"`
	Created    string   `json:"created"`
	LastEdited string   `json:"lastEdited"`
}

// ConnectionReport is the outcome of a document store self-test.
type ConnectionReport struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Details *ConnectionDetails `json:"details,omitempty"`
}

// PlaybackStatus is the normalized "currently playing" state.
//
// When IsActive is false none of the now-playing fields are set. ElapsedMs
// and TotalMs are either both set or both nil.
type PlaybackStatus struct {
	IsActive       bool   `json:"isActive"`
	Title          string `json:"title,omitempty"`
	Performer      string `json:"performer,omitempty"`
	CollectionName string `json:"collectionName,omitempty"`
	ArtworkURL     string `json:"artworkUrl,omitempty"`
	ExternalURL    string `json:"externalUrl,omitempty"`
	ElapsedMs      *int64 `json:"elapsedMs,omitempty"`
	TotalMs        *int64 `json:"totalMs,omitempty"`
	ErrorReason    string `json:"errorReason,omitempty"`
}

// Idle returns an inactive status carrying reason, which may be empty.
func Idle(reason string) PlaybackStatus {
	return PlaybackStatus{ErrorReason: reason}
}

// ProbeState is the operator-facing classification of a probe outcome.
type ProbeState string

const (
	ProbeOK       ProbeState = "ok"
	ProbeFallback ProbeState = "fallback"
	ProbeReauth   ProbeState = "reauth"
	ProbeDegraded ProbeState = "degraded"
)

// ProbeRecord is one background check of an upstream integration.
type ProbeRecord struct {
	Name      string     `json:"name"`
	State     ProbeState `json:"state"`
	Detail    string     `json:"detail,omitempty"`
	LatencyMs int64      `json:"latencyMs"`
	CheckedAt time.Time  `json:"checkedAt"`
}


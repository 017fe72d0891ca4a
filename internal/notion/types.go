package notion

import (
	"encoding/json"
	"fmt"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion: HTTP %d", e.Status)
	}
	if e.Message == "" {
		return fmt.Sprintf("notion: HTTP %d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("notion: HTTP %d %s: %s", e.Status, e.Code, e.Message)
}

const (
	CodeObjectNotFound = "object_not_found"
	CodeUnauthorized   = "unauthorized"
)

// Query is one page of a database query.
type Query struct {
	Filter      *Filter
	Sorts       []Sort
	StartCursor string
	PageSize    int
}

// Filter is either a compound filter (Or) or a single select filter.
type Filter struct {
	Or       []Filter
	Property string
	Select   *SelectCondition
}

type SelectCondition struct {
	Equals  string
	IsEmpty bool
}

type Sort struct {
	Property  string
	Direction string
}

const (
	Ascending  = "ascending"
	Descending = "descending"
)

type QueryResponse struct {
	Results    []Page
	HasMore    bool
	NextCursor string
}

type Page struct {
	Object         string
	ID             string
	LastEditedTime string
	Properties     map[string]Property
}

// Property is a page property value. Only the member matching Type is
// populated. Status properties are reported as selects.
type Property struct {
	Type        string
	Title       []RichText
	RichText    []RichText
	Date        *Date
	Select      *SelectOption
	MultiSelect []SelectOption
}

const (
	TypeTitle       = "title"
	TypeRichText    = "rich_text"
	TypeDate        = "date"
	TypeSelect      = "select"
	TypeMultiSelect = "multi_select"
)

type RichText struct {
	PlainText string
}

type Date struct {
	Start string
	End   string
}

type SelectOption struct {
	Name string
}

// Database is database metadata. Properties holds the schema, keyed by
// property name.
type Database struct {
	ID             string
	Title          []RichText
	Properties     map[string]json.RawMessage
	CreatedTime    string
	LastEditedTime string
}

// BlockList is one page of child blocks, each re-encoded as JSON.
type BlockList struct {
	Results    []json.RawMessage
	HasMore    bool
	NextCursor string
}

// PlainText concatenates the plain text of a rich text run.
func PlainText(rt []RichText) string {
	var s string
	for _, r := range rt {
		s += r.PlainText
	}
	return s
}

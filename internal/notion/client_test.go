package notion_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raffaelramalhorosa/folio-api/internal/notion"
)

func newServer(t *testing.T, handler http.HandlerFunc) *notion.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return notion.New(srv.Client(), "secret_test", notion.WithBaseURL(srv.URL))
}

type sentQuery struct {
	Filter struct {
		Or []struct {
			Property string `json:"property"`
			Select   struct {
				Equals  string `json:"equals"`
				IsEmpty bool   `json:"is_empty"`
			} `json:"select"`
		} `json:"or"`
	} `json:"filter"`
	Sorts []struct {
		Property  string `json:"property"`
		Direction string `json:"direction"`
	} `json:"sorts"`
	StartCursor string `json:"start_cursor"`
}

func TestQueryDatabaseSendsFilterAndHeaders(t *testing.T) {
	var got sentQuery
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/databases/db1/query" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret_test" {
			t.Errorf("missing bearer token")
		}
		if r.Header.Get("Notion-Version") != notion.DefaultVersion {
			t.Errorf("Notion-Version = %q", r.Header.Get("Notion-Version"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","results":[{"object":"page","id":"p1","created_time":"2024-12-20T10:00:00.000Z","last_edited_time":"2024-12-20T10:00:00.000Z","properties":{
			"Title":{"id":"title","type":"title","title":[{"type":"text","text":{"content":"Hello"},"plain_text":"Hello"}]},
			"Date":{"id":"d","type":"date","date":{"start":"2024-12-15"}},
			"Status":{"id":"s","type":"status","status":{"id":"x","name":"Published","color":"green"}},
			"Tags":{"id":"t","type":"multi_select","multi_select":[{"id":"a","name":"go","color":"blue"}]}
		}}],"has_more":true,"next_cursor":"c2"}`))
	})

	q := notion.Query{
		Filter: &notion.Filter{Or: []notion.Filter{
			{Property: "Status", Select: &notion.SelectCondition{Equals: "Published"}},
			{Property: "Status", Select: &notion.SelectCondition{IsEmpty: true}},
		}},
		Sorts:       []notion.Sort{{Property: "Date", Direction: notion.Descending}},
		StartCursor: "c1",
	}
	resp, err := client.QueryDatabase(context.Background(), "db1", q)
	if err != nil {
		t.Fatalf("QueryDatabase: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "p1" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
	if !resp.HasMore || resp.NextCursor != "c2" {
		t.Errorf("pagination = %v/%q", resp.HasMore, resp.NextCursor)
	}

	props := resp.Results[0].Properties
	if title := notion.PlainText(props["Title"].Title); title != "Hello" {
		t.Errorf("title = %q", title)
	}
	if d := props["Date"].Date; d == nil || d.Start[:10] != "2024-12-15" {
		t.Errorf("date = %+v", d)
	}
	if st := props["Status"]; st.Type != notion.TypeSelect || st.Select == nil || st.Select.Name != "Published" {
		t.Errorf("status = %+v", st)
	}
	if tags := props["Tags"].MultiSelect; len(tags) != 1 || tags[0].Name != "go" {
		t.Errorf("tags = %+v", tags)
	}
	if resp.Results[0].LastEditedTime != "2024-12-20T10:00:00Z" {
		t.Errorf("last edited = %q", resp.Results[0].LastEditedTime)
	}

	if len(got.Filter.Or) != 2 || got.Filter.Or[0].Select.Equals != "Published" || !got.Filter.Or[1].Select.IsEmpty {
		t.Errorf("filter not sent as expected: %+v", got.Filter)
	}
	if len(got.Sorts) != 1 || got.Sorts[0].Property != "Date" || got.Sorts[0].Direction != "descending" {
		t.Errorf("sorts not sent as expected: %+v", got.Sorts)
	}
	if got.StartCursor != "c1" {
		t.Errorf("start cursor = %q", got.StartCursor)
	}
}

func TestAPIErrorDecoded(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"object":"error","status":404,"code":"object_not_found","message":"Could not find page"}`))
	})

	_, err := client.RetrievePage(context.Background(), "missing")
	var apiErr *notion.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != 404 || apiErr.Code != notion.CodeObjectNotFound {
		t.Errorf("unexpected api error: %+v", apiErr)
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	if _, err := client.RetrieveDatabase(context.Background(), "db"); err == nil {
		t.Fatal("expected an error for a non-JSON error body")
	}
}

func TestRetrieveDatabase(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/databases/db" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"database","id":"db","title":[{"type":"text","text":{"content":"Journal"},"plain_text":"Journal"}],
			"properties":{"Title":{"id":"title","name":"Title","type":"title","title":{}},"Date":{"id":"d","name":"Date","type":"date","date":{}}},
			"created_time":"2024-01-01T00:00:00.000Z","last_edited_time":"2024-12-01T00:00:00.000Z"}`))
	})

	db, err := client.RetrieveDatabase(context.Background(), "db")
	if err != nil {
		t.Fatalf("RetrieveDatabase: %v", err)
	}
	if notion.PlainText(db.Title) != "Journal" || len(db.Properties) != 2 {
		t.Errorf("unexpected database: %+v", db)
	}
	if db.CreatedTime != "2024-01-01T00:00:00Z" {
		t.Errorf("created = %q", db.CreatedTime)
	}
}

func TestListBlockChildren(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/blocks/p1/children" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","results":[
			{"object":"block","id":"b1","type":"paragraph","paragraph":{"rich_text":[{"type":"text","text":{"content":"Hi"},"plain_text":"Hi"}]}},
			{"object":"block","id":"b2","type":"heading_1","heading_1":{"rich_text":[]}}
		],"has_more":false}`))
	})

	blocks, err := client.ListBlockChildren(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ListBlockChildren: %v", err)
	}
	if len(blocks.Results) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks.Results))
	}
	var first struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(blocks.Results[0], &first); err != nil || first.Type != "paragraph" {
		t.Errorf("first block = %s (%v)", blocks.Results[0], err)
	}
}

func TestDecodeError(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	if _, err := client.RetrievePage(context.Background(), "p"); err == nil {
		t.Fatal("expected decode error")
	}
}

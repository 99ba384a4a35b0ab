package lakesync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() *Payload {
	return &Payload{
		OwnerID:          "owner-1",
		Topic:            "planning",
		Content:          "Fred used Neo4j",
		ConversationDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Entities: []Entity{
			{Name: "Fred", EntityType: "Agents", Confidence: 0.95, SourceContext: "Fred used Neo4j"},
			{Name: "Neo4j", EntityType: "Technology", Confidence: 0.9},
		},
		Relationships: []Relationship{
			{From: "Fred", To: "Neo4j", RelationshipType: "agent_uses_technology", Weight: 8, Confidence: 0.85},
		},
		Metadata: Metadata{Source: "kgingest", SourceFile: "/x/c.md", Format: "claude-gui", RunID: "run-1", ContentHash: "abc"},
	}
}

func TestHTTPSyncer(t *testing.T) {
	var got Payload
	var path, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s, err := NewHTTPSyncer(srv.URL+"/", WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	require.NoError(t, s.Sync(context.Background(), testPayload()))

	assert.Equal(t, "/api/conversations", path)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, *testPayload(), got)
}

func TestHTTPSyncerPayloadFieldNames(t *testing.T) {
	data, err := json.Marshal(testPayload())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"userId", "topic", "content", "conversationDate", "entities", "relationships", "metadata"} {
		assert.Contains(t, raw, key)
	}
	ent := raw["entities"].([]any)[0].(map[string]any)
	assert.Equal(t, "Agents", ent["entityType"])
	rel := raw["relationships"].([]any)[0].(map[string]any)
	assert.Equal(t, "agent_uses_technology", rel["relationshipType"])
}

func TestHTTPSyncerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, err := NewHTTPSyncer(srv.URL)
	require.NoError(t, err)

	err = s.Sync(context.Background(), testPayload())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyncFailed)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "500")
}

func TestHTTPSyncerTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	s, err := NewHTTPSyncer(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = s.Sync(ctx, testPayload())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyncFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewHTTPSyncerURLValidation(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"empty", "", true},
		{"blank", "  ", true},
		{"slashes only", "//", true},
		{"no scheme", "lake.example.com/api", true},
		{"no host", "http://", true},
		{"unparseable", "http://[::1", true},
		{"valid", "http://lake.example.com", false},
		{"trailing slash and spaces", " https://lake.example.com/ ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHTTPSyncer(tt.baseURL)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMulti(t *testing.T) {
	first := errors.New("first")
	var calls []string
	m := Multi{
		Func(func(ctx context.Context, p *Payload) error {
			calls = append(calls, "a")
			return first
		}),
		Func(func(ctx context.Context, p *Payload) error {
			calls = append(calls, "b")
			return nil
		}),
	}

	err := m.Sync(context.Background(), testPayload())
	assert.ErrorIs(t, err, first)
	assert.Equal(t, []string{"a", "b"}, calls)

	assert.NoError(t, Multi{}.Sync(context.Background(), testPayload()))
}

func TestCypherParams(t *testing.T) {
	params := cypherParams(testPayload())

	assert.Equal(t, "owner-1", params["owner"])
	assert.Equal(t, "/x/c.md", params["sourceFile"])
	assert.Equal(t, "2024-01-15T00:00:00Z", params["date"])

	entities := params["entities"].([]map[string]any)
	require.Len(t, entities, 2)
	assert.Equal(t, "Fred", entities[0]["name"])

	rels := params["relationships"].([]map[string]any)
	require.Len(t, rels, 1)
	assert.Equal(t, int64(8), rels[0]["weight"])
}

func TestNeo4jSyncerUnreachable(t *testing.T) {
	s, err := NewNeo4jSyncer(Neo4jConfig{
		URI:             "bolt://127.0.0.1:1",
		ConnectAttempts: 2,
		ConnectDelay:    time.Millisecond,
	}, nil)
	require.NoError(t, err, "construction does not contact the server")
	defer s.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = s.Sync(ctx, testPayload())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyncFailed)
	assert.Contains(t, err.Error(), "verify neo4j connectivity")
}

func TestNewNeo4jSyncerBadURI(t *testing.T) {
	_, err := NewNeo4jSyncer(Neo4jConfig{URI: "not-a-scheme://host"}, nil)
	assert.Error(t, err)
}

func TestUnavailable(t *testing.T) {
	cause := errors.New("no route")
	err := Unavailable(cause).Sync(context.Background(), testPayload())
	assert.ErrorIs(t, err, ErrSyncFailed)
	assert.ErrorIs(t, err, cause)
}

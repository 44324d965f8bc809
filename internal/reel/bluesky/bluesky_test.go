package bluesky

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blacktop/reelpost/internal/reel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	env := map[string]string{EnvHandle: "@gita.bsky.social", EnvAppPassword: "xxxx-xxxx"}
	cfg, err := ConfigFromEnv(func(k string) string { return env[k] })
	require.NoError(t, err)
	assert.Equal(t, Config{Handle: "gita.bsky.social", AppPassword: "xxxx-xxxx", PDSURL: DefaultPDSURL}, cfg)

	_, err = ConfigFromEnv(func(string) string { return "" })
	var missing reel.MissingEnvError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{EnvHandle, EnvAppPassword}, missing.Variables)
}

func TestRecordLinkFacet(t *testing.T) {
	post := reel.Post{Message: "Karma yoga — Gita 2.47", Link: "https://www.instagram.com/reel/C1/"}
	rec := Record(post, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))

	assert.Equal(t, "2025-01-02T03:04:05Z", rec.CreatedAt)
	require.Len(t, rec.Facets, 1)
	idx := rec.Facets[0].Index
	assert.Equal(t, post.Link, rec.Text[idx.ByteStart:idx.ByteEnd])
	assert.Equal(t, post.Link, rec.Facets[0].Features[0].RichtextFacet_Link.Uri)

	assert.Empty(t, Record(reel.Post{Message: "no link"}, time.Now()).Facets)
}

func TestPost(t *testing.T) {
	var record map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/xrpc/com.atproto.server.createSession":
			json.NewEncoder(w).Encode(map[string]any{
				"accessJwt":  "access",
				"refreshJwt": "refresh",
				"handle":     "gita.bsky.social",
				"did":        "did:plc:gita",
			})
		case "/xrpc/com.atproto.repo.createRecord":
			assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "did:plc:gita", body["repo"])
			assert.Equal(t, "app.bsky.feed.post", body["collection"])
			record, _ = body["record"].(map[string]any)
			json.NewEncoder(w).Encode(map[string]any{"uri": "at://did:plc:gita/app.bsky.feed.post/1", "cid": "bafy"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c, err := New(context.Background(), Config{Handle: "gita.bsky.social", AppPassword: "pw", PDSURL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, c.Post(context.Background(), reel.Post{Message: "New reel", Link: "https://www.instagram.com/reel/C1/"}))

	require.NotNil(t, record)
	assert.Equal(t, "New reel\n\nhttps://www.instagram.com/reel/C1/", record["text"])
	assert.Len(t, record["facets"], 1)
}

func TestLoginFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "AuthenticationRequired", "message": "Invalid identifier or password"})
	}))
	defer srv.Close()

	_, err := New(context.Background(), Config{Handle: "h", AppPassword: "bad", PDSURL: srv.URL})
	assert.ErrorContains(t, err, "login")
}

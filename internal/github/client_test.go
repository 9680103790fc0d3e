package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient starts a fake source host and returns a client pointed at it
func setupTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClientFactory(server.URL, 5*time.Second).ForToken("token")
	require.NoError(t, err)
	return client
}

func handleTree(mux *http.ServeMux, path string) {
	mux.HandleFunc("GET /repos/org/repo/git/ref/heads/main", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ref":"refs/heads/main","object":{"sha":"commit-sha","type":"commit"}}`)
	})
	mux.HandleFunc("GET /repos/org/repo/git/trees/commit-sha", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"sha":"commit-sha","tree":[{"path":"other.md","sha":"other-sha","type":"blob"},{"path":%q,"sha":"blob-sha","type":"blob"}]}`, path)
	})
}

func TestClient_FetchFile(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mux := http.NewServeMux()
		handleTree(mux, "lessons/intro.md")
		mux.HandleFunc("GET /repos/org/repo/git/blobs/blob-sha", func(w http.ResponseWriter, r *http.Request) {
			encoded := base64.StdEncoding.EncodeToString([]byte("# Intro\nHello"))
			fmt.Fprintf(w, `{"sha":"blob-sha","encoding":"base64","content":%q}`, encoded[:8]+"\n"+encoded[8:])
		})
		client := setupTestClient(t, mux)

		file, err := client.FetchFile(context.Background(), "org", "repo", "lessons/intro.md", "main")

		require.NoError(t, err)
		assert.Equal(t, "blob-sha", file.SHA)
		assert.Equal(t, "# Intro\nHello", string(file.Content))
	})

	t.Run("path not in tree", func(t *testing.T) {
		mux := http.NewServeMux()
		handleTree(mux, "lessons/intro.md")
		client := setupTestClient(t, mux)

		_, err := client.FetchFile(context.Background(), "org", "repo", "lessons/missing.md", "main")

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown branch", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /repos/org/repo/git/ref/heads/dev", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Not Found"}`)
		})
		client := setupTestClient(t, mux)

		_, err := client.FetchFile(context.Background(), "org", "repo", "readme.md", "dev")

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("bad credentials", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /repos/org/repo/git/ref/heads/main", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message":"Bad credentials"}`)
		})
		client := setupTestClient(t, mux)

		_, err := client.FetchFile(context.Background(), "org", "repo", "readme.md", "main")

		assert.ErrorIs(t, err, ErrAuth)
	})

	t.Run("server error", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /repos/org/repo/git/ref/heads/main", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"message":"upstream"}`)
		})
		client := setupTestClient(t, mux)

		_, err := client.FetchFile(context.Background(), "org", "repo", "readme.md", "main")

		assert.ErrorIs(t, err, ErrUpstream)
	})
}

func TestClient_FetchContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/org/repo/contents/learn.json", func(w http.ResponseWriter, r *http.Request) {
		encoded := base64.StdEncoding.EncodeToString([]byte(`{"title":"Loops"}`))
		fmt.Fprintf(w, `{"type":"file","path":"learn.json","sha":"cfg-sha","encoding":"base64","content":%q}`, encoded)
	})
	mux.HandleFunc("GET /repos/org/repo/contents/bc.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})
	client := setupTestClient(t, mux)

	file, err := client.FetchContent(context.Background(), "org", "repo", "learn.json", "")
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Loops"}`, string(file.Content))

	_, err = client.FetchContent(context.Background(), "org", "repo", "bc.json", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_WriteFile(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mux := http.NewServeMux()
		handleTree(mux, "readme.md")

		var body map[string]any
		mux.HandleFunc("PUT /repos/org/repo/contents/readme.md", func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &body)
			fmt.Fprint(w, `{"commit":{"sha":"new-commit","html_url":"https://github.com/org/repo/commit/new-commit"}}`)
		})
		client := setupTestClient(t, mux)

		res, err := client.WriteFile(context.Background(), "org", "repo", "readme.md", []byte("# Updated"), "main", "Update readme")

		require.NoError(t, err)
		assert.Equal(t, "new-commit", res.SHA)
		assert.Equal(t, "blob-sha", body["sha"])
		assert.Equal(t, "main", body["branch"])
		assert.Equal(t, "Update readme", body["message"])
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("# Updated")), body["content"])
	})

	t.Run("empty content", func(t *testing.T) {
		client := setupTestClient(t, http.NewServeMux())

		_, err := client.WriteFile(context.Background(), "org", "repo", "readme.md", nil, "main", "msg")

		assert.ErrorIs(t, err, ErrEmptyContent)
	})

	t.Run("file missing from tree", func(t *testing.T) {
		mux := http.NewServeMux()
		handleTree(mux, "readme.md")
		client := setupTestClient(t, mux)

		_, err := client.WriteFile(context.Background(), "org", "repo", "docs/readme.md", []byte("x"), "main", "msg")

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

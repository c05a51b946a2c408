package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askrepo/askrepo/internal/chat"
	"github.com/askrepo/askrepo/internal/config"
	"github.com/askrepo/askrepo/internal/history"
	"github.com/askrepo/askrepo/internal/repo"
)

func newTestServer(t *testing.T, hist *history.Store) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	session := repo.NewSession(repo.Options{Config: cfg})
	return New(cfg, session, hist)
}

func seedRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"README.md": "# demo\n",
		"main.go":   "package main\n\n// TODO: parse flags\nfunc main() {}\n",
	}
	for rel, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644))
	}
	return root
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func loadRepo(t *testing.T, handler http.Handler) {
	t.Helper()
	w := doJSON(t, handler, http.MethodPost, "/api/repo", map[string]string{"source": seedRepo(t)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	w := doJSON(t, srv.Routes(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestIndexRenders(t *testing.T) {
	srv := newTestServer(t, nil)
	w := doJSON(t, srv.Routes(), http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "askrepo")
}

func TestLoadRepoAndSummary(t *testing.T) {
	srv := newTestServer(t, nil)
	handler := srv.Routes()

	w := doJSON(t, handler, http.MethodGet, "/api/summary", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	loadRepo(t, handler)

	w = doJSON(t, handler, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var summary map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.EqualValues(t, 2, summary["total_files"])
}

func TestLoadRepoValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	handler := srv.Routes()

	w := doJSON(t, handler, http.MethodPost, "/api/repo", map[string]string{"source": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, handler, http.MethodPost, "/api/repo", map[string]string{"source": "/definitely/missing"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatWithoutRepo(t *testing.T) {
	srv := newTestServer(t, nil)
	w := doJSON(t, srv.Routes(), http.MethodPost, "/api/chat", map[string]string{"question": "what can you do?"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, chat.NoRepoMessage, resp.Answer)
}

func TestChatWithRepo(t *testing.T) {
	srv := newTestServer(t, nil)
	handler := srv.Routes()
	loadRepo(t, handler)

	w := doJSON(t, handler, http.MethodPost, "/api/chat", map[string]string{"question": "how is it structured?"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(chat.CategoryStructure), resp.Category)
	assert.NotEqual(t, chat.NoRepoMessage, resp.Answer)
}

func TestTreeEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	handler := srv.Routes()
	loadRepo(t, handler)

	w := doJSON(t, handler, http.MethodGet, "/api/tree?depth=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["tree"], "main.go")
}

func TestTodosEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	handler := srv.Routes()
	loadRepo(t, handler)

	w := doJSON(t, handler, http.MethodGet, "/api/todos", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "parse flags")
}

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	handler := srv.Routes()
	loadRepo(t, handler)

	w := doJSON(t, handler, http.MethodGet, "/api/search?q=main", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code) // engine not configured

	w = doJSON(t, handler, http.MethodGet, "/api/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIssuesWithoutGitHubData(t *testing.T) {
	srv := newTestServer(t, nil)
	handler := srv.Routes()
	loadRepo(t, handler)

	w := doJSON(t, handler, http.MethodGet, "/api/issues", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, handler, http.MethodGet, "/api/pulls", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	hist, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer hist.Close()

	cfg := config.DefaultConfig()
	session := repo.NewSession(repo.Options{Config: cfg, History: hist})
	srv := New(cfg, session, hist)
	handler := srv.Routes()
	loadRepo(t, handler)

	w := doJSON(t, handler, http.MethodPost, "/api/chat", map[string]string{"question": "any bugs?"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, handler, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var messages []history.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "any bugs?", messages[0].Question)
}

func TestHistoryDisabled(t *testing.T) {
	srv := newTestServer(t, nil)
	w := doJSON(t, srv.Routes(), http.MethodGet, "/api/history", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

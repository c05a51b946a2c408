package deps

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func byName(packages []Package) map[string]Package {
	m := make(map[string]Package, len(packages))
	for _, pkg := range packages {
		m[pkg.Name] = pkg
	}
	return m
}

func TestScanRequirements(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "requirements.txt", `
# web stack
streamlit==1.28.0
requests>=2.31
PyGithub
faiss-cpu[gpu]==1.7.4
-r extra.txt
`)

	packages, err := Scan(root)
	require.NoError(t, err)

	m := byName(packages)
	require.Len(t, m, 4)
	assert.Equal(t, "1.28.0", m["streamlit"].Version)
	assert.Equal(t, "PyPI", m["streamlit"].Ecosystem)
	assert.Equal(t, "2.31", m["requests"].Version)
	assert.Equal(t, "", m["PyGithub"].Version)
	assert.Contains(t, m, "faiss-cpu")
}

func TestScanPackageJSON(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{
  "dependencies": {"react": "^18.2.0", "express": "4.18.2"},
  "devDependencies": {"jest": "~29.0.0"}
}`)

	packages, err := Scan(root)
	require.NoError(t, err)

	m := byName(packages)
	require.Len(t, m, 3)
	assert.Equal(t, "18.2.0", m["react"].Version)
	assert.Equal(t, "npm", m["react"].Ecosystem)
	assert.Equal(t, "29.0.0", m["jest"].Version)
}

func TestScanGoMod(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", `module example.com/demo

go 1.24

require github.com/spf13/cobra v1.8.1

require (
	github.com/stretchr/testify v1.11.1
	// comment inside block
	golang.org/x/sync v0.19.0 // indirect
)
`)

	packages, err := Scan(root)
	require.NoError(t, err)

	m := byName(packages)
	require.Len(t, m, 3)
	assert.Equal(t, "1.8.1", m["github.com/spf13/cobra"].Version)
	assert.Equal(t, "Go", m["github.com/spf13/cobra"].Ecosystem)
	assert.Equal(t, "0.19.0", m["golang.org/x/sync"].Version)
}

func TestScanSkipsVendoredDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "requirements.txt", "flask==3.0.0\n")
	writeFile(t, root, "node_modules/dep/package.json", `{"dependencies": {"hidden": "1.0.0"}}`)
	writeFile(t, root, ".venv/lib/requirements.txt", "hidden==1.0.0\n")

	packages, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, packages, 1)
	assert.Equal(t, "flask", packages[0].Name)
	assert.Equal(t, "requirements.txt", packages[0].Source)
}

func TestOSVCheck(t *testing.T) {
	var gotReq osvBatchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		resp := map[string]any{
			"results": []map[string]any{
				{"vulns": []map[string]string{{"id": "GHSA-xxxx", "summary": "bad"}}},
				{},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewOSVClient()
	client.url = srv.URL

	packages := []Package{
		{Name: "requests", Version: "2.19.0", Ecosystem: "PyPI"},
		{Name: "flask", Version: "3.0.0", Ecosystem: "PyPI"},
	}
	findings, err := client.Check(context.Background(), packages)
	require.NoError(t, err)

	require.Len(t, gotReq.Queries, 2)
	assert.Equal(t, "requests", gotReq.Queries[0].Package.Name)
	assert.Equal(t, "PyPI", gotReq.Queries[0].Package.Ecosystem)

	require.Len(t, findings, 1)
	assert.Equal(t, "requests", findings[0].Package.Name)
	assert.Equal(t, "GHSA-xxxx", findings[0].Vulnerabilities[0].ID)
}

func TestOSVCheckEmpty(t *testing.T) {
	client := NewOSVClient()
	findings, err := client.Check(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, findings)
}

func TestOSVCheckServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewOSVClient()
	client.url = srv.URL

	_, err := client.Check(context.Background(), []Package{{Name: "x", Ecosystem: "PyPI"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

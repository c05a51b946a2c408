package github

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askrepo/askrepo/internal/config"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		url     string
		owner   string
		repo    string
		wantErr bool
	}{
		{"https://github.com/golang/go", "golang", "go", false},
		{"https://github.com/golang/go.git", "golang", "go", false},
		{"https://github.com/golang/go/tree/master/src", "golang", "go", false},
		{"git@github.com:golang/go.git", "", "", true}, // ssh form not supported
		{"https://gitlab.com/a/b", "", "", true},
		{"https://github.com/onlyowner", "", "", true},
	}
	for _, tt := range tests {
		owner, repo, err := ParseRepoURL(tt.url)
		if tt.wantErr {
			assert.Error(t, err, tt.url)
			continue
		}
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.owner, owner, tt.url)
		assert.Equal(t, tt.repo, repo, tt.url)
	}
}

func TestNewClientWithoutToken(t *testing.T) {
	c, err := NewClient(config.GitHubConfig{IssueLimit: 10, BodyLimit: 500})
	require.NoError(t, err)
	assert.False(t, c.Authenticated())
}

func TestNewClientWithToken(t *testing.T) {
	c, err := NewClient(config.GitHubConfig{Token: "ghp_x", IssueLimit: 10})
	require.NoError(t, err)
	assert.True(t, c.Authenticated())
}

func TestDataOpenIssues(t *testing.T) {
	d := &Data{Issues: []Issue{
		{Number: 1, State: "open"},
		{Number: 2, State: "closed"},
		{Number: 3, State: "open"},
	}}
	assert.Equal(t, 2, d.OpenIssues())
}

func TestIsRiskFile(t *testing.T) {
	assert.True(t, isRiskFile("requirements.txt"))
	assert.True(t, isRiskFile("deploy/Dockerfile"))
	assert.True(t, isRiskFile(".github/workflows/ci.yml"))
	assert.True(t, isRiskFile("package-lock.json"))
	assert.False(t, isRiskFile("internal/server/server.go"))
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 600)
	assert.Len(t, truncate(long, 500), 500)
	assert.Equal(t, "short", truncate("short", 500))
	assert.Equal(t, long, truncate(long, 0))
}

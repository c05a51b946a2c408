// Package repo holds the loaded-repository state shared by the HTTP and
// MCP surfaces: the checkout, its analysis, and fetched GitHub data.
package repo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/askrepo/askrepo/internal/analysis"
	"github.com/askrepo/askrepo/internal/chat"
	"github.com/askrepo/askrepo/internal/config"
	"github.com/askrepo/askrepo/internal/github"
	"github.com/askrepo/askrepo/internal/gitutil"
	"github.com/askrepo/askrepo/internal/history"
	"github.com/askrepo/askrepo/internal/search"
)

// Session is the mutable "current repository" state. All accessors are
// safe for concurrent use.
type Session struct {
	cfg       *config.Config
	analyzer  *analysis.Analyzer
	gh        *github.Client
	cloner    *gitutil.Cloner
	engine    *search.Engine
	responder *chat.Responder
	history   *history.Store

	mu      sync.RWMutex
	source  string
	root    string
	slug    string // owner/repo when loaded from a URL
	cloned  bool
	summary *analysis.RepoSummary
	data    *github.Data
}

// Options carries the collaborators a session needs. History and Engine
// may be nil; the session degrades gracefully without them.
type Options struct {
	Config  *config.Config
	GitHub  *github.Client
	Engine  *search.Engine
	History *history.Store
}

// NewSession builds a session from its collaborators.
func NewSession(opts Options) *Session {
	return &Session{
		cfg:       opts.Config,
		analyzer:  analysis.New(opts.Config.Analysis),
		gh:        opts.GitHub,
		cloner:    gitutil.NewCloner(gitutil.NewPool(2)),
		engine:    opts.Engine,
		responder: chat.NewResponder(),
		history:   opts.History,
	}
}

// Load points the session at a repository: a GitHub URL (cloned shallowly)
// or an existing local directory. The previous checkout, if cloned, is
// removed. GitHub data and the semantic index are populated best-effort.
func (s *Session) Load(ctx context.Context, source string) (*analysis.RepoSummary, error) {
	root := source
	cloned := false
	slug := ""

	if gitutil.IsRepoURL(source) {
		var err error
		root, err = s.cloner.Clone(ctx, source)
		if err != nil {
			return nil, err
		}
		cloned = true

		if owner, name, perr := github.ParseRepoURL(source); perr == nil {
			slug = owner + "/" + name
		}
	} else {
		info, err := os.Stat(source)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("not a repository URL or local directory: %s", source)
		}
		root, _ = filepath.Abs(source)
	}

	summary, err := s.analyzer.Analyze(root)
	if err != nil {
		if cloned {
			os.RemoveAll(root)
		}
		return nil, err
	}

	var data *github.Data
	if slug != "" && s.gh != nil {
		var gerr error
		data, gerr = s.gh.FetchData(ctx, source)
		if gerr != nil {
			slog.Warn("fetching GitHub data failed", "error", gerr)
			data = nil
		}
	}

	if s.engine != nil && s.cfg.SemanticEnabled() {
		if _, ierr := s.engine.Index(ctx, root); ierr != nil {
			slog.Warn("semantic indexing failed, keyword search only", "error", ierr)
		}
	}

	s.mu.Lock()
	prevRoot, prevCloned := s.root, s.cloned
	s.source = source
	s.root = root
	s.slug = slug
	s.cloned = cloned
	s.summary = summary
	s.data = data
	s.mu.Unlock()

	if prevCloned && prevRoot != "" && prevRoot != root {
		os.RemoveAll(prevRoot)
	}

	slog.Info("repository loaded", "source", source, "files", summary.TotalFiles)
	return summary, nil
}

// Refresh re-analyzes the current checkout in place.
func (s *Session) Refresh() error {
	s.mu.RLock()
	root := s.root
	s.mu.RUnlock()
	if root == "" {
		return fmt.Errorf("no repository loaded")
	}

	summary, err := s.analyzer.Analyze(root)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.summary = summary
	s.mu.Unlock()
	slog.Debug("repository re-analyzed", "files", summary.TotalFiles)
	return nil
}

// Ask answers a free-text question about the loaded repository and records
// the exchange when history is enabled.
func (s *Session) Ask(ctx context.Context, question string) (string, chat.Category) {
	s.mu.RLock()
	summary, data, slug := s.summary, s.data, s.slug
	s.mu.RUnlock()

	category := chat.Classify(question)
	answer := s.responder.Respond(question, summary, data)

	if s.history != nil && summary != nil {
		if _, err := s.history.Record(ctx, history.Message{
			Repo:     slug,
			Question: question,
			Answer:   answer,
			Category: string(category),
		}); err != nil {
			slog.Warn("failed to record chat history", "error", err)
		}
	}
	return answer, category
}

// Search runs a code search over the current checkout.
func (s *Session) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	s.mu.RLock()
	root := s.root
	s.mu.RUnlock()
	if root == "" {
		return nil, fmt.Errorf("no repository loaded")
	}
	if s.engine == nil {
		return nil, fmt.Errorf("search is not configured")
	}
	return s.engine.Search(ctx, root, query, limit)
}

// Tree renders the checkout's directory tree.
func (s *Session) Tree(opts analysis.TreeOptions) (string, error) {
	s.mu.RLock()
	root := s.root
	s.mu.RUnlock()
	if root == "" {
		return "", fmt.Errorf("no repository loaded")
	}
	return s.analyzer.Tree(root, opts)
}

// Todos scans the checkout for TODO style markers.
func (s *Session) Todos() ([]analysis.TodoItem, error) {
	s.mu.RLock()
	root := s.root
	s.mu.RUnlock()
	if root == "" {
		return nil, fmt.Errorf("no repository loaded")
	}
	return s.analyzer.ScanTodos(root, nil)
}

// Summary returns the current analysis, or nil when nothing is loaded.
func (s *Session) Summary() *analysis.RepoSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// Data returns fetched GitHub data, or nil when unavailable.
func (s *Session) Data() *github.Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Root returns the checkout directory, empty when nothing is loaded.
func (s *Session) Root() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// Source returns the URL or path the session was loaded from.
func (s *Session) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Slug returns owner/repo when the session was loaded from a GitHub URL.
func (s *Session) Slug() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slug
}

// Loaded reports whether a repository is loaded.
func (s *Session) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary != nil
}

// GitHub exposes the underlying API client for surfaces that need direct
// calls (PR diff summaries, token info). May return nil.
func (s *Session) GitHub() *github.Client {
	return s.gh
}

// Close removes the cloned checkout, if any.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cloned && s.root != "" {
		if err := os.RemoveAll(s.root); err != nil {
			return err
		}
		s.root = ""
		s.cloned = false
	}
	return nil
}

package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/askrepo/askrepo/internal/analysis"
	"github.com/askrepo/askrepo/internal/deps"
	"github.com/askrepo/askrepo/internal/search"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return v, false
	}
	return v, true
}

func (s *Server) requireLoaded(w http.ResponseWriter) bool {
	if !s.session.Loaded() {
		writeError(w, http.StatusNotFound, "no repository loaded")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loadRequest struct {
	Source string `json:"source"`
}

func (s *Server) handleLoadRepo(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[loadRequest](w, r)
	if !ok {
		return
	}
	req.Source = strings.TrimSpace(req.Source)
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, "source is required")
		return
	}

	summary, err := s.session.Load(r.Context(), req.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !s.requireLoaded(w) {
		return
	}
	writeJSON(w, http.StatusOK, s.session.Summary())
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	if !s.requireLoaded(w) {
		return
	}

	opts := analysis.DefaultTreeOptions
	if v := r.URL.Query().Get("depth"); v != "" {
		if depth, err := strconv.Atoi(v); err == nil && depth > 0 {
			opts.MaxDepth = depth
		}
	}

	tree, err := s.session.Tree(opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tree": tree})
}

func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	if !s.requireLoaded(w) {
		return
	}
	data := s.session.Data()
	if data == nil {
		writeError(w, http.StatusNotFound, "no GitHub data for this repository")
		return
	}
	writeJSON(w, http.StatusOK, data.Issues)
}

func (s *Server) handlePulls(w http.ResponseWriter, r *http.Request) {
	if !s.requireLoaded(w) {
		return
	}
	data := s.session.Data()
	if data == nil {
		writeError(w, http.StatusNotFound, "no GitHub data for this repository")
		return
	}
	writeJSON(w, http.StatusOK, data.PullRequests)
}

func (s *Server) handlePullSummary(w http.ResponseWriter, r *http.Request) {
	if !s.requireLoaded(w) {
		return
	}
	data := s.session.Data()
	if data == nil {
		writeError(w, http.StatusNotFound, "no GitHub data for this repository")
		return
	}

	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number <= 0 {
		writeError(w, http.StatusBadRequest, "invalid pull request number")
		return
	}

	summary, err := s.session.GitHub().PRDiffSummary(r.Context(), data.Owner, data.Repo, number)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[chatRequest](w, r)
	if !ok {
		return
	}

	answer, category := s.session.Ask(r.Context(), req.Question)
	writeJSON(w, http.StatusOK, chatResponse{Answer: answer, Category: string(category)})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !s.requireLoaded(w) {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	results, err := s.session.Search(r.Context(), query, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleVulns(w http.ResponseWriter, r *http.Request) {
	if !s.requireLoaded(w) {
		return
	}

	packages, err := deps.Scan(s.session.Root())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	findings, err := s.osv.Check(r.Context(), packages)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"packages": len(packages),
		"findings": findings,
	})
}

func (s *Server) handleTodos(w http.ResponseWriter, r *http.Request) {
	if !s.requireLoaded(w) {
		return
	}
	todos, err := s.session.Todos()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	messages, err := s.history.Recent(r.Context(), s.session.Slug(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

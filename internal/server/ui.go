package server

import (
	_ "embed"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed ui.html
var uiHTML string

var uiTemplate = template.Must(template.New("ui").Parse(uiHTML))

type uiData struct {
	Loaded bool
	Source string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := uiData{
		Loaded: s.session.Loaded(),
		Source: s.session.Source(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := uiTemplate.Execute(w, data); err != nil {
		slog.Error("failed to render ui", "error", err)
	}
}

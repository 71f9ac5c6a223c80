package http

import (
	"net/http"

	"ceycent/internal/shell"
)

type shellPage struct {
	Layout shell.Layout
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "content.html", http.StatusOK, shellPage{Layout: s.shell.LayoutFor(r, shell.HomePath)})
}

// handlePlaceholder renders the empty shell for feature pages that exist
// only as navigation targets.
func (s *Server) handlePlaceholder(w http.ResponseWriter, r *http.Request) {
	if _, ok := shell.LabelFor(r.URL.Path); !ok {
		s.handleNotFound(w, r)
		return
	}
	s.render(w, r, "placeholder.html", http.StatusOK, shellPage{Layout: s.shell.LayoutFor(r, r.URL.Path)})
}

package server

import (
	"net/http"
	"strings"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

type standardSummary struct {
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	Aliases      []string `json:"aliases,omitempty"`
	Category     string   `json:"category"`
	StandardUnit string   `json:"standard_unit"`
}

func summarize(stds []*entity.BiomarkerStandard) []standardSummary {
	out := make([]standardSummary, 0, len(stds))
	for _, std := range stds {
		out = append(out, standardSummary{
			Code:         std.Code,
			Name:         std.Name,
			Aliases:      std.Aliases,
			Category:     std.Category,
			StandardUnit: std.StandardUnit,
		})
	}
	return out
}

func (s *Server) handleListStandards(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		s.writeJSON(w, http.StatusOK, summarize(s.catalog.LookupByCategory(category)))
		return
	}
	s.writeJSON(w, http.StatusOK, summarize(s.catalog.All()))
}

func (s *Server) handleSearchStandards(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	s.writeJSON(w, http.StatusOK, summarize(s.catalog.Search(q)))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, s.catalog.Categories())
}

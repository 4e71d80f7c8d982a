package http

import (
	"errors"
	"net/http"

	"ssmartr/internal/core"
	"ssmartr/internal/services"
)

type createCategoryRequest struct {
	Name          string   `json:"name"`
	Emoji         string   `json:"emoji"`
	ColorHex      string   `json:"color_hex"`
	Percent       *float64 `json:"percent"`
	PercentPoints *float64 `json:"percent_points"`
}

type updateCategoryRequest struct {
	Name          *string  `json:"name"`
	Emoji         *string  `json:"emoji"`
	ColorHex      *string  `json:"color_hex"`
	Percent       *float64 `json:"percent"`
	PercentPoints *float64 `json:"percent_points"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Categories.ListCategories(r.Context())
	if err != nil {
		internalError(w, r)
		return
	}
	out := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryView(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	c, err := s.deps.Categories.CreateCategory(r.Context(), services.NewCategory{
		Name:          req.Name,
		Emoji:         req.Emoji,
		ColorHex:      req.ColorHex,
		Percent:       req.Percent,
		PercentPoints: req.PercentPoints,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, toCategoryView(c))
	case errors.Is(err, core.ErrEmptyName), errors.Is(err, core.ErrInvalidPercent),
		errors.Is(err, services.ErrAmbiguousPercent):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		internalError(w, r)
	}
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	var req updateCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	c, err := s.deps.Categories.UpdateCategory(r.Context(), id, services.CategoryPatch{
		Name:          req.Name,
		Emoji:         req.Emoji,
		ColorHex:      req.ColorHex,
		Percent:       req.Percent,
		PercentPoints: req.PercentPoints,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, toCategoryView(c))
	case errors.Is(err, core.ErrCategoryNotFound):
		notFound(w, r, err.Error())
	case errors.Is(err, services.ErrAmbiguousPercent):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		internalError(w, r)
	}
}

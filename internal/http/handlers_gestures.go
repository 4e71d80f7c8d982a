package http

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"ssmartr/internal/categorize"
	"ssmartr/internal/hittest"
	"ssmartr/internal/log"
)

// target is one category's drop region as laid out by the client.
type target struct {
	CategoryID uuid.UUID    `json:"category_id"`
	Frame      hittest.Rect `json:"frame"`
}

type gestureRequest struct {
	Point   hittest.Point `json:"point"`
	Targets []target      `json:"targets"`
	// Drop only. Empty means the current selection.
	TransactionIDs []uuid.UUID `json:"transaction_ids"`
}

func (g gestureRequest) targetMap() (map[uuid.UUID]hittest.Rect, error) {
	m := make(map[uuid.UUID]hittest.Rect, len(g.Targets))
	for _, t := range g.Targets {
		if t.CategoryID == uuid.Nil {
			return nil, fmt.Errorf("target without category_id")
		}
		m[t.CategoryID] = t.Frame
	}
	return m, nil
}

type dropView struct {
	Matched    bool         `json:"matched"`
	Rule       hittest.Rule `json:"rule"`
	CategoryID *uuid.UUID   `json:"category_id,omitempty"`
	Outcome    *outcomeView `json:"outcome,omitempty"`
}

func (s *Server) decodeGesture(w http.ResponseWriter, r *http.Request) (gestureRequest, map[uuid.UUID]hittest.Rect, bool) {
	var req gestureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return req, nil, false
	}
	targets, err := req.targetMap()
	if err != nil {
		badRequest(w, r, err.Error())
		return req, nil, false
	}
	return req, targets, true
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	req, targets, ok := s.decodeGesture(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.proximity.Update(req.Point, targets))
}

// handleDrop ends a drag. A matched drop categorizes the dragged
// transactions; an unmatched one changes nothing.
func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	req, targets, ok := s.decodeGesture(w, r)
	if !ok {
		return
	}
	s.proximity.Reset()

	id, rule, matched := s.matcher.Resolve(req.Point, targets)
	if !matched {
		writeJSON(w, http.StatusOK, dropView{Rule: rule})
		return
	}

	var (
		out categorize.Outcome
		err error
	)
	if len(req.TransactionIDs) == 0 {
		out, err = s.deps.Engine.CategorizeSelection(r.Context(), id)
	} else {
		out, err = s.deps.Engine.Categorize(r.Context(), req.TransactionIDs, id)
	}
	if err != nil && !saveFailed(out) {
		internalError(w, r)
		return
	}
	if err != nil {
		s.logger.WarnContext(r.Context(), "Drop not persisted",
			log.FieldCategoryID, id.String(),
			log.FieldError, err)
	}

	view := toOutcomeView(out)
	writeJSON(w, http.StatusOK, dropView{Matched: true, Rule: rule, CategoryID: &id, Outcome: &view})
}

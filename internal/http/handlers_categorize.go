package http

import (
	"net/http"

	"github.com/google/uuid"

	"ssmartr/internal/categorize"
	"ssmartr/internal/log"
)

type categorizeRequest struct {
	TransactionIDs []uuid.UUID `json:"transaction_ids"`
	CategoryID     uuid.UUID   `json:"category_id"`
}

type selectionRequest struct {
	TransactionID  *uuid.UUID  `json:"transaction_id"`
	TransactionIDs []uuid.UUID `json:"transaction_ids"`
}

type selectionView struct {
	Selected []uuid.UUID `json:"selected"`
}

type toggleView struct {
	TransactionID uuid.UUID   `json:"transaction_id"`
	Selected      bool        `json:"selected"`
	Selection     []uuid.UUID `json:"selection"`
}

// saveFailed reports an outcome whose changes were staged but not
// persisted. The in-memory state already moved on, so the API answers 200
// with persisted=false instead of an error.
func saveFailed(out categorize.Outcome) bool {
	return len(out.Applied) > 0 && !out.Persisted
}

// writeOutcome answers a categorize, undo or ignore call.
func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, op string, out categorize.Outcome, err error) {
	if err != nil {
		if !saveFailed(out) {
			internalError(w, r)
			return
		}
		s.logger.WarnContext(r.Context(), "Change not persisted",
			log.FieldOperation, op,
			log.FieldUpdated, len(out.Applied),
			log.FieldError, err)
	}
	writeJSON(w, http.StatusOK, toOutcomeView(out))
}

func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	var req categorizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if req.CategoryID == uuid.Nil {
		badRequest(w, r, "category_id is required")
		return
	}
	out, err := s.deps.Engine.Categorize(r.Context(), req.TransactionIDs, req.CategoryID)
	s.writeOutcome(w, r, log.OpCategorize, out, err)
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, selectionView{Selected: s.deps.Engine.Selection()})
}

// handleToggleSelection toggles one transaction_id, or adds every entry of
// transaction_ids.
func (s *Server) handleToggleSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	switch {
	case req.TransactionID != nil && len(req.TransactionIDs) > 0:
		badRequest(w, r, "send transaction_id or transaction_ids, not both")
	case req.TransactionID != nil:
		selected := s.deps.Engine.Toggle(*req.TransactionID)
		writeJSON(w, http.StatusOK, toggleView{
			TransactionID: *req.TransactionID,
			Selected:      selected,
			Selection:     s.deps.Engine.Selection(),
		})
	case len(req.TransactionIDs) > 0:
		s.deps.Engine.Select(req.TransactionIDs...)
		writeJSON(w, http.StatusOK, selectionView{Selected: s.deps.Engine.Selection()})
	default:
		badRequest(w, r, "transaction_id or transaction_ids is required")
	}
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.deps.Engine.ClearSelection()
	writeJSON(w, http.StatusOK, selectionView{Selected: []uuid.UUID{}})
}

func (s *Server) handleCategorizeSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CategoryID uuid.UUID `json:"category_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if req.CategoryID == uuid.Nil {
		badRequest(w, r, "category_id is required")
		return
	}
	out, err := s.deps.Engine.CategorizeSelection(r.Context(), req.CategoryID)
	s.writeOutcome(w, r, log.OpCategorize, out, err)
}

func (s *Server) handleGetUndo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toUndoView(s.deps.Engine.LastAction()))
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Engine.Undo(r.Context())
	s.writeOutcome(w, r, log.OpUndo, out, err)
}

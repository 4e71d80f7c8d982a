package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"ssmartr/internal/core"
	"ssmartr/internal/log"
	"ssmartr/internal/store"
)

const (
	viewUncategorized = "uncategorized"
	viewAll           = "all"
)

// handleListTransactions serves the work queue by default. view=all lists
// every transaction newest first; category narrows to one category.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := strings.TrimSpace(q.Get("q"))
	view := q.Get("view")
	if view == "" {
		view = viewUncategorized
	}

	var (
		txs []core.Transaction
		err error
	)
	switch {
	case q.Get("category") != "":
		id, perr := uuid.Parse(q.Get("category"))
		if perr != nil {
			badRequest(w, r, "invalid category")
			return
		}
		query := store.InCategoryQuery(id)
		query.Search = search
		txs, err = s.deps.Reader.FetchTransactions(r.Context(), query)
	case view == viewUncategorized:
		txs, err = s.deps.Engine.Queue(r.Context(), search)
	case view == viewAll:
		txs, err = s.deps.Reader.FetchTransactions(r.Context(), store.TransactionQuery{
			Search:     search,
			SortBy:     store.SortByTransactionDate,
			Descending: true,
		})
	default:
		badRequest(w, r, "view must be uncategorized or all")
		return
	}
	if err != nil {
		internalError(w, r)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionViews(txs))
}

type ignoreRequest struct {
	Ignored *bool `json:"ignored"`
}

// handleIgnore sets the ignore flag; an empty body means ignored=true.
func (s *Server) handleIgnore(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	var req ignoreRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		badRequest(w, r, err.Error())
		return
	}
	ignored := req.Ignored == nil || *req.Ignored

	out, err := s.deps.Engine.Ignore(r.Context(), id, ignored)
	if errors.Is(err, core.ErrTransactionNotFound) {
		notFound(w, r, err.Error())
		return
	}
	s.writeOutcome(w, r, log.OpIgnore, out, err)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.deps.Reader.FetchAccounts(r.Context())
	if err != nil {
		internalError(w, r)
		return
	}
	out := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountView(a))
	}
	writeJSON(w, http.StatusOK, out)
}

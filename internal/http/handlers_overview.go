package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ssmartr/internal/core"
	"ssmartr/internal/log"
	"ssmartr/internal/sheets/xlsx"
)

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Overview.Snapshot(r.Context())
	if err != nil {
		internalError(w, r)
		return
	}
	NewJSONResponse().
		Header("ETag", strconv.Quote(strconv.FormatUint(snap.Version, 10))).
		Body(toOverviewView(snap)).
		Write(w)
}

func (s *Server) handleCategoryDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	detail, err := s.deps.Overview.CategoryDetail(r.Context(), id)
	switch {
	case errors.Is(err, core.ErrCategoryNotFound):
		notFound(w, r, err.Error())
	case err != nil:
		internalError(w, r)
	default:
		writeJSON(w, http.StatusOK, toDetailView(detail))
	}
}

// handleOverviewXLSX downloads the current overview as a workbook. The
// workbook is rendered into memory first so a failure can still be reported
// as JSON.
func (s *Server) handleOverviewXLSX(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Overview.Snapshot(r.Context())
	if err != nil {
		internalError(w, r)
		return
	}
	var buf bytes.Buffer
	if err := xlsx.Write(&buf, snap); err != nil {
		s.logger.LogError(r.Context(), "Failed to render overview workbook", err, log.OpExport, nil)
		internalError(w, r)
		return
	}

	name := fmt.Sprintf("ssmartr_overview_v%d_%s.xlsx", snap.Version, snap.ComputedAt.UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

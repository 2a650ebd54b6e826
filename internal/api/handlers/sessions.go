package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/varunidealabs/cash-flow-analyzer/internal/api/middleware"
	"github.com/varunidealabs/cash-flow-analyzer/internal/cashflow"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/varunidealabs/cash-flow-analyzer/internal/export"
	"github.com/varunidealabs/cash-flow-analyzer/internal/insights"
	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
	"github.com/varunidealabs/cash-flow-analyzer/internal/notionsync"
	"github.com/varunidealabs/cash-flow-analyzer/internal/session"
)

const insightsKey = "insights"

// InsightGenerator produces narrative insights for a session.
type InsightGenerator interface {
	Generate(ctx context.Context, ledger domain.Ledger, bundle *cashflow.Bundle) *insights.Insights
}

// NotionTarget is the Notion database sessions are synced to.
type NotionTarget struct {
	Client     notionsync.NotionService
	DatabaseID string
}

// SessionsHandler serves the results of finished analysis runs.
type SessionsHandler struct {
	store    *session.Store
	insights InsightGenerator
	notion   *NotionTarget
}

// NewSessionsHandler creates a sessions handler. Nil insights or notion
// disable the matching endpoints with 503.
func NewSessionsHandler(store *session.Store, gen InsightGenerator, notion *NotionTarget) *SessionsHandler {
	return &SessionsHandler{store: store, insights: gen, notion: notion}
}

func (h *SessionsHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return s, true
}

// ListSessions handles GET /api/sessions
func (h *SessionsHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.store.List()
	if sessions == nil {
		sessions = []*session.Session{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetSession handles GET /api/sessions/{id}
func (h *SessionsHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"session":      s,
		"transactions": toTransactionViews(s.Ledger),
	})
}

// ListTransactions handles GET /api/sessions/{id}/transactions
func (h *SessionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows := filter.Apply(s.Transactions())
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": toTransactionViews(rows),
		"totals":       cashflow.FilterTotals(rows),
	})
}

// Charts handles GET /api/sessions/{id}/charts
func (h *SessionsHandler) Charts(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, cashflow.BuildCharts(s.Bundle))
}

// Insights handles GET /api/sessions/{id}/insights. Generated insights are
// cached for the lifetime of the session.
func (h *SessionsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.insights == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Insights are not configured")
		return
	}

	if cached, ok := h.store.Derived(s.ID, insightsKey); ok {
		middleware.WriteJSON(w, http.StatusOK, cached)
		return
	}

	out := h.insights.Generate(r.Context(), s.Ledger, s.Bundle)
	h.store.SetDerived(s.ID, insightsKey, out)
	middleware.WriteJSON(w, http.StatusOK, out)
}

// ExportExcel handles GET /api/sessions/{id}/export.xlsx
func (h *SessionsHandler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteExcel(&buf, s.Ledger, s.Bundle); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("session_id", s.ID).Msg("Failed to build workbook")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to export workbook")
		return
	}

	writeAttachment(w, export.ContentTypeXLSX, export.ExcelFilename(time.Now()), buf.Bytes())
}

// ExportCSV handles GET /api/sessions/{id}/export.csv
func (h *SessionsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, s.Ledger); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("session_id", s.ID).Msg("Failed to build CSV")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to export CSV")
		return
	}

	writeAttachment(w, export.ContentTypeCSV, export.CSVFilename(time.Now()), buf.Bytes())
}

// DeleteSession handles DELETE /api/sessions/{id}
func (h *SessionsHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.store.Reset(chi.URLParam(r, "id")) {
		middleware.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NotionSync handles POST /api/sessions/{id}/notion-sync[?dry_run=true]
func (h *SessionsHandler) NotionSync(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.notion == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Notion sync is not configured")
		return
	}

	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))

	result, err := notionsync.SyncLedger(r.Context(), h.notion.Client, h.notion.DatabaseID, s.DocumentName, s.Ledger, dryRun)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("session_id", s.ID).Msg("Notion sync failed")
		middleware.WriteError(w, http.StatusBadGateway, "Notion sync failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"result":  result,
		"dry_run": dryRun,
	})
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

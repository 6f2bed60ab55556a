package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"finanzas/internal/budget"
	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/report"
	"finanzas/internal/services"
)

func (s *Server) session(r *http.Request) *services.Session {
	return s.sessions.Open(r.Context(), accountFrom(r.Context()))
}

// writeError maps domain errors to status codes. Anything unknown is a 500
// and is logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidMonthKey),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidPercentage),
		errors.Is(err, core.ErrEmptyID),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrDuplicateSubcategory),
		errors.Is(err, core.ErrDuplicateField),
		errors.Is(err, services.ErrInvalidPIN),
		errors.Is(err, services.ErrPINMismatch):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, core.ErrFieldNotFound),
		errors.Is(err, core.ErrExtraNotFound):
		NotFoundError(err.Error()).Write(w)
	case errors.Is(err, services.ErrWrongPIN):
		UnauthorizedError(err.Error()).Write(w)
	case errors.Is(err, services.ErrNoPIN):
		ErrorResponse(http.StatusConflict, err.Error()).Write(w)
	case errors.Is(err, budget.ErrAllocationExceeded):
		UnprocessableEntityError(err.Error()).Write(w)
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
		InternalServerError("internal error").Write(w)
	}
}

func (s *Server) monthKey(w http.ResponseWriter, r *http.Request) (core.MonthKey, bool) {
	key, err := ParseMonthKey(r)
	if err != nil {
		s.writeError(w, r, err)
		return "", false
	}
	return key, true
}

func (s *Server) monthSaved(r *http.Request, key core.MonthKey, op string) {
	s.structured.LogMonthSaved(r.Context(), accountFrom(r.Context()), key.String(), op)
}

func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.session(r).Document()).Write(w)
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	theme := s.session(r).ToggleTheme(r.Context())
	NewResponse().JSON(map[string]core.Theme{"theme": theme}).Write(w)
}

type fieldsResponse struct {
	Fields          []core.Field `json:"fields"`
	TotalPercentage float64      `json:"totalPercentage"`
}

func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	fields := s.session(r).Fields()
	NewResponse().JSON(fieldsResponse{
		Fields:          fields,
		TotalPercentage: core.TotalPercentage(fields),
	}).Write(w)
}

func (s *Server) handleCreateField(w http.ResponseWriter, r *http.Request) {
	f := s.session(r).AddField(r.Context())
	NewResponse().Status(http.StatusCreated).JSON(f).Write(w)
}

type validateRequest struct {
	FieldID    string  `json:"fieldId"`
	Percentage float64 `json:"percentage"`
}

func (s *Server) handleValidateAllocation(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().JSON(s.session(r).CheckAllocation(req.FieldID, req.Percentage)).Write(w)
}

type saveFieldResponse struct {
	Field core.Field             `json:"field"`
	Check budget.AllocationCheck `json:"check"`
}

func (s *Server) handleSaveField(w http.ResponseWriter, r *http.Request) {
	var f core.Field
	if err := DecodeJSON(w, r, &f); err != nil {
		s.writeError(w, r, err)
		return
	}
	f.ID = chi.URLParam(r, "id")

	check, err := s.session(r).SaveField(r.Context(), f)
	if errors.Is(err, budget.ErrAllocationExceeded) {
		NewResponse().
			Status(http.StatusUnprocessableEntity).
			JSON(errorBody{Error: err.Error(), Check: check}).
			Write(w)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().JSON(saveFieldResponse{Field: f, Check: check}).Write(w)
}

func (s *Server) handleDeleteField(w http.ResponseWriter, r *http.Request) {
	if err := s.session(r).DeleteField(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleOpenMonth(w http.ResponseWriter, r *http.Request) {
	key, ok := s.monthKey(w, r)
	if !ok {
		return
	}
	NewResponse().JSON(s.session(r).OpenMonth(r.Context(), key)).Write(w)
}

func (s *Server) handleUpdateMonth(w http.ResponseWriter, r *http.Request) {
	key, ok := s.monthKey(w, r)
	if !ok {
		return
	}
	var u core.MonthUpdate
	if err := DecodeJSON(w, r, &u); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.session(r).UpdateMonth(r.Context(), key, u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.monthSaved(r, key, applog.OpUpdate)
	NewResponse().JSON(m).Write(w)
}

type salaryRequest struct {
	Salary float64 `json:"salary"`
}

func (s *Server) handleSetSalary(w http.ResponseWriter, r *http.Request) {
	key, ok := s.monthKey(w, r)
	if !ok {
		return
	}
	var req salaryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.session(r).SetSalary(r.Context(), key, req.Salary)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.monthSaved(r, key, applog.OpUpdate)
	NewResponse().JSON(m).Write(w)
}

func (s *Server) handleSetExpense(w http.ResponseWriter, r *http.Request) {
	key, ok := s.monthKey(w, r)
	if !ok {
		return
	}
	var req services.EntryUpdate
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Amount == nil && req.USD == nil && req.Paid == nil {
		BadRequestError("one of amount, usd or paid is required").Write(w)
		return
	}

	m, err := s.session(r).UpdateEntry(r.Context(), key, chi.URLParam(r, "subId"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.monthSaved(r, key, applog.OpUpdate)
	NewResponse().JSON(m).Write(w)
}

type extraRequest struct {
	FieldID     string  `json:"fieldId"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

func (s *Server) handleAddExtra(w http.ResponseWriter, r *http.Request) {
	key, ok := s.monthKey(w, r)
	if !ok {
		return
	}
	var req extraRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	extra, err := s.session(r).AddExtra(r.Context(), key, req.FieldID, sanitizeInput(req.Description), req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.monthSaved(r, key, applog.OpCreate)
	NewResponse().Status(http.StatusCreated).JSON(extra).Write(w)
}

func (s *Server) handleDeleteExtra(w http.ResponseWriter, r *http.Request) {
	key, ok := s.monthKey(w, r)
	if !ok {
		return
	}
	err := s.session(r).DeleteExtra(r.Context(), key, chi.URLParam(r, "fieldId"), chi.URLParam(r, "extraId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.monthSaved(r, key, applog.OpDelete)
	NoContent().Write(w)
}

// recurringRequest lists the accepted subcategory ids. A missing list
// accepts every pending template.
type recurringRequest struct {
	Accepted *[]string `json:"accepted"`
}

func (s *Server) handleResolveRecurring(w http.ResponseWriter, r *http.Request) {
	key, ok := s.monthKey(w, r)
	if !ok {
		return
	}
	var req recurringRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess := s.session(r)
	var accepted []string
	if req.Accepted != nil {
		accepted = *req.Accepted
	} else {
		accepted = budget.SelectAll(sess.OpenMonth(r.Context(), key).Pending)
	}
	m := sess.ResolveRecurring(r.Context(), key, accepted)
	s.monthSaved(r, key, applog.OpUpdate)
	NewResponse().JSON(m).Write(w)
}

type summaryResponse struct {
	Key     core.MonthKey       `json:"key"`
	Summary budget.MonthSummary `json:"summary"`
	Alerts  []budget.Alert      `json:"alerts"`
	Chart   []budget.ChartPoint `json:"chart"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	key, ok := s.monthKey(w, r)
	if !ok {
		return
	}
	summary := s.session(r).Summary(key)
	NewResponse().JSON(summaryResponse{
		Key:     key,
		Summary: summary,
		Alerts:  budget.Alerts(summary),
		Chart:   budget.ChartSeries(summary),
	}).Write(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	key, ok := s.monthKey(w, r)
	if !ok {
		return
	}
	month, fields := s.session(r).Month(key)

	var buf bytes.Buffer
	if err := report.WriteMonthCSV(&buf, key, fields, month, s.now()); err != nil {
		s.writeError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Month exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldMonth, key.String())

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="finanzas-%s.csv"`, key))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type pinRequest struct {
	PIN     string `json:"pin"`
	Confirm string `json:"confirm,omitempty"`
}

func (s *Server) handleSetPIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.session(r).SetPIN(r.Context(), req.PIN, req.Confirm); err != nil {
		s.writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleVerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.session(r).VerifyPIN(req.PIN); err != nil {
		s.writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	closed := s.sessions.Close(accountFrom(r.Context()))
	NewResponse().JSON(map[string]bool{"closed": closed}).Write(w)
}

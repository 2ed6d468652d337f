/*
handlers.go - HTTP API handlers for the dues administration service

PURPOSE:
  Exposes the membership service via REST. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Members:
    GET    /api/members                   List all members
    POST   /api/members                   Create member
    GET    /api/members/{id}              Get member details
    POST   /api/members/{id}/status       Apply lifecycle transition

  Dues queries:
    GET    /api/members/{id}/ledger       Payment history with traces
    GET    /api/members/{id}/debt         Debt snapshot
    GET    /api/members/{id}/calendar     Single-year month grid

  Payments:
    GET    /api/members/{id}/payments     Raw payment records
    POST   /api/members/{id}/payments     Record payment
    DELETE /api/payments/{id}             Remove mis-entered payment

  Plans:
    GET    /api/plans                     List plans
    POST   /api/plans                     Create plan
    GET    /api/plans/{id}                Get plan

  Reports:
    GET    /api/reports/overdue           Fleet overdue report

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, lifecycle gate, invalid input
  - 404: Record not found
  - 500: Internal errors

SECURITY NOTE:
  No authentication middleware. Authorization scoping (which members a
  caller may query) belongs to the deployment's gateway, not here.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/memberly/dues-engine/dues"
	"github.com/memberly/dues-engine/membership"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *membership.Service
	Log     *logrus.Logger
}

// NewHandler creates a new handler over the given service.
func NewHandler(svc *membership.Service, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{Service: svc, Log: log}
}

// =============================================================================
// MEMBER HANDLERS
// =============================================================================

// ListMembers returns all members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Service.Store.ListMembers(r.Context())
	if err != nil {
		h.serverError(w, "Failed to list members", err)
		return
	}

	dtos := make([]MemberDTO, len(members))
	for i, m := range members {
		dtos[i] = toMemberDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMember returns a single member.
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	member, err := h.Service.Store.GetMember(r.Context(), id)
	if err != nil {
		h.serverError(w, "Failed to get member", err)
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "Member not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(*member))
}

// CreateMember creates a new member.
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req CreateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	member := membership.Member{
		ID:     req.ID,
		Name:   req.Name,
		Email:  req.Email,
		Status: membership.Status(req.Status),
		PlanID: req.PlanID,
	}
	if req.JoinDate != "" {
		joinDate, err := time.Parse("2006-01-02", req.JoinDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid join_date format (use YYYY-MM-DD)", err)
			return
		}
		member.JoinDate = joinDate
	}

	created, err := h.Service.CreateMember(r.Context(), member)
	if err != nil {
		h.domainError(w, "Failed to create member", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberDTO(*created))
}

// SetMemberStatus applies a lifecycle transition.
func (h *Handler) SetMemberStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	member, err := h.Service.SetStatus(r.Context(), id, membership.Status(req.Status))
	if err != nil {
		h.domainError(w, "Failed to update status", err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(*member))
}

// =============================================================================
// PLAN HANDLERS
// =============================================================================

// ListPlans returns all plans.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Service.Store.ListPlans(r.Context())
	if err != nil {
		h.serverError(w, "Failed to list plans", err)
		return
	}

	dtos := make([]PlanDTO, len(plans))
	for i, p := range plans {
		dtos[i] = toPlanDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPlan returns a single plan.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	plan, err := h.Service.Store.GetPlan(r.Context(), id)
	if err != nil {
		h.serverError(w, "Failed to get plan", err)
		return
	}
	if plan == nil {
		writeError(w, http.StatusNotFound, "Plan not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(*plan))
}

// CreatePlan creates a new subscription plan.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount (use a decimal string)", err)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	plan, err := h.Service.CreatePlan(r.Context(), membership.PlanRecord{
		ID:      req.ID,
		Name:    req.Name,
		Amount:  amount,
		Cadence: dues.Cadence(req.Cadence),
		Active:  active,
	})
	if err != nil {
		h.domainError(w, "Failed to create plan", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanDTO(*plan))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns a member's raw payment records.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	payments, err := h.Service.Payments(r.Context(), id)
	if err != nil {
		h.domainError(w, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordPayment records a payment for a member.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount (use a decimal string)", err)
		return
	}

	input := membership.PaymentInput{
		Amount:      amount,
		TargetYear:  req.TargetYear,
		TargetMonth: req.TargetMonth,
		Note:        req.Note,
	}
	if req.PaidAt != "" {
		paidAt, err := time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid paid_at format (use RFC3339)", err)
			return
		}
		input.PaidAt = paidAt
	}

	payment, err := h.Service.RecordPayment(r.Context(), id, input)
	if err != nil {
		h.domainError(w, "Failed to record payment", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"member_id":  id,
		"payment_id": payment.ID,
		"amount":     payment.Amount.String(),
	}).Info("payment recorded")

	writeJSON(w, http.StatusCreated, toPaymentDTO(*payment))
}

// DeletePayment removes a mis-entered payment.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Service.RemovePayment(r.Context(), id); err != nil {
		h.domainError(w, "Failed to delete payment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// =============================================================================
// DUES QUERY HANDLERS
// =============================================================================

// GetLedger returns the member's payment history with allocation traces.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rows, err := h.Service.Ledger(r.Context(), id)
	if err != nil {
		h.domainError(w, "Failed to build ledger", err)
		return
	}

	dtos := make([]LedgerRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = LedgerRowDTO{
			Payment: PaymentDTO{
				ID:          row.Payment.ID,
				MemberID:    id,
				Amount:      row.Payment.Amount.String(),
				PaidAt:      row.Payment.PaidAt.Format(time.RFC3339),
				TargetYear:  row.Payment.TargetYear,
				TargetMonth: int(row.Payment.TargetMonth),
				Note:        row.Payment.Note,
			},
			Applied:     toApplicationDTOs(row.Applied),
			Excess:      row.Excess.String(),
			Unallocated: row.Unallocated.String(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetDebt returns the member's debt snapshot.
func (h *Handler) GetDebt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, err := h.Service.Debt(r.Context(), id)
	if err != nil {
		h.domainError(w, "Failed to compute debt", err)
		return
	}

	writeJSON(w, http.StatusOK, DebtSnapshotDTO{
		MemberID:      id,
		TotalDebt:     snap.TotalDebt.String(),
		OverdueCount:  snap.OverdueCount,
		LastPaymentAt: formatTime(snap.LastPaymentAt),
	})
}

// GetCalendar returns the member's paid/unpaid months for one year.
// Year defaults to the current year when the query param is absent.
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	year := h.Service.Now().Year()
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = parsed
	}

	months, err := h.Service.Calendar(r.Context(), id, year)
	if err != nil {
		h.domainError(w, "Failed to build calendar", err)
		return
	}

	dtos := make([]MonthStatusDTO, len(months))
	for i, m := range months {
		dtos[i] = MonthStatusDTO{
			Period:    m.Key.String(),
			Paid:      m.Paid,
			Future:    m.Future,
			Expected:  m.Expected.String(),
			PaidTotal: m.PaidTotal.String(),
			Remaining: m.Remaining.String(),
			SettledBy: m.SettledBy,
			SettledAt: formatTime(m.SettledAt),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetOverdueReport returns the fleet-wide overdue list, largest debt
// first.
func (h *Handler) GetOverdueReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Service.Overdue(r.Context())
	if err != nil {
		h.serverError(w, "Failed to build overdue report", err)
		return
	}

	dtos := make([]OverdueRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = OverdueRowDTO{
			MemberID:      row.MemberID,
			TotalDebt:     row.TotalDebt.String(),
			OverdueCount:  row.OverdueCount,
			LastPaymentAt: formatTime(row.LastPaymentAt),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// domainError maps service errors onto HTTP statuses.
func (h *Handler) domainError(w http.ResponseWriter, message string, err error) {
	switch {
	case membership.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case membership.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.serverError(w, message, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, message string, err error) {
	h.Log.WithError(err).Error(message)
	writeError(w, http.StatusInternalServerError, message, err)
}

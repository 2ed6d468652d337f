/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  All amounts cross the wire as decimal strings ("19.99"), never JSON
  floats. Clients parse them with their own decimal types.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/memberly/dues-engine/dues"
	"github.com/memberly/dues-engine/membership"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// MemberDTO represents a member in API responses.
type MemberDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	JoinDate  string `json:"join_date"`
	Status    string `json:"status"`
	PlanID    string `json:"plan_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateMemberRequest is the request to create a member.
type CreateMemberRequest struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	JoinDate string `json:"join_date,omitempty"`
	Status   string `json:"status,omitempty"`
	PlanID   string `json:"plan_id,omitempty"`
}

// SetStatusRequest is the request to apply a lifecycle transition.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// PlanDTO represents a subscription plan in API responses.
type PlanDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Amount    string `json:"amount"`
	Cadence   string `json:"cadence"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreatePlanRequest is the request to create a plan.
type CreatePlanRequest struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Amount  string `json:"amount"`
	Cadence string `json:"cadence"`
	Active  *bool  `json:"active,omitempty"`
}

// PaymentDTO represents a raw payment record.
type PaymentDTO struct {
	ID          string `json:"id"`
	MemberID    string `json:"member_id"`
	Amount      string `json:"amount"`
	PaidAt      string `json:"paid_at"`
	TargetYear  int    `json:"target_year,omitempty"`
	TargetMonth int    `json:"target_month,omitempty"`
	Note        string `json:"note,omitempty"`
}

// RecordPaymentRequest is the request to record a payment.
type RecordPaymentRequest struct {
	Amount      string `json:"amount"`
	PaidAt      string `json:"paid_at,omitempty"`
	TargetYear  int    `json:"target_year,omitempty"`
	TargetMonth int    `json:"target_month,omitempty"`
	Note        string `json:"note,omitempty"`
}

// ApplicationDTO is one slice of a payment applied to a period.
type ApplicationDTO struct {
	Period string `json:"period"`
	Amount string `json:"amount"`
}

// LedgerRowDTO is one payment with its allocation trace.
type LedgerRowDTO struct {
	Payment     PaymentDTO       `json:"payment"`
	Applied     []ApplicationDTO `json:"applied"`
	Excess      string           `json:"excess"`
	Unallocated string           `json:"unallocated"`
}

// DebtSnapshotDTO is the single-member debt view.
type DebtSnapshotDTO struct {
	MemberID      string `json:"member_id"`
	TotalDebt     string `json:"total_debt"`
	OverdueCount  int    `json:"overdue_count"`
	LastPaymentAt string `json:"last_payment_at,omitempty"`
}

// OverdueRowDTO is one indebted member in the fleet report.
type OverdueRowDTO struct {
	MemberID      string `json:"member_id"`
	TotalDebt     string `json:"total_debt"`
	OverdueCount  int    `json:"overdue_count"`
	LastPaymentAt string `json:"last_payment_at,omitempty"`
}

// MonthStatusDTO is one month of the calendar view.
type MonthStatusDTO struct {
	Period    string `json:"period"`
	Paid      bool   `json:"paid"`
	Future    bool   `json:"future"`
	Expected  string `json:"expected"`
	PaidTotal string `json:"paid_total"`
	Remaining string `json:"remaining"`
	SettledBy string `json:"settled_by,omitempty"`
	SettledAt string `json:"settled_at,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toMemberDTO(m membership.Member) MemberDTO {
	dto := MemberDTO{
		ID:       m.ID,
		Name:     m.Name,
		Email:    m.Email,
		JoinDate: m.JoinDate.Format("2006-01-02"),
		Status:   string(m.Status),
		PlanID:   m.PlanID,
	}
	if !m.CreatedAt.IsZero() {
		dto.CreatedAt = m.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toPlanDTO(p membership.PlanRecord) PlanDTO {
	dto := PlanDTO{
		ID:      p.ID,
		Name:    p.Name,
		Amount:  p.Amount.String(),
		Cadence: string(p.Cadence),
		Active:  p.Active,
	}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toPaymentDTO(p membership.PaymentRecord) PaymentDTO {
	return PaymentDTO{
		ID:          p.ID,
		MemberID:    p.MemberID,
		Amount:      p.Amount.String(),
		PaidAt:      p.PaidAt.Format(time.RFC3339),
		TargetYear:  p.TargetYear,
		TargetMonth: int(p.TargetMonth),
		Note:        p.Note,
	}
}

func toApplicationDTOs(apps []dues.Application) []ApplicationDTO {
	dtos := make([]ApplicationDTO, len(apps))
	for i, a := range apps {
		dtos[i] = ApplicationDTO{Period: a.Period.String(), Amount: a.Amount.String()}
	}
	return dtos
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

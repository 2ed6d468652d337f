/*
service.go - Orchestration between storage and the dues engine

PURPOSE:
  The Service is what handlers call. For writes it validates the
  preconditions the engine trusts; for reads it fetches the member,
  plan, and payments, then runs the pure reconciliation pipeline.

REQUEST FLOW (reads):
  1. Load member (404 if missing)
  2. Resolve plan reference (a missing/inactive plan is zero debt,
     not an error)
  3. Load payments
  4. Run dues.Reconcile-backed view

REQUEST FLOW (writes):
  1. Load member, check lifecycle gate
  2. Validate amount and target period
  3. Persist; the next read recomputes from scratch

The fleet overdue report re-runs the full per-member pipeline on every
call. Cost is O(members x periods x payments); acceptable at current
fleet sizes, a materialized ledger is the escape hatch if that changes.

SEE ALSO:
  - types.go: Records and store interfaces
  - errors.go: The error taxonomy used here
  - ../dues/reports.go: The report projections
*/
package membership

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/memberly/dues-engine/dues"
)

// Service exposes the membership operations: record keeping plus the
// four dues query operations.
type Service struct {
	Store Store

	// Now supplies the reference "now" for schedule building.
	// Overridable in tests for reproducible runs.
	Now func() time.Time

	// NewID generates identifiers for created records.
	NewID func() string
}

// NewService creates a Service with the default clock and UUID ids.
func NewService(store Store) *Service {
	return &Service{
		Store: store,
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

// =============================================================================
// MEMBER AND PLAN MANAGEMENT
// =============================================================================

// CreateMember stores a new member. Status defaults to pending, the ID
// is generated when empty.
func (s *Service) CreateMember(ctx context.Context, m Member) (*Member, error) {
	if m.ID == "" {
		m.ID = s.NewID()
	}
	if m.Status == "" {
		m.Status = StatusPending
	}
	if !m.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if m.JoinDate.IsZero() {
		m.JoinDate = s.Now()
	}
	if m.PlanID != "" {
		plan, err := s.Store.GetPlan(ctx, m.PlanID)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, ErrPlanNotFound
		}
	}
	if err := s.Store.SaveMember(ctx, m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SetStatus applies a lifecycle transition decided elsewhere. The
// service records the flag; it does not arbitrate the state machine.
func (s *Service) SetStatus(ctx context.Context, memberID string, status Status) (*Member, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	member, err := s.Store.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	member.Status = status
	if err := s.Store.SaveMember(ctx, *member); err != nil {
		return nil, err
	}
	return member, nil
}

// CreatePlan stores a new subscription plan.
func (s *Service) CreatePlan(ctx context.Context, p PlanRecord) (*PlanRecord, error) {
	if p.ID == "" {
		p.ID = s.NewID()
	}
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	if p.Cadence != dues.CadenceMonthly && p.Cadence != dues.CadenceYearly {
		return nil, ErrInvalidCadence
	}
	if err := s.Store.SavePlan(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// =============================================================================
// PAYMENT RECORDING
// =============================================================================

// PaymentInput is the caller-supplied part of a new payment.
type PaymentInput struct {
	Amount      decimal.Decimal
	PaidAt      time.Time
	TargetYear  int
	TargetMonth int
	Note        string
}

// RecordPayment validates and persists a payment for a member. This is
// the precondition boundary: everything the engine assumes about its
// inputs is enforced here.
func (s *Service) RecordPayment(ctx context.Context, memberID string, in PaymentInput) (*PaymentRecord, error) {
	member, err := s.Store.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	if !member.Status.CanRecordPayments() {
		return nil, &StatusError{MemberID: memberID, Status: member.Status}
	}
	if member.PlanID == "" {
		return nil, ErrNoPlan
	}
	plan, err := s.Store.GetPlan(ctx, member.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrNoPlan
	}
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	if err := validateTarget(in, plan.Cadence); err != nil {
		return nil, err
	}

	paidAt := in.PaidAt
	if paidAt.IsZero() {
		paidAt = s.Now()
	}

	record := PaymentRecord{
		ID:          s.NewID(),
		MemberID:    memberID,
		Amount:      in.Amount,
		PaidAt:      paidAt,
		TargetYear:  in.TargetYear,
		TargetMonth: time.Month(in.TargetMonth),
		Note:        in.Note,
	}
	if err := s.Store.AddPayment(ctx, record); err != nil {
		return nil, err
	}
	return &record, nil
}

// RemovePayment deletes a mis-entered payment. The next reconciliation
// run simply no longer sees it.
func (s *Service) RemovePayment(ctx context.Context, paymentID string) error {
	p, err := s.Store.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrPaymentNotFound
	}
	return s.Store.DeletePayment(ctx, paymentID)
}

func validateTarget(in PaymentInput, cadence dues.Cadence) error {
	if in.TargetYear == 0 && in.TargetMonth == 0 {
		return nil
	}
	if in.TargetYear == 0 {
		return &TargetError{Year: in.TargetYear, Month: in.TargetMonth, Reason: "month without year"}
	}
	switch cadence {
	case dues.CadenceMonthly:
		if in.TargetMonth < 1 || in.TargetMonth > 12 {
			return &TargetError{Year: in.TargetYear, Month: in.TargetMonth, Reason: "month must be 1-12"}
		}
	case dues.CadenceYearly:
		if in.TargetMonth != 0 {
			return &TargetError{Year: in.TargetYear, Month: in.TargetMonth, Reason: "yearly plans target a year only"}
		}
	}
	return nil
}

// =============================================================================
// DUES QUERY OPERATIONS
// =============================================================================

// Ledger returns the member's full payment history with allocation
// traces, in allocation order.
func (s *Service) Ledger(ctx context.Context, memberID string) ([]dues.LedgerRow, error) {
	mc, payments, err := s.memberInputs(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return dues.Ledger(mc, payments), nil
}

// Debt returns the member's current debt snapshot.
func (s *Service) Debt(ctx context.Context, memberID string) (*dues.DebtSnapshot, error) {
	mc, payments, err := s.memberInputs(ctx, memberID)
	if err != nil {
		return nil, err
	}
	snap := dues.Snapshot(mc, payments)
	return &snap, nil
}

// Calendar returns the member's paid/unpaid months for one year.
func (s *Service) Calendar(ctx context.Context, memberID string, year int) ([]dues.MonthStatus, error) {
	mc, payments, err := s.memberInputs(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return dues.MonthlyCalendar(mc, payments, year), nil
}

// Payments returns the member's raw payment records.
func (s *Service) Payments(ctx context.Context, memberID string) ([]PaymentRecord, error) {
	member, err := s.Store.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return s.Store.PaymentsByMember(ctx, memberID)
}

// Overdue runs the reconciliation pipeline for every billable member
// and returns those with outstanding debt, largest first.
func (s *Service) Overdue(ctx context.Context) ([]dues.OverdueRow, error) {
	members, err := s.Store.ListMembers(ctx)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	var accounts []dues.MemberAccount
	for _, m := range members {
		if !m.Status.Billable() {
			continue
		}
		plan, err := s.resolvePlan(ctx, m.PlanID)
		if err != nil {
			return nil, err
		}
		records, err := s.Store.PaymentsByMember(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, dues.MemberAccount{
			MemberID: m.ID,
			Context:  dues.MemberContext{JoinDate: m.JoinDate, Plan: plan, Now: now},
			Payments: toPayments(records),
		})
	}
	return dues.OverdueReport(accounts), nil
}

// =============================================================================
// INPUT ASSEMBLY
// =============================================================================

// memberInputs gathers the engine's inputs for a single member. A
// missing or inactive plan is passed through as-is: the engine resolves
// those to an empty schedule.
func (s *Service) memberInputs(ctx context.Context, memberID string) (dues.MemberContext, []dues.Payment, error) {
	member, err := s.Store.GetMember(ctx, memberID)
	if err != nil {
		return dues.MemberContext{}, nil, err
	}
	if member == nil {
		return dues.MemberContext{}, nil, ErrMemberNotFound
	}

	plan, err := s.resolvePlan(ctx, member.PlanID)
	if err != nil {
		return dues.MemberContext{}, nil, err
	}

	records, err := s.Store.PaymentsByMember(ctx, memberID)
	if err != nil {
		return dues.MemberContext{}, nil, err
	}

	mc := dues.MemberContext{
		JoinDate: member.JoinDate,
		Plan:     plan,
		Now:      s.Now(),
	}
	return mc, toPayments(records), nil
}

func (s *Service) resolvePlan(ctx context.Context, planID string) (*dues.Plan, error) {
	if planID == "" {
		return nil, nil
	}
	record, err := s.Store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return record.Plan(), nil
}

func toPayments(records []PaymentRecord) []dues.Payment {
	payments := make([]dues.Payment, len(records))
	for i, r := range records {
		payments[i] = r.Payment()
	}
	return payments
}

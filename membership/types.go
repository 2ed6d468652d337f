/*
Package membership wraps the dues engine with the member-facing domain:
member records, subscription plans, the lifecycle status flag, payment
recording with its preconditions, and the storage interfaces.

PURPOSE:
  The engine in package dues is a pure computation and trusts its
  inputs. Everything it trusts is enforced here: a payment can only be
  recorded for a member whose status allows it, amounts must be
  positive, target periods must be well-formed, and a plan must exist
  before dues can be owed.

KEY CONCEPTS IN THIS FILE (types.go):
  - Member: Who owes dues (join date + status + plan reference)
  - PlanRecord: A stored subscription plan
  - PaymentRecord: A stored payment, convertible to the engine's shape
  - Store: The persistence interface implemented by sqlite and memory

LIFECYCLE:
  Member status gates whether payments may be created at all. It never
  alters the reconciliation algorithm; the engine only ever sees a join
  date and a plan.

SEE ALSO:
  - service.go: Orchestrates store fetch -> engine pipeline
  - errors.go: Validation error taxonomy
  - ../store/sqlite: SQLite-backed Store
  - store/memory.go: In-memory Store for tests
*/
package membership

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/memberly/dues-engine/dues"
)

// =============================================================================
// MEMBER - Lifecycle status and plan reference
// =============================================================================

// Status is the member lifecycle flag, consumed read-only. Transitions
// are decided by administrators; the ledger engine never inspects it.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusActive    Status = "active"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusActive, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// CanRecordPayments reports whether payments may be created for a
// member in this status.
func (s Status) CanRecordPayments() bool {
	return s == StatusApproved || s == StatusActive
}

// Billable reports whether the member appears in fleet-wide reports.
func (s Status) Billable() bool {
	return s == StatusApproved || s == StatusActive
}

// Member is a stored member record.
type Member struct {
	ID        string
	Name      string
	Email     string
	JoinDate  time.Time
	Status    Status
	PlanID    string
	CreatedAt time.Time
}

// =============================================================================
// PLAN RECORD
// =============================================================================

// PlanRecord is a stored subscription plan.
type PlanRecord struct {
	ID        string
	Name      string
	Amount    decimal.Decimal
	Cadence   dues.Cadence
	Active    bool
	CreatedAt time.Time
}

// Plan converts the record to the engine's read-only plan value.
func (r PlanRecord) Plan() *dues.Plan {
	return &dues.Plan{Amount: r.Amount, Cadence: r.Cadence, Active: r.Active}
}

// =============================================================================
// PAYMENT RECORD
// =============================================================================

// PaymentRecord is a stored payment. Belongs to exactly one member.
type PaymentRecord struct {
	ID          string
	MemberID    string
	Amount      decimal.Decimal
	PaidAt      time.Time
	TargetYear  int
	TargetMonth time.Month
	Note        string
	CreatedAt   time.Time
}

// Payment converts the record to the engine's read-only payment value.
func (r PaymentRecord) Payment() dues.Payment {
	return dues.Payment{
		ID:          r.ID,
		Amount:      r.Amount,
		PaidAt:      r.PaidAt,
		TargetYear:  r.TargetYear,
		TargetMonth: r.TargetMonth,
		Note:        r.Note,
	}
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// MemberStore persists member records.
type MemberStore interface {
	SaveMember(ctx context.Context, m Member) error
	GetMember(ctx context.Context, id string) (*Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
}

// PlanStore persists subscription plans.
type PlanStore interface {
	SavePlan(ctx context.Context, p PlanRecord) error
	GetPlan(ctx context.Context, id string) (*PlanRecord, error)
	ListPlans(ctx context.Context) ([]PlanRecord, error)
}

// PaymentStore persists payments. Payments are append + delete-by-id;
// corrections replace a payment rather than editing it in place.
type PaymentStore interface {
	AddPayment(ctx context.Context, p PaymentRecord) error
	GetPayment(ctx context.Context, id string) (*PaymentRecord, error)
	DeletePayment(ctx context.Context, id string) error
	PaymentsByMember(ctx context.Context, memberID string) ([]PaymentRecord, error)
}

// Store is the full persistence surface the service needs.
type Store interface {
	MemberStore
	PlanStore
	PaymentStore
}

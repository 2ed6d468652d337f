/*
Package dues provides the dues ledger reconciliation engine.

PURPOSE:
  This package contains the pure computation at the heart of the
  membership system: given a subscription plan, a join date, and an
  unordered set of payments, it reconstructs which billing periods are
  paid, which are still owed, how overpayments roll forward, and how
  each payment maps onto one or more obligation periods.

KEY CONCEPTS IN THIS FILE (types.go):
  - Plan: What a member owes per period (amount + cadence)
  - Payment: Read-only input supplied by the payment store
  - ObligationPeriod: One billing period with expected/paid/remaining
  - AllocationTrace: How a single payment was distributed
  - MemberContext: The member-side inputs to a reconciliation run

DESIGN PRINCIPLES:
  1. Purity: Every run recomputes from raw inputs; nothing is persisted
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Determinism: Same inputs always produce the same schedule and traces
  4. Conservation: Every cent of every payment is accounted for

USAGE:
  schedule := dues.BuildSchedule(plan, joinDate, now, dues.DefaultLookaheadMonths)
  traces := dues.Allocate(schedule, payments)
  summary := dues.Summarize(schedule, payments)

SEE ALSO:
  - schedule.go: Obligation schedule construction
  - allocate.go: The FIFO payment allocation algorithm
  - aggregate.go: Debt/overdue summary figures
  - reports.go: The four read-only report projections
*/
package dues

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PLAN - What a member owes per billing period
// =============================================================================

// Cadence is how often an obligation comes due.
type Cadence string

const (
	CadenceMonthly Cadence = "monthly"
	CadenceYearly  Cadence = "yearly"
)

// Plan is an immutable-per-query value owned by the membership
// configuration. The engine only reads it.
type Plan struct {
	Amount  decimal.Decimal
	Cadence Cadence
	Active  bool
}

// =============================================================================
// PERIOD KEY - Identifies one billing period
// =============================================================================

// PeriodKey identifies a billing period: (year, month) for monthly
// cadence, (year, 0) for yearly.
type PeriodKey struct {
	Year  int
	Month time.Month // 0 for yearly periods
}

// Before orders keys chronologically.
func (k PeriodKey) Before(other PeriodKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// After is the inverse ordering.
func (k PeriodKey) After(other PeriodKey) bool { return other.Before(k) }

// Next returns the following period at the same cadence.
func (k PeriodKey) Next() PeriodKey {
	if k.Month == 0 {
		return PeriodKey{Year: k.Year + 1}
	}
	if k.Month == time.December {
		return PeriodKey{Year: k.Year + 1, Month: time.January}
	}
	return PeriodKey{Year: k.Year, Month: k.Month + 1}
}

func (k PeriodKey) String() string {
	if k.Month == 0 {
		return time.Date(k.Year, time.January, 1, 0, 0, 0, 0, time.UTC).Format("2006")
	}
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// =============================================================================
// OBLIGATION PERIOD - One billing period owed by a member
// =============================================================================

// ObligationPeriod is one billing period owed under a plan. Created
// fresh by BuildSchedule on every call, mutated in place by Allocate,
// discarded after the report view reads it. Never persisted.
//
// Invariant at all times:
//
//	ExpectedAmount == PaidAmount + RemainingDebt
//	0 <= RemainingDebt <= ExpectedAmount
type ObligationPeriod struct {
	Key            PeriodKey
	ExpectedAmount decimal.Decimal
	PaidAmount     decimal.Decimal
	RemainingDebt  decimal.Decimal

	// Future marks periods strictly after the reference "now" period.
	// Future periods absorb overpayments but never count as debt.
	Future bool

	// AppliedPayments records every allocation into this period, in
	// allocation order.
	AppliedPayments []AppliedPayment
}

// AppliedPayment is one slice of a payment applied to a period.
type AppliedPayment struct {
	PaymentID string
	Amount    decimal.Decimal
}

// Settled reports whether the period has no remaining debt.
func (p *ObligationPeriod) Settled() bool {
	return p.RemainingDebt.LessThanOrEqual(decimal.Zero)
}

// =============================================================================
// PAYMENT - Read-only input from the payment store
// =============================================================================

// Payment is a recorded dues payment. The engine never mutates it.
// TargetYear/TargetMonth, when non-zero, name the period the payer
// intended to cover.
type Payment struct {
	ID          string
	Amount      decimal.Decimal
	PaidAt      time.Time
	TargetYear  int
	TargetMonth time.Month
	Note        string
}

// Target returns the targeted period key and whether one was set.
// A target with a year but no month addresses a yearly period.
func (p Payment) Target() (PeriodKey, bool) {
	if p.TargetYear == 0 {
		return PeriodKey{}, false
	}
	return PeriodKey{Year: p.TargetYear, Month: p.TargetMonth}, true
}

// =============================================================================
// ALLOCATION TRACE - How one payment was distributed
// =============================================================================

// Application is one slice of a payment applied to a period, from the
// payment's point of view.
type Application struct {
	Period PeriodKey
	Amount decimal.Decimal
}

// AllocationTrace records where a single payment went.
//
// Conservation invariant:
//
//	sum(Applied[i].Amount) + Unallocated == payment.Amount
type AllocationTrace struct {
	PaymentID string
	Applied   []Application

	// Excess is the portion applied to future (not-yet-due) periods.
	Excess decimal.Decimal

	// Unallocated is the residual that exceeded the entire look-ahead
	// window. It is surfaced here rather than silently dropped so the
	// conservation invariant holds.
	Unallocated decimal.Decimal
}

// =============================================================================
// MEMBER CONTEXT - Member-side inputs to a reconciliation run
// =============================================================================

// MemberContext carries the collaborator-provided inputs for one member.
// Plan is nil when the member has no subscription; the pipeline then
// reports zero debt.
type MemberContext struct {
	JoinDate time.Time
	Plan     *Plan
	Now      time.Time
}

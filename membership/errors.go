/*
errors.go - Validation error taxonomy for the membership layer

PURPOSE:
  All precondition failures the engine is allowed to assume away live
  here: bad amounts, malformed targets, lifecycle gating, and missing
  records. Handlers map these onto HTTP statuses with errors.Is.

CATEGORIES:
  1. Not-found errors - missing member/plan/payment records
  2. Validation errors - rejected before the engine runs
  3. Lifecycle errors - member status forbids the operation

Degenerate data (no plan, inactive plan, future join date) is NOT an
error: the engine resolves those to an empty schedule and zero debt.
*/
package membership

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMemberNotFound is returned when a referenced member doesn't exist.
	ErrMemberNotFound = errors.New("member not found")

	// ErrPlanNotFound is returned when a referenced plan doesn't exist.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrPaymentNotFound is returned when a referenced payment doesn't exist.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrInvalidAmount is returned for zero or negative payment/plan amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidTarget is returned for malformed target periods
	// (month without year, month outside 1..12, cadence mismatch).
	ErrInvalidTarget = errors.New("invalid target period")

	// ErrInvalidStatus is returned for an unknown lifecycle status.
	ErrInvalidStatus = errors.New("unknown member status")

	// ErrInvalidCadence is returned for a plan cadence that is neither
	// monthly nor yearly.
	ErrInvalidCadence = errors.New("cadence must be monthly or yearly")

	// ErrNoPlan is returned when recording a payment for a member
	// without a subscription plan.
	ErrNoPlan = errors.New("member has no plan")

	// ErrPaymentsNotAllowed is returned when the member's lifecycle
	// status forbids creating payments.
	ErrPaymentsNotAllowed = errors.New("payments not allowed for member status")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StatusError reports a lifecycle gate violation.
type StatusError struct {
	MemberID string
	Status   Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("member %s is %s: payments not allowed", e.MemberID, e.Status)
}

func (e *StatusError) Unwrap() error { return ErrPaymentsNotAllowed }

// TargetError reports a malformed target period on a payment.
type TargetError struct {
	Year   int
	Month  int
	Reason string
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("invalid target period %d-%02d: %s", e.Year, e.Month, e.Reason)
}

func (e *TargetError) Unwrap() error { return ErrInvalidTarget }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrPaymentNotFound)
}

// IsClientError returns true if the error is due to invalid input or a
// lifecycle gate, as opposed to a storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidTarget) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidCadence) ||
		errors.Is(err, ErrNoPlan) ||
		errors.Is(err, ErrPaymentsNotAllowed)
}

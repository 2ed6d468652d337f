/*
allocate.go - FIFO payment allocation with targeted-period priority

PURPOSE:
  Maps each payment's amount onto one or more obligation periods. This
  is the algorithmic core of the engine: every report view (ledger,
  debt snapshot, overdue report, calendar) is a projection over the
  allocation computed here.

POLICY (applied once per reconciliation run):
  1. Payments are sorted ascending by PaidAt, ties broken by payment ID
     so the allocation is deterministic.
  2. Targeted pass: a payment carrying a target period that exists in
     the schedule and still has remaining debt settles that period
     first, up to min(payment amount, remaining debt).
  3. FIFO carry-forward pass: each payment's residual is applied across
     non-future periods in chronological order, oldest debt first.
  4. Overflow pass: whatever still remains is applied across future
     periods in chronological order (paying ahead).
  5. Residual beyond the look-ahead window is recorded as Unallocated
     on the trace, never silently dropped.

WHY TARGETED-FIRST:
  Members may pre-pay a specific month while still owing older arrears.
  Honoring the target before catching up arrears matches what the payer
  meant, and gives a single canonical allocation no matter which report
  asks for it.

INVARIANTS:
  - Conservation: sum of a trace's applications + Unallocated equals
    the payment amount, exactly.
  - Non-negativity: RemainingDebt never goes below zero and never
    exceeds ExpectedAmount.
  - Purity: Allocate never fails; malformed input (negative amounts,
    zero-amount plans) is the caller's precondition, not handled here.

SEE ALSO:
  - schedule.go: Produces the ordered schedule consumed here
  - aggregate.go: Summary figures over the allocated schedule
*/
package dues

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Allocate distributes payments across the schedule in place and
// returns one trace per payment, in allocation order.
//
// The schedule must be chronologically ascending, as produced by
// BuildSchedule. The input payments slice is not modified.
func Allocate(schedule []ObligationPeriod, payments []Payment) []AllocationTrace {
	ordered := sortPayments(payments)

	traces := make([]AllocationTrace, len(ordered))
	residuals := make([]decimal.Decimal, len(ordered))
	for i, p := range ordered {
		traces[i] = AllocationTrace{
			PaymentID:   p.ID,
			Excess:      decimal.Zero,
			Unallocated: decimal.Zero,
		}
		residuals[i] = p.Amount
	}

	// Targeted pass: honor explicit targets before any carry-forward.
	for i, p := range ordered {
		target, ok := p.Target()
		if !ok {
			continue
		}
		period := findPeriod(schedule, target)
		if period == nil || period.Settled() {
			continue
		}
		residuals[i] = apply(period, &traces[i], residuals[i])
	}

	// FIFO carry-forward pass: oldest non-future debt first.
	for i := range ordered {
		residuals[i] = applyAcross(schedule, &traces[i], residuals[i], false)
	}

	// Overflow pass: remaining residuals pay ahead into future periods.
	for i := range ordered {
		residuals[i] = applyAcross(schedule, &traces[i], residuals[i], true)
		traces[i].Unallocated = residuals[i]
	}

	return traces
}

// apply moves min(residual, period.RemainingDebt) from the payment into
// the period, recording the slice on both sides. Returns the payment's
// remaining residual.
func apply(period *ObligationPeriod, trace *AllocationTrace, residual decimal.Decimal) decimal.Decimal {
	if residual.LessThanOrEqual(decimal.Zero) || period.Settled() {
		return residual
	}

	applied := decimal.Min(residual, period.RemainingDebt)
	period.PaidAmount = period.PaidAmount.Add(applied)
	period.RemainingDebt = period.RemainingDebt.Sub(applied)
	period.AppliedPayments = append(period.AppliedPayments, AppliedPayment{
		PaymentID: trace.PaymentID,
		Amount:    applied,
	})
	trace.Applied = append(trace.Applied, Application{
		Period: period.Key,
		Amount: applied,
	})
	if period.Future {
		trace.Excess = trace.Excess.Add(applied)
	}
	return residual.Sub(applied)
}

// applyAcross walks the schedule in order, applying the residual to
// every unsettled period matching the future flag until the residual
// is exhausted.
func applyAcross(schedule []ObligationPeriod, trace *AllocationTrace, residual decimal.Decimal, future bool) decimal.Decimal {
	for i := range schedule {
		if residual.LessThanOrEqual(decimal.Zero) {
			break
		}
		if schedule[i].Future != future {
			continue
		}
		residual = apply(&schedule[i], trace, residual)
	}
	return residual
}

// sortPayments returns a copy ordered by PaidAt ascending, payment ID
// as the deterministic tie-break.
func sortPayments(payments []Payment) []Payment {
	ordered := make([]Payment, len(payments))
	copy(ordered, payments)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].PaidAt.Equal(ordered[j].PaidAt) {
			return ordered[i].PaidAt.Before(ordered[j].PaidAt)
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

func findPeriod(schedule []ObligationPeriod, key PeriodKey) *ObligationPeriod {
	for i := range schedule {
		if schedule[i].Key == key {
			return &schedule[i]
		}
	}
	return nil
}

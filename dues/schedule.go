/*
schedule.go - Obligation schedule construction

PURPOSE:
  Builds the ordered sequence of obligation periods a member owes: one
  per calendar month from the join month through "now" for monthly
  plans, plus a look-ahead window of future months to absorb
  overpayments; a single current-calendar-year period for yearly plans.

KEY INSIGHT:
  Ordering is load-bearing. The allocator walks the schedule front to
  back, so periods must come out chronologically ascending, stable and
  reproducible, on every call.

DEGENERATE INPUTS:
  Nil plan, inactive plan, or a join date after "now" all resolve to an
  empty schedule and therefore zero debt downstream. None of these are
  errors.

SEE ALSO:
  - allocate.go: Consumes the schedule in order
  - aggregate.go: Sums the allocated schedule
*/
package dues

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLookaheadMonths is the number of future periods pre-generated
// for monthly plans so that overpayments have somewhere to land.
const DefaultLookaheadMonths = 12

// BuildSchedule produces the ordered obligation periods for a plan.
//
// Monthly cadence: every month from joinDate's (year, month) through
// now's (year, month) inclusive, non-future, followed by lookahead
// additional months marked Future. Yearly cadence: a single period for
// now's calendar year, no look-ahead.
//
// Each period starts with ExpectedAmount = plan.Amount and the full
// amount as RemainingDebt.
func BuildSchedule(plan *Plan, joinDate, now time.Time, lookahead int) []ObligationPeriod {
	if plan == nil || !plan.Active {
		return nil
	}
	if joinDate.After(now) {
		// Clock skew or data error: no obligations yet.
		return nil
	}

	switch plan.Cadence {
	case CadenceYearly:
		return []ObligationPeriod{newPeriod(PeriodKey{Year: now.Year()}, plan.Amount, false)}

	case CadenceMonthly:
		start := PeriodKey{Year: joinDate.Year(), Month: joinDate.Month()}
		current := PeriodKey{Year: now.Year(), Month: now.Month()}

		var schedule []ObligationPeriod
		for k := start; !k.After(current); k = k.Next() {
			schedule = append(schedule, newPeriod(k, plan.Amount, false))
		}
		k := current.Next()
		for i := 0; i < lookahead; i++ {
			schedule = append(schedule, newPeriod(k, plan.Amount, true))
			k = k.Next()
		}
		return schedule

	default:
		return nil
	}
}

func newPeriod(key PeriodKey, amount decimal.Decimal, future bool) ObligationPeriod {
	return ObligationPeriod{
		Key:            key,
		ExpectedAmount: amount,
		PaidAmount:     decimal.Zero,
		RemainingDebt:  amount,
		Future:         future,
	}
}

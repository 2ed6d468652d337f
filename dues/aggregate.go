/*
aggregate.go - Summary figures over an allocated schedule

PURPOSE:
  Derives the numbers the report views display: total outstanding debt,
  how many periods are overdue, and when the member last paid.

KEY RULE:
  Future periods never count as debt, even when unpaid - they are not
  yet due. TotalDebt and OverdueCount sum non-future periods only.

SEE ALSO:
  - allocate.go: Produces the allocated schedule summarized here
  - reports.go: Assembles summaries into the report shapes
*/
package dues

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary is the aggregate view of one member's allocated schedule.
type Summary struct {
	// TotalDebt is the sum of RemainingDebt over non-future periods.
	TotalDebt decimal.Decimal

	// OverdueCount is the number of non-future periods with debt.
	// Yearly plans collapse this to 0 or 1.
	OverdueCount int

	// LastPaymentAt is the timestamp of the most recent payment, zero
	// when the member has never paid.
	LastPaymentAt time.Time
}

// Summarize computes aggregate figures from an allocated schedule and
// the raw payment list.
func Summarize(schedule []ObligationPeriod, payments []Payment) Summary {
	s := Summary{TotalDebt: decimal.Zero}
	for i := range schedule {
		if schedule[i].Future {
			continue
		}
		if !schedule[i].Settled() {
			s.TotalDebt = s.TotalDebt.Add(schedule[i].RemainingDebt)
			s.OverdueCount++
		}
	}
	for _, p := range payments {
		if p.PaidAt.After(s.LastPaymentAt) {
			s.LastPaymentAt = p.PaidAt
		}
	}
	return s
}

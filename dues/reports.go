/*
reports.go - The four read-only report projections

PURPOSE:
  Thin presentation shapes over one shared reconciliation pipeline:
    - Ledger:          one row per payment with its allocation trace
    - Snapshot:        single-member debt summary
    - OverdueReport:   fleet-wide debt list, sorted descending
    - MonthlyCalendar: single-year paid/unpaid month grid

  All four run the identical build -> allocate -> summarize pipeline,
  so they can never drift apart.

CONCURRENCY:
  Every call allocates its own schedule and traces; concurrent calls
  for the same or different members need no coordination.

SEE ALSO:
  - schedule.go, allocate.go, aggregate.go: The pipeline stages
*/
package dues

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Reconcile runs the full pipeline for one member: schedule built from
// the plan, payments allocated, summary derived. This is the single
// code path behind all four report views.
func Reconcile(mc MemberContext, payments []Payment) ([]ObligationPeriod, []AllocationTrace, Summary) {
	schedule := BuildSchedule(mc.Plan, mc.JoinDate, mc.Now, DefaultLookaheadMonths)
	traces := Allocate(schedule, payments)
	summary := Summarize(schedule, payments)
	return schedule, traces, summary
}

// =============================================================================
// MEMBER LEDGER
// =============================================================================

// LedgerRow annotates one payment with where it went.
type LedgerRow struct {
	Payment     Payment
	Applied     []Application
	Excess      decimal.Decimal
	Unallocated decimal.Decimal
}

// Ledger returns one row per payment, in allocation order.
func Ledger(mc MemberContext, payments []Payment) []LedgerRow {
	_, traces, _ := Reconcile(mc, payments)

	byID := make(map[string]Payment, len(payments))
	for _, p := range payments {
		byID[p.ID] = p
	}

	rows := make([]LedgerRow, len(traces))
	for i, tr := range traces {
		rows[i] = LedgerRow{
			Payment:     byID[tr.PaymentID],
			Applied:     tr.Applied,
			Excess:      tr.Excess,
			Unallocated: tr.Unallocated,
		}
	}
	return rows
}

// =============================================================================
// DEBT SNAPSHOT
// =============================================================================

// DebtSnapshot is the single-member debt view.
type DebtSnapshot struct {
	TotalDebt     decimal.Decimal
	OverdueCount  int
	LastPaymentAt time.Time
}

// Snapshot returns the member's current debt position.
func Snapshot(mc MemberContext, payments []Payment) DebtSnapshot {
	_, _, summary := Reconcile(mc, payments)
	return DebtSnapshot{
		TotalDebt:     summary.TotalDebt,
		OverdueCount:  summary.OverdueCount,
		LastPaymentAt: summary.LastPaymentAt,
	}
}

// =============================================================================
// FLEET OVERDUE REPORT
// =============================================================================

// MemberAccount pairs one member's context with their payments, keyed
// by the external member ID.
type MemberAccount struct {
	MemberID string
	Context  MemberContext
	Payments []Payment
}

// OverdueRow is one indebted member in the fleet report.
type OverdueRow struct {
	MemberID      string
	TotalDebt     decimal.Decimal
	OverdueCount  int
	LastPaymentAt time.Time
}

// OverdueReport runs the pipeline per member and returns those with
// debt, sorted by debt descending. Equal debts order by member ID so
// the report is reproducible.
func OverdueReport(accounts []MemberAccount) []OverdueRow {
	var rows []OverdueRow
	for _, acct := range accounts {
		_, _, summary := Reconcile(acct.Context, acct.Payments)
		if summary.TotalDebt.LessThanOrEqual(decimal.Zero) {
			continue
		}
		rows = append(rows, OverdueRow{
			MemberID:      acct.MemberID,
			TotalDebt:     summary.TotalDebt,
			OverdueCount:  summary.OverdueCount,
			LastPaymentAt: summary.LastPaymentAt,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].TotalDebt.Equal(rows[j].TotalDebt) {
			return rows[i].TotalDebt.GreaterThan(rows[j].TotalDebt)
		}
		return rows[i].MemberID < rows[j].MemberID
	})
	return rows
}

// =============================================================================
// MONTHLY CALENDAR
// =============================================================================

// MonthStatus is one month of the single-year calendar view.
type MonthStatus struct {
	Key    PeriodKey
	Paid   bool
	Future bool

	Expected  decimal.Decimal
	PaidTotal decimal.Decimal
	Remaining decimal.Decimal

	// SettledBy/SettledAt identify the payment whose application
	// brought the month to fully paid, when it is.
	SettledBy string
	SettledAt time.Time
}

// MonthlyCalendar returns the schedule restricted to the requested
// year, one entry per obligation period falling in that year.
func MonthlyCalendar(mc MemberContext, payments []Payment, year int) []MonthStatus {
	schedule, _, _ := Reconcile(mc, payments)

	paidAt := make(map[string]time.Time, len(payments))
	for _, p := range payments {
		paidAt[p.ID] = p.PaidAt
	}

	var months []MonthStatus
	for i := range schedule {
		period := &schedule[i]
		if period.Key.Year != year {
			continue
		}
		ms := MonthStatus{
			Key:       period.Key,
			Paid:      period.Settled(),
			Future:    period.Future,
			Expected:  period.ExpectedAmount,
			PaidTotal: period.PaidAmount,
			Remaining: period.RemainingDebt,
		}
		if ms.Paid && len(period.AppliedPayments) > 0 {
			last := period.AppliedPayments[len(period.AppliedPayments)-1]
			ms.SettledBy = last.PaymentID
			ms.SettledAt = paidAt[last.PaymentID]
		}
		months = append(months, ms)
	}
	return months
}

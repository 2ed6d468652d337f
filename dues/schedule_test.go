package dues_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/memberly/dues-engine/dues"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func money(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func monthlyPlan(amount string) *dues.Plan {
	return &dues.Plan{Amount: money(amount), Cadence: dues.CadenceMonthly, Active: true}
}

func yearlyPlan(amount string) *dues.Plan {
	return &dues.Plan{Amount: money(amount), Cadence: dues.CadenceYearly, Active: true}
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func nonFutureCount(schedule []dues.ObligationPeriod) int {
	n := 0
	for _, p := range schedule {
		if !p.Future {
			n++
		}
	}
	return n
}

// =============================================================================
// MONTHLY SCHEDULE TESTS
// =============================================================================

func TestBuildSchedule_Monthly_JoinToNowInclusive(t *testing.T) {
	// GIVEN: Member joined Jan 2024, now is Mar 2024
	// WHEN: Building a monthly schedule with 12 months look-ahead
	// THEN: Jan, Feb, Mar non-future + 12 future months, chronological

	schedule := dues.BuildSchedule(monthlyPlan("100"), date(2024, time.January, 1), date(2024, time.March, 1), 12)

	if len(schedule) != 15 {
		t.Fatalf("expected 15 periods, got %d", len(schedule))
	}
	if nonFutureCount(schedule) != 3 {
		t.Errorf("expected 3 non-future periods, got %d", nonFutureCount(schedule))
	}

	want := dues.PeriodKey{Year: 2024, Month: time.January}
	for i, p := range schedule {
		if p.Key != want {
			t.Fatalf("period %d: expected %v, got %v", i, want, p.Key)
		}
		if !p.ExpectedAmount.Equal(money("100")) {
			t.Errorf("period %v: expected amount 100, got %v", p.Key, p.ExpectedAmount)
		}
		if !p.RemainingDebt.Equal(p.ExpectedAmount) {
			t.Errorf("period %v: fresh period should owe the full amount", p.Key)
		}
		want = want.Next()
	}

	if schedule[2].Future {
		t.Error("the current month should not be future")
	}
	if !schedule[3].Future {
		t.Error("the month after now should be future")
	}
}

func TestBuildSchedule_Monthly_CrossesYearBoundary(t *testing.T) {
	// GIVEN: Member joined Nov 2023, now is Feb 2024
	// WHEN: Building the schedule
	// THEN: Nov, Dec, Jan, Feb enumerate across the year boundary

	schedule := dues.BuildSchedule(monthlyPlan("50"), date(2023, time.November, 15), date(2024, time.February, 10), 0)

	if len(schedule) != 4 {
		t.Fatalf("expected 4 periods, got %d", len(schedule))
	}
	if schedule[1].Key != (dues.PeriodKey{Year: 2023, Month: time.December}) {
		t.Errorf("unexpected second period %v", schedule[1].Key)
	}
	if schedule[2].Key != (dues.PeriodKey{Year: 2024, Month: time.January}) {
		t.Errorf("unexpected third period %v", schedule[2].Key)
	}
}

func TestBuildSchedule_Monthly_JoinMonthEqualsNowMonth(t *testing.T) {
	schedule := dues.BuildSchedule(monthlyPlan("100"), date(2024, time.March, 5), date(2024, time.March, 20), 2)

	if nonFutureCount(schedule) != 1 {
		t.Errorf("expected a single non-future period, got %d", nonFutureCount(schedule))
	}
	if len(schedule) != 3 {
		t.Errorf("expected 3 periods including look-ahead, got %d", len(schedule))
	}
}

// =============================================================================
// YEARLY SCHEDULE TESTS
// =============================================================================

func TestBuildSchedule_Yearly_SingleCurrentYearPeriod(t *testing.T) {
	// GIVEN: A yearly plan, member joined years ago
	// WHEN: Building the schedule
	// THEN: Exactly one non-future period for now's calendar year

	schedule := dues.BuildSchedule(yearlyPlan("1200"), date(2020, time.June, 1), date(2024, time.March, 1), 12)

	if len(schedule) != 1 {
		t.Fatalf("expected 1 period, got %d", len(schedule))
	}
	if schedule[0].Key != (dues.PeriodKey{Year: 2024}) {
		t.Errorf("expected 2024 period, got %v", schedule[0].Key)
	}
	if schedule[0].Future {
		t.Error("yearly period should not be future")
	}
}

// =============================================================================
// DEGENERATE INPUT TESTS
// =============================================================================

func TestBuildSchedule_DegenerateInputs_EmptySchedule(t *testing.T) {
	now := date(2024, time.March, 1)
	join := date(2024, time.January, 1)

	inactive := monthlyPlan("100")
	inactive.Active = false

	cases := []struct {
		name string
		plan *dues.Plan
		join time.Time
	}{
		{"nil plan", nil, join},
		{"inactive plan", inactive, join},
		{"join date after now", monthlyPlan("100"), date(2025, time.January, 1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			schedule := dues.BuildSchedule(tc.plan, tc.join, now, 12)
			if len(schedule) != 0 {
				t.Errorf("expected empty schedule, got %d periods", len(schedule))
			}

			summary := dues.Summarize(schedule, nil)
			if !summary.TotalDebt.IsZero() || summary.OverdueCount != 0 {
				t.Errorf("empty schedule should report zero debt, got %v / %d",
					summary.TotalDebt, summary.OverdueCount)
			}
		})
	}
}

func TestBuildSchedule_Deterministic(t *testing.T) {
	// Two builds from the same inputs must be identical.
	a := dues.BuildSchedule(monthlyPlan("100"), date(2023, time.May, 10), date(2024, time.March, 1), 12)
	b := dues.BuildSchedule(monthlyPlan("100"), date(2023, time.May, 10), date(2024, time.March, 1), 12)

	if len(a) != len(b) {
		t.Fatalf("schedules differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Key != b[i].Key || a[i].Future != b[i].Future || !a[i].ExpectedAmount.Equal(b[i].ExpectedAmount) {
			t.Errorf("period %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

package core

import "time"

// PeriodStart returns the beginning of the budget period containing now,
// evaluated in loc. Custom periods track the calendar month.
func PeriodStart(period BudgetPeriod, now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	y, m, d := now.Date()

	switch period {
	case PeriodWeekly:
		// Weeks start on Monday.
		offset := (int(now.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	case PeriodYearly:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	}
}

// PeriodEnd returns the start of the period following the one containing now.
func PeriodEnd(period BudgetPeriod, now time.Time, loc *time.Location) time.Time {
	start := PeriodStart(period, now, loc)
	switch period {
	case PeriodWeekly:
		return start.AddDate(0, 0, 7)
	case PeriodYearly:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}

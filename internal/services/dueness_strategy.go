// This file implements the Strategy Pattern for recurring transaction dueness
// checking. Each interval (daily, weekly, monthly, yearly) has its own strategy
// that decides whether a new occurrence is due.

package services

import (
	"fmt"
	"time"

	"finwatch/internal/core"
)

// DuenessChecker is the strategy interface for checking if a recurring
// transaction is due. All times are expected in the same location.
type DuenessChecker interface {
	// IsDue returns true if a new occurrence should be raised given the last
	// processed time and the current time. anchor is the template's original
	// occurrence and fixes the day of month and month of year.
	IsDue(lastProcessed, now, anchor time.Time) bool
}

// DailyChecker implements DuenessChecker for daily recurring transactions.
type DailyChecker struct{}

// IsDue returns true if last processing happened before today.
func (DailyChecker) IsDue(lastProcessed, now, _ time.Time) bool {
	if lastProcessed.IsZero() {
		return true
	}
	return lastProcessed.Format(time.DateOnly) != now.Format(time.DateOnly) && lastProcessed.Before(now)
}

// WeeklyChecker implements DuenessChecker for weekly recurring transactions.
type WeeklyChecker struct{}

// IsDue returns true if 7 or more days have passed since last processing.
func (WeeklyChecker) IsDue(lastProcessed, now, _ time.Time) bool {
	if lastProcessed.IsZero() {
		return true
	}
	return now.Sub(lastProcessed) >= 7*24*time.Hour
}

// MonthlyChecker implements DuenessChecker for monthly recurring transactions.
type MonthlyChecker struct{}

// IsDue returns true if we're in a later month and have reached the anchor day.
func (MonthlyChecker) IsDue(lastProcessed, now, anchor time.Time) bool {
	if lastProcessed.IsZero() {
		return true
	}

	if !monthAfter(lastProcessed, now) {
		return false
	}
	return now.Day() >= clampDay(now.Year(), now.Month(), anchor.Day())
}

// YearlyChecker implements DuenessChecker for yearly recurring transactions.
type YearlyChecker struct{}

// IsDue returns true if we're in a later year and have reached the anchor
// month and day.
func (YearlyChecker) IsDue(lastProcessed, now, anchor time.Time) bool {
	if lastProcessed.IsZero() {
		return true
	}

	if now.Year() <= lastProcessed.Year() {
		return false
	}
	if now.Month() < anchor.Month() {
		return false
	}
	if now.Month() == anchor.Month() {
		return now.Day() >= clampDay(now.Year(), now.Month(), anchor.Day())
	}
	return true
}

// monthAfter reports whether now falls in a calendar month after last.
func monthAfter(last, now time.Time) bool {
	if now.Year() != last.Year() {
		return now.Year() > last.Year()
	}
	return now.Month() > last.Month()
}

// clampDay caps day to the length of the month, so an anchor on the 31st
// falls due on the 30th or 28th in shorter months.
func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

// duenessStrategies maps recurring intervals to their corresponding checkers.
var duenessStrategies = map[core.RecurringInterval]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

// GetDuenessChecker returns the dueness checker for an interval.
func GetDuenessChecker(interval core.RecurringInterval) (DuenessChecker, error) {
	checker, ok := duenessStrategies[interval]
	if !ok {
		return nil, fmt.Errorf("unknown recurring interval: %s", interval)
	}
	return checker, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// SweepReport summarizes one periodic sweep.
type SweepReport struct {
	Users             int
	FailedUsers       []string
	BudgetsRecomputed int
	Alerts            int
	Reminders         int
	Duration          time.Duration
}

// RunPeriodicSweep recomputes every budget of each user, then runs the budget
// limit and cash cushion checks and the recurring reminders. Users are
// processed with bounded concurrency; a failing user is logged and counted
// and never stops the others.
func (m *Monitor) RunPeriodicSweep(ctx context.Context, userIDs []string) SweepReport {
	start := time.Now()
	report := SweepReport{Users: len(userIDs)}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	for _, userID := range userIDs {
		g.Go(func() error {
			res, err := m.sweepUser(gctx, userID)

			mu.Lock()
			defer mu.Unlock()
			report.BudgetsRecomputed += res.budgets
			report.Alerts += res.alerts
			report.Reminders += res.reminders
			if err != nil {
				report.FailedUsers = append(report.FailedUsers, userID)
				slog.ErrorContext(gctx, "Sweep failed for user", "user_id", userID, "error", err)
			}
			// Never fail the group: one user must not cancel the others.
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	slog.InfoContext(ctx, "Periodic sweep complete",
		"users", report.Users,
		"failed", len(report.FailedUsers),
		"budgets", report.BudgetsRecomputed,
		"alerts", report.Alerts,
		"reminders", report.Reminders,
		"duration", report.Duration)
	return report
}

// SweepActiveUsers runs RunPeriodicSweep over every user owning an account
// or a budget.
func (m *Monitor) SweepActiveUsers(ctx context.Context) (SweepReport, error) {
	users, err := m.store.ListActiveUserIDs(ctx)
	if err != nil {
		return SweepReport{}, fmt.Errorf("list active users: %w", err)
	}
	return m.RunPeriodicSweep(ctx, users), nil
}

type userSweep struct {
	budgets   int
	alerts    int
	reminders int
}

func (m *Monitor) sweepUser(ctx context.Context, userID string) (res userSweep, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	budgets, recomputeErr := m.tracker.RecomputeAllForUser(ctx, userID)
	res.budgets = len(budgets)

	alerts, checkErr := m.detector.CheckAllConditions(ctx, userID)
	res.alerts = len(alerts)

	reminders, recurringErr := m.recurring.ProcessDue(ctx, userID, m.now())
	res.reminders = reminders

	return res, errors.Join(recomputeErr, checkErr, recurringErr)
}

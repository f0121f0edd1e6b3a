package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finwatch/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const budgetColumns = `id, user_id, name, category, period, target_cents, current_cents, last_alert_at, created_at, updated_at`

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b                core.Budget
		target, current  int64
		lastAlert        sql.NullInt64
		created, updated int64
	)
	if err := s.Scan(&b.ID, &b.UserID, &b.Name, &b.Category, &b.Period, &target, &current, &lastAlert, &created, &updated); err != nil {
		return core.Budget{}, err
	}
	b.TargetAmount = core.FromCents(target)
	b.CurrentAmount = core.FromCents(current)
	b.LastAlertAt = fromNullMillis(lastAlert)
	b.CreatedAt = fromMillis(created)
	b.UpdatedAt = fromMillis(updated)
	return b, nil
}

// CreateBudget inserts a budget. CurrentAmount starts at zero until the
// tracker recomputes it.
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	b.CurrentAmount = decimal.Zero

	_, err := r.db.ExecContext(ctx, `INSERT INTO budgets (`+budgetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		b.ID, b.UserID, b.Name, b.Category, string(b.Period), core.ToCents(b.TargetAmount),
		nullMillis(b.LastAlertAt), toMillis(now), toMillis(now))
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets
		WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBudget persists the user-editable fields. CurrentAmount is not touched.
func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.db.ExecContext(ctx, `UPDATE budgets
		SET name = ?, category = ?, period = ?, target_cents = ?, updated_at = ?
		WHERE id = ?`,
		b.Name, b.Category, string(b.Period), core.ToCents(b.TargetAmount), toMillis(time.Now()), b.ID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return expectAffected(res, "budget", b.ID)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return expectAffected(res, "budget", id)
}

// SetBudgetCurrentAmount overwrites the cached consumption. It reports false
// when the budget no longer exists.
func (r *SQLiteRepository) SetBudgetCurrentAmount(ctx context.Context, id string, amount decimal.Decimal) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE budgets SET current_cents = ?, updated_at = ? WHERE id = ?`,
		core.ToCents(amount), toMillis(time.Now()), id)
	if err != nil {
		return false, fmt.Errorf("set budget amount: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) SetBudgetLastAlert(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE budgets SET last_alert_at = ? WHERE id = ?`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("set budget last alert: %w", err)
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"finwatch/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, user_id, account_id, type, amount_cents, description, occurred_at, category,
	status, is_recurring, recurring_interval, last_processed_at, created_at, updated_at`

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                core.Transaction
		amount           int64
		description      sql.NullString
		occurred         int64
		isRecurring      int
		interval         sql.NullString
		lastProcessed    sql.NullInt64
		created, updated int64
	)
	err := s.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Type, &amount, &description, &occurred, &t.Category,
		&t.Status, &isRecurring, &interval, &lastProcessed, &created, &updated)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Amount = core.FromCents(amount)
	t.Description = description.String
	t.OccurredAt = fromMillis(occurred)
	t.IsRecurring = isRecurring != 0
	t.RecurringInterval = core.RecurringInterval(interval.String)
	t.LastProcessedAt = fromNullMillis(lastProcessed)
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.AccountID, string(t.Type), core.ToCents(t.Amount),
		sql.NullString{String: t.Description, Valid: t.Description != ""},
		toMillis(t.OccurredAt), t.Category, string(t.Status), boolInt(t.IsRecurring),
		sql.NullString{String: string(t.RecurringInterval), Valid: t.RecurringInterval != ""},
		nullMillis(t.LastProcessedAt), toMillis(now), toMillis(now))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions
		SET account_id = ?, type = ?, amount_cents = ?, description = ?, occurred_at = ?, category = ?,
		    status = ?, is_recurring = ?, recurring_interval = ?, last_processed_at = ?, updated_at = ?
		WHERE id = ?`,
		t.AccountID, string(t.Type), core.ToCents(t.Amount),
		sql.NullString{String: t.Description, Valid: t.Description != ""},
		toMillis(t.OccurredAt), t.Category, string(t.Status), boolInt(t.IsRecurring),
		sql.NullString{String: string(t.RecurringInterval), Valid: t.RecurringInterval != ""},
		nullMillis(t.LastProcessedAt), toMillis(time.Now()), t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectAffected(res, "transaction", t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectAffected(res, "transaction", id)
}

// ListTransactions returns one page of matching transactions, newest first,
// together with the total number of matches.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, int64, error) {
	var (
		where []string
		args  []any
	)
	where = append(where, "user_id = ?")
	args = append(args, f.UserID)
	if f.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if !f.From.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, toMillis(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "occurred_at <= ?")
		args = append(args, toMillis(f.To))
	}
	if f.MinAmount != nil {
		where = append(where, "amount_cents >= ?")
		args = append(args, core.ToCents(*f.MinAmount))
	}
	if f.MaxAmount != nil {
		where = append(where, "amount_cents <= ?")
		args = append(args, core.ToCents(*f.MaxAmount))
	}
	clause := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	pageArgs := append(append([]any(nil), args...), limit, f.Offset)
	rows, err := r.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE `+clause+`
		ORDER BY occurred_at DESC, created_at DESC LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// SumCompletedSigned sums completed transactions on an account, incomes
// positive and expenses negative, optionally leaving one transaction out.
func (r *SQLiteRepository) SumCompletedSigned(ctx context.Context, accountID, excludeID string) (decimal.Decimal, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE type WHEN 'INCOME' THEN amount_cents WHEN 'EXPENSE' THEN -amount_cents ELSE 0 END), 0)
		FROM transactions
		WHERE account_id = ? AND status = 'COMPLETED' AND id != ?`,
		accountID, excludeID).Scan(&cents)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum completed transactions: %w", err)
	}
	return core.FromCents(cents), nil
}

// ExpenseStats aggregates completed expenses matching q.
func (r *SQLiteRepository) ExpenseStats(ctx context.Context, q core.ExpenseQuery) (core.ExpenseStats, error) {
	query := `SELECT COALESCE(SUM(amount_cents), 0), COUNT(*) FROM transactions
		WHERE user_id = ? AND type = 'EXPENSE' AND status = 'COMPLETED' AND occurred_at >= ? AND id != ?`
	args := []any{q.UserID, toMillis(q.From), q.ExcludeID}
	if !q.To.IsZero() {
		query += ` AND occurred_at < ?`
		args = append(args, toMillis(q.To))
	}
	if len(q.Categories) > 0 {
		query += ` AND category IN (` + placeholders(len(q.Categories)) + `)`
		for _, c := range q.Categories {
			args = append(args, c)
		}
	}

	var (
		cents int64
		count int64
	)
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&cents, &count); err != nil {
		return core.ExpenseStats{}, fmt.Errorf("aggregate expenses: %w", err)
	}
	return core.ExpenseStats{Total: core.FromCents(cents), Count: count}, nil
}

// ListRecurringTransactions returns the completed recurring templates of a user.
func (r *SQLiteRepository) ListRecurringTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = ? AND is_recurring = 1 AND status = 'COMPLETED'
		ORDER BY occurred_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SetTransactionLastProcessed(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET last_processed_at = ? WHERE id = ?`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("set last processed: %w", err)
	}
	return expectAffected(res, "transaction", id)
}

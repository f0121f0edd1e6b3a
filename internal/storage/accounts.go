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

const accountColumns = `id, user_id, name, kind, balance_cents, is_default, bank_type, bank_account_number, created_at, updated_at`

func scanAccount(s scanner) (core.Account, error) {
	var (
		a                   core.Account
		balance             int64
		isDefault           int
		bankType, bankAccNo sql.NullString
		created, updated    int64
	)
	if err := s.Scan(&a.ID, &a.UserID, &a.Name, &a.Kind, &balance, &isDefault, &bankType, &bankAccNo, &created, &updated); err != nil {
		return core.Account{}, err
	}
	a.Balance = core.FromCents(balance)
	a.IsDefault = isDefault != 0
	a.BankType = core.BankType(bankType.String)
	a.BankAccountNumber = bankAccNo.String
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	return a, nil
}

// CreateAccount inserts a new account. The balance always starts at zero:
// it is derived from transactions by the ledger.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	a.Balance = decimal.Zero

	_, err := r.db.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, string(a.Kind), boolInt(a.IsDefault),
		sql.NullString{String: string(a.BankType), Valid: a.BankType != ""},
		sql.NullString{String: a.BankAccountNumber, Valid: a.BankAccountNumber != ""},
		toMillis(now), toMillis(now))
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts
		WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateAccount persists the user-editable fields. Balance is not touched.
func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts
		SET name = ?, kind = ?, is_default = ?, bank_type = ?, bank_account_number = ?, updated_at = ?
		WHERE id = ?`,
		a.Name, string(a.Kind), boolInt(a.IsDefault),
		sql.NullString{String: string(a.BankType), Valid: a.BankType != ""},
		sql.NullString{String: a.BankAccountNumber, Valid: a.BankAccountNumber != ""},
		toMillis(time.Now()), a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return expectAffected(res, "account", a.ID)
}

// DeleteAccount removes the account; its transactions go with it.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return expectAffected(res, "account", id)
}

func (r *SQLiteRepository) UnsetDefaultAccounts(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE accounts SET is_default = 0, updated_at = ?
		WHERE user_id = ? AND is_default = 1`, toMillis(time.Now()), userID)
	if err != nil {
		return fmt.Errorf("unset default accounts: %w", err)
	}
	return nil
}

// SetAccountBalance overwrites the cached balance. It reports false when the
// account no longer exists.
func (r *SQLiteRepository) SetAccountBalance(ctx context.Context, id string, balance decimal.Decimal) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET balance_cents = ?, updated_at = ? WHERE id = ?`,
		core.ToCents(balance), toMillis(time.Now()), id)
	if err != nil {
		return false, fmt.Errorf("set account balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func expectAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, core.ErrNotFound)
	}
	return nil
}

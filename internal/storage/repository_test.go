package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"finwatch/internal/core"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "finwatch.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustAccount(t *testing.T, repo *SQLiteRepository, userID string) core.Account {
	t.Helper()
	a, err := repo.CreateAccount(context.Background(), core.Account{UserID: userID, Name: "Main", Kind: core.AccountCurrent})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return a
}

func mustTx(t *testing.T, repo *SQLiteRepository, tx core.Transaction) core.Transaction {
	t.Helper()
	out, err := repo.CreateTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	return out
}

func TestRepository_AccountLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	a := mustAccount(t, repo, "u1")
	got, err := repo.GetAccount(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Name != "Main" || !got.Balance.IsZero() {
		t.Fatalf("unexpected account: %+v", got)
	}

	found, err := repo.SetAccountBalance(ctx, a.ID, decimal.RequireFromString("12.34"))
	if err != nil || !found {
		t.Fatalf("SetAccountBalance = %v, %v", found, err)
	}
	got, _ = repo.GetAccount(ctx, a.ID)
	if !got.Balance.Equal(decimal.RequireFromString("12.34")) {
		t.Fatalf("balance = %s, want 12.34", got.Balance)
	}

	if err := repo.DeleteAccount(ctx, a.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, err := repo.GetAccount(ctx, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetAccount after delete: got %v, want ErrNotFound", err)
	}
	found, err = repo.SetAccountBalance(ctx, a.ID, decimal.Zero)
	if err != nil || found {
		t.Fatalf("SetAccountBalance on deleted account = %v, %v", found, err)
	}
}

func TestRepository_SumCompletedSigned(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a := mustAccount(t, repo, "u1")
	now := time.Now()

	income := mustTx(t, repo, core.Transaction{UserID: "u1", AccountID: a.ID, Type: core.Income,
		Amount: decimal.RequireFromString("100.10"), OccurredAt: now, Status: core.Completed})
	mustTx(t, repo, core.Transaction{UserID: "u1", AccountID: a.ID, Type: core.Expense,
		Amount: decimal.RequireFromString("30.05"), OccurredAt: now, Status: core.Completed})
	mustTx(t, repo, core.Transaction{UserID: "u1", AccountID: a.ID, Type: core.Expense,
		Amount: decimal.RequireFromString("999"), OccurredAt: now, Status: core.Pending})

	tests := []struct {
		name    string
		exclude string
		want    string
	}{
		{"all completed", "", "70.05"},
		{"excluding income", income.ID, "-30.05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.SumCompletedSigned(ctx, a.ID, tt.exclude)
			if err != nil {
				t.Fatalf("SumCompletedSigned: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("sum = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRepository_ExpenseStats(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a := mustAccount(t, repo, "u1")
	now := time.Now()

	mustTx(t, repo, core.Transaction{UserID: "u1", AccountID: a.ID, Type: core.Expense,
		Amount: decimal.NewFromInt(10), OccurredAt: now, Category: "food", Status: core.Completed})
	mustTx(t, repo, core.Transaction{UserID: "u1", AccountID: a.ID, Type: core.Expense,
		Amount: decimal.NewFromInt(20), OccurredAt: now, Category: "Продукты", Status: core.Completed})
	mustTx(t, repo, core.Transaction{UserID: "u1", AccountID: a.ID, Type: core.Expense,
		Amount: decimal.NewFromInt(40), OccurredAt: now.AddDate(0, -2, 0), Category: "food", Status: core.Completed})
	mustTx(t, repo, core.Transaction{UserID: "u1", AccountID: a.ID, Type: core.Expense,
		Amount: decimal.NewFromInt(5), OccurredAt: now, Category: "transport", Status: core.Completed})

	stats, err := repo.ExpenseStats(ctx, core.ExpenseQuery{
		UserID:     "u1",
		Categories: []string{"food", "Продукты"},
		From:       now.AddDate(0, 0, -30),
	})
	if err != nil {
		t.Fatalf("ExpenseStats: %v", err)
	}
	if stats.Count != 2 || !stats.Total.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("stats = %+v, want total 30 count 2", stats)
	}
	if !stats.Average().Equal(decimal.NewFromInt(15)) {
		t.Fatalf("average = %s, want 15", stats.Average())
	}

	all, err := repo.ExpenseStats(ctx, core.ExpenseQuery{UserID: "u1", From: now.AddDate(0, 0, -30)})
	if err != nil {
		t.Fatalf("ExpenseStats: %v", err)
	}
	if all.Count != 3 {
		t.Fatalf("count = %d, want 3", all.Count)
	}

	mustTx(t, repo, core.Transaction{UserID: "u1", AccountID: a.ID, Type: core.Expense,
		Amount: decimal.NewFromInt(100), OccurredAt: now.AddDate(0, 1, 0), Category: "food", Status: core.Completed})
	bounded, err := repo.ExpenseStats(ctx, core.ExpenseQuery{
		UserID: "u1",
		From:   now.AddDate(0, 0, -30),
		To:     now.AddDate(0, 0, 1),
	})
	if err != nil {
		t.Fatalf("ExpenseStats: %v", err)
	}
	if bounded.Count != 3 || !bounded.Total.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("bounded stats = %+v, want total 35 count 3", bounded)
	}
	atEdge, err := repo.ExpenseStats(ctx, core.ExpenseQuery{UserID: "u1", From: now.AddDate(0, 0, -30), To: now})
	if err != nil {
		t.Fatalf("ExpenseStats: %v", err)
	}
	if atEdge.Count != 0 {
		t.Fatalf("upper bound is exclusive: count = %d, want 0", atEdge.Count)
	}
}

func TestRepository_DeleteAccountCascades(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a := mustAccount(t, repo, "u1")
	tx := mustTx(t, repo, core.Transaction{UserID: "u1", AccountID: a.ID, Type: core.Income,
		Amount: decimal.NewFromInt(1), OccurredAt: time.Now(), Status: core.Completed})

	if err := repo.DeleteAccount(ctx, a.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("transaction survived account deletion: %v", err)
	}
}

func TestRepository_ListTransactionsFilters(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a := mustAccount(t, repo, "u1")
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		typ := core.Expense
		if i%2 == 0 {
			typ = core.Income
		}
		mustTx(t, repo, core.Transaction{UserID: "u1", AccountID: a.ID, Type: typ,
			Amount: decimal.NewFromInt(int64(10 * (i + 1))), OccurredAt: base.AddDate(0, 0, i), Status: core.Completed})
	}

	items, total, err := repo.ListTransactions(ctx, core.TransactionFilter{UserID: "u1", Type: core.Income, Limit: 2})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("total=%d len=%d, want 3 and 2", total, len(items))
	}
	if !items[0].OccurredAt.After(items[1].OccurredAt) {
		t.Fatalf("transactions not ordered newest first")
	}

	minAmount := decimal.NewFromInt(25)
	_, total, err = repo.ListTransactions(ctx, core.TransactionFilter{UserID: "u1", MinAmount: &minAmount})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if total != 3 {
		t.Fatalf("total with min amount = %d, want 3", total)
	}
}

func TestRepository_NotificationDedupAndRead(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Now().UTC()

	n, err := repo.CreateNotification(ctx, core.Notification{
		UserID:    "u1",
		Type:      core.BudgetLimitWarning,
		Title:     "Budget limit warning",
		Message:   "85%",
		SubjectID: "b1",
		Metadata:  map[string]any{"budgetId": "b1"},
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}

	has, err := repo.HasUnreadNotificationSince(ctx, "u1", core.BudgetLimitWarning, "b1", now.Add(-24*time.Hour))
	if err != nil || !has {
		t.Fatalf("HasUnreadNotificationSince = %v, %v; want true", has, err)
	}
	has, _ = repo.HasUnreadNotificationSince(ctx, "u1", core.BudgetLimitWarning, "b2", now.Add(-24*time.Hour))
	if has {
		t.Fatal("dedup matched a different subject")
	}

	ok, err := repo.MarkNotificationRead(ctx, n.ID, "someone-else")
	if err != nil || ok {
		t.Fatalf("MarkNotificationRead by other user = %v, %v", ok, err)
	}
	ok, err = repo.MarkNotificationRead(ctx, n.ID, "u1")
	if err != nil || !ok {
		t.Fatalf("MarkNotificationRead = %v, %v", ok, err)
	}
	has, _ = repo.HasUnreadNotificationSince(ctx, "u1", core.BudgetLimitWarning, "b1", now.Add(-24*time.Hour))
	if has {
		t.Fatal("read notification still suppresses new alerts")
	}

	items, total, err := repo.QueryNotifications(ctx, "u1", core.NotificationFilter{}, 10, 0)
	if err != nil {
		t.Fatalf("QueryNotifications: %v", err)
	}
	if total != 1 || items[0].Metadata["budgetId"] != "b1" {
		t.Fatalf("unexpected notifications: %+v", items)
	}

	unread, _ := repo.CountUnreadNotifications(ctx, "u1")
	if unread != 0 {
		t.Fatalf("unread = %d, want 0", unread)
	}
}

func TestRepository_ListActiveUserIDs(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	mustAccount(t, repo, "alice")
	mustAccount(t, repo, "alice")
	if _, err := repo.CreateBudget(ctx, core.Budget{UserID: "bob", Name: "Food", Category: "food",
		Period: core.PeriodMonthly, TargetAmount: decimal.NewFromInt(100)}); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}

	ids, err := repo.ListActiveUserIDs(ctx)
	if err != nil {
		t.Fatalf("ListActiveUserIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "alice" || ids[1] != "bob" {
		t.Fatalf("ids = %v, want [alice bob]", ids)
	}
}

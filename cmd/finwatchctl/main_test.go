package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"finwatch/internal/backend"
	"finwatch/internal/core"
	"finwatch/internal/services"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func testOpener(t *testing.T) (opener, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctl.db")
	return func(dbPath string) (*backend.Engine, error) {
		if dbPath == "" {
			dbPath = path
		}
		return backend.NewFactory(nil).
			WithClock(func() time.Time { return testNow }).
			Create(backend.Config{Role: backend.RoleCLI, SQLiteDBPath: dbPath, Location: time.UTC})
	}, path
}

// seed creates alice's account with 750.00 left after a 250.00 book purchase
// and a 300.00 monthly books budget created before the purchase.
func seed(t *testing.T, open opener) core.Account {
	t.Helper()
	engine, err := open("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer engine.Close()

	ctx := context.Background()
	acc, err := engine.Accounts.Create(ctx, "alice", services.AccountInput{Name: "Main", Kind: core.AccountCurrent})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if _, err := engine.Budgets.Create(ctx, "alice", services.BudgetInput{
		Name: "Reading", Category: "Books", Period: core.PeriodMonthly, TargetAmount: decimal.NewFromInt(300),
	}); err != nil {
		t.Fatalf("create budget: %v", err)
	}
	for _, in := range []services.TransactionInput{
		{AccountID: acc.ID, Type: core.Income, Amount: decimal.NewFromInt(1000), Category: "Salary"},
		{AccountID: acc.ID, Type: core.Expense, Amount: decimal.NewFromInt(250), Category: "Books"},
	} {
		in.Status = core.Completed
		in.OccurredAt = testNow
		if _, err := engine.Transactions.Create(ctx, "alice", in); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}
	return acc
}

func run(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := newRootCmd(open)
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestCategories(t *testing.T) {
	out, err := run(t, func(string) (*backend.Engine, error) {
		t.Fatal("categories opened the database")
		return nil, nil
	}, "categories")
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if !strings.Contains(out, "BOOKS") || !strings.Contains(out, "Books") {
		t.Errorf("output = %s", out)
	}
}

func TestRecomputeBalance(t *testing.T) {
	open, path := testOpener(t)
	acc := seed(t, open)

	engine, err := open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Store.SetAccountBalance(context.Background(), acc.ID, decimal.NewFromInt(5)); err != nil {
		t.Fatalf("corrupt balance: %v", err)
	}
	engine.Close()

	out, err := run(t, open, "recompute", "balance", acc.ID)
	if err != nil {
		t.Fatalf("recompute balance: %v", err)
	}
	if !strings.Contains(out, "750.00") {
		t.Errorf("output = %s, want 750.00", out)
	}

	if _, err := run(t, open, "recompute", "balance", "missing"); err == nil {
		t.Error("recompute of a missing account succeeded")
	}
}

func TestSweepThenNotifications(t *testing.T) {
	open, _ := testOpener(t)
	seed(t, open)

	out, err := run(t, open, "sweep", "alice")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if !strings.Contains(out, "users: 1") || !strings.Contains(out, "budgets recomputed: 1") {
		t.Errorf("sweep output = %s", out)
	}

	out, err = run(t, open, "notifications", "alice", "--type", "budget_limit_warning", "--unread")
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if !strings.Contains(out, "Approaching budget limit: Reading") {
		t.Errorf("notifications output = %s", out)
	}

	out, err = run(t, open, "recompute", "budgets", "alice")
	if err != nil {
		t.Fatalf("recompute budgets: %v", err)
	}
	if !strings.Contains(out, "250.00") || !strings.Contains(out, "83.3%") {
		t.Errorf("budgets output = %s", out)
	}

	out, err = run(t, open, "notifications", "alice", "--mark-read")
	if err != nil || !strings.Contains(out, "marked") {
		t.Fatalf("mark read = %q, %v", out, err)
	}

	out, err = run(t, open, "summary", "alice")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	for _, want := range []string{"total balance: 750.00", "unread alerts: 0", "Reading"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary output missing %q:\n%s", want, out)
		}
	}
}

func TestNotifications_RejectsUnknownType(t *testing.T) {
	open, _ := testOpener(t)
	if _, err := run(t, open, "notifications", "alice", "--type", "weather"); err == nil {
		t.Fatal("unknown type accepted")
	}
}

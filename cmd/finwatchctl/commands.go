package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"finwatch/internal/category"
	"finwatch/internal/cli"
	"finwatch/internal/core"
	"finwatch/internal/services"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func (a *app) sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep [user...]",
		Short: "Recompute budgets and run the periodic checks",
		Long:  "Recompute every budget, run the budget limit and cash cushion checks and raise recurring reminders for the given users, or for every active user when none is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				report sweepReport
				err    error
			)
			if len(args) == 0 {
				report.SweepReport, err = a.engine.Monitor.SweepActiveUsers(ctx)
				if err != nil {
					return err
				}
			} else {
				report.SweepReport = a.engine.Monitor.RunPeriodicSweep(ctx, args)
			}
			report.print(cmd.OutOrStdout())
			if n := len(report.FailedUsers); n > 0 {
				return fmt.Errorf("sweep failed for %d user(s): %s", n, strings.Join(report.FailedUsers, ", "))
			}
			return nil
		},
	}
}

func (a *app) recomputeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild derived amounts from transactions",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "balance <account-id>",
			Short: "Rebuild an account balance from its completed transactions",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				acc, err := a.engine.Accounts.RecomputeBalance(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", acc.ID, acc.Name, core.FormatAmount(acc.Balance))
				return nil
			},
		},
		&cobra.Command{
			Use:   "budgets <user-id>",
			Short: "Recompute the current amount of every budget of a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				budgets, err := a.engine.Monitor.Tracker().RecomputeAllForUser(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printBudgets(cmd.OutOrStdout(), budgets)
				return nil
			},
		},
	)
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <user-id>",
		Short: "Run the budget limit and cash cushion checks for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := a.engine.Monitor.Detector().CheckAllConditions(cmd.Context(), args[0])
			out := cmd.OutOrStdout()
			if len(created) == 0 {
				fmt.Fprintln(out, "no new alerts")
				return err
			}
			t := cli.Table{Headers: []string{"TYPE", "TITLE"}}
			for _, n := range created {
				t.Rows = append(t.Rows, []string{string(n.Type), n.Title})
			}
			fmt.Fprint(out, cli.NewRenderer(out).Table(t))
			return err
		},
	}
}

func (a *app) notificationsCmd() *cobra.Command {
	var (
		unread   bool
		typ      string
		page     int
		pageSize int
		markRead bool
	)
	cmd := &cobra.Command{
		Use:   "notifications <user-id>",
		Short: "List a user's alerts, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store := a.engine.Monitor.Notifications()
			out := cmd.OutOrStdout()

			if markRead {
				n, err := store.MarkAllRead(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "marked %d notification(s) read\n", n)
				return nil
			}

			var f core.NotificationFilter
			if typ != "" {
				t := core.NotificationType(strings.ToUpper(typ))
				if !t.Valid() {
					return fmt.Errorf("%w: unknown notification type %q", core.ErrValidation, typ)
				}
				f.Type = &t
			}
			if unread {
				isRead := false
				f.IsRead = &isRead
			}

			result, err := store.Query(ctx, args[0], f, page, pageSize)
			if err != nil {
				return err
			}
			t := cli.Table{Headers: []string{"CREATED", "TYPE", "READ", "TITLE", "ID"}}
			for _, n := range result.Items {
				read := "no"
				if n.IsRead {
					read = "yes"
				}
				t.Rows = append(t.Rows, []string{
					n.CreatedAt.Format(time.DateTime), string(n.Type), read, n.Title, n.ID,
				})
			}
			fmt.Fprint(out, cli.NewRenderer(out).Table(t))
			fmt.Fprintf(out, "page %d, %d of %d\n", result.Page, len(result.Items), result.Total)
			return nil
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "Only unread notifications")
	cmd.Flags().StringVar(&typ, "type", "", "Only notifications of this type")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "Notifications per page")
	cmd.Flags().BoolVar(&markRead, "mark-read", false, "Mark every notification read instead of listing")
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <user-id>",
		Short: "Show balances, budget consumption and unread alerts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.engine.Monitor.Summary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			r := cli.NewRenderer(out)
			fmt.Fprintln(out, r.Title("Summary for "+args[0]))

			accounts := cli.Table{
				Headers: []string{"ACCOUNT", "KIND", "BALANCE", "DEFAULT"},
				Align:   []lipgloss.Position{lipgloss.Left, lipgloss.Left, lipgloss.Right},
			}
			for _, acc := range s.Accounts {
				def := ""
				if acc.IsDefault {
					def = "*"
				}
				accounts.Rows = append(accounts.Rows, []string{acc.Name, string(acc.Kind), core.FormatAmount(acc.Balance), def})
			}
			fmt.Fprint(out, r.Table(accounts))
			fmt.Fprintf(out, "total balance: %s\n\n", core.FormatAmount(s.TotalBalance))

			budgets := cli.Table{
				Headers: []string{"BUDGET", "CATEGORY", "SPENT", "TARGET", "USED", "SINCE"},
				Align:   budgetAlign,
			}
			for _, b := range s.Budgets {
				budgets.Rows = append(budgets.Rows, []string{
					b.Budget.Name, b.Budget.Category,
					core.FormatAmount(b.Budget.CurrentAmount), core.FormatAmount(b.Budget.TargetAmount),
					b.Percentage.StringFixed(1) + "%", b.PeriodStart.Format(time.DateOnly),
				})
			}
			if len(budgets.Rows) > 0 {
				fmt.Fprint(out, r.Table(budgets))
			}

			line := fmt.Sprintf("unread alerts: %d", s.UnreadAlerts)
			if s.UnreadAlerts > 0 {
				line = r.Warn(line)
			}
			fmt.Fprintln(out, line)
			return nil
		},
	}
}

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List category codes and the labels resolving to them",
		Args:  cobra.NoArgs,
		// Needs no database.
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			t := cli.Table{Headers: []string{"CODE", "LABELS"}}
			for _, code := range category.Codes() {
				t.Rows = append(t.Rows, []string{code, strings.Join(category.Variants(code)[1:], ", ")})
			}
			fmt.Fprint(out, cli.NewRenderer(out).Table(t))
			return nil
		},
	}
}

type sweepReport struct {
	services.SweepReport
}

func (r sweepReport) print(out io.Writer) {
	fmt.Fprintf(out, "users: %d\nbudgets recomputed: %d\nalerts: %d\nreminders: %d\nduration: %s\n",
		r.Users, r.BudgetsRecomputed, r.Alerts, r.Reminders, r.Duration.Round(time.Millisecond))
}

// SPENT, TARGET and USED are right-aligned.
var budgetAlign = []lipgloss.Position{lipgloss.Left, lipgloss.Left, lipgloss.Right, lipgloss.Right, lipgloss.Right}

func printBudgets(out io.Writer, budgets []core.Budget) {
	t := cli.Table{
		Headers: []string{"BUDGET", "CATEGORY", "SPENT", "TARGET", "USED"},
		Align:   budgetAlign,
	}
	for _, b := range budgets {
		t.Rows = append(t.Rows, []string{
			b.Name, b.Category, core.FormatAmount(b.CurrentAmount), core.FormatAmount(b.TargetAmount),
			core.UsagePercent(b.CurrentAmount, b.TargetAmount).StringFixed(1) + "%",
		})
	}
	fmt.Fprint(out, cli.NewRenderer(out).Table(t))
}

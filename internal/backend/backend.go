// Package backend assembles the monitoring engine from configuration: the
// SQLite store, the optional AMQP client and the services on top of them.
package backend

import (
	"errors"

	"finwatch/internal/amqp"
	"finwatch/internal/services"
	"finwatch/internal/storage"
)

// Role selects how a process uses the broker.
type Role string

const (
	// RoleAPI publishes completed expenses for asynchronous checks and
	// fans alerts out.
	RoleAPI Role = "api"
	// RoleWorker consumes transaction events and fans alerts out. Its own
	// writes are checked inline.
	RoleWorker Role = "worker"
	// RoleCLI never touches the broker.
	RoleCLI Role = "cli"
)

// String implements fmt.Stringer
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleAPI, RoleWorker, RoleCLI:
		return true
	default:
		return false
	}
}

// Engine is a wired monitoring engine.
type Engine struct {
	Store        *storage.SQLiteRepository
	AMQP         *amqp.Client // nil when the broker is disabled
	Monitor      *services.Monitor
	Accounts     *services.AccountService
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
}

// Close releases the broker connection and the database.
func (e *Engine) Close() error {
	var errs []error
	if e.AMQP != nil {
		errs = append(errs, e.AMQP.Close())
	}
	if e.Store != nil {
		errs = append(errs, e.Store.Close())
	}
	return errors.Join(errs...)
}

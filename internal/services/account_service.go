package services

import (
	"context"
	"fmt"
	"strings"

	"finwatch/internal/core"
)

// AccountInput carries the user-editable account fields.
type AccountInput struct {
	Name              string
	Kind              core.AccountKind
	IsDefault         bool
	BankType          core.BankType
	BankAccountNumber string
}

type AccountPatch struct {
	Name              *string
	Kind              *core.AccountKind
	IsDefault         *bool
	BankType          *core.BankType
	BankAccountNumber *string
}

// AccountService manages accounts. Balances are owned by the ledger and are
// never set from user input.
type AccountService struct {
	store   Store
	monitor *Monitor
}

func NewAccountService(store Store, monitor *Monitor) *AccountService {
	return &AccountService{store: store, monitor: monitor}
}

func (s *AccountService) Create(ctx context.Context, userID string, in AccountInput) (core.Account, error) {
	a := core.Account{
		UserID:            userID,
		Name:              strings.TrimSpace(in.Name),
		Kind:              in.Kind,
		IsDefault:         in.IsDefault,
		BankType:          in.BankType,
		BankAccountNumber: strings.TrimSpace(in.BankAccountNumber),
	}
	if a.Kind == "" {
		a.Kind = core.AccountCurrent
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	if a.IsDefault {
		if err := s.store.UnsetDefaultAccounts(ctx, userID); err != nil {
			return core.Account{}, err
		}
	}
	created, err := s.store.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return created, nil
}

func (s *AccountService) Get(ctx context.Context, userID, id string) (core.Account, error) {
	a, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, err
	}
	if a.UserID != userID {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	return a, nil
}

func (s *AccountService) List(ctx context.Context, userID string) ([]core.Account, error) {
	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []core.Account{}
	}
	return accounts, nil
}

func (s *AccountService) Update(ctx context.Context, userID, id string, p AccountPatch) (core.Account, error) {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return core.Account{}, err
	}
	if p.Name != nil {
		a.Name = strings.TrimSpace(*p.Name)
	}
	if p.Kind != nil {
		a.Kind = *p.Kind
	}
	if p.BankType != nil {
		a.BankType = *p.BankType
	}
	if p.BankAccountNumber != nil {
		a.BankAccountNumber = strings.TrimSpace(*p.BankAccountNumber)
	}
	becomesDefault := p.IsDefault != nil && *p.IsDefault && !a.IsDefault
	if p.IsDefault != nil {
		a.IsDefault = *p.IsDefault
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	if becomesDefault {
		if err := s.store.UnsetDefaultAccounts(ctx, userID); err != nil {
			return core.Account{}, err
		}
	}
	if err := s.store.UpdateAccount(ctx, a); err != nil {
		return core.Account{}, err
	}
	return s.store.GetAccount(ctx, id)
}

// SetDefault makes the account the user's only default account.
func (s *AccountService) SetDefault(ctx context.Context, userID, id string) (core.Account, error) {
	isDefault := true
	return s.Update(ctx, userID, id, AccountPatch{IsDefault: &isDefault})
}

// Delete removes the account together with its transactions.
func (s *AccountService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	unlock := s.monitor.Ledger().Lock(id)
	defer unlock()
	return s.store.DeleteAccount(ctx, id)
}

// RecomputeBalance forces a full recomputation of one account's balance.
func (s *AccountService) RecomputeBalance(ctx context.Context, id string) (core.Account, error) {
	unlock := s.monitor.Ledger().Lock(id)
	if _, err := s.monitor.Ledger().RecomputeBalance(ctx, id); err != nil {
		unlock()
		return core.Account{}, err
	}
	unlock()
	return s.store.GetAccount(ctx, id)
}

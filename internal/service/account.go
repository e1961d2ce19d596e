package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"arena-bot/internal/model"
	"arena-bot/internal/store"
)

// AccountService handles wallet balances and the ledger.
type AccountService struct {
	store *store.Store
	now   func() time.Time
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(st *store.Store) *AccountService {
	return &AccountService{
		store: st,
		now:   time.Now,
	}
}

// Credit raises a user's balance with an entry of a credit kind.
func (s *AccountService) Credit(ctx context.Context, userID string, amount decimal.Decimal, kind model.TxKind) (model.Transaction, error) {
	return s.apply(ctx, userID, amount, kind, credit)
}

// Debit lowers a user's balance with an entry of a debit kind.
func (s *AccountService) Debit(ctx context.Context, userID string, amount decimal.Decimal, kind model.TxKind) (model.Transaction, error) {
	return s.apply(ctx, userID, amount, kind, debit)
}

type postFunc func(*store.State, *model.User, decimal.Decimal, entry, time.Time) (model.Transaction, error)

func (s *AccountService) apply(ctx context.Context, userID string, amount decimal.Decimal, kind model.TxKind, fn postFunc) (model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return model.Transaction{}, err
	}

	var tx model.Transaction
	err := s.store.Update(func(st *store.State) error {
		u, ok := st.User(userID)
		if !ok {
			return fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		var err error
		tx, err = fn(st, u, amount, entry{kind: kind}, s.now())
		return err
	})
	if err != nil {
		return model.Transaction{}, err
	}
	return tx, nil
}

// Deposit records a user recharge.
func (s *AccountService) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return model.Transaction{}, err
	}

	var tx model.Transaction
	err := s.store.Update(func(st *store.State) error {
		u, err := requireUser(st, userID)
		if err != nil {
			return err
		}
		tx, err = credit(st, u, amount, entry{kind: model.TxDeposit}, s.now())
		return err
	})
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Str("amount", amount.String()).Msg("Deposit rejected")
		return model.Transaction{}, err
	}

	log.Info().Str("operation", "deposit").Str("user_id", userID).Str("amount", amount.String()).Msg("Wallet credited")
	return tx, nil
}

// AdjustBalance lets the owner add to (add=true) or remove from a user's balance.
// Removal cannot exceed the balance. The owner's own funds are never involved.
func (s *AccountService) AdjustBalance(ctx context.Context, actorID, userID string, amount decimal.Decimal, add bool) (model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return model.Transaction{}, err
	}

	var tx model.Transaction
	err := s.store.Update(func(st *store.State) error {
		if _, err := requireOwner(st, actorID); err != nil {
			return err
		}
		u, ok := st.User(userID)
		if !ok {
			return fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		var err error
		if add {
			tx, err = credit(st, u, amount, entry{kind: model.TxManualCredit, actorID: actorID}, s.now())
		} else {
			tx, err = debit(st, u, amount, entry{kind: model.TxManualDebit, actorID: actorID}, s.now())
		}
		return err
	})
	if err != nil {
		return model.Transaction{}, err
	}

	log.Info().
		Str("actor_id", actorID).
		Str("user_id", userID).
		Str("kind", string(tx.Kind)).
		Str("amount", amount.String()).
		Msg("Admin operation executed")
	return tx, nil
}

// Balance returns a user's current balance.
func (s *AccountService) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	var (
		balance decimal.Decimal
		found   bool
	)
	s.store.View(func(st *store.State) {
		if u, ok := st.User(userID); ok {
			balance, found = u.Balance, true
		}
	})
	if !found {
		return decimal.Zero, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return balance, nil
}

// Transactions returns the user's ledger entries, oldest first.
func (s *AccountService) Transactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var txs []model.Transaction
	s.store.View(func(st *store.State) {
		txs = st.Ledger().ForUser(userID)
	})
	return txs, nil
}

// HistoryItem is one row of a user's wallet history. Withdrawal is set when the
// entry reserved funds for a withdrawal request.
type HistoryItem struct {
	Transaction model.Transaction
	Withdrawal  *model.WithdrawalRequest
}

// History returns the user's ledger entries newest first, each joined with its
// withdrawal request where there is one.
func (s *AccountService) History(ctx context.Context, userID string, limit int) ([]HistoryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []HistoryItem
	s.store.View(func(st *store.State) {
		txs := st.Ledger().ForUser(userID)
		items = make([]HistoryItem, 0, len(txs))
		for i := len(txs) - 1; i >= 0; i-- {
			item := HistoryItem{Transaction: txs[i]}
			if id := txs[i].WithdrawalID; id != "" {
				if w, ok := st.Withdrawal(id); ok {
					item.Withdrawal = w.Clone()
				}
			}
			items = append(items, item)
		}
	})

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Transaction.CreatedAt.After(items[j].Transaction.CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Reconciliation compares a balance against the replayed ledger.
type Reconciliation struct {
	Opening  decimal.Decimal
	Net      decimal.Decimal
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

// Balanced reports whether the balance equals opening balance plus ledger net.
func (r Reconciliation) Balanced() bool {
	return r.Expected.Equal(r.Actual)
}

// Reconcile replays the user's ledger on top of the opening balance.
func (s *AccountService) Reconcile(ctx context.Context, userID string) (Reconciliation, error) {
	if err := ctx.Err(); err != nil {
		return Reconciliation{}, err
	}

	var (
		r     Reconciliation
		found bool
	)
	s.store.View(func(st *store.State) {
		u, ok := st.User(userID)
		if !ok {
			return
		}
		found = true
		r.Opening = u.OpeningBalance
		r.Net = st.Ledger().Net(userID)
		r.Expected = r.Opening.Add(r.Net)
		r.Actual = u.Balance
	})
	if !found {
		return Reconciliation{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return r, nil
}

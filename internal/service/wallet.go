package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"arena-bot/internal/model"
	"arena-bot/internal/store"
)

// newID returns a fresh identifier with a readable prefix, e.g. "txn-<uuid>".
func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// entry describes the ledger entry a wallet mutation records.
type entry struct {
	kind         model.TxKind
	refund       bool
	matchID      string
	withdrawalID string
	actorID      string
}

// post applies a balance change and appends its ledger entry. It must run inside
// store.Update: on error nothing has been changed, and the caller's error discards
// anything else the update did.
func post(st *store.State, u *model.User, amount decimal.Decimal, e entry, at time.Time) (model.Transaction, error) {
	if !amount.IsPositive() {
		return model.Transaction{}, ErrInvalidAmount
	}
	if !e.kind.Valid() {
		return model.Transaction{}, ErrInvalidKind
	}
	if !e.kind.IsCredit() && amount.GreaterThan(u.Balance) {
		return model.Transaction{}, ErrInsufficientFunds
	}

	tx := model.Transaction{
		ID:           newID("txn"),
		UserID:       u.ID,
		Amount:       amount,
		Kind:         e.kind,
		Refund:       e.refund,
		MatchID:      e.matchID,
		WithdrawalID: e.withdrawalID,
		ActorID:      e.actorID,
		Status:       model.TxSuccess,
		CreatedAt:    at,
	}
	u.Balance = u.Balance.Add(tx.Signed())
	st.Ledger().Append(tx)
	return tx, nil
}

// credit raises the balance with a credit-kind entry.
func credit(st *store.State, u *model.User, amount decimal.Decimal, e entry, at time.Time) (model.Transaction, error) {
	if !e.kind.IsCredit() {
		return model.Transaction{}, ErrInvalidKind
	}
	return post(st, u, amount, e, at)
}

// debit lowers the balance with a debit-kind entry; it never goes below zero.
func debit(st *store.State, u *model.User, amount decimal.Decimal, e entry, at time.Time) (model.Transaction, error) {
	if e.kind.IsCredit() {
		return model.Transaction{}, ErrInvalidKind
	}
	return post(st, u, amount, e, at)
}

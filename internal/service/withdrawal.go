package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"arena-bot/internal/model"
	"arena-bot/internal/store"
)

// WithdrawalService handles the withdrawal pipeline.
// Funds are reserved when a request is submitted; resolving it never touches the balance.
type WithdrawalService struct {
	store    *store.Store
	validate *validator.Validate
	now      func() time.Time
}

// NewWithdrawalService creates a new WithdrawalService instance.
func NewWithdrawalService(st *store.Store) *WithdrawalService {
	return &WithdrawalService{
		store:    st,
		validate: newValidator(),
		now:      time.Now,
	}
}

func (s *WithdrawalService) completeDetails(details model.PayoutDetails) bool {
	switch d := details.(type) {
	case model.UPIDetails:
		return s.validate.Struct(d) == nil
	case model.BankDetails:
		return s.validate.Struct(d) == nil
	default:
		return false
	}
}

// Request reserves amount from the user's balance and files a Pending request.
func (s *WithdrawalService) Request(ctx context.Context, userID string, amount decimal.Decimal, details model.PayoutDetails) (*model.WithdrawalRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !s.completeDetails(details) {
		return nil, ErrIncompleteDetails
	}

	var req *model.WithdrawalRequest
	err := s.store.Update(func(st *store.State) error {
		u, err := requireUser(st, userID)
		if err != nil {
			return err
		}
		now := s.now()
		w := &model.WithdrawalRequest{
			ID:        newID("wr"),
			UserID:    u.ID,
			Amount:    amount,
			Method:    details.Method(),
			Details:   details,
			Status:    model.WithdrawalPending,
			CreatedAt: now,
		}
		if _, err := debit(st, u, amount, entry{kind: model.TxManualDebit, withdrawalID: w.ID}, now); err != nil {
			return err
		}
		st.PutWithdrawal(w)
		req = w.Clone()
		return nil
	})
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Str("amount", amount.String()).Msg("Withdrawal rejected")
		return nil, err
	}

	log.Info().
		Str("operation", "withdraw").
		Str("user_id", userID).
		Str("withdrawal_id", req.ID).
		Str("method", string(req.Method)).
		Str("amount", amount.String()).
		Msg("Withdrawal requested")
	return req, nil
}

// Resolve approves or rejects a Pending request with an optional remark
// (a payment reference on approval, a reason on rejection).
func (s *WithdrawalService) Resolve(ctx context.Context, actorID, withdrawalID string, approve bool, remark string) (*model.WithdrawalRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var resolved *model.WithdrawalRequest
	err := s.store.Update(func(st *store.State) error {
		if _, err := requireOperator(st, actorID); err != nil {
			return err
		}
		w, ok := st.Withdrawal(withdrawalID)
		if !ok {
			return fmt.Errorf("withdrawal %s: %w", withdrawalID, ErrNotFound)
		}
		if w.Status != model.WithdrawalPending {
			return ErrAlreadyResolved
		}

		now := s.now()
		w.Status = model.WithdrawalRejected
		if approve {
			w.Status = model.WithdrawalApproved
		}
		w.Remark = remark
		w.ResolvedBy = actorID
		w.ResolvedAt = &now
		resolved = w.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("actor_id", actorID).
		Str("withdrawal_id", withdrawalID).
		Str("status", string(resolved.Status)).
		Msg("Admin operation executed")
	return resolved, nil
}

// Pending lists unresolved requests, oldest first, for an operator.
func (s *WithdrawalService) Pending(ctx context.Context, actorID string) ([]*model.WithdrawalRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		pending []*model.WithdrawalRequest
		err     error
	)
	s.store.View(func(st *store.State) {
		if _, err = requireOperator(st, actorID); err != nil {
			return
		}
		for _, w := range st.Withdrawals() {
			if w.Status == model.WithdrawalPending {
				pending = append(pending, w.Clone())
			}
		}
	})
	return pending, err
}

// ForUser lists the user's requests, newest first.
func (s *WithdrawalService) ForUser(ctx context.Context, userID string) ([]*model.WithdrawalRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*model.WithdrawalRequest
	s.store.View(func(st *store.State) {
		for _, w := range st.Withdrawals() {
			if w.UserID == userID {
				out = append(out, w.Clone())
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

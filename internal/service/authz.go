package service

import (
	"fmt"

	"arena-bot/internal/model"
	"arena-bot/internal/store"
)

// requireUser resolves id to an active (unbanned) user.
func requireUser(st *store.State, id string) (*model.User, error) {
	acc, ok := st.Account(id)
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	switch a := acc.(type) {
	case *model.User:
		if a.Banned {
			return nil, ErrAccountBanned
		}
		return a, nil
	case *model.Admin, *model.Owner:
		return nil, ErrForbidden
	default:
		panic(fmt.Sprintf("unexpected account type %T", acc))
	}
}

// requireAdmin resolves id to an admin.
func requireAdmin(st *store.State, id string) (*model.Admin, error) {
	acc, ok := st.Account(id)
	if !ok {
		return nil, ErrForbidden
	}
	switch a := acc.(type) {
	case *model.Admin:
		return a, nil
	case *model.User, *model.Owner:
		return nil, ErrForbidden
	default:
		panic(fmt.Sprintf("unexpected account type %T", acc))
	}
}

// requireOwner resolves id to the owner.
func requireOwner(st *store.State, id string) (*model.Owner, error) {
	acc, ok := st.Account(id)
	if !ok {
		return nil, ErrForbidden
	}
	switch a := acc.(type) {
	case *model.Owner:
		return a, nil
	case *model.User, *model.Admin:
		return nil, ErrForbidden
	default:
		panic(fmt.Sprintf("unexpected account type %T", acc))
	}
}

// requireOperator resolves id to an admin or the owner.
func requireOperator(st *store.State, id string) (model.Account, error) {
	acc, ok := st.Account(id)
	if !ok {
		return nil, ErrForbidden
	}
	switch acc.(type) {
	case *model.Admin, *model.Owner:
		return acc, nil
	case *model.User:
		return nil, ErrForbidden
	default:
		panic(fmt.Sprintf("unexpected account type %T", acc))
	}
}

// canManage reports whether acc may run operator commands on m:
// the owner manages every match, an admin only the ones they created.
func canManage(acc model.Account, m *model.Match) bool {
	switch a := acc.(type) {
	case *model.Owner:
		return true
	case *model.Admin:
		return m.CreatedBy == a.ID
	case *model.User:
		return false
	default:
		panic(fmt.Sprintf("unexpected account type %T", acc))
	}
}

// requireManager resolves id to an operator allowed to manage the match.
func requireManager(st *store.State, id string, m *model.Match) (model.Account, error) {
	acc, err := requireOperator(st, id)
	if err != nil {
		return nil, err
	}
	if !canManage(acc, m) {
		return nil, ErrForbidden
	}
	return acc, nil
}

package store

import (
	"arena-bot/internal/model"
)

// State is the consolidated application state: directory, wallets, rosters,
// withdrawals and the ledger. Pointers handed out by a State belong to it;
// mutate them only inside Store.Update.
type State struct {
	owner *model.Owner

	users     map[string]*model.User
	userOrder []string

	admins     map[string]*model.Admin
	adminOrder []string

	matches    map[string]*model.Match
	matchOrder []string

	withdrawals     map[string]*model.WithdrawalRequest
	withdrawalOrder []string

	ledger *Ledger
}

// NewState creates an empty state.
func NewState() *State {
	return &State{
		users:       make(map[string]*model.User),
		admins:      make(map[string]*model.Admin),
		matches:     make(map[string]*model.Match),
		withdrawals: make(map[string]*model.WithdrawalRequest),
		ledger:      NewLedger(),
	}
}

// Owner returns the owner account, or nil if none is configured.
func (s *State) Owner() *model.Owner {
	return s.owner
}

// SetOwner installs the owner account.
func (s *State) SetOwner(o *model.Owner) {
	s.owner = o
}

// User returns the user with the given id.
func (s *State) User(id string) (*model.User, bool) {
	u, ok := s.users[id]
	return u, ok
}

// Users returns all users in registration order.
func (s *State) Users() []*model.User {
	out := make([]*model.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		out = append(out, s.users[id])
	}
	return out
}

// PutUser inserts or replaces a user.
func (s *State) PutUser(u *model.User) {
	if _, ok := s.users[u.ID]; !ok {
		s.userOrder = append(s.userOrder, u.ID)
	}
	s.users[u.ID] = u
}

// Admin returns the admin with the given id.
func (s *State) Admin(id string) (*model.Admin, bool) {
	a, ok := s.admins[id]
	return a, ok
}

// Admins returns all admins in creation order.
func (s *State) Admins() []*model.Admin {
	out := make([]*model.Admin, 0, len(s.adminOrder))
	for _, id := range s.adminOrder {
		out = append(out, s.admins[id])
	}
	return out
}

// PutAdmin inserts or replaces an admin.
func (s *State) PutAdmin(a *model.Admin) {
	if _, ok := s.admins[a.ID]; !ok {
		s.adminOrder = append(s.adminOrder, a.ID)
	}
	s.admins[a.ID] = a
}

// RemoveAdmin deletes an admin and reports whether it existed.
func (s *State) RemoveAdmin(id string) bool {
	if _, ok := s.admins[id]; !ok {
		return false
	}
	delete(s.admins, id)
	s.adminOrder = removeID(s.adminOrder, id)
	return true
}

// Match returns the match with the given id.
func (s *State) Match(id string) (*model.Match, bool) {
	m, ok := s.matches[id]
	return m, ok
}

// Matches returns all matches in creation order.
func (s *State) Matches() []*model.Match {
	out := make([]*model.Match, 0, len(s.matchOrder))
	for _, id := range s.matchOrder {
		out = append(out, s.matches[id])
	}
	return out
}

// PutMatch inserts or replaces a match.
func (s *State) PutMatch(m *model.Match) {
	if _, ok := s.matches[m.ID]; !ok {
		s.matchOrder = append(s.matchOrder, m.ID)
	}
	s.matches[m.ID] = m
}

// Withdrawal returns the withdrawal request with the given id.
func (s *State) Withdrawal(id string) (*model.WithdrawalRequest, bool) {
	w, ok := s.withdrawals[id]
	return w, ok
}

// Withdrawals returns all withdrawal requests in submission order.
func (s *State) Withdrawals() []*model.WithdrawalRequest {
	out := make([]*model.WithdrawalRequest, 0, len(s.withdrawalOrder))
	for _, id := range s.withdrawalOrder {
		out = append(out, s.withdrawals[id])
	}
	return out
}

// PutWithdrawal inserts or replaces a withdrawal request.
func (s *State) PutWithdrawal(w *model.WithdrawalRequest) {
	if _, ok := s.withdrawals[w.ID]; !ok {
		s.withdrawalOrder = append(s.withdrawalOrder, w.ID)
	}
	s.withdrawals[w.ID] = w
}

// Ledger returns the transaction ledger.
func (s *State) Ledger() *Ledger {
	return s.ledger
}

// FindAccount looks a username up across the three identity spaces,
// checking the owner first, then admins, then users.
func (s *State) FindAccount(username string) (model.Account, bool) {
	if s.owner != nil && s.owner.Username == username {
		return s.owner, true
	}
	for _, id := range s.adminOrder {
		if a := s.admins[id]; a.Username == username {
			return a, true
		}
	}
	for _, id := range s.userOrder {
		if u := s.users[id]; u.Username == username {
			return u, true
		}
	}
	return nil, false
}

// Account resolves an id in any identity space.
func (s *State) Account(id string) (model.Account, bool) {
	if s.owner != nil && s.owner.ID == id {
		return s.owner, true
	}
	if a, ok := s.admins[id]; ok {
		return a, true
	}
	if u, ok := s.users[id]; ok {
		return u, true
	}
	return nil, false
}

// Clone returns a deep copy that shares nothing mutable with s.
func (s *State) Clone() *State {
	c := &State{
		users:           make(map[string]*model.User, len(s.users)),
		userOrder:       append([]string(nil), s.userOrder...),
		admins:          make(map[string]*model.Admin, len(s.admins)),
		adminOrder:      append([]string(nil), s.adminOrder...),
		matches:         make(map[string]*model.Match, len(s.matches)),
		matchOrder:      append([]string(nil), s.matchOrder...),
		withdrawals:     make(map[string]*model.WithdrawalRequest, len(s.withdrawals)),
		withdrawalOrder: append([]string(nil), s.withdrawalOrder...),
		ledger:          s.ledger.clone(),
	}
	if s.owner != nil {
		o := *s.owner
		c.owner = &o
	}
	for id, u := range s.users {
		c.users[id] = u.Clone()
	}
	for id, a := range s.admins {
		c.admins[id] = a.Clone()
	}
	for id, m := range s.matches {
		c.matches[id] = m.Clone()
	}
	for id, w := range s.withdrawals {
		c.withdrawals[id] = w.Clone()
	}
	return c
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

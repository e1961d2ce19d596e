// Package model defines the data models for the tournament arena.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role identifies which identity space an account belongs to.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
	RoleOwner Role = "Owner"
)

// LoginResult is the differentiated outcome of an authentication attempt.
type LoginResult string

const (
	LoginSuccess  LoginResult = "success"
	LoginBanned   LoginResult = "banned"
	LoginNotFound LoginResult = "not_found"
)

// Credentials are compared in plaintext; hardening them is outside this module.
type Credentials struct {
	Username string `db:"username"`
	Password string `db:"password"`
}

// Matches reports whether the given pair equals the stored credentials.
func (c Credentials) Matches(username, password string) bool {
	return c.Username == username && c.Password == password
}

// Account is implemented by exactly three variants: *User, *Admin and *Owner.
// Capability checks switch over the concrete type.
type Account interface {
	AccountID() string
	AccountName() string
	AccountRole() Role
	Authenticate(username, password string) bool

	account()
}

// User is a player account that owns a wallet and joins matches.
type User struct {
	ID string `db:"id"`
	Credentials
	Email          string          `db:"email"`
	Balance        decimal.Decimal `db:"balance"`
	OpeningBalance decimal.Decimal `db:"opening_balance"`
	JoinedMatchIDs []string        `db:"joined_match_ids"`
	Banned         bool            `db:"banned"`
	CreatedAt      time.Time       `db:"created_at"`
}

func (u *User) AccountID() string   { return u.ID }
func (u *User) AccountName() string { return u.Username }
func (u *User) AccountRole() Role   { return RoleUser }
func (u *User) Authenticate(username, password string) bool {
	return u.Credentials.Matches(username, password)
}
func (*User) account() {}

// HasJoined reports whether matchID is in the user's joined set.
func (u *User) HasJoined(matchID string) bool {
	for _, id := range u.JoinedMatchIDs {
		if id == matchID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	c := *u
	c.JoinedMatchIDs = append([]string(nil), u.JoinedMatchIDs...)
	return &c
}

// Admin is an operator who creates and manages their own matches.
type Admin struct {
	ID string `db:"id"`
	Credentials
	CreatedMatchIDs []string  `db:"created_match_ids"`
	CreatedAt       time.Time `db:"created_at"`
}

func (a *Admin) AccountID() string   { return a.ID }
func (a *Admin) AccountName() string { return a.Username }
func (a *Admin) AccountRole() Role   { return RoleAdmin }
func (a *Admin) Authenticate(username, password string) bool {
	return a.Credentials.Matches(username, password)
}
func (*Admin) account() {}

// Clone returns a deep copy of the admin.
func (a *Admin) Clone() *Admin {
	c := *a
	c.CreatedMatchIDs = append([]string(nil), a.CreatedMatchIDs...)
	return &c
}

// Owner is the single top-level account with platform-wide authority.
type Owner struct {
	ID string `db:"id"`
	Credentials
}

func (o *Owner) AccountID() string   { return o.ID }
func (o *Owner) AccountName() string { return o.Username }
func (o *Owner) AccountRole() Role   { return RoleOwner }
func (o *Owner) Authenticate(username, password string) bool {
	return o.Credentials.Matches(username, password)
}
func (*Owner) account() {}

// Principal is the authenticated identity handed to service calls.
type Principal struct {
	ID       string
	Username string
	Role     Role
}

// PrincipalOf builds the principal for an account.
func PrincipalOf(a Account) Principal {
	return Principal{ID: a.AccountID(), Username: a.AccountName(), Role: a.AccountRole()}
}

// GameMode is the top-level match format.
type GameMode string

const (
	BattleRoyale GameMode = "Battle Royale"
	ClashSquad   GameMode = "Clash Squad"
	LoneWolf     GameMode = "Lone Wolf"
)

// SubMode refines a game mode and fixes the team size.
type SubMode string

const (
	Solo      SubMode = "Solo"
	Duo       SubMode = "Duo"
	Squad     SubMode = "Squad"
	FourVFour SubMode = "4v4"
	OneVOne   SubMode = "1v1"
	TwoVTwo   SubMode = "2v2"
)

// MatchStatus is the stored lifecycle state. Live is never stored, see EffectiveStatus.
type MatchStatus string

const (
	StatusUpcoming  MatchStatus = "Upcoming"
	StatusLive      MatchStatus = "Live"
	StatusCompleted MatchStatus = "Completed"
)

// Perspective is the camera mode advertised for a match.
type Perspective string

const (
	PerspectiveTPP Perspective = "TPP"
	PerspectiveFPP Perspective = "FPP"
)

// PlayerDetails identifies one in-game player of a team.
type PlayerDetails struct {
	Name    string `json:"name" validate:"notblank"`
	GameUID string `json:"game_uid" validate:"required,number"`
}

// Performance is the per-participant result attached when results are posted.
type Performance struct {
	Rank  int `json:"rank"`
	Kills int `json:"kills"`
}

// Participant is one roster slot. Slot number is the 1-based position in Match.Participants.
type Participant struct {
	UserID      string          `json:"user_id"`
	Team        []PlayerDetails `json:"team"`
	Performance *Performance    `json:"performance,omitempty"`
	JoinedAt    time.Time       `json:"joined_at"`
}

// RoomDetails is the room-access secret handed to participants shortly before start.
type RoomDetails struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

// Match is a scheduled competitive event.
type Match struct {
	ID           string          `db:"id"`
	Title        string          `db:"title"`
	GameMode     GameMode        `db:"game_mode"`
	SubMode      SubMode         `db:"sub_mode"`
	EntryFee     decimal.Decimal `db:"entry_fee"`
	PrizePool    decimal.Decimal `db:"prize_pool"`
	TotalSlots   int             `db:"total_slots"`
	ScheduledAt  time.Time       `db:"scheduled_at"`
	Map          string          `db:"map"`
	Perspective  Perspective     `db:"perspective"`
	Rules        string          `db:"rules"`
	Status       MatchStatus     `db:"status"`
	Participants []Participant   `db:"-"`
	Room         *RoomDetails    `db:"room"`
	WinnerID     string          `db:"winner_id"`
	CreatedBy    string          `db:"created_by"`
	CreatedAt    time.Time       `db:"created_at"`
	CompletedAt  *time.Time      `db:"completed_at"`
}

// EffectiveStatus derives the displayed status: an Upcoming match whose start time
// has passed reads as Live.
func (m *Match) EffectiveStatus(now time.Time) MatchStatus {
	if m.Status == StatusUpcoming && !m.ScheduledAt.After(now) {
		return StatusLive
	}
	return m.Status
}

// ParticipantIndex returns the roster position of userID, or -1.
func (m *Match) ParticipantIndex(userID string) int {
	for i := range m.Participants {
		if m.Participants[i].UserID == userID {
			return i
		}
	}
	return -1
}

// SlotNumber returns the 1-based slot of userID, or 0 when not on the roster.
func (m *Match) SlotNumber(userID string) int {
	return m.ParticipantIndex(userID) + 1
}

// IsFull reports whether every slot is taken.
func (m *Match) IsFull() bool {
	return len(m.Participants) >= m.TotalSlots
}

// HasPerformance reports whether any participant already carries results.
func (m *Match) HasPerformance() bool {
	for i := range m.Participants {
		if m.Participants[i].Performance != nil {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the match.
func (m *Match) Clone() *Match {
	c := *m
	c.Participants = make([]Participant, len(m.Participants))
	for i, p := range m.Participants {
		p.Team = append([]PlayerDetails(nil), p.Team...)
		if p.Performance != nil {
			perf := *p.Performance
			p.Performance = &perf
		}
		c.Participants[i] = p
	}
	if m.Room != nil {
		room := *m.Room
		c.Room = &room
	}
	if m.CompletedAt != nil {
		at := *m.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// TxKind tags a ledger entry and carries its sign.
type TxKind string

const (
	TxDeposit      TxKind = "deposit"       // user recharge, or a refund when Transaction.Refund is set
	TxEntryFee     TxKind = "entry_fee"     // match entry fee
	TxManualCredit TxKind = "manual_credit" // owner added balance
	TxManualDebit  TxKind = "manual_debit"  // owner removed balance, or a withdrawal reservation
)

// IsCredit reports whether entries of this kind increase the balance.
func (k TxKind) IsCredit() bool {
	return k == TxDeposit || k == TxManualCredit
}

// Valid reports whether k is one of the known kinds.
func (k TxKind) Valid() bool {
	switch k {
	case TxDeposit, TxEntryFee, TxManualCredit, TxManualDebit:
		return true
	}
	return false
}

// TxStatus is the outcome recorded on a ledger entry.
type TxStatus string

const (
	TxSuccess TxStatus = "success"
	TxFailed  TxStatus = "failed"
)

// Transaction is one immutable ledger entry. Amount is always positive; Kind carries the sign.
type Transaction struct {
	ID           string          `db:"id"`
	UserID       string          `db:"user_id"`
	Amount       decimal.Decimal `db:"amount"`
	Kind         TxKind          `db:"kind"`
	Refund       bool            `db:"refund"`
	MatchID      string          `db:"match_id"`
	WithdrawalID string          `db:"withdrawal_id"`
	ActorID      string          `db:"actor_id"`
	Status       TxStatus        `db:"status"`
	CreatedAt    time.Time       `db:"created_at"`
}

// Signed returns the balance delta of the entry.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind.IsCredit() {
		return t.Amount
	}
	return t.Amount.Neg()
}

// WithdrawalMethod is the payout rail of a withdrawal.
type WithdrawalMethod string

const (
	MethodUPI  WithdrawalMethod = "UPI"
	MethodBank WithdrawalMethod = "Bank Transfer"
)

// WithdrawalStatus is the state of a withdrawal request. Approved and Rejected are terminal.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "Pending"
	WithdrawalApproved WithdrawalStatus = "Approved"
	WithdrawalRejected WithdrawalStatus = "Rejected"
)

// PayoutDetails is implemented by UPIDetails and BankDetails.
type PayoutDetails interface {
	Method() WithdrawalMethod
}

// UPIDetails is the payload of a UPI payout.
type UPIDetails struct {
	UPIID string `json:"upi_id" validate:"notblank"`
}

func (UPIDetails) Method() WithdrawalMethod { return MethodUPI }

// BankDetails is the payload of a bank payout.
type BankDetails struct {
	AccountHolder string `json:"account_holder" validate:"notblank"`
	AccountNumber string `json:"account_number" validate:"notblank"`
	IFSC          string `json:"ifsc" validate:"notblank"`
	BankName      string `json:"bank_name" validate:"notblank"`
}

func (BankDetails) Method() WithdrawalMethod { return MethodBank }

// WithdrawalRequest is a user-initiated, operator-resolved payout request.
type WithdrawalRequest struct {
	ID         string           `db:"id"`
	UserID     string           `db:"user_id"`
	Amount     decimal.Decimal  `db:"amount"`
	Method     WithdrawalMethod `db:"method"`
	Details    PayoutDetails    `db:"details"`
	Status     WithdrawalStatus `db:"status"`
	Remark     string           `db:"remark"` // UTR on approval, reason on rejection
	ResolvedBy string           `db:"resolved_by"`
	CreatedAt  time.Time        `db:"created_at"`
	ResolvedAt *time.Time       `db:"resolved_at"`
}

// Clone returns a deep copy of the request.
func (w *WithdrawalRequest) Clone() *WithdrawalRequest {
	c := *w
	if w.ResolvedAt != nil {
		at := *w.ResolvedAt
		c.ResolvedAt = &at
	}
	return &c
}

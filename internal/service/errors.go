// Package service provides the arena's transactional commands and read views.
package service

import "errors"

// Ledger and wallet errors.
var (
	ErrInvalidAmount     = errors.New("invalid amount: must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidKind       = errors.New("transaction kind does not match operation")
)

// Roster errors.
var (
	ErrMatchFull       = errors.New("match is full")
	ErrAlreadyJoined   = errors.New("already joined this match")
	ErrInvalidTeamData = errors.New("invalid team data")
	ErrMatchNotOpen    = errors.New("match is not open for joining or leaving")
	ErrNotParticipant  = errors.New("not a participant of this match")
	ErrInvalidMode     = errors.New("unsupported game mode and sub-mode")
	ErrInvalidMatch    = errors.New("invalid match details")
	ErrResultsPosted   = errors.New("results already posted")
	ErrInvalidResults  = errors.New("invalid match results")
	ErrRosterLocked    = errors.New("match can no longer be changed this way")
)

// Withdrawal errors.
var (
	ErrIncompleteDetails = errors.New("incomplete payout details")
	ErrAlreadyResolved   = errors.New("withdrawal already resolved")
)

// Directory and session errors.
var (
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrAccountBanned      = errors.New("account is banned")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidProfile     = errors.New("invalid registration details")
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrForbidden          = errors.New("operation not permitted for this account")
	ErrNotFound           = errors.New("not found")
)

package store

import (
	"sync"

	"github.com/shopspring/decimal"

	"arena-bot/internal/model"
)

// Ledger is the append-only record of balance-affecting events.
// Entries are stored by value and never modified once appended.
//
// Clones share the backing array of their parent. A clone writes past the
// shared prefix only while it is the longest ledger of its lineage; otherwise
// it first copies, so committed prefixes are never overwritten.
type Ledger struct {
	entries []model.Transaction
	byUser  map[string][]int
	tail    *ledgerTail
}

// ledgerTail tracks how far any ledger sharing a backing array has written.
type ledgerTail struct {
	mu  sync.Mutex
	len int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{byUser: make(map[string][]int), tail: &ledgerTail{}}
}

// Append records tx at the end of the ledger.
func (l *Ledger) Append(tx model.Transaction) {
	l.tail.mu.Lock()
	if l.tail.len == len(l.entries) {
		l.entries = append(l.entries, tx)
		l.tail.len = len(l.entries)
		l.tail.mu.Unlock()
	} else {
		l.tail.mu.Unlock()
		entries := make([]model.Transaction, len(l.entries), 2*len(l.entries)+1)
		copy(entries, l.entries)
		l.entries = append(entries, tx)
		l.tail = &ledgerTail{len: len(l.entries)}
	}

	idx := l.byUser[tx.UserID]
	l.byUser[tx.UserID] = append(idx[:len(idx):len(idx)], len(l.entries)-1)
}
// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// All returns every entry in append order.
func (l *Ledger) All() []model.Transaction {
	return append([]model.Transaction(nil), l.entries...)
}

// ForUser returns the user's entries in append order.
func (l *Ledger) ForUser(userID string) []model.Transaction {
	idx := l.byUser[userID]
	out := make([]model.Transaction, 0, len(idx))
	for _, i := range idx {
		out = append(out, l.entries[i])
	}
	return out
}

// Net returns the signed sum of the user's successful entries.
func (l *Ledger) Net(userID string) decimal.Decimal {
	total := decimal.Zero
	for _, i := range l.byUser[userID] {
		if tx := l.entries[i]; tx.Status == model.TxSuccess {
			total = total.Add(tx.Signed())
		}
	}
	return total
}

// clone shares entries and per-user indexes with l. Per-user indexes are
// capacity-capped, so appending to one copies only that user's positions.
func (l *Ledger) clone() *Ledger {
	c := &Ledger{
		entries: l.entries,
		byUser:  make(map[string][]int, len(l.byUser)),
		tail:    l.tail,
	}
	for user, idx := range l.byUser {
		c.byUser[user] = idx[:len(idx):len(idx)]
	}
	return c
}

// rollback gives the tail back to base after l was discarded, so the next
// clone of base can keep appending in place.
func (l *Ledger) rollback(base *Ledger) {
	if l.tail != base.tail {
		return
	}
	l.tail.mu.Lock()
	defer l.tail.mu.Unlock()
	if l.tail.len == len(l.entries) {
		l.tail.len = len(base.entries)
	}
}

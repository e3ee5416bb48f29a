package model

import "time"

// Leg is one side of a double-entry transaction. Legs always exist in
// mirrored pairs sharing an XID.
type Leg struct {
	XID              int64
	Date             time.Time //nolint:revive // plain field name is clearest
	AccountID        int64
	CounterAccountID int64
	Debit            int64 // zero if credit side
	Credit           int64 // zero if debit side
	BalanceAfter     int64
	Comment          string
}

// Mirror returns the counter-account's leg: accounts and debit/credit
// swapped, carrying the counter-account's own running balance.
func (l Leg) Mirror(counterBalanceAfter int64) Leg {
	return Leg{
		XID:              l.XID,
		Date:             l.Date,
		AccountID:        l.CounterAccountID,
		CounterAccountID: l.AccountID,
		Debit:            l.Credit,
		Credit:           l.Debit,
		BalanceAfter:     counterBalanceAfter,
		Comment:          l.Comment,
	}
}

// IsMirrorOf reports whether l and o form a valid mirrored pair.
func (l Leg) IsMirrorOf(o Leg) bool {
	return l.XID == o.XID &&
		l.Date.Equal(o.Date) &&
		l.AccountID == o.CounterAccountID &&
		l.CounterAccountID == o.AccountID &&
		l.Debit == o.Credit &&
		l.Credit == o.Debit &&
		l.Comment == o.Comment
}

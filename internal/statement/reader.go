// Package statement answers read-only questions about the ledger: turnovers
// over a period, paginated account history, counter-account candidates and
// the chart of accounts with balances.
package statement

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cleared-dev/debs/internal/currency"
	"github.com/cleared-dev/debs/internal/ledger"
	"github.com/cleared-dev/debs/internal/model"
	"github.com/cleared-dev/debs/internal/store"
)

// DefaultPageSize is used when neither the caller nor the Reader sets one.
const DefaultPageSize = 50

// ErrInvalidPeriod is returned when a period starts after it ends.
var ErrInvalidPeriod = errors.New("period start is after its end")

// Reader runs statement queries. Each call is one read-only unit of work.
type Reader struct {
	store    *store.Store
	codec    currency.Codec
	pageSize int
	now      func() time.Time
}

// Option configures a Reader.
type Option func(*Reader)

// WithCodec sets the codec used for formatted amounts.
func WithCodec(c currency.Codec) Option {
	return func(r *Reader) { r.codec = c }
}

// WithPageSize sets the default history page size. Non-positive values are
// ignored.
func WithPageSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

// WithClock sets the source of "today" for default periods.
func WithClock(now func() time.Time) Option {
	return func(r *Reader) { r.now = now }
}

// NewReader creates a Reader over st.
func NewReader(st *store.Store, opts ...Option) *Reader {
	r := &Reader{
		store:    st,
		codec:    currency.DefaultCodec(),
		pageSize: DefaultPageSize,
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// DefaultPeriod spans an account's lifetime: opening day to closing day, or
// to today while it is open.
func DefaultPeriod(a model.Account, today time.Time) (start, end time.Time) {
	if a.IsOpen() {
		return a.OpenedOn, model.Day(today)
	}
	return a.OpenedOn, a.ClosedOn
}

// Turnovers summarizes an account over [Start, End].
type Turnovers struct {
	Account         model.Account
	Start           time.Time
	End             time.Time
	StartingBalance int64
	Debit           int64
	Credit          int64
	EndingBalance   int64
}

// Turnovers folds the account's legs over the period. A zero start or end
// is taken from DefaultPeriod.
func (r *Reader) Turnovers(ctx context.Context, accountID int64, start, end time.Time) (Turnovers, error) {
	var t Turnovers
	err := r.store.View(ctx, func(tx *store.Tx) error {
		a, err := account(tx, accountID)
		if err != nil {
			return err
		}
		defStart, defEnd := DefaultPeriod(a, r.now())
		if start.IsZero() {
			start = defStart
		}
		if end.IsZero() {
			end = defEnd
		}
		start, end = model.Day(start), model.Day(end)
		if start.After(end) {
			return fmt.Errorf("%w: %s > %s", ErrInvalidPeriod, model.FormatDate(start), model.FormatDate(end))
		}

		legs, err := tx.Legs(accountID)
		if err != nil {
			return err
		}
		t = Turnovers{Account: a, Start: start, End: end}
		for _, l := range legs {
			if l.Date.Before(start) {
				t.StartingBalance = l.BalanceAfter
				t.EndingBalance = l.BalanceAfter
				continue
			}
			if l.Date.After(end) {
				break
			}
			t.Debit += l.Debit
			t.Credit += l.Credit
			t.EndingBalance = l.BalanceAfter
		}
		return nil
	})
	return t, err
}

// HistoryRow is one leg as shown in an account statement.
type HistoryRow struct {
	XID            int64
	Date           time.Time //nolint:revive // plain field name is clearest
	CounterAccount model.Account
	Debit          int64
	Credit         int64
	BalanceAfter   int64
	DebitText      string // "" when zero
	CreditText     string // "" when zero
	BalanceText    string
	Comment        string
	// Deletable is set when the leg is the latest on both accounts and both
	// are open.
	Deletable bool
}

// HistoryPage is one page of an account's legs, most recent first.
type HistoryPage struct {
	Account    model.Account
	Rows       []HistoryRow
	Page       int // 1-based
	PageSize   int
	TotalPages int // at least 1
	TotalRows  int
}

// History returns page of the account's legs. page is clamped to
// [1, TotalPages]; a non-positive pageSize uses the Reader's default.
func (r *Reader) History(ctx context.Context, accountID int64, pageSize, page int) (HistoryPage, error) {
	if pageSize <= 0 {
		pageSize = r.pageSize
	}
	var hp HistoryPage
	err := r.store.View(ctx, func(tx *store.Tx) error {
		a, err := account(tx, accountID)
		if err != nil {
			return err
		}
		total, err := tx.CountLegs(accountID)
		if err != nil {
			return err
		}
		pages := max(1, (total+pageSize-1)/pageSize)
		page = min(max(page, 1), pages)

		legs, err := tx.LegsPage(accountID, pageSize, (page-1)*pageSize)
		if err != nil {
			return err
		}
		latest, _, err := tx.LatestLeg(accountID)
		if err != nil {
			return err
		}

		counters := map[int64]model.Account{}
		frontiers := map[int64]int64{}
		hp = HistoryPage{Account: a, Page: page, PageSize: pageSize, TotalPages: pages, TotalRows: total}
		for _, l := range legs {
			c, ok := counters[l.CounterAccountID]
			if !ok {
				if c, err = tx.Account(l.CounterAccountID); err != nil {
					return err
				}
				counters[c.ID] = c
				cl, _, err := tx.LatestLeg(c.ID)
				if err != nil {
					return err
				}
				frontiers[c.ID] = cl.XID
			}
			hp.Rows = append(hp.Rows, HistoryRow{
				XID:            l.XID,
				Date:           l.Date,
				CounterAccount: c,
				Debit:          l.Debit,
				Credit:         l.Credit,
				BalanceAfter:   l.BalanceAfter,
				DebitText:      r.formatNonZero(l.Debit),
				CreditText:     r.formatNonZero(l.Credit),
				BalanceText:    r.codec.Format(l.BalanceAfter),
				Comment:        l.Comment,
				Deletable: a.IsOpen() && c.IsOpen() &&
					l.XID == latest.XID && l.XID == frontiers[c.ID],
			})
		}
		return nil
	})
	return hp, err
}

func (r *Reader) formatNonZero(v int64) string {
	if v == 0 {
		return ""
	}
	return r.codec.Format(v)
}

// TypeGroup is the accounts of one type, ordered by name.
type TypeGroup struct {
	Type     model.AccountType
	Accounts []model.AccountBalance
	Total    int64
}

// Label returns the group heading, e.g. "Assets".
func (g TypeGroup) Label() string { return g.Type.Label() }

// CounterAccounts returns the open accounts a transaction can be posted
// against, grouped by type. exclude (0 = none) is left out, typically the
// account being posted to. Empty groups are omitted.
func (r *Reader) CounterAccounts(ctx context.Context, exclude int64) ([]TypeGroup, error) {
	var groups []TypeGroup
	err := r.store.View(ctx, func(tx *store.Tx) error {
		all, err := tx.AccountBalances()
		if err != nil {
			return err
		}
		open := slices.DeleteFunc(all, func(b model.AccountBalance) bool {
			return !b.IsOpen() || (exclude != 0 && b.ID == exclude)
		})
		groups = groupByType(open, false)
		return nil
	})
	return groups, err
}

// Overview is the chart of accounts with balances.
type Overview struct {
	Groups    []TypeGroup // open accounts, one group per type
	Closed    []model.AccountBalance
	Imbalance int64
}

// EquationHolds reports whether the accounting equation holds.
func (o Overview) EquationHolds() bool { return o.Imbalance == 0 }

// Overview returns every account with its balance.
func (r *Reader) Overview(ctx context.Context) (Overview, error) {
	var o Overview
	err := r.store.View(ctx, func(tx *store.Tx) error {
		all, err := tx.AccountBalances()
		if err != nil {
			return err
		}
		o.Imbalance = ledger.Imbalance(all)

		var open []model.AccountBalance
		for _, b := range all {
			if b.IsOpen() {
				open = append(open, b)
			} else {
				o.Closed = append(o.Closed, b)
			}
		}
		sortByName(o.Closed)
		o.Groups = groupByType(open, true)
		return nil
	})
	return o, err
}

func groupByType(bs []model.AccountBalance, keepEmpty bool) []TypeGroup {
	sortByName(bs)
	var groups []TypeGroup
	for _, t := range model.AccountTypes() {
		g := TypeGroup{Type: t}
		for _, b := range bs {
			if b.Type == t {
				g.Accounts = append(g.Accounts, b)
				g.Total += b.Balance
			}
		}
		if keepEmpty || len(g.Accounts) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

func sortByName(bs []model.AccountBalance) {
	slices.SortStableFunc(bs, func(a, b model.AccountBalance) int {
		return strings.Compare(a.Name, b.Name)
	})
}

func account(tx *store.Tx, id int64) (model.Account, error) {
	a, err := tx.Account(id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Account{}, &ledger.InputError{Err: ledger.ErrUnknownAccount, Field: "account", Value: fmt.Sprint(id)}
	}
	return a, err
}

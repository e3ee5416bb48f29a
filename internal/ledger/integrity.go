package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cleared-dev/debs/internal/balance"
	"github.com/cleared-dev/debs/internal/model"
	"github.com/cleared-dev/debs/internal/store"
)

// Imbalance returns sum(credit-normal balances) - sum(debit-normal
// balances). A consistent ledger has zero imbalance.
func Imbalance(balances []model.AccountBalance) int64 {
	var sum int64
	for _, b := range balances {
		sum += balance.Contribution(b.Type, b.Balance)
	}
	return sum
}

// VerifyAccountingEquation reports whether equity + liabilities + income
// equals assets + expenses over the given balances.
func VerifyAccountingEquation(balances []model.AccountBalance) bool {
	return Imbalance(balances) == 0
}

// DiscrepancyKind classifies a Reconcile finding.
type DiscrepancyKind string

const (
	DiscrepancyBalance       DiscrepancyKind = "balance_after"
	DiscrepancyMirror        DiscrepancyKind = "mirror"
	DiscrepancyDateOrder     DiscrepancyKind = "date_order"
	DiscrepancyLifetime      DiscrepancyKind = "outside_lifetime"
	DiscrepancyClosedBalance DiscrepancyKind = "closed_nonzero"
	DiscrepancyOrphan        DiscrepancyKind = "unknown_account"
)

// Discrepancy is one broken invariant found by Reconcile.
type Discrepancy struct {
	Kind      DiscrepancyKind
	XID       int64
	AccountID int64
	Detail    string
}

func (d Discrepancy) String() string {
	if d.XID == 0 {
		return fmt.Sprintf("%s: account %d: %s", d.Kind, d.AccountID, d.Detail)
	}
	return fmt.Sprintf("%s: xid %d account %d: %s", d.Kind, d.XID, d.AccountID, d.Detail)
}

// Reconcile replays legs (ordered by xid) from zero and reports every leg
// whose stored state disagrees with the replay. It never modifies anything.
func Reconcile(accounts []model.Account, legs []model.Leg) []Discrepancy {
	byID := make(map[int64]model.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	var found []Discrepancy
	add := func(kind DiscrepancyKind, xid, account int64, format string, args ...any) {
		found = append(found, Discrepancy{Kind: kind, XID: xid, AccountID: account, Detail: fmt.Sprintf(format, args...)})
	}

	running := make(map[int64]int64)
	last := make(map[int64]model.Leg)
	for i := 0; i < len(legs); {
		j := i
		for j < len(legs) && legs[j].XID == legs[i].XID {
			j++
		}
		group := legs[i:j]
		switch {
		case len(group) != 2:
			add(DiscrepancyMirror, group[0].XID, group[0].AccountID, "transaction has %d legs", len(group))
		case !group[0].IsMirrorOf(group[1]):
			add(DiscrepancyMirror, group[0].XID, group[0].AccountID, "legs on %d and %d do not mirror", group[0].AccountID, group[1].AccountID)
		}

		for _, l := range group {
			a, ok := byID[l.AccountID]
			if !ok {
				add(DiscrepancyOrphan, l.XID, l.AccountID, "leg references a missing account")
				continue
			}
			if prev, ok := last[a.ID]; ok && l.Date.Before(prev.Date) {
				add(DiscrepancyDateOrder, l.XID, a.ID, "dated %s before xid %d on %s",
					model.FormatDate(l.Date), prev.XID, model.FormatDate(prev.Date))
			}
			if l.Date.Before(a.OpenedOn) || (!a.IsOpen() && l.Date.After(a.ClosedOn)) {
				add(DiscrepancyLifetime, l.XID, a.ID, "dated %s outside the account's lifetime", model.FormatDate(l.Date))
			}
			last[a.ID] = l

			want, err := balance.Apply(a.Type, running[a.ID], l.Debit, l.Credit)
			if err != nil {
				kind := DiscrepancyOrphan
				if errors.Is(err, balance.ErrOverflow) {
					kind = DiscrepancyBalance
				}
				add(kind, l.XID, a.ID, "%v", err)
				continue
			}
			if want != l.BalanceAfter {
				add(DiscrepancyBalance, l.XID, a.ID, "stored %d, replay gives %d", l.BalanceAfter, want)
			}
			running[a.ID] = want
		}
		i = j
	}

	for _, a := range accounts {
		if !a.IsOpen() && running[a.ID] != 0 {
			add(DiscrepancyClosedBalance, 0, a.ID, "closed with balance %d", running[a.ID])
		}
	}
	return found
}

// Report summarizes a full integrity check.
type Report struct {
	Balances      []model.AccountBalance
	Imbalance     int64
	Discrepancies []Discrepancy
}

// OK reports whether the ledger passed every check.
func (r Report) OK() bool {
	return r.Imbalance == 0 && len(r.Discrepancies) == 0
}

// Reconcile runs the package-level Reconcile over the whole store.
func (s *Service) Reconcile(ctx context.Context) ([]Discrepancy, error) {
	r, err := s.CheckIntegrity(ctx)
	if err != nil {
		return nil, err
	}
	return r.Discrepancies, nil
}

// CheckIntegrity checks the accounting equation and replays every leg in a
// single read-only unit of work.
func (s *Service) CheckIntegrity(ctx context.Context) (Report, error) {
	var r Report
	err := s.store.View(ctx, func(tx *store.Tx) error {
		accounts, err := tx.Accounts()
		if err != nil {
			return err
		}
		legs, err := tx.AllLegs()
		if err != nil {
			return err
		}
		if r.Balances, err = tx.AccountBalances(); err != nil {
			return err
		}
		r.Imbalance = Imbalance(r.Balances)
		r.Discrepancies = Reconcile(accounts, legs)
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("checking integrity: %w", err)
	}
	if !r.OK() {
		s.log.Error("integrity check failed",
			zap.Int64("imbalance", r.Imbalance),
			zap.Int("discrepancies", len(r.Discrepancies)),
		)
	}
	return r, nil
}

package export

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/cleared-dev/debs/internal/ledger"
	"github.com/cleared-dev/debs/internal/model"
	"github.com/cleared-dev/debs/internal/store"
)

// File names inside an export directory.
const (
	AccountsFile = "accounts.csv"
	LegsFile     = "legs.csv"
)

// ErrNotEmpty is returned when restoring into a ledger that has accounts.
var ErrNotEmpty = errors.New("ledger is not empty")

// Dump writes accounts.csv and legs.csv into dir from one consistent read.
func Dump(ctx context.Context, st *store.Store, dir string) error {
	var accounts []model.AccountBalance
	var legs []model.Leg
	err := st.View(ctx, func(tx *store.Tx) error {
		var err error
		if accounts, err = tx.AccountBalances(); err != nil {
			return err
		}
		legs, err = tx.AllLegs()
		return err
	})
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}
	if err := writeFile(filepath.Join(dir, AccountsFile), func(f *os.File) error { return WriteAccounts(f, accounts) }); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, LegsFile), func(f *os.File) error { return WriteLegs(f, legs) })
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Load reads an export directory.
func Load(dir string) ([]model.AccountBalance, []model.Leg, error) {
	af, err := os.Open(filepath.Join(dir, AccountsFile))
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", AccountsFile, err)
	}
	defer af.Close()
	accounts, err := ReadAccounts(af)
	if err != nil {
		return nil, nil, err
	}

	lf, err := os.Open(filepath.Join(dir, LegsFile))
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", LegsFile, err)
	}
	defer lf.Close()
	legs, err := ReadLegs(lf)
	if err != nil {
		return nil, nil, err
	}
	return accounts, legs, nil
}

// Result summarizes a Restore.
type Result struct {
	Accounts     int
	Transactions int
	// IDs maps exported account ids to the ids assigned on restore.
	IDs map[int64]int64
}

// Restore replays an export into the empty ledger behind svc through the
// normal ledger operations, so every invariant is checked again. Each
// replayed running balance must match the exported one. A failure leaves
// the ledger partially restored.
func Restore(ctx context.Context, svc *ledger.Service, accounts []model.AccountBalance, legs []model.Leg) (Result, error) {
	existing, err := svc.Balances(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(existing) > 0 {
		return Result{}, fmt.Errorf("%w: %d accounts", ErrNotEmpty, len(existing))
	}

	legs = slices.Clone(legs)
	slices.SortStableFunc(legs, func(a, b model.Leg) int { return cmp.Compare(a.XID, b.XID) })

	res := Result{IDs: make(map[int64]int64, len(accounts))}
	for _, a := range accounts {
		id, err := svc.CreateAccount(ctx, ledger.CreateAccountParams{Type: a.Type, Name: a.Name, OpenedOn: a.OpenedOn})
		if err != nil {
			return res, fmt.Errorf("restoring account %d: %w", a.ID, err)
		}
		res.IDs[a.ID] = id
		res.Accounts++
	}

	for i := 0; i < len(legs); {
		j := i
		for j < len(legs) && legs[j].XID == legs[i].XID {
			j++
		}
		if err := replay(ctx, svc, res.IDs, legs[i:j]); err != nil {
			return res, err
		}
		res.Transactions++
		i = j
	}

	for _, a := range accounts {
		if a.IsOpen() {
			continue
		}
		if err := svc.CloseAccount(ctx, res.IDs[a.ID], a.ClosedOn); err != nil {
			return res, fmt.Errorf("closing account %d: %w", a.ID, err)
		}
	}

	for _, a := range accounts {
		got, err := svc.CurrentBalance(ctx, res.IDs[a.ID])
		if err != nil {
			return res, err
		}
		if got != a.Balance {
			return res, fmt.Errorf("%w: account %d restored with balance %d, exported %d", ledger.ErrIntegrity, a.ID, got, a.Balance)
		}
	}
	return res, nil
}

func replay(ctx context.Context, svc *ledger.Service, ids map[int64]int64, pair []model.Leg) error {
	xid := pair[0].XID
	if len(pair) != 2 || !pair[0].IsMirrorOf(pair[1]) {
		return fmt.Errorf("%w: exported transaction %d is not a mirrored pair", ledger.ErrIntegrity, xid)
	}
	l, m := pair[0], pair[1]
	account, ok := ids[l.AccountID]
	if !ok {
		return fmt.Errorf("%w: transaction %d references unknown account %d", ledger.ErrIntegrity, xid, l.AccountID)
	}
	counter, ok := ids[l.CounterAccountID]
	if !ok {
		return fmt.Errorf("%w: transaction %d references unknown account %d", ledger.ErrIntegrity, xid, l.CounterAccountID)
	}

	if _, err := svc.PostTransaction(ctx, ledger.PostParams{
		AccountID:        account,
		CounterAccountID: counter,
		Date:             l.Date,
		Debit:            l.Debit,
		Credit:           l.Credit,
		Comment:          l.Comment,
	}); err != nil {
		return fmt.Errorf("replaying transaction %d: %w", xid, err)
	}

	for _, check := range []struct {
		id   int64
		want int64
	}{{account, l.BalanceAfter}, {counter, m.BalanceAfter}} {
		got, err := svc.CurrentBalance(ctx, check.id)
		if err != nil {
			return err
		}
		if got != check.want {
			return fmt.Errorf("%w: transaction %d leaves balance %d, exported %d", ledger.ErrIntegrity, xid, got, check.want)
		}
	}
	return nil
}

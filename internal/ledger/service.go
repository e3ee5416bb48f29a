// Package ledger enforces the double-entry invariants: paired legs, running
// balances that fold the history, the accounting equation, and deletion only
// at the temporal frontier.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cleared-dev/debs/internal/balance"
	"github.com/cleared-dev/debs/internal/model"
	"github.com/cleared-dev/debs/internal/store"
)

// Service provides the ledger operations. Each mutating call runs in exactly
// one store unit of work.
type Service struct {
	store          *store.Store
	log            *zap.Logger
	now            func() time.Time
	verifyOnCommit bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock sets the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithVerifyOnCommit makes every mutation check the accounting equation
// over all accounts before committing.
func WithVerifyOnCommit(v bool) Option {
	return func(s *Service) { s.verifyOnCommit = v }
}

// NewService creates a ledger Service over st.
func NewService(st *store.Store, opts ...Option) *Service {
	s := &Service{store: st, log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Today returns the current calendar day according to the Service clock.
func (s *Service) Today() time.Time {
	return model.Day(s.now())
}

// CreateAccountParams holds parameters for creating an account.
type CreateAccountParams struct {
	Type     model.AccountType
	Name     string
	OpenedOn time.Time // zero = today
}

// CreateAccount appends a new open account with zero balance.
func (s *Service) CreateAccount(ctx context.Context, p CreateAccountParams) (int64, error) {
	if !p.Type.Valid() {
		return 0, s.reject("create account", inputErr(ErrInvalidType, "type", p.Type))
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return 0, s.reject("create account", inputErr(ErrEmptyName, "name", nil))
	}
	today := s.Today()
	opened := model.Day(p.OpenedOn)
	if opened.IsZero() {
		opened = today
	}

	var id int64
	err := s.update(ctx, func(tx *store.Tx) error {
		exists, err := tx.NameExists(name)
		if err != nil {
			return err
		}
		if exists {
			return inputErr(ErrDuplicateName, "name", name)
		}
		if opened.After(today) {
			return inputErr(ErrFutureDate, "opened_on", model.FormatDate(opened))
		}
		id, err = tx.InsertAccount(model.Account{Type: p.Type, Name: name, OpenedOn: opened})
		if errors.Is(err, store.ErrDuplicate) {
			return inputErr(ErrDuplicateName, "name", name)
		}
		return err
	})
	if err != nil {
		return 0, s.reject("create account", err)
	}

	s.log.Info("account created",
		zap.Int64("account_id", id),
		zap.String("type", string(p.Type)),
		zap.String("name", name),
		zap.String("opened_on", model.FormatDate(opened)),
	)
	return id, nil
}

// PostParams holds parameters for posting a transaction. Either one of
// Debit/Credit or Target is set.
type PostParams struct {
	AccountID        int64
	CounterAccountID int64
	Date             time.Time // zero = today
	Debit            int64
	Credit           int64
	Target           *int64 // desired balance of AccountID after the post
	Comment          string
}

// PostTransaction validates p, appends the mirrored leg pair and returns the
// new xid. This is the only way balances change.
func (s *Service) PostTransaction(ctx context.Context, p PostParams) (int64, error) {
	today := s.Today()
	on := model.Day(p.Date)
	if on.IsZero() {
		on = today
	}

	var xid int64
	var leg model.Leg
	var mirror model.Leg
	err := s.update(ctx, func(tx *store.Tx) error {
		acct, err := openAccount(tx, p.AccountID, "account")
		if err != nil {
			return err
		}
		counter, err := openAccount(tx, p.CounterAccountID, "counter_account")
		if err != nil {
			return err
		}
		if acct.ID == counter.ID {
			return inputErr(ErrSelfTransaction, "counter_account", counter.ID)
		}
		if err := checkAmountForm(p); err != nil {
			return err
		}
		if p.Debit < 0 {
			return inputErr(ErrNegativeAmount, "debit", p.Debit)
		}
		if p.Credit < 0 {
			return inputErr(ErrNegativeAmount, "credit", p.Credit)
		}
		if on.After(today) {
			return inputErr(ErrFutureDate, "date", model.FormatDate(on))
		}
		if on.Before(acct.OpenedOn) {
			return inputErr(ErrDateBeforeOpening, "date", model.FormatDate(on))
		}
		if on.Before(counter.OpenedOn) {
			return inputErr(ErrDateBeforeOpening, "date", model.FormatDate(on))
		}
		for _, side := range []struct {
			id    int64
			field string
		}{{acct.ID, "account"}, {counter.ID, "counter_account"}} {
			newer, err := tx.HasLegAfterDate(side.id, on)
			if err != nil {
				return err
			}
			if newer {
				return inputErr(ErrOutOfOrderTransaction, side.field, side.id)
			}
		}

		old, err := tx.Balance(acct.ID)
		if err != nil {
			return err
		}
		debit, credit := p.Debit, p.Credit
		field, value := "debit", debit
		if credit != 0 {
			field, value = "credit", credit
		}
		if p.Target != nil {
			field, value = "balance", *p.Target
			if debit, credit, err = balance.DeriveFromTarget(acct.Type, old, *p.Target); err != nil {
				return amountErr(err, field, value, acct.ID)
			}
			if debit == 0 && credit == 0 {
				return inputErr(ErrMissingAmount, field, value)
			}
		}
		newBal, err := balance.Apply(acct.Type, old, debit, credit)
		if err != nil {
			return amountErr(err, field, value, acct.ID)
		}

		counterOld, err := tx.Balance(counter.ID)
		if err != nil {
			return err
		}
		counterNew, err := balance.Apply(counter.Type, counterOld, credit, debit)
		if err != nil {
			return amountErr(err, field, value, counter.ID)
		}
		if d := balance.Contribution(acct.Type, newBal-old) + balance.Contribution(counter.Type, counterNew-counterOld); d != 0 {
			return integrityErr("posting %d/%d between %d and %d shifts the equation by %d", debit, credit, acct.ID, counter.ID, d)
		}

		if xid, err = tx.NextXID(); err != nil {
			return err
		}
		leg = model.Leg{
			XID:              xid,
			Date:             on,
			AccountID:        acct.ID,
			CounterAccountID: counter.ID,
			Debit:            debit,
			Credit:           credit,
			BalanceAfter:     newBal,
			Comment:          p.Comment,
		}
		mirror = leg.Mirror(counterNew)
		return tx.InsertLegs(leg, mirror)
	})
	if err != nil {
		return 0, s.reject("post transaction", err)
	}

	s.log.Info("transaction posted",
		zap.Int64("xid", xid),
		zap.String("date", model.FormatDate(on)),
		zap.Int64("account_id", leg.AccountID),
		zap.Int64("counter_account_id", leg.CounterAccountID),
		zap.Int64("debit", leg.Debit),
		zap.Int64("credit", leg.Credit),
		zap.Int64("balance_after", leg.BalanceAfter),
		zap.Int64("counter_balance_after", mirror.BalanceAfter),
	)
	return xid, nil
}

// checkAmountForm requires exactly one of: a debit/credit pair with at most
// one non-zero side, or a target balance alone.
func checkAmountForm(p PostParams) error {
	pair := p.Debit != 0 || p.Credit != 0
	switch {
	case p.Debit != 0 && p.Credit != 0:
		return inputErr(ErrAmbiguousAmount, "credit", p.Credit)
	case pair && p.Target != nil:
		return inputErr(ErrAmbiguousAmount, "balance", *p.Target)
	case !pair && p.Target == nil:
		return inputErr(ErrMissingAmount, "debit", nil)
	}
	return nil
}

// DeleteTransaction removes both legs of xid. Only a transaction at the
// frontier of both accounts can be deleted.
func (s *Service) DeleteTransaction(ctx context.Context, xid, accountID int64) error {
	var leg model.Leg
	err := s.update(ctx, func(tx *store.Tx) error {
		if _, err := openAccount(tx, accountID, "account"); err != nil {
			return err
		}
		var err error
		leg, err = tx.Leg(xid, accountID)
		if errors.Is(err, store.ErrNotFound) {
			return inputErr(ErrUnknownTransaction, "xid", xid)
		}
		if err != nil {
			return err
		}
		counter, err := tx.Account(leg.CounterAccountID)
		if errors.Is(err, store.ErrNotFound) {
			return integrityErr("leg %d references missing account %d", xid, leg.CounterAccountID)
		}
		if err != nil {
			return err
		}
		if !counter.IsOpen() {
			return inputErr(ErrClosedAccount, "counter_account", counter.ID)
		}

		for _, side := range []struct {
			id    int64
			field string
		}{{accountID, "account"}, {counter.ID, "counter_account"}} {
			later, err := tx.HasLegAfterXID(side.id, xid)
			if err != nil {
				return err
			}
			if later {
				return inputErr(ErrNewerTransactionsExist, side.field, side.id)
			}
		}

		n, err := tx.DeleteTransaction(xid)
		if err != nil {
			return err
		}
		if n != 2 {
			return integrityErr("transaction %d had %d legs", xid, n)
		}
		return nil
	})
	if err != nil {
		return s.reject("delete transaction", err)
	}

	s.log.Info("transaction deleted",
		zap.Int64("xid", xid),
		zap.Int64("account_id", leg.AccountID),
		zap.Int64("counter_account_id", leg.CounterAccountID),
	)
	return nil
}

// CloseAccount closes an account whose balance is zero. Closing is terminal.
func (s *Service) CloseAccount(ctx context.Context, accountID int64, closeDate time.Time) error {
	today := s.Today()
	on := model.Day(closeDate)
	if on.IsZero() {
		on = today
	}

	err := s.update(ctx, func(tx *store.Tx) error {
		a, err := tx.Account(accountID)
		if errors.Is(err, store.ErrNotFound) {
			return inputErr(ErrUnknownAccount, "account", accountID)
		}
		if err != nil {
			return err
		}
		if !a.IsOpen() {
			return inputErr(ErrAlreadyClosed, "account", accountID)
		}
		bal, err := tx.Balance(accountID)
		if err != nil {
			return err
		}
		if bal != 0 {
			return inputErr(ErrNonZeroBalance, "account", accountID)
		}
		if on.After(today) {
			return inputErr(ErrFutureDate, "close_date", model.FormatDate(on))
		}
		if on.Before(a.OpenedOn) {
			return inputErr(ErrDateBeforeOpening, "close_date", model.FormatDate(on))
		}
		newer, err := tx.HasLegAfterDate(accountID, on)
		if err != nil {
			return err
		}
		if newer {
			return inputErr(ErrOutOfOrderTransaction, "close_date", model.FormatDate(on))
		}
		return tx.CloseAccount(accountID, on)
	})
	if err != nil {
		return s.reject("close account", err)
	}

	s.log.Info("account closed",
		zap.Int64("account_id", accountID),
		zap.String("closed_on", model.FormatDate(on)),
	)
	return nil
}

// CurrentBalance returns the running balance after the account's latest
// leg, or 0 if it has none.
func (s *Service) CurrentBalance(ctx context.Context, accountID int64) (int64, error) {
	var bal int64
	err := s.store.View(ctx, func(tx *store.Tx) error {
		if _, err := tx.Account(accountID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return inputErr(ErrUnknownAccount, "account", accountID)
			}
			return err
		}
		var err error
		bal, err = tx.Balance(accountID)
		return err
	})
	return bal, err
}

// Balances returns every account, open and closed, with its balance.
func (s *Service) Balances(ctx context.Context) ([]model.AccountBalance, error) {
	var result []model.AccountBalance
	err := s.store.View(ctx, func(tx *store.Tx) error {
		var err error
		result, err = tx.AccountBalances()
		return err
	})
	return result, err
}

func (s *Service) update(ctx context.Context, fn func(*store.Tx) error) error {
	return s.store.Update(ctx, func(tx *store.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		if !s.verifyOnCommit {
			return nil
		}
		balances, err := tx.AccountBalances()
		if err != nil {
			return err
		}
		if d := Imbalance(balances); d != 0 {
			return integrityErr("accounting equation off by %d", d)
		}
		return nil
	})
}

// reject logs a failed operation and returns err unchanged.
func (s *Service) reject(op string, err error) error {
	switch {
	case IsInputError(err):
		s.log.Debug("request rejected", zap.String("op", op), zap.Error(err))
	case errors.Is(err, ErrIntegrity):
		s.log.Error("integrity violation", zap.String("op", op), zap.Error(err))
	default:
		s.log.Error("operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

func openAccount(tx *store.Tx, id int64, field string) (model.Account, error) {
	a, err := tx.Account(id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Account{}, inputErr(ErrUnknownAccount, field, id)
	}
	if err != nil {
		return model.Account{}, err
	}
	if !a.IsOpen() {
		return model.Account{}, inputErr(ErrClosedAccount, field, id)
	}
	return a, nil
}

// amountErr maps a balance arithmetic failure: overflow is the caller's
// amount, anything else is a stored account in a bad state.
func amountErr(err error, field string, value, accountID int64) error {
	if errors.Is(err, balance.ErrOverflow) {
		return inputErr(ErrAmountOverflow, field, value)
	}
	return integrityErr("account %d: %v", accountID, err)
}

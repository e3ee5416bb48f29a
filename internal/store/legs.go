package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cleared-dev/debs/internal/model"
)

const legColumns = `xid, date, account_id, counter_account_id, debit, credit, balance_after, comment`

// NextXID allocates a new ledger-wide transaction id. Ids increase
// monotonically and are never handed out twice, even after deletion.
func (t *Tx) NextXID() (int64, error) {
	res, err := t.tx.ExecContext(t.ctx, `INSERT INTO transactions DEFAULT VALUES`)
	if err != nil {
		return 0, fmt.Errorf("allocating xid: %w", err)
	}
	xid, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading xid: %w", err)
	}
	return xid, nil
}

// InsertLegs appends legs.
func (t *Tx) InsertLegs(legs ...model.Leg) error {
	for _, l := range legs {
		_, err := t.tx.ExecContext(t.ctx,
			`INSERT INTO legs (`+legColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			l.XID, model.FormatDate(l.Date), l.AccountID, l.CounterAccountID,
			l.Debit, l.Credit, l.BalanceAfter, l.Comment,
		)
		if err != nil {
			return fmt.Errorf("inserting leg %d/%d: %w", l.XID, l.AccountID, err)
		}
	}
	return nil
}

// DeleteTransaction removes every leg with the given xid and its header.
// Returns the number of legs removed.
func (t *Tx) DeleteTransaction(xid int64) (int64, error) {
	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM legs WHERE xid = ?`, xid)
	if err != nil {
		return 0, fmt.Errorf("deleting legs of %d: %w", xid, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting legs of %d: %w", xid, err)
	}
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM transactions WHERE xid = ?`, xid); err != nil {
		return 0, fmt.Errorf("deleting transaction %d: %w", xid, err)
	}
	return n, nil
}

// Leg returns the leg of xid on accountID, or ErrNotFound.
func (t *Tx) Leg(xid, accountID int64) (model.Leg, error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT `+legColumns+` FROM legs WHERE account_id = ? AND xid = ?`, accountID, xid)
	l, err := scanLeg(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Leg{}, fmt.Errorf("leg %d on account %d: %w", xid, accountID, ErrNotFound)
	}
	if err != nil {
		return model.Leg{}, fmt.Errorf("reading leg %d on account %d: %w", xid, accountID, err)
	}
	return l, nil
}

// LatestLeg returns the leg with the greatest xid on accountID (its temporal
// frontier). ok is false when the account has no legs.
func (t *Tx) LatestLeg(accountID int64) (l model.Leg, ok bool, err error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT `+legColumns+` FROM legs WHERE account_id = ? ORDER BY xid DESC LIMIT 1`, accountID)
	l, err = scanLeg(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Leg{}, false, nil
	}
	if err != nil {
		return model.Leg{}, false, fmt.Errorf("reading latest leg of account %d: %w", accountID, err)
	}
	return l, true, nil
}

// Balance returns the balance_after of the account's latest leg, or 0.
func (t *Tx) Balance(accountID int64) (int64, error) {
	var bal int64
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT balance_after FROM legs WHERE account_id = ? ORDER BY xid DESC LIMIT 1`, accountID,
	).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading balance of account %d: %w", accountID, err)
	}
	return bal, nil
}

// HasLegAfterDate reports whether accountID has a leg dated strictly after on.
func (t *Tx) HasLegAfterDate(accountID int64, on time.Time) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT EXISTS(SELECT 1 FROM legs WHERE account_id = ? AND date > ?)`,
		accountID, model.FormatDate(on),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking newer legs of account %d: %w", accountID, err)
	}
	return exists, nil
}

// HasLegAfterXID reports whether accountID has a leg with xid greater than xid.
func (t *Tx) HasLegAfterXID(accountID, xid int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT EXISTS(SELECT 1 FROM legs WHERE account_id = ? AND xid > ?)`, accountID, xid,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking later legs of account %d: %w", accountID, err)
	}
	return exists, nil
}

// Legs returns all legs of accountID in xid order.
func (t *Tx) Legs(accountID int64) ([]model.Leg, error) {
	return t.queryLegs(`SELECT `+legColumns+` FROM legs WHERE account_id = ? ORDER BY xid`, accountID)
}

// LegsPage returns up to limit legs of accountID, most recent first,
// skipping offset.
func (t *Tx) LegsPage(accountID int64, limit, offset int) ([]model.Leg, error) {
	return t.queryLegs(
		`SELECT `+legColumns+` FROM legs WHERE account_id = ? ORDER BY xid DESC LIMIT ? OFFSET ?`,
		accountID, limit, offset,
	)
}

// CountLegs returns the number of legs on accountID.
func (t *Tx) CountLegs(accountID int64) (int, error) {
	var n int
	if err := t.tx.QueryRowContext(t.ctx, `SELECT COUNT(*) FROM legs WHERE account_id = ?`, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting legs of account %d: %w", accountID, err)
	}
	return n, nil
}

// AllLegs returns every leg ordered by xid, then account.
func (t *Tx) AllLegs() ([]model.Leg, error) {
	return t.queryLegs(`SELECT ` + legColumns + ` FROM legs ORDER BY xid, account_id`)
}

func (t *Tx) queryLegs(query string, args ...any) ([]model.Leg, error) {
	rows, err := t.tx.QueryContext(t.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying legs: %w", err)
	}
	defer rows.Close()

	var legs []model.Leg
	for rows.Next() {
		l, err := scanLeg(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning leg: %w", err)
		}
		legs = append(legs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating legs: %w", err)
	}
	return legs, nil
}

func scanLeg(row scanner) (model.Leg, error) {
	var l model.Leg
	var date string
	if err := row.Scan(&l.XID, &date, &l.AccountID, &l.CounterAccountID,
		&l.Debit, &l.Credit, &l.BalanceAfter, &l.Comment); err != nil {
		return model.Leg{}, err
	}
	d, err := parseDate(date)
	if err != nil {
		return model.Leg{}, fmt.Errorf("leg %d date: %w", l.XID, err)
	}
	l.Date = d
	return l, nil
}

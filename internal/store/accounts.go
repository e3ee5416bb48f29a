package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/cleared-dev/debs/internal/model"
)

const accountColumns = `id, type, name, opened_on, closed_on`

// InsertAccount appends a new account and returns its id. A name clash is
// reported as ErrDuplicate.
func (t *Tx) InsertAccount(a model.Account) (int64, error) {
	res, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO accounts (type, name, opened_on, closed_on) VALUES (?, ?, ?, ?)`,
		string(a.Type), a.Name, model.FormatDate(a.OpenedOn), nullDate(a.ClosedOn),
	)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("%w: account name %q", ErrDuplicate, a.Name)
		}
		return 0, fmt.Errorf("inserting account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading account id: %w", err)
	}
	return id, nil
}

// Account returns the account with the given id, or ErrNotFound.
func (t *Tx) Account(id int64) (model.Account, error) {
	row := t.tx.QueryRowContext(t.ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("reading account %d: %w", id, err)
	}
	return a, nil
}

// NameExists reports whether any account, open or closed, has name.
func (t *Tx) NameExists(name string) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(t.ctx, `SELECT COUNT(*) FROM accounts WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking account name: %w", err)
	}
	return n > 0, nil
}

// Accounts returns every account ordered by id.
func (t *Tx) Accounts() ([]model.Account, error) {
	return t.queryAccounts(`SELECT ` + accountColumns + ` FROM accounts ORDER BY id`)
}

// OpenAccounts returns open accounts ordered by type then name.
func (t *Tx) OpenAccounts() ([]model.Account, error) {
	return t.queryAccounts(`SELECT ` + accountColumns + ` FROM accounts WHERE closed_on IS NULL ORDER BY type, name`)
}

// CloseAccount sets closed_on for an open account.
func (t *Tx) CloseAccount(id int64, on time.Time) error {
	res, err := t.tx.ExecContext(t.ctx,
		`UPDATE accounts SET closed_on = ? WHERE id = ? AND closed_on IS NULL`,
		model.FormatDate(on), id,
	)
	if err != nil {
		return fmt.Errorf("closing account %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("closing account %d: %w", id, err)
	}
	if n != 1 {
		return fmt.Errorf("closing account %d: %w", id, ErrNotFound)
	}
	return nil
}

// AccountBalances returns every account with the balance_after of its
// latest leg (0 without legs), ordered by id.
func (t *Tx) AccountBalances() ([]model.AccountBalance, error) {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT a.id, a.type, a.name, a.opened_on, a.closed_on,
		       COALESCE((SELECT l.balance_after FROM legs l
		                 WHERE l.account_id = a.id
		                 ORDER BY l.xid DESC LIMIT 1), 0)
		FROM accounts a
		ORDER BY a.id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying balances: %w", err)
	}
	defer rows.Close()

	var result []model.AccountBalance
	for rows.Next() {
		var ab model.AccountBalance
		var typ, opened string
		var closed sql.NullString
		if err := rows.Scan(&ab.ID, &typ, &ab.Name, &opened, &closed, &ab.Balance); err != nil {
			return nil, fmt.Errorf("scanning balance: %w", err)
		}
		if err := fillAccount(&ab.Account, typ, opened, closed); err != nil {
			return nil, err
		}
		result = append(result, ab)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating balances: %w", err)
	}
	return result, nil
}

func (t *Tx) queryAccounts(query string, args ...any) ([]model.Account, error) {
	rows, err := t.tx.QueryContext(t.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}
	return accounts, nil
}

func scanAccount(row scanner) (model.Account, error) {
	var a model.Account
	var typ, opened string
	var closed sql.NullString
	if err := row.Scan(&a.ID, &typ, &a.Name, &opened, &closed); err != nil {
		return model.Account{}, err
	}
	if err := fillAccount(&a, typ, opened, closed); err != nil {
		return model.Account{}, err
	}
	return a, nil
}

func fillAccount(a *model.Account, typ, opened string, closed sql.NullString) error {
	a.Type = model.AccountType(typ)
	var err error
	if a.OpenedOn, err = parseDate(opened); err != nil {
		return fmt.Errorf("account %d opened_on: %w", a.ID, err)
	}
	if closed.Valid {
		if a.ClosedOn, err = parseDate(closed.String); err != nil {
			return fmt.Errorf("account %d closed_on: %w", a.ID, err)
		}
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(model.DateFormat, s)
}

func nullDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: model.FormatDate(t), Valid: true}
}

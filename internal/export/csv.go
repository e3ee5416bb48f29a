// Package export writes the ledger to CSV files and replays such files into
// an empty ledger.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/debs/internal/model"
)

// AccountsHeader is the CSV header for accounts.csv.
const AccountsHeader = "account_id,type,name,opened_on,closed_on,balance"

// LegsHeader is the CSV header for legs.csv.
const LegsHeader = "xid,date,account_id,counter_account_id,debit,credit,balance_after,comment"

const (
	numAccountFields = 6
	colAcctID        = 0
	colAcctType      = 1
	colAcctName      = 2
	colOpenedOn      = 3
	colClosedOn      = 4
	colAcctBalance   = 5
)

const (
	numLegFields    = 8
	colXID          = 0
	colDate         = 1
	colLegAccount   = 2
	colLegCounter   = 3
	colDebit        = 4
	colCredit       = 5
	colBalanceAfter = 6
	colComment      = 7
)

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// FormatAmount renders minor units as a plain two-decimal string ("-12.30").
func FormatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// ParseAmount is the inverse of FormatAmount. It rejects values with more
// than two decimals.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	minor := d.Shift(2)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has more than two decimals", s)
	}
	if minor.GreaterThan(maxMinor) || minor.LessThan(minMinor) {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return minor.IntPart(), nil
}

// ReadAccounts reads accounts.csv.
func ReadAccounts(r io.Reader) ([]model.AccountBalance, error) {
	records, err := readRecords(r, numAccountFields)
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}
	var accounts []model.AccountBalance
	for i, rec := range records {
		a, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// WriteAccounts writes accounts.csv (including header).
func WriteAccounts(w io.Writer, accounts []model.AccountBalance) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(AccountsHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, a := range accounts {
		if err := cw.Write(MarshalAccount(a)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an account and its balance to a CSV row.
func MarshalAccount(a model.AccountBalance) []string {
	row := make([]string, numAccountFields)
	row[colAcctID] = strconv.FormatInt(a.ID, 10)
	row[colAcctType] = string(a.Type)
	row[colAcctName] = a.Name
	row[colOpenedOn] = model.FormatDate(a.OpenedOn)
	row[colClosedOn] = model.FormatDate(a.ClosedOn)
	row[colAcctBalance] = FormatAmount(a.Balance)
	return row
}

// UnmarshalAccount converts a CSV row to an account with its balance.
func UnmarshalAccount(record []string) (model.AccountBalance, error) {
	if len(record) != numAccountFields {
		return model.AccountBalance{}, fmt.Errorf("expected %d fields, got %d", numAccountFields, len(record))
	}
	var a model.AccountBalance
	var err error
	if a.ID, err = strconv.ParseInt(record[colAcctID], 10, 64); err != nil {
		return model.AccountBalance{}, fmt.Errorf("parsing account_id %q: %w", record[colAcctID], err)
	}
	if a.Type, err = model.ParseAccountType(record[colAcctType]); err != nil {
		return model.AccountBalance{}, err
	}
	a.Name = record[colAcctName]
	if a.OpenedOn, err = model.ParseDate(record[colOpenedOn]); err != nil {
		return model.AccountBalance{}, fmt.Errorf("parsing opened_on: %w", err)
	}
	if a.OpenedOn.IsZero() {
		return model.AccountBalance{}, fmt.Errorf("account %d has no opened_on", a.ID)
	}
	if a.ClosedOn, err = model.ParseDate(record[colClosedOn]); err != nil {
		return model.AccountBalance{}, fmt.Errorf("parsing closed_on: %w", err)
	}
	if a.Balance, err = ParseAmount(record[colAcctBalance]); err != nil {
		return model.AccountBalance{}, err
	}
	return a, nil
}

// ReadLegs reads legs.csv.
func ReadLegs(r io.Reader) ([]model.Leg, error) {
	records, err := readRecords(r, numLegFields)
	if err != nil {
		return nil, fmt.Errorf("reading legs CSV: %w", err)
	}
	var legs []model.Leg
	for i, rec := range records {
		l, err := UnmarshalLeg(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		legs = append(legs, l)
	}
	return legs, nil
}

// WriteLegs writes legs.csv (including header).
func WriteLegs(w io.Writer, legs []model.Leg) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(LegsHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, l := range legs {
		if err := cw.Write(MarshalLeg(l)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalLeg converts a Leg to a CSV row. Zero amounts are left empty.
func MarshalLeg(l model.Leg) []string {
	row := make([]string, numLegFields)
	row[colXID] = strconv.FormatInt(l.XID, 10)
	row[colDate] = model.FormatDate(l.Date)
	row[colLegAccount] = strconv.FormatInt(l.AccountID, 10)
	row[colLegCounter] = strconv.FormatInt(l.CounterAccountID, 10)
	if l.Debit != 0 {
		row[colDebit] = FormatAmount(l.Debit)
	}
	if l.Credit != 0 {
		row[colCredit] = FormatAmount(l.Credit)
	}
	row[colBalanceAfter] = FormatAmount(l.BalanceAfter)
	row[colComment] = l.Comment
	return row
}

// UnmarshalLeg converts a CSV row to a Leg.
func UnmarshalLeg(record []string) (model.Leg, error) {
	if len(record) != numLegFields {
		return model.Leg{}, fmt.Errorf("expected %d fields, got %d", numLegFields, len(record))
	}
	var l model.Leg
	var err error
	for _, f := range []struct {
		col int
		dst *int64
	}{{colXID, &l.XID}, {colLegAccount, &l.AccountID}, {colLegCounter, &l.CounterAccountID}} {
		if *f.dst, err = strconv.ParseInt(record[f.col], 10, 64); err != nil {
			return model.Leg{}, fmt.Errorf("parsing column %d %q: %w", f.col+1, record[f.col], err)
		}
	}
	if l.Date, err = model.ParseDate(record[colDate]); err != nil {
		return model.Leg{}, err
	}
	if l.Date.IsZero() {
		return model.Leg{}, fmt.Errorf("leg %d has no date", l.XID)
	}
	if record[colDebit] != "" {
		if l.Debit, err = ParseAmount(record[colDebit]); err != nil {
			return model.Leg{}, err
		}
	}
	if record[colCredit] != "" {
		if l.Credit, err = ParseAmount(record[colCredit]); err != nil {
			return model.Leg{}, err
		}
	}
	if l.BalanceAfter, err = ParseAmount(record[colBalanceAfter]); err != nil {
		return model.Leg{}, err
	}
	l.Comment = record[colComment]
	return l, nil
}

// readRecords returns the rows after the header.
func readRecords(r io.Reader, fields int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fields
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) <= 1 {
		return nil, nil
	}
	return records[1:], nil
}

package model

import (
	"fmt"
	"strings"
	"time"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeEquity    AccountType = "equity"
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// Polarity tells whether debits or credits increase a balance.
type Polarity int

const (
	PolarityUnknown Polarity = iota
	CreditNormal
	DebitNormal
)

type typeInfo struct {
	polarity Polarity
	label    string
}

var typeTable = map[AccountType]typeInfo{
	AccountTypeEquity:    {CreditNormal, "Equity"},
	AccountTypeAsset:     {DebitNormal, "Assets"},
	AccountTypeLiability: {CreditNormal, "Liabilities"},
	AccountTypeIncome:    {CreditNormal, "Income"},
	AccountTypeExpense:   {DebitNormal, "Expenses"},
}

// AccountTypes returns the five account types in display order.
func AccountTypes() []AccountType {
	return []AccountType{
		AccountTypeEquity,
		AccountTypeAsset,
		AccountTypeLiability,
		AccountTypeIncome,
		AccountTypeExpense,
	}
}

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
	_, ok := typeTable[t]
	return ok
}

// Polarity returns PolarityUnknown for an invalid type.
func (t AccountType) Polarity() Polarity {
	return typeTable[t].polarity
}

// Label is the plural heading used for groups of accounts ("Assets").
func (t AccountType) Label() string {
	if info, ok := typeTable[t]; ok {
		return info.label
	}
	return string(t)
}

// ParseAccountType accepts a type name ("asset") or its label ("Assets"),
// case-insensitively.
func ParseAccountType(s string) (AccountType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range AccountTypes() {
		if s == string(t) || s == strings.ToLower(t.Label()) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown account type %q", s)
}

// Account represents a row in the accounts table.
type Account struct {
	ID       int64
	Type     AccountType
	Name     string
	OpenedOn time.Time
	ClosedOn time.Time // zero = open
}

// IsOpen reports whether the account still accepts legs.
func (a Account) IsOpen() bool {
	return a.ClosedOn.IsZero()
}

// AccountBalance pairs an account with its current balance.
type AccountBalance struct {
	Account
	Balance int64
}

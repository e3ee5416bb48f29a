package ledger

import (
	"errors"
	"strings"

	"github.com/cleared-dev/debs/internal/currency"
	"github.com/cleared-dev/debs/internal/model"
)

// ErrInvalidDate is returned for a date that is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date")

// PostRequest is a post as typed by a user. Blank amount fields are not
// supplied; a blank date means today.
type PostRequest struct {
	AccountID        int64
	CounterAccountID int64
	Date             string
	Debit            string
	Credit           string
	Balance          string
	Comment          string
}

// ParsePostRequest converts r into PostParams using c for amounts. It only
// parses; the ledger checks come from PostTransaction.
func ParsePostRequest(c currency.Codec, r PostRequest) (PostParams, error) {
	p := PostParams{
		AccountID:        r.AccountID,
		CounterAccountID: r.CounterAccountID,
		Comment:          strings.TrimSpace(r.Comment),
	}

	on, err := model.ParseDate(strings.TrimSpace(r.Date))
	if err != nil {
		return PostParams{}, inputErr(ErrInvalidDate, "date", r.Date)
	}
	p.Date = on

	if p.Debit, err = parseAmount(c, "debit", r.Debit); err != nil {
		return PostParams{}, err
	}
	if p.Credit, err = parseAmount(c, "credit", r.Credit); err != nil {
		return PostParams{}, err
	}
	if strings.TrimSpace(r.Balance) != "" {
		target, err := parseAmount(c, "balance", r.Balance)
		if err != nil {
			return PostParams{}, err
		}
		p.Target = &target
	}
	return p, nil
}

func parseAmount(c currency.Codec, field, text string) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	v, err := c.Parse(text)
	if err != nil {
		return 0, &InputError{Err: currency.ErrInvalidAmount, Field: field, Value: text}
	}
	return v, nil
}

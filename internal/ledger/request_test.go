package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/debs/internal/currency"
)

func TestParsePostRequest(t *testing.T) {
	c := currency.DefaultCodec()

	p, err := ParsePostRequest(c, PostRequest{
		AccountID:        1,
		CounterAccountID: 2,
		Date:             "2024-3-7",
		Debit:            "1 200,50",
		Comment:          "  rent  ",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(120050), p.Debit)
	assert.Zero(t, p.Credit)
	assert.Nil(t, p.Target)
	assert.Equal(t, date(2024, 3, 7), p.Date)
	assert.Equal(t, "rent", p.Comment)

	p, err = ParsePostRequest(c, PostRequest{AccountID: 1, CounterAccountID: 2, Balance: "100-25,5", Debit: " "})
	require.NoError(t, err)
	require.NotNil(t, p.Target)
	assert.Equal(t, int64(7450), *p.Target)
	assert.True(t, p.Date.IsZero())
}

func TestParsePostRequest_Invalid(t *testing.T) {
	c := currency.DefaultCodec()

	tests := []struct {
		name  string
		r     PostRequest
		want  error
		field string
	}{
		{"date", PostRequest{Date: "07.03.2024"}, ErrInvalidDate, "date"},
		{"debit", PostRequest{Debit: "12a"}, currency.ErrInvalidAmount, "debit"},
		{"credit", PostRequest{Credit: "1/0"}, currency.ErrInvalidAmount, "credit"},
		{"balance", PostRequest{Balance: "(1"}, currency.ErrInvalidAmount, "balance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePostRequest(c, tt.r)
			requireInput(t, err, tt.want, tt.field)
		})
	}
}

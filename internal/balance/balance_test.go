package balance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/debs/internal/model"
)

func TestApply(t *testing.T) {
	tests := []struct {
		typ         model.AccountType
		old, dr, cr int64
		want        int64
	}{
		{model.AccountTypeAsset, 0, 10000, 0, 10000},
		{model.AccountTypeAsset, 10000, 0, 2500, 7500},
		{model.AccountTypeExpense, 100, 50, 0, 150},
		{model.AccountTypeIncome, 0, 0, 10000, 10000},
		{model.AccountTypeIncome, 10000, 300, 0, 9700},
		{model.AccountTypeEquity, 0, 0, 500, 500},
		{model.AccountTypeLiability, 0, 200, 0, -200},
	}
	for _, tt := range tests {
		got, err := Apply(tt.typ, tt.old, tt.dr, tt.cr)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "Apply(%s, %d, %d, %d)", tt.typ, tt.old, tt.dr, tt.cr)
	}
}

func TestApply_InvalidType(t *testing.T) {
	_, err := Apply("bogus", 0, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidAccountType)

	_, _, err = DeriveFromTarget("bogus", 0, 1)
	assert.ErrorIs(t, err, ErrInvalidAccountType)
}

func TestDeriveFromTarget(t *testing.T) {
	tests := []struct {
		typ         model.AccountType
		old, target int64
		dr, cr      int64
	}{
		{model.AccountTypeAsset, 0, 500, 500, 0},
		{model.AccountTypeAsset, 500, 200, 0, 300},
		{model.AccountTypeExpense, 100, -100, 0, 200},
		{model.AccountTypeIncome, 0, 500, 0, 500},
		{model.AccountTypeLiability, 500, 200, 300, 0},
		{model.AccountTypeEquity, 42, 42, 0, 0},
	}
	for _, tt := range tests {
		dr, cr, err := DeriveFromTarget(tt.typ, tt.old, tt.target)
		require.NoError(t, err)
		assert.Equal(t, tt.dr, dr, "debit for %s %d->%d", tt.typ, tt.old, tt.target)
		assert.Equal(t, tt.cr, cr, "credit for %s %d->%d", tt.typ, tt.old, tt.target)

		// Applying the derived leg must land on the target.
		got, err := Apply(tt.typ, tt.old, dr, cr)
		require.NoError(t, err)
		assert.Equal(t, tt.target, got)
	}
}

func TestContributionOfMirroredPairIsZero(t *testing.T) {
	for _, a := range model.AccountTypes() {
		for _, b := range model.AccountTypes() {
			newA, err := Apply(a, 0, 700, 0)
			require.NoError(t, err)
			newB, err := Apply(b, 0, 0, 700)
			require.NoError(t, err)
			assert.Zero(t, Contribution(a, newA)+Contribution(b, newB), "%s/%s", a, b)
		}
	}
}

func TestApply_Overflow(t *testing.T) {
	got, err := Apply(model.AccountTypeAsset, math.MaxInt64-1, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got)

	for _, tt := range []struct {
		typ         model.AccountType
		old, dr, cr int64
	}{
		{model.AccountTypeAsset, math.MaxInt64 - 1, 2, 0},
		{model.AccountTypeAsset, math.MinInt64, 0, 1},
		{model.AccountTypeIncome, math.MaxInt64, 0, 1},
		{model.AccountTypeLiability, math.MinInt64 + 1, 2, 0},
		{model.AccountTypeExpense, 0, math.MaxInt64, -1},
	} {
		_, err := Apply(tt.typ, tt.old, tt.dr, tt.cr)
		assert.ErrorIs(t, err, ErrOverflow, "Apply(%s, %d, %d, %d)", tt.typ, tt.old, tt.dr, tt.cr)
	}
}

func TestDeriveFromTarget_Overflow(t *testing.T) {
	for _, tt := range []struct {
		old, target int64
	}{
		{-1, math.MaxInt64},
		{1, math.MinInt64},
		{0, math.MinInt64},
	} {
		_, _, err := DeriveFromTarget(model.AccountTypeAsset, tt.old, tt.target)
		assert.ErrorIs(t, err, ErrOverflow, "%d -> %d", tt.old, tt.target)
	}

	dr, cr, err := DeriveFromTarget(model.AccountTypeIncome, math.MinInt64+1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), dr)
	assert.Equal(t, int64(math.MaxInt64), cr)
}

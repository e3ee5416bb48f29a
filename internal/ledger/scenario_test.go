package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/debs/internal/model"
)

func requireEquation(t *testing.T, svc *Service) {
	t.Helper()
	bal, err := svc.Balances(context.Background())
	require.NoError(t, err)
	require.True(t, VerifyAccountingEquation(bal), "imbalance %d", Imbalance(bal))
}

func TestScenario_CashSale(t *testing.T) {
	svc, _ := newTestService(t)
	cash := mustCreate(t, svc, model.AccountTypeAsset, "Cash", date(2024, 1, 1))
	sales := mustCreate(t, svc, model.AccountTypeIncome, "Sales", date(2024, 1, 1))

	mustPost(t, svc, PostParams{AccountID: cash, CounterAccountID: sales, Date: date(2024, 1, 1), Debit: 10000})

	assert.Equal(t, int64(10000), balanceOf(t, svc, cash))
	assert.Equal(t, int64(10000), balanceOf(t, svc, sales))
	requireEquation(t, svc)
}

func TestScenario_AmbiguousAmountLeavesStoreUnchanged(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	cash := mustCreate(t, svc, model.AccountTypeAsset, "Cash", date(2024, 1, 1))
	sales := mustCreate(t, svc, model.AccountTypeIncome, "Sales", date(2024, 1, 1))

	_, err := svc.PostTransaction(ctx, PostParams{AccountID: cash, CounterAccountID: sales, Date: date(2024, 1, 1), Debit: 100, Credit: 100})
	assert.ErrorIs(t, err, ErrAmbiguousAmount)

	var count int
	require.NoError(t, rawDB(t, st).QueryRow(`SELECT COUNT(*) FROM legs`).Scan(&count))
	assert.Zero(t, count)
	assert.Zero(t, balanceOf(t, svc, cash))
}

func TestScenario_DateBeforeOpening(t *testing.T) {
	svc, _ := newTestService(t)
	cash := mustCreate(t, svc, model.AccountTypeAsset, "Cash", date(2024, 1, 1))
	sales := mustCreate(t, svc, model.AccountTypeIncome, "Sales", date(2024, 1, 1))

	_, err := svc.PostTransaction(context.Background(), PostParams{AccountID: cash, CounterAccountID: sales, Date: date(2023, 12, 31), Debit: 100})
	assert.ErrorIs(t, err, ErrDateBeforeOpening)
}

func TestScenario_CloseRequiresZeroBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cash := mustCreate(t, svc, model.AccountTypeAsset, "Cash", date(2024, 1, 1))
	sales := mustCreate(t, svc, model.AccountTypeIncome, "Sales", date(2024, 1, 1))
	mustPost(t, svc, PostParams{AccountID: cash, CounterAccountID: sales, Date: date(2024, 1, 2), Debit: 10000})

	assert.ErrorIs(t, svc.CloseAccount(ctx, cash, date(2024, 1, 3)), ErrNonZeroBalance)

	mustPost(t, svc, PostParams{AccountID: cash, CounterAccountID: sales, Date: date(2024, 1, 3), Credit: 10000})
	require.NoError(t, svc.CloseAccount(ctx, cash, date(2024, 1, 3)))

	_, err := svc.PostTransaction(ctx, PostParams{AccountID: cash, CounterAccountID: sales, Date: date(2024, 1, 4), Debit: 1})
	assert.ErrorIs(t, err, ErrClosedAccount)
	requireEquation(t, svc)
}

func TestScenario_DeleteOnlyAtFrontier(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cash := mustCreate(t, svc, model.AccountTypeAsset, "Cash", date(2024, 1, 1))
	sales := mustCreate(t, svc, model.AccountTypeIncome, "Sales", date(2024, 1, 1))
	capital := mustCreate(t, svc, model.AccountTypeEquity, "Capital", date(2024, 1, 1))
	mustPost(t, svc, PostParams{AccountID: cash, CounterAccountID: capital, Date: date(2024, 1, 1), Debit: 5000})

	before := map[int64]int64{
		cash:  balanceOf(t, svc, cash),
		sales: balanceOf(t, svc, sales),
	}

	x := mustPost(t, svc, PostParams{AccountID: cash, CounterAccountID: sales, Date: date(2024, 1, 5), Debit: 1200})
	y := mustPost(t, svc, PostParams{AccountID: cash, CounterAccountID: sales, Date: date(2024, 1, 6), Debit: 300})

	assert.ErrorIs(t, svc.DeleteTransaction(ctx, x, cash), ErrNewerTransactionsExist)

	require.NoError(t, svc.DeleteTransaction(ctx, y, cash))
	require.NoError(t, svc.DeleteTransaction(ctx, x, cash))

	for id, want := range before {
		assert.Equal(t, want, balanceOf(t, svc, id))
	}
	requireEquation(t, svc)

	got, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

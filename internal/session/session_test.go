package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cleared-dev/debs/internal/config"
	"github.com/cleared-dev/debs/internal/ledger"
	"github.com/cleared-dev/debs/internal/model"
)

func init() {
	hashCost = bcrypt.MinCost
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return config.Default(t.TempDir())
}

func TestUnlock_UnprotectedLedger(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	s, err := Unlock(ctx, cfg, "", nil)
	require.NoError(t, err)
	protected, err := s.Protected(ctx)
	require.NoError(t, err)
	assert.False(t, protected)
	assert.NotNil(t, s.Audit)
	assert.Equal(t, cfg.AuditPath(), s.Audit.Path())
	require.NoError(t, s.Close())

	_, err = Unlock(ctx, cfg, "guess", nil)
	assert.ErrorIs(t, err, ErrWrongKey)
}

func TestChangeKey(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	s, err := Unlock(ctx, cfg, "", nil)
	require.NoError(t, err)
	require.NoError(t, s.ChangeKey(ctx, "s3cret"))
	require.NoError(t, s.Close())

	_, err = Unlock(ctx, cfg, "", nil)
	assert.ErrorIs(t, err, ErrWrongKey)
	_, err = Unlock(ctx, cfg, "wrong", nil)
	assert.ErrorIs(t, err, ErrWrongKey)

	s, err = Unlock(ctx, cfg, "s3cret", nil)
	require.NoError(t, err)
	protected, err := s.Protected(ctx)
	require.NoError(t, err)
	assert.True(t, protected)

	require.NoError(t, s.ChangeKey(ctx, ""))
	require.NoError(t, s.Close())

	s, err = Unlock(ctx, cfg, "", nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestUnlock_WiresConfiguration(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Audit.Enabled = false
	cfg.Format.DecimalSeparator = "."
	cfg.Format.ThousandsSeparator = ","
	cfg.Store.Path = filepath.Join("data", "books.db")
	today := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	s, err := Unlock(ctx, cfg, "", nil, WithClock(func() time.Time { return today }))
	require.NoError(t, err)
	defer s.Close()

	assert.Nil(t, s.Audit)
	assert.Equal(t, filepath.Join(cfg.Dir(), "data", "books.db"), s.Store().Path())
	assert.Equal(t, "1,234.50", s.Codec.Format(123450))

	id, err := s.Ledger.CreateAccount(ctx, ledger.CreateAccountParams{Type: model.AccountTypeAsset, Name: "Cash"})
	require.NoError(t, err)
	turnovers, err := s.Statements.Turnovers(ctx, id, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, today, turnovers.Start)
	assert.Equal(t, today, turnovers.End)
}

// Package session opens a ledger for one command: it checks the unlock key
// and wires the store, services and audit log from the configuration.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cleared-dev/debs/internal/auditlog"
	"github.com/cleared-dev/debs/internal/config"
	"github.com/cleared-dev/debs/internal/currency"
	"github.com/cleared-dev/debs/internal/ledger"
	"github.com/cleared-dev/debs/internal/statement"
	"github.com/cleared-dev/debs/internal/store"
)

// ErrWrongKey is returned when the key does not unlock the ledger.
var ErrWrongKey = errors.New("wrong key")

const metaKeyHash = "key_hash"

// hashCost is lowered in tests.
var hashCost = bcrypt.DefaultCost

// Session is an unlocked ledger. Close it when done.
type Session struct {
	Ledger     *ledger.Service
	Statements *statement.Reader
	Codec      currency.Codec
	Audit      *auditlog.Log // nil when auditing is disabled

	store *store.Store
	log   *zap.Logger
}

// Option configures Unlock.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the ledger's notion of today.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Unlock opens the store named by cfg and checks key against the stored
// hash. A ledger without a key only unlocks with an empty key.
func Unlock(ctx context.Context, cfg *config.Config, key string, logger *zap.Logger, opts ...Option) (*Session, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	st, err := store.Open(ctx, cfg.StorePath())
	if err != nil {
		return nil, err
	}
	if err := checkKey(ctx, st, key); err != nil {
		st.Close()
		logger.Warn("unlock refused", zap.String("store", st.Path()))
		return nil, err
	}

	s := &Session{
		Ledger: ledger.NewService(st,
			ledger.WithLogger(logger),
			ledger.WithClock(o.now),
			ledger.WithVerifyOnCommit(cfg.Integrity.VerifyOnCommit),
		),
		Statements: statement.NewReader(st,
			statement.WithCodec(cfg.Codec()),
			statement.WithPageSize(cfg.Statement.PageSize),
			statement.WithClock(o.now),
		),
		Codec: cfg.Codec(),
		store: st,
		log:   logger,
	}
	if cfg.Audit.Enabled {
		s.Audit = auditlog.New(cfg.AuditPath())
	}
	logger.Debug("ledger unlocked", zap.String("store", st.Path()))
	return s, nil
}

func checkKey(ctx context.Context, st *store.Store, key string) error {
	return st.View(ctx, func(tx *store.Tx) error {
		hash, ok, err := tx.Meta(metaKeyHash)
		if err != nil {
			return err
		}
		if !ok {
			if key != "" {
				return ErrWrongKey
			}
			return nil
		}
		err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrWrongKey
		}
		if err != nil {
			return fmt.Errorf("checking key: %w", err)
		}
		return nil
	})
}

// Protected reports whether the ledger requires a key.
func (s *Session) Protected(ctx context.Context) (bool, error) {
	var ok bool
	err := s.store.View(ctx, func(tx *store.Tx) error {
		var err error
		_, ok, err = tx.Meta(metaKeyHash)
		return err
	})
	return ok, err
}

// ChangeKey replaces the unlock key. An empty key removes protection.
func (s *Session) ChangeKey(ctx context.Context, newKey string) error {
	var hash []byte
	if newKey != "" {
		var err error
		if hash, err = bcrypt.GenerateFromPassword([]byte(newKey), hashCost); err != nil {
			return fmt.Errorf("hashing key: %w", err)
		}
	}
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		if hash == nil {
			return tx.DeleteMeta(metaKeyHash)
		}
		return tx.SetMeta(metaKeyHash, string(hash))
	})
	if err != nil {
		return err
	}
	s.log.Info("key changed", zap.Bool("protected", hash != nil))
	return nil
}

// Store returns the underlying store.
func (s *Session) Store() *store.Store { return s.store }

// Close releases the store.
func (s *Session) Close() error {
	return s.store.Close()
}

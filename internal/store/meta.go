package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Meta returns the value stored under key. ok is false if unset.
func (t *Tx) Meta(key string) (value string, ok bool, err error) {
	err = t.tx.QueryRowContext(t.ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading meta %q: %w", key, err)
	}
	return value, true, nil
}

// SetMeta stores value under key, replacing any previous value.
func (t *Tx) SetMeta(key, value string) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("writing meta %q: %w", key, err)
	}
	return nil
}

// DeleteMeta removes key. Deleting an unset key is not an error.
func (t *Tx) DeleteMeta(key string) error {
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM meta WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting meta %q: %w", key, err)
	}
	return nil
}

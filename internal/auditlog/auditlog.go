// Package auditlog keeps an append-only CSV record of every committed ledger
// mutation.
package auditlog

import (
	"crypto/rand"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Actions recorded in the log.
const (
	ActionCreateAccount = "create_account"
	ActionCloseAccount  = "close_account"
	ActionPost          = "post_transaction"
	ActionDelete        = "delete_transaction"
	ActionSetKey        = "set_key"
	ActionImport        = "import"
)

// Entry is one row in the audit log. Zero AccountID or XID are written as
// empty cells.
type Entry struct {
	ID        string
	Timestamp time.Time
	Action    string
	AccountID int64
	XID       int64
	Details   string
}

// Header is the CSV header for audit-log.csv.
const Header = "id,timestamp,action,account_id,xid,details"

const (
	numFields    = 6
	colID        = 0
	colTimestamp = 1
	colAction    = 2
	colAccountID = 3
	colXID       = 4
	colDetails   = 5
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a ULID for t. IDs generated in one process sort in creation
// order.
func NewID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colID] = e.ID
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colAction] = e.Action
	row[colAccountID] = optionalID(e.AccountID)
	row[colXID] = optionalID(e.XID)
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	if _, err := ulid.ParseStrict(record[colID]); err != nil {
		return Entry{}, fmt.Errorf("parsing id %q: %w", record[colID], err)
	}
	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	accountID, err := parseOptionalID(record[colAccountID])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing account_id: %w", err)
	}
	xid, err := parseOptionalID(record[colXID])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing xid: %w", err)
	}
	return Entry{
		ID:        record[colID],
		Timestamp: ts,
		Action:    record[colAction],
		AccountID: accountID,
		XID:       xid,
		Details:   record[colDetails],
	}, nil
}

func optionalID(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

func parseOptionalID(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// Append writes entries to path, creating the file, its directory and the
// header if needed. Entries without an ID or timestamp get one.
func Append(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating audit log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if e.Timestamp.IsZero() {
			e.Timestamp = time.Now()
		}
		if e.ID == "" {
			e.ID = NewID(e.Timestamp)
		}
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from path. Returns an empty slice if the file
// does not exist.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Log records entries to a file. A nil *Log records nothing.
type Log struct {
	path string
	now  func() time.Time
}

// New returns a Log writing to path.
func New(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Path returns the file the Log writes to, or "" for a nil Log.
func (l *Log) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Record appends a single entry stamped with the current time.
func (l *Log) Record(action string, accountID, xid int64, details string) error {
	if l == nil {
		return nil
	}
	now := l.now()
	return Append(l.path, []Entry{{
		ID:        NewID(now),
		Timestamp: now,
		Action:    action,
		AccountID: accountID,
		XID:       xid,
		Details:   details,
	}})
}

package auditlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		ID:        NewID(testTime),
		Timestamp: testTime,
		Action:    ActionPost,
		AccountID: 3,
		XID:       17,
		Details:   "debit 100,00 against 5",
	}
}

func TestAppend_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit-log.csv")
	require.NoError(t, Append(path, []Entry{testEntry()}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ActionPost, entries[0].Action)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), Header+"\n"))
}

func TestAppend_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit-log.csv")
	require.NoError(t, Append(path, []Entry{testEntry()}))

	e2 := testEntry()
	e2.ID = ""
	e2.Action = ActionCloseAccount
	e2.XID = 0
	require.NoError(t, Append(path, []Entry{e2}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionPost, entries[0].Action)
	assert.Equal(t, ActionCloseAccount, entries[1].Action)
	assert.NotEmpty(t, entries[1].ID)
	assert.Zero(t, entries[1].XID)
	assert.Less(t, entries[0].ID, entries[1].ID)
}

func TestRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit-log.csv")
	original := testEntry()
	original.Details = `comment with "quotes", commas`
	require.NoError(t, Append(path, []Entry{original}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, original, entries[0])
}

func TestRead_NotExist(t *testing.T) {
	entries, err := Read(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUnmarshalEntry_Invalid(t *testing.T) {
	_, err := UnmarshalEntry([]string{"x"})
	assert.Error(t, err)

	_, err = UnmarshalEntry([]string{"not-a-ulid", "2025-01-15T10:30:00Z", ActionPost, "", "", ""})
	assert.Error(t, err)

	row := MarshalEntry(testEntry())
	row[colXID] = "abc"
	_, err = UnmarshalEntry(row)
	assert.Error(t, err)
}

func TestLog_Record(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit-log.csv")
	l := New(path)
	l.now = func() time.Time { return testTime }

	require.NoError(t, l.Record(ActionCreateAccount, 1, 0, "asset Cash"))
	require.NoError(t, l.Record(ActionPost, 1, 1, ""))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, testTime, entries[0].Timestamp)
	assert.Equal(t, int64(1), entries[1].XID)
	assert.Equal(t, path, l.Path())

	var disabled *Log
	assert.NoError(t, disabled.Record(ActionPost, 1, 1, ""))
	assert.Empty(t, disabled.Path())
}

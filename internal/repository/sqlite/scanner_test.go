package sqlite

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	values []interface{}
	err    error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.values[i].(int64)
		case *string:
			*p = r.values[i].(string)
		case interface{ Scan(interface{}) error }:
			if err := p.Scan(r.values[i]); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported destination %T", d)
		}
	}
	return nil
}

type fakeRows struct {
	rows []fakeRow
	pos  int
	err  error
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.rows)
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	return r.rows[r.pos-1].Scan(dest...)
}

func (r *fakeRows) Err() error { return r.err }

func TestScanTransition(t *testing.T) {
	row := fakeRow{values: []interface{}{int64(1), "s1", "tracking", "main", "main", int64(101), "", "2026-03-02T09:00:00.5Z"}}

	tr, err := ScanTransition(row)
	require.NoError(t, err)
	assert.Equal(t, "main", tr.Branch)
	require.NotNil(t, tr.EntryID)
	assert.Equal(t, int64(101), *tr.EntryID)
	assert.Equal(t, 500000000, tr.At.Nanosecond())
}

func TestScanTransition_NullEntry(t *testing.T) {
	row := fakeRow{values: []interface{}{int64(2), "s1", "idle", "main", "", nil, "", "2026-03-02T09:00:00Z"}}

	tr, err := ScanTransition(row)
	require.NoError(t, err)
	assert.Nil(t, tr.EntryID)
}

func TestScanTransition_BadTime(t *testing.T) {
	row := fakeRow{values: []interface{}{int64(3), "s1", "idle", "", "", nil, "", "yesterday"}}
	_, err := ScanTransition(row)
	assert.Error(t, err)
}

func TestScanTransitions(t *testing.T) {
	rows := &fakeRows{rows: []fakeRow{
		{values: []interface{}{int64(1), "s", "tracking", "", "", nil, "", "2026-03-02T09:00:00Z"}},
		{values: []interface{}{int64(2), "s", "idle", "", "", nil, "", "2026-03-02T09:10:00Z"}},
	}}
	out, err := ScanTransitions(rows)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	rows = &fakeRows{err: fmt.Errorf("cursor closed")}
	_, err = ScanTransitions(rows)
	assert.Error(t, err)
}

func TestFormatTimeRoundTrip(t *testing.T) {
	s := "2026-03-02T09:00:00.123Z"
	parsed, err := ParseTimeFromDB(s)
	require.NoError(t, err)
	assert.Equal(t, s, FormatTimeForDB(parsed))
	assert.Nil(t, NullableInt64(nil))
	v := int64(5)
	assert.Equal(t, int64(5), NullableInt64(&v))
}

package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podstudio/internal/domain"
	"podstudio/internal/sqlinline"
)

type fakeExecutor struct {
	queries []string
	args    [][]any
	tag     pgconn.CommandTag
	row     pgx.Row
	rows    pgx.Rows
	err     error
}

func (f *fakeExecutor) record(query string, args []any) {
	f.queries = append(f.queries, query)
	f.args = append(f.args, args)
}

func (f *fakeExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.record(query, args)
	return f.tag, f.err
}

func (f *fakeExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	f.record(query, args)
	return f.row
}

func (f *fakeExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	f.record(query, args)
	return f.rows, f.err
}

type valuesRow struct {
	values []any
	err    error
}

func (r valuesRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *int64:
			*p = r.values[i].(int64)
		case *[]byte:
			*p = r.values[i].([]byte)
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			return errors.New("unsupported destination")
		}
	}
	return nil
}

// sliceRows is a pgx.Rows over in-memory rows.
type sliceRows struct {
	rows   []valuesRow
	idx    int
	closed bool
}

func (s *sliceRows) Close()                                       { s.closed = true }
func (s *sliceRows) Err() error                                   { return nil }
func (s *sliceRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (s *sliceRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (s *sliceRows) Values() ([]any, error)                       { return s.rows[s.idx-1].values, nil }
func (s *sliceRows) RawValues() [][]byte                          { return nil }
func (s *sliceRows) Conn() *pgx.Conn                              { return nil }

func (s *sliceRows) Next() bool {
	if s.idx >= len(s.rows) {
		return false
	}
	s.idx++
	return true
}

func (s *sliceRows) Scan(dest ...any) error { return s.rows[s.idx-1].Scan(dest...) }

const recordID = "0f8fad5b-d9cb-469f-a165-70867728950e"

func recordRow(id, title string, metadata []byte, at time.Time) valuesRow {
	return valuesRow{values: []any{id, "user-1", "design", title, "library/user-1/design/a.png", "https://cdn/a.png", "image/png", int64(42), metadata, at}}
}

func TestDesignRepositoryCreate(t *testing.T) {
	exec := &fakeExecutor{}
	repo := NewDesignRepository(exec)
	at := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	err := repo.Create(context.Background(), &domain.DesignRecord{
		ID: recordID, UserID: "user-1", Kind: domain.DesignKindDesign, Title: "Cat",
		StorageKey: "k", URL: "u", MIME: "image/png", Bytes: 42, CreatedAt: at,
	})
	require.NoError(t, err)

	require.Len(t, exec.queries, 1)
	assert.Equal(t, sqlinline.QInsertDesignRecord, exec.queries[0])
	args := exec.args[0]
	require.Len(t, args, 10)
	assert.Equal(t, recordID, args[0])
	assert.Equal(t, "design", args[2])
	assert.Nil(t, args[8], "absent metadata is sent as null")
	assert.Equal(t, at, args[9])
}

func TestDesignRepositoryCreateRejectsBadID(t *testing.T) {
	exec := &fakeExecutor{}
	err := NewDesignRepository(exec).Create(context.Background(), &domain.DesignRecord{ID: "nope"})
	require.Error(t, err)
	assert.Empty(t, exec.queries)
}

func TestDesignRepositoryListByUser(t *testing.T) {
	newer := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	rows := &sliceRows{rows: []valuesRow{
		recordRow(recordID, "Newer", []byte(`{"variant_id":4012}`), newer),
		recordRow("1b4e28ba-2fa1-11d2-883f-0016d3cca427", "Older", []byte(`{}`), older),
	}}
	exec := &fakeExecutor{rows: rows}

	list, err := NewDesignRepository(exec).ListByUser(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, "Newer", list[0].Title)
	assert.Equal(t, domain.DesignKindDesign, list[0].Kind)
	assert.JSONEq(t, `{"variant_id":4012}`, string(list[0].Metadata))
	assert.Nil(t, list[1].Metadata)
	assert.True(t, rows.closed)
	assert.Equal(t, []any{"user-1", DefaultListLimit}, exec.args[0])
}

func TestDesignRepositoryGetByID(t *testing.T) {
	at := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	exec := &fakeExecutor{row: recordRow(recordID, "Cat", nil, at)}

	rec, err := NewDesignRepository(exec).GetByID(context.Background(), "user-1", recordID)
	require.NoError(t, err)
	assert.Equal(t, "Cat", rec.Title)
	assert.Equal(t, []any{recordID, "user-1"}, exec.args[0])
}

func TestDesignRepositoryGetByIDNotFound(t *testing.T) {
	exec := &fakeExecutor{row: valuesRow{err: pgx.ErrNoRows}}
	repo := NewDesignRepository(exec)

	_, err := repo.GetByID(context.Background(), "user-1", recordID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetByID(context.Background(), "user-1", "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, exec.queries, 1, "malformed ids never reach the database")
}

func TestDesignRepositoryDelete(t *testing.T) {
	exec := &fakeExecutor{tag: pgconn.NewCommandTag("DELETE 1")}
	require.NoError(t, NewDesignRepository(exec).Delete(context.Background(), "user-1", recordID))

	exec = &fakeExecutor{tag: pgconn.NewCommandTag("DELETE 0")}
	err := NewDesignRepository(exec).Delete(context.Background(), "user-1", recordID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDB captures the SQL and arguments of the last call and returns
// empty results, so query shape can be asserted without a database.
type recordingDB struct {
	lastSQL  string
	lastArgs []any
}

func (d *recordingDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	d.lastSQL, d.lastArgs = sql, arguments
	return pgconn.CommandTag{}, nil
}

func (d *recordingDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	d.lastSQL, d.lastArgs = sql, args
	return emptyRows{}, nil
}

func (d *recordingDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	d.lastSQL, d.lastArgs = sql, args
	return emptyRow{}
}

type emptyRows struct{}

func (emptyRows) Close()                                       {}
func (emptyRows) Err() error                                   { return nil }
func (emptyRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (emptyRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (emptyRows) Next() bool                                   { return false }
func (emptyRows) Scan(dest ...any) error                       { return nil }
func (emptyRows) Values() ([]any, error)                       { return nil, nil }
func (emptyRows) RawValues() [][]byte                          { return nil }
func (emptyRows) Conn() *pgx.Conn                              { return nil }

type emptyRow struct{}

func (emptyRow) Scan(dest ...any) error { return pgx.ErrNoRows }

func TestListPendingAnalysisCoversFailedAndStuckDocuments(t *testing.T) {
	db := &recordingDB{}
	repo := NewDocumentRepository(db)

	docs, err := repo.ListPendingAnalysis(context.Background(), 50)
	require.NoError(t, err)
	assert.Empty(t, docs)

	assert.Contains(t, db.lastSQL, "'uploaded'")
	assert.Contains(t, db.lastSQL, "'failed'", "failed documents must be re-picked")
	assert.Contains(t, db.lastSQL, "'analyzing'", "documents stranded by a crashed run must be re-picked")
	assert.Contains(t, db.lastSQL, "updated_at < NOW() - INTERVAL")
	assert.Equal(t, []any{50}, db.lastArgs)
}

package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabscope-labs/tabscope/internal/engine"
	"github.com/tabscope-labs/tabscope/internal/protocol"
	"github.com/tabscope-labs/tabscope/internal/testutil"
)

// scriptedEngine records every statement and answers from a sqlmock-backed
// handle, so ordering properties can be asserted without a real engine.
type scriptedEngine struct {
	db      *sql.DB
	queries []string
}

func (s *scriptedEngine) Open(_ context.Context, _ engine.Config) error { return nil }

func (s *scriptedEngine) Query(ctx context.Context, sqlStr string) (*engine.Rows, error) {
	s.queries = append(s.queries, sqlStr)
	rows, err := s.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, err
	}
	return &engine.Rows{Rows: rows}, nil
}

func (s *scriptedEngine) Close() error { return s.db.Close() }

func (s *scriptedEngine) Name() string { return "scripted" }

var scriptedCounter int

// openScripted registers a one-off engine answering any statement in the
// order expectations were queued, and opens a document over it.
func openScripted(t *testing.T) (*Document, *scriptedEngine, sqlmock.Sqlmock) {
	t.Helper()

	matchAny := sqlmock.QueryMatcherFunc(func(_, _ string) error { return nil })
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matchAny))
	require.NoError(t, err)

	eng := &scriptedEngine{db: db}
	scriptedCounter++
	name := fmt.Sprintf("scripted-%d", scriptedCounter)
	engine.Register(name, func() engine.Engine { return eng })

	doc, err := Open(context.Background(), Config{
		URI:    "test://doc",
		Path:   "test.parquet",
		Engine: name,
		Logger: testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = doc.Dispose() })

	return doc, eng, mock
}

func explainRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"explain_key", "explain_value"}).AddRow("physical_plan", "SEQ_SCAN")
}

func TestRunQueryValidationFailureSkipsExecution(t *testing.T) {
	doc, eng, mock := openScripted(t)
	mock.ExpectQuery("").WillReturnError(errors.New(`Catalog Error: Table with name nonexistent does not exist`))

	resp := doc.RunQuery(context.Background(), "SELECT * FROM nonexistent", 10)

	assert.Equal(t, protocol.KindQuery, resp.Kind)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "Catalog Error")
	assert.Nil(t, resp.Results)

	// Only the explain pass reached the engine.
	require.Len(t, eng.queries, 1)
	assert.Equal(t, "EXPLAIN SELECT * FROM nonexistent", eng.queries[0])
}

func TestRunQueryBoundedExecution(t *testing.T) {
	doc, eng, mock := openScripted(t)
	mock.ExpectQuery("").WillReturnRows(explainRows())
	mock.ExpectQuery("").WillReturnRows(
		sqlmock.NewRows([]string{"n"}).AddRow(int64(1)).AddRow(int64(2)),
	)

	resp := doc.RunQuery(context.Background(), "SELECT * FROM data;", 10)

	require.True(t, resp.Success, resp.Message)
	require.Len(t, eng.queries, 2)
	assert.Equal(t, "EXPLAIN SELECT * FROM data;", eng.queries[0])
	assert.Equal(t, "SELECT * FROM (SELECT * FROM data) LIMIT 10 OFFSET 0", eng.queries[1])

	// 64-bit integers were cleaned for transport.
	require.Len(t, resp.Results, 2)
	assert.Equal(t, float64(1), resp.Results[0]["n"])
}

func TestRunQueryDescribeVerbatim(t *testing.T) {
	doc, eng, mock := openScripted(t)
	mock.ExpectQuery("").WillReturnRows(explainRows())
	mock.ExpectQuery("").WillReturnRows(
		sqlmock.NewRows([]string{"column_name", "column_type"}).AddRow("n", "BIGINT"),
	)

	resp := doc.RunQuery(context.Background(), "DESCRIBE data", 10)

	require.True(t, resp.Success, resp.Message)
	require.Len(t, eng.queries, 2)
	assert.Equal(t, "DESCRIBE data", eng.queries[1], "no LIMIT/OFFSET wrapper for describe")
}

func TestRunQueryExecutionError(t *testing.T) {
	doc, _, mock := openScripted(t)
	mock.ExpectQuery("").WillReturnRows(explainRows())
	mock.ExpectQuery("").WillReturnError(errors.New("Out of Memory Error"))

	resp := doc.RunQuery(context.Background(), "SELECT * FROM data", 10)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "Out of Memory")
}

func TestFetchMoreSkipsValidation(t *testing.T) {
	doc, eng, mock := openScripted(t)
	mock.ExpectQuery("").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(6)))

	resp := doc.FetchMore(context.Background(), "SELECT * FROM data", 5, 5)

	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, protocol.KindMore, resp.Kind)
	require.Len(t, eng.queries, 1)
	assert.Equal(t, "SELECT * FROM (SELECT * FROM data) LIMIT 5 OFFSET 5", eng.queries[0])
}

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func openCSV(t *testing.T, engineName, content string) *Document {
	t.Helper()
	path := writeCSV(t, "data.csv", content)
	doc, err := Open(context.Background(), Config{
		URI:    path,
		Path:   path,
		Engine: engineName,
		Logger: testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = doc.Dispose() })
	return doc
}

func TestRunQueryEndToEnd(t *testing.T) {
	doc := openCSV(t, "sqlite", "name,score\na,1\nb,2\nc,3\n")

	resp := doc.RunQuery(context.Background(), "SELECT * FROM data", 10)

	require.True(t, resp.Success, resp.Message)
	assert.Empty(t, resp.Message)
	require.Len(t, resp.Results, 3, "3 rows, no truncation at limit 10")
}

func TestRunQueryEndToEndValidationFailure(t *testing.T) {
	doc := openCSV(t, "sqlite", "n\n1\n")

	resp := doc.RunQuery(context.Background(), "SELECT * FROM nonexistent", 10)

	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
	assert.Nil(t, resp.Results)
}

func TestFetchMorePaging(t *testing.T) {
	var b strings.Builder
	b.WriteString("n\n")
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, "%d\n", i)
	}
	doc := openCSV(t, "sqlite", b.String())

	resp := doc.FetchMore(context.Background(), "SELECT * FROM data ORDER BY n", 5, 5)

	require.True(t, resp.Success, resp.Message)
	require.Len(t, resp.Results, 5)
	for i, row := range resp.Results {
		assert.EqualValues(t, 6+i, row["n"])
	}
}

func TestFetchMoreAtOffsetZeroMatchesRunQuery(t *testing.T) {
	doc := openCSV(t, "sqlite", "n\n1\n2\n3\n4\n5\n")

	first := doc.RunQuery(context.Background(), "SELECT * FROM data ORDER BY n", 3)
	require.True(t, first.Success, first.Message)

	again := doc.FetchMore(context.Background(), "SELECT * FROM data ORDER BY n", 3, 0)
	require.True(t, again.Success, again.Message)

	assert.Equal(t, first.Results, again.Results)
}

func TestDescribeEndToEnd(t *testing.T) {
	doc := openCSV(t, "duckdb", "name,score\na,1\n")

	resp := doc.RunQuery(context.Background(), "DESCRIBE data", 10)

	require.True(t, resp.Success, resp.Message)
	require.Len(t, resp.Results, 2, "one schema row per column")
	assert.Equal(t, "name", resp.Results[0]["column_name"])
}

func TestDisposeNotifiesEveryCall(t *testing.T) {
	doc := openCSV(t, "sqlite", "n\n1\n")

	var notified int
	doc.OnDispose(func() { notified++ })

	require.NoError(t, doc.Dispose())
	assert.True(t, doc.Disposed())
	assert.Equal(t, 1, notified)

	// No dedup guard: a second dispose notifies again.
	_ = doc.Dispose()
	assert.Equal(t, 2, notified)
}

func TestSchema(t *testing.T) {
	doc := openCSV(t, "sqlite", "name,score\na,1\n")

	cols, err := doc.Schema(context.Background())
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "name", cols[0]["column_name"])
}

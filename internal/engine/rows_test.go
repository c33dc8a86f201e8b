package engine

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowsCollect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "note"}).
			AddRow(int64(1), "alpha", []byte("raw")).
			AddRow(int64(2), "beta", nil),
	)

	raw, err := db.Query("SELECT id, name, note FROM things")
	require.NoError(t, err)

	rows, err := (&Rows{Rows: raw}).Collect()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, int64(1), rows[0]["id"])
	assert.Equal(t, "alpha", rows[0]["name"])
	// []byte cells come back as strings.
	assert.Equal(t, "raw", rows[0]["note"])
	assert.Nil(t, rows[1]["note"])
}

func TestRowsCollectEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	raw, err := db.Query("SELECT id FROM things")
	require.NoError(t, err)

	rows, err := (&Rows{Rows: raw}).Collect()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuckDBOpenAndQuery(t *testing.T) {
	path := writeCSV(t, "cities.csv", "name,population\nOslo,709037\nBergen,291940\nTrondheim,212660\n")

	eng := NewDuckDB()
	require.NoError(t, eng.Open(context.Background(), Config{Path: path}))
	defer func() { _ = eng.Close() }()

	rows, err := eng.Query(context.Background(), "SELECT * FROM data ORDER BY population DESC")
	require.NoError(t, err)

	results, err := rows.Collect()
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Oslo", results[0]["name"])
}

func TestDuckDBDescribeView(t *testing.T) {
	path := writeCSV(t, "cities.csv", "name,population\nOslo,709037\n")

	eng := NewDuckDB()
	require.NoError(t, eng.Open(context.Background(), Config{Path: path}))
	defer func() { _ = eng.Close() }()

	rows, err := eng.Query(context.Background(), "DESCRIBE data")
	require.NoError(t, err)

	results, err := rows.Collect()
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "name", results[0]["column_name"])
	assert.Equal(t, "population", results[1]["column_name"])
}

func TestDuckDBUnsupportedExtension(t *testing.T) {
	eng := NewDuckDB()
	err := eng.Open(context.Background(), Config{Path: "data.xlsx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestDuckDBRelation(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		contains string
	}{
		{"parquet", "events.parquet", "read_parquet("},
		{"csv", "events.csv", "read_csv_auto("},
		{"tsv", "events.tsv", "read_csv_auto("},
		{"json lines", "events.ndjson", "read_json_auto("},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel, err := duckdbRelation(tt.path)
			require.NoError(t, err)
			assert.Contains(t, rel, tt.contains)
		})
	}
}

func TestDuckDBRelationEscapesQuotes(t *testing.T) {
	rel, err := duckdbRelation("it's.csv")
	require.NoError(t, err)
	assert.Contains(t, rel, "it''s.csv")
}

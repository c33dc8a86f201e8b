package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHasBuiltins(t *testing.T) {
	assert.True(t, IsRegistered("duckdb"))
	assert.True(t, IsRegistered("sqlite"))
	assert.True(t, IsRegistered("DuckDB"), "lookup is case-insensitive")
}

func TestNewUnknownEngine(t *testing.T) {
	_, err := New("oracle")
	require.Error(t, err)

	var unknown *UnknownEngineError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "oracle", unknown.Name)
	assert.Contains(t, unknown.Available, "duckdb")
	assert.Contains(t, err.Error(), "unknown engine")
}

func TestConfigViewName(t *testing.T) {
	assert.Equal(t, "data", Config{}.ViewName())
	assert.Equal(t, "rows", Config{View: "rows"}.ViewName())
}

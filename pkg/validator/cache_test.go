package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapgate/pkg/core"
)

func TestCached_ReturnsSameResult(t *testing.T) {
	c, err := NewCached(8)
	require.NoError(t, err)

	sql := "SELECT * FROM t WHERE a = ?"
	first := c.Validate(sql)
	second := c.Validate(sql)
	assert.Equal(t, first, second)
	assert.Equal(t, Validate(sql), second)
	assert.Equal(t, 1, c.Len())
}

func TestCached_ResultsAreIsolated(t *testing.T) {
	c, err := NewCached(8)
	require.NoError(t, err)

	sql := "SELECT * FROM t WHERE a = ?"
	first := c.Validate(sql)
	first.Parameters[0] = "mutated"
	first.Warnings = nil

	again := c.Validate(sql)
	assert.Equal(t, []string{"?1"}, again.Parameters)
	assert.NotEmpty(t, again.Warnings)
}

func TestCached_KeysBySyntax(t *testing.T) {
	c, err := NewCached(8)
	require.NoError(t, err)

	sql := "SELECT 1 # 'x\nDELETE FROM t -- '"
	assert.True(t, c.Validate(sql).Valid)
	assert.False(t, c.ValidateFor(sql, core.EngineMySQL).Valid)
	assert.True(t, c.ValidateFor(sql, core.EnginePostgres).Valid)
	assert.Equal(t, 2, c.Len())
}

func TestCached_Evicts(t *testing.T) {
	c, err := NewCached(2)
	require.NoError(t, err)
	c.Validate("SELECT 1")
	c.Validate("SELECT 2")
	c.Validate("SELECT 3")
	assert.Equal(t, 2, c.Len())
}

func TestNewCached_InvalidSize(t *testing.T) {
	_, err := NewCached(0)
	assert.Error(t, err)
}

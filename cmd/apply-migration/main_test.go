package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	script := `-- header comment
CREATE TABLE a (id INT);

  -- indented comment
CREATE INDEX idx_a ON a (id);
`
	stmts := splitStatements(script)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (id INT)", stmts[0])
	assert.Equal(t, "CREATE INDEX idx_a ON a (id)", stmts[1])
}

func TestSplitStatements_AuditSchema(t *testing.T) {
	b, err := os.ReadFile("../../" + defaultMigration)
	require.NoError(t, err)

	stmts := splitStatements(string(b))
	require.NotEmpty(t, stmts)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS laboratories")
	for _, s := range stmts {
		assert.NotContains(t, s, "--")
	}
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "CREATE TABLE a (", firstLine("CREATE TABLE a (\n id INT\n)"))
	assert.Equal(t, "SELECT 1", firstLine("SELECT 1"))
}

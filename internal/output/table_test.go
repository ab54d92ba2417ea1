package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Render(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"team_id", "team_name"})
	table.AddRow([]string{"t-1", "engineering"})
	table.AddRow([]string{"t-2", "research"})

	require.NoError(t, table.Render())

	out := buf.String()
	assert.Contains(t, out, "team_id")
	assert.Contains(t, out, "engineering")
	assert.Contains(t, out, "research")
}

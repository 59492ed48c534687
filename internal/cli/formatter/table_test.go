package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTableAlignment(t *testing.T) {
	out := RenderTable(
		[]string{"CODE", "BAC"},
		[][]string{
			{"01", "1,000.00"},
			{"01.01", "5.00"},
		},
	)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)

	// Label columns pad on the right, money columns on the left.
	assert.True(t, strings.HasPrefix(lines[2], "01 "), "got %q", lines[2])
	assert.True(t, strings.HasSuffix(lines[2], "1,000.00"), "got %q", lines[2])
	assert.True(t, strings.HasSuffix(lines[3], "    5.00"), "got %q", lines[3])
}

func TestRenderTableEmptyHeaders(t *testing.T) {
	assert.Equal(t, "", RenderTable(nil, nil))
}

func TestRenderTableShortRows(t *testing.T) {
	out := RenderTable([]string{"CODE", "STATUS"}, [][]string{{"01"}})
	assert.Contains(t, out, "01")
}

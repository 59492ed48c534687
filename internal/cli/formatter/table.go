package formatter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// numericHeaders marks the money and index columns. Cells under these
// headers are right-aligned so figures line up by magnitude.
var numericHeaders = map[string]bool{
	"PV": true, "EV": true, "AC": true, "EAC": true, "ETC": true,
	"CV": true, "SV": true, "VAC": true,
	"CPI": true, "SPI": true, "TCPI": true,
	"BAC": true, "PHYS %": true,
	"AMOUNT": true, "NET": true, "GROSS": true,
	"RETAINED": true, "PAYABLE": true, "PAID": true,
	"COMMITTED": true, "INVOICED": true, "RATE": true,
}

// RenderTable renders an aligned table with a header separator line.
// Headers are rendered with the Header style. Columns are padded to the
// maximum visible width found in each column; numeric columns align right.
func RenderTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	cols := len(headers)

	// Compute max width per column, accounting for ANSI escape sequences
	// by measuring visible width.
	widths := make([]int, cols)
	rightAlign := make([]bool, cols)
	for i, h := range headers {
		rightAlign[i] = numericHeaders[h]
		if w := lipgloss.Width(h); w > widths[i] {
			widths[i] = w
		}
	}
	for _, row := range rows {
		for i := 0; i < cols && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	// Add padding between columns.
	const colGap = 2

	var b strings.Builder

	writeCell := func(cell, styled string, col int, last bool) {
		pad := widths[col] - lipgloss.Width(cell)
		if pad < 0 {
			pad = 0
		}
		if rightAlign[col] {
			b.WriteString(strings.Repeat(" ", pad))
			b.WriteString(styled)
			if !last {
				b.WriteString(strings.Repeat(" ", colGap))
			}
			return
		}
		b.WriteString(styled)
		if !last {
			b.WriteString(strings.Repeat(" ", pad+colGap))
		}
	}

	// Render header row.
	for i, h := range headers {
		writeCell(h, StyleHeader.Render(h), i, i == cols-1)
	}
	b.WriteString("\n")

	// Render separator line.
	for i, w := range widths {
		b.WriteString(StyleDim.Render(strings.Repeat("─", w)))
		if i < cols-1 {
			b.WriteString(strings.Repeat(" ", colGap))
		}
	}
	b.WriteString("\n")

	// Render data rows.
	for _, row := range rows {
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			writeCell(cell, cell, i, i == cols-1)
		}
		b.WriteString("\n")
	}

	return b.String()
}

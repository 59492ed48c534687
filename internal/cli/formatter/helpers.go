package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		titleRendered := StyleHeader.Render(strings.ToUpper(title))
		inner := titleRendered + "\n\n" + content
		return boxStyle.Render(inner)
	}

	return boxStyle.Render(content)
}

// Money formats an amount with thousands separators and two decimals.
func Money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	parts := strings.SplitN(s, ".", 2)
	intPart := parts[0]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + parts[1]
	if neg {
		return "-" + out
	}
	return out
}

// MoneyStyled formats an amount with variance coloring applied.
func MoneyStyled(d decimal.Decimal) string {
	return VarianceColor(d).Render(Money(d))
}

// Index formats a performance index to four decimals with index coloring.
func Index(d decimal.Decimal) string {
	return IndexColor(d).Render(d.StringFixed(4))
}

// Percent formats a percentage to one decimal with a trailing sign.
func Percent(d decimal.Decimal) string {
	return fmt.Sprintf("%s%%", d.StringFixed(1))
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}

// TreeIndent returns the indentation prefix for a cost node at the given
// depth, with a branch glyph for non-roots.
func TreeIndent(level int) string {
	if level == 0 {
		return ""
	}
	return strings.Repeat("  ", level-1) + StyleDim.Render("└ ")
}

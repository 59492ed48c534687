package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/cayaqui/costcontrol/internal/domain"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// VarianceColor styles a cost or schedule variance: green when favorable,
// red when unfavorable, dim at zero.
func VarianceColor(v decimal.Decimal) lipgloss.Style {
	switch v.Sign() {
	case 1:
		return StyleGreen
	case -1:
		return StyleRed
	default:
		return StyleDim
	}
}

// IndexColor styles a performance index: green at or above 1, yellow down to
// 0.9, red below.
func IndexColor(idx decimal.Decimal) lipgloss.Style {
	one := decimal.NewFromInt(1)
	warn := decimal.NewFromFloat(0.9)
	switch {
	case idx.GreaterThanOrEqual(one):
		return StyleGreen
	case idx.GreaterThanOrEqual(warn):
		return StyleYellow
	default:
		return StyleRed
	}
}

// AccountStatusPill returns a colored status indicator for a control account.
func AccountStatusPill(status domain.AccountStatus) string {
	switch status {
	case domain.AccountActive:
		return StyleGreen.Render("● Active")
	case domain.AccountDraft:
		return StyleBlue.Render("○ Draft")
	case domain.AccountClosed:
		return StyleDim.Render("✔ Closed")
	default:
		return StyleDim.Render(string(status))
	}
}

// CommitmentStatusPill returns a colored status indicator for a commitment.
func CommitmentStatusPill(status domain.CommitmentStatus) string {
	switch status {
	case domain.CommitmentDraft:
		return StyleBlue.Render("○ Draft")
	case domain.CommitmentApproved:
		return StyleYellow.Render("● Approved")
	case domain.CommitmentActive:
		return StyleGreen.Render("● Active")
	case domain.CommitmentClosed:
		return StyleDim.Render("✔ Closed")
	default:
		return StyleDim.Render(string(status))
	}
}

// RevisionStatusPill returns a colored status indicator for a budget revision.
func RevisionStatusPill(status domain.RevisionStatus) string {
	switch status {
	case domain.RevisionDraft:
		return StyleBlue.Render("○ Draft")
	case domain.RevisionSubmitted:
		return StyleYellow.Render("● Submitted")
	case domain.RevisionApproved:
		return StyleGreen.Render("● Approved")
	case domain.RevisionBaselined:
		return StylePurple.Render("◆ Baselined")
	case domain.RevisionArchived:
		return StyleDim.Render("✖ Archived")
	default:
		return StyleDim.Render(string(status))
	}
}

// InvoiceStatusPill returns a colored status indicator for an invoice.
func InvoiceStatusPill(status domain.InvoiceStatus) string {
	switch status {
	case domain.InvoiceSubmitted:
		return StyleBlue.Render("○ Submitted")
	case domain.InvoiceReviewed:
		return StyleYellow.Render("● Reviewed")
	case domain.InvoiceApproved:
		return StyleGreen.Render("● Approved")
	case domain.InvoiceRejected:
		return StyleRed.Render("✖ Rejected")
	case domain.InvoicePaid:
		return StyleDim.Render("✔ Paid")
	default:
		return StyleDim.Render(string(status))
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}

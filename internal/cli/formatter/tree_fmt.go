package formatter

import (
	"fmt"
	"strings"

	"github.com/cayaqui/costcontrol/internal/domain"
)

// RenderCostTree renders a project's cost breakdown structure as an indented
// table. Nodes must be sorted by code so children follow their parents.
func RenderCostTree(nodes []*domain.CostNode) string {
	headers := []string{"CODE", "DESCRIPTION", "BUDGET", "COMMITTED", "ACTUAL", "FORECAST", "CCY"}

	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		description := TreeIndent(n.Level) + n.Description
		code := n.Code
		if !n.IsLeaf {
			code = Bold(code)
		}
		rows = append(rows, []string{
			code,
			description,
			Money(n.CurrentBudget()),
			Money(n.CommittedCost),
			Money(n.ActualCost),
			Money(n.ForecastCost),
			Dim(n.Currency),
		})
	}
	return RenderTable(headers, rows)
}

// RenderNodeDetail renders one cost node as a boxed figure list.
func RenderNodeDetail(n *domain.CostNode) string {
	kind := "leaf"
	if !n.IsLeaf {
		kind = "roll-up"
	}
	lines := []string{
		fmt.Sprintf("%s %s  %s", Bold(n.Code), n.Description, Dim(kind)),
		fmt.Sprintf("%s %s", Dim("id"), TruncID(n.ID)),
		"",
		fmt.Sprintf("%s %s %s", Bold("Original budget "), Money(n.OriginalBudget), Dim(n.Currency)),
		fmt.Sprintf("%s %s", Bold("Approved changes"), Money(n.ApprovedChanges)),
		fmt.Sprintf("%s %s", Bold("Current budget  "), Money(n.CurrentBudget())),
		fmt.Sprintf("%s %s", Bold("Committed       "), Money(n.CommittedCost)),
		fmt.Sprintf("%s %s", Bold("Actual          "), Money(n.ActualCost)),
		fmt.Sprintf("%s %s", Bold("Forecast        "), Money(n.ForecastCost)),
	}
	return RenderBox("Cost node", strings.Join(lines, "\n"))
}

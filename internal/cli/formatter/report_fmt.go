package formatter

import (
	"fmt"
	"strings"

	"github.com/cayaqui/costcontrol/internal/contract"
)

// RenderCostReport renders the nine-column cost control report with a total
// line separated from the account lines.
func RenderCostReport(r *contract.CostReport) string {
	headers := []string{"ACCOUNT", "DESCRIPTION", "PV", "PHYS %", "EV", "AC", "CV", "SV", "CPI", "EAC"}

	rows := make([][]string, 0, len(r.Lines)+1)
	for _, line := range r.Lines {
		rows = append(rows, reportRow(line, false))
	}
	rows = append(rows, reportRow(r.Total, true))

	var b strings.Builder
	b.WriteString(Header(fmt.Sprintf("Cost control report — project %s", r.ProjectID)))
	b.WriteString("\n")
	b.WriteString(Dim(fmt.Sprintf("Data date %s · %s · %s", r.AsOf.Format("2006-01-02"), r.Currency, r.Method)))
	b.WriteString("\n\n")
	b.WriteString(RenderTable(headers, rows))
	return b.String()
}

func reportRow(line contract.ReportLine, total bool) []string {
	code := line.AccountCode
	description := line.Description
	if total {
		code = ""
		description = Bold(description)
	}
	return []string{
		code,
		description,
		Money(line.PV),
		Percent(line.PhysicalPct),
		Money(line.EV),
		Money(line.AC),
		MoneyStyled(line.CV),
		MoneyStyled(line.SV),
		Index(line.CPI),
		Money(line.EAC),
	}
}

// RenderProjectSummary renders the project roll-up as a boxed figure list.
func RenderProjectSummary(s *contract.ProjectEVMSummary) string {
	tcpi := Dim("n/a")
	if s.TCPI != nil {
		tcpi = Index(*s.TCPI)
	}
	content := strings.Join([]string{
		fmt.Sprintf("%s  %s %s", Bold("PV"), Money(s.PV), Dim(s.Currency)),
		fmt.Sprintf("%s  %s", Bold("EV"), Money(s.EV)),
		fmt.Sprintf("%s  %s", Bold("AC"), Money(s.AC)),
		fmt.Sprintf("%s %s", Bold("BAC"), Money(s.BAC)),
		fmt.Sprintf("%s %s", Bold("EAC"), Money(s.EAC)),
		fmt.Sprintf("%s %s", Bold("ETC"), Money(s.ETC)),
		"",
		fmt.Sprintf("%s  %s   %s  %s", Bold("CV"), MoneyStyled(s.CV), Bold("SV"), MoneyStyled(s.SV)),
		fmt.Sprintf("%s %s  %s %s  %s %s", Bold("CPI"), Index(s.CPI), Bold("SPI"), Index(s.SPI), Bold("TCPI"), tcpi),
		fmt.Sprintf("%s %s", Bold("VAC"), MoneyStyled(s.VAC)),
		"",
		Dim(fmt.Sprintf("%d control accounts · data date %s", s.AccountCount, s.AsOf.Format("2006-01-02"))),
	}, "\n")
	return RenderBox("Project earned value", content)
}

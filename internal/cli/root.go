package cli

import (
	"github.com/spf13/cobra"

	"github.com/cayaqui/costcontrol/internal/service"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Tree        service.CostTreeService
	Accounts    service.AccountService
	Baselines   service.BaselineService
	Commitments service.CommitmentService
	Actuals     service.ActualCostService
	EVM         service.EVMService
	Reports     service.ReportService
	Rates       service.RateService

	// IsInteractive reports whether stdin is a terminal; confirmation
	// prompts are skipped when it is not.
	IsInteractive func() bool
}

// NewRootCmd creates the top-level "costctl" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "costctl",
		Short: "Cost and earned-value control for projects",
	}

	root.AddCommand(
		newTreeCmd(app),
		newAccountCmd(app),
		newBaselineCmd(app),
		newCommitmentCmd(app),
		newInvoiceCmd(app),
		newRateCmd(app),
		newEVMCmd(app),
		newReportCmd(app),
	)

	return root
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"github.com/cayaqui/costcontrol/internal/cli"
	"github.com/cayaqui/costcontrol/internal/currency"
	"github.com/cayaqui/costcontrol/internal/db"
	"github.com/cayaqui/costcontrol/internal/repository"
	"github.com/cayaqui/costcontrol/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Determine DB path: env var or default ~/.costctl/costctl.db
	dbPath := os.Getenv("COSTCTL_DB")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".costctl", "costctl.db")
	}

	database, err := db.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Wire repositories
	nodeRepo := repository.NewSQLiteCostNodeRepo(database)
	accountRepo := repository.NewSQLiteControlAccountRepo(database)
	budgetRepo := repository.NewSQLiteBudgetRepo(database)
	commitmentRepo := repository.NewSQLiteCommitmentRepo(database)
	invoiceRepo := repository.NewSQLiteInvoiceRepo(database)
	recordRepo := repository.NewSQLiteEVMRecordRepo(database)
	rateRepo := repository.NewSQLiteExchangeRateRepo(database)

	// Wire unit of work for transactional operations
	uow := db.NewSQLiteUnitOfWork(database)

	// Observe use cases on stderr when COSTCTL_LOG is set.
	var observers []service.UseCaseObserver
	if os.Getenv("COSTCTL_LOG") != "" {
		observers = append(observers, service.NewLogUseCaseObserver(os.Stderr))
	}

	app := &cli.App{
		Tree:        service.NewCostTreeService(nodeRepo, uow, observers...),
		Accounts:    service.NewAccountService(accountRepo, nodeRepo, commitmentRepo, uow),
		Baselines:   service.NewBaselineService(budgetRepo, accountRepo, uow),
		Commitments: service.NewCommitmentService(commitmentRepo, accountRepo, nodeRepo, uow),
		Actuals:     service.NewActualCostService(invoiceRepo, commitmentRepo, accountRepo, nodeRepo, uow),
		EVM:         service.NewEVMService(accountRepo, budgetRepo, nodeRepo, recordRepo, uow, observers...),
		Reports:     service.NewReportService(accountRepo, budgetRepo, nodeRepo, uow),
		Rates:       service.NewRateService(rateRepo, currency.NewConverter(rateRepo, 0)),
	}

	// Detect interactive terminal for confirmation prompts.
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	rootCmd := cli.NewRootCmd(app)
	return rootCmd.Execute()
}

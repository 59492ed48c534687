package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cayaqui/costcontrol/internal/currency"
	"github.com/cayaqui/costcontrol/internal/db"
	"github.com/cayaqui/costcontrol/internal/domain"
	"github.com/cayaqui/costcontrol/internal/repository"
)

type actualCostService struct {
	invoices    repository.InvoiceRepo
	commitments repository.CommitmentRepo
	accounts    repository.ControlAccountRepo
	nodes       repository.CostNodeRepo
	uow         db.UnitOfWork
}

func NewActualCostService(invoices repository.InvoiceRepo, commitments repository.CommitmentRepo, accounts repository.ControlAccountRepo, nodes repository.CostNodeRepo, uow db.UnitOfWork) ActualCostService {
	return &actualCostService{invoices: invoices, commitments: commitments, accounts: accounts, nodes: nodes, uow: uow}
}

// RecordInvoice validates in a fixed order: the commitment must be active,
// the invoiced ceiling must hold, then every line referent must exist. The
// transaction rolls back on any failure so ledger state is untouched.
func (s *actualCostService) RecordInvoice(ctx context.Context, commitmentID string, inv *domain.Invoice, items []*domain.InvoiceItem) error {
	if inv.Number == "" {
		return fmt.Errorf("invoice number is required: %w", domain.ErrValidation)
	}
	now := time.Now().UTC()

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txInvoices := repository.NewSQLiteInvoiceRepo(tx)
		txCommitments := repository.NewSQLiteCommitmentRepo(tx)
		txNodes := repository.NewSQLiteCostNodeRepo(tx)

		c, err := txCommitments.GetByID(ctx, commitmentID)
		if err != nil {
			return err
		}

		if err := inv.ComputeAmounts(c.RetentionPercentage); err != nil {
			return err
		}
		if err := c.ApplyInvoiceAmount(inv.NetAmount); err != nil {
			return err
		}

		for _, item := range items {
			if _, err := txCommitments.GetItem(ctx, item.CommitmentItemID); err != nil {
				return err
			}
			node, err := txNodes.GetByID(ctx, item.BudgetItemID)
			if err != nil {
				return err
			}
			if !node.IsLeaf {
				return fmt.Errorf("invoice line charges non-leaf node %s: %w", node.Code, domain.ErrImmutableNode)
			}
		}

		if inv.ID == "" {
			inv.ID = uuid.New().String()
		}
		inv.CommitmentID = c.ID
		inv.Status = domain.InvoiceSubmitted
		if inv.Currency == "" {
			inv.Currency = c.Currency
		}
		inv.CreatedAt = now
		inv.UpdatedAt = now
		if err := txInvoices.Create(ctx, inv); err != nil {
			return err
		}
		for _, item := range items {
			if item.ID == "" {
				item.ID = uuid.New().String()
			}
			item.InvoiceID = inv.ID
			if item.Amount.IsZero() {
				item.Amount = item.Quantity.Mul(item.UnitPrice).Round(2)
			}
			item.CreatedAt = now
			if err := txInvoices.CreateItem(ctx, item); err != nil {
				return err
			}
		}

		c.UpdatedAt = now
		return txCommitments.Update(ctx, c)
	})
}

func (s *actualCostService) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	return s.invoices.GetByID(ctx, id)
}

func (s *actualCostService) ListInvoices(ctx context.Context, commitmentID string) ([]*domain.Invoice, error) {
	return s.invoices.ListByCommitment(ctx, commitmentID)
}

func (s *actualCostService) ReviewInvoice(ctx context.Context, invoiceID, actor string) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txInvoices := repository.NewSQLiteInvoiceRepo(tx)

		inv, err := txInvoices.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.Review(actor); err != nil {
			return err
		}
		inv.UpdatedAt = time.Now().UTC()
		return txInvoices.Update(ctx, inv)
	})
}

// ApproveInvoice moves the invoice to approved and posts its actual cost to
// the charged leaf nodes, rolling up ancestors in the same transaction.
func (s *actualCostService) ApproveInvoice(ctx context.Context, invoiceID, actor string) error {
	now := time.Now().UTC()

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txInvoices := repository.NewSQLiteInvoiceRepo(tx)
		txCommitments := repository.NewSQLiteCommitmentRepo(tx)
		txAccounts := repository.NewSQLiteControlAccountRepo(tx)
		txNodes := repository.NewSQLiteCostNodeRepo(tx)
		conv := txConverter(tx)

		inv, err := txInvoices.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.Approve(actor); err != nil {
			return err
		}
		inv.UpdatedAt = now
		if err := txInvoices.Update(ctx, inv); err != nil {
			return err
		}

		charges, err := invoiceCharges(ctx, txInvoices, txCommitments, txAccounts, inv)
		if err != nil {
			return err
		}
		nodeIDs := make([]string, 0, len(charges))
		for nodeID := range charges {
			nodeIDs = append(nodeIDs, nodeID)
		}
		sort.Strings(nodeIDs)
		for _, nodeID := range nodeIDs {
			if err := addLeafActual(ctx, txNodes, conv, nodeID, charges[nodeID], inv.Currency, now); err != nil {
				return err
			}
		}

		c, err := txCommitments.GetByID(ctx, inv.CommitmentID)
		if err != nil {
			return err
		}
		return applyInvoiceToWorkPackages(ctx, txCommitments, txAccounts, conv, c, inv, now)
	})
}

// RejectInvoice terminates the invoice and releases its amount from the
// commitment's invoiced ceiling.
func (s *actualCostService) RejectInvoice(ctx context.Context, invoiceID, actor string) error {
	now := time.Now().UTC()

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txInvoices := repository.NewSQLiteInvoiceRepo(tx)
		txCommitments := repository.NewSQLiteCommitmentRepo(tx)

		inv, err := txInvoices.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.Reject(actor); err != nil {
			return err
		}
		inv.UpdatedAt = now
		if err := txInvoices.Update(ctx, inv); err != nil {
			return err
		}

		c, err := txCommitments.GetByID(ctx, inv.CommitmentID)
		if err != nil {
			return err
		}
		c.InvoicedAmount = c.InvoicedAmount.Sub(inv.NetAmount)
		c.RetentionAmount = c.RetentionPercentage.Mul(c.InvoicedAmount).Div(decimal.NewFromInt(100)).Round(2)
		c.UpdatedAt = now
		return txCommitments.Update(ctx, c)
	})
}

func (s *actualCostService) RecordPayment(ctx context.Context, invoiceID string, amount decimal.Decimal) error {
	now := time.Now().UTC()

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txInvoices := repository.NewSQLiteInvoiceRepo(tx)
		txCommitments := repository.NewSQLiteCommitmentRepo(tx)

		inv, err := txInvoices.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.ApplyPayment(amount); err != nil {
			return err
		}
		inv.UpdatedAt = now
		if err := txInvoices.Update(ctx, inv); err != nil {
			return err
		}

		c, err := txCommitments.GetByID(ctx, inv.CommitmentID)
		if err != nil {
			return err
		}
		if err := c.ApplyPayment(amount); err != nil {
			return err
		}
		c.UpdatedAt = now
		return txCommitments.Update(ctx, c)
	})
}

// RecordDirectCost posts an actual cost entry against a leaf node outside the
// invoice workflow and rolls up ancestors.
func (s *actualCostService) RecordDirectCost(ctx context.Context, p *domain.ActualPosting) error {
	if p.Amount.Sign() <= 0 {
		return fmt.Errorf("posting amount must be positive: %w", domain.ErrValidation)
	}
	now := time.Now().UTC()
	if p.PostedAt.IsZero() {
		p.PostedAt = now
	}

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txInvoices := repository.NewSQLiteInvoiceRepo(tx)
		txNodes := repository.NewSQLiteCostNodeRepo(tx)
		conv := txConverter(tx)

		node, err := txNodes.GetByID(ctx, p.CostNodeID)
		if err != nil {
			return err
		}
		if node.DeletedAt != nil {
			return fmt.Errorf("cost node %s: %w", node.Code, domain.ErrNotFound)
		}
		if p.Currency == "" {
			p.Currency = node.Currency
		}

		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.CreatedAt = now
		if err := txInvoices.CreatePosting(ctx, p); err != nil {
			return err
		}
		return addLeafActual(ctx, txNodes, conv, node.ID, p.Amount, p.Currency, p.PostedAt)
	})
}

func (s *actualCostService) ListPostings(ctx context.Context, nodeID string) ([]*domain.ActualPosting, error) {
	return s.invoices.ListPostingsByNode(ctx, nodeID)
}

// applyInvoiceToWorkPackages spreads an approved invoice's net amount over
// the commitment's work-package allocations and then the owning account's.
// Allocations fill in work-package order, each absorbing up to its remaining
// headroom, so invoiced never exceeds allocated on any row. Amounts beyond
// the allocated total stay unassigned.
func applyInvoiceToWorkPackages(ctx context.Context, commitments repository.CommitmentRepo, accounts repository.ControlAccountRepo, conv *currency.Converter, c *domain.Commitment, inv *domain.Invoice, asOf time.Time) error {
	wps, err := commitments.ListWorkPackages(ctx, c.ID)
	if err != nil {
		return err
	}
	sort.Slice(wps, func(i, j int) bool { return wps[i].WorkPackageID < wps[j].WorkPackageID })
	remaining, err := conv.Convert(ctx, inv.NetAmount, inv.Currency, c.Currency, asOf)
	if err != nil {
		return err
	}
	for _, w := range wps {
		if remaining.Sign() <= 0 {
			break
		}
		headroom := w.AllocatedAmount.Sub(w.InvoicedAmount)
		if headroom.Sign() <= 0 {
			continue
		}
		take := decimal.Min(remaining, headroom)
		if err := w.ApplyInvoiceAmount(take); err != nil {
			return err
		}
		if err := commitments.UpdateWorkPackage(ctx, w); err != nil {
			return err
		}
		remaining = remaining.Sub(take)
	}

	a, err := accounts.GetByID(ctx, c.ControlAccountID)
	if err != nil {
		return err
	}
	allocs, err := accounts.ListAllocations(ctx, a.ID)
	if err != nil {
		return err
	}
	sort.Slice(allocs, func(i, j int) bool { return allocs[i].WorkPackageID < allocs[j].WorkPackageID })
	remaining, err = conv.Convert(ctx, inv.NetAmount, inv.Currency, a.Currency, asOf)
	if err != nil {
		return err
	}
	for _, w := range allocs {
		if remaining.Sign() <= 0 {
			break
		}
		headroom := w.AllocatedAmount.Sub(w.InvoicedAmount)
		if headroom.Sign() <= 0 {
			continue
		}
		take := decimal.Min(remaining, headroom)
		if err := w.ApplyInvoiceAmount(take); err != nil {
			return err
		}
		if err := accounts.UpdateAllocation(ctx, w); err != nil {
			return err
		}
		remaining = remaining.Sub(take)
	}
	return nil
}

// invoiceCharges maps leaf node IDs to the actual cost an approved invoice
// posts: line amounts when lines exist, the net amount on the commitment's
// account node otherwise.
func invoiceCharges(ctx context.Context, invoices repository.InvoiceRepo, commitments repository.CommitmentRepo, accounts repository.ControlAccountRepo, inv *domain.Invoice) (map[string]decimal.Decimal, error) {
	items, err := invoices.ListItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	charges := make(map[string]decimal.Decimal)
	if len(items) == 0 {
		c, err := commitments.GetByID(ctx, inv.CommitmentID)
		if err != nil {
			return nil, err
		}
		a, err := accounts.GetByID(ctx, c.ControlAccountID)
		if err != nil {
			return nil, err
		}
		charges[a.CostNodeID] = inv.NetAmount
		return charges, nil
	}
	for _, item := range items {
		charges[item.BudgetItemID] = charges[item.BudgetItemID].Add(item.Amount)
	}
	return charges, nil
}

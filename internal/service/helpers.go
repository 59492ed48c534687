package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cayaqui/costcontrol/internal/currency"
	"github.com/cayaqui/costcontrol/internal/db"
	"github.com/cayaqui/costcontrol/internal/domain"
	"github.com/cayaqui/costcontrol/internal/evm"
	"github.com/cayaqui/costcontrol/internal/repository"
)

// txConverter builds a currency converter over the transaction's rate table,
// so conversions inside a unit of work see the same snapshot as its writes.
func txConverter(tx db.DBTX) *currency.Converter {
	return currency.NewConverter(repository.NewSQLiteExchangeRateRepo(tx), 0)
}

// leafForecast is the maintained forecast figure for a leaf node: the
// greatest of current budget, committed cost and actual cost.
func leafForecast(n *domain.CostNode) decimal.Decimal {
	f := n.CurrentBudget()
	if n.CommittedCost.GreaterThan(f) {
		f = n.CommittedCost
	}
	if n.ActualCost.GreaterThan(f) {
		f = n.ActualCost
	}
	return f
}

// nodeFigures is one node's roll-up contribution in its own currency.
type nodeFigures struct {
	OriginalBudget  decimal.Decimal
	ApprovedChanges decimal.Decimal
	CommittedCost   decimal.Decimal
	ActualCost      decimal.Decimal
	ForecastCost    decimal.Decimal
}

func figuresOf(n *domain.CostNode) nodeFigures {
	return nodeFigures{
		OriginalBudget:  n.OriginalBudget,
		ApprovedChanges: n.ApprovedChanges,
		CommittedCost:   n.CommittedCost,
		ActualCost:      n.ActualCost,
		ForecastCost:    n.ForecastCost,
	}
}

func (f nodeFigures) add(o nodeFigures) nodeFigures {
	return nodeFigures{
		OriginalBudget:  f.OriginalBudget.Add(o.OriginalBudget),
		ApprovedChanges: f.ApprovedChanges.Add(o.ApprovedChanges),
		CommittedCost:   f.CommittedCost.Add(o.CommittedCost),
		ActualCost:      f.ActualCost.Add(o.ActualCost),
		ForecastCost:    f.ForecastCost.Add(o.ForecastCost),
	}
}

func convertFigures(ctx context.Context, conv *currency.Converter, f nodeFigures, from, to string, asOf time.Time) (nodeFigures, error) {
	if from == to {
		return f, nil
	}
	var out nodeFigures
	var err error
	if out.OriginalBudget, err = conv.Convert(ctx, f.OriginalBudget, from, to, asOf); err != nil {
		return out, err
	}
	if out.ApprovedChanges, err = conv.Convert(ctx, f.ApprovedChanges, from, to, asOf); err != nil {
		return out, err
	}
	if out.CommittedCost, err = conv.Convert(ctx, f.CommittedCost, from, to, asOf); err != nil {
		return out, err
	}
	if out.ActualCost, err = conv.Convert(ctx, f.ActualCost, from, to, asOf); err != nil {
		return out, err
	}
	if out.ForecastCost, err = conv.Convert(ctx, f.ForecastCost, from, to, asOf); err != nil {
		return out, err
	}
	return out, nil
}

func applyFigures(n *domain.CostNode, f nodeFigures) {
	n.OriginalBudget = f.OriginalBudget
	n.ApprovedChanges = f.ApprovedChanges
	n.CommittedCost = f.CommittedCost
	n.ActualCost = f.ActualCost
	n.ForecastCost = f.ForecastCost
}

// recomputeSubtree rebuilds every non-leaf figure in the subtree post-order
// and returns the node's figures in its own currency. visited guards against
// parent-pointer cycles.
func recomputeSubtree(ctx context.Context, nodes repository.CostNodeRepo, conv *currency.Converter, n *domain.CostNode, asOf time.Time, visited map[string]bool) (nodeFigures, error) {
	if visited[n.ID] {
		return nodeFigures{}, fmt.Errorf("cost node %s revisited during roll-up: %w", n.Code, domain.ErrInvalidHierarchy)
	}
	visited[n.ID] = true

	if n.IsLeaf {
		return figuresOf(n), nil
	}

	children, err := nodes.ListChildren(ctx, n.ID)
	if err != nil {
		return nodeFigures{}, err
	}

	var sum nodeFigures
	for _, child := range children {
		f, err := recomputeSubtree(ctx, nodes, conv, child, asOf, visited)
		if err != nil {
			return nodeFigures{}, err
		}
		cf, err := convertFigures(ctx, conv, f, child.Currency, n.Currency, asOf)
		if err != nil {
			return nodeFigures{}, err
		}
		sum = sum.add(cf)
	}

	applyFigures(n, sum)
	n.UpdatedAt = time.Now().UTC()
	if err := nodes.Update(ctx, n); err != nil {
		return nodeFigures{}, err
	}
	return sum, nil
}

// rollupAncestors recomputes each ancestor of the given node from its direct
// children, walking up to the root. The node's own figures must already be
// persisted.
func rollupAncestors(ctx context.Context, nodes repository.CostNodeRepo, conv *currency.Converter, n *domain.CostNode, asOf time.Time) error {
	seen := map[string]bool{n.ID: true}
	parentID := n.ParentID
	for parentID != nil {
		if seen[*parentID] {
			return fmt.Errorf("cost node %s is its own ancestor: %w", n.Code, domain.ErrInvalidHierarchy)
		}
		seen[*parentID] = true

		parent, err := nodes.GetByID(ctx, *parentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("cost node %s has a dangling parent: %w", n.Code, domain.ErrInvalidHierarchy)
			}
			return err
		}

		children, err := nodes.ListChildren(ctx, parent.ID)
		if err != nil {
			return err
		}
		var sum nodeFigures
		for _, child := range children {
			cf, err := convertFigures(ctx, conv, figuresOf(child), child.Currency, parent.Currency, asOf)
			if err != nil {
				return err
			}
			sum = sum.add(cf)
		}

		applyFigures(parent, sum)
		parent.UpdatedAt = time.Now().UTC()
		if err := nodes.Update(ctx, parent); err != nil {
			return err
		}
		parentID = parent.ParentID
	}
	return nil
}

// addLeafCommitted posts a committed-cost delta to a leaf node and rolls up.
func addLeafCommitted(ctx context.Context, nodes repository.CostNodeRepo, conv *currency.Converter, nodeID string, amount decimal.Decimal, fromCurrency string, asOf time.Time) error {
	node, err := nodes.GetByID(ctx, nodeID)
	if err != nil {
		return err
	}
	if !node.IsLeaf {
		return fmt.Errorf("cost node %s is not a leaf, committed cost posts to leaves only: %w", node.Code, domain.ErrImmutableNode)
	}
	amt, err := conv.Convert(ctx, amount, fromCurrency, node.Currency, asOf)
	if err != nil {
		return err
	}
	node.CommittedCost = node.CommittedCost.Add(amt)
	node.ForecastCost = leafForecast(node)
	node.UpdatedAt = time.Now().UTC()
	if err := nodes.Update(ctx, node); err != nil {
		return err
	}
	return rollupAncestors(ctx, nodes, conv, node, asOf)
}

// addLeafActual posts an actual-cost delta to a leaf node and rolls up.
func addLeafActual(ctx context.Context, nodes repository.CostNodeRepo, conv *currency.Converter, nodeID string, amount decimal.Decimal, fromCurrency string, asOf time.Time) error {
	node, err := nodes.GetByID(ctx, nodeID)
	if err != nil {
		return err
	}
	if !node.IsLeaf {
		return fmt.Errorf("cost node %s is not a leaf, actual cost posts to leaves only: %w", node.Code, domain.ErrImmutableNode)
	}
	amt, err := conv.Convert(ctx, amount, fromCurrency, node.Currency, asOf)
	if err != nil {
		return err
	}
	node.ActualCost = node.ActualCost.Add(amt)
	node.ForecastCost = leafForecast(node)
	node.UpdatedAt = time.Now().UTC()
	if err := nodes.Update(ctx, node); err != nil {
		return err
	}
	return rollupAncestors(ctx, nodes, conv, node, asOf)
}

// computeAccountMetrics evaluates the earned-value formula set for one
// control account at asOf: PV from the baselined revision's cumulative curve,
// AC from the account's cost node normalized to the account currency, EV from
// BAC and recorded physical progress.
func computeAccountMetrics(ctx context.Context, budgets repository.BudgetRepo, nodes repository.CostNodeRepo, conv *currency.Converter, a *domain.ControlAccount, asOf time.Time, method domain.ForecastMethod) (evm.Metrics, error) {
	rev, err := budgets.GetBaselined(ctx, a.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return evm.Metrics{}, fmt.Errorf("control account %s has no baselined budget revision: %w", a.Code, domain.ErrBaselineRequired)
		}
		return evm.Metrics{}, err
	}

	pv, err := budgets.CumulativePVAt(ctx, rev.ID, asOf)
	if err != nil {
		return evm.Metrics{}, err
	}

	node, err := nodes.GetByID(ctx, a.CostNodeID)
	if err != nil {
		return evm.Metrics{}, err
	}
	ac, err := conv.Convert(ctx, node.ActualCost, node.Currency, a.Currency, asOf)
	if err != nil {
		return evm.Metrics{}, err
	}

	in := evm.Input{PV: pv, AC: ac, BAC: a.BAC, PercentComplete: a.PercentComplete}
	return evm.Compute(in, method), nil
}

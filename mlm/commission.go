/*
commission.go - Commission generation and reconciliation

PURPOSE:
  Converts one Sale into zero-or-more Commission postings plus matching
  ledger credits, exactly once per sale. The direct commission (level 0)
  always posts, even at a zero rate: its record doubles as the marker that
  the sale has been processed, which is what the reconciliation sweep keys
  on.

AT-MOST-ONCE:
  Before every posting the generator checks for an existing Commission with
  the same (saleId, userId, level). A hit counts as a duplicate no-op, not
  a failure, so regeneration and sweep re-runs never double-credit. A
  generator-wide mutex serializes generations so two concurrent requests
  for the same sale cannot both pass the check.

FAILURE POLICY:
  Seller not found: fatal, nothing posts. Dangling ancestor, unmet
  eligibility gates, sponsor cycle mid-walk: soft - the level is skipped
  (or the walk stops, for cycles) and the sale's remaining levels proceed.
  Postings already made are never rolled back; callers rely on the
  idempotence check to retry safely.

SEE ALSO:
  - plans.go: Rate resolution and eligibility gates
  - engine/ledger.go: The wallet credits
  - engine/network.go: The upline walk
*/
package mlm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pentagame/commission-engine/engine"
)

// =============================================================================
// GENERATOR
// =============================================================================

type Generator struct {
	db       *engine.Database
	ledger   *engine.Ledger
	graph    *engine.Graph
	resolver *Resolver

	enforceGates bool

	mu sync.Mutex // one generation at a time; guards the at-most-once check
}

type Option func(*Generator)

// WithoutEligibilityGates disables the minPoints/minTasks/minSales checks
// on upline beneficiaries, matching the legacy behavior where plans defined
// gates that generation never consulted.
func WithoutEligibilityGates() Option {
	return func(g *Generator) { g.enforceGates = false }
}

func NewGenerator(db *engine.Database, opts ...Option) *Generator {
	g := &Generator{
		db:           db,
		ledger:       engine.NewLedger(db.Users),
		graph:        engine.NewGraph(db.Users),
		resolver:     NewResolver(db.Plans),
		enforceGates: true,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Skip records a level that was passed over and why.
type Skip struct {
	UserID int    `json:"userId"`
	Level  int    `json:"level"`
	Reason string `json:"reason"`
}

// Result reports one sale's generation outcome.
type Result struct {
	SaleID     int                 `json:"saleId"`
	Created    []engine.Commission `json:"created"`
	Duplicates int                 `json:"duplicates"`
	Skips      []Skip              `json:"skips,omitempty"`
}

// Generate runs the per-sale algorithm:
//
//  1. Resolve the selling ambassador (fatal if missing).
//  2. Post the direct commission at level 0, rate from the seller's
//     commissionRate override or their plan's directSale rate.
//  3. Walk the upline; for each ancestor at depth d with a nonzero
//     level-d rate, post a team bonus. The walk stops past the plan's
//     deepest defined level (at most 5) or when the upline is exhausted.
//
// Each posting creates the Commission record, credits the beneficiary's
// wallet, and bumps their totalCommissions; the seller's totalSales grows
// by the sale amount when the direct commission first posts.
func (g *Generator) Generate(ctx context.Context, saleID int) (Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	res := Result{SaleID: saleID}

	sale, err := g.db.Sales.Get(ctx, saleID)
	if err != nil {
		return res, err
	}
	seller, err := g.db.Users.Get(ctx, sale.UserID)
	if err != nil {
		return res, fmt.Errorf("seller for sale %d: %w", saleID, err)
	}

	plan, planErr := g.resolver.ResolveForUser(ctx, seller)
	if planErr != nil && !errors.Is(planErr, engine.ErrNotFound) {
		return res, planErr
	}

	directRate := seller.CommissionRate
	if !directRate.IsPositive() {
		if planErr != nil {
			return res, fmt.Errorf("sale %d: seller %d has no commission rate and no plan: %w",
				saleID, seller.ID, planErr)
		}
		directRate = plan.DirectSale
	}

	// Level 0 posts unconditionally: it is also the processed-sale marker.
	if err := g.post(ctx, sale, seller.ID, 0, directRate, engine.CommissionDirectSale, &res); err != nil {
		return res, err
	}

	if planErr != nil {
		// No plan means no level schedule; the direct posting stands alone.
		return res, nil
	}

	chain, uplineErr := g.graph.Upline(ctx, seller.ID)
	if uplineErr != nil {
		var cycle *engine.CycleError
		if !errors.As(uplineErr, &cycle) {
			return res, uplineErr
		}
		// Defensive: pay the levels walked before the revisit, then stop.
		res.Skips = append(res.Skips, Skip{Level: len(chain) + 1, Reason: uplineErr.Error()})
	}

	maxLevel := plan.MaxLevel()
	for i, ancestorID := range chain {
		depth := i + 1
		if depth > maxLevel {
			break
		}
		rate := plan.LevelRate(depth)
		if !rate.IsPositive() {
			continue
		}

		ancestor, err := g.db.Users.Get(ctx, ancestorID)
		if err != nil {
			if engine.IsNotFound(err) {
				res.Skips = append(res.Skips, Skip{UserID: ancestorID, Level: depth, Reason: "user not found"})
				continue
			}
			return res, err
		}
		if g.enforceGates && !Eligible(ancestor, plan) {
			res.Skips = append(res.Skips, Skip{UserID: ancestorID, Level: depth, Reason: "eligibility gates not met"})
			continue
		}

		if err := g.post(ctx, sale, ancestorID, depth, rate, engine.CommissionTeamBonus, &res); err != nil {
			return res, err
		}
	}

	return res, nil
}

// post credits one beneficiary at one level, guarded by the
// (saleId, userId, level) uniqueness check. Duplicates are no-op successes.
func (g *Generator) post(ctx context.Context, sale engine.Sale, userID, level int,
	rate decimal.Decimal, cType engine.CommissionType, res *Result) error {

	existing, err := g.db.Commissions.Find(ctx, func(c *engine.Commission) bool {
		return c.SaleID == sale.ID && c.UserID == userID && c.Level == level
	})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		res.Duplicates++
		return nil
	}

	amount := sale.Amount.Mul(rate)

	created, err := g.db.Commissions.Create(ctx, engine.Commission{
		UserID:         userID,
		SaleID:         sale.ID,
		Type:           cType,
		Level:          level,
		Amount:         amount,
		CommissionRate: rate,
		Status:         engine.CommissionPending,
	})
	if err != nil {
		return err
	}

	if _, err := g.ledger.Post(ctx, userID, engine.Entry{
		Type:      engine.TxCommission,
		Amount:    amount,
		Reference: fmt.Sprintf("sale:%d:level:%d", sale.ID, level),
	}); err != nil {
		return err
	}

	if _, err := g.db.Users.Update(ctx, userID, func(u *engine.User) error {
		u.TotalCommissions = u.TotalCommissions.Add(amount)
		if level == 0 {
			u.TotalSales = u.TotalSales.Add(sale.Amount)
		}
		return nil
	}); err != nil {
		return err
	}

	res.Created = append(res.Created, created)
	return nil
}

// =============================================================================
// RECONCILIATION SWEEP
// =============================================================================

// SaleFailure records one sale the sweep could not process.
type SaleFailure struct {
	SaleID int    `json:"saleId"`
	Error  string `json:"error"`
}

// Report summarizes one reconciliation run.
type Report struct {
	RunID    string        `json:"runId"`
	Scanned  int           `json:"scanned"`
	Missing  int           `json:"missing"`
	Created  int           `json:"created"`
	Failures []SaleFailure `json:"failures,omitempty"`
}

// Reconcile scans all non-cancelled sales lacking a level-0 commission and
// runs the per-sale algorithm for each. One bad sale does not block the
// rest; failures are collected in the report. Safe to re-run at any time.
func (g *Generator) Reconcile(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}

	sales, err := g.db.Sales.All(ctx)
	if err != nil {
		return report, err
	}
	directs, err := g.db.Commissions.Find(ctx, func(c *engine.Commission) bool {
		return c.Level == 0
	})
	if err != nil {
		return report, err
	}
	processed := make(map[int]bool, len(directs))
	for _, c := range directs {
		processed[c.SaleID] = true
	}

	for _, sale := range sales {
		report.Scanned++
		if sale.Status == engine.SaleCancelled || processed[sale.ID] {
			continue
		}
		report.Missing++

		res, err := g.Generate(ctx, sale.ID)
		report.Created += len(res.Created)
		if err != nil {
			report.Failures = append(report.Failures, SaleFailure{SaleID: sale.ID, Error: err.Error()})
		}
	}
	return report, nil
}

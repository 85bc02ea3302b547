/*
Package mlm implements the commission rules of the ambassador program.

PURPOSE:
  Everything payout-specific lives here: which plan a role maps to, what a
  plan pays per level, who is eligible, and how a sale turns into ledger
  credits. The engine package underneath stays rule-free.

KEY CONCEPTS:
  - Resolver: plan code or role -> payout schedule
  - Generator: Sale -> direct + multi-level commission postings
  - Default plans: entry / wtw / pentagame schedules seeded on first run

SEE ALSO:
  - plans.go: Resolver, role->plan table, eligibility, defaults
  - commission.go: Generator and the reconciliation sweep
*/
package mlm

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pentagame/commission-engine/engine"
)

// =============================================================================
// ROLE -> PLAN TABLE
// =============================================================================

// Plan codes for the built-in schedules.
const (
	PlanEntry     = "entry"
	PlanWTW       = "wtw"
	PlanPentagame = "pentagame"
)

// rolePlans is the single owner of the role-to-plan mapping. Call sites
// resolve through the Resolver; nothing else hardcodes plan codes.
var rolePlans = map[engine.Role]string{
	engine.RoleEntryAmbassador:     PlanEntry,
	engine.RoleMLMAmbassador:       PlanPentagame,
	engine.RoleWTWAmbassador:       PlanWTW,
	engine.RolePentagameAmbassador: PlanPentagame,
}

// PlanForRole returns the conventional plan code for a role.
func PlanForRole(role engine.Role) (string, bool) {
	code, ok := rolePlans[role]
	return code, ok
}

// =============================================================================
// RESOLVER
// =============================================================================

// UnknownPlanError is returned when neither a plan code nor a mappable role
// matches a stored plan.
type UnknownPlanError struct {
	Code string
}

func (e *UnknownPlanError) Error() string {
	return fmt.Sprintf("no commission plan for %q", e.Code)
}

func (e *UnknownPlanError) Unwrap() error { return engine.ErrNotFound }

// Resolver maps plan codes or roles to payout schedules.
type Resolver struct {
	plans *engine.Collection[engine.CommissionPlan]
}

func NewResolver(plans *engine.Collection[engine.CommissionPlan]) *Resolver {
	return &Resolver{plans: plans}
}

// Resolve looks up a plan by code. If the argument is a role instead, it is
// mapped through the role->plan table first. Lookup is case-insensitive.
func (r *Resolver) Resolve(ctx context.Context, codeOrRole string) (engine.CommissionPlan, error) {
	code := codeOrRole
	if mapped, ok := rolePlans[engine.Role(codeOrRole)]; ok {
		code = mapped
	}
	code = strings.ToLower(code)

	matches, err := r.plans.Find(ctx, func(p *engine.CommissionPlan) bool {
		return strings.ToLower(p.Code) == code
	})
	if err != nil {
		return engine.CommissionPlan{}, err
	}
	if len(matches) == 0 {
		return engine.CommissionPlan{}, &UnknownPlanError{Code: codeOrRole}
	}
	return matches[0], nil
}

// ResolveForUser resolves the plan governing a user's payouts from their role.
func (r *Resolver) ResolveForUser(ctx context.Context, u engine.User) (engine.CommissionPlan, error) {
	return r.Resolve(ctx, string(u.Role))
}

// Eligible reports whether the user clears the plan's gates: minimum
// points, completed tasks, and total sales.
func Eligible(u engine.User, p engine.CommissionPlan) bool {
	return u.Points >= p.MinPoints &&
		len(u.CompletedTasks) >= p.MinTasks &&
		u.TotalSales.GreaterThanOrEqual(p.MinSales)
}

// =============================================================================
// DEFAULT PLANS
// =============================================================================

// DefaultPlans returns the built-in schedules. Rates are fractions of the
// sale amount; level N pays the ancestor N hops above the seller.
func DefaultPlans() []engine.CommissionPlan {
	return []engine.CommissionPlan{
		{
			Code:       PlanEntry,
			Name:       "Entry Ambassador",
			DirectSale: dec("0.10"),
			Level1:     dec("0.05"),
			Cost:       dec("0"),
		},
		{
			Code:       PlanWTW,
			Name:       "Welcome To World",
			DirectSale: dec("0.15"),
			Level1:     dec("0.05"),
			Level2:     dec("0.04"),
			Level3:     dec("0.03"),
			MinPoints:  50,
			Cost:       dec("99"),
		},
		{
			Code:       PlanPentagame,
			Name:       "Pentagame",
			DirectSale: dec("0.20"),
			Level1:     dec("0.06"),
			Level2:     dec("0.05"),
			Level3:     dec("0.04"),
			Level4:     dec("0.03"),
			Level5:     dec("0.02"),
			MinPoints:  100,
			MinTasks:   3,
			Cost:       dec("249"),
		},
	}
}

// SeedDefaultPlans creates any built-in plan whose code is not stored yet.
// Safe to call on every startup.
func SeedDefaultPlans(ctx context.Context, plans *engine.Collection[engine.CommissionPlan]) error {
	resolver := NewResolver(plans)
	for _, plan := range DefaultPlans() {
		if _, err := resolver.Resolve(ctx, plan.Code); err == nil {
			continue
		} else if _, ok := err.(*UnknownPlanError); !ok {
			return err
		}
		if _, err := plans.Create(ctx, plan); err != nil {
			return err
		}
	}
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

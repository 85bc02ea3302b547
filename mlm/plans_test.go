package mlm_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentagame/commission-engine/engine"
	"github.com/pentagame/commission-engine/engine/store"
	"github.com/pentagame/commission-engine/mlm"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestDB() *engine.Database {
	return engine.NewDatabase(store.NewMemory())
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// =============================================================================
// RESOLUTION
// =============================================================================

func TestResolver_Resolve_ByCode(t *testing.T) {
	db := newTestDB()
	ctx := context.Background()
	require.NoError(t, mlm.SeedDefaultPlans(ctx, db.Plans))

	resolver := mlm.NewResolver(db.Plans)
	plan, err := resolver.Resolve(ctx, "pentagame")
	require.NoError(t, err)
	assert.Equal(t, mlm.PlanPentagame, plan.Code)
	assert.True(t, plan.DirectSale.Equal(dec(t, "0.20")))
}

func TestResolver_Resolve_ByRole_MapsToConventionalCode(t *testing.T) {
	// GIVEN: The seeded plans
	// WHEN: Resolving with a role instead of a code
	// THEN: The role maps through the lookup table (mlm_ambassador -> pentagame)

	db := newTestDB()
	ctx := context.Background()
	require.NoError(t, mlm.SeedDefaultPlans(ctx, db.Plans))

	resolver := mlm.NewResolver(db.Plans)
	plan, err := resolver.Resolve(ctx, string(engine.RoleMLMAmbassador))
	require.NoError(t, err)
	assert.Equal(t, mlm.PlanPentagame, plan.Code)
}

func TestResolver_Resolve_CaseInsensitive(t *testing.T) {
	db := newTestDB()
	ctx := context.Background()
	require.NoError(t, mlm.SeedDefaultPlans(ctx, db.Plans))

	resolver := mlm.NewResolver(db.Plans)
	plan, err := resolver.Resolve(ctx, "Pentagame")
	require.NoError(t, err)
	assert.Equal(t, mlm.PlanPentagame, plan.Code)
}

func TestResolver_Resolve_Unknown(t *testing.T) {
	db := newTestDB()
	resolver := mlm.NewResolver(db.Plans)

	_, err := resolver.Resolve(context.Background(), "no-such-plan")

	var unknown *mlm.UnknownPlanError
	require.ErrorAs(t, err, &unknown)
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

// =============================================================================
// ELIGIBILITY
// =============================================================================

func TestEligible_AllGatesMet(t *testing.T) {
	plan := engine.CommissionPlan{
		MinPoints: 100,
		MinTasks:  3,
		MinSales:  decimal.NewFromInt(500),
	}
	u := engine.User{
		Points:         150,
		CompletedTasks: []int{1, 2, 3, 4},
		TotalSales:     decimal.NewFromInt(800),
	}
	assert.True(t, mlm.Eligible(u, plan))
}

func TestEligible_EachGateBlocks(t *testing.T) {
	plan := engine.CommissionPlan{
		MinPoints: 100,
		MinTasks:  3,
		MinSales:  decimal.NewFromInt(500),
	}
	base := engine.User{
		Points:         150,
		CompletedTasks: []int{1, 2, 3},
		TotalSales:     decimal.NewFromInt(800),
	}

	lowPoints := base
	lowPoints.Points = 99
	assert.False(t, mlm.Eligible(lowPoints, plan))

	fewTasks := base
	fewTasks.CompletedTasks = []int{1, 2}
	assert.False(t, mlm.Eligible(fewTasks, plan))

	lowSales := base
	lowSales.TotalSales = decimal.NewFromInt(499)
	assert.False(t, mlm.Eligible(lowSales, plan))
}

func TestEligible_ZeroGatesAlwaysPass(t *testing.T) {
	assert.True(t, mlm.Eligible(engine.User{}, engine.CommissionPlan{}))
}

// =============================================================================
// SEEDING
// =============================================================================

func TestSeedDefaultPlans_Idempotent(t *testing.T) {
	// GIVEN: Plans already seeded
	// WHEN: Seeding again
	// THEN: No duplicates appear

	db := newTestDB()
	ctx := context.Background()

	require.NoError(t, mlm.SeedDefaultPlans(ctx, db.Plans))
	first, err := db.Plans.All(ctx)
	require.NoError(t, err)

	require.NoError(t, mlm.SeedDefaultPlans(ctx, db.Plans))
	second, err := db.Plans.All(ctx)
	require.NoError(t, err)

	assert.Equal(t, len(first), len(second))
}

// =============================================================================
// SCHEDULE SHAPE
// =============================================================================

func TestPlan_MaxLevel(t *testing.T) {
	plan := engine.CommissionPlan{
		Level1: dec(t, "0.06"),
		Level2: dec(t, "0.05"),
		Level3: dec(t, "0.04"),
	}
	assert.Equal(t, 3, plan.MaxLevel())
	assert.True(t, plan.LevelRate(4).IsZero())
	assert.True(t, plan.LevelRate(9).IsZero())
}

package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentagame/commission-engine/engine"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// createAmbassador stores an ambassador sponsored by the given user (nil for
// a network root) and returns it.
func createAmbassador(t *testing.T, db *engine.Database, username string, sponsorID *int) engine.User {
	t.Helper()
	u, err := db.Users.Create(context.Background(), engine.User{
		Username:  username,
		Email:     username + "@example.com",
		Role:      engine.RoleMLMAmbassador,
		SponsorID: sponsorID,
	})
	require.NoError(t, err)
	return u
}

func idRef(id int) *int { return &id }

// =============================================================================
// UPLINE
// =============================================================================

func TestGraph_Upline_NearestFirst(t *testing.T) {
	// GIVEN: Chain root <- mid <- leaf
	// WHEN: Asking for leaf's upline
	// THEN: [mid, root], nearest ancestor first

	db := newTestDB()
	graph := engine.NewGraph(db.Users)
	ctx := context.Background()

	root := createAmbassador(t, db, "root", nil)
	mid := createAmbassador(t, db, "mid", idRef(root.ID))
	leaf := createAmbassador(t, db, "leaf", idRef(mid.ID))

	chain, err := graph.Upline(ctx, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{mid.ID, root.ID}, chain)
}

func TestGraph_Upline_RootHasEmptyChain(t *testing.T) {
	db := newTestDB()
	graph := engine.NewGraph(db.Users)

	root := createAmbassador(t, db, "root", nil)

	chain, err := graph.Upline(context.Background(), root.ID)
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestGraph_Upline_UnknownUser(t *testing.T) {
	db := newTestDB()
	graph := engine.NewGraph(db.Users)

	_, err := graph.Upline(context.Background(), 42)
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestGraph_Upline_DanglingSponsor_EndsWalk(t *testing.T) {
	// GIVEN: An ambassador whose sponsor id points at a deleted user
	// WHEN: Walking the upline
	// THEN: The walk ends cleanly at the dangling pointer

	db := newTestDB()
	graph := engine.NewGraph(db.Users)
	ctx := context.Background()

	root := createAmbassador(t, db, "root", nil)
	leaf := createAmbassador(t, db, "leaf", idRef(root.ID))
	_, err := db.Users.Delete(ctx, root.ID)
	require.NoError(t, err)

	chain, err := graph.Upline(ctx, leaf.ID)
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestGraph_Upline_SkipsNonAmbassadors(t *testing.T) {
	// GIVEN: leaf sponsored by an admin, which is sponsored by an ambassador
	// WHEN: Walking leaf's upline
	// THEN: The admin does not appear and does not consume a level

	db := newTestDB()
	graph := engine.NewGraph(db.Users)
	ctx := context.Background()

	root := createAmbassador(t, db, "root", nil)
	admin, err := db.Users.Create(ctx, engine.User{
		Username:  "ops",
		Email:     "ops@example.com",
		Role:      engine.RoleAdmin,
		SponsorID: idRef(root.ID),
	})
	require.NoError(t, err)
	leaf := createAmbassador(t, db, "leaf", idRef(admin.ID))

	chain, err := graph.Upline(ctx, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{root.ID}, chain)
}

// =============================================================================
// CYCLE GUARD
// =============================================================================

func TestGraph_Upline_Cycle_TerminatesWithError(t *testing.T) {
	// GIVEN: Sponsor chain a -> b -> c -> a
	// WHEN: Walking a's upline
	// THEN: The walk terminates and flags the cycle (never hangs)

	db := newTestDB()
	graph := engine.NewGraph(db.Users)
	ctx := context.Background()

	a := createAmbassador(t, db, "a", nil)
	b := createAmbassador(t, db, "b", nil)
	c := createAmbassador(t, db, "c", nil)
	for _, link := range []struct{ child, sponsor int }{
		{a.ID, b.ID}, {b.ID, c.ID}, {c.ID, a.ID},
	} {
		sponsor := link.sponsor
		_, err := db.Users.Update(ctx, link.child, func(u *engine.User) error {
			u.SponsorID = &sponsor
			return nil
		})
		require.NoError(t, err)
	}

	chain, err := graph.Upline(ctx, a.ID)

	require.ErrorIs(t, err, engine.ErrCycleDetected)
	var cycle *engine.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, a.ID, cycle.Revisit)
	assert.Equal(t, []int{b.ID, c.ID}, chain, "partial chain before the revisit is returned")
}

// =============================================================================
// DOWNLINE & LEVEL
// =============================================================================

func TestGraph_Downline_ImmediateChildrenOnly(t *testing.T) {
	// GIVEN: root sponsors mid1 and mid2; mid1 sponsors leaf
	// WHEN: Asking for root's downline
	// THEN: Only mid1 and mid2 - downline is single-hop, never the subtree

	db := newTestDB()
	graph := engine.NewGraph(db.Users)
	ctx := context.Background()

	root := createAmbassador(t, db, "root", nil)
	mid1 := createAmbassador(t, db, "mid1", idRef(root.ID))
	mid2 := createAmbassador(t, db, "mid2", idRef(root.ID))
	leaf := createAmbassador(t, db, "leaf", idRef(mid1.ID))

	downline, err := graph.Downline(ctx, root.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{mid1.ID, mid2.ID}, downline)
	assert.NotContains(t, downline, leaf.ID)
}

func TestGraph_Downline_ExcludesNonAmbassadors(t *testing.T) {
	db := newTestDB()
	graph := engine.NewGraph(db.Users)
	ctx := context.Background()

	root := createAmbassador(t, db, "root", nil)
	_, err := db.Users.Create(ctx, engine.User{
		Username:  "guest",
		Email:     "guest@example.com",
		Role:      engine.RoleGuest,
		SponsorID: idRef(root.ID),
	})
	require.NoError(t, err)

	downline, err := graph.Downline(ctx, root.ID)
	require.NoError(t, err)
	assert.Empty(t, downline)
}

func TestGraph_Level_IsUplineLength(t *testing.T) {
	db := newTestDB()
	graph := engine.NewGraph(db.Users)
	ctx := context.Background()

	root := createAmbassador(t, db, "root", nil)
	mid := createAmbassador(t, db, "mid", idRef(root.ID))
	leaf := createAmbassador(t, db, "leaf", idRef(mid.ID))

	for _, tc := range []struct {
		id    int
		level int
	}{
		{root.ID, 0}, {mid.ID, 1}, {leaf.ID, 2},
	} {
		level, err := graph.Level(ctx, tc.id)
		require.NoError(t, err)
		assert.Equal(t, tc.level, level)
	}
}

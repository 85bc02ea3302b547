/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Populates the store with realistic data for demos and manual testing.
  Each scenario creates plans, an ambassador network, and sales that
  demonstrate specific engine behavior.

AVAILABLE SCENARIOS:
  starter-network:  Three-level sponsor chain, one generated sale
  deep-team:        Six-level chain showing the level-5 payout cutoff

HOW SCENARIOS WORK:
  1. Seed the default commission plans
  2. Create ambassadors wired together through sponsorId
  3. Create sales and run commission generation

  Scenarios refuse to load over existing users: there is no destructive
  reset path through the store contract.

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "starter-network"}

SEE ALSO:
  - handlers.go: respond helpers
  - mlm/plans.go: The seeded plans
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/pentagame/commission-engine/engine"
	"github.com/pentagame/commission-engine/mlm"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type Scenario struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []Scenario{
	{
		ID:          "starter-network",
		Name:        "Starter Network",
		Description: "Three ambassadors in a sponsor chain with one generated sale",
	},
	{
		ID:          "deep-team",
		Name:        "Deep Team",
		Description: "Six-level sponsor chain showing the level-5 payout cutoff",
	},
}

// ListScenarios returns the available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, scenarios)
}

// LoadScenario populates the store with one scenario's data.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()

	existing, err := h.DB.Users.All(ctx)
	if err != nil {
		respondErr(w, err)
		return
	}
	if len(existing) > 0 {
		respondMessage(w, http.StatusConflict, "scenarios only load into an empty store")
		return
	}

	switch req.ScenarioID {
	case "starter-network":
		err = h.loadChainScenario(ctx, 3)
	case "deep-team":
		err = h.loadChainScenario(ctx, 6)
	default:
		respondMessage(w, http.StatusNotFound, fmt.Sprintf("unknown scenario %q", req.ScenarioID))
		return
	}
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"scenario": req.ScenarioID, "loaded": true})
}

// =============================================================================
// LOADERS
// =============================================================================

// loadChainScenario builds a sponsor chain of the given depth, roots it at
// a pentagame ambassador, and generates commissions for one sale by the
// deepest member.
func (h *Handler) loadChainScenario(ctx context.Context, depth int) error {
	if err := mlm.SeedDefaultPlans(ctx, h.DB.Plans); err != nil {
		return err
	}

	var sponsor *int
	var deepest engine.User
	for i := 0; i < depth; i++ {
		u, err := h.DB.Users.Create(ctx, engine.User{
			Username:       fmt.Sprintf("ambassador%d", i+1),
			Email:          fmt.Sprintf("ambassador%d@example.com", i+1),
			Role:           engine.RolePentagameAmbassador,
			SponsorID:      sponsor,
			Points:         200,
			CompletedTasks: []int{1, 2, 3},
		})
		if err != nil {
			return err
		}
		if sponsor != nil {
			if _, err := h.DB.Referrals.Create(ctx, engine.Referral{
				ReferrerID: *sponsor,
				ReferredID: u.ID,
				Status:     engine.ReferralCompleted,
			}); err != nil {
				return err
			}
		}
		id := u.ID
		sponsor = &id
		deepest = u
	}

	sale, err := h.DB.Sales.Create(ctx, engine.Sale{
		UserID: deepest.ID,
		Amount: decimal.NewFromInt(1000),
		Products: []engine.SaleItem{
			{Name: "Starter Kit", Quantity: 1, Price: decimal.NewFromInt(1000)},
		},
	})
	if err != nil {
		return err
	}
	_, err = h.Generator.Generate(ctx, sale.ID)
	return err
}

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentagame/commission-engine/api"
	"github.com/pentagame/commission-engine/engine"
	"github.com/pentagame/commission-engine/engine/store"
	"github.com/pentagame/commission-engine/mlm"
)

// =============================================================================
// TEST SERVER
// =============================================================================

type testServer struct {
	handler *api.Handler
	router  http.Handler
}

func newTestServer() *testServer {
	db := engine.NewDatabase(store.NewMemory())
	h := api.NewHandler(db)
	return &testServer{handler: h, router: api.NewRouter(h)}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// do runs one request through the full router and decodes the envelope.
func (s *testServer) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env),
		"non-envelope body: %s", rec.Body.String())
	return rec.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (s *testServer) seedUser(t *testing.T, name string, sponsorID *int) engine.User {
	t.Helper()
	u, err := s.handler.DB.Users.Create(context.Background(), engine.User{
		Username:  name,
		Email:     name + "@example.com",
		Role:      engine.RolePentagameAmbassador,
		SponsorID: sponsorID,
	})
	require.NoError(t, err)
	return u
}

func (s *testServer) seedPlan(t *testing.T) {
	t.Helper()
	_, err := s.handler.DB.Plans.Create(context.Background(), engine.CommissionPlan{
		Code:       mlm.PlanPentagame,
		Name:       "Pentagame",
		DirectSale: decimal.RequireFromString("0.2"),
		Level1:     decimal.RequireFromString("0.06"),
		Level2:     decimal.RequireFromString("0.05"),
	})
	require.NoError(t, err)
}

// =============================================================================
// COLLECTION CRUD
// =============================================================================

func TestUsers_CreateAndGet(t *testing.T) {
	s := newTestServer()

	code, env := s.do(t, http.MethodPost, "/api/users", map[string]any{
		"username": "alice",
		"email":    "alice@example.com",
		"role":     "pentagame_ambassador",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	require.True(t, env.Success)
	created := decodeData[engine.User](t, env)
	assert.Equal(t, 1, created.ID)

	code, env = s.do(t, http.MethodGet, "/api/users/1", nil)
	require.Equal(t, http.StatusOK, code)
	got := decodeData[engine.User](t, env)
	assert.Equal(t, "alice", got.Username)
}

func TestUsers_MissingRequiredFields(t *testing.T) {
	s := newTestServer()

	code, env := s.do(t, http.MethodPost, "/api/users", map[string]any{"role": "guest"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "username")
	assert.Contains(t, env.Error, "email")
}

func TestUsers_DuplicateUsernameConflicts(t *testing.T) {
	s := newTestServer()
	s.seedUser(t, "alice", nil)

	code, env := s.do(t, http.MethodPost, "/api/users", map[string]any{
		"username": "Alice",
		"email":    "other@example.com",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "username")
}

func TestUsers_UpdateMergesPatch(t *testing.T) {
	// GIVEN: A stored user
	// WHEN: PUT carries only a points change
	// THEN: Untouched fields keep their stored values

	s := newTestServer()
	s.seedUser(t, "alice", nil)

	code, env := s.do(t, http.MethodPut, "/api/users/1", map[string]any{"points": 150})
	require.Equal(t, http.StatusOK, code, env.Error)
	updated := decodeData[engine.User](t, env)
	assert.Equal(t, 150, updated.Points)
	assert.Equal(t, "alice", updated.Username)
	assert.Equal(t, "alice@example.com", updated.Email)
}

func TestUsers_DeleteThenGet(t *testing.T) {
	s := newTestServer()
	s.seedUser(t, "alice", nil)

	code, _ := s.do(t, http.MethodDelete, "/api/users/1", nil)
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(t, http.MethodGet, "/api/users/1", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
}

func TestUsers_BadID(t *testing.T) {
	s := newTestServer()
	code, env := s.do(t, http.MethodGet, "/api/users/abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "invalid id")
}

func TestCommissionPlans_CRUDContract(t *testing.T) {
	s := newTestServer()

	code, env := s.do(t, http.MethodPost, "/api/commission-plans", map[string]any{
		"code":       "custom",
		"name":       "Custom Plan",
		"directSale": "0.1",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = s.do(t, http.MethodGet, "/api/commission-plans", nil)
	require.Equal(t, http.StatusOK, code)
	plans := decodeData[[]engine.CommissionPlan](t, env)
	require.Len(t, plans, 1)
	assert.Equal(t, "custom", plans[0].Code)
}

// =============================================================================
// SALES + GENERATION
// =============================================================================

func TestCreateSale_GeneratesCommissions(t *testing.T) {
	// GIVEN: A two-level chain and a plan paying 20% / 6%
	// WHEN: POST /api/sales records a 1000 sale by the downline member
	// THEN: Both wallets are credited and the commissions are queryable

	s := newTestServer()
	s.seedPlan(t)
	top := s.seedUser(t, "top", nil)
	seller := s.seedUser(t, "seller", &top.ID)

	code, env := s.do(t, http.MethodPost, "/api/sales", map[string]any{
		"userId": seller.ID,
		"amount": "1000",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	require.True(t, env.Success)

	code, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/wallet", seller.ID), nil)
	require.Equal(t, http.StatusOK, code)
	wallet := decodeData[api.WalletDTO](t, env)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("200")))
	require.Len(t, wallet.Transactions, 1)
	assert.Equal(t, engine.TxCommission, wallet.Transactions[0].Type)

	code, env = s.do(t, http.MethodGet, "/api/commissions", nil)
	require.Equal(t, http.StatusOK, code)
	commissions := decodeData[[]engine.Commission](t, env)
	assert.Len(t, commissions, 2)
}

func TestCreateSale_UnknownSeller(t *testing.T) {
	s := newTestServer()

	code, env := s.do(t, http.MethodPost, "/api/sales", map[string]any{
		"userId": 99,
		"amount": "100",
	})
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)

	sales, err := s.handler.DB.Sales.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sales, "nothing persists for an unknown seller")
}

func TestCreateSale_ValidationRejectsMissingAmount(t *testing.T) {
	s := newTestServer()
	s.seedUser(t, "seller", nil)

	code, env := s.do(t, http.MethodPost, "/api/sales", map[string]any{"userId": 1})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
}

// =============================================================================
// WALLET & NETWORK VIEWS
// =============================================================================

func TestGetWallet_NotFound(t *testing.T) {
	s := newTestServer()
	code, env := s.do(t, http.MethodGet, "/api/users/7/wallet", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
}

func TestGetNetwork_DerivedRelationships(t *testing.T) {
	s := newTestServer()
	top := s.seedUser(t, "top", nil)
	mid := s.seedUser(t, "mid", &top.ID)
	s.seedUser(t, "leaf", &mid.ID)

	code, env := s.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/network", mid.ID), nil)
	require.Equal(t, http.StatusOK, code)
	network := decodeData[api.NetworkDTO](t, env)

	assert.Equal(t, []int{top.ID}, network.Upline)
	assert.Equal(t, []int{3}, network.Downline)
	assert.Equal(t, 1, network.Level)
}

func TestGetNetwork_RootHasEmptySlices(t *testing.T) {
	s := newTestServer()
	top := s.seedUser(t, "top", nil)

	code, env := s.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/network", top.ID), nil)
	require.Equal(t, http.StatusOK, code)
	network := decodeData[api.NetworkDTO](t, env)

	assert.Equal(t, []int{}, network.Upline)
	assert.Equal(t, []int{}, network.Downline)
	assert.Equal(t, 0, network.Level)
}

// =============================================================================
// ADMIN
// =============================================================================

func TestCreateAdjustment_DebitsAndCredits(t *testing.T) {
	s := newTestServer()
	u := s.seedUser(t, "alice", nil)

	code, env := s.do(t, http.MethodPost, "/api/admin/adjustments", map[string]any{
		"userId":    u.ID,
		"amount":    "100",
		"reference": "signup bonus",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = s.do(t, http.MethodPost, "/api/admin/adjustments", map[string]any{
		"userId": u.ID,
		"amount": "-40",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/wallet", u.ID), nil)
	require.Equal(t, http.StatusOK, code)
	wallet := decodeData[api.WalletDTO](t, env)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("60")))
	assert.Len(t, wallet.Transactions, 2)
}

func TestCreateAdjustment_UnknownUser(t *testing.T) {
	s := newTestServer()
	code, _ := s.do(t, http.MethodPost, "/api/admin/adjustments", map[string]any{
		"userId": 42,
		"amount": "10",
	})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestReconcile_PicksUpUnprocessedSales(t *testing.T) {
	// GIVEN: A sale written to the store without going through POST /sales
	// WHEN: The reconcile endpoint runs
	// THEN: The missing commissions are generated

	s := newTestServer()
	s.seedPlan(t)
	seller := s.seedUser(t, "seller", nil)
	_, err := s.handler.DB.Sales.Create(context.Background(), engine.Sale{
		UserID: seller.ID,
		Amount: decimal.RequireFromString("500"),
	})
	require.NoError(t, err)

	code, env := s.do(t, http.MethodPost, "/api/admin/reconcile", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	report := decodeData[mlm.Report](t, env)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Missing)
	assert.Equal(t, 1, report.Created)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios_ListAndLoad(t *testing.T) {
	s := newTestServer()

	code, env := s.do(t, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, code)
	list := decodeData[[]api.Scenario](t, env)
	require.NotEmpty(t, list)

	code, env = s.do(t, http.MethodPost, "/api/scenarios/load", map[string]any{
		"scenario_id": list[0].ID,
	})
	require.Equal(t, http.StatusOK, code, env.Error)

	users, err := s.handler.DB.Users.All(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, users)
	commissions, err := s.handler.DB.Commissions.All(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, commissions)
}

func TestScenarios_RefuseToLoadOverExistingData(t *testing.T) {
	s := newTestServer()
	s.seedUser(t, "alice", nil)

	code, env := s.do(t, http.MethodPost, "/api/scenarios/load", map[string]any{
		"scenario_id": "starter-network",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.Success)
}

func TestScenarios_UnknownID(t *testing.T) {
	s := newTestServer()
	code, _ := s.do(t, http.MethodPost, "/api/scenarios/load", map[string]any{
		"scenario_id": "nope",
	})
	assert.Equal(t, http.StatusNotFound, code)
}

/*
handlers.go - HTTP handlers for the commission platform

PURPOSE:
  Exposes the engine via REST. Handles HTTP request/response, JSON
  serialization, and delegates to the store, ledger, graph, and generator.

ENDPOINTS:
  Collections (users, tasks, commission-plans, kyc, sales, commissions,
  referrals) get the generic CRUD contract:
    GET    /api/<collection>         List all records
    POST   /api/<collection>         Create (validated by the store schema)
    GET    /api/<collection>/{id}    Get one
    PUT    /api/<collection>/{id}    Merge a patch over the record
    DELETE /api/<collection>/{id}    Remove and return the record

  Operations:
    POST   /api/sales                      Create sale + generate commissions
    GET    /api/users/{id}/wallet          Balance + transaction history
    GET    /api/users/{id}/network         Upline / downline / level
    POST   /api/admin/adjustments          Manual wallet correction
    POST   /api/admin/reconcile            Commission reconciliation sweep

ERROR HANDLING:
  Every failure is a value from the core; this layer only maps it:
  - 400: missing required fields, malformed body
  - 404: record not found
  - 409: unique-field collision, sponsor cycle
  - 500: storage failures
  The body is always the {"success": false, "error": ...} envelope.

SEE ALSO:
  - dto.go: Envelope and request types
  - server.go: Route wiring
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pentagame/commission-engine/engine"
	"github.com/pentagame/commission-engine/mlm"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	DB        *engine.Database
	Ledger    *engine.Ledger
	Graph     *engine.Graph
	Generator *mlm.Generator
}

// NewHandler wires the core components over one database.
func NewHandler(db *engine.Database) *Handler {
	return &Handler{
		DB:        db,
		Ledger:    engine.NewLedger(db.Users),
		Graph:     engine.NewGraph(db.Users),
		Generator: mlm.NewGenerator(db),
	}
}

// =============================================================================
// GENERIC COLLECTION HANDLERS
// =============================================================================

// Each collection gets the same CRUD contract; the store schema carries the
// entity-specific validation, so these close over a Collection and stay
// entity-agnostic.

func listHandler[T any](col *engine.Collection[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := col.All(r.Context())
		if err != nil {
			respondErr(w, err)
			return
		}
		if records == nil {
			records = []T{}
		}
		respond(w, http.StatusOK, records)
	}
}

func getHandler[T any](col *engine.Collection[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r)
		if err != nil {
			respondErr(w, err)
			return
		}
		record, err := col.Get(r.Context(), id)
		if err != nil {
			respondErr(w, err)
			return
		}
		respond(w, http.StatusOK, record)
	}
}

func createHandler[T any](col *engine.Collection[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var draft T
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}
		created, err := col.Create(r.Context(), draft)
		if err != nil {
			respondErr(w, err)
			return
		}
		respond(w, http.StatusCreated, created)
	}
}

// updateHandler merges the request body over the stored record: absent
// fields keep their stored values, per the collection's patch contract.
func updateHandler[T any](col *engine.Collection[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r)
		if err != nil {
			respondErr(w, err)
			return
		}
		var patch json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}
		updated, err := col.Update(r.Context(), id, func(record *T) error {
			return json.Unmarshal(patch, record)
		})
		if err != nil {
			respondErr(w, err)
			return
		}
		respond(w, http.StatusOK, updated)
	}
}

func deleteHandler[T any](col *engine.Collection[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r)
		if err != nil {
			respondErr(w, err)
			return
		}
		removed, err := col.Delete(r.Context(), id)
		if err != nil {
			respondErr(w, err)
			return
		}
		respond(w, http.StatusOK, removed)
	}
}

// =============================================================================
// SALES
// =============================================================================

// CreateSale persists the sale and runs commission generation for it.
// POST /api/sales
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()

	// Reject unknown sellers before anything persists.
	if _, err := h.DB.Users.Get(ctx, req.UserID); err != nil {
		respondErr(w, err)
		return
	}

	sale, err := h.DB.Sales.Create(ctx, engine.Sale{
		UserID:   req.UserID,
		Amount:   req.Amount,
		Products: req.Products,
		Status:   req.Status,
	})
	if err != nil {
		respondErr(w, err)
		return
	}

	result, err := h.Generator.Generate(ctx, sale.ID)
	if err != nil {
		// The sale is stored; the sweep will pick the generation up later.
		respond(w, http.StatusCreated, SaleCreatedDTO{Sale: sale, Generation: Envelope{Success: false, Error: err.Error()}})
		return
	}
	respond(w, http.StatusCreated, SaleCreatedDTO{Sale: sale, Generation: result})
}

// =============================================================================
// WALLET & NETWORK
// =============================================================================

// GetWallet returns a user's balance and full transaction history.
// GET /api/users/{id}/wallet
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	balance, err := h.Ledger.Balance(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	txs, err := h.Ledger.Transactions(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, WalletDTO{UserID: id, Balance: balance, Transactions: txs})
}

// GetNetwork returns the user's derived referral relationships.
// GET /api/users/{id}/network
func (h *Handler) GetNetwork(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	ctx := r.Context()

	upline, err := h.Graph.Upline(ctx, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	downline, err := h.Graph.Downline(ctx, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	if upline == nil {
		upline = []int{}
	}
	if downline == nil {
		downline = []int{}
	}
	respond(w, http.StatusOK, NetworkDTO{
		UserID:   id,
		Upline:   upline,
		Downline: downline,
		Level:    len(upline),
	})
}

// =============================================================================
// ADMIN OPERATIONS
// =============================================================================

// CreateAdjustment posts a manual wallet correction.
// POST /api/admin/adjustments
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := h.Ledger.Adjust(r.Context(), req.UserID, req.Amount, req.Reference)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, tx)
}

// Reconcile sweeps sales missing commissions and generates them.
// POST /api/admin/reconcile
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.Generator.Reconcile(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, report)
}

// =============================================================================
// HELPERS
// =============================================================================

func urlID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, &badIDError{raw: chi.URLParam(r, "id")}
	}
	return id, nil
}

type badIDError struct{ raw string }

func (e *badIDError) Error() string { return "invalid id: " + e.raw }

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: status < 400, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: false, Error: message})
}

func respondErr(w http.ResponseWriter, err error) {
	respondMessage(w, statusFor(err), err.Error())
}

// statusFor maps core error values onto HTTP statuses.
func statusFor(err error) int {
	var badID *badIDError
	var validation *engine.ValidationError

	switch {
	case errors.As(err, &badID):
		return http.StatusBadRequest
	case engine.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &validation):
		if validation.Duplicate != "" {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrCycleDetected):
		return http.StatusConflict
	case engine.IsClientError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

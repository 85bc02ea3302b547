/*
dto.go - Request/response shapes for the HTTP surface

PURPOSE:
  Defines the envelope every endpoint answers with and the request bodies
  that are not plain entity documents. Entity CRUD decodes straight into
  the engine types; only the operations with extra semantics (sales,
  adjustments, scenario loading) get dedicated request types here.

ENVELOPE:
  Every response is {"success": true, "data": ...} or
  {"success": false, "error": "..."}. No endpoint answers a bare value.

VALIDATION:
  Request bodies are validated with go-playground/validator struct tags
  before any core call; the Record Store re-validates required/unique
  fields as the source of truth.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/types.go: The entity documents CRUD endpoints carry
*/
package api

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/pentagame/commission-engine/engine"
)

var validate = validator.New()

// =============================================================================
// ENVELOPE
// =============================================================================

type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateSaleRequest creates a Sale and triggers commission generation.
type CreateSaleRequest struct {
	UserID   int               `json:"userId" validate:"required,gt=0"`
	Amount   decimal.Decimal   `json:"amount" validate:"required"`
	Products []engine.SaleItem `json:"products"`
	Status   engine.SaleStatus `json:"status"`
}

// AdjustmentRequest posts a manual wallet correction. Amount may be
// negative to represent a debit.
type AdjustmentRequest struct {
	UserID    int             `json:"userId" validate:"required,gt=0"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Reference string          `json:"reference"`
}

// LoadScenarioRequest selects a demo scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// WalletDTO is the GET /users/{id}/wallet payload.
type WalletDTO struct {
	UserID       int                        `json:"userId"`
	Balance      decimal.Decimal            `json:"balance"`
	Transactions []engine.WalletTransaction `json:"transactions"`
}

// NetworkDTO is the GET /users/{id}/network payload: the derived referral
// relationships, computed fresh per request.
type NetworkDTO struct {
	UserID   int   `json:"userId"`
	Upline   []int `json:"upline"`
	Downline []int `json:"downline"`
	Level    int   `json:"level"`
}

// SaleCreatedDTO pairs the stored sale with its generation outcome.
type SaleCreatedDTO struct {
	Sale       engine.Sale `json:"sale"`
	Generation any         `json:"generation"`
}

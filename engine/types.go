/*
Package engine provides the core commission and referral-network engine.

PURPOSE:
  This package contains the record types and algorithms shared by every part
  of the platform: the generic record store, the wallet ledger, and the
  referral graph. Domain rules (payout schedules, commission generation) live
  in the mlm package and are built on top of these primitives.

KEY CONCEPTS IN THIS FILE (types.go):
  - User/Wallet: An ambassador and their owned transaction ledger
  - CommissionPlan: A payout schedule (direct rate + level 1..5 rates)
  - Sale/Commission: A completed transaction and the postings derived from it
  - Role: The small enumerated set of account roles

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all money and rates - no float math
  2. Flat records: Every entity is a plain struct persisted as JSON; the
     referral tree is derived from sponsor pointers, never stored
  3. Integer IDs: Records carry monotonically assigned integer ids, unique
     within their collection only

SEE ALSO:
  - store.go: Generic collection persistence with validation policies
  - ledger.go: Wallet balance + transaction invariants
  - network.go: Upline/downline derivation from sponsor pointers
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROLES
// =============================================================================

type Role string

const (
	RoleEntryAmbassador     Role = "entry_ambassador"
	RoleMLMAmbassador       Role = "mlm_ambassador"
	RoleWTWAmbassador       Role = "wtw_ambassador"
	RolePentagameAmbassador Role = "pentagame_ambassador"
	RoleAdmin               Role = "admin"
	RoleGuest               Role = "guest"
)

// IsAmbassador reports whether the role participates in the referral graph.
// Admin and guest accounts are excluded from upline and downline results.
func (r Role) IsAmbassador() bool {
	switch r {
	case RoleEntryAmbassador, RoleMLMAmbassador, RoleWTWAmbassador, RolePentagameAmbassador:
		return true
	}
	return false
}

// =============================================================================
// WALLET - Owned ledger of balance-affecting transactions
// =============================================================================

type TransactionType string

const (
	TxCommission TransactionType = "commission" // credit from a commission posting
	TxAdjustment TransactionType = "adjustment" // manual admin correction (may be negative)
	TxWithdrawal TransactionType = "withdrawal" // payout to the ambassador
)

// WalletTransaction is one append-only ledger entry. IDs are unique within
// the owning wallet only.
type WalletTransaction struct {
	ID        int             `json:"id"`
	Type      TransactionType `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Reference string          `json:"reference,omitempty"`
}

// Wallet holds a user's balance and transaction history.
//
// INVARIANT: Balance == sum of Transactions[].Amount at any quiescent point.
// The ledger (ledger.go) is the only writer; both fields are always persisted
// together in a single collection write.
type Wallet struct {
	Balance      decimal.Decimal     `json:"balance"`
	Transactions []WalletTransaction `json:"transactions"`
}

// NextTransactionID returns max(existing ids)+1, or 1 for an empty wallet.
func (w Wallet) NextTransactionID() int {
	next := 1
	for _, tx := range w.Transactions {
		if tx.ID >= next {
			next = tx.ID + 1
		}
	}
	return next
}

// Sum replays the transaction list. Used to verify the balance invariant.
func (w Wallet) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, tx := range w.Transactions {
		total = total.Add(tx.Amount)
	}
	return total
}

// =============================================================================
// USER / AMBASSADOR
// =============================================================================

// User is an account record. SponsorID is a weak back-reference to the user
// who referred this one; followed transitively it must never cycle (the
// network walk is guarded defensively regardless, see network.go).
type User struct {
	ID             int             `json:"id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	Role           Role            `json:"role"`
	SponsorID      *int            `json:"sponsorId"`
	CommissionRate decimal.Decimal `json:"commissionRate"` // direct-sale override; zero means "use plan rate"
	Points         int             `json:"points"`
	CompletedTasks []int           `json:"completedTasks"`

	// Running aggregates, monotonic non-decreasing under normal operation.
	TotalSales       decimal.Decimal `json:"totalSales"`
	TotalCommissions decimal.Decimal `json:"totalCommissions"`

	Wallet Wallet `json:"wallet"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// =============================================================================
// COMMISSION PLAN - Payout schedule
// =============================================================================

// CommissionPlan maps a plan code to its percentage payout schedule.
// Rates are fractions in [0,1]: DirectSale applies to the seller,
// Level1..Level5 to upline ancestors by depth.
type CommissionPlan struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`

	DirectSale decimal.Decimal `json:"directSale"`
	Level1     decimal.Decimal `json:"level1"`
	Level2     decimal.Decimal `json:"level2"`
	Level3     decimal.Decimal `json:"level3"`
	Level4     decimal.Decimal `json:"level4"`
	Level5     decimal.Decimal `json:"level5"`

	// Eligibility gates.
	MinPoints int             `json:"minPoints"`
	MinTasks  int             `json:"minTasks"`
	MinSales  decimal.Decimal `json:"minSales"`

	Cost decimal.Decimal `json:"cost"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LevelRate returns the rate for upline depth d (1-based).
// Depths outside 1..5 have no rate.
func (p CommissionPlan) LevelRate(d int) decimal.Decimal {
	switch d {
	case 1:
		return p.Level1
	case 2:
		return p.Level2
	case 3:
		return p.Level3
	case 4:
		return p.Level4
	case 5:
		return p.Level5
	}
	return decimal.Zero
}

// MaxLevel returns the deepest depth with a nonzero rate. The upline walk
// stops past this depth: a plan defining only level1..level3 pays exactly
// three levels above the direct sale.
func (p CommissionPlan) MaxLevel() int {
	max := 0
	for d := 1; d <= 5; d++ {
		if p.LevelRate(d).IsPositive() {
			max = d
		}
	}
	return max
}

// =============================================================================
// SALE
// =============================================================================

type SaleStatus string

const (
	SaleCompleted SaleStatus = "completed"
	SalePending   SaleStatus = "pending"
	SaleCancelled SaleStatus = "cancelled"
)

type SaleItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Sale records one completed transaction. Amount is immutable after
// creation in the normal flow; edits are out-of-band repairs.
type Sale struct {
	ID       int             `json:"id"`
	UserID   int             `json:"userId"` // the ambassador credited with the direct sale
	Amount   decimal.Decimal `json:"amount"`
	Products []SaleItem      `json:"products"`
	Status   SaleStatus      `json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// =============================================================================
// COMMISSION - One posting derived from a sale
// =============================================================================

type CommissionType string

const (
	CommissionDirectSale CommissionType = "direct_sale"
	CommissionTeamBonus  CommissionType = "team_bonus"
)

type CommissionStatus string

const (
	CommissionPending   CommissionStatus = "pending"
	CommissionPaid      CommissionStatus = "paid"
	CommissionCancelled CommissionStatus = "cancelled"
)

// Commission is one payout posting. Level 0 is the seller's direct
// commission; levels 1..5 are upline team bonuses.
//
// INVARIANT: at most one Commission per (SaleID, UserID, Level). The
// generator checks this before posting so regeneration never duplicates.
type Commission struct {
	ID             int              `json:"id"`
	UserID         int              `json:"userId"` // beneficiary
	SaleID         int              `json:"saleId"`
	Type           CommissionType   `json:"type"`
	Level          int              `json:"level"`
	Amount         decimal.Decimal  `json:"amount"`
	CommissionRate decimal.Decimal  `json:"commissionRate"`
	Status         CommissionStatus `json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// =============================================================================
// SUPPORTING COLLECTIONS
// =============================================================================

type TaskStatus string

const (
	TaskOpen      TaskStatus = "open"
	TaskCompleted TaskStatus = "completed"
)

// Task is a points-earning activity assigned to ambassadors.
type Task struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	Status      TaskStatus `json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type KYCStatus string

const (
	KYCSubmitted KYCStatus = "submitted"
	KYCApproved  KYCStatus = "approved"
	KYCRejected  KYCStatus = "rejected"
)

// KYCRecord tracks an identity-verification submission.
type KYCRecord struct {
	ID           int       `json:"id"`
	UserID       int       `json:"userId"`
	DocumentType string    `json:"documentType"`
	Status       KYCStatus `json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralCompleted ReferralStatus = "completed"
)

// Referral records a signup attributed to a referrer. The live graph is
// derived from User.SponsorID; this collection is the audit trail.
type Referral struct {
	ID         int            `json:"id"`
	ReferrerID int            `json:"referrerId"`
	ReferredID int            `json:"referredId"`
	Status     ReferralStatus `json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

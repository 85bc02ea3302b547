/*
database.go - The explicit store object and per-entity schemas

PURPOSE:
  Bundles one Collection per entity behind a single Database value that is
  passed by injection to every component. All mutation funnels through the
  collections' create/update/delete contract; there is no package-level
  mutable state.

SCHEMAS:
  Each entity's required fields, unique fields, defaults, and timestamp
  stamping are declared here, in one place, as Schema values. The generic
  store applies them; call sites never re-validate.

SEE ALSO:
  - store.go: Collection and Schema
  - types.go: The entities
*/
package engine

import (
	"strings"
	"time"
)

// Database is the explicit store object. One instance per process; the
// single-writer serialization lives inside each Collection.
type Database struct {
	Users       *Collection[User]
	Tasks       *Collection[Task]
	Plans       *Collection[CommissionPlan]
	KYC         *Collection[KYCRecord]
	Sales       *Collection[Sale]
	Commissions *Collection[Commission]
	Referrals   *Collection[Referral]
}

func NewDatabase(backend Backend) *Database {
	return &Database{
		Users:       NewCollection("users", backend, UserSchema()),
		Tasks:       NewCollection("tasks", backend, TaskSchema()),
		Plans:       NewCollection("commission_plans", backend, PlanSchema()),
		KYC:         NewCollection("kyc", backend, KYCSchema()),
		Sales:       NewCollection("sales", backend, SaleSchema()),
		Commissions: NewCollection("commissions", backend, CommissionSchema()),
		Referrals:   NewCollection("referrals", backend, ReferralSchema()),
	}
}

// =============================================================================
// ENTITY SCHEMAS
// =============================================================================

func UserSchema() Schema[User] {
	return Schema[User]{
		ID:    func(u *User) int { return u.ID },
		SetID: func(u *User, id int) { u.ID = id },
		Missing: func(u *User) []string {
			var missing []string
			if u.Username == "" {
				missing = append(missing, "username")
			}
			if u.Email == "" {
				missing = append(missing, "email")
			}
			return missing
		},
		Keys: func(u *User) map[string]string {
			return map[string]string{
				"username": strings.ToLower(u.Username),
				"email":    strings.ToLower(u.Email),
			}
		},
		Defaults: func(u *User) {
			if u.Role == "" {
				u.Role = RoleGuest
			}
			if u.CompletedTasks == nil {
				u.CompletedTasks = []int{}
			}
			if u.Wallet.Transactions == nil {
				u.Wallet.Transactions = []WalletTransaction{}
			}
		},
		Stamp: stampTimes[User](
			func(u *User) (*time.Time, *time.Time) { return &u.CreatedAt, &u.UpdatedAt },
		),
	}
}

func TaskSchema() Schema[Task] {
	return Schema[Task]{
		ID:    func(t *Task) int { return t.ID },
		SetID: func(t *Task, id int) { t.ID = id },
		Missing: func(t *Task) []string {
			if t.Title == "" {
				return []string{"title"}
			}
			return nil
		},
		Defaults: func(t *Task) {
			if t.Status == "" {
				t.Status = TaskOpen
			}
		},
		Stamp: stampTimes[Task](
			func(t *Task) (*time.Time, *time.Time) { return &t.CreatedAt, &t.UpdatedAt },
		),
	}
}

func PlanSchema() Schema[CommissionPlan] {
	return Schema[CommissionPlan]{
		ID:    func(p *CommissionPlan) int { return p.ID },
		SetID: func(p *CommissionPlan, id int) { p.ID = id },
		Missing: func(p *CommissionPlan) []string {
			var missing []string
			if p.Code == "" {
				missing = append(missing, "code")
			}
			if p.Name == "" {
				missing = append(missing, "name")
			}
			return missing
		},
		Keys: func(p *CommissionPlan) map[string]string {
			return map[string]string{"code": strings.ToLower(p.Code)}
		},
		Stamp: stampTimes[CommissionPlan](
			func(p *CommissionPlan) (*time.Time, *time.Time) { return &p.CreatedAt, &p.UpdatedAt },
		),
	}
}

func KYCSchema() Schema[KYCRecord] {
	return Schema[KYCRecord]{
		ID:    func(k *KYCRecord) int { return k.ID },
		SetID: func(k *KYCRecord, id int) { k.ID = id },
		Missing: func(k *KYCRecord) []string {
			var missing []string
			if k.UserID == 0 {
				missing = append(missing, "userId")
			}
			if k.DocumentType == "" {
				missing = append(missing, "documentType")
			}
			return missing
		},
		Defaults: func(k *KYCRecord) {
			if k.Status == "" {
				k.Status = KYCSubmitted
			}
		},
		Stamp: stampTimes[KYCRecord](
			func(k *KYCRecord) (*time.Time, *time.Time) { return &k.CreatedAt, &k.UpdatedAt },
		),
	}
}

func SaleSchema() Schema[Sale] {
	return Schema[Sale]{
		ID:    func(s *Sale) int { return s.ID },
		SetID: func(s *Sale, id int) { s.ID = id },
		Missing: func(s *Sale) []string {
			var missing []string
			if s.UserID == 0 {
				missing = append(missing, "userId")
			}
			if !s.Amount.IsPositive() {
				missing = append(missing, "amount")
			}
			return missing
		},
		Defaults: func(s *Sale) {
			if s.Status == "" {
				s.Status = SaleCompleted
			}
			if s.Products == nil {
				s.Products = []SaleItem{}
			}
		},
		Stamp: stampTimes[Sale](
			func(s *Sale) (*time.Time, *time.Time) { return &s.CreatedAt, &s.UpdatedAt },
		),
	}
}

func CommissionSchema() Schema[Commission] {
	return Schema[Commission]{
		ID:    func(cm *Commission) int { return cm.ID },
		SetID: func(cm *Commission, id int) { cm.ID = id },
		Missing: func(cm *Commission) []string {
			var missing []string
			if cm.UserID == 0 {
				missing = append(missing, "userId")
			}
			if cm.SaleID == 0 {
				missing = append(missing, "saleId")
			}
			return missing
		},
		Defaults: func(cm *Commission) {
			if cm.Status == "" {
				cm.Status = CommissionPending
			}
			if cm.Type == "" {
				if cm.Level == 0 {
					cm.Type = CommissionDirectSale
				} else {
					cm.Type = CommissionTeamBonus
				}
			}
		},
		Stamp: stampTimes[Commission](
			func(cm *Commission) (*time.Time, *time.Time) { return &cm.CreatedAt, &cm.UpdatedAt },
		),
	}
}

func ReferralSchema() Schema[Referral] {
	return Schema[Referral]{
		ID:    func(r *Referral) int { return r.ID },
		SetID: func(r *Referral, id int) { r.ID = id },
		Missing: func(r *Referral) []string {
			var missing []string
			if r.ReferrerID == 0 {
				missing = append(missing, "referrerId")
			}
			if r.ReferredID == 0 {
				missing = append(missing, "referredId")
			}
			return missing
		},
		Defaults: func(r *Referral) {
			if r.Status == "" {
				r.Status = ReferralPending
			}
		},
		Stamp: stampTimes[Referral](
			func(r *Referral) (*time.Time, *time.Time) { return &r.CreatedAt, &r.UpdatedAt },
		),
	}
}

// stampTimes builds a Stamp function from accessors for the two timestamp
// fields every entity carries.
func stampTimes[T any](fields func(*T) (created *time.Time, updated *time.Time)) func(*T, time.Time, bool) {
	return func(rec *T, t time.Time, isCreate bool) {
		created, updated := fields(rec)
		if isCreate {
			*created = t
		}
		*updated = t
	}
}

/*
ledger.go - Wallet balance + append-only transaction list

PURPOSE:
  The only writer of wallet state. Every commission credit and manual
  adjustment goes through Post, which appends a transaction and moves the
  balance in the same collection write - the two can never diverge on disk.

INVARIANT:
  balance == sum(transactions[].amount) at any quiescent point.

CORRECTIONS:
  There is no separate debit path. Adjustments follow the same append as
  commission credits; negative amounts represent debits. History is never
  edited.

FAILURE:
  If the owning user does not exist, Post returns NotFoundError and performs
  no mutation. A failed collection write leaves the wallet untouched (the
  rewrite is all-or-nothing at the backend).

SEE ALSO:
  - types.go: Wallet, WalletTransaction
  - mlm/commission.go: The main caller (commission credits)
*/
package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER
// =============================================================================

// Entry is a draft wallet transaction. Date defaults to the ledger clock
// when zero; the transaction id is assigned inside the owning wallet.
type Entry struct {
	Type      TransactionType
	Amount    decimal.Decimal
	Date      time.Time
	Reference string
}

// Ledger mutates wallets through the user collection so the append and the
// balance move persist together.
type Ledger struct {
	users *Collection[User]
	now   func() time.Time
}

func NewLedger(users *Collection[User]) *Ledger {
	return &Ledger{users: users, now: time.Now}
}

// SetClock overrides the time source for deterministic tests.
func (l *Ledger) SetClock(now func() time.Time) { l.now = now }

// Post appends a transaction to the user's wallet and adds its amount to
// the balance atomically with the append.
func (l *Ledger) Post(ctx context.Context, userID int, entry Entry) (WalletTransaction, error) {
	if entry.Date.IsZero() {
		entry.Date = l.now()
	}

	var posted WalletTransaction
	_, err := l.users.Update(ctx, userID, func(u *User) error {
		posted = WalletTransaction{
			ID:        u.Wallet.NextTransactionID(),
			Type:      entry.Type,
			Amount:    entry.Amount,
			Date:      entry.Date,
			Reference: entry.Reference,
		}
		u.Wallet.Transactions = append(u.Wallet.Transactions, posted)
		u.Wallet.Balance = u.Wallet.Balance.Add(entry.Amount)
		return nil
	})
	if err != nil {
		return WalletTransaction{}, err
	}
	return posted, nil
}

// Adjust records a manual correction. Same path as Post; amounts may be
// negative to represent debits.
func (l *Ledger) Adjust(ctx context.Context, userID int, amount decimal.Decimal, reference string) (WalletTransaction, error) {
	return l.Post(ctx, userID, Entry{
		Type:      TxAdjustment,
		Amount:    amount,
		Reference: reference,
	})
}

// Balance returns the user's current wallet balance.
func (l *Ledger) Balance(ctx context.Context, userID int) (decimal.Decimal, error) {
	u, err := l.users.Get(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return u.Wallet.Balance, nil
}

// Transactions returns the user's full transaction history in append order.
func (l *Ledger) Transactions(ctx context.Context, userID int) ([]WalletTransaction, error) {
	u, err := l.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Wallet.Transactions, nil
}

// Package loyalty tracks the totopos rewards ledger. Balances are the sum of
// ledger deltas per customer; like the inventory ledger there is no separate
// counter to drift.
package loyalty

import (
	"errors"
	"time"
)

// Reasons recorded on ledger entries.
const (
	ReasonPurchase = "purchase"
	ReasonRedeem   = "redeem"
)

// EarnPerOrder is the accrual for closing an order with a phone attached.
const EarnPerOrder = 1

// Customer is keyed by phone; one row per distinct phone.
type Customer struct {
	ID        int64
	Phone     string
	CreatedAt time.Time
}

// Entry is one signed ledger row. OrderID is set for purchase accruals so
// deleting an order can remove exactly its accruals.
type Entry struct {
	ID         int64
	CustomerID int64
	OrderID    *int64
	Delta      int
	Reason     string
	CreatedAt  time.Time
}

// RewardProgress reports how far a balance is from a redemption goal.
type RewardProgress struct {
	Goal      int
	Balance   int
	Remaining int
	Redeemable bool
}

var (
	// ErrCustomerNotFound indicates no customer exists for the phone.
	ErrCustomerNotFound = errors.New("loyalty: customer not found")
	// ErrInvalidPhone indicates an empty or digit-less phone.
	ErrInvalidPhone = errors.New("loyalty: phone required")
)

// Progress computes remaining points toward a goal, treating multiples of the
// goal as immediately redeemable.
func Progress(balance, goal int) RewardProgress {
	p := RewardProgress{Goal: goal, Balance: balance}
	if goal <= 0 {
		return p
	}
	r := balance % goal
	if r == 0 && balance > 0 {
		p.Redeemable = true
		return p
	}
	p.Remaining = goal - r
	return p
}

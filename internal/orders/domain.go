// Package orders manages the pedido lifecycle: open orders accumulate line
// items, closing an order flips it to cerrado and debits stock in the same
// transaction, and deleting a closed order reverses both the stock debit and
// the loyalty accrual.
package orders

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Order states. The transition abierto → cerrado is terminal.
const (
	StatusOpen   = "abierto"
	StatusClosed = "cerrado"
)

// Known order origins; stored as free text, these are the values the UI sends.
const (
	OriginDineIn   = "local"
	OriginTakeout  = "llevar"
	OriginDelivery = "uber"
)

// Order is one pedido. Code is a uuid printed on tickets so customers get a
// reference that does not leak row counts.
type Order struct {
	ID          int64
	Code        string
	Date        time.Time
	Origin      string
	Waiter      string
	Phone       string
	PayMethod   string
	Total       decimal.Decimal
	DeliveryFee decimal.Decimal
	Net         decimal.Decimal
	Status      string
	CreatedAt   time.Time
}

// Item is one pedido_items row. ProteinLabel/Without/Note are free-text ticket
// annotations; ProteinID additionally drives stock consumption.
type Item struct {
	ID           int64
	OrderID      int64
	ProductID    int64
	ProductName  string
	ProteinID    *int64
	ProteinLabel string
	Without      string
	Note         string
	Qty          int
	UnitPrice    decimal.Decimal
	Subtotal     decimal.Decimal
}

// ItemInput is a requested line before price lookup.
type ItemInput struct {
	ProductID    int64
	Qty          int
	ProteinID    *int64
	ProteinLabel string
	Without      string
	Note         string
}

// Draft is the payload for creating an order.
type Draft struct {
	Date        time.Time
	Origin      string
	Waiter      string
	Phone       string
	PayMethod   string
	DeliveryFee decimal.Decimal
	Items       []ItemInput
}

// CloseResult reports what the close transaction did.
type CloseResult struct {
	Order          Order
	MovementsAdded int
	PointsEarned   int
	LoyaltyBalance int
}

var (
	// ErrOrderNotFound indicates the pedido does not exist.
	ErrOrderNotFound = errors.New("orders: order not found")
	// ErrOrderClosed indicates a mutation against an already closed pedido.
	ErrOrderClosed = errors.New("orders: order already closed")
	// ErrItemNotFound indicates the line item does not exist on the pedido.
	ErrItemNotFound = errors.New("orders: item not found")
	// ErrNoItems indicates an attempt to create an order with no valid lines.
	ErrNoItems = errors.New("orders: at least one item is required")
	// ErrNoSelection indicates a bulk deletion with nothing selected.
	ErrNoSelection = errors.New("orders: no orders selected")
)

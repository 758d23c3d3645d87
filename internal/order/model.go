package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
	StatusSent      Status = "SENT"
	StatusReceived  Status = "RECEIVED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusConfirmed, StatusSent, StatusReceived, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// allowedTransitions is the single source of truth for the order
// lifecycle. RECEIVED and CANCELLED are terminal.
var allowedTransitions = map[Status]map[Status]bool{
	StatusDraft: {
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusSent:      true,
		StatusCancelled: true,
	},
	StatusSent: {
		StatusReceived:  true,
		StatusCancelled: true,
	},
	StatusReceived:  {},
	StatusCancelled: {},
}

// CanTransitionTo reports whether s -> next is a legal lifecycle edge.
func (s Status) CanTransitionTo(next Status) bool {
	return allowedTransitions[s][next]
}

// Item is one product line within an order. UnitPrice stays null while
// the order is a draft; it is snapshotted from the supplier's offer the
// moment the order is confirmed and never changes afterwards.
type Item struct {
	ID        uuid.UUID           `json:"id" db:"id"`
	OrderID   uuid.UUID           `json:"order_id" db:"order_id"`
	ProductID uuid.UUID           `json:"product_id" db:"product_id"`
	Quantity  float64             `json:"quantity" db:"quantity"`
	UnitPrice decimal.NullDecimal `json:"unit_price" db:"unit_price"`
	Subtotal  decimal.Decimal     `json:"subtotal" db:"subtotal"`
	CreatedAt time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt time.Time           `json:"updated_at" db:"updated_at"`
}

// Order is one purchase transaction with one supplier. Total is always
// the recomputed sum of item subtotals, never set independently.
type Order struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	SupplierID uuid.UUID       `json:"supplier_id" db:"supplier_id"`
	Status     Status          `json:"status" db:"status"`
	Notes      *string         `json:"notes,omitempty" db:"notes"`
	Total      decimal.Decimal `json:"total" db:"total"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`

	// Populated by GetOrder and every mutating operation; not a column.
	Items []Item `json:"items" db:"-"`
}

// FindItem returns the line for productID, or nil.
func (o *Order) FindItem(productID uuid.UUID) *Item {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i]
		}
	}
	return nil
}

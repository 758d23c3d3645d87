package catalog

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Supplier is a vendor we buy from.
type Supplier struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     *string   `json:"email,omitempty" db:"email"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	Address   *string   `json:"address,omitempty" db:"address"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Loaded only by GetSupplier; not a column.
	Products []SupplierProduct `json:"products,omitempty" db:"-"`
}

// Product is a purchasable good, unique by SKU.
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	SKU         string    `json:"sku" db:"sku"`
	Description *string   `json:"description,omitempty" db:"description"`
	Unit        string    `json:"unit" db:"unit"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// SupplierProduct links a supplier to a product it sells, with the
// supplier's terms. UnitPrice is null until the supplier quotes one.
// At most one row exists per (supplier, product) pair.
type SupplierProduct struct {
	SupplierID      uuid.UUID           `json:"supplier_id" db:"supplier_id"`
	ProductID       uuid.UUID           `json:"product_id" db:"product_id"`
	MinimumQuantity float64             `json:"minimum_quantity" db:"minimum_quantity"`
	OptimalQuantity float64             `json:"optimal_quantity" db:"optimal_quantity"`
	UnitPrice       decimal.NullDecimal `json:"unit_price" db:"unit_price"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" db:"updated_at"`
}

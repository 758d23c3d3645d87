package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrSupplierNotFound = errors.New("supplier not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrOfferNotFound    = errors.New("supplier offer not found")

	// ErrDuplicate surfaces a unique-constraint violation that slipped
	// past the service-level existence check (two concurrent creates).
	ErrDuplicate = errors.New("duplicate unique key")

	// ErrReferenced surfaces a RESTRICT foreign key: the row is part of
	// order history and must not disappear from under it.
	ErrReferenced = errors.New("row is referenced by existing orders")
)

type Repository interface {
	CreateSupplier(ctx context.Context, s *Supplier) error
	GetSupplierByID(ctx context.Context, id uuid.UUID) (*Supplier, error)
	GetSupplierByName(ctx context.Context, name string) (*Supplier, error)
	GetSupplierWithProducts(ctx context.Context, id uuid.UUID) (*Supplier, error)
	ListSuppliers(ctx context.Context, skip, limit int) ([]Supplier, error)
	UpdateSupplier(ctx context.Context, s *Supplier) error
	DeleteSupplier(ctx context.Context, id uuid.UUID) error
	SupplierExists(ctx context.Context, id uuid.UUID) (bool, error)

	CreateProduct(ctx context.Context, p *Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*Product, error)
	ListProducts(ctx context.Context, skip, limit int) ([]Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ProductExists(ctx context.Context, id uuid.UUID) (bool, error)

	ListOffers(ctx context.Context, supplierID uuid.UUID) ([]SupplierProduct, error)
	GetOffer(ctx context.Context, supplierID, productID uuid.UUID) (*SupplierProduct, error)
	CreateOffer(ctx context.Context, sp *SupplierProduct) error
	UpdateOffer(ctx context.Context, sp *SupplierProduct) error
	DeleteOffer(ctx context.Context, supplierID, productID uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const supplierColumns = "id, name, email, phone, address, created_at, updated_at"
const productColumns = "id, name, sku, description, unit, created_at, updated_at"
const offerColumns = "supplier_id, product_id, minimum_quantity, optimal_quantity, unit_price, created_at, updated_at"

func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return ErrDuplicate
	case pgerrcode.ForeignKeyViolation:
		return ErrReferenced
	}
	return err
}

// ── Suppliers ──

func (r *postgresRepository) CreateSupplier(ctx context.Context, s *Supplier) error {
	if s.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate supplier ID: %w", err)
		}
		s.ID = id
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	query := `
		INSERT INTO suppliers (id, name, email, phone, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, s.ID, s.Name, s.Email, s.Phone, s.Address, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if translated := translatePgError(err); translated != err {
			return translated
		}
		return fmt.Errorf("repository: failed to insert supplier: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetSupplierByID(ctx context.Context, id uuid.UUID) (*Supplier, error) {
	var s Supplier
	err := r.db.QueryRow(ctx, "SELECT "+supplierColumns+" FROM suppliers WHERE id = $1", id).Scan(
		&s.ID, &s.Name, &s.Email, &s.Phone, &s.Address, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("repository: failed to select supplier %s: %w", id, err)
	}
	return &s, nil
}

func (r *postgresRepository) GetSupplierByName(ctx context.Context, name string) (*Supplier, error) {
	var s Supplier
	err := r.db.QueryRow(ctx, "SELECT "+supplierColumns+" FROM suppliers WHERE name = $1", name).Scan(
		&s.ID, &s.Name, &s.Email, &s.Phone, &s.Address, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("repository: failed to select supplier by name %q: %w", name, err)
	}
	return &s, nil
}

func (r *postgresRepository) GetSupplierWithProducts(ctx context.Context, id uuid.UUID) (*Supplier, error) {
	s, err := r.GetSupplierByID(ctx, id)
	if err != nil {
		return nil, err
	}
	offers, err := r.ListOffers(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Products = offers
	return s, nil
}

func (r *postgresRepository) ListSuppliers(ctx context.Context, skip, limit int) ([]Supplier, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+supplierColumns+" FROM suppliers ORDER BY name LIMIT $1 OFFSET $2", limit, skip)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := make([]Supplier, 0)
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Address, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating suppliers: %w", err)
	}
	return suppliers, nil
}

func (r *postgresRepository) UpdateSupplier(ctx context.Context, s *Supplier) error {
	s.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE suppliers
		SET name = $1, email = $2, phone = $3, address = $4, updated_at = $5
		WHERE id = $6
	`
	cmdTag, err := r.db.Exec(ctx, query, s.Name, s.Email, s.Phone, s.Address, s.UpdatedAt, s.ID)
	if err != nil {
		if translated := translatePgError(err); translated != err {
			return translated
		}
		return fmt.Errorf("repository: failed to update supplier %s: %w", s.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrSupplierNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, "DELETE FROM suppliers WHERE id = $1", id)
	if err != nil {
		if translated := translatePgError(err); translated != err {
			return translated
		}
		return fmt.Errorf("repository: failed to delete supplier %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrSupplierNotFound
	}
	return nil
}

func (r *postgresRepository) SupplierExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check supplier %s: %w", id, err)
	}
	return exists, nil
}

// ── Products ──

func (r *postgresRepository) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate product ID: %w", err)
		}
		p.ID = id
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO products (id, name, sku, description, unit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, p.ID, p.Name, p.SKU, p.Description, p.Unit, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if translated := translatePgError(err); translated != err {
			return translated
		}
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	err := r.db.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id).Scan(
		&p.ID, &p.Name, &p.SKU, &p.Description, &p.Unit, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product %s: %w", id, err)
	}
	return &p, nil
}

func (r *postgresRepository) GetProductBySKU(ctx context.Context, sku string) (*Product, error) {
	var p Product
	err := r.db.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE sku = $1", sku).Scan(
		&p.ID, &p.Name, &p.SKU, &p.Description, &p.Unit, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by sku %q: %w", sku, err)
	}
	return &p, nil
}

func (r *postgresRepository) ListProducts(ctx context.Context, skip, limit int) ([]Product, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+productColumns+" FROM products ORDER BY sku LIMIT $1 OFFSET $2", limit, skip)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Description, &p.Unit, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}
	return products, nil
}

func (r *postgresRepository) UpdateProduct(ctx context.Context, p *Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, sku = $2, description = $3, unit = $4, updated_at = $5
		WHERE id = $6
	`
	cmdTag, err := r.db.Exec(ctx, query, p.Name, p.SKU, p.Description, p.Unit, p.UpdatedAt, p.ID)
	if err != nil {
		if translated := translatePgError(err); translated != err {
			return translated
		}
		return fmt.Errorf("repository: failed to update product %s: %w", p.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		if translated := translatePgError(err); translated != err {
			return translated
		}
		return fmt.Errorf("repository: failed to delete product %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check product %s: %w", id, err)
	}
	return exists, nil
}

// ── Supplier offers ──

func (r *postgresRepository) ListOffers(ctx context.Context, supplierID uuid.UUID) ([]SupplierProduct, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+offerColumns+" FROM supplier_products WHERE supplier_id = $1 ORDER BY created_at", supplierID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query offers for supplier %s: %w", supplierID, err)
	}
	defer rows.Close()

	offers := make([]SupplierProduct, 0)
	for rows.Next() {
		var sp SupplierProduct
		if err := rows.Scan(&sp.SupplierID, &sp.ProductID, &sp.MinimumQuantity, &sp.OptimalQuantity, &sp.UnitPrice, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan offer: %w", err)
		}
		offers = append(offers, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating offers: %w", err)
	}
	return offers, nil
}

func (r *postgresRepository) GetOffer(ctx context.Context, supplierID, productID uuid.UUID) (*SupplierProduct, error) {
	var sp SupplierProduct
	err := r.db.QueryRow(ctx,
		"SELECT "+offerColumns+" FROM supplier_products WHERE supplier_id = $1 AND product_id = $2",
		supplierID, productID,
	).Scan(&sp.SupplierID, &sp.ProductID, &sp.MinimumQuantity, &sp.OptimalQuantity, &sp.UnitPrice, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("repository: failed to select offer %s/%s: %w", supplierID, productID, err)
	}
	return &sp, nil
}

func (r *postgresRepository) CreateOffer(ctx context.Context, sp *SupplierProduct) error {
	now := time.Now().UTC()
	sp.CreatedAt = now
	sp.UpdatedAt = now

	query := `
		INSERT INTO supplier_products (supplier_id, product_id, minimum_quantity, optimal_quantity, unit_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		sp.SupplierID, sp.ProductID, sp.MinimumQuantity, sp.OptimalQuantity, sp.UnitPrice, sp.CreatedAt, sp.UpdatedAt,
	)
	if err != nil {
		if translated := translatePgError(err); translated != err {
			return translated
		}
		return fmt.Errorf("repository: failed to insert offer %s/%s: %w", sp.SupplierID, sp.ProductID, err)
	}
	return nil
}

func (r *postgresRepository) UpdateOffer(ctx context.Context, sp *SupplierProduct) error {
	sp.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE supplier_products
		SET minimum_quantity = $1, optimal_quantity = $2, unit_price = $3, updated_at = $4
		WHERE supplier_id = $5 AND product_id = $6
	`
	cmdTag, err := r.db.Exec(ctx, query,
		sp.MinimumQuantity, sp.OptimalQuantity, sp.UnitPrice, sp.UpdatedAt, sp.SupplierID, sp.ProductID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update offer %s/%s: %w", sp.SupplierID, sp.ProductID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOfferNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteOffer(ctx context.Context, supplierID, productID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx,
		"DELETE FROM supplier_products WHERE supplier_id = $1 AND product_id = $2", supplierID, productID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete offer %s/%s: %w", supplierID, productID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOfferNotFound
	}
	return nil
}

package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var ErrOrderNotFound = errors.New("order not found")

// Repository persists orders. Mutate is the only way to change an
// existing order: it runs fn inside a transaction holding a row lock on
// the order, so concurrent mutations of the same order serialize and
// "read items, recompute total, write" is atomic per order. Orders are
// re-read from the database on every call; nothing is cached.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetWithItems(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, error)
	Mutate(ctx context.Context, id uuid.UUID, fn func(mu Mutation, o *Order) error) error
}

// Mutation is the write surface available inside a Mutate call. Every
// write goes to the same transaction and commits or rolls back as one.
type Mutation interface {
	InsertItem(ctx context.Context, item *Item) error
	UpdateItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	SaveOrder(ctx context.Context, o *Order) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

type ListFilter struct {
	SupplierID *uuid.UUID
	Status     *Status
	Skip       int
	Limit      int
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const orderColumns = "id, supplier_id, status, notes, total, created_at, updated_at"
const itemColumns = "id, order_id, product_id, quantity, unit_price, subtotal, created_at, updated_at"

func (r *postgresRepository) Create(ctx context.Context, o *Order) error {
	if o.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order ID: %w", err)
		}
		o.ID = id
	}

	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	query := `
		INSERT INTO orders (id, supplier_id, status, notes, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		o.ID,
		o.SupplierID,
		string(o.Status),
		o.Notes,
		o.Total,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}
	if o.Items == nil {
		o.Items = []Item{}
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	err := r.db.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id).Scan(
		&o.ID, &o.SupplierID, &o.Status, &o.Notes, &o.Total, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", id, err)
	}
	return &o, nil
}

func (r *postgresRepository) GetWithItems(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := scanItems(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (r *postgresRepository) List(ctx context.Context, f ListFilter) ([]Order, error) {
	query := "SELECT " + orderColumns + " FROM orders"

	var conds []string
	var args []any
	if f.SupplierID != nil {
		args = append(args, *f.SupplierID)
		conds = append(conds, fmt.Sprintf("supplier_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Skip > 0 {
		args = append(args, f.Skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.SupplierID, &o.Status, &o.Notes, &o.Total, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}
	return orders, nil
}

// Mutate loads the order and its items under SELECT ... FOR UPDATE,
// hands them to fn, and commits when fn returns nil. Any error from fn
// rolls everything back, so a half-applied mutation is never visible.
func (r *postgresRepository) Mutate(ctx context.Context, id uuid.UUID, fn func(mu Mutation, o *Order) error) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", id).Msg("repository: rollback after panic failed")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", id).Msg("repository: rollback failed")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	var o Order
	err = tx.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id).Scan(
		&o.ID, &o.SupplierID, &o.Status, &o.Notes, &o.Total, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("repository: failed to lock order %s: %w", id, err)
	}

	items, err := scanItems(ctx, tx, id)
	if err != nil {
		return err
	}
	o.Items = items

	return fn(&txMutation{tx: tx}, &o)
}

// querier is satisfied by both pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanItems(ctx context.Context, q querier, orderID uuid.UUID) ([]Item, error) {
	rows, err := q.Query(ctx,
		"SELECT "+itemColumns+" FROM order_items WHERE order_id = $1 ORDER BY created_at", orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Subtotal, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan item for order %s: %w", orderID, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating items for order %s: %w", orderID, err)
	}
	return items, nil
}

type txMutation struct {
	tx pgx.Tx
}

func (m *txMutation) InsertItem(ctx context.Context, item *Item) error {
	if item.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate item ID: %w", err)
		}
		item.ID = id
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, subtotal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := m.tx.Exec(ctx, query,
		item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert item for order %s: %w", item.OrderID, err)
	}
	return nil
}

func (m *txMutation) UpdateItem(ctx context.Context, item *Item) error {
	item.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE order_items
		SET quantity = $1, unit_price = $2, subtotal = $3, updated_at = $4
		WHERE id = $5
	`
	cmdTag, err := m.tx.Exec(ctx, query, item.Quantity, item.UnitPrice, item.Subtotal, item.UpdatedAt, item.ID)
	if err != nil {
		return fmt.Errorf("repository: failed to update item %s: %w", item.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("repository: item %s vanished during update", item.ID)
	}
	return nil
}

func (m *txMutation) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	_, err := m.tx.Exec(ctx, "DELETE FROM order_items WHERE id = $1", itemID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete item %s: %w", itemID, err)
	}
	return nil
}

func (m *txMutation) SaveOrder(ctx context.Context, o *Order) error {
	o.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE orders
		SET status = $1, notes = $2, total = $3, updated_at = $4
		WHERE id = $5
	`
	_, err := m.tx.Exec(ctx, query, string(o.Status), o.Notes, o.Total, o.UpdatedAt, o.ID)
	if err != nil {
		return fmt.Errorf("repository: failed to update order %s: %w", o.ID, err)
	}
	return nil
}

func (m *txMutation) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if _, err := m.tx.Exec(ctx, "DELETE FROM order_items WHERE order_id = $1", id); err != nil {
		return fmt.Errorf("repository: failed to delete items of order %s: %w", id, err)
	}
	if _, err := m.tx.Exec(ctx, "DELETE FROM orders WHERE id = $1", id); err != nil {
		return fmt.Errorf("repository: failed to delete order %s: %w", id, err)
	}
	return nil
}

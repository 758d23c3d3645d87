package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/procurement-service/internal/apperror"
	"github.com/vasiliy-maslov/procurement-service/internal/catalog"
)

// Catalog is the read-only view of the supplier catalog the order core
// consults. Offers are looked up fresh on every call.
type Catalog interface {
	SupplierExists(ctx context.Context, id uuid.UUID) (bool, error)
	GetOffer(ctx context.Context, supplierID, productID uuid.UUID) (*catalog.SupplierProduct, error)
}

type Service interface {
	CreateOrder(ctx context.Context, supplierID uuid.UUID, notes *string) (*Order, error)
	ListOrders(ctx context.Context, f ListFilter) ([]Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, notes *string) (*Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	TransitionStatus(ctx context.Context, id uuid.UUID, next Status) (*Order, error)
	AddItem(ctx context.Context, orderID, productID uuid.UUID, quantity float64) (*Order, error)
	UpdateItem(ctx context.Context, orderID, productID uuid.UUID, quantity float64) (*Order, error)
	RemoveItem(ctx context.Context, orderID, productID uuid.UUID) (*Order, error)
}

type service struct {
	repo    Repository
	catalog Catalog
}

func NewService(repo Repository, cat Catalog) Service {
	return &service{repo: repo, catalog: cat}
}

func (s *service) CreateOrder(ctx context.Context, supplierID uuid.UUID, notes *string) (*Order, error) {
	exists, err := s.catalog.SupplierExists(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to check supplier: %w", err)
	}
	if !exists {
		return nil, apperror.NotFound("Supplier", supplierID.String())
	}

	o := &Order{
		SupplierID: supplierID,
		Status:     StatusDraft,
		Notes:      notes,
		Total:      decimal.Zero,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		log.Error().Err(err).Stringer("supplier_id", supplierID).Msg("service: failed to create order")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().Stringer("order_id", o.ID).Stringer("supplier_id", supplierID).Msg("service: order created")
	return o, nil
}

func (s *service) ListOrders(ctx context.Context, f ListFilter) ([]Order, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Status != nil && !f.Status.IsValid() {
		return nil, apperror.Validationf("unknown order status '%s'", *f.Status)
	}
	orders, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetWithItems(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, apperror.NotFound("Order", id.String())
		}
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	return o, nil
}

func (s *service) UpdateNotes(ctx context.Context, id uuid.UUID, notes *string) (*Order, error) {
	var out *Order
	err := s.repo.Mutate(ctx, id, func(mu Mutation, o *Order) error {
		if o.Status.IsTerminal() {
			return apperror.Validationf("cannot edit an order in '%s' status", o.Status)
		}
		if notes != nil {
			o.Notes = notes
		}
		out = o
		return mu.SaveOrder(ctx, o)
	})
	if err != nil {
		return nil, s.wrapMutateErr(err, id, "update notes")
	}
	return out, nil
}

func (s *service) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Mutate(ctx, id, func(mu Mutation, o *Order) error {
		if o.Status != StatusDraft {
			return apperror.Validationf("only DRAFT orders can be deleted; current status is '%s'", o.Status)
		}
		return mu.DeleteOrder(ctx, o.ID)
	})
	if err != nil {
		return s.wrapMutateErr(err, id, "delete")
	}
	log.Info().Stringer("order_id", id).Msg("service: order deleted")
	return nil
}

// TransitionStatus moves the order along the lifecycle. The only
// transition with a side effect is DRAFT -> CONFIRMED, which snapshots
// each item's unit price from the supplier's current offer and
// recomputes subtotals and the total. The snapshot, the total, and the
// status change commit together or not at all.
func (s *service) TransitionStatus(ctx context.Context, id uuid.UUID, next Status) (*Order, error) {
	if !next.IsValid() {
		return nil, apperror.Validationf("unknown order status '%s'", next)
	}

	var out *Order
	err := s.repo.Mutate(ctx, id, func(mu Mutation, o *Order) error {
		if !o.Status.CanTransitionTo(next) {
			return apperror.Validationf("cannot transition from '%s' to '%s'", o.Status, next)
		}

		if o.Status == StatusDraft && next == StatusConfirmed {
			if err := s.snapshotPrices(ctx, mu, o); err != nil {
				return err
			}
			o.Total = Total(o.Items)
		}

		from := o.Status
		o.Status = next
		if err := mu.SaveOrder(ctx, o); err != nil {
			return err
		}

		log.Info().
			Stringer("order_id", o.ID).
			Stringer("from", from).
			Stringer("to", next).
			Msg("service: order status changed")
		out = o
		return nil
	})
	if err != nil {
		return nil, s.wrapMutateErr(err, id, "transition")
	}
	return out, nil
}

// snapshotPrices freezes each item's unit price at the offer's current
// value. An offer that has disappeared or carries no price snapshots as
// zero rather than blocking confirmation; this mirrors how drafts price
// unquoted items and is logged so it does not pass silently.
func (s *service) snapshotPrices(ctx context.Context, mu Mutation, o *Order) error {
	for i := range o.Items {
		it := &o.Items[i]

		var price decimal.NullDecimal
		offer, err := s.catalog.GetOffer(ctx, o.SupplierID, it.ProductID)
		if err != nil {
			if !errors.Is(err, catalog.ErrOfferNotFound) {
				return fmt.Errorf("service: failed to look up offer: %w", err)
			}
		} else {
			price = offer.UnitPrice
		}
		if !price.Valid {
			log.Warn().
				Stringer("order_id", o.ID).
				Stringer("product_id", it.ProductID).
				Msg("service: no offer price at confirmation, snapshotting zero")
		}

		it.UnitPrice = price
		it.Subtotal = Subtotal(it.Quantity, price)
		if err := mu.UpdateItem(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) AddItem(ctx context.Context, orderID, productID uuid.UUID, quantity float64) (*Order, error) {
	var out *Order
	err := s.repo.Mutate(ctx, orderID, func(mu Mutation, o *Order) error {
		if err := assertDraft(o); err != nil {
			return err
		}
		if err := validateQuantity(quantity); err != nil {
			return err
		}

		offer, err := s.lookupOffer(ctx, o.SupplierID, productID)
		if err != nil {
			return err
		}
		if err := validateMinimumQuantity(quantity, offer); err != nil {
			return err
		}
		if o.FindItem(productID) != nil {
			return apperror.Conflictf("product '%s' is already in this order; update the existing item instead", productID)
		}

		// No unit price yet: drafts always price against the current
		// offer, the item's own price stays null until confirmation.
		item := Item{
			OrderID:   o.ID,
			ProductID: productID,
			Quantity:  quantity,
			Subtotal:  Subtotal(quantity, offer.UnitPrice),
		}
		if err := mu.InsertItem(ctx, &item); err != nil {
			return err
		}
		o.Items = append(o.Items, item)
		o.Total = Total(o.Items)
		out = o
		return mu.SaveOrder(ctx, o)
	})
	if err != nil {
		return nil, s.wrapMutateErr(err, orderID, "add item")
	}
	return out, nil
}

func (s *service) UpdateItem(ctx context.Context, orderID, productID uuid.UUID, quantity float64) (*Order, error) {
	var out *Order
	err := s.repo.Mutate(ctx, orderID, func(mu Mutation, o *Order) error {
		if err := assertDraft(o); err != nil {
			return err
		}
		if err := validateQuantity(quantity); err != nil {
			return err
		}

		it := o.FindItem(productID)
		if it == nil {
			return apperror.NotFound("Order item", productID.String())
		}

		offer, err := s.lookupOffer(ctx, o.SupplierID, productID)
		if err != nil {
			return err
		}
		if err := validateMinimumQuantity(quantity, offer); err != nil {
			return err
		}

		it.Quantity = quantity
		it.UnitPrice = decimal.NullDecimal{}
		it.Subtotal = Subtotal(quantity, offer.UnitPrice)
		if err := mu.UpdateItem(ctx, it); err != nil {
			return err
		}
		o.Total = Total(o.Items)
		out = o
		return mu.SaveOrder(ctx, o)
	})
	if err != nil {
		return nil, s.wrapMutateErr(err, orderID, "update item")
	}
	return out, nil
}

func (s *service) RemoveItem(ctx context.Context, orderID, productID uuid.UUID) (*Order, error) {
	var out *Order
	err := s.repo.Mutate(ctx, orderID, func(mu Mutation, o *Order) error {
		if err := assertDraft(o); err != nil {
			return err
		}

		it := o.FindItem(productID)
		if it == nil {
			return apperror.NotFound("Order item", productID.String())
		}

		if err := mu.DeleteItem(ctx, it.ID); err != nil {
			return err
		}
		remaining := make([]Item, 0, len(o.Items)-1)
		for i := range o.Items {
			if o.Items[i].ProductID != productID {
				remaining = append(remaining, o.Items[i])
			}
		}
		o.Items = remaining
		o.Total = Total(o.Items)
		out = o
		return mu.SaveOrder(ctx, o)
	})
	if err != nil {
		return nil, s.wrapMutateErr(err, orderID, "remove item")
	}
	return out, nil
}

func assertDraft(o *Order) error {
	if o.Status != StatusDraft {
		return apperror.Validationf("items can only be modified on DRAFT orders; current status is '%s'", o.Status)
	}
	return nil
}

func (s *service) lookupOffer(ctx context.Context, supplierID, productID uuid.UUID) (*catalog.SupplierProduct, error) {
	offer, err := s.catalog.GetOffer(ctx, supplierID, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrOfferNotFound) {
			return nil, apperror.NotFoundf("product '%s' is not sold by this supplier", productID)
		}
		return nil, fmt.Errorf("service: failed to look up offer: %w", err)
	}
	return offer, nil
}

func validateQuantity(quantity float64) error {
	if quantity <= 0 {
		return apperror.Validationf("quantity must be greater than zero, got %v", quantity)
	}
	return nil
}

func validateMinimumQuantity(quantity float64, offer *catalog.SupplierProduct) error {
	if quantity < offer.MinimumQuantity {
		return apperror.Validationf("quantity %v is below the minimum required (%v) for this product", quantity, offer.MinimumQuantity)
	}
	return nil
}

func (s *service) wrapMutateErr(err error, id uuid.UUID, op string) error {
	if errors.Is(err, ErrOrderNotFound) {
		return apperror.NotFound("Order", id.String())
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	log.Error().Err(err).Stringer("order_id", id).Str("op", op).Msg("service: order mutation failed")
	return fmt.Errorf("service: failed to %s: %w", op, err)
}

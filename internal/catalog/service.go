package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/procurement-service/internal/apperror"
)

type Service interface {
	ListSuppliers(ctx context.Context, skip, limit int) ([]Supplier, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (*Supplier, error)
	CreateSupplier(ctx context.Context, in CreateSupplierInput) (*Supplier, error)
	UpdateSupplier(ctx context.Context, id uuid.UUID, in UpdateSupplierInput) (*Supplier, error)
	DeleteSupplier(ctx context.Context, id uuid.UUID) error

	ListProducts(ctx context.Context, skip, limit int) ([]Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	CreateProduct(ctx context.Context, in CreateProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in UpdateProductInput) (*Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ImportProducts(ctx context.Context, r io.Reader) (*ImportResult, error)

	ListOffers(ctx context.Context, supplierID uuid.UUID) ([]SupplierProduct, error)
	AddOffer(ctx context.Context, supplierID uuid.UUID, in OfferInput) (*SupplierProduct, error)
	UpdateOffer(ctx context.Context, supplierID, productID uuid.UUID, in UpdateOfferInput) (*SupplierProduct, error)
	RemoveOffer(ctx context.Context, supplierID, productID uuid.UUID) error
}

type CreateSupplierInput struct {
	Name    string  `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

type UpdateSupplierInput struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

type CreateProductInput struct {
	Name        string  `json:"name"`
	SKU         string  `json:"sku"`
	Description *string `json:"description"`
	Unit        string  `json:"unit"`
}

type UpdateProductInput struct {
	Name        *string `json:"name"`
	SKU         *string `json:"sku"`
	Description *string `json:"description"`
	Unit        *string `json:"unit"`
}

type OfferInput struct {
	ProductID       uuid.UUID           `json:"product_id"`
	MinimumQuantity float64             `json:"minimum_quantity"`
	OptimalQuantity float64             `json:"optimal_quantity"`
	UnitPrice       decimal.NullDecimal `json:"unit_price"`
}

type UpdateOfferInput struct {
	MinimumQuantity *float64             `json:"minimum_quantity"`
	OptimalQuantity *float64             `json:"optimal_quantity"`
	UnitPrice       *decimal.NullDecimal `json:"unit_price"`
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// ── Suppliers ──

func (s *service) ListSuppliers(ctx context.Context, skip, limit int) ([]Supplier, error) {
	if limit <= 0 {
		limit = 20
	}
	suppliers, err := s.repo.ListSuppliers(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list suppliers: %w", err)
	}
	return suppliers, nil
}

func (s *service) GetSupplier(ctx context.Context, id uuid.UUID) (*Supplier, error) {
	supplier, err := s.repo.GetSupplierWithProducts(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSupplierNotFound) {
			return nil, apperror.NotFound("Supplier", id.String())
		}
		return nil, fmt.Errorf("service: failed to fetch supplier: %w", err)
	}
	return supplier, nil
}

func (s *service) CreateSupplier(ctx context.Context, in CreateSupplierInput) (*Supplier, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.Validationf("supplier name is required")
	}

	if _, err := s.repo.GetSupplierByName(ctx, name); err == nil {
		return nil, apperror.Conflictf("a supplier named '%s' already exists", name)
	} else if !errors.Is(err, ErrSupplierNotFound) {
		return nil, fmt.Errorf("service: failed to check supplier name: %w", err)
	}

	supplier := &Supplier{Name: name, Email: in.Email, Phone: in.Phone, Address: in.Address}
	if err := s.repo.CreateSupplier(ctx, supplier); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, apperror.Conflictf("a supplier named '%s' already exists", name)
		}
		log.Error().Err(err).Str("name", name).Msg("service: failed to create supplier")
		return nil, fmt.Errorf("service: failed to create supplier: %w", err)
	}

	log.Info().Stringer("supplier_id", supplier.ID).Str("name", name).Msg("service: supplier created")
	return supplier, nil
}

func (s *service) UpdateSupplier(ctx context.Context, id uuid.UUID, in UpdateSupplierInput) (*Supplier, error) {
	supplier, err := s.repo.GetSupplierByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSupplierNotFound) {
			return nil, apperror.NotFound("Supplier", id.String())
		}
		return nil, fmt.Errorf("service: failed to fetch supplier: %w", err)
	}

	if in.Name != nil && *in.Name != supplier.Name {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.Validationf("supplier name is required")
		}
		if _, err := s.repo.GetSupplierByName(ctx, name); err == nil {
			return nil, apperror.Conflictf("a supplier named '%s' already exists", name)
		} else if !errors.Is(err, ErrSupplierNotFound) {
			return nil, fmt.Errorf("service: failed to check supplier name: %w", err)
		}
		supplier.Name = name
	}
	if in.Email != nil {
		supplier.Email = in.Email
	}
	if in.Phone != nil {
		supplier.Phone = in.Phone
	}
	if in.Address != nil {
		supplier.Address = in.Address
	}

	if err := s.repo.UpdateSupplier(ctx, supplier); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, apperror.Conflictf("a supplier named '%s' already exists", supplier.Name)
		}
		return nil, fmt.Errorf("service: failed to update supplier: %w", err)
	}
	return supplier, nil
}

func (s *service) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	err := s.repo.DeleteSupplier(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSupplierNotFound) {
			return apperror.NotFound("Supplier", id.String())
		}
		if errors.Is(err, ErrReferenced) {
			return apperror.Conflictf("supplier '%s' has orders and cannot be deleted", id)
		}
		return fmt.Errorf("service: failed to delete supplier: %w", err)
	}
	log.Info().Stringer("supplier_id", id).Msg("service: supplier deleted")
	return nil
}

// ── Products ──

func (s *service) ListProducts(ctx context.Context, skip, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 20
	}
	products, err := s.repo.ListProducts(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}
	return products, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, apperror.NotFound("Product", id.String())
		}
		return nil, fmt.Errorf("service: failed to fetch product: %w", err)
	}
	return product, nil
}

func (s *service) CreateProduct(ctx context.Context, in CreateProductInput) (*Product, error) {
	name := strings.TrimSpace(in.Name)
	sku := strings.TrimSpace(in.SKU)
	if name == "" {
		return nil, apperror.Validationf("product name is required")
	}
	if sku == "" {
		return nil, apperror.Validationf("product sku is required")
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = "pcs"
	}

	if _, err := s.repo.GetProductBySKU(ctx, sku); err == nil {
		return nil, apperror.Conflictf("a product with SKU '%s' already exists", sku)
	} else if !errors.Is(err, ErrProductNotFound) {
		return nil, fmt.Errorf("service: failed to check product sku: %w", err)
	}

	product := &Product{Name: name, SKU: sku, Description: in.Description, Unit: unit}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, apperror.Conflictf("a product with SKU '%s' already exists", sku)
		}
		log.Error().Err(err).Str("sku", sku).Msg("service: failed to create product")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}

	log.Info().Stringer("product_id", product.ID).Str("sku", sku).Msg("service: product created")
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, in UpdateProductInput) (*Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, apperror.NotFound("Product", id.String())
		}
		return nil, fmt.Errorf("service: failed to fetch product: %w", err)
	}

	if in.SKU != nil && *in.SKU != product.SKU {
		sku := strings.TrimSpace(*in.SKU)
		if sku == "" {
			return nil, apperror.Validationf("product sku is required")
		}
		if _, err := s.repo.GetProductBySKU(ctx, sku); err == nil {
			return nil, apperror.Conflictf("a product with SKU '%s' already exists", sku)
		} else if !errors.Is(err, ErrProductNotFound) {
			return nil, fmt.Errorf("service: failed to check product sku: %w", err)
		}
		product.SKU = sku
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.Validationf("product name is required")
		}
		product.Name = name
	}
	if in.Description != nil {
		product.Description = in.Description
	}
	if in.Unit != nil && strings.TrimSpace(*in.Unit) != "" {
		product.Unit = strings.TrimSpace(*in.Unit)
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, apperror.Conflictf("a product with SKU '%s' already exists", product.SKU)
		}
		return nil, fmt.Errorf("service: failed to update product: %w", err)
	}
	return product, nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return apperror.NotFound("Product", id.String())
		}
		if errors.Is(err, ErrReferenced) {
			return apperror.Conflictf("product '%s' appears in existing orders and cannot be deleted", id)
		}
		return fmt.Errorf("service: failed to delete product: %w", err)
	}
	log.Info().Stringer("product_id", id).Msg("service: product deleted")
	return nil
}

// ── Supplier offers ──

func (s *service) ListOffers(ctx context.Context, supplierID uuid.UUID) ([]SupplierProduct, error) {
	if err := s.requireSupplier(ctx, supplierID); err != nil {
		return nil, err
	}
	offers, err := s.repo.ListOffers(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list offers: %w", err)
	}
	return offers, nil
}

func (s *service) AddOffer(ctx context.Context, supplierID uuid.UUID, in OfferInput) (*SupplierProduct, error) {
	if err := validateOfferTerms(in.MinimumQuantity, in.OptimalQuantity, in.UnitPrice); err != nil {
		return nil, err
	}
	if err := s.requireSupplier(ctx, supplierID); err != nil {
		return nil, err
	}

	exists, err := s.repo.ProductExists(ctx, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to check product: %w", err)
	}
	if !exists {
		return nil, apperror.NotFound("Product", in.ProductID.String())
	}

	if _, err := s.repo.GetOffer(ctx, supplierID, in.ProductID); err == nil {
		return nil, apperror.Conflictf("product '%s' is already linked to this supplier", in.ProductID)
	} else if !errors.Is(err, ErrOfferNotFound) {
		return nil, fmt.Errorf("service: failed to check offer: %w", err)
	}

	offer := &SupplierProduct{
		SupplierID:      supplierID,
		ProductID:       in.ProductID,
		MinimumQuantity: in.MinimumQuantity,
		OptimalQuantity: in.OptimalQuantity,
		UnitPrice:       in.UnitPrice,
	}
	if err := s.repo.CreateOffer(ctx, offer); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, apperror.Conflictf("product '%s' is already linked to this supplier", in.ProductID)
		}
		return nil, fmt.Errorf("service: failed to create offer: %w", err)
	}

	log.Info().Stringer("supplier_id", supplierID).Stringer("product_id", in.ProductID).Msg("service: offer created")
	return offer, nil
}

func (s *service) UpdateOffer(ctx context.Context, supplierID, productID uuid.UUID, in UpdateOfferInput) (*SupplierProduct, error) {
	if err := s.requireSupplier(ctx, supplierID); err != nil {
		return nil, err
	}

	offer, err := s.repo.GetOffer(ctx, supplierID, productID)
	if err != nil {
		if errors.Is(err, ErrOfferNotFound) {
			return nil, apperror.NotFound("Supplier offer", fmt.Sprintf("%s/%s", supplierID, productID))
		}
		return nil, fmt.Errorf("service: failed to fetch offer: %w", err)
	}

	if in.MinimumQuantity != nil {
		offer.MinimumQuantity = *in.MinimumQuantity
	}
	if in.OptimalQuantity != nil {
		offer.OptimalQuantity = *in.OptimalQuantity
	}
	if in.UnitPrice != nil {
		offer.UnitPrice = *in.UnitPrice
	}
	if err := validateOfferTerms(offer.MinimumQuantity, offer.OptimalQuantity, offer.UnitPrice); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateOffer(ctx, offer); err != nil {
		return nil, fmt.Errorf("service: failed to update offer: %w", err)
	}
	return offer, nil
}

func (s *service) RemoveOffer(ctx context.Context, supplierID, productID uuid.UUID) error {
	if err := s.requireSupplier(ctx, supplierID); err != nil {
		return err
	}
	err := s.repo.DeleteOffer(ctx, supplierID, productID)
	if err != nil {
		if errors.Is(err, ErrOfferNotFound) {
			return apperror.NotFound("Supplier offer", fmt.Sprintf("%s/%s", supplierID, productID))
		}
		return fmt.Errorf("service: failed to delete offer: %w", err)
	}
	return nil
}

func (s *service) requireSupplier(ctx context.Context, id uuid.UUID) error {
	exists, err := s.repo.SupplierExists(ctx, id)
	if err != nil {
		return fmt.Errorf("service: failed to check supplier: %w", err)
	}
	if !exists {
		return apperror.NotFound("Supplier", id.String())
	}
	return nil
}

func validateOfferTerms(minQty, optQty float64, price decimal.NullDecimal) error {
	if minQty < 0 {
		return apperror.Validationf("minimum_quantity must be non-negative, got %v", minQty)
	}
	if optQty < 0 {
		return apperror.Validationf("optimal_quantity must be non-negative, got %v", optQty)
	}
	if price.Valid && price.Decimal.IsNegative() {
		return apperror.Validationf("unit_price must be non-negative, got %s", price.Decimal)
	}
	return nil
}

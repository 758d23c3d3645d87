package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vasiliy-maslov/procurement-service/internal/apperror"
	"github.com/vasiliy-maslov/procurement-service/internal/order"
)

type mockOrderService struct {
	CreateOrderFunc      func(ctx context.Context, supplierID uuid.UUID, notes *string) (*order.Order, error)
	ListOrdersFunc       func(ctx context.Context, f order.ListFilter) ([]order.Order, error)
	GetOrderFunc         func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	UpdateNotesFunc      func(ctx context.Context, id uuid.UUID, notes *string) (*order.Order, error)
	DeleteOrderFunc      func(ctx context.Context, id uuid.UUID) error
	TransitionStatusFunc func(ctx context.Context, id uuid.UUID, next order.Status) (*order.Order, error)
	AddItemFunc          func(ctx context.Context, orderID, productID uuid.UUID, quantity float64) (*order.Order, error)
	UpdateItemFunc       func(ctx context.Context, orderID, productID uuid.UUID, quantity float64) (*order.Order, error)
	RemoveItemFunc       func(ctx context.Context, orderID, productID uuid.UUID) (*order.Order, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, supplierID uuid.UUID, notes *string) (*order.Order, error) {
	return m.CreateOrderFunc(ctx, supplierID, notes)
}

func (m *mockOrderService) ListOrders(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	return m.ListOrdersFunc(ctx, f)
}

func (m *mockOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return m.GetOrderFunc(ctx, id)
}

func (m *mockOrderService) UpdateNotes(ctx context.Context, id uuid.UUID, notes *string) (*order.Order, error) {
	return m.UpdateNotesFunc(ctx, id, notes)
}

func (m *mockOrderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return m.DeleteOrderFunc(ctx, id)
}

func (m *mockOrderService) TransitionStatus(ctx context.Context, id uuid.UUID, next order.Status) (*order.Order, error) {
	return m.TransitionStatusFunc(ctx, id, next)
}

func (m *mockOrderService) AddItem(ctx context.Context, orderID, productID uuid.UUID, quantity float64) (*order.Order, error) {
	return m.AddItemFunc(ctx, orderID, productID, quantity)
}

func (m *mockOrderService) UpdateItem(ctx context.Context, orderID, productID uuid.UUID, quantity float64) (*order.Order, error) {
	return m.UpdateItemFunc(ctx, orderID, productID, quantity)
}

func (m *mockOrderService) RemoveItem(ctx context.Context, orderID, productID uuid.UUID) (*order.Order, error) {
	return m.RemoveItemFunc(ctx, orderID, productID)
}

func orderRouter(svc order.Service) *chi.Mux {
	h := NewOrderHandler(svc)
	r := chi.NewRouter()
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Patch("/{id}/status", h.TransitionStatus)
		r.Post("/{id}/items", h.AddItem)
		r.Patch("/{id}/items/{productID}", h.UpdateItem)
		r.Delete("/{id}/items/{productID}", h.RemoveItem)
	})
	return r
}

const (
	orderIDStr    = "123e4567-e89b-12d3-a456-426614174000"
	supplierIDStr = "550e8400-e29b-41d4-a716-446655440000"
	productIDStr  = "9b2c6f6e-1f5a-4c83-a0bb-54f4d38cf30e"
)

func TestOrderHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		createOrder    func(ctx context.Context, supplierID uuid.UUID, notes *string) (*order.Order, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success",
			body: `{"supplier_id":"` + supplierIDStr + `"}`,
			createOrder: func(_ context.Context, supplierID uuid.UUID, _ *string) (*order.Order, error) {
				return &order.Order{
					ID:         uuid.Must(uuid.FromString(orderIDStr)),
					SupplierID: supplierID,
					Status:     order.StatusDraft,
					Total:      decimal.Zero,
					Items:      []order.Item{},
				}, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid_json",
			body:           `{invalid}`,
			createOrder:    nil,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"error":{"code":"VALIDATION_ERROR","message":"invalid request body"}}`,
		},
		{
			name: "supplier_missing",
			body: `{"supplier_id":"` + supplierIDStr + `"}`,
			createOrder: func(_ context.Context, supplierID uuid.UUID, _ *string) (*order.Order, error) {
				return nil, apperror.NotFound("Supplier", supplierID.String())
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"error":{"code":"NOT_FOUND","message":"Supplier '` + supplierIDStr + `' not found"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := orderRouter(&mockOrderService{CreateOrderFunc: tt.createOrder})

			req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestOrderHandler_Get(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		getOrder       func(ctx context.Context, id uuid.UUID) (*order.Order, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success",
			path: "/orders/" + orderIDStr,
			getOrder: func(_ context.Context, id uuid.UUID) (*order.Order, error) {
				return &order.Order{
					ID:         id,
					SupplierID: uuid.Must(uuid.FromString(supplierIDStr)),
					Status:     order.StatusDraft,
					Total:      decimal.Zero,
					Items:      []order.Item{},
				}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "not_found",
			path: "/orders/" + orderIDStr,
			getOrder: func(_ context.Context, id uuid.UUID) (*order.Order, error) {
				return nil, apperror.NotFound("Order", id.String())
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"error":{"code":"NOT_FOUND","message":"Order '` + orderIDStr + `' not found"}}`,
		},
		{
			name:           "malformed_id",
			path:           "/orders/not-a-uuid",
			getOrder:       nil,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"error":{"code":"VALIDATION_ERROR","message":"invalid id 'not-a-uuid'"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := orderRouter(&mockOrderService{GetOrderFunc: tt.getOrder})

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestOrderHandler_TransitionStatus(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		transition     func(ctx context.Context, id uuid.UUID, next order.Status) (*order.Order, error)
		expectedStatus int
	}{
		{
			name: "success",
			body: `{"status":"CONFIRMED"}`,
			transition: func(_ context.Context, id uuid.UUID, next order.Status) (*order.Order, error) {
				return &order.Order{ID: id, Status: next, Total: decimal.Zero, Items: []order.Item{}}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "illegal_transition",
			body: `{"status":"SENT"}`,
			transition: func(_ context.Context, _ uuid.UUID, next order.Status) (*order.Order, error) {
				return nil, apperror.Validationf("cannot transition from 'DRAFT' to '%s'", next)
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := orderRouter(&mockOrderService{TransitionStatusFunc: tt.transition})

			req := httptest.NewRequest(http.MethodPatch, "/orders/"+orderIDStr+"/status", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestOrderHandler_AddItem(t *testing.T) {
	tests := []struct {
		name           string
		addItem        func(ctx context.Context, orderID, productID uuid.UUID, quantity float64) (*order.Order, error)
		expectedStatus int
	}{
		{
			name: "success",
			addItem: func(_ context.Context, orderID, productID uuid.UUID, quantity float64) (*order.Order, error) {
				return &order.Order{
					ID:     orderID,
					Status: order.StatusDraft,
					Total:  decimal.RequireFromString("25"),
					Items: []order.Item{{
						OrderID:   orderID,
						ProductID: productID,
						Quantity:  quantity,
						Subtotal:  decimal.RequireFromString("25"),
					}},
				}, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "duplicate_product",
			addItem: func(_ context.Context, _, productID uuid.UUID, _ float64) (*order.Order, error) {
				return nil, apperror.Conflictf("product '%s' is already in this order; update the existing item instead", productID)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "internal_error_is_masked",
			addItem: func(_ context.Context, _, _ uuid.UUID, _ float64) (*order.Order, error) {
				return nil, assert.AnError
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := orderRouter(&mockOrderService{AddItemFunc: tt.addItem})

			body := `{"product_id":"` + productIDStr + `","quantity":10}`
			req := httptest.NewRequest(http.MethodPost, "/orders/"+orderIDStr+"/items", bytes.NewBufferString(body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusInternalServerError {
				assert.JSONEq(t, `{"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}`, w.Body.String())
			}
		})
	}
}

func TestOrderHandler_Delete(t *testing.T) {
	t.Run("success_no_content", func(t *testing.T) {
		r := orderRouter(&mockOrderService{
			DeleteOrderFunc: func(_ context.Context, _ uuid.UUID) error { return nil },
		})

		req := httptest.NewRequest(http.MethodDelete, "/orders/"+orderIDStr, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("non_draft_rejected", func(t *testing.T) {
		r := orderRouter(&mockOrderService{
			DeleteOrderFunc: func(_ context.Context, _ uuid.UUID) error {
				return apperror.Validationf("only DRAFT orders can be deleted; current status is 'SENT'")
			},
		})

		req := httptest.NewRequest(http.MethodDelete, "/orders/"+orderIDStr, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestOrderHandler_List_SupplierFilter(t *testing.T) {
	t.Run("bad_supplier_id", func(t *testing.T) {
		r := orderRouter(&mockOrderService{})

		req := httptest.NewRequest(http.MethodGet, "/orders?supplier_id=nope", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("filter_passed_through", func(t *testing.T) {
		var got order.ListFilter
		r := orderRouter(&mockOrderService{
			ListOrdersFunc: func(_ context.Context, f order.ListFilter) ([]order.Order, error) {
				got = f
				return []order.Order{}, nil
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/orders?supplier_id="+supplierIDStr+"&status=DRAFT&skip=5&limit=2", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		if assert.NotNil(t, got.SupplierID) {
			assert.Equal(t, supplierIDStr, got.SupplierID.String())
		}
		if assert.NotNil(t, got.Status) {
			assert.Equal(t, order.StatusDraft, *got.Status)
		}
		assert.Equal(t, 5, got.Skip)
		assert.Equal(t, 2, got.Limit)
	})
}

package handler

import (
	"net/http"

	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/procurement-service/internal/order"
)

// OrderHandler handles HTTP requests for purchase orders.
type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

type createOrderRequest struct {
	SupplierID uuid.UUID `json:"supplier_id"`
	Notes      *string   `json:"notes"`
}

type updateOrderRequest struct {
	Notes *string `json:"notes"`
}

type statusUpdateRequest struct {
	Status order.Status `json:"status"`
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  float64   `json:"quantity"`
}

type updateItemRequest struct {
	Quantity float64 `json:"quantity"`
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	f := order.ListFilter{
		Skip:  queryInt(r, "skip", 0),
		Limit: queryInt(r, "limit", 20),
	}
	if raw := r.URL.Query().Get("supplier_id"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			writeError(w, errInvalidQueryParam("supplier_id", raw))
			return
		}
		f.SupplierID = &id
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := order.Status(raw)
		f.Status = &st
	}

	orders, err := h.svc.ListOrders(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	o, err := h.svc.CreateOrder(r.Context(), req.SupplierID, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	o, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	o, err := h.svc.UpdateNotes(r.Context(), id, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.DeleteOrder(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req statusUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	o, err := h.svc.TransitionStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req addItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	o, err := h.svc.AddItem(r.Context(), id, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	productID, err := pathID(r, "productID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	o, err := h.svc.UpdateItem(r.Context(), id, productID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	productID, err := pathID(r, "productID")
	if err != nil {
		writeError(w, err)
		return
	}

	o, err := h.svc.RemoveItem(r.Context(), id, productID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

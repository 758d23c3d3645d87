package handler

import (
	"net/http"

	"github.com/vasiliy-maslov/procurement-service/internal/catalog"
)

// SupplierHandler handles HTTP requests for suppliers and their offers.
type SupplierHandler struct {
	svc catalog.Service
}

func NewSupplierHandler(svc catalog.Service) *SupplierHandler {
	return &SupplierHandler{svc: svc}
}

func (h *SupplierHandler) List(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.svc.ListSuppliers(r.Context(), queryInt(r, "skip", 0), queryInt(r, "limit", 20))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suppliers)
}

func (h *SupplierHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req catalog.CreateSupplierInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	supplier, err := h.svc.CreateSupplier(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, supplier)
}

func (h *SupplierHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	supplier, err := h.svc.GetSupplier(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, supplier)
}

func (h *SupplierHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req catalog.UpdateSupplierInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	supplier, err := h.svc.UpdateSupplier(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, supplier)
}

func (h *SupplierHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.DeleteSupplier(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SupplierHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	offers, err := h.svc.ListOffers(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

func (h *SupplierHandler) AddOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req catalog.OfferInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	offer, err := h.svc.AddOffer(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

func (h *SupplierHandler) UpdateOffer(w http.ResponseWriter, r *http.Request) {
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
	var req catalog.UpdateOfferInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	offer, err := h.svc.UpdateOffer(r.Context(), id, productID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (h *SupplierHandler) RemoveOffer(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.RemoveOffer(r.Context(), id, productID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vasiliy-maslov/procurement-service/internal/apperror"
	"github.com/vasiliy-maslov/procurement-service/internal/catalog"
)

// ProductHandler handles HTTP requests for products, including the CSV
// importer.
type ProductHandler struct {
	svc catalog.Service
}

func NewProductHandler(svc catalog.Service) *ProductHandler {
	return &ProductHandler{svc: svc}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListProducts(r.Context(), queryInt(r, "skip", 0), queryInt(r, "limit", 20))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req catalog.CreateProductInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	product, err := h.svc.CreateProduct(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	product, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req catalog.UpdateProductInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	product, err := h.svc.UpdateProduct(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Import accepts the CSV either as a multipart "file" field or as the
// raw request body.
func (h *ProductHandler) Import(w http.ResponseWriter, r *http.Request) {
	var src io.Reader = r.Body

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, apperror.Validationf("multipart upload must contain a 'file' field"))
			return
		}
		defer file.Close()
		src = file
	}

	result, err := h.svc.ImportProducts(r.Context(), src)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

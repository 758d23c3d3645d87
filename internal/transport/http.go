package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vasiliy-maslov/procurement-service/internal/catalog"
	"github.com/vasiliy-maslov/procurement-service/internal/handler"
	"github.com/vasiliy-maslov/procurement-service/internal/order"
)

func NewRouter(catalogSvc catalog.Service, orderSvc order.Service) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	suppliers := handler.NewSupplierHandler(catalogSvc)
	products := handler.NewProductHandler(catalogSvc)
	orders := handler.NewOrderHandler(orderSvc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", suppliers.List)
			r.Post("/", suppliers.Create)
			r.Get("/{id}", suppliers.Get)
			r.Patch("/{id}", suppliers.Update)
			r.Delete("/{id}", suppliers.Delete)

			r.Get("/{id}/products", suppliers.ListOffers)
			r.Post("/{id}/products", suppliers.AddOffer)
			r.Patch("/{id}/products/{productID}", suppliers.UpdateOffer)
			r.Delete("/{id}/products/{productID}", suppliers.RemoveOffer)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.List)
			r.Post("/", products.Create)
			r.Post("/import", products.Import)
			r.Get("/{id}", products.Get)
			r.Patch("/{id}", products.Update)
			r.Delete("/{id}", products.Delete)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orders.List)
			r.Post("/", orders.Create)
			r.Get("/{id}", orders.Get)
			r.Patch("/{id}", orders.Update)
			r.Delete("/{id}", orders.Delete)
			r.Patch("/{id}/status", orders.TransitionStatus)

			r.Post("/{id}/items", orders.AddItem)
			r.Patch("/{id}/items/{productID}", orders.UpdateItem)
			r.Delete("/{id}/items/{productID}", orders.RemoveItem)
		})
	})

	return r
}

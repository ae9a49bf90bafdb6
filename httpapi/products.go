package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jacentio/storefront/commerce"
)

// Browsers post repeated fields as "images[]"; plain "images" is accepted too.
var imageFields = []string{"images[]", "images"}

// GET /api/products/{storeId}/allProducts
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	views, err := h.products.List(r.Context(), chi.URLParam(r, "storeId"))
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	if views == nil {
		views = []commerce.ProductView{}
	}
	respond(w, http.StatusOK, views)
}

// POST /api/products/{tenantId}/{storeId}/add
func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	var in commerce.NewProduct
	files, err := h.decode(w, r, &in, imageFields...)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	in.Images = files

	view, err := h.products.Add(r.Context(), chi.URLParam(r, "tenantId"), chi.URLParam(r, "storeId"), in)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusCreated, view)
}

// GET /api/products/{storeId}/{productId}
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	view, err := h.products.Get(r.Context(), chi.URLParam(r, "storeId"), chi.URLParam(r, "productId"))
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, view)
}

// PUT /api/products/{storeId}/{productId}
func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var patch commerce.ProductPatch
	files, err := h.decode(w, r, &patch, imageFields...)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	patch.Images = files

	view, err := h.products.Update(r.Context(), chi.URLParam(r, "storeId"), chi.URLParam(r, "productId"), patch)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, view)
}

// DELETE /api/products/{id}
func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	del, err := h.products.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		var data any
		if del != nil {
			data = del
		}
		h.fail(w, r, err, data)
		return
	}
	respond(w, http.StatusOK, del)
}

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jacentio/storefront/commerce"
)

const logoField = "file"

// GET /api/stores/{tenantId}/store/{storeId}
func (h *Handler) getStore(w http.ResponseWriter, r *http.Request) {
	view, err := h.stores.Get(r.Context(), chi.URLParam(r, "tenantId"), chi.URLParam(r, "storeId"))
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, view)
}

// POST /api/stores/{tenantId}/store/add
func (h *Handler) createStore(w http.ResponseWriter, r *http.Request) {
	var in commerce.NewStore
	files, err := h.decode(w, r, &in, logoField)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	if len(files) > 0 {
		in.Logo = &files[0]
	}

	view, err := h.stores.Create(r.Context(), chi.URLParam(r, "tenantId"), in)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusCreated, view)
}

// PUT /api/stores/{tenantId}/store/{storeId}
func (h *Handler) updateStore(w http.ResponseWriter, r *http.Request) {
	var patch commerce.StorePatch
	files, err := h.decode(w, r, &patch, logoField)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	if len(files) > 0 {
		patch.Logo = &files[0]
	}

	view, err := h.stores.Update(r.Context(), chi.URLParam(r, "tenantId"), chi.URLParam(r, "storeId"), patch)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, view)
}

// DELETE /api/stores/{tenantId}/store/{storeId}
//
// When the records were deleted but some images were not, the response is
// a 500 whose data lists the orphaned keys.
func (h *Handler) deleteStore(w http.ResponseWriter, r *http.Request) {
	del, err := h.stores.Delete(r.Context(), chi.URLParam(r, "tenantId"), chi.URLParam(r, "storeId"))
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

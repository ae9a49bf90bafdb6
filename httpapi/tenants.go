package httpapi

import (
	"net/http"

	"github.com/jacentio/storefront/commerce"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /api/tenants/registerTenant
func (h *Handler) registerTenant(w http.ResponseWriter, r *http.Request) {
	var in commerce.Registration
	if _, err := h.decode(w, r, &in); err != nil {
		h.fail(w, r, err, nil)
		return
	}

	tenant, err := h.tenants.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusCreated, map[string]string{"tenantId": tenant.ID})
}

// POST /api/tenants/login
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if _, err := h.decode(w, r, &in); err != nil {
		h.fail(w, r, err, nil)
		return
	}

	session, err := h.tenants.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, session)
}

// POST /api/tenants/logout
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.tenants.Logout(r.Context()))
}

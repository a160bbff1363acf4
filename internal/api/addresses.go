package api

import (
	"net/http"

	"home_compare/internal/services/address"
)

// ListAddresses handles GET /api/v1/addresses.
func (h *Handler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	list, err := h.addresses.ListAddresses(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "list addresses failed", err)
		return
	}

	items := make([]addressResponse, 0, len(list))
	for _, a := range list {
		items = append(items, addressDomainToResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"addresses": items})
}

// CreateAddress handles POST /api/v1/addresses.
func (h *Handler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in address.Input
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err)
		return
	}

	a, err := h.addresses.CreateAddress(r.Context(), userID, in)
	if err != nil {
		h.fail(w, r, "create address failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, addressDomainToResponse(a))
}

// UpdateAddress handles PUT /api/v1/addresses/{id}.
func (h *Handler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in address.Input
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err)
		return
	}

	a, err := h.addresses.UpdateAddress(r.Context(), userID, id, in)
	if err != nil {
		h.fail(w, r, "update address failed", err)
		return
	}
	writeJSON(w, http.StatusOK, addressDomainToResponse(a))
}

// DeleteAddress handles DELETE /api/v1/addresses/{id}.
func (h *Handler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.addresses.DeleteAddress(r.Context(), userID, id); err != nil {
		h.fail(w, r, "delete address failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

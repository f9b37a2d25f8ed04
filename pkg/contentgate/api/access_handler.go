package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/mediakit/contentgate/pkg/contentgate"
)

// AccessHandler handles HTTP requests for access grants.
type AccessHandler struct {
	service contentgate.Service
}

// NewAccessHandler creates a new access grant handler
func NewAccessHandler(service contentgate.Service) *AccessHandler {
	return &AccessHandler{service: service}
}

// Routes returns the routes for access grants
func (h *AccessHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/content/{id}/grants", h.GrantAccess)
	r.Get("/content/{id}/grants", h.ListGrants)
	r.Delete("/grants/{grantID}", h.RevokeGrant)

	return r
}

// GrantAccessRequest is the request body for creating an access grant.
// Exactly one of user_id, role, group_id must be set.
type GrantAccessRequest struct {
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Role      *string    `json:"role,omitempty"`
	GroupID   *uuid.UUID `json:"group_id,omitempty"`
	CanShare  bool       `json:"can_share"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// GrantAccess creates an access grant on a content item
func (h *AccessHandler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	var req GrantAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var role *contentgate.Role
	if req.Role != nil {
		parsed := contentgate.Role(*req.Role)
		role = &parsed
	}

	grant, err := h.service.GrantAccess(r.Context(), PrincipalFromContext(r.Context()), contentgate.GrantAccessRequest{
		ContentID: id,
		UserID:    req.UserID,
		Role:      role,
		GroupID:   req.GroupID,
		CanShare:  req.CanShare,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		renderError(w, r, "grant access", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, grant)
}

// ListGrants lists the access grants on a content item
func (h *AccessHandler) ListGrants(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	grants, err := h.service.ListGrants(r.Context(), PrincipalFromContext(r.Context()), id)
	if err != nil {
		renderError(w, r, "list grants", err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"grants": grants, "count": len(grants)})
}

// RevokeGrant deletes an access grant
func (h *AccessHandler) RevokeGrant(w http.ResponseWriter, r *http.Request) {
	grantID, err := uuid.Parse(chi.URLParam(r, "grantID"))
	if err != nil {
		http.Error(w, "Invalid grant ID", http.StatusBadRequest)
		return
	}

	if err := h.service.RevokeGrant(r.Context(), PrincipalFromContext(r.Context()), grantID); err != nil {
		renderError(w, r, "revoke grant", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

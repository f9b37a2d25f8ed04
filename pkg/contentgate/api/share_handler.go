package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/mediakit/contentgate/pkg/contentgate"
)

// ShareHandler handles HTTP requests for third-party shares.
type ShareHandler struct {
	service contentgate.Service
}

// NewShareHandler creates a new share handler
func NewShareHandler(service contentgate.Service) *ShareHandler {
	return &ShareHandler{service: service}
}

// Routes returns the routes for managing shares
func (h *ShareHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/content/{id}/shares", h.CreateShare)
	r.Get("/content/{id}/shares", h.ListShares)
	r.Delete("/shares/{shareID}", h.DeleteShare)

	return r
}

// PublicRoutes returns the unauthenticated share redemption route
func (h *ShareHandler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{token}", h.ResolveShare)
	return r
}

// CreateShareRequest is the request body for creating a share
type CreateShareRequest struct {
	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name,omitempty"`
	Message        string `json:"message,omitempty"`
	ExpiresInDays  int    `json:"expires_in_days"`
}

// Validate validates the request body
func (req CreateShareRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.RecipientEmail, validation.Required, is.Email),
		validation.Field(&req.ExpiresInDays, validation.Required, validation.Min(1)),
	)
}

// CreateShare creates a time-limited share link for a content item
func (h *ShareHandler) CreateShare(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	var req CreateShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.service.CreateShare(r.Context(), PrincipalFromContext(r.Context()), contentgate.CreateShareRequest{
		ContentID:      id,
		RecipientEmail: req.RecipientEmail,
		RecipientName:  req.RecipientName,
		Message:        req.Message,
		ExpiresInDays:  req.ExpiresInDays,
	})
	if err != nil {
		renderError(w, r, "create share", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, created)
}

// ListShares lists the shares created for a content item
func (h *ShareHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	shares, err := h.service.ListShares(r.Context(), PrincipalFromContext(r.Context()), id)
	if err != nil {
		renderError(w, r, "list shares", err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"shares": shares, "count": len(shares)})
}

// DeleteShare revokes a share link
func (h *ShareHandler) DeleteShare(w http.ResponseWriter, r *http.Request) {
	shareID, err := uuid.Parse(chi.URLParam(r, "shareID"))
	if err != nil {
		http.Error(w, "Invalid share ID", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteShare(r.Context(), PrincipalFromContext(r.Context()), shareID); err != nil {
		renderError(w, r, "delete share", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResolveShare redeems a share token and returns the shared content. The
// token is the sole credential; no authentication is required.
func (h *ShareHandler) ResolveShare(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		http.Error(w, "Share token is required", http.StatusBadRequest)
		return
	}

	content, err := h.service.ResolveShare(r.Context(), token)
	if err != nil {
		renderError(w, r, "resolve share", err)
		return
	}
	render.JSON(w, r, content)
}

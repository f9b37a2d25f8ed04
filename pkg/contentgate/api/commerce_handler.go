package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mediakit/contentgate/pkg/contentgate"
)

// CommerceHandler handles HTTP requests for pricing, purchase requests and
// orders.
type CommerceHandler struct {
	service contentgate.Service
}

// NewCommerceHandler creates a new commerce handler
func NewCommerceHandler(service contentgate.Service) *CommerceHandler {
	return &CommerceHandler{service: service}
}

// Routes returns the routes for pricing, purchase requests and orders
func (h *CommerceHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Put("/content/{id}/pricing", h.SetPricing)
	r.Get("/content/{id}/pricing", h.GetPricing)
	r.Delete("/content/{id}/pricing", h.RemovePricing)

	r.Post("/content/{id}/purchase-requests", h.CreatePurchaseRequest)
	r.Get("/content/{id}/purchase-decision", h.CanPurchase)
	r.Post("/purchase-requests/{requestID}/approve", h.ApprovePurchaseRequest)
	r.Post("/purchase-requests/{requestID}/deny", h.DenyPurchaseRequest)

	r.Post("/orders", h.CreateOrder)
	r.Post("/orders/{orderID}/complete", h.CompleteOrder)

	return r
}

// SetPricingRequest is the request body for setting content pricing
type SetPricingRequest struct {
	// Price is in minor currency units (e.g. cents).
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
	// AccessDurationDays limits purchased access; zero means lifetime.
	AccessDurationDays int  `json:"access_duration_days,omitempty"`
	Replace            bool `json:"replace,omitempty"`
}

// Validate validates the request body
func (req SetPricingRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Price, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.Currency, validation.Required, validation.Length(3, 3)),
		validation.Field(&req.AccessDurationDays, validation.Min(0)),
	)
}

// SetPricing creates or replaces the active pricing for a content item
func (h *CommerceHandler) SetPricing(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	var req SetPricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var duration *time.Duration
	if req.AccessDurationDays > 0 {
		d := time.Duration(req.AccessDurationDays) * 24 * time.Hour
		duration = &d
	}

	pricing, err := h.service.SetPricing(r.Context(), PrincipalFromContext(r.Context()), contentgate.SetPricingRequest{
		ContentID:      id,
		Price:          req.Price,
		Currency:       req.Currency,
		AccessDuration: duration,
		Replace:        req.Replace,
	})
	if err != nil {
		renderError(w, r, "set pricing", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, pricing)
}

// GetPricing returns the active pricing for a content item
func (h *CommerceHandler) GetPricing(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	pricing, err := h.service.GetActivePricing(r.Context(), id)
	if err != nil {
		renderError(w, r, "get pricing", err)
		return
	}
	render.JSON(w, r, pricing)
}

// RemovePricing deactivates the active pricing for a content item
func (h *CommerceHandler) RemovePricing(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	if err := h.service.RemovePricing(r.Context(), PrincipalFromContext(r.Context()), id); err != nil {
		renderError(w, r, "remove pricing", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createPurchaseRequestBody struct {
	Message string `json:"message,omitempty"`
}

// CreatePurchaseRequest opens a purchase request for the caller
func (h *CommerceHandler) CreatePurchaseRequest(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	var req createPurchaseRequestBody
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	request, err := h.service.CreatePurchaseRequest(r.Context(), PrincipalFromContext(r.Context()), id, req.Message)
	if err != nil {
		renderError(w, r, "create purchase request", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, request)
}

// CanPurchase reports whether the caller can currently purchase the content
func (h *CommerceHandler) CanPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := contentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	decision, err := h.service.CanPurchaseContent(r.Context(), PrincipalFromContext(r.Context()), id)
	if err != nil {
		renderError(w, r, "purchase decision", err)
		return
	}
	render.JSON(w, r, decision)
}

func (h *CommerceHandler) reviewPurchaseRequest(w http.ResponseWriter, r *http.Request, operation string,
	fn func(p contentgate.Principal, requestID uuid.UUID, notes string) (*contentgate.PurchaseRequest, error)) {

	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		http.Error(w, "Invalid request ID", http.StatusBadRequest)
		return
	}

	var req reviewNotesRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	request, err := fn(PrincipalFromContext(r.Context()), requestID, req.Notes)
	if err != nil {
		renderError(w, r, operation, err)
		return
	}
	render.JSON(w, r, request)
}

// ApprovePurchaseRequest approves a pending purchase request
func (h *CommerceHandler) ApprovePurchaseRequest(w http.ResponseWriter, r *http.Request) {
	h.reviewPurchaseRequest(w, r, "approve purchase request",
		func(p contentgate.Principal, requestID uuid.UUID, notes string) (*contentgate.PurchaseRequest, error) {
			return h.service.ApprovePurchaseRequest(r.Context(), p, requestID, notes)
		})
}

// DenyPurchaseRequest denies a pending purchase request
func (h *CommerceHandler) DenyPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	h.reviewPurchaseRequest(w, r, "deny purchase request",
		func(p contentgate.Principal, requestID uuid.UUID, notes string) (*contentgate.PurchaseRequest, error) {
			return h.service.DenyPurchaseRequest(r.Context(), p, requestID, notes)
		})
}

// CreateOrderRequest is the request body for creating an order
type CreateOrderRequest struct {
	ContentID uuid.UUID `json:"content_id"`
}

// CreateOrder creates a pending order for the caller
func (h *CommerceHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ContentID == uuid.Nil {
		http.Error(w, "content_id is required", http.StatusBadRequest)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), PrincipalFromContext(r.Context()), contentgate.CreateOrderRequest{
		ContentID: req.ContentID,
	})
	if err != nil {
		renderError(w, r, "create order", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, order)
}

// CompleteOrder marks a pending order as paid, granting entitlement
func (h *CommerceHandler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	order, err := h.service.CompleteOrder(r.Context(), PrincipalFromContext(r.Context()), orderID)
	if err != nil {
		renderError(w, r, "complete order", err)
		return
	}
	render.JSON(w, r, order)
}

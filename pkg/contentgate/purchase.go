package contentgate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func (s *service) SetPricing(ctx context.Context, p Principal, req SetPricingRequest) (*ContentPricing, error) {
	if err := requireCapability(p, CapSetContentPricing); err != nil {
		return nil, err
	}
	if req.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	if len(strings.TrimSpace(req.Currency)) != 3 {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", ErrValidation)
	}
	if req.AccessDuration != nil && *req.AccessDuration <= 0 {
		return nil, fmt.Errorf("%w: access duration must be positive", ErrValidation)
	}
	if _, err := s.repository.GetContent(ctx, req.ContentID); err != nil {
		return nil, err
	}

	existing, err := s.repository.GetActivePricing(ctx, req.ContentID)
	if err != nil && !errors.Is(err, ErrPricingNotFound) {
		return nil, err
	}
	if existing != nil && !req.Replace {
		return nil, ErrActivePricingExists
	}

	pricing := &ContentPricing{
		ID:             uuid.New(),
		ContentID:      req.ContentID,
		Price:          req.Price,
		Currency:       strings.ToUpper(strings.TrimSpace(req.Currency)),
		AccessDuration: req.AccessDuration,
		Active:         true,
		CreatedBy:      p.UserID,
		CreatedAt:      s.now(),
	}

	err = s.repository.WithTx(ctx, func(ctx context.Context) error {
		if existing != nil {
			if err := s.repository.DeactivatePricing(ctx, req.ContentID); err != nil {
				return err
			}
		}
		return s.repository.CreatePricing(ctx, pricing)
	})
	if err != nil {
		return nil, &ContentError{ContentID: req.ContentID, Op: "set_pricing", Err: err}
	}
	return pricing, nil
}

// RemovePricing soft-deactivates the active pricing record. Historical orders
// keep their own price snapshot; pending requests are untouched.
func (s *service) RemovePricing(ctx context.Context, p Principal, contentID uuid.UUID) error {
	if err := requireCapability(p, CapSetContentPricing); err != nil {
		return err
	}
	if _, err := s.repository.GetActivePricing(ctx, contentID); err != nil {
		return err
	}
	return s.repository.DeactivatePricing(ctx, contentID)
}

func (s *service) GetActivePricing(ctx context.Context, contentID uuid.UUID) (*ContentPricing, error) {
	return s.repository.GetActivePricing(ctx, contentID)
}

// ownedAt reports whether the user holds non-expired purchased access.
func (s *service) ownedAt(ctx context.Context, userID, contentID uuid.UUID) (bool, error) {
	order, err := s.repository.FindCompletedOrder(ctx, userID, contentID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return false, nil
		}
		return false, err
	}
	return order.GrantsAccessAt(s.now()), nil
}

func (s *service) CreatePurchaseRequest(ctx context.Context, p Principal, contentID uuid.UUID, message string) (*PurchaseRequest, error) {
	if p.Anonymous {
		return nil, fmt.Errorf("%w: sign in to request a purchase", ErrForbidden)
	}
	if _, err := s.repository.GetContent(ctx, contentID); err != nil {
		return nil, err
	}
	if _, err := s.repository.GetActivePricing(ctx, contentID); err != nil {
		if errors.Is(err, ErrPricingNotFound) {
			return nil, fmt.Errorf("%w: content is not for sale", ErrPricingNotFound)
		}
		return nil, err
	}

	owned, err := s.ownedAt(ctx, p.UserID, contentID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, ErrAlreadyOwned
	}

	existing, err := s.repository.FindActivePurchaseRequest(ctx, p.UserID, contentID)
	if err != nil && !errors.Is(err, ErrPurchaseRequestNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.Status == PurchaseRequestStatusPending {
			return nil, ErrRequestPending
		}
		return nil, ErrRequestApproved
	}

	request := &PurchaseRequest{
		ID:        uuid.New(),
		UserID:    p.UserID,
		ContentID: contentID,
		Status:    PurchaseRequestStatusPending,
		Message:   message,
		CreatedAt: s.now(),
	}
	err = s.repository.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repository.CreatePurchaseRequest(ctx, request); err != nil {
			return err
		}
		return s.repository.EnqueueNotification(ctx, &NotificationEvent{
			ID:        uuid.New(),
			Kind:      NotificationPurchaseRequestCreated,
			ContentID: contentID,
			UserID:    &p.UserID,
			Note:      message,
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		return nil, &PurchaseError{UserID: p.UserID, ContentID: contentID, Op: "create_request", Err: err}
	}
	return request, nil
}

// canReviewPurchase reports whether the principal may approve or deny
// purchase requests for the given content.
func (s *service) canReviewPurchase(ctx context.Context, p Principal, contentID uuid.UUID) error {
	if p.HasCapability(CapSetContentPricing) {
		return nil
	}
	content, err := s.repository.GetContent(ctx, contentID)
	if err == nil && !p.Anonymous && content.CreatorID == p.UserID {
		return nil
	}
	return fmt.Errorf("%w: requires %s", ErrForbidden, CapSetContentPricing)
}

func (s *service) reviewPurchaseRequest(ctx context.Context, p Principal, requestID uuid.UUID, notes string, to PurchaseRequestStatus, kind NotificationKind, op string) (*PurchaseRequest, error) {
	request, err := s.repository.GetPurchaseRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.canReviewPurchase(ctx, p, request.ContentID); err != nil {
		return nil, err
	}
	if request.Status != PurchaseRequestStatusPending {
		return nil, fmt.Errorf("%w: request is %s, not pending", ErrInvalidTransition, request.Status)
	}

	now := s.now()
	request.Status = to
	request.AdminNotes = notes
	request.ReviewedBy = &p.UserID
	request.ReviewedAt = &now

	err = s.repository.WithTx(ctx, func(ctx context.Context) error {
		// Guarded write: a concurrent reviewer that already decided this
		// request wins and this call fails instead of overwriting.
		if err := s.repository.UpdatePurchaseRequest(ctx, request, PurchaseRequestStatusPending); err != nil {
			return err
		}
		return s.repository.EnqueueNotification(ctx, &NotificationEvent{
			ID:        uuid.New(),
			Kind:      kind,
			ContentID: request.ContentID,
			UserID:    &request.UserID,
			Note:      notes,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, &PurchaseError{UserID: request.UserID, ContentID: request.ContentID, Op: op, Err: err}
	}
	return request, nil
}

// ApprovePurchaseRequest approves a pending request. Approval schedules a
// notification but does not itself grant access; access is granted only by
// completing an order.
func (s *service) ApprovePurchaseRequest(ctx context.Context, p Principal, requestID uuid.UUID, notes string) (*PurchaseRequest, error) {
	return s.reviewPurchaseRequest(ctx, p, requestID, notes, PurchaseRequestStatusApproved, NotificationPurchaseApproved, "approve_request")
}

func (s *service) DenyPurchaseRequest(ctx context.Context, p Principal, requestID uuid.UUID, notes string) (*PurchaseRequest, error) {
	return s.reviewPurchaseRequest(ctx, p, requestID, notes, PurchaseRequestStatusDenied, NotificationPurchaseDenied, "deny_request")
}

// CanPurchaseContent is evaluated fresh on every call: its inputs (orders,
// requests, pricing) mutate independently and must never be cached.
func (s *service) CanPurchaseContent(ctx context.Context, p Principal, contentID uuid.UUID) (*PurchaseDecision, error) {
	if p.Anonymous {
		return &PurchaseDecision{Reason: "sign in to purchase content"}, nil
	}
	if _, err := s.repository.GetContent(ctx, contentID); err != nil {
		return nil, err
	}

	if _, err := s.repository.GetActivePricing(ctx, contentID); err != nil {
		if errors.Is(err, ErrPricingNotFound) {
			return &PurchaseDecision{Reason: "content is not for sale"}, nil
		}
		return nil, err
	}

	owned, err := s.ownedAt(ctx, p.UserID, contentID)
	if err != nil {
		return nil, err
	}
	if owned {
		return &PurchaseDecision{Reason: "content already owned"}, nil
	}

	request, err := s.repository.FindActivePurchaseRequest(ctx, p.UserID, contentID)
	if err != nil {
		if errors.Is(err, ErrPurchaseRequestNotFound) {
			return &PurchaseDecision{Reason: "purchase request required"}, nil
		}
		return nil, err
	}

	status := request.Status
	switch status {
	case PurchaseRequestStatusApproved:
		return &PurchaseDecision{CanPurchase: true, Reason: "purchase request approved", RequestStatus: &status}, nil
	default:
		return &PurchaseDecision{Reason: "purchase request pending approval", RequestStatus: &status}, nil
	}
}

// CreateOrder snapshots the current price and access duration into the order
// so later pricing changes never retroactively alter sold entitlements.
func (s *service) CreateOrder(ctx context.Context, p Principal, req CreateOrderRequest) (*Order, error) {
	decision, err := s.CanPurchaseContent(ctx, p, req.ContentID)
	if err != nil {
		return nil, err
	}
	if !decision.CanPurchase {
		return nil, &PurchaseError{
			UserID:    p.UserID,
			ContentID: req.ContentID,
			Op:        "create_order",
			Err:       fmt.Errorf("%w: %s", ErrConflict, decision.Reason),
		}
	}

	pricing, err := s.repository.GetActivePricing(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}
	request, err := s.repository.FindActivePurchaseRequest(ctx, p.UserID, req.ContentID)
	if err != nil {
		return nil, err
	}

	order := &Order{
		ID:                uuid.New(),
		UserID:            p.UserID,
		ContentID:         req.ContentID,
		PricingID:         pricing.ID,
		PurchaseRequestID: &request.ID,
		Status:            OrderStatusPending,
		Amount:            pricing.Price,
		Currency:          pricing.Currency,
		AccessDuration:    pricing.AccessDuration,
		CreatedAt:         s.now(),
	}
	if err := s.repository.CreateOrder(ctx, order); err != nil {
		return nil, &PurchaseError{UserID: p.UserID, ContentID: req.ContentID, Op: "create_order", Err: err}
	}
	return order, nil
}

// CompleteOrder marks a pending order completed, computes the access expiry
// from the order's own duration snapshot, and stamps the originating purchase
// request, all in one transaction.
func (s *service) CompleteOrder(ctx context.Context, p Principal, orderID uuid.UUID) (*Order, error) {
	order, err := s.repository.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != p.UserID && !p.HasCapability(CapSetContentPricing) {
		return nil, fmt.Errorf("%w: not your order", ErrForbidden)
	}
	if order.Status != OrderStatusPending {
		return nil, fmt.Errorf("%w: order is %s, not pending", ErrInvalidTransition, order.Status)
	}

	now := s.now()
	order.Status = OrderStatusCompleted
	order.CompletedAt = &now
	if order.AccessDuration != nil {
		expires := now.Add(*order.AccessDuration)
		order.AccessExpiresAt = &expires
	}

	err = s.repository.WithTx(ctx, func(ctx context.Context) error {
		// Guarded write: two completions racing past the status check above
		// cannot both commit; the loser fails here and rolls back.
		if err := s.repository.UpdateOrder(ctx, order, OrderStatusPending); err != nil {
			return err
		}
		if order.PurchaseRequestID == nil {
			return nil
		}
		request, err := s.repository.GetPurchaseRequest(ctx, *order.PurchaseRequestID)
		if err != nil {
			return err
		}
		if request.PurchaseCompletedAt == nil {
			request.PurchaseCompletedAt = &now
			if err := s.repository.UpdatePurchaseRequest(ctx, request, request.Status); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, &PurchaseError{UserID: order.UserID, ContentID: order.ContentID, Op: "complete_order", Err: err}
	}
	return order, nil
}

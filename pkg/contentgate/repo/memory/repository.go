package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mediakit/contentgate/pkg/contentgate"
)

// Repository implements contentgate.Repository using in-memory storage.
// Intended for tests and development.
type Repository struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	contents      map[uuid.UUID]*contentgate.Content
	versions      map[uuid.UUID][]*contentgate.ContentVersion // content_id -> versions, ascending
	grants        map[uuid.UUID]*contentgate.AccessGrant
	pricings      map[uuid.UUID]*contentgate.ContentPricing
	requests      map[uuid.UUID]*contentgate.PurchaseRequest
	orders        map[uuid.UUID]*contentgate.Order
	shares        map[uuid.UUID]*contentgate.ContentShare
	sharesByToken map[string]uuid.UUID
	notifications []*contentgate.NotificationEvent
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		contents:      make(map[uuid.UUID]*contentgate.Content),
		versions:      make(map[uuid.UUID][]*contentgate.ContentVersion),
		grants:        make(map[uuid.UUID]*contentgate.AccessGrant),
		pricings:      make(map[uuid.UUID]*contentgate.ContentPricing),
		requests:      make(map[uuid.UUID]*contentgate.PurchaseRequest),
		orders:        make(map[uuid.UUID]*contentgate.Order),
		shares:        make(map[uuid.UUID]*contentgate.ContentShare),
		sharesByToken: make(map[string]uuid.UUID),
	}
}

// snapshot copies the whole store so WithTx can roll back on failure.
func (r *Repository) snapshot() *Repository {
	s := New()
	for k, v := range r.contents {
		c := *v
		s.contents[k] = &c
	}
	for k, vs := range r.versions {
		copied := make([]*contentgate.ContentVersion, len(vs))
		for i, v := range vs {
			c := *v
			copied[i] = &c
		}
		s.versions[k] = copied
	}
	for k, v := range r.grants {
		c := *v
		s.grants[k] = &c
	}
	for k, v := range r.pricings {
		c := *v
		s.pricings[k] = &c
	}
	for k, v := range r.requests {
		c := *v
		s.requests[k] = &c
	}
	for k, v := range r.orders {
		c := *v
		s.orders[k] = &c
	}
	for k, v := range r.shares {
		c := *v
		s.shares[k] = &c
	}
	for k, v := range r.sharesByToken {
		s.sharesByToken[k] = v
	}
	s.notifications = make([]*contentgate.NotificationEvent, len(r.notifications))
	for i, n := range r.notifications {
		c := *n
		s.notifications[i] = &c
	}
	return s
}

func (r *Repository) restore(s *Repository) {
	r.contents = s.contents
	r.versions = s.versions
	r.grants = s.grants
	r.pricings = s.pricings
	r.requests = s.requests
	r.orders = s.orders
	r.shares = s.shares
	r.sharesByToken = s.sharesByToken
	r.notifications = s.notifications
}

// WithTx serializes multi-step mutations against each other and restores the
// pre-transaction state when fn fails.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	before := r.snapshot()
	r.mu.Unlock()

	if err := fn(ctx); err != nil {
		r.mu.Lock()
		r.restore(before)
		r.mu.Unlock()
		return err
	}
	return nil
}

// Content operations

func (r *Repository) CreateContent(ctx context.Context, content *contentgate.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Copy to avoid external modification
	contentCopy := *content
	r.contents[content.ID] = &contentCopy
	return nil
}

func (r *Repository) GetContent(ctx context.Context, id uuid.UUID) (*contentgate.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	content, exists := r.contents[id]
	if !exists {
		return nil, contentgate.ErrContentNotFound
	}
	contentCopy := *content
	return &contentCopy, nil
}

func (r *Repository) UpdateContent(ctx context.Context, content *contentgate.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contents[content.ID]; !exists {
		return contentgate.ErrContentNotFound
	}
	contentCopy := *content
	r.contents[content.ID] = &contentCopy
	return nil
}

func (r *Repository) UpdateContentStatus(ctx context.Context, content *contentgate.Content, expected contentgate.ContentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.contents[content.ID]
	if !exists {
		return contentgate.ErrContentNotFound
	}
	if stored.Status != expected {
		return fmt.Errorf("%w: content status is %s, expected %s",
			contentgate.ErrConflict, stored.Status, expected)
	}
	contentCopy := *content
	r.contents[content.ID] = &contentCopy
	return nil
}

func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contents[id]; !exists {
		return contentgate.ErrContentNotFound
	}
	delete(r.contents, id)
	delete(r.versions, id)
	for gid, g := range r.grants {
		if g.ContentID == id {
			delete(r.grants, gid)
		}
	}
	for pid, p := range r.pricings {
		if p.ContentID == id {
			delete(r.pricings, pid)
		}
	}
	for sid, s := range r.shares {
		if s.ContentID == id {
			delete(r.sharesByToken, s.AccessToken)
			delete(r.shares, sid)
		}
	}
	// Orders and purchase requests are the audit trail and survive deletion.
	return nil
}

func matchesFilters(content *contentgate.Content, filters contentgate.ContentListFilters) bool {
	if content.Status == contentgate.ContentStatusArchived && !filters.IncludeArchived {
		return false
	}
	if filters.CreatorID != nil && content.CreatorID != *filters.CreatorID {
		return false
	}
	if filters.Status != nil && content.Status != *filters.Status {
		return false
	}
	if len(filters.Statuses) > 0 {
		found := false
		for _, s := range filters.Statuses {
			if content.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filters.Type != nil && content.Type != *filters.Type {
		return false
	}
	if filters.Tag != nil {
		found := false
		for _, t := range content.Tags {
			if t == *filters.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r *Repository) ListContent(ctx context.Context, filters contentgate.ContentListFilters) ([]*contentgate.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*contentgate.Content
	for _, content := range r.contents {
		if matchesFilters(content, filters) {
			contentCopy := *content
			result = append(result, &contentCopy)
		}
	}

	// Sort by created_at descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filters.Offset != nil && *filters.Offset > 0 {
		if *filters.Offset >= len(result) {
			return []*contentgate.Content{}, nil
		}
		result = result[*filters.Offset:]
	}
	if filters.Limit != nil && *filters.Limit > 0 && *filters.Limit < len(result) {
		result = result[:*filters.Limit]
	}

	return result, nil
}

// Version operations

func (r *Repository) CreateVersion(ctx context.Context, version *contentgate.ContentVersion) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contents[version.ContentID]; !exists {
		return 0, contentgate.ErrContentNotFound
	}

	versionCopy := *version
	versionCopy.VersionNumber = len(r.versions[version.ContentID]) + 1
	r.versions[version.ContentID] = append(r.versions[version.ContentID], &versionCopy)

	version.VersionNumber = versionCopy.VersionNumber
	return versionCopy.VersionNumber, nil
}

func (r *Repository) GetVersion(ctx context.Context, contentID uuid.UUID, versionNumber int) (*contentgate.ContentVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.versions[contentID]
	if versionNumber < 1 || versionNumber > len(versions) {
		return nil, contentgate.ErrVersionNotFound
	}
	versionCopy := *versions[versionNumber-1]
	return &versionCopy, nil
}

func (r *Repository) ListVersions(ctx context.Context, contentID uuid.UUID) ([]*contentgate.ContentVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.versions[contentID]
	result := make([]*contentgate.ContentVersion, 0, len(versions))
	// Most recent first
	for i := len(versions) - 1; i >= 0; i-- {
		versionCopy := *versions[i]
		result = append(result, &versionCopy)
	}
	return result, nil
}

// Access grant operations

func (r *Repository) CreateGrant(ctx context.Context, grant *contentgate.AccessGrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contents[grant.ContentID]; !exists {
		return contentgate.ErrContentNotFound
	}
	grantCopy := *grant
	r.grants[grant.ID] = &grantCopy
	return nil
}

func (r *Repository) GetGrant(ctx context.Context, id uuid.UUID) (*contentgate.AccessGrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	grant, exists := r.grants[id]
	if !exists {
		return nil, contentgate.ErrGrantNotFound
	}
	grantCopy := *grant
	return &grantCopy, nil
}

func (r *Repository) DeleteGrant(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.grants[id]; !exists {
		return contentgate.ErrGrantNotFound
	}
	delete(r.grants, id)
	return nil
}

func (r *Repository) ListGrantsByContent(ctx context.Context, contentID uuid.UUID) ([]*contentgate.AccessGrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*contentgate.AccessGrant
	for _, grant := range r.grants {
		if grant.ContentID == contentID {
			grantCopy := *grant
			result = append(result, &grantCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Pricing operations

func (r *Repository) CreatePricing(ctx context.Context, pricing *contentgate.ContentPricing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contents[pricing.ContentID]; !exists {
		return contentgate.ErrContentNotFound
	}
	if pricing.Active {
		for _, existing := range r.pricings {
			if existing.ContentID == pricing.ContentID && existing.Active {
				return contentgate.ErrActivePricingExists
			}
		}
	}
	pricingCopy := *pricing
	r.pricings[pricing.ID] = &pricingCopy
	return nil
}

func (r *Repository) GetPricing(ctx context.Context, id uuid.UUID) (*contentgate.ContentPricing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pricing, exists := r.pricings[id]
	if !exists {
		return nil, contentgate.ErrPricingNotFound
	}
	pricingCopy := *pricing
	return &pricingCopy, nil
}

func (r *Repository) GetActivePricing(ctx context.Context, contentID uuid.UUID) (*contentgate.ContentPricing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, pricing := range r.pricings {
		if pricing.ContentID == contentID && pricing.Active {
			pricingCopy := *pricing
			return &pricingCopy, nil
		}
	}
	return nil, contentgate.ErrPricingNotFound
}

func (r *Repository) DeactivatePricing(ctx context.Context, contentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, pricing := range r.pricings {
		if pricing.ContentID == contentID && pricing.Active {
			now := time.Now()
			pricing.Active = false
			pricing.DeactivatedAt = &now
			return nil
		}
	}
	return contentgate.ErrPricingNotFound
}

// Purchase request operations

func (r *Repository) CreatePurchaseRequest(ctx context.Context, request *contentgate.PurchaseRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// At most one request in {pending, approved-unused} per (user, content).
	for _, existing := range r.requests {
		if existing.UserID == request.UserID && existing.ContentID == request.ContentID && isActiveRequest(existing) {
			if existing.Status == contentgate.PurchaseRequestStatusPending {
				return contentgate.ErrRequestPending
			}
			return contentgate.ErrRequestApproved
		}
	}
	requestCopy := *request
	r.requests[request.ID] = &requestCopy
	return nil
}

func isActiveRequest(request *contentgate.PurchaseRequest) bool {
	switch request.Status {
	case contentgate.PurchaseRequestStatusPending:
		return true
	case contentgate.PurchaseRequestStatusApproved:
		return request.PurchaseCompletedAt == nil
	}
	return false
}

func (r *Repository) GetPurchaseRequest(ctx context.Context, id uuid.UUID) (*contentgate.PurchaseRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	request, exists := r.requests[id]
	if !exists {
		return nil, contentgate.ErrPurchaseRequestNotFound
	}
	requestCopy := *request
	return &requestCopy, nil
}

func (r *Repository) UpdatePurchaseRequest(ctx context.Context, request *contentgate.PurchaseRequest, expected contentgate.PurchaseRequestStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.requests[request.ID]
	if !exists {
		return contentgate.ErrPurchaseRequestNotFound
	}
	if stored.Status != expected {
		return fmt.Errorf("%w: purchase request status is %s, expected %s",
			contentgate.ErrConflict, stored.Status, expected)
	}
	requestCopy := *request
	r.requests[request.ID] = &requestCopy
	return nil
}

func (r *Repository) FindActivePurchaseRequest(ctx context.Context, userID, contentID uuid.UUID) (*contentgate.PurchaseRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *contentgate.PurchaseRequest
	for _, request := range r.requests {
		if request.UserID != userID || request.ContentID != contentID || !isActiveRequest(request) {
			continue
		}
		if latest == nil || request.CreatedAt.After(latest.CreatedAt) {
			latest = request
		}
	}
	if latest == nil {
		return nil, contentgate.ErrPurchaseRequestNotFound
	}
	requestCopy := *latest
	return &requestCopy, nil
}

// Order operations

func (r *Repository) CreateOrder(ctx context.Context, order *contentgate.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	orderCopy := *order
	r.orders[order.ID] = &orderCopy
	return nil
}

func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (*contentgate.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.orders[id]
	if !exists {
		return nil, contentgate.ErrOrderNotFound
	}
	orderCopy := *order
	return &orderCopy, nil
}

func (r *Repository) UpdateOrder(ctx context.Context, order *contentgate.Order, expected contentgate.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.orders[order.ID]
	if !exists {
		return contentgate.ErrOrderNotFound
	}
	if stored.Status != expected {
		return fmt.Errorf("%w: order status is %s, expected %s",
			contentgate.ErrConflict, stored.Status, expected)
	}
	orderCopy := *order
	r.orders[order.ID] = &orderCopy
	return nil
}

func (r *Repository) FindCompletedOrder(ctx context.Context, userID, contentID uuid.UUID) (*contentgate.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *contentgate.Order
	for _, order := range r.orders {
		if order.UserID != userID || order.ContentID != contentID {
			continue
		}
		if order.Status != contentgate.OrderStatusCompleted {
			continue
		}
		if latest == nil || order.CompletedAt.After(*latest.CompletedAt) {
			latest = order
		}
	}
	if latest == nil {
		return nil, contentgate.ErrOrderNotFound
	}
	orderCopy := *latest
	return &orderCopy, nil
}

func (r *Repository) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*contentgate.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*contentgate.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			orderCopy := *order
			result = append(result, &orderCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Share operations

func (r *Repository) CreateShare(ctx context.Context, share *contentgate.ContentShare) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contents[share.ContentID]; !exists {
		return contentgate.ErrContentNotFound
	}
	shareCopy := *share
	r.shares[share.ID] = &shareCopy
	r.sharesByToken[share.AccessToken] = share.ID
	return nil
}

func (r *Repository) GetShare(ctx context.Context, id uuid.UUID) (*contentgate.ContentShare, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	share, exists := r.shares[id]
	if !exists {
		return nil, contentgate.ErrShareNotFound
	}
	shareCopy := *share
	return &shareCopy, nil
}

func (r *Repository) GetShareByToken(ctx context.Context, token string) (*contentgate.ContentShare, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.sharesByToken[token]
	if !exists {
		return nil, contentgate.ErrShareNotFound
	}
	share, exists := r.shares[id]
	if !exists {
		return nil, contentgate.ErrShareNotFound
	}
	shareCopy := *share
	return &shareCopy, nil
}

func (r *Repository) UpdateShare(ctx context.Context, share *contentgate.ContentShare) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.shares[share.ID]; !exists {
		return contentgate.ErrShareNotFound
	}
	shareCopy := *share
	r.shares[share.ID] = &shareCopy
	r.sharesByToken[share.AccessToken] = share.ID
	return nil
}

func (r *Repository) DeleteShare(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	share, exists := r.shares[id]
	if !exists {
		return contentgate.ErrShareNotFound
	}
	delete(r.sharesByToken, share.AccessToken)
	delete(r.shares, id)
	return nil
}

func (r *Repository) ListSharesByContent(ctx context.Context, contentID uuid.UUID) ([]*contentgate.ContentShare, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*contentgate.ContentShare
	for _, share := range r.shares {
		if share.ContentID == contentID {
			shareCopy := *share
			result = append(result, &shareCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Notification outbox operations

func (r *Repository) EnqueueNotification(ctx context.Context, event *contentgate.NotificationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	eventCopy := *event
	r.notifications = append(r.notifications, &eventCopy)
	return nil
}

func (r *Repository) ListPendingNotifications(ctx context.Context, limit int) ([]*contentgate.NotificationEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*contentgate.NotificationEvent
	for _, event := range r.notifications {
		if event.DispatchedAt != nil {
			continue
		}
		eventCopy := *event
		result = append(result, &eventCopy)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (r *Repository) MarkNotificationDispatched(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, event := range r.notifications {
		if event.ID == id {
			now := time.Now()
			event.DispatchedAt = &now
			return nil
		}
	}
	return fmt.Errorf("notification event %s not found", id)
}

func (r *Repository) MarkNotificationFailed(ctx context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, event := range r.notifications {
		if event.ID == id {
			event.Attempts++
			event.LastError = reason
			return nil
		}
	}
	return fmt.Errorf("notification event %s not found", id)
}

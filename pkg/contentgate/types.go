package contentgate

import (
	"time"

	"github.com/google/uuid"
)

// ContentType is the domain type for the kind of media a content item holds.
type ContentType string

// Content type constants (typed).
const (
	ContentTypeVideo    ContentType = "video"
	ContentTypeArticle  ContentType = "article"
	ContentTypeDocument ContentType = "document"
	ContentTypeAudio    ContentType = "audio"
)

// ContentStatus is the domain type for content lifecycle states.
type ContentStatus string

// Content status constants (typed).
const (
	ContentStatusDraft            ContentStatus = "draft"
	ContentStatusReview           ContentStatus = "review"
	ContentStatusPublished        ContentStatus = "published"
	ContentStatusRejected         ContentStatus = "rejected"
	ContentStatusChangesRequested ContentStatus = "changes_requested"
	ContentStatusArchived         ContentStatus = "archived"
)

// PurchaseRequestStatus is the domain type for purchase request states.
type PurchaseRequestStatus string

// Purchase request status constants (typed).
const (
	PurchaseRequestStatusPending  PurchaseRequestStatus = "pending"
	PurchaseRequestStatusApproved PurchaseRequestStatus = "approved"
	PurchaseRequestStatusDenied   PurchaseRequestStatus = "denied"
)

// OrderStatus is the domain type for order states.
type OrderStatus string

// Order status constants (typed).
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// Content represents a content item and its visibility controls.
//
// Status and the availability fields (Active, StartDate, EndDate) are
// orthogonal: a published item is still hidden outside its date window or
// while Active is false.
type Content struct {
	ID          uuid.UUID   `json:"id"`
	Type        ContentType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Body        string      `json:"body,omitempty"`
	FileRef     string      `json:"file_ref,omitempty"`
	ExternalURL string      `json:"external_url,omitempty"`
	Tags        []string    `json:"tags,omitempty"`

	Status    ContentStatus `json:"status"`
	IsPublic  bool          `json:"is_public"`
	Active    bool          `json:"active"`
	StartDate *time.Time    `json:"start_date,omitempty"`
	EndDate   *time.Time    `json:"end_date,omitempty"`

	// PasswordHash is a bcrypt hash of the optional read-time password gate.
	// Empty means no gate.
	PasswordHash string `json:"-"`

	CreatorID uuid.UUID `json:"creator_id"`

	ReviewNotes          string     `json:"review_notes,omitempty"`
	ReviewedBy           *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt           *time.Time `json:"reviewed_at,omitempty"`
	SubmittedForReviewAt *time.Time `json:"submitted_for_review_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContentSnapshot holds the content-describing fields captured in a version.
type ContentSnapshot struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Type        ContentType   `json:"type"`
	Body        string        `json:"body,omitempty"`
	FileRef     string        `json:"file_ref,omitempty"`
	ExternalURL string        `json:"external_url,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	Status      ContentStatus `json:"status"`
	IsPublic    bool          `json:"is_public"`
	Active      bool          `json:"active"`
	StartDate   *time.Time    `json:"start_date,omitempty"`
	EndDate     *time.Time    `json:"end_date,omitempty"`
}

// ContentVersion is an immutable snapshot of a content item.
// Version numbers are gapless and strictly increasing per content, starting
// at 1. History is never truncated: reverting appends a new version.
type ContentVersion struct {
	ID                uuid.UUID       `json:"id"`
	ContentID         uuid.UUID       `json:"content_id"`
	VersionNumber     int             `json:"version_number"`
	Snapshot          ContentSnapshot `json:"snapshot"`
	ChangeDescription string          `json:"change_description,omitempty"`
	CreatedBy         uuid.UUID       `json:"created_by"`
	CreatedAt         time.Time       `json:"created_at"`
}

// AccessGrant gives a principal (user, role, or user group) read access to a
// content item. Effective access is the union of all grants that apply.
type AccessGrant struct {
	ID        uuid.UUID `json:"id"`
	ContentID uuid.UUID `json:"content_id"`

	// Exactly one of UserID, Role, GroupID identifies the principal.
	UserID  *uuid.UUID `json:"user_id,omitempty"`
	Role    *Role      `json:"role,omitempty"`
	GroupID *uuid.UUID `json:"group_id,omitempty"`

	CanShare  bool       `json:"can_share"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedBy uuid.UUID  `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
}

// AppliesTo reports whether the grant names the given principal and has not
// expired at the supplied instant.
func (g *AccessGrant) AppliesTo(p Principal, now time.Time) bool {
	if g.ExpiresAt != nil && now.After(*g.ExpiresAt) {
		return false
	}
	switch {
	case g.UserID != nil:
		return !p.Anonymous && *g.UserID == p.UserID
	case g.Role != nil:
		return !p.Anonymous && *g.Role == p.Role
	case g.GroupID != nil:
		for _, gid := range p.GroupIDs {
			if gid == *g.GroupID {
				return true
			}
		}
	}
	return false
}

// ContentPricing is the price of access to a content item. At most one
// pricing record per content is active at a time; deactivated records are
// retained so completed orders keep their provenance.
type ContentPricing struct {
	ID        uuid.UUID `json:"id"`
	ContentID uuid.UUID `json:"content_id"`
	// Price is in minor currency units (e.g. cents).
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
	// AccessDuration limits purchased access; nil means lifetime.
	AccessDuration *time.Duration `json:"access_duration,omitempty"`
	Active         bool           `json:"active"`
	CreatedBy      uuid.UUID      `json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
	DeactivatedAt  *time.Time     `json:"deactivated_at,omitempty"`
}

// PurchaseRequest is a user's request to buy access to a priced content item.
// At most one request in {pending, approved-unused} exists per (user,
// content); requests are never deleted, only transitioned.
type PurchaseRequest struct {
	ID        uuid.UUID             `json:"id"`
	UserID    uuid.UUID             `json:"user_id"`
	ContentID uuid.UUID             `json:"content_id"`
	Status    PurchaseRequestStatus `json:"status"`
	Message   string                `json:"message,omitempty"`

	AdminNotes          string     `json:"admin_notes,omitempty"`
	ReviewedBy          *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt          *time.Time `json:"reviewed_at,omitempty"`
	PurchaseCompletedAt *time.Time `json:"purchase_completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Order is the durable grant of purchased entitlement. It snapshots the price
// and access duration at creation so later pricing changes never alter sold
// entitlements. It outlives the purchase request that authorized it.
type Order struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ContentID uuid.UUID `json:"content_id"`
	PricingID uuid.UUID `json:"pricing_id"`
	// PurchaseRequestID links the order to the request it completes, if any.
	PurchaseRequestID *uuid.UUID `json:"purchase_request_id,omitempty"`

	Status   OrderStatus `json:"status"`
	Amount   int64       `json:"amount"`
	Currency string      `json:"currency"`
	// AccessDuration is copied from the pricing record at order creation.
	AccessDuration *time.Duration `json:"access_duration,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// AccessExpiresAt is CompletedAt + AccessDuration; nil means lifetime.
	AccessExpiresAt *time.Time `json:"access_expires_at,omitempty"`
}

// GrantsAccessAt reports whether the order conveys purchased entitlement at
// the supplied instant.
func (o *Order) GrantsAccessAt(now time.Time) bool {
	if o.Status != OrderStatusCompleted {
		return false
	}
	return o.AccessExpiresAt == nil || now.Before(*o.AccessExpiresAt)
}

// ContentShare is a time-limited, token-addressed third-party access grant.
// The token is the sole credential: no user identity is required to redeem
// it, and it grants read-only access to exactly one content item until
// ExpiresAt.
type ContentShare struct {
	ID             uuid.UUID  `json:"id"`
	ContentID      uuid.UUID  `json:"content_id"`
	AccessToken    string     `json:"-"`
	RecipientEmail string     `json:"recipient_email,omitempty"`
	RecipientName  string     `json:"recipient_name,omitempty"`
	Message        string     `json:"message,omitempty"`
	ExpiresAt      time.Time  `json:"expires_at"`
	ViewCount      int        `json:"view_count"`
	LastViewedAt   *time.Time `json:"last_viewed_at,omitempty"`
	CreatedBy      uuid.UUID  `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NotificationKind identifies the state transition a notification reports.
type NotificationKind string

// Notification kind constants (typed).
const (
	NotificationContentSubmitted       NotificationKind = "content_submitted"
	NotificationContentApproved        NotificationKind = "content_approved"
	NotificationContentRejected        NotificationKind = "content_rejected"
	NotificationChangesRequested       NotificationKind = "changes_requested"
	NotificationPurchaseRequestCreated NotificationKind = "purchase_request_created"
	NotificationPurchaseApproved       NotificationKind = "purchase_approved"
	NotificationPurchaseDenied         NotificationKind = "purchase_denied"
	NotificationShareCreated           NotificationKind = "share_created"
)

// NotificationEvent is an outbox row written in the same transaction as the
// state change it reports. A worker drains the outbox and hands events to the
// notification collaborator; delivery failures never roll back state changes.
type NotificationEvent struct {
	ID        uuid.UUID        `json:"id"`
	Kind      NotificationKind `json:"kind"`
	ContentID uuid.UUID        `json:"content_id"`
	UserID    *uuid.UUID       `json:"user_id,omitempty"`
	Note      string           `json:"note,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
	Attempts     int        `json:"attempts"`
	LastError    string     `json:"last_error,omitempty"`
}

// ContentListFilters defines filtering options for listing content.
type ContentListFilters struct {
	CreatorID *uuid.UUID
	Status    *ContentStatus
	Statuses  []ContentStatus
	Type      *ContentType
	Tag       *string
	// IncludeArchived is only honoured for callers holding the view-all
	// capability; the service clears it otherwise.
	IncludeArchived bool
	Limit           *int
	Offset          *int
}

package contentgate

import (
	"time"

	"github.com/google/uuid"
)

// Request/Response DTOs

// CreateContentRequest contains parameters for creating new content.
type CreateContentRequest struct {
	Type        ContentType
	Title       string
	Description string
	Body        string
	FileRef     string
	ExternalURL string
	Tags        []string
	IsPublic    bool
	StartDate   *time.Time
	EndDate     *time.Time
	// Password, when non-empty, becomes the read-time password gate.
	Password string
}

// UpdateContentRequest contains parameters for updating content attributes.
// Nil pointer fields are left unchanged.
type UpdateContentRequest struct {
	ContentID   uuid.UUID
	Title       *string
	Description *string
	Body        *string
	FileRef     *string
	ExternalURL *string
	Tags        []string
	IsPublic    *bool
	Active      *bool
	StartDate   *time.Time
	EndDate     *time.Time
	ClearDates  bool
	// Password replaces the gate; ClearPassword removes it.
	Password          *string
	ClearPassword     bool
	ChangeDescription string
}

// GrantAccessRequest contains parameters for creating an access grant.
// Exactly one of UserID, Role, GroupID must be set.
type GrantAccessRequest struct {
	ContentID uuid.UUID
	UserID    *uuid.UUID
	Role      *Role
	GroupID   *uuid.UUID
	CanShare  bool
	ExpiresAt *time.Time
}

// SetPricingRequest contains parameters for setting content pricing.
type SetPricingRequest struct {
	ContentID uuid.UUID
	// Price is in minor currency units.
	Price    int64
	Currency string
	// AccessDuration limits purchased access; nil means lifetime.
	AccessDuration *time.Duration
	// Replace deactivates an existing active pricing record instead of
	// failing with ErrActivePricingExists.
	Replace bool
}

// CreateShareRequest contains parameters for creating a third-party share.
type CreateShareRequest struct {
	ContentID      uuid.UUID
	RecipientEmail string
	RecipientName  string
	Message        string
	ExpiresInDays  int
}

// CreateOrderRequest contains parameters for creating an order.
type CreateOrderRequest struct {
	ContentID uuid.UUID
}

// PurchaseDecision is the read-only result of CanPurchaseContent.
type PurchaseDecision struct {
	CanPurchase   bool                   `json:"can_purchase"`
	Reason        string                 `json:"reason"`
	RequestStatus *PurchaseRequestStatus `json:"request_status,omitempty"`
}

// DenyReason explains why the entitlement resolver denied access.
type DenyReason string

// Deny reason constants (typed).
const (
	DenyArchived          DenyReason = "archived"
	DenyInactive          DenyReason = "inactive"
	DenyOutsideWindow     DenyReason = "outside availability window"
	DenyPasswordRequired  DenyReason = "password required"
	DenyPasswordIncorrect DenyReason = "password incorrect"
	DenyNoAccess          DenyReason = "no access"
)

// Decision is the result of an entitlement check.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
}

// Allow returns an allowing decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny returns a denying decision with the given reason.
func Deny(reason DenyReason) Decision { return Decision{Reason: reason} }

// CreatedShare pairs a persisted share with the relative path embedding its
// token.
type CreatedShare struct {
	Share *ContentShare `json:"share"`
	// Path is the relative share path, e.g. "/shared/<token>".
	Path string `json:"path"`
}

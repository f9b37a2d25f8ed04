package contentgate

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for engine persistence.
//
// Implementations must provide strongly consistent reads and serialize
// mutating operations on the same content item. WithTx runs fn atomically:
// every repository call made with the ctx it passes either commits as a unit
// or leaves no trace.
type Repository interface {
	// WithTx executes fn within a single atomic transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Content operations
	CreateContent(ctx context.Context, content *Content) error
	GetContent(ctx context.Context, id uuid.UUID) (*Content, error)
	UpdateContent(ctx context.Context, content *Content) error
	// UpdateContentStatus transitions status only when the stored status still
	// equals expected; otherwise it fails without mutating.
	UpdateContentStatus(ctx context.Context, content *Content, expected ContentStatus) error
	// DeleteContent hard-deletes a content item and cascades to its versions,
	// grants, shares and pricing. Orders and purchase requests survive.
	DeleteContent(ctx context.Context, id uuid.UUID) error
	ListContent(ctx context.Context, filters ContentListFilters) ([]*Content, error)

	// Version operations. CreateVersion assigns the next gapless version
	// number for the content and returns it.
	CreateVersion(ctx context.Context, version *ContentVersion) (int, error)
	GetVersion(ctx context.Context, contentID uuid.UUID, versionNumber int) (*ContentVersion, error)
	// ListVersions returns versions most recent first.
	ListVersions(ctx context.Context, contentID uuid.UUID) ([]*ContentVersion, error)

	// Access grant operations
	CreateGrant(ctx context.Context, grant *AccessGrant) error
	GetGrant(ctx context.Context, id uuid.UUID) (*AccessGrant, error)
	DeleteGrant(ctx context.Context, id uuid.UUID) error
	ListGrantsByContent(ctx context.Context, contentID uuid.UUID) ([]*AccessGrant, error)

	// Pricing operations
	CreatePricing(ctx context.Context, pricing *ContentPricing) error
	GetPricing(ctx context.Context, id uuid.UUID) (*ContentPricing, error)
	// GetActivePricing returns ErrPricingNotFound when the content has no
	// active pricing record.
	GetActivePricing(ctx context.Context, contentID uuid.UUID) (*ContentPricing, error)
	// DeactivatePricing soft-deactivates the active pricing record, if any.
	DeactivatePricing(ctx context.Context, contentID uuid.UUID) error

	// Purchase request operations
	CreatePurchaseRequest(ctx context.Context, request *PurchaseRequest) error
	GetPurchaseRequest(ctx context.Context, id uuid.UUID) (*PurchaseRequest, error)
	// UpdatePurchaseRequest writes only when the stored status still equals
	// expected; otherwise it fails without mutating.
	UpdatePurchaseRequest(ctx context.Context, request *PurchaseRequest, expected PurchaseRequestStatus) error
	// FindActivePurchaseRequest returns the pending or approved-but-unused
	// request for (user, content), or ErrPurchaseRequestNotFound.
	FindActivePurchaseRequest(ctx context.Context, userID, contentID uuid.UUID) (*PurchaseRequest, error)

	// Order operations
	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	// UpdateOrder writes only when the stored status still equals expected;
	// otherwise it fails without mutating.
	UpdateOrder(ctx context.Context, order *Order, expected OrderStatus) error
	// FindCompletedOrder returns the most recently completed order for
	// (user, content), or ErrOrderNotFound.
	FindCompletedOrder(ctx context.Context, userID, contentID uuid.UUID) (*Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)

	// Share operations
	CreateShare(ctx context.Context, share *ContentShare) error
	GetShare(ctx context.Context, id uuid.UUID) (*ContentShare, error)
	GetShareByToken(ctx context.Context, token string) (*ContentShare, error)
	UpdateShare(ctx context.Context, share *ContentShare) error
	DeleteShare(ctx context.Context, id uuid.UUID) error
	ListSharesByContent(ctx context.Context, contentID uuid.UUID) ([]*ContentShare, error)

	// Notification outbox operations
	EnqueueNotification(ctx context.Context, event *NotificationEvent) error
	// ListPendingNotifications returns undispatched events oldest first.
	ListPendingNotifications(ctx context.Context, limit int) ([]*NotificationEvent, error)
	MarkNotificationDispatched(ctx context.Context, id uuid.UUID) error
	MarkNotificationFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// BlobStore is the blob storage collaborator. The engine stores only opaque
// file references, never bytes.
type BlobStore interface {
	// GetDownloadURL returns a fetchable URL for a stored file reference.
	GetDownloadURL(ctx context.Context, fileRef, downloadFilename string) (string, error)

	// GetUploadURL returns a URL a client may upload the referenced file to.
	GetUploadURL(ctx context.Context, fileRef string) (string, error)
}

// Notifier is the notification collaborator (email/SMS transport). Failures
// are retried by the outbox worker and never escalate to the caller of the
// state-changing operation.
type Notifier interface {
	Notify(ctx context.Context, event *NotificationEvent) error
}

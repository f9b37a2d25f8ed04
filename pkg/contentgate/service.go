package contentgate

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service defines the main interface for the content entitlement engine.
//
// Every operation takes the principal supplied by the auth collaborator.
// Capability checks run before any other validation.
type Service interface {
	// Content operations
	CreateContent(ctx context.Context, p Principal, req CreateContentRequest) (*Content, error)
	GetContent(ctx context.Context, p Principal, id uuid.UUID) (*Content, error)
	UpdateContent(ctx context.Context, p Principal, req UpdateContentRequest) (*Content, error)
	DeleteContent(ctx context.Context, p Principal, id uuid.UUID) error
	ListContent(ctx context.Context, p Principal, filters ContentListFilters) ([]*Content, error)

	// Lifecycle transitions
	SubmitForReview(ctx context.Context, p Principal, contentID uuid.UUID) (*Content, error)
	Approve(ctx context.Context, p Principal, contentID uuid.UUID, notes string) (*Content, error)
	RequestChanges(ctx context.Context, p Principal, contentID uuid.UUID, notes string) (*Content, error)
	Reject(ctx context.Context, p Principal, contentID uuid.UUID, notes string) (*Content, error)
	Archive(ctx context.Context, p Principal, contentID uuid.UUID) (*Content, error)
	Unarchive(ctx context.Context, p Principal, contentID uuid.UUID) (*Content, error)

	// Version operations
	ListVersions(ctx context.Context, p Principal, contentID uuid.UUID) ([]*ContentVersion, error)
	GetVersion(ctx context.Context, p Principal, contentID uuid.UUID, versionNumber int) (*ContentVersion, error)
	Revert(ctx context.Context, p Principal, contentID uuid.UUID, targetVersion int) (*Content, error)

	// Access grant operations
	GrantAccess(ctx context.Context, p Principal, req GrantAccessRequest) (*AccessGrant, error)
	RevokeGrant(ctx context.Context, p Principal, grantID uuid.UUID) error
	ListGrants(ctx context.Context, p Principal, contentID uuid.UUID) ([]*AccessGrant, error)

	// Pricing and purchase workflow
	SetPricing(ctx context.Context, p Principal, req SetPricingRequest) (*ContentPricing, error)
	RemovePricing(ctx context.Context, p Principal, contentID uuid.UUID) error
	GetActivePricing(ctx context.Context, contentID uuid.UUID) (*ContentPricing, error)
	CreatePurchaseRequest(ctx context.Context, p Principal, contentID uuid.UUID, message string) (*PurchaseRequest, error)
	ApprovePurchaseRequest(ctx context.Context, p Principal, requestID uuid.UUID, notes string) (*PurchaseRequest, error)
	DenyPurchaseRequest(ctx context.Context, p Principal, requestID uuid.UUID, notes string) (*PurchaseRequest, error)
	CanPurchaseContent(ctx context.Context, p Principal, contentID uuid.UUID) (*PurchaseDecision, error)
	CreateOrder(ctx context.Context, p Principal, req CreateOrderRequest) (*Order, error)
	CompleteOrder(ctx context.Context, p Principal, orderID uuid.UUID) (*Order, error)

	// Sharing subsystem
	CreateShare(ctx context.Context, p Principal, req CreateShareRequest) (*CreatedShare, error)
	ResolveShare(ctx context.Context, token string) (*Content, error)
	DeleteShare(ctx context.Context, p Principal, shareID uuid.UUID) error
	ListShares(ctx context.Context, p Principal, contentID uuid.UUID) ([]*ContentShare, error)

	// Entitlement resolver
	CanView(ctx context.Context, p Principal, contentID uuid.UUID, now time.Time, suppliedPassword string) (Decision, error)

	// GetDownloadURL resolves entitlement and, when allowed, asks the blob
	// storage collaborator for a fetchable URL.
	GetDownloadURL(ctx context.Context, p Principal, contentID uuid.UUID, suppliedPassword string) (string, error)

	// GetUploadURL returns a URL the content's file may be uploaded to.
	// Only principals that may edit the content may request one.
	GetUploadURL(ctx context.Context, p Principal, contentID uuid.UUID) (string, error)
}

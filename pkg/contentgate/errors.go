package contentgate

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrContentNotFound indicates a content item was not found
	ErrContentNotFound = errors.New("content not found")

	// ErrVersionNotFound indicates a content version was not found
	ErrVersionNotFound = errors.New("version not found")

	// ErrGrantNotFound indicates an access grant was not found
	ErrGrantNotFound = errors.New("access grant not found")

	// ErrPricingNotFound indicates no active pricing exists for a content
	ErrPricingNotFound = errors.New("pricing not found")

	// ErrPurchaseRequestNotFound indicates a purchase request was not found
	ErrPurchaseRequestNotFound = errors.New("purchase request not found")

	// ErrOrderNotFound indicates an order was not found
	ErrOrderNotFound = errors.New("order not found")

	// ErrShareNotFound indicates a share token does not exist
	ErrShareNotFound = errors.New("share not found")

	// ErrShareExpired indicates a share token exists but has expired
	ErrShareExpired = errors.New("share expired")

	// ErrValidation indicates required input is missing or malformed
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition indicates a state machine precondition was not met
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrForbidden indicates the caller lacks a required capability
	ErrForbidden = errors.New("forbidden")

	// ErrConflict indicates the operation collides with existing state
	ErrConflict = errors.New("conflict")
)

// Conflict reasons for the purchase workflow. Each wraps ErrConflict with a
// specific, user-facing message distinguishing the blocking condition.
var (
	// ErrRequestPending indicates a pending purchase request already exists
	ErrRequestPending = fmt.Errorf("%w: a purchase request is already pending for this content", ErrConflict)

	// ErrRequestApproved indicates an approved-but-unused request already exists
	ErrRequestApproved = fmt.Errorf("%w: your purchase request is already approved; complete the purchase instead", ErrConflict)

	// ErrAlreadyOwned indicates the user already holds non-expired purchased access
	ErrAlreadyOwned = fmt.Errorf("%w: content already purchased", ErrConflict)

	// ErrActivePricingExists indicates the content already has an active pricing record
	ErrActivePricingExists = fmt.Errorf("%w: content already has active pricing", ErrConflict)
)

// ContentError represents an error related to content operations
type ContentError struct {
	ContentID uuid.UUID
	Op        string
	Err       error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content operation %s failed for content %s: %v", e.Op, e.ContentID, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// PurchaseError represents an error related to the purchase workflow
type PurchaseError struct {
	UserID    uuid.UUID
	ContentID uuid.UUID
	Op        string
	Err       error
}

func (e *PurchaseError) Error() string {
	return fmt.Sprintf("purchase operation %s failed for user %s on content %s: %v", e.Op, e.UserID, e.ContentID, e.Err)
}

func (e *PurchaseError) Unwrap() error {
	return e.Err
}

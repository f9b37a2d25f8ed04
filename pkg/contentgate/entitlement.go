package contentgate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ResolveEntitlement decides whether a principal may view a content item at
// the supplied instant. It is pure given its inputs and must be called fresh
// per request: entitlement state (purchases, grant expiry) changes
// asynchronously and must never be cached beyond a single request.
//
// Deny rules are checked before grant rules so a hard gate like "archived"
// cannot be bypassed by any grant. Callers holding CapViewAllContent skip the
// availability gates (archived, inactive, date window) but not the password
// gate, which layers on top of every other form of access.
func ResolveEntitlement(content *Content, grants []*AccessGrant, order *Order, p Principal, now time.Time, suppliedPassword string) Decision {
	viewAll := p.HasCapability(CapViewAllContent)

	if content.Status == ContentStatusArchived && !viewAll {
		return Deny(DenyArchived)
	}
	if !content.Active && !viewAll {
		return Deny(DenyInactive)
	}
	if !viewAll {
		if content.StartDate != nil && now.Before(*content.StartDate) {
			return Deny(DenyOutsideWindow)
		}
		if content.EndDate != nil && now.After(*content.EndDate) {
			return Deny(DenyOutsideWindow)
		}
	}

	if content.PasswordHash != "" {
		if suppliedPassword == "" {
			return Deny(DenyPasswordRequired)
		}
		if !passwordMatches(content.PasswordHash, suppliedPassword) {
			return Deny(DenyPasswordIncorrect)
		}
	}

	if viewAll {
		return Allow()
	}
	// isPublic is an unconditional override: it short-circuits before any
	// purchase state is consulted, even for priced content.
	if content.IsPublic && content.Status == ContentStatusPublished {
		return Allow()
	}
	for _, grant := range grants {
		if grant.AppliesTo(p, now) {
			return Allow()
		}
	}
	if order != nil && order.UserID == p.UserID && order.GrantsAccessAt(now) {
		return Allow()
	}

	return Deny(DenyNoAccess)
}

// CanView loads the resolver's inputs fresh and evaluates them. Results are
// never cached.
func (s *service) CanView(ctx context.Context, p Principal, contentID uuid.UUID, now time.Time, suppliedPassword string) (Decision, error) {
	content, err := s.repository.GetContent(ctx, contentID)
	if err != nil {
		return Decision{}, err
	}

	grants, err := s.repository.ListGrantsByContent(ctx, contentID)
	if err != nil {
		return Decision{}, err
	}

	var order *Order
	if !p.Anonymous {
		order, err = s.repository.FindCompletedOrder(ctx, p.UserID, contentID)
		if err != nil && !errors.Is(err, ErrOrderNotFound) {
			return Decision{}, err
		}
	}

	return ResolveEntitlement(content, grants, order, p, now, suppliedPassword), nil
}

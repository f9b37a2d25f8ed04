package contentgate

import (
	"fmt"

	"github.com/google/uuid"
)

// Role is the closed set of roles the auth collaborator may supply.
type Role string

// Role constants (typed).
const (
	RoleAdmin    Role = "admin"
	RoleEditor   Role = "editor"
	RoleReviewer Role = "reviewer"
	RoleMember   Role = "member"
	RoleGuest    Role = "guest"
)

// Capability is a single permission flag.
type Capability string

// Capability constants (typed).
const (
	CapEditContent         Capability = "edit_content"
	CapReviewContent       Capability = "review_content"
	CapSubmitForReview     Capability = "submit_for_review"
	CapArchiveContent      Capability = "archive_content"
	CapDeleteContent       Capability = "delete_content"
	CapManageContentAccess Capability = "manage_content_access"
	CapSetContentPricing   Capability = "set_content_pricing"
	CapShareWithThirdParty Capability = "share_with_third_party"
	CapRecommendContent    Capability = "recommend_content"
	CapViewAllContent      Capability = "view_all_content"
)

var allCapabilities = []Capability{
	CapEditContent,
	CapReviewContent,
	CapSubmitForReview,
	CapArchiveContent,
	CapDeleteContent,
	CapManageContentAccess,
	CapSetContentPricing,
	CapShareWithThirdParty,
	CapRecommendContent,
	CapViewAllContent,
}

// CapabilitySet is a set of capability flags.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from the given capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// Has reports whether the set contains the capability.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Union returns a new set holding every capability from s and other.
func (s CapabilitySet) Union(other CapabilitySet) CapabilitySet {
	out := make(CapabilitySet, len(s)+len(other))
	for c := range s {
		out[c] = struct{}{}
	}
	for c := range other {
		out[c] = struct{}{}
	}
	return out
}

// ParseCapability validates a capability name.
func ParseCapability(name string) (Capability, error) {
	for _, c := range allCapabilities {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown capability %q", name)
}

// MustCapability is like ParseCapability but panics on an unknown name.
// Unknown capability names are programmer errors, not runtime conditions.
func MustCapability(name string) Capability {
	c, err := ParseCapability(name)
	if err != nil {
		panic(err)
	}
	return c
}

// roleDefaults maps each role to its default capability set.
var roleDefaults = map[Role]CapabilitySet{
	RoleAdmin: NewCapabilitySet(allCapabilities...),
	RoleEditor: NewCapabilitySet(
		CapEditContent,
		CapSubmitForReview,
		CapShareWithThirdParty,
		CapRecommendContent,
	),
	RoleReviewer: NewCapabilitySet(
		CapReviewContent,
		CapArchiveContent,
		CapRecommendContent,
	),
	RoleMember: NewCapabilitySet(
		CapRecommendContent,
	),
	RoleGuest: NewCapabilitySet(),
}

// RoleCapabilities returns the default capability set for a role. Unknown
// roles get the guest (empty) set.
func RoleCapabilities(role Role) CapabilitySet {
	if caps, ok := roleDefaults[role]; ok {
		return caps
	}
	return NewCapabilitySet()
}

// EffectiveCapabilities is the union of the role's defaults and any explicit
// extra grants. No revocation below the role default is modeled.
func EffectiveCapabilities(role Role, extra ...Capability) CapabilitySet {
	return RoleCapabilities(role).Union(NewCapabilitySet(extra...))
}

// Principal is the identity the auth collaborator supplies with each call.
// The engine trusts it and performs no credential verification.
type Principal struct {
	UserID       uuid.UUID
	Role         Role
	GroupIDs     []uuid.UUID
	Capabilities CapabilitySet
	Anonymous    bool
}

// AnonymousPrincipal returns the principal used for unauthenticated viewers.
func AnonymousPrincipal() Principal {
	return Principal{Role: RoleGuest, Capabilities: NewCapabilitySet(), Anonymous: true}
}

// NewPrincipal builds a principal with effective capabilities derived from
// the role plus any explicitly granted overrides.
func NewPrincipal(userID uuid.UUID, role Role, extra ...Capability) Principal {
	return Principal{
		UserID:       userID,
		Role:         role,
		Capabilities: EffectiveCapabilities(role, extra...),
	}
}

// HasCapability reports whether the principal's effective capabilities
// include the given capability.
func (p Principal) HasCapability(c Capability) bool {
	return p.Capabilities.Has(c)
}

// requireCapability returns ErrForbidden unless the principal holds the
// capability. Capability checks run before any other validation so callers
// cannot probe for resource existence.
func requireCapability(p Principal, c Capability) error {
	if !p.HasCapability(c) {
		return fmt.Errorf("%w: requires %s", ErrForbidden, c)
	}
	return nil
}

package contentgate_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediakit/contentgate/pkg/contentgate"
)

func TestRoleCapabilities(t *testing.T) {
	tests := []struct {
		role  contentgate.Role
		has   []contentgate.Capability
		lacks []contentgate.Capability
	}{
		{
			role: contentgate.RoleAdmin,
			has: []contentgate.Capability{
				contentgate.CapEditContent,
				contentgate.CapReviewContent,
				contentgate.CapDeleteContent,
				contentgate.CapViewAllContent,
			},
		},
		{
			role: contentgate.RoleEditor,
			has: []contentgate.Capability{
				contentgate.CapEditContent,
				contentgate.CapSubmitForReview,
				contentgate.CapShareWithThirdParty,
			},
			lacks: []contentgate.Capability{
				contentgate.CapReviewContent,
				contentgate.CapDeleteContent,
				contentgate.CapViewAllContent,
			},
		},
		{
			role: contentgate.RoleReviewer,
			has: []contentgate.Capability{
				contentgate.CapReviewContent,
				contentgate.CapArchiveContent,
			},
			lacks: []contentgate.Capability{
				contentgate.CapEditContent,
				contentgate.CapSetContentPricing,
			},
		},
		{
			role:  contentgate.RoleMember,
			has:   []contentgate.Capability{contentgate.CapRecommendContent},
			lacks: []contentgate.Capability{contentgate.CapEditContent},
		},
		{
			role:  contentgate.RoleGuest,
			lacks: []contentgate.Capability{contentgate.CapRecommendContent},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			caps := contentgate.RoleCapabilities(tt.role)
			for _, c := range tt.has {
				assert.True(t, caps.Has(c), "%s should have %s", tt.role, c)
			}
			for _, c := range tt.lacks {
				assert.False(t, caps.Has(c), "%s should not have %s", tt.role, c)
			}
		})
	}

	t.Run("unknown role gets empty set", func(t *testing.T) {
		caps := contentgate.RoleCapabilities(contentgate.Role("superuser"))
		assert.Empty(t, caps)
	})
}

func TestEffectiveCapabilities(t *testing.T) {
	caps := contentgate.EffectiveCapabilities(contentgate.RoleMember, contentgate.CapReviewContent)
	assert.True(t, caps.Has(contentgate.CapRecommendContent))
	assert.True(t, caps.Has(contentgate.CapReviewContent))
	assert.False(t, caps.Has(contentgate.CapEditContent))
}

func TestParseCapability(t *testing.T) {
	c, err := contentgate.ParseCapability("edit_content")
	require.NoError(t, err)
	assert.Equal(t, contentgate.CapEditContent, c)

	_, err = contentgate.ParseCapability("fly_to_moon")
	assert.Error(t, err)

	assert.Panics(t, func() { contentgate.MustCapability("fly_to_moon") })
}

func TestPrincipal(t *testing.T) {
	t.Run("anonymous has no capabilities", func(t *testing.T) {
		p := contentgate.AnonymousPrincipal()
		assert.True(t, p.Anonymous)
		assert.False(t, p.HasCapability(contentgate.CapRecommendContent))
	})

	t.Run("extra capabilities extend the role", func(t *testing.T) {
		p := contentgate.NewPrincipal(uuid.New(), contentgate.RoleMember, contentgate.CapShareWithThirdParty)
		assert.True(t, p.HasCapability(contentgate.CapShareWithThirdParty))
		assert.True(t, p.HasCapability(contentgate.CapRecommendContent))
		assert.False(t, p.HasCapability(contentgate.CapEditContent))
	})
}

func TestAccessGrantAppliesTo(t *testing.T) {
	userID := uuid.New()
	groupID := uuid.New()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("user grant matches only that user", func(t *testing.T) {
		g := &contentgate.AccessGrant{UserID: &userID}
		assert.True(t, g.AppliesTo(contentgate.NewPrincipal(userID, contentgate.RoleMember), now))
		assert.False(t, g.AppliesTo(contentgate.NewPrincipal(uuid.New(), contentgate.RoleMember), now))
	})

	t.Run("role grant matches by role", func(t *testing.T) {
		role := contentgate.RoleReviewer
		g := &contentgate.AccessGrant{Role: &role}
		assert.True(t, g.AppliesTo(contentgate.NewPrincipal(uuid.New(), contentgate.RoleReviewer), now))
		assert.False(t, g.AppliesTo(contentgate.NewPrincipal(uuid.New(), contentgate.RoleMember), now))
	})

	t.Run("group grant matches membership", func(t *testing.T) {
		g := &contentgate.AccessGrant{GroupID: &groupID}
		p := contentgate.NewPrincipal(uuid.New(), contentgate.RoleMember)
		p.GroupIDs = []uuid.UUID{uuid.New(), groupID}
		assert.True(t, g.AppliesTo(p, now))

		p.GroupIDs = []uuid.UUID{uuid.New()}
		assert.False(t, g.AppliesTo(p, now))
	})

	t.Run("expired grants never apply", func(t *testing.T) {
		expired := now.Add(-time.Hour)
		g := &contentgate.AccessGrant{UserID: &userID, ExpiresAt: &expired}
		assert.False(t, g.AppliesTo(contentgate.NewPrincipal(userID, contentgate.RoleMember), now))
	})

	t.Run("grants do not apply to anonymous viewers", func(t *testing.T) {
		g := &contentgate.AccessGrant{UserID: &userID}
		assert.False(t, g.AppliesTo(contentgate.AnonymousPrincipal(), now))
	})
}

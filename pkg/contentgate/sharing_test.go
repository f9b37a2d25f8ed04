package contentgate_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediakit/contentgate/pkg/contentgate"
)

func TestCreateShare(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()

	t.Run("editor creates a share", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		created, err := svc.CreateShare(ctx, editor, contentgate.CreateShareRequest{
			ContentID:      content.ID,
			RecipientEmail: "partner@example.com",
			RecipientName:  "Partner",
			Message:        "Early access",
			ExpiresInDays:  7,
		})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(created.Path, contentgate.SharePathPrefix))
		assert.NotEmpty(t, created.Share.AccessToken)
		assert.Equal(t, created.Path, contentgate.SharePathPrefix+created.Share.AccessToken)
		assert.Equal(t, editor.UserID, created.Share.CreatedBy)
		assert.Zero(t, created.Share.ViewCount)
	})

	t.Run("tokens are unique per share", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		a, err := svc.CreateShare(ctx, editor, contentgate.CreateShareRequest{
			ContentID: content.ID, RecipientEmail: "a@example.com", ExpiresInDays: 1,
		})
		require.NoError(t, err)
		b, err := svc.CreateShare(ctx, editor, contentgate.CreateShareRequest{
			ContentID: content.ID, RecipientEmail: "b@example.com", ExpiresInDays: 1,
		})
		require.NoError(t, err)
		assert.NotEqual(t, a.Share.AccessToken, b.Share.AccessToken)
	})

	t.Run("members without grants cannot share", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		_, err := svc.CreateShare(ctx, newMember(), contentgate.CreateShareRequest{
			ContentID:      content.ID,
			RecipientEmail: "partner@example.com",
			ExpiresInDays:  7,
		})
		assert.ErrorIs(t, err, contentgate.ErrForbidden)
	})

	t.Run("a grant with can_share delegates sharing", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		member := newMember()
		_, err := svc.GrantAccess(context.Background(), newAdmin(), contentgate.GrantAccessRequest{
			ContentID: content.ID,
			UserID:    &member.UserID,
			CanShare:  true,
		})
		require.NoError(t, err)

		created, err := svc.CreateShare(ctx, member, contentgate.CreateShareRequest{
			ContentID:      content.ID,
			RecipientEmail: "friend@example.com",
			ExpiresInDays:  3,
		})
		require.NoError(t, err)
		assert.Equal(t, member.UserID, created.Share.CreatedBy)
	})

	t.Run("expiry must be at least one day", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		_, err := svc.CreateShare(ctx, editor, contentgate.CreateShareRequest{
			ContentID:      content.ID,
			RecipientEmail: "partner@example.com",
			ExpiresInDays:  0,
		})
		assert.ErrorIs(t, err, contentgate.ErrValidation)
	})
}

func TestResolveShare(t *testing.T) {
	svc, clk := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()

	t.Run("valid token returns content and counts views", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		created, err := svc.CreateShare(ctx, editor, contentgate.CreateShareRequest{
			ContentID:      content.ID,
			RecipientEmail: "partner@example.com",
			ExpiresInDays:  7,
		})
		require.NoError(t, err)
		token := pathToken(created.Path)

		resolved, err := svc.ResolveShare(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, content.ID, resolved.ID)

		_, err = svc.ResolveShare(ctx, token)
		require.NoError(t, err)

		shares, err := svc.ListShares(ctx, editor, content.ID)
		require.NoError(t, err)
		require.Len(t, shares, 1)
		assert.Equal(t, 2, shares[0].ViewCount)
		require.NotNil(t, shares[0].LastViewedAt)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := svc.ResolveShare(ctx, "no-such-token")
		assert.ErrorIs(t, err, contentgate.ErrShareNotFound)
	})

	t.Run("expired token is rejected without counting", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		created, err := svc.CreateShare(ctx, editor, contentgate.CreateShareRequest{
			ContentID:      content.ID,
			RecipientEmail: "partner@example.com",
			ExpiresInDays:  2,
		})
		require.NoError(t, err)
		token := pathToken(created.Path)

		clk.Advance(48*time.Hour + time.Minute)
		_, err = svc.ResolveShare(ctx, token)
		assert.ErrorIs(t, err, contentgate.ErrShareExpired)

		shares, err := svc.ListShares(ctx, editor, content.ID)
		require.NoError(t, err)
		require.Len(t, shares, 1)
		assert.Zero(t, shares[0].ViewCount)
	})

	t.Run("archived content is rejected without counting", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		publishTestContent(t, svc, editor, content)
		created, err := svc.CreateShare(ctx, editor, contentgate.CreateShareRequest{
			ContentID:      content.ID,
			RecipientEmail: "partner@example.com",
			ExpiresInDays:  7,
		})
		require.NoError(t, err)
		token := pathToken(created.Path)

		_, err = svc.Archive(ctx, newAdmin(), content.ID)
		require.NoError(t, err)

		_, err = svc.ResolveShare(ctx, token)
		assert.ErrorIs(t, err, contentgate.ErrContentNotFound)

		shares, err := svc.ListShares(ctx, editor, content.ID)
		require.NoError(t, err)
		require.Len(t, shares, 1)
		assert.Zero(t, shares[0].ViewCount)
	})

	t.Run("deactivated content is rejected", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		created, err := svc.CreateShare(ctx, editor, contentgate.CreateShareRequest{
			ContentID:      content.ID,
			RecipientEmail: "partner@example.com",
			ExpiresInDays:  7,
		})
		require.NoError(t, err)
		token := pathToken(created.Path)

		inactive := false
		_, err = svc.UpdateContent(ctx, editor, contentgate.UpdateContentRequest{
			ContentID: content.ID,
			Active:    &inactive,
		})
		require.NoError(t, err)

		_, err = svc.ResolveShare(ctx, token)
		assert.ErrorIs(t, err, contentgate.ErrContentNotFound)
	})
}

func TestDeleteShare(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()

	content := createTestContent(t, svc, editor)
	created, err := svc.CreateShare(ctx, editor, contentgate.CreateShareRequest{
		ContentID:      content.ID,
		RecipientEmail: "partner@example.com",
		ExpiresInDays:  7,
	})
	require.NoError(t, err)
	token := pathToken(created.Path)

	t.Run("only the creator may delete", func(t *testing.T) {
		err := svc.DeleteShare(ctx, newAdmin(), created.Share.ID)
		assert.ErrorIs(t, err, contentgate.ErrForbidden)
	})

	t.Run("deleted token stops resolving", func(t *testing.T) {
		require.NoError(t, svc.DeleteShare(ctx, editor, created.Share.ID))
		_, err := svc.ResolveShare(ctx, token)
		assert.ErrorIs(t, err, contentgate.ErrShareNotFound)
	})

	t.Run("unknown share", func(t *testing.T) {
		err := svc.DeleteShare(ctx, editor, uuid.New())
		assert.ErrorIs(t, err, contentgate.ErrShareNotFound)
	})
}

func TestListShares(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()

	content := createTestContent(t, svc, editor)
	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := svc.CreateShare(ctx, editor, contentgate.CreateShareRequest{
			ContentID:      content.ID,
			RecipientEmail: email,
			ExpiresInDays:  7,
		})
		require.NoError(t, err)
	}

	t.Run("creator sees shares", func(t *testing.T) {
		shares, err := svc.ListShares(ctx, editor, content.ID)
		require.NoError(t, err)
		assert.Len(t, shares, 2)
	})

	t.Run("admin sees shares", func(t *testing.T) {
		shares, err := svc.ListShares(ctx, newAdmin(), content.ID)
		require.NoError(t, err)
		assert.Len(t, shares, 2)
	})

	t.Run("other members may not list", func(t *testing.T) {
		_, err := svc.ListShares(ctx, newMember(), content.ID)
		assert.ErrorIs(t, err, contentgate.ErrForbidden)
	})
}

package contentgate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediakit/contentgate/pkg/contentgate"
)

func TestVersionNumbering(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()

	content := createTestContent(t, svc, editor)
	for _, title := range []string{"Second", "Third", "Fourth"} {
		title := title
		_, err := svc.UpdateContent(ctx, editor, contentgate.UpdateContentRequest{
			ContentID: content.ID,
			Title:     &title,
		})
		require.NoError(t, err)
	}

	versions, err := svc.ListVersions(ctx, editor, content.ID)
	require.NoError(t, err)
	require.Len(t, versions, 4)

	// Strictly increasing, gapless, most recent first.
	for i, v := range versions {
		assert.Equal(t, len(versions)-i, v.VersionNumber)
	}
	assert.Equal(t, "Fourth", versions[0].Snapshot.Title)
	assert.Equal(t, "Test Article", versions[3].Snapshot.Title)
}

func TestGetVersion(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()
	content := createTestContent(t, svc, editor)

	t.Run("returns the snapshot", func(t *testing.T) {
		v, err := svc.GetVersion(ctx, editor, content.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, "Test Article", v.Snapshot.Title)
	})

	t.Run("unknown number is not found", func(t *testing.T) {
		_, err := svc.GetVersion(ctx, editor, content.ID, 99)
		assert.ErrorIs(t, err, contentgate.ErrVersionNotFound)
	})

	t.Run("members may not read history", func(t *testing.T) {
		_, err := svc.GetVersion(ctx, newMember(), content.ID, 1)
		assert.ErrorIs(t, err, contentgate.ErrForbidden)
	})

	t.Run("reviewers may read history", func(t *testing.T) {
		_, err := svc.ListVersions(ctx, newReviewer(), content.ID)
		assert.NoError(t, err)
	})
}

func TestRevert(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()

	content := createTestContent(t, svc, editor)
	newTitle := "Renamed"
	newBody := "Rewritten"
	_, err := svc.UpdateContent(ctx, editor, contentgate.UpdateContentRequest{
		ContentID: content.ID,
		Title:     &newTitle,
		Body:      &newBody,
	})
	require.NoError(t, err)

	t.Run("revert restores attributes as a new version", func(t *testing.T) {
		reverted, err := svc.Revert(ctx, editor, content.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, "Test Article", reverted.Title)
		assert.Equal(t, "Some body text", reverted.Body)

		versions, err := svc.ListVersions(ctx, editor, content.ID)
		require.NoError(t, err)
		// History is appended, never truncated.
		require.Len(t, versions, 3)
		assert.Equal(t, 3, versions[0].VersionNumber)
		assert.Equal(t, "Reverted to version 1", versions[0].ChangeDescription)
	})

	t.Run("revert to unknown version fails", func(t *testing.T) {
		_, err := svc.Revert(ctx, editor, content.ID, 42)
		assert.ErrorIs(t, err, contentgate.ErrVersionNotFound)
	})

	t.Run("revert requires edit rights", func(t *testing.T) {
		_, err := svc.Revert(ctx, newMember(), content.ID, 1)
		assert.ErrorIs(t, err, contentgate.ErrForbidden)
	})
}

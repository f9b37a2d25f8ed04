package contentgate_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediakit/contentgate/pkg/contentgate"
	"github.com/mediakit/contentgate/pkg/contentgate/repo/memory"
	memorystorage "github.com/mediakit/contentgate/pkg/contentgate/storage/memory"
)

// testClock is a controllable clock for exercising expiry behavior.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func setupTestService(t *testing.T) (contentgate.Service, *testClock) {
	t.Helper()
	svc, _, clk := setupTestServiceWithRepo(t)
	return svc, clk
}

func setupTestServiceWithRepo(t *testing.T) (contentgate.Service, contentgate.Repository, *testClock) {
	t.Helper()
	repo := memory.New()
	clk := newTestClock()
	svc, err := contentgate.New(
		contentgate.WithRepository(repo),
		contentgate.WithBlobStore(memorystorage.New()),
		contentgate.WithClock(clk.Now),
	)
	require.NoError(t, err)
	require.NotNil(t, svc)
	return svc, repo, clk
}

func newEditor() contentgate.Principal {
	return contentgate.NewPrincipal(uuid.New(), contentgate.RoleEditor)
}

func newReviewer() contentgate.Principal {
	return contentgate.NewPrincipal(uuid.New(), contentgate.RoleReviewer)
}

func newAdmin() contentgate.Principal {
	return contentgate.NewPrincipal(uuid.New(), contentgate.RoleAdmin)
}

func newMember() contentgate.Principal {
	return contentgate.NewPrincipal(uuid.New(), contentgate.RoleMember)
}

func createTestContent(t *testing.T, svc contentgate.Service, p contentgate.Principal) *contentgate.Content {
	t.Helper()
	content, err := svc.CreateContent(context.Background(), p, contentgate.CreateContentRequest{
		Type:  contentgate.ContentTypeArticle,
		Title: "Test Article",
		Body:  "Some body text",
	})
	require.NoError(t, err)
	return content
}

// publishTestContent walks content through submit and approve.
func publishTestContent(t *testing.T, svc contentgate.Service, creator contentgate.Principal, content *contentgate.Content) *contentgate.Content {
	t.Helper()
	ctx := context.Background()
	_, err := svc.SubmitForReview(ctx, creator, content.ID)
	require.NoError(t, err)
	published, err := svc.Approve(ctx, newReviewer(), content.ID, "looks good")
	require.NoError(t, err)
	return published
}

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []contentgate.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []contentgate.Option{},
			expectError: true,
		},
		{
			name: "with repository should succeed",
			options: []contentgate.Option{
				contentgate.WithRepository(memory.New()),
			},
			expectError: false,
		},
		{
			name: "with repository and blob store should succeed",
			options: []contentgate.Option{
				contentgate.WithRepository(memory.New()),
				contentgate.WithBlobStore(memorystorage.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := contentgate.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestCreateContent(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()

	t.Run("creates draft with initial version", func(t *testing.T) {
		content, err := svc.CreateContent(ctx, editor, contentgate.CreateContentRequest{
			Type:     contentgate.ContentTypeVideo,
			Title:    "My Video",
			IsPublic: true,
			Tags:     []string{"intro"},
		})
		require.NoError(t, err)
		assert.Equal(t, contentgate.ContentStatusDraft, content.Status)
		assert.True(t, content.Active)
		assert.Equal(t, editor.UserID, content.CreatorID)

		versions, err := svc.ListVersions(ctx, editor, content.ID)
		require.NoError(t, err)
		require.Len(t, versions, 1)
		assert.Equal(t, 1, versions[0].VersionNumber)
		assert.Equal(t, "Initial version", versions[0].ChangeDescription)
	})

	t.Run("requires edit capability", func(t *testing.T) {
		_, err := svc.CreateContent(ctx, newMember(), contentgate.CreateContentRequest{
			Type:  contentgate.ContentTypeArticle,
			Title: "Nope",
		})
		assert.ErrorIs(t, err, contentgate.ErrForbidden)
	})

	t.Run("rejects missing title", func(t *testing.T) {
		_, err := svc.CreateContent(ctx, editor, contentgate.CreateContentRequest{
			Type: contentgate.ContentTypeArticle,
		})
		assert.ErrorIs(t, err, contentgate.ErrValidation)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := svc.CreateContent(ctx, editor, contentgate.CreateContentRequest{
			Type:  contentgate.ContentType("podcast"),
			Title: "Nope",
		})
		assert.ErrorIs(t, err, contentgate.ErrValidation)
	})

	t.Run("rejects inverted date window", func(t *testing.T) {
		start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
		end := start.Add(-time.Hour)
		_, err := svc.CreateContent(ctx, editor, contentgate.CreateContentRequest{
			Type:      contentgate.ContentTypeArticle,
			Title:     "Backwards",
			StartDate: &start,
			EndDate:   &end,
		})
		assert.ErrorIs(t, err, contentgate.ErrValidation)
	})
}

func TestUpdateContent(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()

	t.Run("patches fields and appends a version", func(t *testing.T) {
		content := createTestContent(t, svc, editor)

		newTitle := "Renamed"
		updated, err := svc.UpdateContent(ctx, editor, contentgate.UpdateContentRequest{
			ContentID:         content.ID,
			Title:             &newTitle,
			ChangeDescription: "Renamed the article",
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Title)
		assert.Equal(t, "Some body text", updated.Body)

		versions, err := svc.ListVersions(ctx, editor, content.ID)
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, 2, versions[0].VersionNumber)
		assert.Equal(t, "Renamed the article", versions[0].ChangeDescription)
	})

	t.Run("creator without edit capability may edit own content", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		creatorOnly := contentgate.Principal{
			UserID:       editor.UserID,
			Role:         contentgate.RoleMember,
			Capabilities: contentgate.RoleCapabilities(contentgate.RoleMember),
		}

		body := "revised"
		_, err := svc.UpdateContent(ctx, creatorOnly, contentgate.UpdateContentRequest{
			ContentID: content.ID,
			Body:      &body,
		})
		assert.NoError(t, err)
	})

	t.Run("non-creator without capability is forbidden", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		body := "revised"
		_, err := svc.UpdateContent(ctx, newMember(), contentgate.UpdateContentRequest{
			ContentID: content.ID,
			Body:      &body,
		})
		assert.ErrorIs(t, err, contentgate.ErrForbidden)
	})

	t.Run("archived content cannot be edited", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		_, err := svc.Archive(ctx, newAdmin(), content.ID)
		require.NoError(t, err)

		body := "revised"
		_, err = svc.UpdateContent(ctx, editor, contentgate.UpdateContentRequest{
			ContentID: content.ID,
			Body:      &body,
		})
		assert.ErrorIs(t, err, contentgate.ErrInvalidTransition)
	})
}

func TestGetContentArchivedVisibility(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()

	content := createTestContent(t, svc, editor)
	_, err := svc.Archive(ctx, newAdmin(), content.ID)
	require.NoError(t, err)

	t.Run("hidden from other users", func(t *testing.T) {
		_, err := svc.GetContent(ctx, newMember(), content.ID)
		assert.ErrorIs(t, err, contentgate.ErrContentNotFound)
	})

	t.Run("visible to creator", func(t *testing.T) {
		got, err := svc.GetContent(ctx, editor, content.ID)
		require.NoError(t, err)
		assert.Equal(t, contentgate.ContentStatusArchived, got.Status)
	})

	t.Run("visible to view-all callers", func(t *testing.T) {
		got, err := svc.GetContent(ctx, newAdmin(), content.ID)
		require.NoError(t, err)
		assert.Equal(t, contentgate.ContentStatusArchived, got.Status)
	})
}

func TestDeleteContent(t *testing.T) {
	svc, repo, _ := setupTestServiceWithRepo(t)
	ctx := context.Background()
	editor := newEditor()
	admin := newAdmin()

	t.Run("requires delete capability", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		err := svc.DeleteContent(ctx, editor, content.ID)
		assert.ErrorIs(t, err, contentgate.ErrForbidden)
	})

	t.Run("cascades to versions, grants and shares", func(t *testing.T) {
		content := createTestContent(t, svc, editor)

		_, err := svc.GrantAccess(ctx, admin, contentgate.GrantAccessRequest{
			ContentID: content.ID,
			UserID:    &editor.UserID,
		})
		require.NoError(t, err)
		created, err := svc.CreateShare(ctx, admin, contentgate.CreateShareRequest{
			ContentID:      content.ID,
			RecipientEmail: "partner@example.com",
			ExpiresInDays:  7,
		})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteContent(ctx, admin, content.ID))

		_, err = svc.GetContent(ctx, admin, content.ID)
		assert.ErrorIs(t, err, contentgate.ErrContentNotFound)
		versions, err := repo.ListVersions(ctx, content.ID)
		require.NoError(t, err)
		assert.Empty(t, versions)
		_, err = svc.ResolveShare(ctx, pathToken(created.Path))
		assert.ErrorIs(t, err, contentgate.ErrShareNotFound)
	})
}

// pathToken extracts the token from a share path like "/shared/<token>".
func pathToken(path string) string {
	return path[len(contentgate.SharePathPrefix):]
}

func TestListContent(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()

	article := createTestContent(t, svc, editor)
	video, err := svc.CreateContent(ctx, editor, contentgate.CreateContentRequest{
		Type:  contentgate.ContentTypeVideo,
		Title: "A Video",
		Tags:  []string{"promo"},
	})
	require.NoError(t, err)
	_, err = svc.Archive(ctx, newAdmin(), article.ID)
	require.NoError(t, err)

	t.Run("excludes archived by default", func(t *testing.T) {
		contents, err := svc.ListContent(ctx, newMember(), contentgate.ContentListFilters{})
		require.NoError(t, err)
		require.Len(t, contents, 1)
		assert.Equal(t, video.ID, contents[0].ID)
	})

	t.Run("include_archived is ignored without view-all", func(t *testing.T) {
		contents, err := svc.ListContent(ctx, newMember(), contentgate.ContentListFilters{IncludeArchived: true})
		require.NoError(t, err)
		assert.Len(t, contents, 1)
	})

	t.Run("include_archived honoured for view-all", func(t *testing.T) {
		contents, err := svc.ListContent(ctx, newAdmin(), contentgate.ContentListFilters{IncludeArchived: true})
		require.NoError(t, err)
		assert.Len(t, contents, 2)
	})

	t.Run("filters by tag", func(t *testing.T) {
		tag := "promo"
		contents, err := svc.ListContent(ctx, newMember(), contentgate.ContentListFilters{Tag: &tag})
		require.NoError(t, err)
		require.Len(t, contents, 1)
		assert.Equal(t, video.ID, contents[0].ID)
	})
}

func TestGetDownloadURL(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()

	content, err := svc.CreateContent(ctx, editor, contentgate.CreateContentRequest{
		Type:     contentgate.ContentTypeDocument,
		Title:    "Spec Sheet",
		FileRef:  "docs/spec-sheet.pdf",
		IsPublic: true,
	})
	require.NoError(t, err)
	publishTestContent(t, svc, editor, content)

	t.Run("entitled caller gets a url", func(t *testing.T) {
		url, err := svc.GetDownloadURL(ctx, newMember(), content.ID, "")
		require.NoError(t, err)
		assert.Contains(t, url, "spec-sheet.pdf")
	})

	t.Run("denied caller gets forbidden", func(t *testing.T) {
		private := createTestContent(t, svc, editor)
		publishTestContent(t, svc, editor, private)
		_, err := svc.GetDownloadURL(ctx, newMember(), private.ID, "")
		assert.ErrorIs(t, err, contentgate.ErrForbidden)
	})
}

func TestGetUploadURL(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()

	content, err := svc.CreateContent(ctx, editor, contentgate.CreateContentRequest{
		Type:    contentgate.ContentTypeDocument,
		Title:   "Spec Sheet",
		FileRef: "docs/spec-sheet.pdf",
	})
	require.NoError(t, err)

	t.Run("creator gets a url", func(t *testing.T) {
		url, err := svc.GetUploadURL(ctx, editor, content.ID)
		require.NoError(t, err)
		assert.Contains(t, url, "spec-sheet.pdf")
	})

	t.Run("non-editor is forbidden", func(t *testing.T) {
		_, err := svc.GetUploadURL(ctx, newMember(), content.ID)
		assert.ErrorIs(t, err, contentgate.ErrForbidden)
	})

	t.Run("content without a file reference is rejected", func(t *testing.T) {
		bare := createTestContent(t, svc, editor)
		_, err := svc.GetUploadURL(ctx, editor, bare.ID)
		assert.ErrorIs(t, err, contentgate.ErrValidation)
	})
}

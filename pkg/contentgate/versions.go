package contentgate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// snapshotOf captures the content-describing fields of a content item.
func snapshotOf(content *Content) ContentSnapshot {
	return ContentSnapshot{
		Title:       content.Title,
		Description: content.Description,
		Type:        content.Type,
		Body:        content.Body,
		FileRef:     content.FileRef,
		ExternalURL: content.ExternalURL,
		Tags:        append([]string(nil), content.Tags...),
		Status:      content.Status,
		IsPublic:    content.IsPublic,
		Active:      content.Active,
		StartDate:   content.StartDate,
		EndDate:     content.EndDate,
	}
}

// applySnapshot copies a snapshot's fields onto the live content record.
func applySnapshot(content *Content, snap ContentSnapshot) {
	content.Title = snap.Title
	content.Description = snap.Description
	content.Type = snap.Type
	content.Body = snap.Body
	content.FileRef = snap.FileRef
	content.ExternalURL = snap.ExternalURL
	content.Tags = append([]string(nil), snap.Tags...)
	content.Status = snap.Status
	content.IsPublic = snap.IsPublic
	content.Active = snap.Active
	content.StartDate = snap.StartDate
	content.EndDate = snap.EndDate
}

// createVersion appends an immutable snapshot of the content. The repository
// assigns the next gapless version number.
func (s *service) createVersion(ctx context.Context, content *Content, actor uuid.UUID, changeDescription string) (int, error) {
	version := &ContentVersion{
		ID:                uuid.New(),
		ContentID:         content.ID,
		Snapshot:          snapshotOf(content),
		ChangeDescription: changeDescription,
		CreatedBy:         actor,
		CreatedAt:         s.now(),
	}
	return s.repository.CreateVersion(ctx, version)
}

func (s *service) ListVersions(ctx context.Context, p Principal, contentID uuid.UUID) ([]*ContentVersion, error) {
	content, err := s.repository.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if !canEditContent(p, content) && !p.HasCapability(CapReviewContent) && !p.HasCapability(CapViewAllContent) {
		return nil, fmt.Errorf("%w: requires %s", ErrForbidden, CapEditContent)
	}
	return s.repository.ListVersions(ctx, contentID)
}

func (s *service) GetVersion(ctx context.Context, p Principal, contentID uuid.UUID, versionNumber int) (*ContentVersion, error) {
	content, err := s.repository.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if !canEditContent(p, content) && !p.HasCapability(CapReviewContent) && !p.HasCapability(CapViewAllContent) {
		return nil, fmt.Errorf("%w: requires %s", ErrForbidden, CapEditContent)
	}
	return s.repository.GetVersion(ctx, contentID, versionNumber)
}

// Revert loads the target snapshot, applies its fields onto the live content
// record, and appends a new version. History is never truncated.
func (s *service) Revert(ctx context.Context, p Principal, contentID uuid.UUID, targetVersion int) (*Content, error) {
	content, err := s.repository.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if !canEditContent(p, content) {
		return nil, fmt.Errorf("%w: requires %s", ErrForbidden, CapEditContent)
	}

	target, err := s.repository.GetVersion(ctx, contentID, targetVersion)
	if err != nil {
		return nil, err
	}

	applySnapshot(content, target.Snapshot)
	content.UpdatedAt = s.now()

	err = s.repository.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repository.UpdateContent(ctx, content); err != nil {
			return err
		}
		_, err := s.createVersion(ctx, content, p.UserID, fmt.Sprintf("Reverted to version %d", targetVersion))
		return err
	})
	if err != nil {
		return nil, &ContentError{ContentID: content.ID, Op: "revert", Err: err}
	}

	return content, nil
}

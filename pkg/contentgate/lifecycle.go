package contentgate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// canSubmitForReview checks whether content can be submitted for review based
// on its current status.
func canSubmitForReview(status ContentStatus) error {
	switch status {
	case ContentStatusDraft, ContentStatusRejected, ContentStatusChangesRequested:
		return nil
	case ContentStatusReview:
		return fmt.Errorf("%w: content is already in review (status: %s)", ErrInvalidTransition, status)
	case ContentStatusPublished:
		return fmt.Errorf("%w: content is already published (status: %s)", ErrInvalidTransition, status)
	case ContentStatusArchived:
		return fmt.Errorf("%w: archived content cannot be submitted (status: %s)", ErrInvalidTransition, status)
	default:
		return fmt.Errorf("%w: unknown status %s", ErrInvalidTransition, status)
	}
}

// canReview checks whether a review decision (approve, reject, request
// changes) is allowed for the current status.
func canReview(status ContentStatus) error {
	if status == ContentStatusReview {
		return nil
	}
	return fmt.Errorf("%w: content is not in review (status: %s)", ErrInvalidTransition, status)
}

// canArchive checks whether content can be archived.
func canArchive(status ContentStatus) error {
	if status == ContentStatusArchived {
		return fmt.Errorf("%w: content is already archived", ErrInvalidTransition)
	}
	return nil
}

// canUnarchive checks whether content can be unarchived.
func canUnarchive(status ContentStatus) error {
	if status != ContentStatusArchived {
		return fmt.Errorf("%w: content is not archived (status: %s)", ErrInvalidTransition, status)
	}
	return nil
}

// transition persists a status change guarded by the expected source status,
// so a concurrent transition fails cleanly instead of overwriting.
func (s *service) transition(ctx context.Context, content *Content, from ContentStatus, event *NotificationEvent, withVersion bool, actor uuid.UUID, changeDescription string) error {
	content.UpdatedAt = s.now()
	return s.repository.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repository.UpdateContentStatus(ctx, content, from); err != nil {
			return err
		}
		if withVersion {
			if _, err := s.createVersion(ctx, content, actor, changeDescription); err != nil {
				return err
			}
		}
		if event != nil {
			event.ID = uuid.New()
			event.CreatedAt = s.now()
			if err := s.repository.EnqueueNotification(ctx, event); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) SubmitForReview(ctx context.Context, p Principal, contentID uuid.UUID) (*Content, error) {
	if err := requireCapability(p, CapSubmitForReview); err != nil {
		return nil, err
	}
	content, err := s.repository.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if err := canSubmitForReview(content.Status); err != nil {
		return nil, err
	}

	from := content.Status
	now := s.now()
	content.Status = ContentStatusReview
	content.SubmittedForReviewAt = &now

	event := &NotificationEvent{
		Kind:      NotificationContentSubmitted,
		ContentID: content.ID,
		UserID:    &p.UserID,
	}
	if err := s.transition(ctx, content, from, event, false, p.UserID, ""); err != nil {
		return nil, &ContentError{ContentID: content.ID, Op: "submit_for_review", Err: err}
	}
	return content, nil
}

func (s *service) Approve(ctx context.Context, p Principal, contentID uuid.UUID, notes string) (*Content, error) {
	if err := requireCapability(p, CapReviewContent); err != nil {
		return nil, err
	}
	content, err := s.repository.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if err := canReview(content.Status); err != nil {
		return nil, err
	}

	from := content.Status
	now := s.now()
	content.Status = ContentStatusPublished
	content.ReviewNotes = notes
	content.ReviewedBy = &p.UserID
	content.ReviewedAt = &now

	event := &NotificationEvent{
		Kind:      NotificationContentApproved,
		ContentID: content.ID,
		UserID:    &content.CreatorID,
		Note:      notes,
	}
	if err := s.transition(ctx, content, from, event, true, p.UserID, "Approved and published"); err != nil {
		return nil, &ContentError{ContentID: content.ID, Op: "approve", Err: err}
	}
	return content, nil
}

// reviewDecision covers reject and request-changes, which share validation:
// both require non-empty notes since notes are the only channel back to the
// submitter.
func (s *service) reviewDecision(ctx context.Context, p Principal, contentID uuid.UUID, notes string, to ContentStatus, kind NotificationKind, op string) (*Content, error) {
	if err := requireCapability(p, CapReviewContent); err != nil {
		return nil, err
	}
	if strings.TrimSpace(notes) == "" {
		return nil, fmt.Errorf("%w: review notes are required", ErrValidation)
	}
	content, err := s.repository.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if err := canReview(content.Status); err != nil {
		return nil, err
	}

	from := content.Status
	now := s.now()
	content.Status = to
	content.ReviewNotes = notes
	content.ReviewedBy = &p.UserID
	content.ReviewedAt = &now

	event := &NotificationEvent{
		Kind:      kind,
		ContentID: content.ID,
		UserID:    &content.CreatorID,
		Note:      notes,
	}
	if err := s.transition(ctx, content, from, event, false, p.UserID, ""); err != nil {
		return nil, &ContentError{ContentID: content.ID, Op: op, Err: err}
	}
	return content, nil
}

func (s *service) RequestChanges(ctx context.Context, p Principal, contentID uuid.UUID, notes string) (*Content, error) {
	return s.reviewDecision(ctx, p, contentID, notes, ContentStatusChangesRequested, NotificationChangesRequested, "request_changes")
}

func (s *service) Reject(ctx context.Context, p Principal, contentID uuid.UUID, notes string) (*Content, error) {
	return s.reviewDecision(ctx, p, contentID, notes, ContentStatusRejected, NotificationContentRejected, "reject")
}

func (s *service) Archive(ctx context.Context, p Principal, contentID uuid.UUID) (*Content, error) {
	if err := requireCapability(p, CapArchiveContent); err != nil {
		return nil, err
	}
	content, err := s.repository.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if err := canArchive(content.Status); err != nil {
		return nil, err
	}

	from := content.Status
	content.Status = ContentStatusArchived
	if err := s.transition(ctx, content, from, nil, false, p.UserID, ""); err != nil {
		return nil, &ContentError{ContentID: content.ID, Op: "archive", Err: err}
	}
	return content, nil
}

func (s *service) Unarchive(ctx context.Context, p Principal, contentID uuid.UUID) (*Content, error) {
	if err := requireCapability(p, CapArchiveContent); err != nil {
		return nil, err
	}
	content, err := s.repository.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if err := canUnarchive(content.Status); err != nil {
		return nil, err
	}

	from := content.Status
	content.Status = ContentStatusPublished
	if err := s.transition(ctx, content, from, nil, false, p.UserID, ""); err != nil {
		return nil, &ContentError{ContentID: content.ID, Op: "unarchive", Err: err}
	}
	return content, nil
}

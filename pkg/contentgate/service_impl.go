package contentgate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mediakit/contentgate/pkg/utils"
)

// service implements the Service interface
type service struct {
	repository Repository
	blobStore  BlobStore
	now        func() time.Time
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the blob storage collaborator
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithClock overrides the time source. Tests use this to pin "now".
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		now: func() time.Time { return time.Now().UTC() },
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	return s, nil
}

func validContentType(t ContentType) bool {
	switch t {
	case ContentTypeVideo, ContentTypeArticle, ContentTypeDocument, ContentTypeAudio:
		return true
	}
	return false
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func passwordMatches(hash, supplied string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(supplied)) == nil
}

// canEditContent reports whether the principal may mutate the given content.
// The creator may always edit their own items.
func canEditContent(p Principal, content *Content) bool {
	return p.HasCapability(CapEditContent) || (!p.Anonymous && p.UserID == content.CreatorID)
}

// Content operations

func (s *service) CreateContent(ctx context.Context, p Principal, req CreateContentRequest) (*Content, error) {
	if err := requireCapability(p, CapEditContent); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !validContentType(req.Type) {
		return nil, fmt.Errorf("%w: unknown content type %q", ErrValidation, req.Type)
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return nil, fmt.Errorf("%w: end date precedes start date", ErrValidation)
	}

	now := s.now()
	content := &Content{
		ID:          uuid.New(),
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Body:        req.Body,
		FileRef:     req.FileRef,
		ExternalURL: req.ExternalURL,
		Tags:        req.Tags,
		Status:      ContentStatusDraft,
		IsPublic:    req.IsPublic,
		Active:      true,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CreatorID:   p.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Password != "" {
		hash, err := hashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		content.PasswordHash = hash
	}

	err := s.repository.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repository.CreateContent(ctx, content); err != nil {
			return err
		}
		_, err := s.createVersion(ctx, content, p.UserID, "Initial version")
		return err
	})
	if err != nil {
		return nil, &ContentError{ContentID: content.ID, Op: "create", Err: err}
	}

	return content, nil
}

func (s *service) GetContent(ctx context.Context, p Principal, id uuid.UUID) (*Content, error) {
	content, err := s.repository.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	// Archived content is visible only to its creator and view-all callers.
	if content.Status == ContentStatusArchived &&
		!p.HasCapability(CapViewAllContent) &&
		(p.Anonymous || p.UserID != content.CreatorID) {
		return nil, ErrContentNotFound
	}
	return content, nil
}

func (s *service) UpdateContent(ctx context.Context, p Principal, req UpdateContentRequest) (*Content, error) {
	content, err := s.repository.GetContent(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}
	if !canEditContent(p, content) {
		return nil, fmt.Errorf("%w: requires %s", ErrForbidden, CapEditContent)
	}
	if content.Status == ContentStatusArchived {
		return nil, fmt.Errorf("%w: archived content cannot be edited", ErrInvalidTransition)
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrValidation)
		}
		content.Title = *req.Title
	}
	if req.Description != nil {
		content.Description = *req.Description
	}
	if req.Body != nil {
		content.Body = *req.Body
	}
	if req.FileRef != nil {
		content.FileRef = *req.FileRef
	}
	if req.ExternalURL != nil {
		content.ExternalURL = *req.ExternalURL
	}
	if req.Tags != nil {
		content.Tags = req.Tags
	}
	if req.IsPublic != nil {
		content.IsPublic = *req.IsPublic
	}
	if req.Active != nil {
		content.Active = *req.Active
	}
	if req.ClearDates {
		content.StartDate = nil
		content.EndDate = nil
	}
	if req.StartDate != nil {
		content.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		content.EndDate = req.EndDate
	}
	if content.StartDate != nil && content.EndDate != nil && content.EndDate.Before(*content.StartDate) {
		return nil, fmt.Errorf("%w: end date precedes start date", ErrValidation)
	}
	if req.ClearPassword {
		content.PasswordHash = ""
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		content.PasswordHash = hash
	}
	content.UpdatedAt = s.now()

	description := req.ChangeDescription
	if description == "" {
		description = "Updated content"
	}

	err = s.repository.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repository.UpdateContent(ctx, content); err != nil {
			return err
		}
		_, err := s.createVersion(ctx, content, p.UserID, description)
		return err
	})
	if err != nil {
		return nil, &ContentError{ContentID: content.ID, Op: "update", Err: err}
	}

	return content, nil
}

func (s *service) DeleteContent(ctx context.Context, p Principal, id uuid.UUID) error {
	if err := requireCapability(p, CapDeleteContent); err != nil {
		return err
	}
	if _, err := s.repository.GetContent(ctx, id); err != nil {
		return err
	}
	// Cascades to versions, grants, shares and pricing. Orders and purchase
	// requests are kept as the audit trail.
	if err := s.repository.DeleteContent(ctx, id); err != nil {
		return &ContentError{ContentID: id, Op: "delete", Err: err}
	}
	return nil
}

func (s *service) ListContent(ctx context.Context, p Principal, filters ContentListFilters) ([]*Content, error) {
	if !p.HasCapability(CapViewAllContent) {
		filters.IncludeArchived = false
	}
	return s.repository.ListContent(ctx, filters)
}

func (s *service) GetDownloadURL(ctx context.Context, p Principal, contentID uuid.UUID, suppliedPassword string) (string, error) {
	decision, err := s.CanView(ctx, p, contentID, s.now(), suppliedPassword)
	if err != nil {
		return "", err
	}
	if !decision.Allowed {
		return "", fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}
	content, err := s.repository.GetContent(ctx, contentID)
	if err != nil {
		return "", err
	}
	if content.FileRef == "" {
		return "", fmt.Errorf("%w: content has no stored file", ErrValidation)
	}
	if s.blobStore == nil {
		return "", fmt.Errorf("no blob store configured")
	}
	return s.blobStore.GetDownloadURL(ctx, content.FileRef, utils.SanitizeFilename(content.Title))
}

func (s *service) GetUploadURL(ctx context.Context, p Principal, contentID uuid.UUID) (string, error) {
	content, err := s.repository.GetContent(ctx, contentID)
	if err != nil {
		return "", err
	}
	if !canEditContent(p, content) {
		return "", fmt.Errorf("%w: requires %s", ErrForbidden, CapEditContent)
	}
	if content.FileRef == "" {
		return "", fmt.Errorf("%w: content has no file reference", ErrValidation)
	}
	if s.blobStore == nil {
		return "", fmt.Errorf("no blob store configured")
	}
	return s.blobStore.GetUploadURL(ctx, content.FileRef)
}

package contentgate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

func (s *service) GrantAccess(ctx context.Context, p Principal, req GrantAccessRequest) (*AccessGrant, error) {
	if err := requireCapability(p, CapManageContentAccess); err != nil {
		return nil, err
	}

	set := 0
	for _, ok := range []bool{req.UserID != nil, req.Role != nil, req.GroupID != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: exactly one of user, role or group must be set", ErrValidation)
	}

	if _, err := s.repository.GetContent(ctx, req.ContentID); err != nil {
		return nil, err
	}

	grant := &AccessGrant{
		ID:        uuid.New(),
		ContentID: req.ContentID,
		UserID:    req.UserID,
		Role:      req.Role,
		GroupID:   req.GroupID,
		CanShare:  req.CanShare,
		ExpiresAt: req.ExpiresAt,
		CreatedBy: p.UserID,
		CreatedAt: s.now(),
	}
	if err := s.repository.CreateGrant(ctx, grant); err != nil {
		return nil, &ContentError{ContentID: req.ContentID, Op: "grant_access", Err: err}
	}
	return grant, nil
}

func (s *service) RevokeGrant(ctx context.Context, p Principal, grantID uuid.UUID) error {
	if err := requireCapability(p, CapManageContentAccess); err != nil {
		return err
	}
	if _, err := s.repository.GetGrant(ctx, grantID); err != nil {
		return err
	}
	return s.repository.DeleteGrant(ctx, grantID)
}

func (s *service) ListGrants(ctx context.Context, p Principal, contentID uuid.UUID) ([]*AccessGrant, error) {
	if err := requireCapability(p, CapManageContentAccess); err != nil {
		return nil, err
	}
	if _, err := s.repository.GetContent(ctx, contentID); err != nil {
		return nil, err
	}
	return s.repository.ListGrantsByContent(ctx, contentID)
}

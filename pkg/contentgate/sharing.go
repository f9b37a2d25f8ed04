package contentgate

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const shareTokenBytes = 32

// SharePathPrefix is the relative path prefix under which share tokens are
// redeemed.
const SharePathPrefix = "/shared/"

// newShareToken returns a cryptographically unguessable opaque token.
func newShareToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// canShareContent reports whether the principal may create third-party
// shares for the content: either through the capability or through a direct
// grant carrying CanShare.
func (s *service) canShareContent(ctx context.Context, p Principal, content *Content) (bool, error) {
	if p.HasCapability(CapShareWithThirdParty) {
		return true, nil
	}
	if p.Anonymous {
		return false, nil
	}
	grants, err := s.repository.ListGrantsByContent(ctx, content.ID)
	if err != nil {
		return false, err
	}
	now := s.now()
	for _, g := range grants {
		if g.CanShare && g.AppliesTo(p, now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) CreateShare(ctx context.Context, p Principal, req CreateShareRequest) (*CreatedShare, error) {
	content, err := s.repository.GetContent(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}
	ok, err := s.canShareContent(ctx, p, content)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: requires %s", ErrForbidden, CapShareWithThirdParty)
	}
	if req.ExpiresInDays < 1 {
		return nil, fmt.Errorf("%w: expiry must be at least one day", ErrValidation)
	}

	token, err := newShareToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	share := &ContentShare{
		ID:             uuid.New(),
		ContentID:      req.ContentID,
		AccessToken:    token,
		RecipientEmail: req.RecipientEmail,
		RecipientName:  req.RecipientName,
		Message:        req.Message,
		ExpiresAt:      now.Add(time.Duration(req.ExpiresInDays) * 24 * time.Hour),
		CreatedBy:      p.UserID,
		CreatedAt:      now,
	}

	err = s.repository.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repository.CreateShare(ctx, share); err != nil {
			return err
		}
		return s.repository.EnqueueNotification(ctx, &NotificationEvent{
			ID:        uuid.New(),
			Kind:      NotificationShareCreated,
			ContentID: req.ContentID,
			UserID:    &p.UserID,
			Note:      req.RecipientEmail,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, &ContentError{ContentID: req.ContentID, Op: "create_share", Err: err}
	}

	return &CreatedShare{Share: share, Path: SharePathPrefix + token}, nil
}

// ResolveShare redeems a share token. The token is the sole credential: no
// user session is required or created. Expired tokens and tokens for content
// that has since been archived or deactivated are rejected without touching
// the view counters.
func (s *service) ResolveShare(ctx context.Context, token string) (*Content, error) {
	share, err := s.repository.GetShareByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if now.After(share.ExpiresAt) {
		return nil, ErrShareExpired
	}

	content, err := s.repository.GetContent(ctx, share.ContentID)
	if err != nil {
		return nil, err
	}
	if content.Status == ContentStatusArchived || !content.Active {
		return nil, ErrContentNotFound
	}

	share.ViewCount++
	share.LastViewedAt = &now
	if err := s.repository.UpdateShare(ctx, share); err != nil {
		return nil, err
	}
	return content, nil
}

// DeleteShare removes a share. Only the creator may delete; the token becomes
// permanently invalid.
func (s *service) DeleteShare(ctx context.Context, p Principal, shareID uuid.UUID) error {
	share, err := s.repository.GetShare(ctx, shareID)
	if err != nil {
		return err
	}
	if p.Anonymous || share.CreatedBy != p.UserID {
		return fmt.Errorf("%w: only the share creator may delete it", ErrForbidden)
	}
	return s.repository.DeleteShare(ctx, shareID)
}

func (s *service) ListShares(ctx context.Context, p Principal, contentID uuid.UUID) ([]*ContentShare, error) {
	content, err := s.repository.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if !p.HasCapability(CapViewAllContent) && (p.Anonymous || content.CreatorID != p.UserID) {
		return nil, fmt.Errorf("%w: requires %s", ErrForbidden, CapViewAllContent)
	}
	return s.repository.ListSharesByContent(ctx, contentID)
}

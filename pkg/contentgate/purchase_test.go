package contentgate_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediakit/contentgate/pkg/contentgate"
	"github.com/mediakit/contentgate/pkg/contentgate/repo/memory"
)

func TestSetPricing(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()
	admin := newAdmin()

	t.Run("requires pricing capability", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		_, err := svc.SetPricing(ctx, editor, contentgate.SetPricingRequest{
			ContentID: content.ID,
			Price:     1000,
			Currency:  "USD",
		})
		assert.ErrorIs(t, err, contentgate.ErrForbidden)
	})

	t.Run("validates price and currency", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		_, err := svc.SetPricing(ctx, admin, contentgate.SetPricingRequest{
			ContentID: content.ID,
			Price:     0,
			Currency:  "USD",
		})
		assert.ErrorIs(t, err, contentgate.ErrValidation)

		_, err = svc.SetPricing(ctx, admin, contentgate.SetPricingRequest{
			ContentID: content.ID,
			Price:     1000,
			Currency:  "dollars",
		})
		assert.ErrorIs(t, err, contentgate.ErrValidation)
	})

	t.Run("at most one active pricing", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		first, err := svc.SetPricing(ctx, admin, contentgate.SetPricingRequest{
			ContentID: content.ID,
			Price:     1000,
			Currency:  "usd",
		})
		require.NoError(t, err)
		assert.Equal(t, "USD", first.Currency)

		_, err = svc.SetPricing(ctx, admin, contentgate.SetPricingRequest{
			ContentID: content.ID,
			Price:     2000,
			Currency:  "USD",
		})
		assert.ErrorIs(t, err, contentgate.ErrActivePricingExists)

		second, err := svc.SetPricing(ctx, admin, contentgate.SetPricingRequest{
			ContentID: content.ID,
			Price:     2000,
			Currency:  "USD",
			Replace:   true,
		})
		require.NoError(t, err)

		active, err := svc.GetActivePricing(ctx, content.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, active.ID)
		assert.Equal(t, int64(2000), active.Price)
	})

	t.Run("remove pricing deactivates", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		_, err := svc.SetPricing(ctx, admin, contentgate.SetPricingRequest{
			ContentID: content.ID,
			Price:     500,
			Currency:  "EUR",
		})
		require.NoError(t, err)

		require.NoError(t, svc.RemovePricing(ctx, admin, content.ID))
		_, err = svc.GetActivePricing(ctx, content.ID)
		assert.ErrorIs(t, err, contentgate.ErrPricingNotFound)
	})
}

// priceContent publishes content and sets an active pricing on it.
func priceContent(t *testing.T, svc contentgate.Service, editor contentgate.Principal, duration *time.Duration) *contentgate.Content {
	t.Helper()
	content := createTestContent(t, svc, editor)
	publishTestContent(t, svc, editor, content)
	_, err := svc.SetPricing(context.Background(), newAdmin(), contentgate.SetPricingRequest{
		ContentID:      content.ID,
		Price:          2500,
		Currency:       "USD",
		AccessDuration: duration,
	})
	require.NoError(t, err)
	return content
}

func TestCreatePurchaseRequest(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()
	member := newMember()

	t.Run("anonymous viewers cannot request", func(t *testing.T) {
		content := priceContent(t, svc, editor, nil)
		_, err := svc.CreatePurchaseRequest(ctx, contentgate.AnonymousPrincipal(), content.ID, "")
		assert.ErrorIs(t, err, contentgate.ErrForbidden)
	})

	t.Run("unpriced content is not for sale", func(t *testing.T) {
		content := createTestContent(t, svc, editor)
		_, err := svc.CreatePurchaseRequest(ctx, member, content.ID, "")
		assert.ErrorIs(t, err, contentgate.ErrPricingNotFound)
	})

	t.Run("at most one active request per user and content", func(t *testing.T) {
		content := priceContent(t, svc, editor, nil)
		req, err := svc.CreatePurchaseRequest(ctx, member, content.ID, "please")
		require.NoError(t, err)
		assert.Equal(t, contentgate.PurchaseRequestStatusPending, req.Status)

		_, err = svc.CreatePurchaseRequest(ctx, member, content.ID, "again")
		assert.ErrorIs(t, err, contentgate.ErrRequestPending)

		_, err = svc.ApprovePurchaseRequest(ctx, newAdmin(), req.ID, "ok")
		require.NoError(t, err)

		// Approved but unused still blocks a new request.
		_, err = svc.CreatePurchaseRequest(ctx, member, content.ID, "once more")
		assert.ErrorIs(t, err, contentgate.ErrRequestApproved)
	})

	t.Run("denied request allows a fresh one", func(t *testing.T) {
		content := priceContent(t, svc, editor, nil)
		req, err := svc.CreatePurchaseRequest(ctx, member, content.ID, "")
		require.NoError(t, err)
		_, err = svc.DenyPurchaseRequest(ctx, newAdmin(), req.ID, "not eligible")
		require.NoError(t, err)

		again, err := svc.CreatePurchaseRequest(ctx, member, content.ID, "")
		require.NoError(t, err)
		assert.NotEqual(t, req.ID, again.ID)
	})
}

func TestReviewPurchaseRequest(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()
	member := newMember()

	t.Run("content creator may review", func(t *testing.T) {
		content := priceContent(t, svc, editor, nil)
		req, err := svc.CreatePurchaseRequest(ctx, member, content.ID, "")
		require.NoError(t, err)

		approved, err := svc.ApprovePurchaseRequest(ctx, editor, req.ID, "welcome")
		require.NoError(t, err)
		assert.Equal(t, contentgate.PurchaseRequestStatusApproved, approved.Status)
		require.NotNil(t, approved.ReviewedBy)
		assert.Equal(t, editor.UserID, *approved.ReviewedBy)
	})

	t.Run("unrelated members may not review", func(t *testing.T) {
		content := priceContent(t, svc, editor, nil)
		req, err := svc.CreatePurchaseRequest(ctx, member, content.ID, "")
		require.NoError(t, err)

		_, err = svc.ApprovePurchaseRequest(ctx, newMember(), req.ID, "")
		assert.ErrorIs(t, err, contentgate.ErrForbidden)
	})

	t.Run("only pending requests can be reviewed", func(t *testing.T) {
		content := priceContent(t, svc, editor, nil)
		req, err := svc.CreatePurchaseRequest(ctx, member, content.ID, "")
		require.NoError(t, err)
		_, err = svc.DenyPurchaseRequest(ctx, newAdmin(), req.ID, "no")
		require.NoError(t, err)

		_, err = svc.ApprovePurchaseRequest(ctx, newAdmin(), req.ID, "changed my mind")
		assert.ErrorIs(t, err, contentgate.ErrInvalidTransition)
	})
}

func TestPurchaseDecision(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()
	member := newMember()

	content := priceContent(t, svc, editor, nil)

	t.Run("request required before purchase", func(t *testing.T) {
		d, err := svc.CanPurchaseContent(ctx, member, content.ID)
		require.NoError(t, err)
		assert.False(t, d.CanPurchase)
		assert.Equal(t, "purchase request required", d.Reason)
	})

	req, err := svc.CreatePurchaseRequest(ctx, member, content.ID, "")
	require.NoError(t, err)

	t.Run("pending request blocks purchase", func(t *testing.T) {
		d, err := svc.CanPurchaseContent(ctx, member, content.ID)
		require.NoError(t, err)
		assert.False(t, d.CanPurchase)
		assert.Equal(t, "purchase request pending approval", d.Reason)
	})

	t.Run("approved request unlocks purchase", func(t *testing.T) {
		_, err := svc.ApprovePurchaseRequest(ctx, newAdmin(), req.ID, "")
		require.NoError(t, err)

		d, err := svc.CanPurchaseContent(ctx, member, content.ID)
		require.NoError(t, err)
		assert.True(t, d.CanPurchase)
	})
}

func TestOrderLifecycle(t *testing.T) {
	svc, clk := setupTestService(t)
	ctx := context.Background()
	editor := newEditor()
	admin := newAdmin()

	t.Run("order requires an approved request", func(t *testing.T) {
		member := newMember()
		content := priceContent(t, svc, editor, nil)
		_, err := svc.CreateOrder(ctx, member, contentgate.CreateOrderRequest{ContentID: content.ID})
		assert.ErrorIs(t, err, contentgate.ErrConflict)
	})

	t.Run("completing an order grants entitlement", func(t *testing.T) {
		member := newMember()
		content := priceContent(t, svc, editor, nil)
		req, err := svc.CreatePurchaseRequest(ctx, member, content.ID, "")
		require.NoError(t, err)
		_, err = svc.ApprovePurchaseRequest(ctx, admin, req.ID, "")
		require.NoError(t, err)

		order, err := svc.CreateOrder(ctx, member, contentgate.CreateOrderRequest{ContentID: content.ID})
		require.NoError(t, err)
		assert.Equal(t, contentgate.OrderStatusPending, order.Status)
		assert.Equal(t, int64(2500), order.Amount)
		require.NotNil(t, order.PurchaseRequestID)
		assert.Equal(t, req.ID, *order.PurchaseRequestID)

		// Pending order does not grant access yet.
		d, err := svc.CanView(ctx, member, content.ID, clk.Now(), "")
		require.NoError(t, err)
		assert.False(t, d.Allowed)

		completed, err := svc.CompleteOrder(ctx, member, order.ID)
		require.NoError(t, err)
		assert.Equal(t, contentgate.OrderStatusCompleted, completed.Status)
		assert.Nil(t, completed.AccessExpiresAt)

		d, err = svc.CanView(ctx, member, content.ID, clk.Now(), "")
		require.NoError(t, err)
		assert.True(t, d.Allowed)

		// Owned content blocks further requests.
		_, err = svc.CreatePurchaseRequest(ctx, member, content.ID, "")
		assert.ErrorIs(t, err, contentgate.ErrAlreadyOwned)
	})

	t.Run("order snapshots the price at creation", func(t *testing.T) {
		member := newMember()
		content := priceContent(t, svc, editor, nil)
		req, err := svc.CreatePurchaseRequest(ctx, member, content.ID, "")
		require.NoError(t, err)
		_, err = svc.ApprovePurchaseRequest(ctx, admin, req.ID, "")
		require.NoError(t, err)
		order, err := svc.CreateOrder(ctx, member, contentgate.CreateOrderRequest{ContentID: content.ID})
		require.NoError(t, err)

		// Reprice after the order exists.
		_, err = svc.SetPricing(ctx, admin, contentgate.SetPricingRequest{
			ContentID: content.ID,
			Price:     9900,
			Currency:  "USD",
			Replace:   true,
		})
		require.NoError(t, err)

		completed, err := svc.CompleteOrder(ctx, member, order.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2500), completed.Amount)
	})

	t.Run("time limited access expires", func(t *testing.T) {
		member := newMember()
		duration := 30 * 24 * time.Hour
		content := priceContent(t, svc, editor, &duration)
		req, err := svc.CreatePurchaseRequest(ctx, member, content.ID, "")
		require.NoError(t, err)
		_, err = svc.ApprovePurchaseRequest(ctx, admin, req.ID, "")
		require.NoError(t, err)
		order, err := svc.CreateOrder(ctx, member, contentgate.CreateOrderRequest{ContentID: content.ID})
		require.NoError(t, err)
		completed, err := svc.CompleteOrder(ctx, member, order.ID)
		require.NoError(t, err)
		require.NotNil(t, completed.AccessExpiresAt)

		d, err := svc.CanView(ctx, member, content.ID, clk.Now(), "")
		require.NoError(t, err)
		assert.True(t, d.Allowed)

		d, err = svc.CanView(ctx, member, content.ID, clk.Now().Add(31*24*time.Hour), "")
		require.NoError(t, err)
		assert.False(t, d.Allowed)

		// Expired access allows requesting again.
		clk.Advance(31 * 24 * time.Hour)
		_, err = svc.CreatePurchaseRequest(ctx, member, content.ID, "renew")
		require.NoError(t, err)
	})

	t.Run("only the buyer may complete", func(t *testing.T) {
		member := newMember()
		content := priceContent(t, svc, editor, nil)
		req, err := svc.CreatePurchaseRequest(ctx, member, content.ID, "")
		require.NoError(t, err)
		_, err = svc.ApprovePurchaseRequest(ctx, admin, req.ID, "")
		require.NoError(t, err)
		order, err := svc.CreateOrder(ctx, member, contentgate.CreateOrderRequest{ContentID: content.ID})
		require.NoError(t, err)

		_, err = svc.CompleteOrder(ctx, newMember(), order.ID)
		assert.ErrorIs(t, err, contentgate.ErrForbidden)

		_, err = svc.CompleteOrder(ctx, member, order.ID)
		require.NoError(t, err)
		_, err = svc.CompleteOrder(ctx, member, order.ID)
		assert.ErrorIs(t, err, contentgate.ErrInvalidTransition)
	})
}

// readGate holds the first n callers until all of them have arrived, so
// each one observes the same stored state before any of them writes.
type readGate struct {
	needed  int32
	arrived int32
	release chan struct{}
}

func newReadGate(n int) *readGate {
	return &readGate{needed: int32(n), release: make(chan struct{})}
}

func (g *readGate) wait() {
	if atomic.AddInt32(&g.arrived, 1) == g.needed {
		close(g.release)
	}
	<-g.release
}

// gatedRepository pauses request and order reads at the configured gates.
type gatedRepository struct {
	contentgate.Repository
	requestGate *readGate
	orderGate   *readGate
}

func (r *gatedRepository) GetPurchaseRequest(ctx context.Context, id uuid.UUID) (*contentgate.PurchaseRequest, error) {
	request, err := r.Repository.GetPurchaseRequest(ctx, id)
	if r.requestGate != nil {
		r.requestGate.wait()
	}
	return request, err
}

func (r *gatedRepository) GetOrder(ctx context.Context, id uuid.UUID) (*contentgate.Order, error) {
	order, err := r.Repository.GetOrder(ctx, id)
	if r.orderGate != nil {
		r.orderGate.wait()
	}
	return order, err
}

func TestReviewPurchaseRequestConcurrent(t *testing.T) {
	gated := &gatedRepository{Repository: memory.New(), requestGate: newReadGate(2)}
	clk := newTestClock()
	svc, err := contentgate.New(
		contentgate.WithRepository(gated),
		contentgate.WithClock(clk.Now),
	)
	require.NoError(t, err)

	ctx := context.Background()
	editor := newEditor()
	admin := newAdmin()
	member := newMember()

	content := priceContent(t, svc, editor, nil)
	request, err := svc.CreatePurchaseRequest(ctx, member, content.ID, "please")
	require.NoError(t, err)

	// Both reviewers read the request while it is still pending, then race
	// to decide it. Exactly one decision may stick.
	approveErr := make(chan error, 1)
	denyErr := make(chan error, 1)
	go func() {
		_, err := svc.ApprovePurchaseRequest(ctx, admin, request.ID, "yes")
		approveErr <- err
	}()
	go func() {
		_, err := svc.DenyPurchaseRequest(ctx, admin, request.ID, "no")
		denyErr <- err
	}()
	aErr, dErr := <-approveErr, <-denyErr

	require.True(t, (aErr == nil) != (dErr == nil),
		"exactly one decision must succeed, got approve=%v deny=%v", aErr, dErr)

	stored, err := gated.Repository.GetPurchaseRequest(ctx, request.ID)
	require.NoError(t, err)
	if aErr == nil {
		assert.ErrorIs(t, dErr, contentgate.ErrConflict)
		assert.Equal(t, contentgate.PurchaseRequestStatusApproved, stored.Status)
		assert.Equal(t, "yes", stored.AdminNotes)
	} else {
		assert.ErrorIs(t, aErr, contentgate.ErrConflict)
		assert.Equal(t, contentgate.PurchaseRequestStatusDenied, stored.Status)
		assert.Equal(t, "no", stored.AdminNotes)
	}
}

func TestCompleteOrderConcurrent(t *testing.T) {
	gated := &gatedRepository{Repository: memory.New(), orderGate: newReadGate(2)}
	clk := newTestClock()
	svc, err := contentgate.New(
		contentgate.WithRepository(gated),
		contentgate.WithClock(clk.Now),
	)
	require.NoError(t, err)

	ctx := context.Background()
	editor := newEditor()
	admin := newAdmin()
	member := newMember()

	content := priceContent(t, svc, editor, nil)
	request, err := svc.CreatePurchaseRequest(ctx, member, content.ID, "")
	require.NoError(t, err)
	_, err = svc.ApprovePurchaseRequest(ctx, admin, request.ID, "")
	require.NoError(t, err)
	order, err := svc.CreateOrder(ctx, member, contentgate.CreateOrderRequest{ContentID: content.ID})
	require.NoError(t, err)

	// The buyer and an admin both read the pending order, then race to
	// complete it.
	errs := make(chan error, 2)
	go func() {
		_, err := svc.CompleteOrder(ctx, member, order.ID)
		errs <- err
	}()
	go func() {
		_, err := svc.CompleteOrder(ctx, admin, order.ID)
		errs <- err
	}()
	first, second := <-errs, <-errs

	require.True(t, (first == nil) != (second == nil),
		"exactly one completion must succeed, got %v and %v", first, second)
	loser := first
	if loser == nil {
		loser = second
	}
	assert.ErrorIs(t, loser, contentgate.ErrConflict)

	stored, err := gated.Repository.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, contentgate.OrderStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
}

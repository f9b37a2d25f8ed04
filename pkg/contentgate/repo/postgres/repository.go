package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mediakit/contentgate/pkg/contentgate"
)

// DBTX is an interface that allows us to use either a connection pool or a
// transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type txContextKey struct{}

// Repository implements contentgate.Repository using PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewWithPool creates a new PostgreSQL repository with a connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// db returns the transaction bound to ctx by WithTx, or the pool.
func (r *Repository) db(ctx context.Context) DBTX {
	if tx, ok := ctx.Value(txContextKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.pool
}

// WithTx executes fn within a single transaction. Repository calls made with
// the ctx passed to fn run on that transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txContextKey{}).(pgx.Tx); ok {
		// Already inside a transaction; join it.
		return fn(ctx)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txContextKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Error handling helper
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "pricing") {
				return contentgate.ErrActivePricingExists
			}
			if strings.Contains(pgErr.ConstraintName, "purchase_request") {
				return contentgate.ErrRequestPending
			}
			return fmt.Errorf("%w: duplicate entry", contentgate.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Duration columns are stored as milliseconds.

func durationToMillis(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	ms := d.Milliseconds()
	return &ms
}

func millisToDuration(ms *int64) *time.Duration {
	if ms == nil {
		return nil
	}
	d := time.Duration(*ms) * time.Millisecond
	return &d
}

// Content operations

const contentColumns = `
	id, type, title, description, body, file_ref, external_url, tags,
	status, is_public, active, start_date, end_date, password_hash,
	creator_id, review_notes, reviewed_by, reviewed_at,
	submitted_for_review_at, created_at, updated_at`

func scanContent(row pgx.Row) (*contentgate.Content, error) {
	var content contentgate.Content
	err := row.Scan(
		&content.ID, &content.Type, &content.Title, &content.Description,
		&content.Body, &content.FileRef, &content.ExternalURL, &content.Tags,
		&content.Status, &content.IsPublic, &content.Active,
		&content.StartDate, &content.EndDate, &content.PasswordHash,
		&content.CreatorID, &content.ReviewNotes, &content.ReviewedBy,
		&content.ReviewedAt, &content.SubmittedForReviewAt,
		&content.CreatedAt, &content.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentgate.ErrContentNotFound
		}
		return nil, err
	}
	return &content, nil
}

func (r *Repository) CreateContent(ctx context.Context, content *contentgate.Content) error {
	query := `
		INSERT INTO content (
			id, type, title, description, body, file_ref, external_url, tags,
			status, is_public, active, start_date, end_date, password_hash,
			creator_id, review_notes, reviewed_by, reviewed_at,
			submitted_for_review_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21)`

	_, err := r.db(ctx).Exec(ctx, query,
		content.ID, content.Type, content.Title, content.Description,
		content.Body, content.FileRef, content.ExternalURL, content.Tags,
		content.Status, content.IsPublic, content.Active,
		content.StartDate, content.EndDate, content.PasswordHash,
		content.CreatorID, content.ReviewNotes, content.ReviewedBy,
		content.ReviewedAt, content.SubmittedForReviewAt,
		content.CreatedAt, content.UpdatedAt)
	if err != nil {
		return handlePostgresError("create content", err)
	}
	return nil
}

func (r *Repository) GetContent(ctx context.Context, id uuid.UUID) (*contentgate.Content, error) {
	query := `SELECT` + contentColumns + ` FROM content WHERE id = $1`
	return scanContent(r.db(ctx).QueryRow(ctx, query, id))
}

func (r *Repository) UpdateContent(ctx context.Context, content *contentgate.Content) error {
	query := `
		UPDATE content SET
			type = $2, title = $3, description = $4, body = $5, file_ref = $6,
			external_url = $7, tags = $8, status = $9, is_public = $10,
			active = $11, start_date = $12, end_date = $13, password_hash = $14,
			review_notes = $15, reviewed_by = $16, reviewed_at = $17,
			submitted_for_review_at = $18, updated_at = $19
		WHERE id = $1`

	tag, err := r.db(ctx).Exec(ctx, query,
		content.ID, content.Type, content.Title, content.Description,
		content.Body, content.FileRef, content.ExternalURL, content.Tags,
		content.Status, content.IsPublic, content.Active,
		content.StartDate, content.EndDate, content.PasswordHash,
		content.ReviewNotes, content.ReviewedBy, content.ReviewedAt,
		content.SubmittedForReviewAt, content.UpdatedAt)
	if err != nil {
		return handlePostgresError("update content", err)
	}
	if tag.RowsAffected() == 0 {
		return contentgate.ErrContentNotFound
	}
	return nil
}

func (r *Repository) UpdateContentStatus(ctx context.Context, content *contentgate.Content, expected contentgate.ContentStatus) error {
	query := `
		UPDATE content SET
			status = $3, review_notes = $4, reviewed_by = $5, reviewed_at = $6,
			submitted_for_review_at = $7, updated_at = $8
		WHERE id = $1 AND status = $2`

	tag, err := r.db(ctx).Exec(ctx, query,
		content.ID, expected, content.Status,
		content.ReviewNotes, content.ReviewedBy, content.ReviewedAt,
		content.SubmittedForReviewAt, content.UpdatedAt)
	if err != nil {
		return handlePostgresError("update content status", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or a concurrent transition won.
		if _, getErr := r.GetContent(ctx, content.ID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: content status changed concurrently, expected %s",
			contentgate.ErrConflict, expected)
	}
	return nil
}

func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) error {
	// Hard delete; content_version, access_grant, content_share and
	// content_pricing rows cascade via foreign keys. Orders and purchase
	// requests are kept as the audit trail.
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM content WHERE id = $1`, id)
	if err != nil {
		return handlePostgresError("delete content", err)
	}
	if tag.RowsAffected() == 0 {
		return contentgate.ErrContentNotFound
	}
	return nil
}

func (r *Repository) ListContent(ctx context.Context, filters contentgate.ContentListFilters) ([]*contentgate.Content, error) {
	query := `SELECT` + contentColumns + ` FROM content WHERE 1=1`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filters.IncludeArchived {
		query += ` AND status <> ` + arg(contentgate.ContentStatusArchived)
	}
	if filters.CreatorID != nil {
		query += ` AND creator_id = ` + arg(*filters.CreatorID)
	}
	if filters.Status != nil {
		query += ` AND status = ` + arg(*filters.Status)
	}
	if len(filters.Statuses) > 0 {
		query += ` AND status = ANY(` + arg(filters.Statuses) + `)`
	}
	if filters.Type != nil {
		query += ` AND type = ` + arg(*filters.Type)
	}
	if filters.Tag != nil {
		query += ` AND ` + arg(*filters.Tag) + ` = ANY(tags)`
	}
	query += ` ORDER BY created_at DESC`
	if filters.Limit != nil && *filters.Limit > 0 {
		query += ` LIMIT ` + arg(*filters.Limit)
	}
	if filters.Offset != nil && *filters.Offset > 0 {
		query += ` OFFSET ` + arg(*filters.Offset)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, handlePostgresError("list content", err)
	}
	defer rows.Close()

	var contents []*contentgate.Content
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}
	return contents, rows.Err()
}

// Version operations

const versionColumns = `
	id, content_id, version_number, title, description, type, body, file_ref,
	external_url, tags, status, is_public, active, start_date, end_date,
	change_description, created_by, created_at`

func scanVersion(row pgx.Row) (*contentgate.ContentVersion, error) {
	var v contentgate.ContentVersion
	err := row.Scan(
		&v.ID, &v.ContentID, &v.VersionNumber,
		&v.Snapshot.Title, &v.Snapshot.Description, &v.Snapshot.Type,
		&v.Snapshot.Body, &v.Snapshot.FileRef, &v.Snapshot.ExternalURL,
		&v.Snapshot.Tags, &v.Snapshot.Status, &v.Snapshot.IsPublic,
		&v.Snapshot.Active, &v.Snapshot.StartDate, &v.Snapshot.EndDate,
		&v.ChangeDescription, &v.CreatedBy, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentgate.ErrVersionNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *Repository) CreateVersion(ctx context.Context, version *contentgate.ContentVersion) (int, error) {
	// The subselect keeps version numbers gapless and strictly increasing per
	// content; the unique constraint on (content_id, version_number) rejects
	// concurrent writers.
	query := `
		INSERT INTO content_version (
			id, content_id, version_number, title, description, type, body,
			file_ref, external_url, tags, status, is_public, active,
			start_date, end_date, change_description, created_by, created_at
		) VALUES ($1, $2,
			(SELECT COALESCE(MAX(version_number), 0) + 1
			   FROM content_version WHERE content_id = $2),
			$3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING version_number`

	s := version.Snapshot
	err := r.db(ctx).QueryRow(ctx, query,
		version.ID, version.ContentID,
		s.Title, s.Description, s.Type, s.Body, s.FileRef, s.ExternalURL,
		s.Tags, s.Status, s.IsPublic, s.Active, s.StartDate, s.EndDate,
		version.ChangeDescription, version.CreatedBy, version.CreatedAt,
	).Scan(&version.VersionNumber)
	if err != nil {
		return 0, handlePostgresError("create version", err)
	}
	return version.VersionNumber, nil
}

func (r *Repository) GetVersion(ctx context.Context, contentID uuid.UUID, versionNumber int) (*contentgate.ContentVersion, error) {
	query := `SELECT` + versionColumns + `
		FROM content_version WHERE content_id = $1 AND version_number = $2`
	return scanVersion(r.db(ctx).QueryRow(ctx, query, contentID, versionNumber))
}

func (r *Repository) ListVersions(ctx context.Context, contentID uuid.UUID) ([]*contentgate.ContentVersion, error) {
	query := `SELECT` + versionColumns + `
		FROM content_version WHERE content_id = $1 ORDER BY version_number DESC`

	rows, err := r.db(ctx).Query(ctx, query, contentID)
	if err != nil {
		return nil, handlePostgresError("list versions", err)
	}
	defer rows.Close()

	var versions []*contentgate.ContentVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Access grant operations

const grantColumns = `
	id, content_id, user_id, role, group_id, can_share, expires_at,
	created_by, created_at`

func scanGrant(row pgx.Row) (*contentgate.AccessGrant, error) {
	var g contentgate.AccessGrant
	err := row.Scan(
		&g.ID, &g.ContentID, &g.UserID, &g.Role, &g.GroupID,
		&g.CanShare, &g.ExpiresAt, &g.CreatedBy, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentgate.ErrGrantNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *Repository) CreateGrant(ctx context.Context, grant *contentgate.AccessGrant) error {
	query := `
		INSERT INTO access_grant (
			id, content_id, user_id, role, group_id, can_share, expires_at,
			created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db(ctx).Exec(ctx, query,
		grant.ID, grant.ContentID, grant.UserID, grant.Role, grant.GroupID,
		grant.CanShare, grant.ExpiresAt, grant.CreatedBy, grant.CreatedAt)
	if err != nil {
		return handlePostgresError("create grant", err)
	}
	return nil
}

func (r *Repository) GetGrant(ctx context.Context, id uuid.UUID) (*contentgate.AccessGrant, error) {
	query := `SELECT` + grantColumns + ` FROM access_grant WHERE id = $1`
	return scanGrant(r.db(ctx).QueryRow(ctx, query, id))
}

func (r *Repository) DeleteGrant(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM access_grant WHERE id = $1`, id)
	if err != nil {
		return handlePostgresError("delete grant", err)
	}
	if tag.RowsAffected() == 0 {
		return contentgate.ErrGrantNotFound
	}
	return nil
}

func (r *Repository) ListGrantsByContent(ctx context.Context, contentID uuid.UUID) ([]*contentgate.AccessGrant, error) {
	query := `SELECT` + grantColumns + `
		FROM access_grant WHERE content_id = $1 ORDER BY created_at DESC`

	rows, err := r.db(ctx).Query(ctx, query, contentID)
	if err != nil {
		return nil, handlePostgresError("list grants", err)
	}
	defer rows.Close()

	var grants []*contentgate.AccessGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// Pricing operations

const pricingColumns = `
	id, content_id, price, currency, access_duration_ms, active,
	created_by, created_at, deactivated_at`

func scanPricing(row pgx.Row) (*contentgate.ContentPricing, error) {
	var p contentgate.ContentPricing
	var ms *int64
	err := row.Scan(
		&p.ID, &p.ContentID, &p.Price, &p.Currency, &ms, &p.Active,
		&p.CreatedBy, &p.CreatedAt, &p.DeactivatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentgate.ErrPricingNotFound
		}
		return nil, err
	}
	p.AccessDuration = millisToDuration(ms)
	return &p, nil
}

func (r *Repository) CreatePricing(ctx context.Context, pricing *contentgate.ContentPricing) error {
	query := `
		INSERT INTO content_pricing (
			id, content_id, price, currency, access_duration_ms, active,
			created_by, created_at, deactivated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db(ctx).Exec(ctx, query,
		pricing.ID, pricing.ContentID, pricing.Price, pricing.Currency,
		durationToMillis(pricing.AccessDuration), pricing.Active,
		pricing.CreatedBy, pricing.CreatedAt, pricing.DeactivatedAt)
	if err != nil {
		return handlePostgresError("create pricing", err)
	}
	return nil
}

func (r *Repository) GetPricing(ctx context.Context, id uuid.UUID) (*contentgate.ContentPricing, error) {
	query := `SELECT` + pricingColumns + ` FROM content_pricing WHERE id = $1`
	return scanPricing(r.db(ctx).QueryRow(ctx, query, id))
}

func (r *Repository) GetActivePricing(ctx context.Context, contentID uuid.UUID) (*contentgate.ContentPricing, error) {
	query := `SELECT` + pricingColumns + `
		FROM content_pricing WHERE content_id = $1 AND active`
	return scanPricing(r.db(ctx).QueryRow(ctx, query, contentID))
}

func (r *Repository) DeactivatePricing(ctx context.Context, contentID uuid.UUID) error {
	query := `
		UPDATE content_pricing SET active = FALSE, deactivated_at = NOW()
		WHERE content_id = $1 AND active`

	tag, err := r.db(ctx).Exec(ctx, query, contentID)
	if err != nil {
		return handlePostgresError("deactivate pricing", err)
	}
	if tag.RowsAffected() == 0 {
		return contentgate.ErrPricingNotFound
	}
	return nil
}

// Purchase request operations

const requestColumns = `
	id, user_id, content_id, status, message, admin_notes, reviewed_by,
	reviewed_at, purchase_completed_at, created_at`

func scanRequest(row pgx.Row) (*contentgate.PurchaseRequest, error) {
	var req contentgate.PurchaseRequest
	err := row.Scan(
		&req.ID, &req.UserID, &req.ContentID, &req.Status, &req.Message,
		&req.AdminNotes, &req.ReviewedBy, &req.ReviewedAt,
		&req.PurchaseCompletedAt, &req.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentgate.ErrPurchaseRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *Repository) CreatePurchaseRequest(ctx context.Context, request *contentgate.PurchaseRequest) error {
	query := `
		INSERT INTO purchase_request (
			id, user_id, content_id, status, message, admin_notes,
			reviewed_by, reviewed_at, purchase_completed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db(ctx).Exec(ctx, query,
		request.ID, request.UserID, request.ContentID, request.Status,
		request.Message, request.AdminNotes, request.ReviewedBy,
		request.ReviewedAt, request.PurchaseCompletedAt, request.CreatedAt)
	if err != nil {
		return handlePostgresError("create purchase request", err)
	}
	return nil
}

func (r *Repository) GetPurchaseRequest(ctx context.Context, id uuid.UUID) (*contentgate.PurchaseRequest, error) {
	query := `SELECT` + requestColumns + ` FROM purchase_request WHERE id = $1`
	return scanRequest(r.db(ctx).QueryRow(ctx, query, id))
}

func (r *Repository) UpdatePurchaseRequest(ctx context.Context, request *contentgate.PurchaseRequest, expected contentgate.PurchaseRequestStatus) error {
	query := `
		UPDATE purchase_request SET
			status = $3, message = $4, admin_notes = $5, reviewed_by = $6,
			reviewed_at = $7, purchase_completed_at = $8
		WHERE id = $1 AND status = $2`

	tag, err := r.db(ctx).Exec(ctx, query,
		request.ID, expected, request.Status, request.Message, request.AdminNotes,
		request.ReviewedBy, request.ReviewedAt, request.PurchaseCompletedAt)
	if err != nil {
		return handlePostgresError("update purchase request", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or a concurrent transition won.
		if _, getErr := r.GetPurchaseRequest(ctx, request.ID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: purchase request status changed concurrently, expected %s",
			contentgate.ErrConflict, expected)
	}
	return nil
}

func (r *Repository) FindActivePurchaseRequest(ctx context.Context, userID, contentID uuid.UUID) (*contentgate.PurchaseRequest, error) {
	query := `SELECT` + requestColumns + `
		FROM purchase_request
		WHERE user_id = $1 AND content_id = $2
		  AND (status = 'pending'
		       OR (status = 'approved' AND purchase_completed_at IS NULL))
		ORDER BY created_at DESC
		LIMIT 1`
	return scanRequest(r.db(ctx).QueryRow(ctx, query, userID, contentID))
}

// Order operations

const orderColumns = `
	id, user_id, content_id, pricing_id, purchase_request_id, status, amount,
	currency, access_duration_ms, created_at, completed_at, access_expires_at`

func scanOrder(row pgx.Row) (*contentgate.Order, error) {
	var o contentgate.Order
	var ms *int64
	err := row.Scan(
		&o.ID, &o.UserID, &o.ContentID, &o.PricingID, &o.PurchaseRequestID,
		&o.Status, &o.Amount, &o.Currency, &ms,
		&o.CreatedAt, &o.CompletedAt, &o.AccessExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentgate.ErrOrderNotFound
		}
		return nil, err
	}
	o.AccessDuration = millisToDuration(ms)
	return &o, nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *contentgate.Order) error {
	query := `
		INSERT INTO content_order (
			id, user_id, content_id, pricing_id, purchase_request_id, status,
			amount, currency, access_duration_ms, created_at, completed_at,
			access_expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db(ctx).Exec(ctx, query,
		order.ID, order.UserID, order.ContentID, order.PricingID,
		order.PurchaseRequestID, order.Status, order.Amount, order.Currency,
		durationToMillis(order.AccessDuration), order.CreatedAt,
		order.CompletedAt, order.AccessExpiresAt)
	if err != nil {
		return handlePostgresError("create order", err)
	}
	return nil
}

func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (*contentgate.Order, error) {
	query := `SELECT` + orderColumns + ` FROM content_order WHERE id = $1`
	return scanOrder(r.db(ctx).QueryRow(ctx, query, id))
}

func (r *Repository) UpdateOrder(ctx context.Context, order *contentgate.Order, expected contentgate.OrderStatus) error {
	query := `
		UPDATE content_order SET
			status = $3, completed_at = $4, access_expires_at = $5
		WHERE id = $1 AND status = $2`

	tag, err := r.db(ctx).Exec(ctx, query,
		order.ID, expected, order.Status, order.CompletedAt, order.AccessExpiresAt)
	if err != nil {
		return handlePostgresError("update order", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or a concurrent transition won.
		if _, getErr := r.GetOrder(ctx, order.ID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: order status changed concurrently, expected %s",
			contentgate.ErrConflict, expected)
	}
	return nil
}

func (r *Repository) FindCompletedOrder(ctx context.Context, userID, contentID uuid.UUID) (*contentgate.Order, error) {
	query := `SELECT` + orderColumns + `
		FROM content_order
		WHERE user_id = $1 AND content_id = $2 AND status = 'completed'
		ORDER BY completed_at DESC
		LIMIT 1`
	return scanOrder(r.db(ctx).QueryRow(ctx, query, userID, contentID))
}

func (r *Repository) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*contentgate.Order, error) {
	query := `SELECT` + orderColumns + `
		FROM content_order WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, handlePostgresError("list orders", err)
	}
	defer rows.Close()

	var orders []*contentgate.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Share operations

const shareColumns = `
	id, content_id, access_token, recipient_email, recipient_name, message,
	expires_at, view_count, last_viewed_at, created_by, created_at`

func scanShare(row pgx.Row) (*contentgate.ContentShare, error) {
	var s contentgate.ContentShare
	err := row.Scan(
		&s.ID, &s.ContentID, &s.AccessToken, &s.RecipientEmail,
		&s.RecipientName, &s.Message, &s.ExpiresAt, &s.ViewCount,
		&s.LastViewedAt, &s.CreatedBy, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentgate.ErrShareNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repository) CreateShare(ctx context.Context, share *contentgate.ContentShare) error {
	query := `
		INSERT INTO content_share (
			id, content_id, access_token, recipient_email, recipient_name,
			message, expires_at, view_count, last_viewed_at, created_by,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db(ctx).Exec(ctx, query,
		share.ID, share.ContentID, share.AccessToken, share.RecipientEmail,
		share.RecipientName, share.Message, share.ExpiresAt, share.ViewCount,
		share.LastViewedAt, share.CreatedBy, share.CreatedAt)
	if err != nil {
		return handlePostgresError("create share", err)
	}
	return nil
}

func (r *Repository) GetShare(ctx context.Context, id uuid.UUID) (*contentgate.ContentShare, error) {
	query := `SELECT` + shareColumns + ` FROM content_share WHERE id = $1`
	return scanShare(r.db(ctx).QueryRow(ctx, query, id))
}

func (r *Repository) GetShareByToken(ctx context.Context, token string) (*contentgate.ContentShare, error) {
	query := `SELECT` + shareColumns + ` FROM content_share WHERE access_token = $1`
	return scanShare(r.db(ctx).QueryRow(ctx, query, token))
}

func (r *Repository) UpdateShare(ctx context.Context, share *contentgate.ContentShare) error {
	query := `
		UPDATE content_share SET view_count = $2, last_viewed_at = $3
		WHERE id = $1`

	tag, err := r.db(ctx).Exec(ctx, query,
		share.ID, share.ViewCount, share.LastViewedAt)
	if err != nil {
		return handlePostgresError("update share", err)
	}
	if tag.RowsAffected() == 0 {
		return contentgate.ErrShareNotFound
	}
	return nil
}

func (r *Repository) DeleteShare(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM content_share WHERE id = $1`, id)
	if err != nil {
		return handlePostgresError("delete share", err)
	}
	if tag.RowsAffected() == 0 {
		return contentgate.ErrShareNotFound
	}
	return nil
}

func (r *Repository) ListSharesByContent(ctx context.Context, contentID uuid.UUID) ([]*contentgate.ContentShare, error) {
	query := `SELECT` + shareColumns + `
		FROM content_share WHERE content_id = $1 ORDER BY created_at DESC`

	rows, err := r.db(ctx).Query(ctx, query, contentID)
	if err != nil {
		return nil, handlePostgresError("list shares", err)
	}
	defer rows.Close()

	var shares []*contentgate.ContentShare
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

// Notification outbox operations

func (r *Repository) EnqueueNotification(ctx context.Context, event *contentgate.NotificationEvent) error {
	query := `
		INSERT INTO notification_outbox (
			id, kind, content_id, user_id, note, created_at, dispatched_at,
			attempts, last_error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db(ctx).Exec(ctx, query,
		event.ID, event.Kind, event.ContentID, event.UserID, event.Note,
		event.CreatedAt, event.DispatchedAt, event.Attempts, event.LastError)
	if err != nil {
		return handlePostgresError("enqueue notification", err)
	}
	return nil
}

func (r *Repository) ListPendingNotifications(ctx context.Context, limit int) ([]*contentgate.NotificationEvent, error) {
	query := `
		SELECT id, kind, content_id, user_id, note, created_at, dispatched_at,
		       attempts, last_error
		FROM notification_outbox
		WHERE dispatched_at IS NULL
		ORDER BY created_at
		LIMIT $1`

	rows, err := r.db(ctx).Query(ctx, query, limit)
	if err != nil {
		return nil, handlePostgresError("list pending notifications", err)
	}
	defer rows.Close()

	var events []*contentgate.NotificationEvent
	for rows.Next() {
		var e contentgate.NotificationEvent
		if err := rows.Scan(
			&e.ID, &e.Kind, &e.ContentID, &e.UserID, &e.Note, &e.CreatedAt,
			&e.DispatchedAt, &e.Attempts, &e.LastError); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (r *Repository) MarkNotificationDispatched(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notification_outbox SET dispatched_at = NOW() WHERE id = $1`
	_, err := r.db(ctx).Exec(ctx, query, id)
	if err != nil {
		return handlePostgresError("mark notification dispatched", err)
	}
	return nil
}

func (r *Repository) MarkNotificationFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE notification_outbox
		SET attempts = attempts + 1, last_error = $2
		WHERE id = $1`
	_, err := r.db(ctx).Exec(ctx, query, id, reason)
	if err != nil {
		return handlePostgresError("mark notification failed", err)
	}
	return nil
}

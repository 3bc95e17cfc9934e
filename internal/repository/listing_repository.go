package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/models"
)

// Timestamps are stored as unix milliseconds.
func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

const listingColumns = `id, name, description, invite_url, connect_code, website, banner_key,
	status, submitted_by, claimed_by_user_id, pin, pin_expires_at, pin_requester_user_id,
	forum_thread_id, created_at, updated_at`

// ListingRepository handles database operations for listings
type ListingRepository struct {
	db *sql.DB
}

// NewListingRepository creates a new listing repository
func NewListingRepository(db *sql.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*models.Listing, error) {
	var (
		l                    models.Listing
		claimedBy, pin, req  sql.NullString
		expiresAt            sql.NullInt64
		createdAt, updatedAt int64
	)

	err := row.Scan(
		&l.ID, &l.Name, &l.Description, &l.InviteURL, &l.ConnectCode, &l.Website, &l.BannerKey,
		&l.Status, &l.SubmittedBy, &claimedBy, &pin, &expiresAt, &req,
		&l.ForumThreadID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if claimedBy.Valid {
		l.ClaimedByUserID = &claimedBy.String
	}
	if pin.Valid {
		l.Pin = &pin.String
	}
	if expiresAt.Valid {
		t := fromMillis(expiresAt.Int64)
		l.PinExpiresAt = &t
	}
	if req.Valid {
		l.PinRequesterUserID = &req.String
	}
	l.CreatedAt = fromMillis(createdAt)
	l.UpdatedAt = fromMillis(updatedAt)

	return &l, nil
}

// Create inserts a new listing
func (r *ListingRepository) Create(ctx context.Context, l *models.Listing) error {
	query := `INSERT INTO listings (id, name, description, invite_url, connect_code, website, banner_key,
		status, submitted_by, forum_thread_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		l.ID, l.Name, l.Description, l.InviteURL, l.ConnectCode, l.Website, l.BannerKey,
		l.Status, l.SubmittedBy, l.ForumThreadID, toMillis(l.CreatedAt), toMillis(l.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

// GetByID retrieves a single listing, or nil when it does not exist
func (r *ListingRepository) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+listingColumns+" FROM listings WHERE id = ?", id)

	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

// List retrieves listings with filtering and pagination
func (r *ListingRepository) List(ctx context.Context, filter models.ListingFilter) ([]models.Listing, int64, error) {
	var conditions []string
	var args []any

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Query != "" {
		conditions = append(conditions, "name LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(filter.Query)+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM listings"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	page, pageSize := models.NormalizePage(filter.Page, filter.PageSize)
	query := "SELECT " + listingColumns + " FROM listings" + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, *l)
	}

	return listings, total, rows.Err()
}

// Update writes the editable fields of a listing
func (r *ListingRepository) Update(ctx context.Context, l *models.Listing) error {
	query := `UPDATE listings SET name = ?, description = ?, invite_url = ?, connect_code = ?,
		website = ?, updated_at = ? WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query,
		l.Name, l.Description, l.InviteURL, l.ConnectCode, l.Website, toMillis(l.UpdatedAt), l.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	return nil
}

// UpdateStatus sets the moderation status; false means no such listing
func (r *ListingRepository) UpdateStatus(ctx context.Context, id, status string, now time.Time) (bool, error) {
	return r.execAffected(ctx, "update listing status",
		"UPDATE listings SET status = ?, updated_at = ? WHERE id = ?", status, toMillis(now), id)
}

// SetBanner stores the object key of the banner image
func (r *ListingRepository) SetBanner(ctx context.Context, id, key string, now time.Time) (bool, error) {
	return r.execAffected(ctx, "set listing banner",
		"UPDATE listings SET banner_key = ?, updated_at = ? WHERE id = ?", key, toMillis(now), id)
}

// SetForumThread records the forum thread mirroring the listing
func (r *ListingRepository) SetForumThread(ctx context.Context, id, threadID string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE listings SET forum_thread_id = ? WHERE id = ?", threadID, id)
	if err != nil {
		return fmt.Errorf("failed to set forum thread: %w", err)
	}
	return nil
}

// Delete removes a listing; false means no such listing
func (r *ListingRepository) Delete(ctx context.Context, id string) (bool, error) {
	return r.execAffected(ctx, "delete listing", "DELETE FROM listings WHERE id = ?", id)
}

// SetPendingPin stores a freshly delivered PIN, replacing any pending one.
// It only touches unclaimed listings; false means the listing is missing or
// was claimed in the meantime.
func (r *ListingRepository) SetPendingPin(ctx context.Context, id, pin string, expiresAt time.Time, requester string, now time.Time) (bool, error) {
	query := `UPDATE listings SET pin = ?, pin_expires_at = ?, pin_requester_user_id = ?, updated_at = ?
		WHERE id = ? AND claimed_by_user_id IS NULL`

	return r.execAffected(ctx, "set pending pin", query, pin, toMillis(expiresAt), requester, toMillis(now), id)
}

// FinalizeClaim transfers ownership to userID and clears the pending PIN in one
// conditional update. It succeeds only while the listing is unclaimed and the
// stored PIN, requester and expiry still match; false means one of those
// changed since the caller read the row.
func (r *ListingRepository) FinalizeClaim(ctx context.Context, id, userID, pin string, now time.Time) (bool, error) {
	query := `UPDATE listings
		SET claimed_by_user_id = ?, pin = NULL, pin_expires_at = NULL, pin_requester_user_id = NULL, updated_at = ?
		WHERE id = ?
		  AND claimed_by_user_id IS NULL
		  AND pin = ?
		  AND pin_requester_user_id = ?
		  AND pin_expires_at > ?`

	return r.execAffected(ctx, "finalize claim", query, userID, toMillis(now), id, pin, userID, toMillis(now))
}

// ResetClaim clears ownership and any pending PIN
func (r *ListingRepository) ResetClaim(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `UPDATE listings
		SET claimed_by_user_id = NULL, pin = NULL, pin_expires_at = NULL, pin_requester_user_id = NULL, updated_at = ?
		WHERE id = ?`

	return r.execAffected(ctx, "reset claim", query, toMillis(now), id)
}

func (r *ListingRepository) execAffected(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}
	return n > 0, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

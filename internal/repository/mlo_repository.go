package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/models"
)

const mloColumns = `id, title, creator, description, category, website_url, image_key,
	x, y, status, submitted_by, created_at, updated_at`

// MLORepository handles database operations for map assets
type MLORepository struct {
	db *sql.DB
}

// NewMLORepository creates a new MLO repository
func NewMLORepository(db *sql.DB) *MLORepository {
	return &MLORepository{db: db}
}

func scanMLO(row rowScanner) (*models.MLO, error) {
	var m models.MLO
	var createdAt, updatedAt int64

	err := row.Scan(
		&m.ID, &m.Title, &m.Creator, &m.Description, &m.Category, &m.WebsiteURL, &m.ImageKey,
		&m.X, &m.Y, &m.Status, &m.SubmittedBy, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.CreatedAt = fromMillis(createdAt)
	m.UpdatedAt = fromMillis(updatedAt)
	return &m, nil
}

// Create inserts a new MLO
func (r *MLORepository) Create(ctx context.Context, m *models.MLO) error {
	query := `INSERT INTO mlos (id, title, creator, description, category, website_url, image_key,
		x, y, status, submitted_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.Title, m.Creator, m.Description, m.Category, m.WebsiteURL, m.ImageKey,
		m.X, m.Y, m.Status, m.SubmittedBy, toMillis(m.CreatedAt), toMillis(m.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert mlo: %w", err)
	}
	return nil
}

// GetByID retrieves a single MLO, or nil when it does not exist
func (r *MLORepository) GetByID(ctx context.Context, id string) (*models.MLO, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+mloColumns+" FROM mlos WHERE id = ?", id)

	m, err := scanMLO(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mlo: %w", err)
	}
	return m, nil
}

// List retrieves MLOs with filtering and pagination
func (r *MLORepository) List(ctx context.Context, filter models.MLOFilter) ([]models.MLO, int64, error) {
	var conditions []string
	var args []any

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Creator != "" {
		conditions = append(conditions, "creator = ?")
		args = append(args, filter.Creator)
	}
	if filter.Query != "" {
		conditions = append(conditions, "(title LIKE ? ESCAPE '\\' OR creator LIKE ? ESCAPE '\\')")
		like := "%" + escapeLike(filter.Query) + "%"
		args = append(args, like, like)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM mlos"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count mlos: %w", err)
	}

	page, pageSize := models.NormalizePage(filter.Page, filter.PageSize)
	query := "SELECT " + mloColumns + " FROM mlos" + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query mlos: %w", err)
	}
	defer rows.Close()

	var mlos []models.MLO
	for rows.Next() {
		m, err := scanMLO(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan mlo: %w", err)
		}
		mlos = append(mlos, *m)
	}

	return mlos, total, rows.Err()
}

// ListApproved returns every approved MLO for map rendering
func (r *MLORepository) ListApproved(ctx context.Context) ([]models.MLO, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+mloColumns+" FROM mlos WHERE status = ? ORDER BY title", models.StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to query approved mlos: %w", err)
	}
	defer rows.Close()

	var mlos []models.MLO
	for rows.Next() {
		m, err := scanMLO(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mlo: %w", err)
		}
		mlos = append(mlos, *m)
	}

	return mlos, rows.Err()
}

// UpdateStatus sets the moderation status; false means no such MLO
func (r *MLORepository) UpdateStatus(ctx context.Context, id, status string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE mlos SET status = ?, updated_at = ? WHERE id = ?", status, toMillis(now), id)
	if err != nil {
		return false, fmt.Errorf("failed to update mlo status: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetImage stores the object key of the preview image
func (r *MLORepository) SetImage(ctx context.Context, id, key string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE mlos SET image_key = ?, updated_at = ? WHERE id = ?", key, toMillis(now), id)
	if err != nil {
		return false, fmt.Errorf("failed to set mlo image: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes an MLO; false means no such MLO
func (r *MLORepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM mlos WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete mlo: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

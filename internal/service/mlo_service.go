package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/authz"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/logging"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/models"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/spatial"
)

// MLOStore is the MLO persistence
type MLOStore interface {
	Create(ctx context.Context, m *models.MLO) error
	GetByID(ctx context.Context, id string) (*models.MLO, error)
	List(ctx context.Context, filter models.MLOFilter) ([]models.MLO, int64, error)
	ListApproved(ctx context.Context) ([]models.MLO, error)
	UpdateStatus(ctx context.Context, id, status string, now time.Time) (bool, error)
	SetImage(ctx context.Context, id, key string, now time.Time) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// MLOService handles business logic for map assets
type MLOService struct {
	store          MLOStore
	objects        ObjectStore
	authz          Authorizer
	notifier       Notifier
	maxUploadBytes int64
	now            func() time.Time
}

// NewMLOService creates a new MLO service
func NewMLOService(store MLOStore, objects ObjectStore, az Authorizer, notifier Notifier, maxUploadBytes int64) *MLOService {
	return &MLOService{
		store:          store,
		objects:        objects,
		authz:          az,
		notifier:       notifier,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

// ResolvePosition returns the true game position of a submission. Game
// coordinates win over a map click when both are present.
func ResolvePosition(req models.CreateMLORequest) (spatial.WorldPoint, error) {
	switch {
	case req.X != nil && req.Y != nil:
		if !spatial.IsFinite(*req.X, *req.Y) {
			return spatial.WorldPoint{}, fmt.Errorf("%w: x and y must be finite", ErrInvalidCoordinates)
		}
		return spatial.WorldPoint{
			X: spatial.Round(*req.X, spatial.CoordinatePrecision),
			Y: spatial.Round(*req.Y, spatial.CoordinatePrecision),
		}, nil

	case req.PX != nil && req.PY != nil:
		p := spatial.MapPoint{X: *req.PX, Y: *req.PY}
		if !spatial.IsFinite(p.X, p.Y) || !spatial.InMapBounds(p) {
			return spatial.WorldPoint{}, fmt.Errorf("%w: px and py must lie on the map", ErrInvalidCoordinates)
		}
		return spatial.MapToGTA(p), nil

	default:
		return spatial.WorldPoint{}, fmt.Errorf("%w: give x and y or px and py", ErrInvalidCoordinates)
	}
}

// Create stores a new pending MLO
func (s *MLOService) Create(ctx context.Context, actor Actor, req models.CreateMLORequest) (*models.MLO, error) {
	if actor.UserID == "" {
		return nil, ErrUnauthenticated
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	pos, err := ResolvePosition(req)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	m := &models.MLO{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Creator:     strings.TrimSpace(req.Creator),
		Description: req.Description,
		Category:    strings.ToLower(strings.TrimSpace(req.Category)),
		WebsiteURL:  req.WebsiteURL,
		X:           pos.X,
		Y:           pos.Y,
		Status:      models.StatusPending,
		SubmittedBy: actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, m); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("mlo_id", m.ID).Float64("x", m.X).Float64("y", m.Y).Msg("MLO submitted")
	if s.notifier != nil {
		subject := "New MLO: " + m.Title
		body := fmt.Sprintf("%s submitted %q at (%.4f, %.4f) for review.", actor.UserID, m.Title, m.X, m.Y)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.notifier.NotifyModerators(ctx, subject, body); err != nil {
				logging.Warn().Err(err).Str("mlo_id", m.ID).Msg("Moderator notification failed")
			}
		}()
	}
	return m, nil
}

// List returns a page of MLOs. Only moderators see non-approved entries.
func (s *MLOService) List(ctx context.Context, actor Actor, filter models.MLOFilter) (models.Page[models.MLO], error) {
	if !s.allowed(actor, authz.ActionModerate) {
		filter.Status = models.StatusApproved
	}
	page, pageSize := models.NormalizePage(filter.Page, filter.PageSize)
	filter.Page, filter.PageSize = page, pageSize

	mlos, total, err := s.store.List(ctx, filter)
	if err != nil {
		return models.Page[models.MLO]{}, err
	}
	return models.NewPage(mlos, total, page, pageSize), nil
}

// Get returns an MLO visible to actor
func (s *MLOService) Get(ctx context.Context, actor Actor, id string) (*models.MLO, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status != models.StatusApproved && m.SubmittedBy != actor.UserID && !s.allowed(actor, authz.ActionModerate) {
		return nil, ErrNotFound
	}
	return m, nil
}

// SetStatus applies a moderation decision
func (s *MLOService) SetStatus(ctx context.Context, id, status string) (*models.MLO, error) {
	ok, err := s.store.UpdateStatus(ctx, id, status, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	logging.Ctx(ctx).Info().Str("mlo_id", id).Str("status", status).Msg("MLO moderated")
	return s.load(ctx, id)
}

// Delete removes an MLO and its image
func (s *MLOService) Delete(ctx context.Context, id string) error {
	m, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if m.ImageKey != "" && s.objects != nil {
		if err := s.objects.Delete(ctx, m.ImageKey); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("key", m.ImageKey).Msg("Failed to delete MLO image")
		}
	}
	return nil
}

// SetImage stores a preview image for an MLO submitted by actor
func (s *MLOService) SetImage(ctx context.Context, actor Actor, id string, data []byte) (*models.MLO, error) {
	if actor.UserID == "" {
		return nil, ErrUnauthenticated
	}
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.SubmittedBy != actor.UserID && !s.allowed(actor, authz.ActionEdit) {
		return nil, ErrForbidden
	}

	key, err := storeImage(ctx, s.objects, "mlos", m.ID, data, s.maxUploadBytes)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.SetImage(ctx, m.ID, key, s.now().UTC()); err != nil {
		return nil, err
	}
	if old := m.ImageKey; old != "" {
		if err := s.objects.Delete(ctx, old); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("key", old).Msg("Failed to delete replaced image")
		}
	}
	m.ImageKey = key
	return m, nil
}

func (s *MLOService) load(ctx context.Context, id string) (*models.MLO, error) {
	m, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotFound
	}
	return m, nil
}

func (s *MLOService) allowed(actor Actor, action string) bool {
	if s.authz == nil || actor.UserID == "" {
		return false
	}
	ok, err := s.authz.Allowed(actor.UserID, actor.Role, authz.ObjectMLOs, action)
	if err != nil {
		logging.Error().Err(err).Msg("Authorization check failed")
		return false
	}
	return ok
}

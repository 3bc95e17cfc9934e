package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/authz"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/discord"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/gameserver"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/logging"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/models"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID string
	Role   string
}

// Authorizer answers role-based permission questions
type Authorizer interface {
	Allowed(userID, role, object, action string) (bool, error)
}

// Notifier tells moderators about new submissions
type Notifier interface {
	NotifyModerators(ctx context.Context, subject, body string) error
}

// ForumQueue schedules forum post upkeep. Both methods must not block.
type ForumQueue interface {
	SyncQueue
	EnqueueArchive(threadID string)
}

// ServerStatusSource reports live game server state
type ServerStatusSource interface {
	Status(ctx context.Context, code string) (*models.ServerStatus, error)
}

// ListingStore is the listing persistence used outside the claim flow
type ListingStore interface {
	Create(ctx context.Context, l *models.Listing) error
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	List(ctx context.Context, filter models.ListingFilter) ([]models.Listing, int64, error)
	Update(ctx context.Context, l *models.Listing) error
	UpdateStatus(ctx context.Context, id, status string, now time.Time) (bool, error)
	SetBanner(ctx context.Context, id, key string, now time.Time) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ListingDeps bundles the collaborators of ListingService
type ListingDeps struct {
	Store          ListingStore
	Objects        ObjectStore
	Authz          Authorizer
	Notifier       Notifier
	Forum          ForumQueue
	Servers        ServerStatusSource
	MaxUploadBytes int64
}

// ListingService handles business logic for directory listings
type ListingService struct {
	ListingDeps
	now func() time.Time
}

// NewListingService creates a new listing service
func NewListingService(deps ListingDeps) *ListingService {
	return &ListingService{ListingDeps: deps, now: time.Now}
}

// Create stores a new pending listing submitted by actor
func (s *ListingService) Create(ctx context.Context, actor Actor, req models.CreateListingRequest) (*models.Listing, error) {
	if actor.UserID == "" {
		return nil, ErrUnauthenticated
	}
	if err := validateListingInput(&req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	l := &models.Listing{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		InviteURL:   req.InviteURL,
		ConnectCode: req.ConnectCode,
		Website:     req.Website,
		Status:      models.StatusPending,
		SubmittedBy: actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Create(ctx, l); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("listing_id", l.ID).Str("user_id", actor.UserID).Msg("Listing submitted")
	s.notify(ctx, "New server listing: "+l.Name,
		fmt.Sprintf("%s submitted the listing %q (%s) for review.", actor.UserID, l.Name, l.ID))
	return l, nil
}

// List returns a page of listings. Only moderators see non-approved entries.
func (s *ListingService) List(ctx context.Context, actor Actor, filter models.ListingFilter) (models.Page[models.Listing], error) {
	if !s.allowed(actor, authz.ObjectListings, authz.ActionModerate) {
		filter.Status = models.StatusApproved
	}
	page, pageSize := models.NormalizePage(filter.Page, filter.PageSize)
	filter.Page, filter.PageSize = page, pageSize

	listings, total, err := s.Store.List(ctx, filter)
	if err != nil {
		return models.Page[models.Listing]{}, err
	}
	return models.NewPage(listings, total, page, pageSize), nil
}

// Get returns a listing visible to actor. Pending and rejected listings are
// visible to their owner and to moderators only.
func (s *ListingService) Get(ctx context.Context, actor Actor, id string) (*models.Listing, error) {
	l, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status != models.StatusApproved && !l.OwnedBy(actor.UserID) &&
		!s.allowed(actor, authz.ObjectListings, authz.ActionModerate) {
		return nil, ErrNotFound
	}
	return l, nil
}

// Update edits a listing owned by actor, or any listing for editors
func (s *ListingService) Update(ctx context.Context, actor Actor, id string, req models.UpdateListingRequest) (*models.Listing, error) {
	l, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := validateListingInput(&req); err != nil {
		return nil, err
	}

	l.Name = strings.TrimSpace(req.Name)
	l.Description = req.Description
	l.InviteURL = req.InviteURL
	l.ConnectCode = req.ConnectCode
	l.Website = req.Website
	l.UpdatedAt = s.now().UTC()

	if err := s.Store.Update(ctx, l); err != nil {
		return nil, err
	}
	s.sync(l.ID)
	return l, nil
}

// SetStatus applies a moderation decision and refreshes the forum post
func (s *ListingService) SetStatus(ctx context.Context, id, status string) (*models.Listing, error) {
	ok, err := s.Store.UpdateStatus(ctx, id, status, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	logging.Ctx(ctx).Info().Str("listing_id", id).Str("status", status).Msg("Listing moderated")
	s.sync(id)
	return s.load(ctx, id)
}

// Delete removes a listing, its banner and its forum thread
func (s *ListingService) Delete(ctx context.Context, id string) error {
	l, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	ok, err := s.Store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}

	if l.BannerKey != "" && s.Objects != nil {
		if err := s.Objects.Delete(ctx, l.BannerKey); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("key", l.BannerKey).Msg("Failed to delete banner")
		}
	}
	if l.ForumThreadID != "" && s.Forum != nil {
		s.Forum.EnqueueArchive(l.ForumThreadID)
	}
	return nil
}

// SetBanner stores an uploaded banner image for a listing actor may edit
func (s *ListingService) SetBanner(ctx context.Context, actor Actor, id string, data []byte) (*models.Listing, error) {
	l, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	key, err := storeImage(ctx, s.Objects, "banners", l.ID, data, s.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	if _, err := s.Store.SetBanner(ctx, l.ID, key, s.now().UTC()); err != nil {
		return nil, err
	}

	if old := l.BannerKey; old != "" {
		if err := s.Objects.Delete(ctx, old); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("key", old).Msg("Failed to delete replaced banner")
		}
	}
	l.BannerKey = key
	s.sync(l.ID)
	return l, nil
}

// ServerStatus reports whether the listing's game server is online.
// Listings without a connect code, or with one the server list does not
// know, report offline.
func (s *ListingService) ServerStatus(ctx context.Context, id string) (*models.ServerStatus, error) {
	l, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.ConnectCode == "" || s.Servers == nil {
		return &models.ServerStatus{}, nil
	}

	status, err := s.Servers.Status(ctx, l.ConnectCode)
	switch {
	case err == nil:
		return status, nil
	case errorsIsAny(err, gameserver.ErrServerNotFound, gameserver.ErrInvalidCode):
		return &models.ServerStatus{}, nil
	default:
		logging.Ctx(ctx).Warn().Err(err).Str("listing_id", id).Msg("Server status lookup failed")
		return nil, ErrUpstream
	}
}

func (s *ListingService) load(ctx context.Context, id string) (*models.Listing, error) {
	l, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrNotFound
	}
	return l, nil
}

func (s *ListingService) loadEditable(ctx context.Context, actor Actor, id string) (*models.Listing, error) {
	if actor.UserID == "" {
		return nil, ErrUnauthenticated
	}
	l, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.OwnedBy(actor.UserID) && !s.allowed(actor, authz.ObjectListings, authz.ActionEdit) {
		return nil, ErrForbidden
	}
	return l, nil
}

func (s *ListingService) allowed(actor Actor, object, action string) bool {
	if s.Authz == nil || actor.UserID == "" {
		return false
	}
	ok, err := s.Authz.Allowed(actor.UserID, actor.Role, object, action)
	if err != nil {
		logging.Error().Err(err).Msg("Authorization check failed")
		return false
	}
	return ok
}

func (s *ListingService) sync(id string) {
	if s.Forum != nil {
		s.Forum.Enqueue(id)
	}
}

// notify mails moderators in the background; failures are only logged
func (s *ListingService) notify(ctx context.Context, subject, body string) {
	if s.Notifier == nil {
		return
	}
	log := logging.Ctx(ctx).With().Str("subject", subject).Logger()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Notifier.NotifyModerators(ctx, subject, body); err != nil {
			log.Warn().Err(err).Msg("Moderator notification failed")
		}
	}()
}

func validateListingInput(req *models.CreateListingRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	req.InviteURL = strings.TrimSpace(req.InviteURL)
	if req.InviteURL != "" && discord.ExtractInviteCode(req.InviteURL) == "" {
		return fmt.Errorf("%w: invite link is not a valid invite", ErrInvalidInput)
	}
	if req.ConnectCode != "" {
		req.ConnectCode = gameserver.NormalizeCode(req.ConnectCode)
	}
	return nil
}

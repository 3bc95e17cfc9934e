package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/discord"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/logging"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/metrics"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/models"
)

// DefaultPinTTL is how long a delivered PIN stays valid
const DefaultPinTTL = 10 * time.Minute

// ClaimStore is the listing persistence the claim flow needs
type ClaimStore interface {
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	SetPendingPin(ctx context.Context, id, pin string, expiresAt time.Time, requester string, now time.Time) (bool, error)
	FinalizeClaim(ctx context.Context, id, userID, pin string, now time.Time) (bool, error)
	ResetClaim(ctx context.Context, id string, now time.Time) (bool, error)
}

// ChatPlatform resolves invites and webhooks to guilds and posts messages
type ChatPlatform interface {
	Configured() bool
	ResolveInvite(ctx context.Context, invite string) (string, error)
	ResolveWebhook(ctx context.Context, webhookURL string) (string, error)
	PostToWebhook(ctx context.Context, webhookURL string, msg discord.Message) error
}

// SyncQueue accepts listings whose forum post should be refreshed.
// Enqueue must not block.
type SyncQueue interface {
	Enqueue(listingID string)
}

// ClaimService moves a listing from unclaimed to claimed once the caller
// proves control of a webhook in the listing's community.
type ClaimService struct {
	store  ClaimStore
	chat   ChatPlatform
	sync   SyncQueue
	pinTTL time.Duration
	now    func() time.Time
	newPin func() (string, error)
}

// ClaimOption customizes a ClaimService
type ClaimOption func(*ClaimService)

// WithClock overrides time.Now
func WithClock(now func() time.Time) ClaimOption {
	return func(s *ClaimService) { s.now = now }
}

// WithPinGenerator overrides the random PIN source
func WithPinGenerator(gen func() (string, error)) ClaimOption {
	return func(s *ClaimService) { s.newPin = gen }
}

// NewClaimService creates a claim service. A non-positive ttl uses DefaultPinTTL.
func NewClaimService(store ClaimStore, chat ChatPlatform, sync SyncQueue, pinTTL time.Duration, opts ...ClaimOption) *ClaimService {
	if pinTTL <= 0 {
		pinTTL = DefaultPinTTL
	}
	s := &ClaimService{
		store:  store,
		chat:   chat,
		sync:   sync,
		pinTTL: pinTTL,
		now:    time.Now,
		newPin: GeneratePin,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GeneratePin returns a uniformly random 4-digit PIN, zero padded.
func GeneratePin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("generate pin: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// RequestPin checks that webhookURL and the listing's invite resolve to the
// same guild, delivers a fresh PIN through the webhook and stores it. Any
// pending PIN is replaced. Nothing is stored unless delivery succeeded.
func (s *ClaimService) RequestPin(ctx context.Context, listingID, userID, webhookURL string) (*models.PinIssued, error) {
	issued, err := s.requestPin(ctx, listingID, userID, webhookURL)
	recordTransition("request_pin", err)
	return issued, err
}

func (s *ClaimService) requestPin(ctx context.Context, listingID, userID, webhookURL string) (*models.PinIssued, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	listing, err := s.store.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ErrNotFound
	}
	if listing.IsClaimed() {
		return nil, ErrAlreadyClaimed
	}
	if strings.TrimSpace(listing.InviteURL) == "" {
		return nil, ErrNoInvite
	}
	if !s.chat.Configured() {
		return nil, ErrUnconfigured
	}

	log := logging.Ctx(ctx).With().Str("listing_id", listingID).Str("user_id", userID).Logger()

	inviteGuild, err := s.chat.ResolveInvite(ctx, listing.InviteURL)
	if err != nil || inviteGuild == "" {
		log.Info().Err(err).Msg("Invite resolution failed")
		return nil, fmt.Errorf("%w: listing invite", ErrResolutionFailed)
	}

	webhookGuild, err := s.chat.ResolveWebhook(ctx, webhookURL)
	if err != nil || webhookGuild == "" {
		log.Info().Err(err).Msg("Webhook resolution failed")
		return nil, fmt.Errorf("%w: webhook", ErrResolutionFailed)
	}

	if inviteGuild != webhookGuild {
		log.Info().Str("invite_guild", inviteGuild).Str("webhook_guild", webhookGuild).Msg("Guild mismatch")
		return nil, ErrGuildMismatch
	}

	pin, err := s.newPin()
	if err != nil {
		return nil, err
	}

	if err := s.chat.PostToWebhook(ctx, webhookURL, pinMessage(listing.Name, pin, s.pinTTL)); err != nil {
		log.Warn().Err(err).Msg("PIN delivery failed")
		return nil, ErrDeliveryFailed
	}

	now := s.now()
	expiresAt := now.Add(s.pinTTL)
	ok, err := s.store.SetPendingPin(ctx, listingID, pin, expiresAt, userID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.missingOrClaimed(ctx, listingID)
	}

	log.Info().Time("expires_at", expiresAt).Msg("Claim PIN issued")
	return &models.PinIssued{ExpiresAt: expiresAt}, nil
}

// VerifyPin transfers ownership to userID if pin matches the pending PIN
// that userID requested and it has not expired.
func (s *ClaimService) VerifyPin(ctx context.Context, listingID, userID, pin string) error {
	err := s.verifyPin(ctx, listingID, userID, pin)
	recordTransition("verify_pin", err)
	return err
}

func (s *ClaimService) verifyPin(ctx context.Context, listingID, userID, pin string) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	listing, err := s.store.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing == nil {
		return ErrNotFound
	}
	if listing.IsClaimed() {
		return ErrAlreadyClaimed
	}

	digits := NormalizePin(pin)
	if len(digits) != 4 {
		return ErrInvalidPin
	}

	now := s.now()
	if err := checkPending(listing, userID, digits, now); err != nil {
		return err
	}

	ok, err := s.store.FinalizeClaim(ctx, listingID, userID, digits, now)
	if err != nil {
		return err
	}
	if !ok {
		// The row changed after it was read: classify against the current state.
		current, err := s.store.GetByID(ctx, listingID)
		if err != nil {
			return err
		}
		switch {
		case current == nil:
			return ErrNotFound
		case current.IsClaimed():
			return ErrAlreadyClaimed
		}
		if err := checkPending(current, userID, digits, now); err != nil {
			return err
		}
		return ErrWrongPin
	}

	logging.Ctx(ctx).Info().Str("listing_id", listingID).Str("user_id", userID).Msg("Listing claimed")
	if s.sync != nil {
		s.sync.Enqueue(listingID)
	}
	return nil
}

// ResetClaim clears ownership and any pending PIN
func (s *ClaimService) ResetClaim(ctx context.Context, listingID string) error {
	ok, err := s.store.ResetClaim(ctx, listingID, s.now())
	if err == nil && !ok {
		err = ErrNotFound
	}
	recordTransition("reset", err)
	if err != nil {
		return err
	}

	logging.Ctx(ctx).Info().Str("listing_id", listingID).Msg("Listing claim reset")
	if s.sync != nil {
		s.sync.Enqueue(listingID)
	}
	return nil
}

// NormalizePin drops everything but ASCII digits, so "12 34" and "12-34" become "1234".
func NormalizePin(pin string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return -1
		}
		return r
	}, pin)
}

// checkPending applies the PIN checks in order: match, requester, expiry.
func checkPending(l *models.Listing, userID, pin string, now time.Time) error {
	if l.Pin == nil || *l.Pin != pin {
		return ErrWrongPin
	}
	if l.PinRequesterUserID == nil || *l.PinRequesterUserID != userID {
		return ErrWrongRequester
	}
	if l.PinExpiresAt == nil || !now.Before(*l.PinExpiresAt) {
		return ErrExpired
	}
	return nil
}

func (s *ClaimService) missingOrClaimed(ctx context.Context, listingID string) error {
	current, err := s.store.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrNotFound
	}
	return ErrAlreadyClaimed
}

func pinMessage(listingName, pin string, ttl time.Duration) discord.Message {
	return discord.Message{
		Username: "MLO Map",
		Embeds: []discord.Embed{{
			Title: "Listing claim verification",
			Description: fmt.Sprintf("Someone is claiming **%s** on the MLO map.\nYour PIN is `%s`. It expires in %d minutes.",
				listingName, pin, int(ttl.Minutes())),
			Color: 0x5865F2,
		}},
	}
}

func recordTransition(transition string, err error) {
	metrics.ClaimTransitions.WithLabelValues(transition, ErrorCode(err)).Inc()
}

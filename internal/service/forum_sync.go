package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/discord"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/logging"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/metrics"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/models"
)

// ForumStore is the listing persistence the forum syncer needs
type ForumStore interface {
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	SetForumThread(ctx context.Context, id, threadID string) error
}

// ForumPlatform manages forum threads on the chat platform
type ForumPlatform interface {
	Configured() bool
	CreateForumThread(ctx context.Context, channelID, name string, msg discord.Message) (string, error)
	EditThreadStarter(ctx context.Context, threadID string, msg discord.Message) error
	ArchiveThread(ctx context.Context, threadID string) error
}

type forumJob struct {
	listingID string
	threadID  string // set for archive jobs
}

// ForumSyncer mirrors approved listings into a forum channel. Jobs are
// processed one at a time by Serve; Enqueue never blocks and drops jobs when
// the queue is full.
type ForumSyncer struct {
	store      ForumStore
	chat       ForumPlatform
	channelID  string
	siteURL    string
	jobTimeout time.Duration
	jobs       chan forumJob
}

// NewForumSyncer creates a syncer with a queue of queueSize jobs
func NewForumSyncer(store ForumStore, chat ForumPlatform, channelID, siteURL string, queueSize int) *ForumSyncer {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &ForumSyncer{
		store:      store,
		chat:       chat,
		channelID:  channelID,
		siteURL:    strings.TrimRight(siteURL, "/"),
		jobTimeout: 15 * time.Second,
		jobs:       make(chan forumJob, queueSize),
	}
}

// Enqueue schedules a refresh of the listing's forum post
func (f *ForumSyncer) Enqueue(listingID string) {
	f.push(forumJob{listingID: listingID})
}

// EnqueueArchive schedules archiving a thread whose listing is gone
func (f *ForumSyncer) EnqueueArchive(threadID string) {
	f.push(forumJob{threadID: threadID})
}

func (f *ForumSyncer) push(job forumJob) {
	select {
	case f.jobs <- job:
		metrics.ForumSyncQueueDepth.Set(float64(len(f.jobs)))
	default:
		metrics.ForumSyncJobs.WithLabelValues("dropped").Inc()
		logging.Warn().Str("listing_id", job.listingID).Str("thread_id", job.threadID).
			Msg("Forum sync queue full, dropping job")
	}
}

// Serve implements suture.Service
func (f *ForumSyncer) Serve(ctx context.Context) error {
	logging.Info().Str("channel_id", f.channelID).Msg("Forum syncer started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-f.jobs:
			metrics.ForumSyncQueueDepth.Set(float64(len(f.jobs)))
			f.run(ctx, job)
		}
	}
}

// String implements fmt.Stringer for suture logging
func (f *ForumSyncer) String() string {
	return "forum-syncer"
}

func (f *ForumSyncer) run(parent context.Context, job forumJob) {
	ctx, cancel := context.WithTimeout(parent, f.jobTimeout)
	defer cancel()

	var (
		outcome string
		err     error
	)
	if job.threadID != "" {
		outcome, err = f.archive(ctx, job.threadID)
	} else {
		outcome, err = f.Sync(ctx, job.listingID)
	}

	if err != nil {
		outcome = "error"
		logging.Warn().Err(err).Str("listing_id", job.listingID).Str("thread_id", job.threadID).
			Msg("Forum sync failed")
	}
	metrics.ForumSyncJobs.WithLabelValues(outcome).Inc()
}

// Sync brings the listing's forum post in line with the listing. Approved
// listings get a thread, created on first sync; other statuses archive an
// existing thread. The returned outcome is used for metrics.
func (f *ForumSyncer) Sync(ctx context.Context, listingID string) (string, error) {
	if f.channelID == "" || !f.chat.Configured() {
		logging.Debug().Str("listing_id", listingID).Msg("Forum sync skipped, forum not configured")
		return "skipped", nil
	}

	l, err := f.store.GetByID(ctx, listingID)
	if err != nil {
		return "", err
	}
	if l == nil {
		return "", fmt.Errorf("%w: listing %s", ErrNotFound, listingID)
	}

	if l.Status != models.StatusApproved {
		if l.ForumThreadID == "" {
			return "skipped", nil
		}
		return f.archive(ctx, l.ForumThreadID)
	}

	msg := f.forumMessage(l)
	if l.ForumThreadID != "" {
		err := f.chat.EditThreadStarter(ctx, l.ForumThreadID, msg)
		if err == nil {
			return "updated", nil
		}
		if !discord.IsNotFound(err) {
			return "", fmt.Errorf("edit thread: %w", err)
		}
		logging.Info().Str("listing_id", l.ID).Str("thread_id", l.ForumThreadID).
			Msg("Forum thread gone, creating a new one")
	}

	threadID, err := f.chat.CreateForumThread(ctx, f.channelID, l.Name, msg)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	if err := f.store.SetForumThread(ctx, l.ID, threadID); err != nil {
		return "", err
	}
	return "created", nil
}

func (f *ForumSyncer) archive(ctx context.Context, threadID string) (string, error) {
	if !f.chat.Configured() {
		return "skipped", nil
	}
	if err := f.chat.ArchiveThread(ctx, threadID); err != nil && !discord.IsNotFound(err) {
		return "", fmt.Errorf("archive thread: %w", err)
	}
	return "archived", nil
}

func (f *ForumSyncer) forumMessage(l *models.Listing) discord.Message {
	embed := discord.Embed{
		Title:       l.Name,
		Description: truncateRunes(l.Description, 4000),
		Color:       0x2ECC71,
	}
	if f.siteURL != "" {
		embed.URL = f.siteURL + "/servers/" + l.ID
		if l.BannerKey != "" {
			embed.Image = &discord.EmbedImage{URL: f.siteURL + "/storage/" + l.BannerKey}
		}
	}

	owner := "Unclaimed"
	if l.IsClaimed() {
		owner = "Claimed by <@" + *l.ClaimedByUserID + ">"
	}
	embed.Fields = append(embed.Fields, discord.EmbedField{Name: "Ownership", Value: owner, Inline: true})
	if l.ConnectCode != "" {
		embed.Fields = append(embed.Fields, discord.EmbedField{Name: "Connect", Value: "cfx.re/join/" + l.ConnectCode, Inline: true})
	}
	if l.Website != "" {
		embed.Fields = append(embed.Fields, discord.EmbedField{Name: "Website", Value: l.Website})
	}
	if l.InviteURL != "" {
		embed.Fields = append(embed.Fields, discord.EmbedField{Name: "Discord", Value: l.InviteURL})
	}

	return discord.Message{Embeds: []discord.Embed{embed}}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

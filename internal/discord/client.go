// Package discord talks to the chat platform REST API: invite and webhook
// lookups for the claim flow, webhook delivery, and forum thread upkeep.
package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/breaker"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/metrics"
)

var (
	// ErrNotConfigured is returned by bot-authenticated calls when no token is set.
	ErrNotConfigured = errors.New("discord bot token not configured")
	// ErrInvalidInvite means the invite string did not contain a usable code.
	ErrInvalidInvite = errors.New("invalid invite link")
	// ErrInvalidWebhook means the URL does not have the webhook shape.
	ErrInvalidWebhook = errors.New("invalid webhook url")
	// ErrNoGuild means the platform answered but named no guild.
	ErrNoGuild = errors.New("no guild in response")
)

// APIError is a non-2xx answer from the platform.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord %s returned %d: %s", e.Operation, e.StatusCode, e.Body)
}

// clientFault reports whether the error was caused by the request rather than
// by the platform being unhealthy.
func clientFault(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests
}

// Config holds the client settings
type Config struct {
	BaseURL        string
	BotToken       string
	RequestTimeout time.Duration
}

// Client is a minimal platform REST client
type Client struct {
	baseURL  string
	botToken string
	http     *http.Client
	// botCB guards bot-authenticated calls; webhookCB guards calls to
	// user-supplied webhooks so their failures cannot open botCB.
	botCB     *gobreaker.CircuitBreaker[[]byte]
	webhookCB *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a client. A zero timeout falls back to five seconds.
func NewClient(cfg Config) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		botToken:  cfg.BotToken,
		http:      &http.Client{Timeout: timeout},
		botCB:     breaker.New[[]byte]("discord", countsAsSuccess),
		webhookCB: breaker.New[[]byte]("discord_webhook", countsAsSuccess),
	}
}

// Configured reports whether a bot token is available
func (c *Client) Configured() bool {
	return c.botToken != ""
}

// Message is a webhook or thread starter message
type Message struct {
	Username string  `json:"username,omitempty"`
	Content  string  `json:"content,omitempty"`
	Embeds   []Embed `json:"embeds,omitempty"`
}

// Embed is a rich message block
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Image       *EmbedImage  `json:"image,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// EmbedImage points at an image shown in an embed
type EmbedImage struct {
	URL string `json:"url"`
}

// EmbedField is a name/value row in an embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type inviteResponse struct {
	Code  string `json:"code"`
	Guild *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"guild"`
	GuildID string `json:"guild_id"`
}

type webhookResponse struct {
	ID      string `json:"id"`
	GuildID string `json:"guild_id"`
}

type channelResponse struct {
	ID string `json:"id"`
}

// ResolveInvite returns the guild ID behind an invite code or invite URL.
func (c *Client) ResolveInvite(ctx context.Context, invite string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	code := ExtractInviteCode(invite)
	if code == "" {
		return "", ErrInvalidInvite
	}

	body, err := c.do(ctx, "resolve_invite", http.MethodGet, "/invites/"+url.PathEscape(code), nil, true)
	if err != nil {
		return "", err
	}

	var resp inviteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode invite: %w", err)
	}
	if resp.Guild != nil && resp.Guild.ID != "" {
		return resp.Guild.ID, nil
	}
	if resp.GuildID != "" {
		return resp.GuildID, nil
	}
	return "", ErrNoGuild
}

// ResolveWebhook returns the guild ID of the channel a webhook posts into.
// The URL is matched against the webhook shape first and never fetched as-is.
func (c *Client) ResolveWebhook(ctx context.Context, webhookURL string) (string, error) {
	id, token, ok := ParseWebhookURL(webhookURL)
	if !ok {
		return "", ErrInvalidWebhook
	}

	body, err := c.do(ctx, "resolve_webhook", http.MethodGet, webhookPath(id, token), nil, false)
	if err != nil {
		return "", err
	}

	var resp webhookResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode webhook: %w", err)
	}
	if resp.GuildID == "" {
		return "", ErrNoGuild
	}
	return resp.GuildID, nil
}

// PostToWebhook delivers msg through the webhook and waits for the platform
// to confirm the message was created.
func (c *Client) PostToWebhook(ctx context.Context, webhookURL string, msg Message) error {
	id, token, ok := ParseWebhookURL(webhookURL)
	if !ok {
		return ErrInvalidWebhook
	}
	_, err := c.do(ctx, "post_webhook", http.MethodPost, webhookPath(id, token)+"?wait=true", msg, false)
	return err
}

// CreateForumThread opens a forum post in channelID and returns the thread ID.
func (c *Client) CreateForumThread(ctx context.Context, channelID, name string, msg Message) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	payload := struct {
		Name    string  `json:"name"`
		Message Message `json:"message"`
	}{Name: truncate(name, 100), Message: msg}

	body, err := c.do(ctx, "create_thread", http.MethodPost, "/channels/"+url.PathEscape(channelID)+"/threads", payload, true)
	if err != nil {
		return "", err
	}

	var resp channelResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode thread: %w", err)
	}
	if resp.ID == "" {
		return "", errors.New("thread response missing id")
	}
	return resp.ID, nil
}

// EditThreadStarter replaces the first message of a forum thread. Forum
// starter messages share the thread's ID.
func (c *Client) EditThreadStarter(ctx context.Context, threadID string, msg Message) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	tid := url.PathEscape(threadID)
	_, err := c.do(ctx, "edit_thread", http.MethodPatch, "/channels/"+tid+"/messages/"+tid, msg, true)
	return err
}

// ArchiveThread closes a forum thread
func (c *Client) ArchiveThread(ctx context.Context, threadID string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	payload := map[string]bool{"archived": true}
	_, err := c.do(ctx, "archive_thread", http.MethodPatch, "/channels/"+url.PathEscape(threadID), payload, true)
	return err
}

// IsNotFound reports whether err is a 404 from the platform
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any, auth bool) ([]byte, error) {
	cb := c.webhookCB
	if auth {
		cb = c.botCB
	}
	body, err := cb.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, op, method, path, payload, auth)
	})

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(breaker.Translate(err), breaker.ErrRejected) {
			outcome = "rejected"
		}
	}
	metrics.ExternalRequests.WithLabelValues("discord", op, outcome).Inc()

	return body, breaker.Translate(err)
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, payload any, auth bool) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bot "+c.botToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discord %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Operation: op, StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}
	return body, nil
}

// countsAsSuccess keeps client-side 4xx answers from tripping a breaker.
func countsAsSuccess(err error) bool {
	return err == nil || clientFault(err)
}

func webhookPath(id, token string) string {
	return "/webhooks/" + id + "/" + token
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

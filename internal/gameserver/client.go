// Package gameserver queries the FiveM server list for live listing status.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/breaker"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/metrics"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/models"
)

// ErrServerNotFound means the server list does not know the join code.
var ErrServerNotFound = errors.New("server not found")

// ErrInvalidCode means the join code is malformed.
var ErrInvalidCode = errors.New("invalid connect code")

var codePattern = regexp.MustCompile(`^[a-z0-9]{4,16}$`)

// formatCodes strips color codes like ^1 from server hostnames
var formatCodes = regexp.MustCompile(`\^[0-9]`)

// Config holds the client settings
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// Client fetches server status
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[*models.ServerStatus]
}

// NewClient creates a client
func NewClient(cfg Config) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		cb: breaker.New[*models.ServerStatus]("gameserver", func(err error) bool {
			return err == nil || errors.Is(err, ErrServerNotFound)
		}),
	}
}

type singleResponse struct {
	EndPoint string `json:"EndPoint"`
	Data     struct {
		Hostname   string `json:"hostname"`
		Clients    int    `json:"clients"`
		MaxClients int    `json:"sv_maxclients"`
	} `json:"Data"`
}

// NormalizeCode lowercases a join code and accepts cfx.re/join/ links.
func NormalizeCode(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, prefix := range []string{"https://", "http://", "cfx.re/join/"} {
		s = strings.TrimPrefix(s, prefix)
	}
	return strings.TrimRight(s, "/")
}

// Status returns the live state of the server behind code. An unknown code
// reports ErrServerNotFound; callers usually render that as offline.
func (c *Client) Status(ctx context.Context, code string) (*models.ServerStatus, error) {
	code = NormalizeCode(code)
	if !codePattern.MatchString(code) {
		return nil, ErrInvalidCode
	}

	status, err := c.cb.Execute(func() (*models.ServerStatus, error) {
		return c.fetch(ctx, code)
	})

	outcome := "ok"
	switch {
	case errors.Is(err, ErrServerNotFound):
		outcome = "not_found"
	case errors.Is(breaker.Translate(err), breaker.ErrRejected):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	metrics.ExternalRequests.WithLabelValues("gameserver", "status", outcome).Inc()

	return status, breaker.Translate(err)
}

func (c *Client) fetch(ctx context.Context, code string) (*models.ServerStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/servers/single/"+url.PathEscape(code), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "mlomap/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch server status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrServerNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server list returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	var data singleResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode server status: %w", err)
	}

	return &models.ServerStatus{
		Online:     true,
		Hostname:   strings.TrimSpace(formatCodes.ReplaceAllString(data.Data.Hostname, "")),
		Players:    data.Data.Clients,
		MaxPlayers: data.Data.MaxClients,
	}, nil
}

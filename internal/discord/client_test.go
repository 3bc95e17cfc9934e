package discord

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/breaker"
)

const (
	testWebhookID    = "123456789012345678"
	testWebhookToken = "AbCdEfGhIjKlMnOpQrStUvWxYz_-0123456789"
)

func testWebhookURL() string {
	return "https://discord.com/api/webhooks/" + testWebhookID + "/" + testWebhookToken
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, BotToken: "bot-token", RequestTimeout: time.Second})
}

func TestResolveInvite(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/invites/abc123" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bot bot-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"code":"abc123","guild":{"id":"G1","name":"Eclipse"}}`))
	})

	guild, err := c.ResolveInvite(context.Background(), "https://discord.gg/abc123?x=1")
	if err != nil {
		t.Fatalf("ResolveInvite() error = %v", err)
	}
	if guild != "G1" {
		t.Errorf("guild = %q, want G1", guild)
	}
}

func TestResolveInviteErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Unknown Invite","code":10006}`))
	})

	if _, err := c.ResolveInvite(context.Background(), "https://discord.gg/"); !errors.Is(err, ErrInvalidInvite) {
		t.Errorf("empty code: err = %v, want ErrInvalidInvite", err)
	}

	_, err := c.ResolveInvite(context.Background(), "gone")
	if !IsNotFound(err) {
		t.Errorf("unknown invite: err = %v, want 404 APIError", err)
	}

	unconfigured := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := unconfigured.ResolveInvite(context.Background(), "abc"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("unconfigured: err = %v, want ErrNotConfigured", err)
	}
}

func TestResolveWebhook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/webhooks/"+testWebhookID+"/"+testWebhookToken {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("webhook lookups must not send the bot token")
		}
		w.Write([]byte(`{"id":"` + testWebhookID + `","guild_id":"G1"}`))
	})

	guild, err := c.ResolveWebhook(context.Background(), testWebhookURL())
	if err != nil || guild != "G1" {
		t.Fatalf("ResolveWebhook() = %q, %v; want G1", guild, err)
	}
}

func TestResolveWebhookRejectsForeignURL(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.ResolveWebhook(context.Background(), "https://evil.example/api/webhooks/1/2")
	if !errors.Is(err, ErrInvalidWebhook) {
		t.Errorf("err = %v, want ErrInvalidWebhook", err)
	}
	if called {
		t.Error("malformed webhook must not trigger a request")
	}
}

func TestPostToWebhook(t *testing.T) {
	var got Message
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Query().Get("wait") != "true" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"id":"m1"}`))
	})

	err := c.PostToWebhook(context.Background(), testWebhookURL(), Message{Content: "PIN: 0042"})
	if err != nil {
		t.Fatalf("PostToWebhook() error = %v", err)
	}
	if !strings.Contains(got.Content, "0042") {
		t.Errorf("content = %q", got.Content)
	}
}

func TestPostToWebhookFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	var apiErr *APIError
	err := c.PostToWebhook(context.Background(), testWebhookURL(), Message{Content: "x"})
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("err = %v, want 500 APIError", err)
	}
}

func TestWebhookFailuresDoNotBlockBotCalls(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/webhooks/") {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"code":"abc123","guild":{"id":"G1"}}`))
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := c.PostToWebhook(ctx, testWebhookURL(), Message{Content: "x"}); err == nil {
			t.Fatalf("attempt %d: expected upstream error", i)
		}
	}
	if err := c.PostToWebhook(ctx, testWebhookURL(), Message{Content: "x"}); !errors.Is(err, breaker.ErrRejected) {
		t.Fatalf("webhook breaker: err = %v, want ErrRejected", err)
	}

	guild, err := c.ResolveInvite(ctx, "abc123")
	if err != nil || guild != "G1" {
		t.Errorf("ResolveInvite() = %q, %v; bot calls should still pass", guild, err)
	}
}

func TestForumThreadLifecycle(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/channels/forum/threads":
			w.Write([]byte(`{"id":"T1"}`))
		default:
			w.Write([]byte(`{}`))
		}
	})
	ctx := context.Background()

	id, err := c.CreateForumThread(ctx, "forum", "Eclipse RP", Message{Content: "hello"})
	if err != nil || id != "T1" {
		t.Fatalf("CreateForumThread() = %q, %v", id, err)
	}
	if err := c.EditThreadStarter(ctx, id, Message{Content: "updated"}); err != nil {
		t.Fatalf("EditThreadStarter() error = %v", err)
	}
	if err := c.ArchiveThread(ctx, id); err != nil {
		t.Fatalf("ArchiveThread() error = %v", err)
	}

	want := []string{"POST /channels/forum/threads", "PATCH /channels/T1/messages/T1", "PATCH /channels/T1"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, BotToken: "t", RequestTimeout: 20 * time.Millisecond})
	if _, err := c.ResolveWebhook(context.Background(), testWebhookURL()); err == nil {
		t.Fatal("expected timeout error")
	}
}

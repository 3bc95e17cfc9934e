package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/config"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/database"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/storage"
	"github.com/Maldo155/gta-mlo-map-sub001/pkg/response"
)

const webhookURL = "https://discord.com/api/webhooks/123456789012345678/AbCdEfGhIjKlMnOpQrStUvWxYz_-0123456789"

var pinPattern = regexp.MustCompile("PIN is `([0-9]{4})`")

// fakeDiscord answers the handful of endpoints the claim flow calls
type fakeDiscord struct {
	mu           sync.Mutex
	inviteGuild  string
	webhookGuild string
	pins         []string
}

func (f *fakeDiscord) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/invites/"):
		w.Write([]byte(`{"guild":{"id":"` + f.inviteGuild + `"}}`))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/webhooks/"):
		w.Write([]byte(`{"id":"123456789012345678","guild_id":"` + f.webhookGuild + `"}`))
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/webhooks/"):
		var body bytes.Buffer
		body.ReadFrom(r.Body)
		if m := pinPattern.FindStringSubmatch(body.String()); m != nil {
			f.pins = append(f.pins, m[1])
		}
		w.Write([]byte(`{"id":"m1"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Unknown"}`))
	}
}

func (f *fakeDiscord) lastPin() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pins) == 0 {
		return ""
	}
	return f.pins[len(f.pins)-1]
}

type testServer struct {
	app     *App
	discord *fakeDiscord
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fd := &fakeDiscord{inviteGuild: "G1", webhookGuild: "G1"}
	discordSrv := httptest.NewServer(fd)
	t.Cleanup(discordSrv.Close)

	cfg := config.Default()
	cfg.Security.JWTSecret = "test-secret-test-secret-test-secret"
	cfg.Security.RateLimitReqs = 1000
	cfg.Security.ClaimRateReqs = 100
	cfg.Discord.APIBaseURL = discordSrv.URL
	cfg.Discord.BotToken = "bot-token"
	cfg.GameServer.BaseURL = discordSrv.URL

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "api.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatal(err)
	}

	objects, err := storage.Open(storage.Config{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { objects.Close() })

	app, err := NewApp(cfg, db, objects, nil)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	return &testServer{app: app, discord: fd}
}

func (s *testServer) token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := s.app.JWT.GenerateToken(userID, userID, role)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var resp response.Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w, resp
}

func dataField(t *testing.T, resp response.Response, field string) any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("data is %T, want object", resp.Data)
	}
	return m[field]
}

func (s *testServer) approvedListing(t *testing.T) string {
	t.Helper()
	w, resp := s.do(t, http.MethodPost, "/api/v1/listings", s.token(t, "submitter", "user"), map[string]string{
		"name":      "Eclipse RP",
		"inviteUrl": "https://discord.gg/eclipse",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create listing: %d %s", w.Code, w.Body.String())
	}
	id := dataField(t, resp, "id").(string)

	w, _ = s.do(t, http.MethodPatch, "/api/v1/listings/"+id+"/status", s.token(t, "mod", "moderator"),
		map[string]string{"status": "approved"})
	if w.Code != http.StatusOK {
		t.Fatalf("approve listing: %d %s", w.Code, w.Body.String())
	}
	return id
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || resp.Code != 0 {
		t.Errorf("/health = %d %+v", w.Code, resp)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	w, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "mlomap_http_requests_total") {
		t.Errorf("/metrics = %d, missing request counter", w.Code)
	}
}

func TestClaimFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	id := s.approvedListing(t)
	claimant := s.token(t, "claimant", "user")
	base := "/api/v1/listings/" + id + "/claim"

	w, resp := s.do(t, http.MethodPost, base+"/request-pin", "", map[string]string{"webhookUrl": webhookURL})
	if w.Code != http.StatusUnauthorized || resp.Error != "unauthenticated" {
		t.Errorf("anonymous request-pin = %d %q", w.Code, resp.Error)
	}

	w, resp = s.do(t, http.MethodPost, base+"/request-pin", claimant, map[string]string{"webhookUrl": "https://evil.example/hook"})
	if w.Code != http.StatusBadGateway || resp.Error != "resolution_failed" {
		t.Errorf("foreign webhook url = %d %q, want 502 resolution_failed", w.Code, resp.Error)
	}

	w, resp = s.do(t, http.MethodPost, base+"/request-pin", claimant, map[string]string{"webhookUrl": webhookURL})
	if w.Code != http.StatusOK {
		t.Fatalf("request-pin = %d %s", w.Code, w.Body.String())
	}
	if dataField(t, resp, "expiresAt") == nil {
		t.Error("request-pin response missing expiresAt")
	}
	pin := s.discord.lastPin()
	if len(pin) != 4 {
		t.Fatalf("delivered pin = %q", pin)
	}

	// The pending PIN must never appear in public listing JSON.
	w, _ = s.do(t, http.MethodGet, "/api/v1/listings/"+id, "", nil)
	if strings.Contains(w.Body.String(), `"pin"`) || strings.Contains(w.Body.String(), "pinRequester") {
		t.Errorf("listing JSON leaks claim state: %s", w.Body.String())
	}

	wrong := "0000"
	if pin == wrong {
		wrong = "1111"
	}
	w, resp = s.do(t, http.MethodPost, base+"/verify", claimant, map[string]string{"pin": wrong})
	if w.Code != http.StatusUnprocessableEntity || resp.Error != "wrong_pin" {
		t.Errorf("wrong pin = %d %q", w.Code, resp.Error)
	}

	w, resp = s.do(t, http.MethodPost, base+"/verify", s.token(t, "someone-else", "user"), map[string]string{"pin": pin})
	if w.Code != http.StatusForbidden || resp.Error != "wrong_requester" {
		t.Errorf("other user = %d %q", w.Code, resp.Error)
	}

	w, resp = s.do(t, http.MethodPost, base+"/verify", claimant, map[string]string{"pin": ""})
	if w.Code != http.StatusBadRequest || resp.Error != "invalid_pin" {
		t.Errorf("empty pin = %d %q", w.Code, resp.Error)
	}

	spoken := "my pin is " + strings.Join(strings.Split(pin, ""), " ") + " thanks!"
	w, resp = s.do(t, http.MethodPost, base+"/verify", claimant, map[string]string{"pin": spoken})
	if w.Code != http.StatusOK {
		t.Fatalf("verify = %d %s", w.Code, w.Body.String())
	}

	_, resp = s.do(t, http.MethodGet, "/api/v1/listings/"+id, "", nil)
	if got := dataField(t, resp, "claimedByUserId"); got != "claimant" {
		t.Errorf("claimedByUserId = %v, want claimant", got)
	}

	w, resp = s.do(t, http.MethodPost, base+"/request-pin", claimant, map[string]string{"webhookUrl": webhookURL})
	if w.Code != http.StatusConflict || resp.Error != "already_claimed" {
		t.Errorf("request-pin after claim = %d %q", w.Code, resp.Error)
	}

	w, _ = s.do(t, http.MethodPost, base+"/reset", s.token(t, "mod", "moderator"), nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("moderator reset = %d, want 403", w.Code)
	}
	w, _ = s.do(t, http.MethodPost, base+"/reset", s.token(t, "root", "admin"), nil)
	if w.Code != http.StatusOK {
		t.Errorf("admin reset = %d %s", w.Code, w.Body.String())
	}
	_, resp = s.do(t, http.MethodGet, "/api/v1/listings/"+id, "", nil)
	if got := dataField(t, resp, "claimedByUserId"); got != nil {
		t.Errorf("claimedByUserId after reset = %v", got)
	}
}

func TestClaimListingChecksComeFirst(t *testing.T) {
	s := newTestServer(t)
	claimant := s.token(t, "claimant", "user")
	base := "/api/v1/listings/does-not-exist/claim"

	tests := []struct {
		name       string
		path       string
		body       map[string]string
		wantStatus int
		wantReason string
	}{
		{"bad webhook", "/request-pin", map[string]string{"webhookUrl": "not a url"}, http.StatusNotFound, "not_found"},
		{"missing webhook", "/request-pin", map[string]string{}, http.StatusNotFound, "not_found"},
		{"empty pin", "/verify", map[string]string{"pin": ""}, http.StatusNotFound, "not_found"},
		{"long pin", "/verify", map[string]string{"pin": strings.Repeat("x", 40) + "1234"}, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := s.do(t, http.MethodPost, base+tt.path, claimant, tt.body)
			if w.Code != tt.wantStatus || resp.Error != tt.wantReason {
				t.Errorf("status = %d %q, want %d %q", w.Code, resp.Error, tt.wantStatus, tt.wantReason)
			}
		})
	}

	w, resp := s.do(t, http.MethodPost, base+"/verify", claimant, map[string]string{"pin": strings.Repeat("1", 8<<10)})
	if w.Code != http.StatusRequestEntityTooLarge || resp.Error != "too_large" {
		t.Errorf("oversized body = %d %q", w.Code, resp.Error)
	}
}

func TestClaimGuildMismatchOverHTTP(t *testing.T) {
	s := newTestServer(t)
	id := s.approvedListing(t)
	s.discord.mu.Lock()
	s.discord.webhookGuild = "G2"
	s.discord.mu.Unlock()

	w, resp := s.do(t, http.MethodPost, "/api/v1/listings/"+id+"/claim/request-pin", s.token(t, "claimant", "user"),
		map[string]string{"webhookUrl": webhookURL})
	if w.Code != http.StatusUnprocessableEntity || resp.Error != "guild_mismatch" {
		t.Errorf("mismatch = %d %q", w.Code, resp.Error)
	}
	if pin := s.discord.lastPin(); pin != "" {
		t.Errorf("pin %q delivered despite mismatch", pin)
	}
}

func TestMapEndpoints(t *testing.T) {
	s := newTestServer(t)
	user := s.token(t, "creator", "user")

	w, resp := s.do(t, http.MethodPost, "/api/v1/mlos", user, map[string]any{
		"title":    "Pillbox Hospital",
		"creator":  "Gabz",
		"category": "Hospital",
		"x":        -1520.75121,
		"y":        -1013.24609,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create mlo = %d %s", w.Code, w.Body.String())
	}
	id := dataField(t, resp, "id").(string)
	if x := dataField(t, resp, "x").(float64); x != -1520.7512 {
		t.Errorf("x = %v, want rounded -1520.7512", x)
	}

	w, _ = s.do(t, http.MethodPatch, "/api/v1/mlos/"+id+"/status", s.token(t, "mod", "moderator"),
		map[string]string{"status": "approved"})
	if w.Code != http.StatusOK {
		t.Fatalf("approve mlo = %d", w.Code)
	}

	w, resp = s.do(t, http.MethodGet, "/api/v1/map/markers", "", nil)
	markers := dataField(t, resp, "markers").([]any)
	if w.Code != http.StatusOK || len(markers) != 1 {
		t.Fatalf("markers = %d, %d entries", w.Code, len(markers))
	}

	w, resp = s.do(t, http.MethodGet, "/api/v1/map/search?x=NaN&y=0", "", nil)
	if w.Code != http.StatusBadRequest || resp.Error != "invalid_coordinates" {
		t.Errorf("NaN search = %d %q", w.Code, resp.Error)
	}

	w, resp = s.do(t, http.MethodPost, "/api/v1/map/locate", "", map[string]float64{"px": -5, "py": 10})
	if w.Code != http.StatusBadRequest || resp.Error != "invalid_coordinates" {
		t.Errorf("off-map locate = %d %q", w.Code, resp.Error)
	}

	w, _ = s.do(t, http.MethodGet, "/api/v1/map/markers.geojson", "", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/geo+json" {
		t.Errorf("geojson = %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), `"FeatureCollection"`) || !strings.Contains(w.Body.String(), "Pillbox") {
		t.Errorf("geojson body = %s", w.Body.String())
	}
}

func TestImageUploadAndServe(t *testing.T) {
	s := newTestServer(t)
	user := s.token(t, "creator", "user")

	_, resp := s.do(t, http.MethodPost, "/api/v1/mlos", user, map[string]any{"title": "Vinewood Bowl", "x": 100.0, "y": 200.0})
	id := dataField(t, resp, "id").(string)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	upload := func(data []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, _ := mw.CreateFormFile("file", "image.bin")
		part.Write(data)
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/mlos/"+id+"/image", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+user)
		w := httptest.NewRecorder()
		s.app.Router.ServeHTTP(w, req)
		return w
	}

	if w := upload([]byte("#!/bin/sh\necho hi\n")); w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("script upload = %d, want 415", w.Code)
	}

	w := upload(png)
	if w.Code != http.StatusOK {
		t.Fatalf("png upload = %d %s", w.Code, w.Body.String())
	}
	var uploaded response.Response
	json.Unmarshal(w.Body.Bytes(), &uploaded)
	key := dataField(t, uploaded, "imageKey").(string)

	req := httptest.NewRequest(http.MethodGet, "/storage/"+key, nil)
	served := httptest.NewRecorder()
	s.app.Router.ServeHTTP(served, req)
	if served.Code != http.StatusOK || served.Header().Get("Content-Type") != "image/png" {
		t.Errorf("GET /storage/%s = %d %q", key, served.Code, served.Header().Get("Content-Type"))
	}
	if !bytes.Equal(served.Body.Bytes(), png) {
		t.Error("served bytes differ from upload")
	}
}

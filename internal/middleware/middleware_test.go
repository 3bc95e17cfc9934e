package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/auth"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/authz"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT(t *testing.T) *auth.JWTManager {
	t.Helper()
	m, err := auth.NewJWTManager("middleware-test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	jwt := newJWT(t)
	r := gin.New()
	r.Use(Authenticate(jwt))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, ActorFrom(c).UserID+"/"+ActorFrom(c).Role)
	})
	r.GET("/private", RequireAuth(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	token, _ := jwt.GenerateToken("u1", "alice", auth.RoleModerator)

	if w := serve(r, http.MethodGet, "/whoami", ""); w.Code != http.StatusOK || w.Body.String() != "/" {
		t.Errorf("anonymous whoami = %d %q", w.Code, w.Body.String())
	}
	if w := serve(r, http.MethodGet, "/whoami", "Bearer "+token); w.Body.String() != "u1/moderator" {
		t.Errorf("whoami = %q, want u1/moderator", w.Body.String())
	}
	if w := serve(r, http.MethodGet, "/whoami", "Bearer garbage"); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d, want 401", w.Code)
	}
	if w := serve(r, http.MethodGet, "/whoami", "Basic Zm9vOmJhcg=="); w.Code != http.StatusUnauthorized {
		t.Errorf("basic auth = %d, want 401", w.Code)
	}
	if w := serve(r, http.MethodGet, "/private", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous private = %d, want 401", w.Code)
	}
	if w := serve(r, http.MethodGet, "/private", "Bearer "+token); w.Code != http.StatusNoContent {
		t.Errorf("authenticated private = %d, want 204", w.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	jwt := newJWT(t)
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.Use(Authenticate(jwt))
	r.POST("/reset", RequirePermission(enforcer, authz.ObjectClaims, authz.ActionReset), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	user, _ := jwt.GenerateToken("u1", "u1", auth.RoleUser)
	admin, _ := jwt.GenerateToken("u2", "u2", auth.RoleAdmin)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"user", "Bearer " + user, http.StatusForbidden},
		{"admin", "Bearer " + admin, http.StatusNoContent},
	}
	for _, tt := range tests {
		if w := serve(r, http.MethodPost, "/reset", tt.token); w.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, w.Code, tt.want)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(3, time.Minute)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("a") {
		t.Error("4th request within the window should be limited")
	}
	if !rl.Allow("b") {
		t.Error("other keys have their own bucket")
	}

	now = now.Add(20 * time.Second)
	if !rl.Allow("a") {
		t.Error("a token should refill after window/limit")
	}

	now = now.Add(2 * time.Minute)
	rl.Allow("c")
	rl.mu.Lock()
	_, kept := rl.limiters["b"]
	rl.mu.Unlock()
	if kept {
		t.Error("idle buckets should be swept")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(2, time.Minute), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = serve(r, http.MethodGet, "/", "").Code
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [204 204 429]", codes)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://mlomap.example"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://mlomap.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "https://mlomap.example" {
		t.Errorf("preflight = %d %q", w.Code, w.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://other.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unlisted origin should not be allowed")
	}
}

func TestLoggerSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(Logger())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, http.MethodGet, "/", "")
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("missing generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("request id = %q, want propagated abc-123", w.Header().Get(RequestIDHeader))
	}
}

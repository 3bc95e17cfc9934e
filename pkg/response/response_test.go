package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var r Response
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return r
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Success(c, map[string]int{"n": 1})

	r := decode(t, w)
	if w.Code != http.StatusOK || r.Code != 0 || r.Error != "" {
		t.Errorf("Success() = %d %+v", w.Code, r)
	}
}

func TestErrorHidesCause(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	InternalError(c, "Failed to load listing", errors.New("sql: database is locked"))

	r := decode(t, w)
	if w.Code != http.StatusInternalServerError || r.Error != "internal" || r.Message != "Failed to load listing" {
		t.Errorf("InternalError() = %d %+v", w.Code, r)
	}
	if len(c.Errors) != 1 {
		t.Errorf("cause not attached to context errors")
	}
}

func TestFail(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	Fail(c, http.StatusConflict, "guild_mismatch", "Webhook belongs to another community")

	r := decode(t, w)
	if w.Code != http.StatusConflict || r.Code != http.StatusConflict || r.Error != "guild_mismatch" {
		t.Errorf("Fail() = %d %+v", w.Code, r)
	}
	if !c.IsAborted() {
		t.Error("Fail() should abort the chain")
	}
}

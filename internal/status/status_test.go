package status

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzuther/lalikan/internal/backuplevel"
	"github.com/mzuther/lalikan/internal/decision"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	source := func(job string) (decision.Snapshot, bool) {
		if job != "music" {
			return decision.Snapshot{}, false
		}
		return decision.Snapshot{NeededLevel: decision.NeededLevel{Level: backuplevel.Full, Present: true}}, true
	}

	s := NewServer(Credentials{Username: "admin", PasswordHash: hash}, source, []string{"music"})
	return s, "s3cret"
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s, _ := testServer(t)
	handler := s.Handler()

	form := url.Values{"username": {"admin"}, "password": {"wrong"}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, 401, rec.Code)
}

func TestLoginSucceedsAndUnlocksStatus(t *testing.T) {
	s, password := testServer(t)
	handler := s.Handler()

	form := url.Values{"username": {"admin"}, "password": {password}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req2 := httptest.NewRequest("GET", "/api/status", nil)
	req2.AddCookie(cookies[0])
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	assert.Equal(t, 200, rec2.Code)
	assert.Contains(t, rec2.Body.String(), "music")
}

func TestStatusWithoutSessionIsUnauthorized(t *testing.T) {
	s, _ := testServer(t)
	handler := s.Handler()

	req := httptest.NewRequest("GET", "/api/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, 401, rec.Code)
}

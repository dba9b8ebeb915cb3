package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		local string
		want  string
	}{
		{"jane.doe", "Jane Doe"},
		{"bob", "Bob"},
		{"mary_ann-smith", "Mary Ann Smith"},
		{"x", "X"},
	}

	for _, tt := range tests {
		if got := displayName(tt.local); got != tt.want {
			t.Errorf("displayName(%q) = %q, want %q", tt.local, got, tt.want)
		}
	}
}

func TestSignIn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	r := gin.New()
	r.POST("/auth/signin", NewAuthHandler().SignIn)

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"email":"Jane.Doe@example.com","password":"whatever"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp SignInResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Error("no token issued")
	}
	if resp.User.Name != "Jane Doe" {
		t.Errorf("name = %q, want Jane Doe", resp.User.Name)
	}
	if resp.User.Email != "jane.doe@example.com" {
		t.Errorf("email = %q", resp.User.Email)
	}

	for _, body := range []string{
		`{"email":"","password":"x"}`,
		`{"email":"not-an-email","password":"x"}`,
		`{"password":"x"}`,
		`not json`,
	} {
		if w := post(body); w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

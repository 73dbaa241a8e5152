package web

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"guildwarden/internal/config"
	"guildwarden/internal/modcache"
	"guildwarden/internal/storage"

	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.WebConfig{
		Enabled:      true,
		Addr:         ":0",
		AdminKey:     "test-key",
		JWTSecret:    "test-secret",
		AllowOrigins: "*",
	}
	cache := modcache.New(store, zap.NewNop())
	return New(cfg, zap.NewNop(), store, cache)
}

func (s *Server) testToken(t *testing.T) string {
	t.Helper()
	token, err := s.issueToken(time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/login", strings.NewReader(`{"key":"test-key"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Token == "" {
		t.Fatal("expected a token")
	}
	if _, err := s.parseToken(body.Token); err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
}

func TestLoginWrongKey(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/login", strings.NewReader(`{"key":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/status", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("no token status = %d, want 401", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/status", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("bad token status = %d, want 401", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/status", nil)
	req.Header.Set("Authorization", "Bearer "+s.testToken(t))
	resp, err = s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("valid token status = %d, want 200", resp.StatusCode)
	}
}

func TestModerationRoundtrip(t *testing.T) {
	s := newTestServer(t)
	token := s.testToken(t)

	req := httptest.NewRequest("PUT", "/api/guilds/g1/moderation", strings.NewReader(`{"enabled":true,"action":"delete"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("put status = %d, want 200", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/guilds/g1/moderation", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var body struct {
		Enabled bool   `json:"enabled"`
		Action  string `json:"action"`
		Words   int    `json:"words"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Enabled || body.Action != "delete" {
		t.Fatalf("got %+v, want enabled delete", body)
	}

	// a valid action passes, anything else is rejected
	req = httptest.NewRequest("PUT", "/api/guilds/g1/moderation", strings.NewReader(`{"action":"warn"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("warn status = %d, want 200", resp.StatusCode)
	}

	req = httptest.NewRequest("PUT", "/api/guilds/g1/moderation", strings.NewReader(`{"action":"nuke"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("invalid action status = %d, want 400", resp.StatusCode)
	}
}

func TestAddAndDeleteWord(t *testing.T) {
	s := newTestServer(t)
	token := s.testToken(t)

	req := httptest.NewRequest("POST", "/api/guilds/g1/words", strings.NewReader(`{"word":"badword"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("post status = %d, want 201", resp.StatusCode)
	}

	// duplicate
	req = httptest.NewRequest("POST", "/api/guilds/g1/words", strings.NewReader(`{"word":"badword"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 409 {
		t.Fatalf("duplicate status = %d, want 409", resp.StatusCode)
	}

	req = httptest.NewRequest("DELETE", "/api/guilds/g1/words/badword", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 204 {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}
}

func TestWhitelistMutation(t *testing.T) {
	s := newTestServer(t)
	token := s.testToken(t)

	req := httptest.NewRequest("POST", "/api/guilds/g1/whitelist/roles", strings.NewReader(`{"id":"r1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("post status = %d, want 201", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/guilds/g1/whitelist", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var body struct {
		Roles []string `json:"roles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Roles) != 1 || body.Roles[0] != "r1" {
		t.Fatalf("roles = %v, want [r1]", body.Roles)
	}

	req = httptest.NewRequest("POST", "/api/guilds/g1/whitelist/pets", strings.NewReader(`{"id":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("bad kind status = %d, want 400", resp.StatusCode)
	}

	req = httptest.NewRequest("DELETE", "/api/guilds/g1/whitelist/roles/r1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 204 {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}
}

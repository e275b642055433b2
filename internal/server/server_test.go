package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fernwood/hearth/internal/database"
	"github.com/fernwood/hearth/internal/push"
)

type apiClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newAPIClient(t *testing.T, base string) *apiClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &apiClient{t: t, base: base, http: &http.Client{Jar: jar}}
}

func (c *apiClient) do(method, path string, body any) (*http.Response, map[string]any) {
	c.t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, buf)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		// List responses decode elsewhere; tolerate non-object bodies.
		json.Unmarshal(data, &decoded)
	}
	return resp, decoded
}

func (c *apiClient) doList(method, path string) (*http.Response, []map[string]any) {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded []map[string]any
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func startTestServer(t *testing.T) *apiClient {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := New(db, push.Config{VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv"}, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return newAPIClient(t, ts.URL)
}

func TestHealthIsPublic(t *testing.T) {
	c := startTestServer(t)

	resp, body := c.do("GET", "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	c := startTestServer(t)

	resp, _ := c.do("GET", "/api/members", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSetupLoginWorkflow(t *testing.T) {
	c := startTestServer(t)

	// Bootstrap a family with its first parent.
	resp, body := c.do("POST", "/setup", map[string]any{
		"family_name": "The Tests",
		"parent_name": "Ada",
		"pin":         "1234",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("setup status = %d: %v", resp.StatusCode, body)
	}
	family := body["family"].(map[string]any)
	parent := body["parent"].(map[string]any)
	familyID := family["id"].(string)
	parentUID := parent["uid"].(string)

	// Wrong PIN is rejected.
	resp, _ = c.do("POST", "/login", map[string]any{
		"family_id": familyID, "uid": parentUID, "pin": "9999",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong pin status = %d, want 401", resp.StatusCode)
	}

	// Correct PIN issues a session cookie.
	resp, _ = c.do("POST", "/login", map[string]any{
		"family_id": familyID, "uid": parentUID, "pin": "1234",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}

	// Add a child member with a PIN of their own.
	resp, child := c.do("POST", "/api/members", map[string]any{
		"name": "Kid", "role": "CHILD", "birth_year": 2016, "pin": "0000",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add member status = %d: %v", resp.StatusCode, child)
	}
	childUID := child["uid"].(string)

	// Create a rewarded task.
	resp, task := c.do("POST", "/api/tasks", map[string]any{
		"title": "Dishes", "frequency": "daily", "points": 10,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create task status = %d: %v", resp.StatusCode, task)
	}
	taskID := task["id"].(string)

	// The child logs in and completes it.
	kid := newAPIClient(t, c.base)
	resp, _ = kid.do("POST", "/login", map[string]any{
		"family_id": familyID, "uid": childUID, "pin": "0000",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("child login status = %d", resp.StatusCode)
	}
	resp, comp := kid.do("POST", "/api/completions", map[string]any{"task_id": taskID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create completion status = %d: %v", resp.StatusCode, comp)
	}
	if comp["status"] != "pending_approval" {
		t.Errorf("completion status = %v", comp["status"])
	}
	completionID := comp["id"].(string)

	// The child may not approve their own completion.
	resp, _ = kid.do("POST", fmt.Sprintf("/api/completions/%s/approve", completionID), nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("child approve status = %d, want 403", resp.StatusCode)
	}

	// The parent approves; the reward lands on the child's balance.
	resp, approved := c.do("POST", fmt.Sprintf("/api/completions/%s/approve", completionID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve status = %d: %v", resp.StatusCode, approved)
	}

	resp, balance := c.do("GET", fmt.Sprintf("/api/members/%s/balance", childUID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("balance status = %d", resp.StatusCode)
	}
	if balance["points"] != float64(10) {
		t.Errorf("points = %v, want 10", balance["points"])
	}

	// Approving again conflicts and carries the stable code.
	resp, conflict := c.do("POST", fmt.Sprintf("/api/completions/%s/approve", completionID), nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second approve status = %d, want 409: %v", resp.StatusCode, conflict)
	}

	// Members list shows derived age groups.
	resp, members := c.doList("GET", "/api/members")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("members status = %d", resp.StatusCode)
	}
	if len(members) != 2 {
		t.Fatalf("members = %d, want 2", len(members))
	}
	for _, m := range members {
		if m["uid"] == childUID && m["is_minor"] != true {
			t.Errorf("child should be a minor: %v", m)
		}
	}
}

func TestErrorBodyCarriesCode(t *testing.T) {
	c := startTestServer(t)

	resp, body := c.do("POST", "/setup", map[string]any{
		"family_name": "F", "parent_name": "P", "pin": "1234",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("setup: %v", body)
	}
	family := body["family"].(map[string]any)
	parent := body["parent"].(map[string]any)
	if r, _ := c.do("POST", "/login", map[string]any{
		"family_id": family["id"], "uid": parent["uid"], "pin": "1234",
	}); r.StatusCode != http.StatusOK {
		t.Fatalf("login failed")
	}

	// Role change against a missing member maps to 404 with a stable code.
	resp, errBody := c.do("POST", "/api/members/role", map[string]any{
		"target_uid": "ghost", "new_role": "TEEN", "method": "MANUAL",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if errBody["code"] != "not_found" {
		t.Errorf("code = %v, want not_found", errBody["code"])
	}
}

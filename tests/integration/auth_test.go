//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestRegisterAndLogin(t *testing.T) {
	resp := doPost(t, "/api/register", map[string]string{
		"username": "auth-flow-user",
		"email":    "auth-flow-user@example.com",
		"password": "integration-pw",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}

	sess := decodeJSON[sessionResponse](t, resp)
	resp.Body.Close()
	if sess.Token == "" {
		t.Fatal("register returned no token")
	}
	if sess.User.Username != "auth-flow-user" {
		t.Errorf("username: got %q", sess.User.Username)
	}

	resp = doPost(t, "/api/login", map[string]string{
		"username": "auth-flow-user",
		"password": "integration-pw",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}

	login := decodeJSON[sessionResponse](t, resp)
	if login.Token == "" || login.Token == sess.Token {
		t.Error("login must issue a fresh token")
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	registerUser(t, "dup-user")

	resp := doPost(t, "/api/register", map[string]string{
		"username": "dup-user",
		"password": "other-pw",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Message != "username already taken" {
		t.Errorf("message: got %q", errResp.Message)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	registerUser(t, "wrong-pw-user")

	resp := doPost(t, "/api/login", map[string]string{
		"username": "wrong-pw-user",
		"password": "not-the-password",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Message != "invalid credentials" {
		t.Errorf("message: got %q", errResp.Message)
	}
}

func TestDashboard_StaffOnly(t *testing.T) {
	// Anonymous requests are rejected outright.
	resp := doGet(t, "/dashboard")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", resp.StatusCode)
	}

	// A regular customer is authenticated but not authorized.
	customerToken := registerUser(t, "dashboard-customer")
	resp = doGetWithAuth(t, "/dashboard", customerToken)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("customer: expected 403, got %d", resp.StatusCode)
	}

	// The seeded staff account gets the order list.
	adminToken := loginAdmin(t)
	resp = doGetWithAuth(t, "/dashboard", adminToken)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("staff: expected 200, got %d", resp.StatusCode)
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"attendance/middleware"
)

func login(t *testing.T, s *testServer, username, password string) (int, LoginResponse) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/login", LoginRequest{Username: username, Password: password})
	var resp LoginResponse
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		var cookie bool
		for _, c := range rec.Result().Cookies() {
			cookie = cookie || (c.Name == middleware.TokenCookie && c.Value == resp.Token)
		}
		if !cookie {
			t.Error("login did not set the token cookie")
		}
	}
	return rec.Code, resp
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, true)

	if code, _ := login(t, s, "admin", "wrong"); code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d", code)
	}
	if code, _ := login(t, s, "nobody", "admin"); code != http.StatusUnauthorized {
		t.Errorf("unknown user status = %d", code)
	}

	code, resp := login(t, s, "admin", "admin")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !resp.MustChangePassword || resp.User == nil || resp.User.Username != "admin" {
		t.Errorf("response = %+v", resp)
	}
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t, true)

	_, resp := login(t, s, "admin", "admin")
	s.token = resp.Token

	if rec := s.do(t, http.MethodGet, "/export/report", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("export before password change status = %d", rec.Code)
	}

	tests := []struct {
		name string
		req  ChangePasswordRequest
	}{
		{"wrong current", ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "s3cret", ConfirmPassword: "s3cret"}},
		{"mismatch", ChangePasswordRequest{CurrentPassword: "admin", NewPassword: "s3cret", ConfirmPassword: "s3cret!"}},
		{"too short", ChangePasswordRequest{CurrentPassword: "admin", NewPassword: "abc", ConfirmPassword: "abc"}},
	}
	for _, tt := range tests {
		rec := s.do(t, http.MethodPost, "/change-password", tt.req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", tt.name, rec.Code)
		}
	}

	rec := s.do(t, http.MethodPost, "/change-password", ChangePasswordRequest{
		CurrentPassword: "admin",
		NewPassword:     "s3cret",
		ConfirmPassword: "s3cret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("change password status = %d: %s", rec.Code, rec.Body.String())
	}

	// Nothing has been logged yet, so the report has no data.
	if rec := s.do(t, http.MethodGet, "/export/report", nil); rec.Code != http.StatusNotFound {
		t.Errorf("export after password change status = %d", rec.Code)
	}

	s.token = ""
	if code, _ := login(t, s, "admin", "admin"); code != http.StatusUnauthorized {
		t.Errorf("old password still accepted: %d", code)
	}
	if code, resp := login(t, s, "admin", "s3cret"); code != http.StatusOK || resp.MustChangePassword {
		t.Errorf("new password login: %d %+v", code, resp)
	}
}

func TestLogout(t *testing.T) {
	s := newTestServer(t, true)

	if rec := s.do(t, http.MethodPost, "/logout", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous logout status = %d", rec.Code)
	}

	_, resp := login(t, s, "admin", "admin")
	s.token = resp.Token
	rec := s.do(t, http.MethodPost, "/logout", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		cleared = cleared || (c.Name == middleware.TokenCookie && c.MaxAge < 0)
	}
	if !cleared {
		t.Error("token cookie not cleared")
	}
}

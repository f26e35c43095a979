package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"attendance/database/dbtest"
	"attendance/models"
)

func init() {
	SetJWTSecret("test-secret")
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	if user := GetUserFromContext(r.Context()); user != nil {
		w.Header().Set("X-User", user.Username)
	}
	w.WriteHeader(http.StatusOK)
}

func TestTokenRoundTrip(t *testing.T) {
	user := &models.User{ID: 7, Username: "hr", Role: models.RoleHR}
	token, err := GenerateToken(user, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != 7 || claims.Role != models.RoleHR {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := ValidateToken(token + "x"); err == nil {
		t.Error("tampered token validated")
	}
	expired, _ := GenerateToken(user, -time.Minute)
	if _, err := ValidateToken(expired); err == nil {
		t.Error("expired token validated")
	}
}

func TestAuthMiddleware(t *testing.T) {
	db := dbtest.Open(t)
	hr := dbtest.CreateUser(t, db, "payal", "secret", models.RoleHR)
	token, err := GenerateToken(hr, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	h := AuthMiddleware(http.HandlerFunc(okHandler))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		user   string
	}{
		{"no token", func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK, "payal"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: token}) }, http.StatusOK, "payal"},
		{"bad cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: "junk"}) }, http.StatusUnauthorized, ""},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic "+token) }, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/export/report", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := rec.Header().Get("X-User"); got != tt.user {
				t.Errorf("user = %q, want %q", got, tt.user)
			}
		})
	}
}

func TestRequireRoleAndPasswordChange(t *testing.T) {
	db := dbtest.Open(t)
	employee := dbtest.CreateUser(t, db, "prathamesh", "secret", models.RoleEmployee)

	var admin models.User
	if err := db.Where("username = ?", "admin").First(&admin).Error; err != nil {
		t.Fatal(err)
	}

	chain := func(user *models.User, path string) int {
		token, err := GenerateToken(user, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		h := AuthMiddleware(RequirePasswordChange(RequireRole(models.RoleAdmin, models.RoleHR)(http.HandlerFunc(okHandler))))
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := chain(employee, "/export/report"); code != http.StatusForbidden {
		t.Errorf("employee export status = %d, want 403", code)
	}
	// The seeded admin still has the default password.
	if code := chain(&admin, "/export/report"); code != http.StatusForbidden {
		t.Errorf("admin before password change status = %d, want 403", code)
	}
	if code := chain(&admin, "/change-password"); code != http.StatusOK {
		t.Errorf("admin change-password status = %d, want 200", code)
	}
}

func TestDevice(t *testing.T) {
	var seen string
	h := Device(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = DeviceFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != DeviceCookie || cookies[0].Value != seen || seen == "" {
		t.Fatalf("first request: cookies = %v, device = %q", cookies, seen)
	}
	first := seen

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != first {
		t.Errorf("device changed from %q to %q", first, seen)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("cookie reissued for a known device")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(&http.Cookie{Name: DeviceCookie, Value: "not-a-uuid"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "not-a-uuid" || seen == "" {
		t.Errorf("malformed device cookie accepted: %q", seen)
	}
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"attendance/clock"
	"attendance/config"
	"attendance/database/dbtest"
	"attendance/holiday"
	"attendance/middleware"
	"attendance/remotelog"
	"attendance/roster"
	"attendance/session"
	"attendance/store"
)

var monday = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

const mondayKey = "2026-10-19"

type testServer struct {
	router   http.Handler
	clk      *clock.FakeClock
	remote   *remotelog.GormLog
	store    *store.Store
	sessions *session.Manager
	device   *http.Cookie
	token    string
}

func newTestServer(t *testing.T, autoEnd bool) *testServer {
	t.Helper()

	db := dbtest.Open(t)
	remote, err := remotelog.NewGormLog(dbtest.OpenRemote(t))
	if err != nil {
		t.Fatal(err)
	}

	logger := zap.NewNop()
	clk := clock.Fake(monday)
	st := store.New(db, clk, time.UTC, logger)
	cal := holiday.Default()
	rost := roster.New(db)

	sessions := session.NewManager(session.Options{
		Store:         st,
		Roster:        rost,
		Calendar:      cal,
		Journal:       remote,
		Clock:         clk,
		Location:      time.UTC,
		Logger:        logger,
		AutoEndBreaks: autoEnd,
	})
	t.Cleanup(func() { sessions.Close(context.Background()) })

	cfg := &config.Config{
		Auth: config.AuthConfig{JWTSecret: "handlers-test-secret", JWTExpiration: time.Hour},
		Org:  config.OrgConfig{Name: "Nova TechSciences"},
	}
	middleware.SetJWTSecret(cfg.Auth.JWTSecret)

	router := Router(logger,
		NewSessionHandler(sessions, rost, cal, st, remote, logger),
		NewAuthHandler(cfg),
		NewExportHandler(cfg.Org.Name, remote, st, clk, time.UTC, logger),
	)
	return &testServer{router: router, clk: clk, remote: remote, store: st, sessions: sessions}
}

// do sends a request carrying the server's device cookie and bearer token,
// remembering the device cookie the first time one is issued.
func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.device != nil {
		req.AddCookie(s.device)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.DeviceCookie {
			s.device = c
		}
	}
	return rec
}

// snapshot sends the request, expects 200 and decodes the session.
func (s *testServer) snapshot(t *testing.T, method, path string, body any) session.Snapshot {
	t.Helper()
	rec := s.do(t, method, path, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("%s %s: status %d: %s", method, path, rec.Code, rec.Body.String())
	}
	var snap session.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return snap
}

func (s *testServer) startShift(t *testing.T) {
	t.Helper()
	s.snapshot(t, http.MethodPost, "/api/session/employee", SelectEmployeeRequest{EmployeeID: "NTS-001"})
	s.snapshot(t, http.MethodPost, "/api/session/shift/start", nil)
	s.snapshot(t, http.MethodPost, "/api/session/clock-in", nil)
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp.Error
}

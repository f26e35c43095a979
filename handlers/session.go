package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"attendance/clock"
	"attendance/holiday"
	"attendance/middleware"
	"attendance/models"
	"attendance/roster"
	"attendance/session"
	"attendance/store"
)

// SessionHandler serves the employee portal. Each browser, identified by
// its device cookie, drives its own session.
type SessionHandler struct {
	sessions *session.Manager
	roster   *roster.Roster
	calendar *holiday.Calendar
	store    *store.Store
	log      LogReader
	logger   *zap.Logger
}

func NewSessionHandler(sessions *session.Manager, r *roster.Roster, cal *holiday.Calendar, st *store.Store, log LogReader, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		roster:   r,
		calendar: cal,
		store:    st,
		log:      log,
		logger:   logger,
	}
}

type SelectEmployeeRequest struct {
	EmployeeID string `json:"employee_id"`
}

type StartBreakRequest struct {
	Kind    models.BreakKind `json:"kind"`
	Minutes int              `json:"minutes"`
}

type NoteRequest struct {
	Text string `json:"text"`
}

type LeaveRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

type CalendarResponse struct {
	Date          string `json:"date"`
	Weekend       bool   `json:"weekend"`
	Holiday       bool   `json:"holiday"`
	NonWorkingDay bool   `json:"non_working_day"`
}

type HolidaysResponse struct {
	Dates []string `json:"dates"`
}

// ExportData is the personal download: the employee's record for today,
// their remote log entries and their leaves.
type ExportData struct {
	EmployeeID string                      `json:"employee_id"`
	Date       string                      `json:"date"`
	Today      *DayRecord                  `json:"today,omitempty"`
	Attendance []models.AttendanceLogEntry `json:"attendance"`
	Leaves     []models.LeaveRequest       `json:"leaves"`
}

// machine returns the device's session. Devices that never selected an
// employee have none, which reads as a missing identity.
func (h *SessionHandler) machine(r *http.Request) (*session.Machine, error) {
	m, ok := h.sessions.Lookup(middleware.DeviceFromContext(r.Context()))
	if !ok {
		return nil, session.ErrMissingIdentity
	}
	return m, nil
}

// do runs fn on the device's session and responds with the new snapshot.
func (h *SessionHandler) do(w http.ResponseWriter, r *http.Request, fn func(*session.Machine) error) {
	m, err := h.machine(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.respond(w, r, m, fn(m))
}

func (h *SessionHandler) Employees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.roster.List(r.Context())
	if err != nil {
		h.logger.Error("list employees", zap.Error(err))
		writeDomainError(w, r, err)
		return
	}
	render.JSON(w, r, employees)
}

func (h *SessionHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := clock.ParseDateKey(date); err != nil {
		writeDomainError(w, r, err)
		return
	}
	render.JSON(w, r, CalendarResponse{
		Date:          date,
		Weekend:       h.calendar.IsWeekend(date),
		Holiday:       h.calendar.IsHoliday(date),
		NonWorkingDay: h.calendar.IsNonWorkingDay(date),
	})
}

func (h *SessionHandler) Holidays(w http.ResponseWriter, r *http.Request) {
	dates := h.calendar.Dates()
	slices.Sort(dates)
	render.JSON(w, r, HolidaysResponse{Dates: dates})
}

func (h *SessionHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.sessions.Snapshot(middleware.DeviceFromContext(r.Context())))
}

func (h *SessionHandler) SelectEmployee(w http.ResponseWriter, r *http.Request) {
	var req SelectEmployeeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EmployeeID == "" {
		writeDomainError(w, r, session.ErrMissingIdentity)
		return
	}
	m, err := h.sessions.Select(r.Context(), middleware.DeviceFromContext(r.Context()), req.EmployeeID)
	h.respond(w, r, m, err)
}

func (h *SessionHandler) StartShift(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, func(m *session.Machine) error { return m.StartShift(r.Context()) })
}

func (h *SessionHandler) EndShift(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, func(m *session.Machine) error { return m.EndShift(r.Context()) })
}

func (h *SessionHandler) ClockIn(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, func(m *session.Machine) error { return m.ClockIn(r.Context()) })
}

func (h *SessionHandler) ClockOut(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, func(m *session.Machine) error { return m.ClockOut(r.Context()) })
}

func (h *SessionHandler) StartBreak(w http.ResponseWriter, r *http.Request) {
	var req StartBreakRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	h.do(w, r, func(m *session.Machine) error {
		return m.StartBreak(r.Context(), req.Kind, req.Minutes)
	})
}

func (h *SessionHandler) StopBreak(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, func(m *session.Machine) error { return m.EndBreak(r.Context()) })
}

func (h *SessionHandler) Note(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	h.do(w, r, func(m *session.Machine) error { return m.SetNote(r.Context(), req.Text) })
}

func (h *SessionHandler) Leave(w http.ResponseWriter, r *http.Request) {
	var req LeaveRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	m, err := h.machine(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	leave, err := m.FileLeave(r.Context(), req.From, req.To, req.Reason)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, leave)
}

// Countdown streams the active break's remaining seconds as server-sent
// events, ending with a "done" event.
func (h *SessionHandler) Countdown(w http.ResponseWriter, r *http.Request) {
	m, err := h.machine(r)
	if err != nil || m.State() != session.OnBreak {
		writeDomainError(w, r, session.ErrNoActiveBreak)
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for remaining := range m.Countdown(r.Context()) {
		if _, err := fmt.Fprintf(w, "data: %d\n\n", remaining); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			h.logger.Debug("countdown flush", zap.Error(err))
		}
	}
	fmt.Fprint(w, "event: done\ndata: 0\n\n")
	rc.Flush()
}

// ExportJSON downloads the selected employee's data as an indented JSON
// attachment.
func (h *SessionHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	m, err := h.machine(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	emp, ok := m.Employee()
	if !ok {
		writeDomainError(w, r, session.ErrMissingIdentity)
		return
	}
	ctx := r.Context()
	today := m.Today()

	data := ExportData{
		EmployeeID: emp.ID,
		Date:       today,
		Attendance: []models.AttendanceLogEntry{},
	}
	rec, err := h.store.Record(ctx, today, emp.ID)
	switch {
	case err == nil:
		data.Today = &DayRecord{AttendanceRecord: *rec, Breaks: rec.Breaks()}
	case !errors.Is(err, store.ErrNoRecord):
		h.logger.Error("load record for export", zap.String("employee_id", emp.ID), zap.Error(err))
		writeDomainError(w, r, err)
		return
	}

	entries, err := h.log.FetchAll(ctx)
	if err != nil {
		h.logger.Error("fetch attendance log for export", zap.Error(err))
		writeDomainError(w, r, err)
		return
	}
	for _, e := range entries {
		if e.EmployeeID == emp.ID {
			data.Attendance = append(data.Attendance, e)
		}
	}
	if data.Leaves, err = h.store.Leaves(ctx, emp.ID); err != nil {
		h.logger.Error("load leaves for export", zap.String("employee_id", emp.ID), zap.Error(err))
		writeDomainError(w, r, err)
		return
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		writeDomainError(w, r, err)
		return
	}
	attachment(w, "application/json", fmt.Sprintf("attendance_data_%s_%s.json", emp.ID, today), &buf)
}

// Day returns every stored record for the date.
func (h *SessionHandler) Day(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := clock.ParseDateKey(date); err != nil {
		writeDomainError(w, r, err)
		return
	}
	records, err := h.store.Day(r.Context(), date)
	if err != nil {
		h.logger.Error("load day", zap.String("date", date), zap.Error(err))
		writeDomainError(w, r, err)
		return
	}
	render.JSON(w, r, dayRecords(records))
}

// DayRecord adds the break map that the stored record keeps in columns.
type DayRecord struct {
	models.AttendanceRecord
	Breaks map[models.BreakKind]int `json:"breaks"`
}

func dayRecords(records []models.AttendanceRecord) []DayRecord {
	out := make([]DayRecord, len(records))
	for i, rec := range records {
		out[i] = DayRecord{AttendanceRecord: rec, Breaks: rec.Breaks()}
	}
	return out
}

func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, m *session.Machine, err error) {
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	render.JSON(w, r, m.Snapshot())
}

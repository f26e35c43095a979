package reportjob

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"attendance/clock"
	"attendance/config"
	"attendance/export"
	"attendance/models"
)

type fakeSource struct {
	entries []models.AttendanceLogEntry
	leaves  []models.LeaveLogEntry
	err     error
}

func (s *fakeSource) FetchAll(context.Context) ([]models.AttendanceLogEntry, error) {
	return s.entries, s.err
}

func (s *fakeSource) FetchLeaves(context.Context) ([]models.LeaveLogEntry, error) {
	return s.leaves, s.err
}

type sent struct {
	subject string
	att     Attachment
}

type fakeMailer struct {
	sent []sent
}

func (m *fakeMailer) Send(_ context.Context, subject, _ string, att Attachment) error {
	m.sent = append(m.sent, sent{subject, att})
	return nil
}

func newJob(src Source, mailer Mailer) *Job {
	ist, _ := time.LoadLocation("Asia/Kolkata")
	clk := clock.Fake(time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC))
	return New(src, mailer, clk, ist, zap.NewNop())
}

func TestRunMailsWorkbook(t *testing.T) {
	src := &fakeSource{entries: []models.AttendanceLogEntry{{
		Date: "2026-10-19", Time: "09:00:00", EmployeeID: "NTS-001",
		EmployeeName: "Prathamesh Shinde", Action: models.ActionShiftStart,
	}}}
	mailer := &fakeMailer{}

	if err := newJob(src, mailer).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(mailer.sent))
	}
	got := mailer.sent[0]
	if got.att.Name != "Attendance_Report_19-10-2026.xlsx" {
		t.Errorf("attachment = %q", got.att.Name)
	}
	if got.subject != "Daily Attendance Report - 19-10-2026" {
		t.Errorf("subject = %q", got.subject)
	}

	f, err := excelize.OpenReader(bytes.NewReader(got.att.Data))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(export.AttendanceSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][4] != "SHIFT_START" {
		t.Errorf("attendance sheet = %v", rows)
	}
}

func TestRunSkipsEmptyLog(t *testing.T) {
	mailer := &fakeMailer{}
	if err := newJob(&fakeSource{}, mailer).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("sent %d mails for an empty log", len(mailer.sent))
	}
}

func TestRunFetchError(t *testing.T) {
	fetchErr := errors.New("remote down")
	err := newJob(&fakeSource{err: fetchErr}, &fakeMailer{}).Run(context.Background())
	if !errors.Is(err, fetchErr) {
		t.Errorf("Run err = %v, want wrapped fetch error", err)
	}
}

func TestSchedule(t *testing.T) {
	job := newJob(&fakeSource{}, &fakeMailer{})

	c, err := job.Schedule(config.ReportConfig{Schedule: "0 18 * * *", Timezone: "Asia/Kolkata"})
	if err != nil {
		t.Fatal(err)
	}
	entries := c.Entries()
	if len(entries) != 1 {
		t.Fatalf("%d cron entries, want 1", len(entries))
	}
	from := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	if next := entries[0].Schedule.Next(from); !next.Equal(time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC)) {
		t.Errorf("next run = %v, want 18:00 IST", next.UTC())
	}

	if _, err := job.Schedule(config.ReportConfig{Schedule: "every day", Timezone: "Asia/Kolkata"}); err == nil {
		t.Error("invalid schedule accepted")
	}
	if _, err := job.Schedule(config.ReportConfig{Schedule: "0 18 * * *", Timezone: "Mars/Olympus"}); err == nil {
		t.Error("invalid timezone accepted")
	}
}

func TestSMTPMessage(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{
		From: "attendance@example.com",
		To:   []string{"hr@example.com", "ops@example.com"},
	})
	msg := m.message("Daily Attendance Report - 19-10-2026", "body", Attachment{Name: "Attendance_Report_19-10-2026.xlsx", Data: []byte("xlsx")})

	if got := msg.GetHeader("To"); len(got) != 2 {
		t.Errorf("To = %v", got)
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Attendance_Report_19-10-2026.xlsx") {
		t.Error("attachment missing from message")
	}
}

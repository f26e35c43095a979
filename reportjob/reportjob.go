// Package reportjob mails the consolidated attendance report on a daily
// schedule.
package reportjob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"attendance/clock"
	"attendance/config"
	"attendance/export"
	"attendance/models"
)

// Source is the read side of the remote log.
type Source interface {
	FetchAll(ctx context.Context) ([]models.AttendanceLogEntry, error)
	FetchLeaves(ctx context.Context) ([]models.LeaveLogEntry, error)
}

type Attachment struct {
	Name string
	Data []byte
}

type Mailer interface {
	Send(ctx context.Context, subject, body string, att Attachment) error
}

type Job struct {
	source Source
	mailer Mailer
	clock  clock.Clock
	loc    *time.Location
	logger *zap.Logger
}

func New(source Source, mailer Mailer, clk clock.Clock, loc *time.Location, logger *zap.Logger) *Job {
	return &Job{source: source, mailer: mailer, clock: clk, loc: loc, logger: logger}
}

// Run builds the report from the remote log and mails it. An empty log is
// not an error; nothing is sent.
func (j *Job) Run(ctx context.Context) error {
	entries, err := j.source.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetch attendance log: %w", err)
	}
	leaves, err := j.source.FetchLeaves(ctx)
	if err != nil {
		return fmt.Errorf("fetch leave log: %w", err)
	}

	buf, err := export.Workbook(entries, leaves)
	if errors.Is(err, export.ErrNoData) {
		j.logger.Info("daily report skipped, remote log is empty")
		return nil
	}
	if err != nil {
		return err
	}

	today := j.clock.Now().In(j.loc).Format("02-01-2006")
	att := Attachment{
		Name: fmt.Sprintf("Attendance_Report_%s.xlsx", today),
		Data: buf.Bytes(),
	}
	subject := "Daily Attendance Report - " + today
	if err := j.mailer.Send(ctx, subject, "Attached is the auto-generated attendance report.", att); err != nil {
		return fmt.Errorf("send report: %w", err)
	}

	j.logger.Info("daily report sent",
		zap.String("attachment", att.Name),
		zap.Int("entries", len(entries)),
		zap.Int("leaves", len(leaves)),
	)
	return nil
}

// Schedule registers the job on a cron running in cfg.Timezone. The caller
// starts and stops the returned scheduler.
func (j *Job) Schedule(cfg config.ReportConfig) (*cron.Cron, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("report timezone: %w", err)
	}
	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := j.Run(ctx); err != nil {
			j.logger.Error("daily report failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("report schedule %q: %w", cfg.Schedule, err)
	}
	return c, nil
}

// SMTPMailer delivers through an SMTP relay.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, subject, body string, att Attachment) error {
	msg := m.message(subject, body, att)
	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)

	done := make(chan error, 1)
	go func() { done <- d.DialAndSend(msg) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *SMTPMailer) message(subject, body string, att Attachment) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.From, "Nova Attendance System")
	msg.SetHeader("To", m.cfg.To...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	msg.Attach(att.Name, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(att.Data))
		return err
	}))
	return msg
}

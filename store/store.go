// Package store owns the local day records and leave requests. Every
// mutation is one transaction against the local database, committed before
// the call returns.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendance/clock"
	"attendance/models"
)

var (
	ErrNotClockedIn     = errors.New("no clock-in recorded for this day")
	ErrUnknownBreakKind = errors.New("unknown break kind")
	ErrNegativeMinutes  = errors.New("break minutes must not be negative")
	ErrNoRecord         = errors.New("no attendance record for this day")
)

type Store struct {
	db     *gorm.DB
	clock  clock.Clock
	loc    *time.Location
	logger *zap.Logger
}

func New(db *gorm.DB, clk clock.Clock, loc *time.Location, logger *zap.Logger) *Store {
	return &Store{db: db, clock: clk, loc: loc, logger: logger}
}

// GetOrCreate returns the day record, creating it with zeroed break totals
// if absent. Calling it again returns the same record.
func (s *Store) GetOrCreate(ctx context.Context, dateKey, employeeID string) (*models.AttendanceRecord, error) {
	var rec *models.AttendanceRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rec, err = getOrCreate(tx, dateKey, employeeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ClockIn sets the clock-in time to now. Clocking in again overwrites the
// earlier time and clears any clock-out, so TotalHours always matches the
// pair on the record.
func (s *Store) ClockIn(ctx context.Context, dateKey, employeeID string) (*models.AttendanceRecord, error) {
	now := clock.TimeOfDay(s.clock.Now(), s.loc)
	return s.update(ctx, dateKey, employeeID, func(tx *gorm.DB, rec *models.AttendanceRecord) error {
		if rec.ClockedIn() {
			s.logger.Info("clock-in overwritten",
				zap.String("employee_id", employeeID),
				zap.String("date", dateKey),
				zap.String("previous", rec.ClockIn),
			)
		}
		rec.ClockIn = now
		rec.ClockOut = ""
		rec.TotalHours = ""
		return tx.Save(rec).Error
	})
}

// ClockOut sets the clock-out time and recomputes TotalHours. Without a
// clock-in, or with a clock-out earlier than it, nothing is written.
func (s *Store) ClockOut(ctx context.Context, dateKey, employeeID string) (*models.AttendanceRecord, error) {
	now := clock.TimeOfDay(s.clock.Now(), s.loc)
	return s.update(ctx, dateKey, employeeID, func(tx *gorm.DB, rec *models.AttendanceRecord) error {
		if !rec.ClockedIn() {
			s.logger.Warn("clock-out without clock-in",
				zap.String("employee_id", employeeID),
				zap.String("date", dateKey),
			)
			return ErrNotClockedIn
		}
		total, err := clock.TotalHours(rec.ClockIn, now)
		if err != nil {
			return err
		}
		rec.ClockOut = now
		rec.TotalHours = total
		return tx.Save(rec).Error
	})
}

// AddBreakMinutes adds whole minutes to the kind's running total.
func (s *Store) AddBreakMinutes(ctx context.Context, dateKey, employeeID string, kind models.BreakKind, minutes int) (*models.AttendanceRecord, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBreakKind, kind)
	}
	if minutes < 0 {
		return nil, ErrNegativeMinutes
	}
	return s.increment(ctx, dateKey, employeeID, kind.Column(), minutes)
}

func (s *Store) RecordBreatherOverrun(ctx context.Context, dateKey, employeeID string) (*models.AttendanceRecord, error) {
	return s.increment(ctx, dateKey, employeeID, "breather_overruns", 1)
}

// SetNote replaces the day's note.
func (s *Store) SetNote(ctx context.Context, dateKey, employeeID, text string) (*models.AttendanceRecord, error) {
	return s.update(ctx, dateKey, employeeID, func(tx *gorm.DB, rec *models.AttendanceRecord) error {
		rec.Notes = text
		return tx.Save(rec).Error
	})
}

// FileLeave appends a pending leave request for the inclusive range.
func (s *Store) FileLeave(ctx context.Context, employeeID, from, to, reason string) (*models.LeaveRequest, error) {
	if err := clock.DateRange(from, to); err != nil {
		return nil, err
	}

	leave := &models.LeaveRequest{
		EmployeeID: employeeID,
		From:       from,
		To:         to,
		Reason:     reason,
		AppliedOn:  clock.DateKey(s.clock.Now(), s.loc),
		Status:     models.LeaveStatusPending,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		name, err := employeeName(tx, employeeID)
		if err != nil {
			return err
		}
		leave.EmployeeName = name
		return tx.Create(leave).Error
	})
	if err != nil {
		return nil, fmt.Errorf("file leave: %w", err)
	}
	return leave, nil
}

func (s *Store) Record(ctx context.Context, dateKey, employeeID string) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	result := s.db.WithContext(ctx).
		Where("date = ? AND employee_id = ?", dateKey, employeeID).
		Limit(1).Find(&rec)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNoRecord
	}
	return &rec, nil
}

// Day returns every record for dateKey ordered by employee id.
func (s *Store) Day(ctx context.Context, dateKey string) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("date = ?", dateKey).
		Order("employee_id asc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("load day %s: %w", dateKey, err)
	}
	return records, nil
}

// Leaves returns the leaves filed by employeeID, or every leave when
// employeeID is empty.
func (s *Store) Leaves(ctx context.Context, employeeID string) ([]models.LeaveRequest, error) {
	var leaves []models.LeaveRequest
	q := s.db.WithContext(ctx)
	if employeeID != "" {
		q = q.Where("employee_id = ?", employeeID)
	}
	if err := q.Order("id asc").Find(&leaves).Error; err != nil {
		return nil, fmt.Errorf("load leaves: %w", err)
	}
	return leaves, nil
}

func (s *Store) update(ctx context.Context, dateKey, employeeID string, fn func(*gorm.DB, *models.AttendanceRecord) error) (*models.AttendanceRecord, error) {
	var rec *models.AttendanceRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rec, err = getOrCreate(tx, dateKey, employeeID)
		if err != nil {
			return err
		}
		return fn(tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) increment(ctx context.Context, dateKey, employeeID, column string, n int) (*models.AttendanceRecord, error) {
	return s.update(ctx, dateKey, employeeID, func(tx *gorm.DB, rec *models.AttendanceRecord) error {
		err := tx.Model(&models.AttendanceRecord{}).
			Where("id = ?", rec.ID).
			UpdateColumn(column, gorm.Expr(column+" + ?", n)).Error
		if err != nil {
			return err
		}
		return tx.First(rec, rec.ID).Error
	})
}

func getOrCreate(tx *gorm.DB, dateKey, employeeID string) (*models.AttendanceRecord, error) {
	if _, err := clock.ParseDateKey(dateKey); err != nil {
		return nil, err
	}

	var rec models.AttendanceRecord
	result := tx.Where("date = ? AND employee_id = ?", dateKey, employeeID).Limit(1).Find(&rec)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		return &rec, nil
	}

	name, err := employeeName(tx, employeeID)
	if err != nil {
		return nil, err
	}
	rec = models.AttendanceRecord{
		Date:         dateKey,
		EmployeeID:   employeeID,
		EmployeeName: name,
	}
	if err := tx.Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("create day record: %w", err)
	}
	return &rec, nil
}

// employeeName denormalizes the roster name onto new rows. Unknown ids get
// an empty name; the session only passes ids it has resolved.
func employeeName(tx *gorm.DB, employeeID string) (string, error) {
	var emp models.Employee
	result := tx.Where("id = ?", employeeID).Limit(1).Find(&emp)
	if result.Error != nil {
		return "", result.Error
	}
	return emp.Name, nil
}

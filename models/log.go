package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Action string

const (
	ActionShiftStart   Action = "SHIFT_START"
	ActionShiftEnd     Action = "SHIFT_END"
	ActionClockIn      Action = "CLOCK_IN"
	ActionClockOut     Action = "CLOCK_OUT"
	ActionBreakStart   Action = "BREAK_START"
	ActionBreakEnd     Action = "BREAK_END"
	ActionLeaveApplied Action = "LEAVE_APPLIED"
)

// AttendanceLogEntry is an immutable fact appended to the remote log for
// every accepted session transition. CreatedAt gives the total order.
type AttendanceLogEntry struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Date         string    `gorm:"not null;size:10;index" json:"date"`
	Time         string    `gorm:"not null;size:8" json:"time"`
	EmployeeID   string    `gorm:"not null;size:32;index" json:"employee_id"`
	EmployeeName string    `gorm:"size:200" json:"employee_name"`
	Action       Action    `gorm:"not null;size:20" json:"action"`
	Details      string    `gorm:"size:500" json:"details"`
	CreatedAt    time.Time `gorm:"not null;index" json:"created_at"`
}

func (AttendanceLogEntry) TableName() string {
	return "attendance_logs"
}

func (e *AttendanceLogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

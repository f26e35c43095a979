package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LeaveStatus string

// Approval is handled outside this service; requests stay pending here.
const LeaveStatusPending LeaveStatus = "PENDING"

// LeaveRequest is a leave filed from the portal, kept in the local store.
// From and To are an inclusive range of day keys.
type LeaveRequest struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time   `json:"created_at"`
	EmployeeID   string      `gorm:"not null;size:32;index" json:"employee_id"`
	EmployeeName string      `gorm:"size:200" json:"employee_name"`
	From         string      `gorm:"column:from_date;not null;size:10" json:"from"`
	To           string      `gorm:"column:to_date;not null;size:10" json:"to"`
	Reason       string      `gorm:"size:1000" json:"reason"`
	AppliedOn    string      `gorm:"not null;size:10" json:"applied_on"`
	Status       LeaveStatus `gorm:"not null;size:20" json:"status"`
}

// LeaveLogEntry is the remote, append-only copy of a LeaveRequest.
type LeaveLogEntry struct {
	ID           string      `gorm:"primaryKey;size:36" json:"id"`
	EmployeeID   string      `gorm:"not null;size:32;index" json:"employee_id"`
	EmployeeName string      `gorm:"size:200" json:"employee_name"`
	From         string      `gorm:"column:from_date;not null;size:10" json:"from"`
	To           string      `gorm:"column:to_date;not null;size:10" json:"to"`
	Reason       string      `gorm:"size:1000" json:"reason"`
	AppliedOn    string      `gorm:"not null;size:10" json:"applied_on"`
	Status       LeaveStatus `gorm:"not null;size:20" json:"status"`
	CreatedAt    time.Time   `gorm:"not null;index" json:"created_at"`
}

func (LeaveLogEntry) TableName() string {
	return "leave_logs"
}

func (e *LeaveLogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// LogEntry converts a stored request into its remote form.
func (r *LeaveRequest) LogEntry(createdAt time.Time) LeaveLogEntry {
	return LeaveLogEntry{
		EmployeeID:   r.EmployeeID,
		EmployeeName: r.EmployeeName,
		From:         r.From,
		To:           r.To,
		Reason:       r.Reason,
		AppliedOn:    r.AppliedOn,
		Status:       r.Status,
		CreatedAt:    createdAt,
	}
}

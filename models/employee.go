package models

import (
	"time"
)

// Employee is a roster entry. The roster is read-only at runtime; rows are
// seeded from configuration at startup.
type Employee struct {
	ID          string    `gorm:"primaryKey;size:32" json:"id" mapstructure:"id"`
	CreatedAt   time.Time `json:"-" mapstructure:"-"`
	UpdatedAt   time.Time `json:"-" mapstructure:"-"`
	Name        string    `gorm:"not null;size:200" json:"name" mapstructure:"name"`
	ShiftWindow string    `gorm:"size:64" json:"shift_window" mapstructure:"shift_window"`
	Position    int       `gorm:"not null" json:"-" mapstructure:"-"`
}

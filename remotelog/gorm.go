package remotelog

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"attendance/models"
)

// GormLog stores both collections in a relational database, postgres in
// production.
type GormLog struct {
	db *gorm.DB
}

// NewGormLog migrates the log tables and returns the log.
func NewGormLog(db *gorm.DB) (*GormLog, error) {
	if err := db.AutoMigrate(&models.AttendanceLogEntry{}, &models.LeaveLogEntry{}); err != nil {
		return nil, fmt.Errorf("migrate remote log: %w", err)
	}
	return &GormLog{db: db}, nil
}

func (l *GormLog) Append(ctx context.Context, entry models.AttendanceLogEntry) error {
	return syncErr("append", l.db.WithContext(ctx).Create(&entry).Error)
}

func (l *GormLog) AppendLeave(ctx context.Context, entry models.LeaveLogEntry) error {
	return syncErr("append leave", l.db.WithContext(ctx).Create(&entry).Error)
}

func (l *GormLog) FetchAll(ctx context.Context) ([]models.AttendanceLogEntry, error) {
	var entries []models.AttendanceLogEntry
	err := l.db.WithContext(ctx).Order("created_at asc, id asc").Find(&entries).Error
	if err != nil {
		return nil, syncErr("fetch", err)
	}
	return entries, nil
}

func (l *GormLog) FetchLeaves(ctx context.Context) ([]models.LeaveLogEntry, error) {
	var entries []models.LeaveLogEntry
	err := l.db.WithContext(ctx).Order("created_at asc, id asc").Find(&entries).Error
	if err != nil {
		return nil, syncErr("fetch leaves", err)
	}
	return entries, nil
}

// Package roster resolves employee ids against the read-only employee list.
package roster

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"attendance/models"
)

var ErrNotFound = errors.New("employee not found")

// Roster reads the employees table seeded at startup. It never writes.
type Roster struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Roster {
	return &Roster{db: db}
}

// List returns every employee in configured order.
func (r *Roster) List(ctx context.Context) ([]models.Employee, error) {
	var employees []models.Employee
	if err := r.db.WithContext(ctx).Order("position asc").Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return employees, nil
}

func (r *Roster) Lookup(ctx context.Context, id string) (models.Employee, error) {
	var emp models.Employee
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&emp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Employee{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return models.Employee{}, fmt.Errorf("lookup employee %s: %w", id, err)
	}
	return emp, nil
}

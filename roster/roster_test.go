package roster

import (
	"context"
	"errors"
	"testing"

	"attendance/database/dbtest"
)

func TestRoster(t *testing.T) {
	r := New(dbtest.Open(t))
	ctx := context.Background()

	employees, err := r.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(employees) != len(dbtest.Roster) {
		t.Fatalf("List returned %d employees, want %d", len(employees), len(dbtest.Roster))
	}
	for i, emp := range employees {
		if emp.ID != dbtest.Roster[i].ID {
			t.Errorf("employee %d = %s, want %s", i, emp.ID, dbtest.Roster[i].ID)
		}
	}

	emp, err := r.Lookup(ctx, "NTS-003")
	if err != nil {
		t.Fatal(err)
	}
	if emp.Name != "Payal Nalavade" || emp.ShiftWindow != "9:00 AM - 6:00 PM" {
		t.Errorf("Lookup = %+v", emp)
	}

	if _, err := r.Lookup(ctx, "NTS-999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup unknown err = %v, want ErrNotFound", err)
	}
}

package models

import (
	"testing"
	"time"
)

func TestIsTerminalStatus(t *testing.T) {
	if IsTerminalStatus(StatusPending) {
		t.Errorf("pending must not be terminal")
	}
	if !IsTerminalStatus(StatusCompleted) || !IsTerminalStatus(StatusCanceled) {
		t.Errorf("completed and canceled must be terminal")
	}
}

func TestReservationIsActive(t *testing.T) {
	r := Reservation{Status: StatusPending}
	if !r.IsActive() {
		t.Errorf("pending reservation must be active")
	}
	r.Status = StatusCompleted
	if !r.IsActive() {
		t.Errorf("completed reservation still occupies its slot")
	}
	r.Status = StatusCanceled
	if r.IsActive() {
		t.Errorf("canceled reservation must free its slot")
	}
}

func TestActorPrivileges(t *testing.T) {
	for _, role := range []string{RoleManager, RoleAdmin, RoleSuperuser} {
		if !(Actor{Role: role}).IsPrivileged() {
			t.Errorf("role %s must be privileged", role)
		}
	}
	if (Actor{Role: RoleClient}).IsPrivileged() {
		t.Errorf("client must not be privileged")
	}
}

func TestActorOwns(t *testing.T) {
	r := &Reservation{UserID: "u-1"}
	if !(Actor{UserID: "u-1", Role: RoleClient}).Owns(r) {
		t.Errorf("owner must be recognized")
	}
	if (Actor{UserID: "u-2", Role: RoleClient}).Owns(r) {
		t.Errorf("non-owner must not be recognized")
	}
	if (Actor{}).Owns(r) {
		t.Errorf("empty actor must not own anything")
	}
}

func TestResourceIsAvailable(t *testing.T) {
	res := &Resource{ID: 1, Status: ResourceAvailable}
	if !res.IsAvailable() {
		t.Errorf("available resource reported unavailable")
	}
	res.Status = ResourceUnavailable
	if res.IsAvailable() {
		t.Errorf("unavailable resource reported available")
	}
	var nilRes *Resource
	if nilRes.IsAvailable() {
		t.Errorf("nil resource must not be available")
	}
}

func TestNewDayOccupancy(t *testing.T) {
	d := day("2024-06-01")
	res := &Resource{ID: 7, Capacity: 4}
	active := []Reservation{
		{ID: "r-1", Date: d, Start: 18 * 60, End: 19 * 60},
		{ID: "r-2", Date: d, Start: 19 * 60, End: 20 * 60},
	}

	occ := NewDayOccupancy(res, d, active)
	if occ.ResourceID != 7 || occ.Capacity != 4 {
		t.Errorf("unexpected resource fields: %+v", occ)
	}
	if occ.Date != "2024-06-01" {
		t.Errorf("unexpected date %s", occ.Date)
	}
	if len(occ.Booked) != 2 {
		t.Fatalf("expected 2 booked slots, got %d", len(occ.Booked))
	}
	if occ.Booked[0].Start != "18:00" || occ.Booked[0].End != "19:00" {
		t.Errorf("unexpected slot formatting: %+v", occ.Booked[0])
	}

	empty := NewDayOccupancy(nil, time.Now(), nil)
	if empty.ResourceID != 0 || len(empty.Booked) != 0 {
		t.Errorf("expected empty occupancy for nil resource")
	}
}

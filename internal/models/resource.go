package models

import "time"

// Resource is a bookable table or saloon. The booking core only reads
// resources; capacity and status changes are administrative.
type Resource struct {
	ID        int64     `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Kind      string    `yaml:"kind" json:"kind"`
	Capacity  int64     `yaml:"capacity" json:"capacity"`
	Status    string    `yaml:"status" json:"status"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}

// IsAvailable reports whether the resource accepts new reservations.
// The flag is independent of existing bookings.
func (r *Resource) IsAvailable() bool {
	return r != nil && r.Status == ResourceAvailable
}

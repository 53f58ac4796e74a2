package orgs

import (
	"errors"
	"time"
)

// ErrOrgNotFound is returned when an organization does not exist.
var ErrOrgNotFound = errors.New("organization not found")

// Organization is a tenant: the business whose leads are being converted.
type Organization struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	OwnerName              string    `json:"owner_name"`
	OwnerPhone             string    `json:"owner_phone"`
	OwnerEmail             string    `json:"owner_email"`
	Timezone               string    `json:"timezone"`
	CalendarID             string    `json:"calendar_id"`
	BookingDurationMinutes int       `json:"booking_duration_minutes"`
	CreatedAt              time.Time `json:"created_at"`
}

// Location resolves the organization's timezone, defaulting to UTC.
func (o *Organization) Location() *time.Location {
	if o == nil || o.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BookingDuration returns the consultation length, defaulting to 30 minutes.
func (o *Organization) BookingDuration() time.Duration {
	if o == nil || o.BookingDurationMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(o.BookingDurationMinutes) * time.Minute
}

// Package event holds the event records, the temporal categorizer, and
// the authenticated events cache.
package event

import "time"

// Status is the server-authoritative attendance state for one event.
type Status string

const (
	StatusPending Status = "pending"
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
)

// ParseStatus maps a server status string onto the known set. Anything
// unknown, including the empty string, defaults to pending so a freshly
// created event without an attendance record never shows an undefined
// state.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusPresent, StatusLate, StatusAbsent:
		return Status(s)
	default:
		return StatusPending
	}
}

// Record is one registered event as exposed to the UI. AttendanceStatus
// comes from the server; everything temporal is derived on read.
type Record struct {
	ID                   string    `json:"_id"`
	Name                 string    `json:"eventName"`
	Description          string    `json:"description"`
	RegisteredStudentIDs []string  `json:"registeredStudents"`
	StartTime            time.Time `json:"startTime"`
	EndTime              time.Time `json:"endTime"`
	VenueLat             float64   `json:"venueLat"`
	VenueLng             float64   `json:"venueLng"`
	AttendanceStatus     Status    `json:"attendanceStatus"`
}

// Category classifies an event relative to the current time.
type Category int

const (
	Upcoming Category = iota
	Ongoing
	Past
)

func (c Category) String() string {
	switch c {
	case Upcoming:
		return "Upcoming"
	case Ongoing:
		return "Ongoing"
	default:
		return "Past"
	}
}

// Categorize is a total pure function of (start, end, now). An event
// whose end precedes its start falls through to Past; that is the
// documented tie-break for malformed data, not an error.
func Categorize(e Record, now time.Time) Category {
	if now.Before(e.StartTime) {
		return Upcoming
	}
	if !now.After(e.EndTime) {
		return Ongoing
	}
	return Past
}

// CanClockIn reports clock-in eligibility: the event is ongoing and the
// server has not yet recorded attendance. Recomputed on every call since
// now advances continuously.
func CanClockIn(e Record, now time.Time) bool {
	return Categorize(e, now) == Ongoing && e.AttendanceStatus == StatusPending
}

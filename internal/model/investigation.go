package model

import "time"

// DefaultDroneImage is the sentinel photo reference used when an
// investigation is created without an uploaded picture.
const DefaultDroneImage = "default-drone.png"

// Workflow status labels. Status is stored as a free-form string and no
// transition table is enforced: any status may follow any other. The
// constants exist so handlers and seed data agree on spelling.
const (
	StatusPending    = "Pending"
	StatusAnalysis   = "Analysis"
	StatusInProgress = "In Progress"
	StatusLive       = "Live"
	StatusCompleted  = "Completed"
)

// Investigation is a user-owned case record. The owner (AccountID) is
// set at creation and never changes; every read and mutation is scoped
// to it. CreatedAt is set once by the database and is immutable; it is
// not touched by status changes or edits.
//
// Fields:
//  ID          – primary key identifier.
//  AccountID   – owning account, immutable after insert.
//  Title       – required, at most 100 chars.
//  Location    – free-text location of the incident.
//  DroneType   – free-text drone model/type.
//  Description – free-text case notes.
//  Status      – workflow label, see the Status* constants.
//  DroneImage  – photo filename, DefaultDroneImage when none uploaded.
//  CreatedAt   – creation timestamp, immutable.
type Investigation struct {
	ID          uint64    // investigations.id
	AccountID   uint64    // investigations.account_id
	Title       string    // investigations.title
	Location    string    // investigations.location
	DroneType   string    // investigations.drone_type
	Description string    // investigations.description
	Status      string    // investigations.status
	DroneImage  string    // investigations.drone_image
	CreatedAt   time.Time // investigations.created_at
}

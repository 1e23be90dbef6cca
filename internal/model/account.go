package model

import "time"

// DefaultProfilePic is the sentinel avatar reference assigned to every
// account until the user uploads a picture of their own.
const DefaultProfilePic = "default-profile-pic.png"

// Account represents a row in the `accounts` table. Each field maps to a
// column. The password is never stored in plain text; only the bcrypt
// hash is persisted. Profile fields beyond username/email are optional
// and may be empty strings.
//
// Fields:
//  ID            – primary key identifier of the account.
//  Username      – unique login/display name (3–80 chars).
//  Email         – unique email address.
//  PasswordHash  – bcrypt hash of the password.
//  ProfilePic    – filename of the avatar, DefaultProfilePic when unset.
//  FirstName     – optional given name.
//  LastName      – optional family name.
//  Bio           – optional free-text description.
//  Role          – profile label (Professional, Hobbyist, Student, ...).
//  Organization  – optional company or university.
//  WebsiteURL    – optional personal/company URL.
//  CreatedAt     – timestamp of sign-up.
//  UpdatedAt     – timestamp of last profile change.
type Account struct {
	ID           uint64    // accounts.id
	Username     string    // accounts.username
	Email        string    // accounts.email
	PasswordHash string    // accounts.password_hash
	ProfilePic   string    // accounts.profile_pic_url
	FirstName    string    // accounts.first_name
	LastName     string    // accounts.last_name
	Bio          string    // accounts.bio
	Role         string    // accounts.role
	Organization string    // accounts.organization
	WebsiteURL   string    // accounts.website_url
	CreatedAt    time.Time // accounts.created_at
	UpdatedAt    time.Time // accounts.updated_at
}

// ProfileRoles lists the accepted values for the profile role label.
// The role is descriptive metadata only; it grants no permissions.
var ProfileRoles = []string{"Professional", "Hobbyist", "Student", "Researcher", "Other"}

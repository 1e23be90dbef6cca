// Package validate holds pure validation functions for request input.
// Each function takes raw field values and returns a FieldErrors map;
// an empty map means the input is acceptable. Nothing in here touches
// the database: uniqueness of usernames and emails is checked by the
// handlers against the repository, which merge their findings into the
// same FieldErrors value before replying.
package validate

import (
	"net/mail"
	"strings"

	"github.com/skywatch/drone-investigations/internal/model"
)

// Field length limits shared with the schema.
const (
	UsernameMin     = 3
	UsernameMax     = 80
	PasswordMin     = 6
	NameMax         = 80
	OrganizationMax = 120
	WebsiteMax      = 200
	TitleMax        = 100
)

// FieldErrors maps a field name to a human-readable problem with it.
type FieldErrors map[string]string

// OK reports whether no field failed validation.
func (fe FieldErrors) OK() bool { return len(fe) == 0 }

// SignUp carries the raw sign-up form fields.
type SignUp struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// CheckSignUp validates a sign-up request. Uniqueness of username and
// email is not checked here.
func CheckSignUp(in SignUp) FieldErrors {
	fe := FieldErrors{}
	checkUsername(fe, in.Username)
	checkEmail(fe, in.Email)
	if len(in.Password) < PasswordMin {
		fe["password"] = "password must be at least 6 characters"
	}
	if in.ConfirmPassword != in.Password {
		fe["confirm_password"] = "passwords do not match"
	}
	return fe
}

// Profile carries the raw profile-update form fields.
type Profile struct {
	Username     string
	Email        string
	FirstName    string
	LastName     string
	Role         string
	Organization string
	WebsiteURL   string
	Bio          string
}

// CheckProfile validates a profile update. The role label, when
// supplied, must be one of the known profile roles.
func CheckProfile(in Profile) FieldErrors {
	fe := FieldErrors{}
	checkUsername(fe, in.Username)
	checkEmail(fe, in.Email)
	if len(in.FirstName) > NameMax {
		fe["first_name"] = "first name is too long"
	}
	if len(in.LastName) > NameMax {
		fe["last_name"] = "last name is too long"
	}
	if len(in.Organization) > OrganizationMax {
		fe["organization"] = "organization is too long"
	}
	if len(in.WebsiteURL) > WebsiteMax {
		fe["website_url"] = "website URL is too long"
	}
	if in.Role != "" && !knownRole(in.Role) {
		fe["role"] = "unknown role"
	}
	return fe
}

// CheckTitle validates the required title shared by investigations and
// reports: non-empty after trimming and at most 100 characters.
func CheckTitle(title string) FieldErrors {
	fe := FieldErrors{}
	t := strings.TrimSpace(title)
	if t == "" {
		fe["title"] = "title is required"
	} else if len(t) > TitleMax {
		fe["title"] = "title must be at most 100 characters"
	}
	return fe
}

func checkUsername(fe FieldErrors, username string) {
	u := strings.TrimSpace(username)
	if len(u) < UsernameMin || len(u) > UsernameMax {
		fe["username"] = "username must be 3-80 characters"
	}
}

func checkEmail(fe FieldErrors, email string) {
	e := strings.TrimSpace(email)
	if e == "" {
		fe["email"] = "email is required"
		return
	}
	// mail.ParseAddress accepts "Name <addr>" forms; require a bare address.
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		fe["email"] = "invalid email address"
	}
}

func knownRole(role string) bool {
	for _, r := range model.ProfileRoles {
		if r == role {
			return true
		}
	}
	return false
}

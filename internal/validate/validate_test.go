package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckSignUp(t *testing.T) {
	tests := []struct {
		name string
		in   SignUp
		want []string // fields expected to fail
	}{
		{
			name: "valid",
			in:   SignUp{Username: "alice", Email: "alice@example.com", Password: "secret1", ConfirmPassword: "secret1"},
		},
		{
			name: "username too short",
			in:   SignUp{Username: "al", Email: "alice@example.com", Password: "secret1", ConfirmPassword: "secret1"},
			want: []string{"username"},
		},
		{
			name: "username too long",
			in:   SignUp{Username: strings.Repeat("a", UsernameMax+1), Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret1"},
			want: []string{"username"},
		},
		{
			name: "bad email",
			in:   SignUp{Username: "alice", Email: "not-an-email", Password: "secret1", ConfirmPassword: "secret1"},
			want: []string{"email"},
		},
		{
			name: "display-name email rejected",
			in:   SignUp{Username: "alice", Email: "Alice <alice@example.com>", Password: "secret1", ConfirmPassword: "secret1"},
			want: []string{"email"},
		},
		{
			name: "short password",
			in:   SignUp{Username: "alice", Email: "alice@example.com", Password: "12345", ConfirmPassword: "12345"},
			want: []string{"password"},
		},
		{
			name: "mismatched confirmation",
			in:   SignUp{Username: "alice", Email: "alice@example.com", Password: "secret1", ConfirmPassword: "secret2"},
			want: []string{"confirm_password"},
		},
		{
			name: "everything wrong at once",
			in:   SignUp{Username: "x", Email: "", Password: "1", ConfirmPassword: "2"},
			want: []string{"username", "email", "password", "confirm_password"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := CheckSignUp(tt.in)
			if len(tt.want) == 0 {
				assert.True(t, fe.OK(), "expected no errors, got %v", fe)
				return
			}
			assert.Len(t, fe, len(tt.want))
			for _, field := range tt.want {
				assert.Contains(t, fe, field)
			}
		})
	}
}

func TestCheckProfile(t *testing.T) {
	base := Profile{Username: "alice", Email: "alice@example.com"}

	fe := CheckProfile(base)
	assert.True(t, fe.OK())

	long := base
	long.Organization = strings.Repeat("x", OrganizationMax+1)
	long.WebsiteURL = strings.Repeat("x", WebsiteMax+1)
	fe = CheckProfile(long)
	assert.Contains(t, fe, "organization")
	assert.Contains(t, fe, "website_url")

	badRole := base
	badRole.Role = "Supreme Leader"
	fe = CheckProfile(badRole)
	assert.Contains(t, fe, "role")

	goodRole := base
	goodRole.Role = "Researcher"
	fe = CheckProfile(goodRole)
	assert.True(t, fe.OK(), "known role must pass, got %v", fe)
}

func TestCheckTitle(t *testing.T) {
	assert.True(t, CheckTitle("Perimeter Breach").OK())
	assert.Contains(t, CheckTitle("   "), "title")
	assert.Contains(t, CheckTitle(strings.Repeat("a", TitleMax+1)), "title")
	// exactly at the limit is fine
	assert.True(t, CheckTitle(strings.Repeat("a", TitleMax)).OK())
}

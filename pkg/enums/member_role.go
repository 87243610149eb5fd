package enums

import "fmt"

// MemberRole identifies the actor class carried in access tokens.
type MemberRole string

const (
	MemberRoleCreator    MemberRole = "creator"
	MemberRoleAdvertiser MemberRole = "advertiser"
	MemberRoleAdmin      MemberRole = "admin"
)

var validMemberRoles = []MemberRole{
	MemberRoleCreator,
	MemberRoleAdvertiser,
	MemberRoleAdmin,
}

// IsValid reports whether the role is recognized.
func (r MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseMemberRole converts raw input into MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}

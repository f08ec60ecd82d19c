package valueobjects

import "strings"

// Role is a project member's permission level
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleEditor Role = "EDITOR"
	RoleViewer Role = "VIEWER"
)

// ParseRole normalizes a role name. The second result is false for unknown roles.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleOwner:
		return RoleOwner, true
	case RoleEditor:
		return RoleEditor, true
	case RoleViewer:
		return RoleViewer, true
	default:
		return "", false
	}
}

// CanEdit reports whether the role may mutate diagrams
func (r Role) CanEdit() bool {
	return r == RoleOwner || r == RoleEditor
}

// String returns the string representation
func (r Role) String() string {
	return string(r)
}

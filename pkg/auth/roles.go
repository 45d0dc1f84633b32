package auth

import "strings"

// Role is a user's permission level in the practice.
type Role string

const (
	RoleSuperAdmin Role = "SuperAdmin"
	RoleAdmin      Role = "Admin"
	RoleLawyer     Role = "Lawyer"
	RoleAssistant  Role = "assistant"
	RoleViewer     Role = "Viewer"
)

// ParseRole maps a backend role name onto a Role. Matching is by
// case-insensitive substring, most privileged first. Unknown names map to
// RoleViewer.
func ParseRole(name string) Role {
	s := strings.ToLower(name)
	switch {
	case strings.Contains(s, "superadmin"):
		return RoleSuperAdmin
	case strings.Contains(s, "admin"):
		return RoleAdmin
	case strings.Contains(s, "lawyer"):
		return RoleLawyer
	case strings.Contains(s, "assistant"):
		return RoleAssistant
	default:
		return RoleViewer
	}
}

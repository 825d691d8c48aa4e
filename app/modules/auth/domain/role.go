package authdomain

// Role represents a user's role for authorization purposes.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleCoach  Role = "coach"
	RoleAdmin  Role = "admin"
)

// IsValid checks if the role is a valid value.
func (r Role) IsValid() bool {
	switch r {
	case RoleViewer, RoleCoach, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanWrite reports whether the role may change team data.
func (r Role) CanWrite() bool {
	return r == RoleCoach || r == RoleAdmin
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

package models

// RoleType defines the user role
type RoleType string

const (
	RoleUser     RoleType = "user"
	RoleAdmin    RoleType = "admin"
	RoleOperator RoleType = "operator"
)

// Valid reports whether r is one of the known roles
func (r RoleType) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleOperator:
		return true
	}
	return false
}

// CanModerate reports whether the role may remove other users' content.
func (r RoleType) CanModerate() bool {
	return r == RoleAdmin || r == RoleOperator
}

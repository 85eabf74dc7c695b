package models

type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleTeacher    UserRole = "teacher"
	RoleController UserRole = "controller"
	RoleAdmin      UserRole = "admin"
)

// CanOverride reports whether the role may apply manual score corrections.
func (r UserRole) CanOverride() bool {
	return r == RoleController || r == RoleAdmin
}

// CanGrantRetake reports whether the role may authorize a fresh attempt for a
// student with a completed one.
func (r UserRole) CanGrantRetake() bool {
	return r == RoleController || r == RoleAdmin
}

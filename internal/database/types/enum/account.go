package enum

// AccountRole is the forum role of an account.
type AccountRole string

const (
	AccountRoleUser      AccountRole = "user"
	AccountRoleModerator AccountRole = "moderator"
	AccountRoleAdmin     AccountRole = "admin"
)

// IsStaff reports whether the role is moderator or admin.
func (r AccountRole) IsStaff() bool {
	return r == AccountRoleModerator || r == AccountRoleAdmin
}

// Valid reports whether the role is a known value.
func (r AccountRole) Valid() bool {
	switch r {
	case AccountRoleUser, AccountRoleModerator, AccountRoleAdmin:
		return true
	}
	return false
}

package models

// Role ids seeded by the initial migration. The credential core stores the
// reference without interpreting it.
const (
	RoleAdministrator int64 = 1
	RoleAssistant     int64 = 2
	RoleMember        int64 = 3
)

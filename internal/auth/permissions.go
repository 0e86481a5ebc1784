package auth

import "slices"

// Permission represents a named capability in the system.
type Permission string

const (
	PermCameraRead    Permission = "camera:read"
	PermCameraOperate Permission = "camera:operate"
	PermScheduleRead  Permission = "schedule:read"
	PermSchedulerRun  Permission = "scheduler:run"
	PermAuditRead     Permission = "audit:read"
)

var readPermissions = []Permission{PermCameraRead, PermScheduleRead, PermAuditRead}

// rolePermissions maps each role to its granted permissions.
var rolePermissions = map[Role][]Permission{
	RoleViewer:   readPermissions,
	RoleOperator: append(slices.Clone(readPermissions), PermCameraOperate),
	RoleAdmin:    append(slices.Clone(readPermissions), PermCameraOperate, PermSchedulerRun),
	RoleService:  append(slices.Clone(readPermissions), PermCameraOperate, PermSchedulerRun),
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	return slices.Clone(perms)
}

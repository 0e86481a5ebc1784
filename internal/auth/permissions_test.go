package auth

import "testing"

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleViewer, PermCameraRead, true},
		{RoleViewer, PermAuditRead, true},
		{RoleViewer, PermCameraOperate, false},
		{RoleViewer, PermSchedulerRun, false},
		{RoleOperator, PermCameraOperate, true},
		{RoleOperator, PermSchedulerRun, false},
		{RoleAdmin, PermSchedulerRun, true},
		{RoleService, PermSchedulerRun, true},
		{"owner", PermCameraRead, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.perm), func(t *testing.T) {
			if got := HasPermission(tt.role, tt.perm); got != tt.want {
				t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.want)
			}
		})
	}
}

func TestPermissionsForRole_ReturnsCopy(t *testing.T) {
	perms := PermissionsForRole(RoleViewer)
	if len(perms) == 0 {
		t.Fatal("expected viewer permissions")
	}
	perms[0] = PermSchedulerRun

	if HasPermission(RoleViewer, PermSchedulerRun) {
		t.Error("mutating the returned slice must not grant permissions")
	}
	if PermissionsForRole("unknown") != nil {
		t.Error("unknown role should have no permissions")
	}
}

func TestIsValidRole(t *testing.T) {
	for _, r := range ValidRoles {
		if !IsValidRole(r) {
			t.Errorf("IsValidRole(%q) = false", r)
		}
	}
	if IsValidRole("panel") {
		t.Error("IsValidRole(panel) = true, want false")
	}
}

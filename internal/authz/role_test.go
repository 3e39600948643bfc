package authz

import (
	"errors"
	"testing"
)

func TestResolveRole_PriorityOrderIndependent(t *testing.T) {
	cases := []struct {
		name   string
		groups []string
		want   Role
	}{
		{"admin only", []string{"admin"}, RoleAdmin},
		{"contributor only", []string{"contributor"}, RoleContributor},
		{"viewer only", []string{"viewer"}, RoleViewer},
		{"admin last wins", []string{"viewer", "admin"}, RoleAdmin},
		{"admin first wins", []string{"admin", "viewer"}, RoleAdmin},
		{"contributor beats viewer", []string{"viewer", "contributor"}, RoleContributor},
		{"unrecognized ignored", []string{"billing", "contributor", "oncall"}, RoleContributor},
		{"case insensitive", []string{"Admin"}, RoleAdmin},
		{"uppercase", []string{"VIEWER"}, RoleViewer},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveRole(tc.groups)
			if err != nil {
				t.Fatalf("ResolveRole(%v): unexpected error %v", tc.groups, err)
			}
			if got != tc.want {
				t.Fatalf("ResolveRole(%v) = %v, want %v", tc.groups, got, tc.want)
			}
		})
	}
}

func TestResolveRole_NoRecognizedGroup(t *testing.T) {
	for _, groups := range [][]string{nil, {}, {"billing"}, {"", "oncall"}} {
		_, err := ResolveRole(groups)
		if !errors.Is(err, ErrNoRoleAssigned) {
			t.Fatalf("ResolveRole(%v): expected ErrNoRoleAssigned, got %v", groups, err)
		}
	}
}

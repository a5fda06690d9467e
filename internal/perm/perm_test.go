package perm

import "testing"

func TestResolve(t *testing.T) {
	collabs := []Collaborator{
		{UserID: 2, Role: RoleEditor},
		{UserID: 3, Role: RoleViewer},
	}

	cases := []struct {
		name     string
		userID   uint64
		isPublic bool
		want     Capability
	}{
		{"owner", 1, false, Capability{CanView: true, CanEdit: true}},
		{"editor", 2, false, Capability{CanView: true, CanEdit: true}},
		{"viewer", 3, false, Capability{CanView: true}},
		{"stranger private", 4, false, Capability{}},
		{"stranger public", 4, true, Capability{CanView: true}},
		{"owner wins over public", 1, true, Capability{CanView: true, CanEdit: true}},
	}
	for _, tc := range cases {
		got := Resolve(1, collabs, tc.isPublic, tc.userID)
		if got != tc.want {
			t.Fatalf("%s: Resolve() = %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

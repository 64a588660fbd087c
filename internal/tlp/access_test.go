package tlp

import (
	"testing"

	"github.com/vulnradar/vulnradar/internal/types"
)

func tlpPtr(r types.TLPRating) *types.TLPRating { return &r }

func TestVisibleRatings(t *testing.T) {
	tests := []struct {
		name   string
		role   types.Role
		filter *types.TLPRating
		want   []types.TLPRating
	}{
		{
			name: "employee sees green only",
			role: types.RoleEmployee,
			want: []types.TLPRating{types.TLPGreen},
		},
		{
			name: "manager sees green and amber",
			role: types.RoleManager,
			want: []types.TLPRating{types.TLPGreen, types.TLPAmber},
		},
		{
			name: "admin without filter sees all",
			role: types.RoleAdmin,
			want: []types.TLPRating{types.TLPGreen, types.TLPAmber, types.TLPRed},
		},
		{
			name:   "admin filter narrows to red",
			role:   types.RoleAdmin,
			filter: tlpPtr(types.TLPRed),
			want:   []types.TLPRating{types.TLPRed},
		},
		{
			name:   "admin invalid filter ignored",
			role:   types.RoleAdmin,
			filter: tlpPtr(types.TLPRating("PURPLE")),
			want:   []types.TLPRating{types.TLPGreen, types.TLPAmber, types.TLPRed},
		},
		{
			name:   "manager ignores filter",
			role:   types.RoleManager,
			filter: tlpPtr(types.TLPRed),
			want:   []types.TLPRating{types.TLPGreen, types.TLPAmber},
		},
		{
			name:   "employee ignores filter",
			role:   types.RoleEmployee,
			filter: tlpPtr(types.TLPAmber),
			want:   []types.TLPRating{types.TLPGreen},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VisibleRatings(tt.role, tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("VisibleRatings = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("VisibleRatings = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestIsVisible(t *testing.T) {
	if IsVisible(types.RoleEmployee, types.TLPAmber, nil) {
		t.Error("employee should not see AMBER")
	}
	if !IsVisible(types.RoleManager, types.TLPAmber, nil) {
		t.Error("manager should see AMBER")
	}
	if IsVisible(types.RoleManager, types.TLPRed, nil) {
		t.Error("manager should not see RED")
	}
	if !IsVisible(types.RoleAdmin, types.TLPRed, nil) {
		t.Error("admin should see RED")
	}
	if IsVisible(types.RoleAdmin, types.TLPGreen, tlpPtr(types.TLPRed)) {
		t.Error("admin with RED filter should not see GREEN")
	}
}

func TestCanAssign(t *testing.T) {
	tests := []struct {
		name      string
		rating    types.TLPRating
		candidate types.Role
		want      bool
	}{
		{name: "employee can take green", rating: types.TLPGreen, candidate: types.RoleEmployee, want: true},
		{name: "employee cannot take amber", rating: types.TLPAmber, candidate: types.RoleEmployee, want: false},
		{name: "employee cannot take red", rating: types.TLPRed, candidate: types.RoleEmployee, want: false},
		{name: "manager can take green", rating: types.TLPGreen, candidate: types.RoleManager, want: true},
		{name: "manager can take amber", rating: types.TLPAmber, candidate: types.RoleManager, want: true},
		{name: "manager cannot take red", rating: types.TLPRed, candidate: types.RoleManager, want: false},
		{name: "admin never assignable green", rating: types.TLPGreen, candidate: types.RoleAdmin, want: false},
		{name: "admin never assignable red", rating: types.TLPRed, candidate: types.RoleAdmin, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAssign(tt.rating, tt.candidate); got != tt.want {
				t.Errorf("CanAssign(%v, %v) = %v, want %v", tt.rating, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestClearanceOrdering(t *testing.T) {
	if !(Clearance(types.RoleEmployee).Level() < Clearance(types.RoleManager).Level()) {
		t.Error("employee clearance should rank below manager")
	}
	if !(Clearance(types.RoleManager).Level() < Clearance(types.RoleAdmin).Level()) {
		t.Error("manager clearance should rank below admin")
	}
}

package tlp

import "github.com/vulnradar/vulnradar/internal/types"

// Visibility and the assignment gate both derive from the same role map but
// stay separate functions: per-user clearance overrides are a plausible
// future divergence and collapsing them would bake the coupling in.

// Clearance returns the TLP level a role is permitted to handle.
func Clearance(role types.Role) types.TLPRating {
	switch role {
	case types.RoleAdmin:
		return types.TLPRed
	case types.RoleManager:
		return types.TLPAmber
	default:
		return types.TLPGreen
	}
}

// VisibleRatings returns the ratings a role may see in listings. An explicit
// filter narrows the result for admins only; non-admins ignore it.
func VisibleRatings(role types.Role, filter *types.TLPRating) []types.TLPRating {
	switch role {
	case types.RoleAdmin:
		if filter != nil && filter.Valid() {
			return []types.TLPRating{*filter}
		}
		return []types.TLPRating{types.TLPGreen, types.TLPAmber, types.TLPRed}
	case types.RoleManager:
		return []types.TLPRating{types.TLPGreen, types.TLPAmber}
	default:
		return []types.TLPRating{types.TLPGreen}
	}
}

// IsVisible reports whether a vulnerability with the given rating is shown
// to a user with the given role, honoring an optional admin filter.
func IsVisible(role types.Role, rating types.TLPRating, filter *types.TLPRating) bool {
	for _, r := range VisibleRatings(role, filter) {
		if r == rating {
			return true
		}
	}
	return false
}

// CanAssign reports whether a user with the candidate role may be assigned a
// vulnerability carrying the given rating. Admins assign; they are never
// assignees. A RED vulnerability therefore has no valid assignee under the
// current role model.
func CanAssign(rating types.TLPRating, candidate types.Role) bool {
	if candidate == types.RoleAdmin {
		return false
	}
	return Clearance(candidate).Level() >= rating.Level()
}

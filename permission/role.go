package permission

import "errors"

// Role identifies one of the four fixed account kinds of the marketplace.
// Exactly one role per user; there is no multi-role composition.
//
// Role instances are intended to be decoded once from a credential claim and
// then treated as immutable.
type Role uint8

const (
	// RoleNone is the absent role: an unauthenticated caller. Every
	// authorization decision for RoleNone is deny.
	RoleNone Role = iota
	// RoleRestaurantManager is an exported constant used by authorization checks.
	RoleRestaurantManager
	// RoleRestaurantOwner is an exported constant used by authorization checks.
	RoleRestaurantOwner
	// RoleVendor is an exported constant used by authorization checks.
	RoleVendor
	// RoleAdministrator is an exported constant used by authorization checks.
	RoleAdministrator
)

// ErrUnknownRole is returned when a role claim does not name one of the four
// fixed account kinds.
var ErrUnknownRole = errors.New("unknown role")

var roleNames = map[Role]string{
	RoleNone:              "",
	RoleAdministrator:     "administrator",
	RoleVendor:            "vendor",
	RoleRestaurantOwner:   "restaurant_owner",
	RoleRestaurantManager: "restaurant_manager",
}

// String returns the wire name of the role, or "" for [RoleNone].
func (r Role) String() string {
	return roleNames[r]
}

// Rank returns the privilege rank of the role. Higher is more privileged:
// administrator 4 > vendor 3 > restaurant owner 2 > restaurant manager 1.
// Rank is independent of the capability table and only backs
// "at-least-this-privileged" checks; use [Table.Allowed] for capability gating.
func (r Role) Rank() int {
	switch r {
	case RoleAdministrator:
		return 4
	case RoleVendor:
		return 3
	case RoleRestaurantOwner:
		return 2
	case RoleRestaurantManager:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r holds a rank greater than or equal to min.
// RoleNone is never at least anything but RoleNone.
func (r Role) AtLeast(min Role) bool {
	if r == RoleNone {
		return min == RoleNone
	}
	return r.Rank() >= min.Rank()
}

// Known reports whether r is one of the four account kinds.
func (r Role) Known() bool {
	return r >= RoleRestaurantManager && r <= RoleAdministrator
}

// ParseRole decodes a role claim string into a [Role]. Both snake_case wire
// names and the camelCase spellings emitted by older API versions are
// accepted. Unknown strings return [ErrUnknownRole].
func ParseRole(s string) (Role, error) {
	switch s {
	case "administrator", "admin":
		return RoleAdministrator, nil
	case "vendor":
		return RoleVendor, nil
	case "restaurant_owner", "restaurantOwner":
		return RoleRestaurantOwner, nil
	case "restaurant_manager", "restaurantManager":
		return RoleRestaurantManager, nil
	default:
		return RoleNone, ErrUnknownRole
	}
}

// MarshalText implements encoding.TextMarshaler using the wire name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input yields
// [RoleNone]; anything else must parse as a known role.
func (r *Role) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = RoleNone
		return nil
	}

	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}

	*r = parsed
	return nil
}

// Roles lists the four account kinds in descending rank order.
func Roles() []Role {
	return []Role{RoleAdministrator, RoleVendor, RoleRestaurantOwner, RoleRestaurantManager}
}

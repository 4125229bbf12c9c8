package permission

import (
	"fmt"
	"sort"
	"sync"
)

// Table maps capability names to bit positions and roles to capability
// bitmasks. It is static configuration data: the grant sets are fixed at
// construction and changing them means shipping a new build, not a live
// migration.
//
// Table instances are safe for concurrent readers after construction.
type Table struct {
	mu        sync.RWMutex
	nameToBit map[Capability]int
	bitToName map[int]Capability
	grants    map[Role]Mask64
}

// defaultGrants is the shipped role→capability configuration. Restaurant
// owner and restaurant manager intentionally carry identical sets; only
// their ranks differ.
var defaultGrants = map[Role][]Capability{
	RoleAdministrator: {
		CapManageUsers,
		CapManageVendors,
		CapManageRestaurants,
		CapReports,
		CapListings,
		CapOrders,
		CapProfile,
	},
	RoleVendor: {
		CapListings,
		CapOrders,
		CapReports,
		CapProfile,
	},
	RoleRestaurantOwner: {
		CapListings,
		CapOrders,
		CapCart,
		CapCheckout,
		CapProfile,
	},
	RoleRestaurantManager: {
		CapListings,
		CapOrders,
		CapCart,
		CapCheckout,
		CapProfile,
	},
}

// NewTable builds the shipped permission table: every catalogue capability
// gets a bit position in declaration order, then each role's grant list is
// folded into a [Mask64].
func NewTable() *Table {
	t, err := newTable(defaultGrants)
	if err != nil {
		// defaultGrants only references catalogue capabilities; a failure
		// here is a programming error in this package.
		panic(err)
	}
	return t
}

func newTable(grants map[Role][]Capability) (*Table, error) {
	t := &Table{
		nameToBit: make(map[Capability]int, len(catalogue)),
		bitToName: make(map[int]Capability, len(catalogue)),
		grants:    make(map[Role]Mask64, len(grants)),
	}

	for i, cap := range catalogue {
		if i >= 64 {
			return nil, fmt.Errorf("capability catalogue exceeds mask width: %d", len(catalogue))
		}
		t.nameToBit[cap] = i
		t.bitToName[i] = cap
	}

	for role, caps := range grants {
		var mask Mask64
		for _, cap := range caps {
			bit, ok := t.nameToBit[cap]
			if !ok {
				return nil, fmt.Errorf("capability not in catalogue: %s", cap)
			}
			mask.Set(bit)
		}
		t.grants[role] = mask
	}

	return t, nil
}

// Bit returns the bit position of the named capability, or false when the
// capability is not in the catalogue.
func (t *Table) Bit(cap Capability) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	bit, ok := t.nameToBit[cap]
	return bit, ok
}

// Grants returns the capability set of the role in bit order. RoleNone and
// unknown roles have the empty set.
func (t *Table) Grants(role Role) []Capability {
	t.mu.RLock()
	mask := t.grants[role]
	t.mu.RUnlock()

	var out []Capability
	for bit := 0; bit < 64; bit++ {
		if mask.Has(bit) {
			out = append(out, t.bitToName[bit])
		}
	}
	sort.Slice(out, func(i, j int) bool { return t.nameToBit[out[i]] < t.nameToBit[out[j]] })
	return out
}

// Allowed decides whether the role may exercise any of the required
// capabilities. Semantics:
//
//   - RoleNone is denied regardless of what is required.
//   - An empty requirement is denied: the decision fails closed.
//   - A multi-capability requirement uses ANY-of semantics; one
//     intersecting grant is enough.
//
// Allowed never returns an error; a mismatch is an ordinary deny.
func (t *Table) Allowed(role Role, required ...Capability) bool {
	if role == RoleNone || len(required) == 0 {
		return false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	granted, ok := t.grants[role]
	if !ok {
		return false
	}

	var want Mask64
	for _, cap := range required {
		bit, ok := t.nameToBit[cap]
		if !ok {
			continue
		}
		want.Set(bit)
	}

	return granted.Intersects(want)
}

// Holds reports whether the role's grant set contains the single capability.
// Unlike [Table.Allowed] this takes no set; it backs in-page conditional
// rendering of individual controls.
func (t *Table) Holds(role Role, cap Capability) bool {
	return t.Allowed(role, cap)
}

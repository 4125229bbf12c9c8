package permission

// Capability identifies a protected action or route. Capabilities are
// many-to-many with roles through the [Table].
type Capability string

// The capability catalogue. Admin-side management capabilities first, then
// the marketplace surfaces shared by vendors and restaurant accounts.
const (
	CapManageUsers       Capability = "manage_users"
	CapManageVendors     Capability = "manage_vendors"
	CapManageRestaurants Capability = "manage_restaurants"
	CapReports           Capability = "reports"
	CapListings          Capability = "listings"
	CapOrders            Capability = "orders"
	CapCart              Capability = "cart"
	CapCheckout          Capability = "checkout"
	CapProfile           Capability = "profile"
)

// catalogue is the fixed bit-assignment order. Changing the order changes
// wire-visible nothing (masks never leave the process) but keeps bit
// positions deterministic across runs.
var catalogue = []Capability{
	CapManageUsers,
	CapManageVendors,
	CapManageRestaurants,
	CapReports,
	CapListings,
	CapOrders,
	CapCart,
	CapCheckout,
	CapProfile,
}

// Capabilities lists the full capability catalogue in bit order.
func Capabilities() []Capability {
	out := make([]Capability, len(catalogue))
	copy(out, catalogue)
	return out
}

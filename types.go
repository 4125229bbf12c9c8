package sessioncore

import (
	"context"

	"github.com/platemarket/sessioncore/permission"
	"github.com/platemarket/sessioncore/store"
)

// Role is one of the four fixed account kinds. See [permission.Role].
type Role = permission.Role

// Capability identifies a protected action or route. See
// [permission.Capability].
type Capability = permission.Capability

// Role and capability constants re-exported so callers of [Machine.Can] and
// [Machine.Authorize] rarely need to import the permission package directly.
const (
	RoleNone              = permission.RoleNone
	RoleAdministrator     = permission.RoleAdministrator
	RoleVendor            = permission.RoleVendor
	RoleRestaurantOwner   = permission.RoleRestaurantOwner
	RoleRestaurantManager = permission.RoleRestaurantManager

	CapManageUsers       = permission.CapManageUsers
	CapManageVendors     = permission.CapManageVendors
	CapManageRestaurants = permission.CapManageRestaurants
	CapReports           = permission.CapReports
	CapListings          = permission.CapListings
	CapOrders            = permission.CapOrders
	CapCart              = permission.CapCart
	CapCheckout          = permission.CapCheckout
	CapProfile           = permission.CapProfile
)

// UserRecord is the cached profile of the signed-in user. See
// [store.UserRecord] for the authoritative definition and the role-claim
// caveat.
type UserRecord = store.UserRecord

// SessionState is the position of the session state machine.
type SessionState uint8

const (
	// StateUninitialized is the state before Initialize has been called.
	StateUninitialized SessionState = iota
	// StateInitializing covers the startup credential inspection and
	// profile hydration. No authorization decision may be trusted yet.
	StateInitializing
	// StateUnauthenticated means no usable session exists.
	StateUnauthenticated
	// StateAuthenticated means a valid credential and a hydrated user
	// record are present.
	StateAuthenticated
	// StateRefreshing means a background refresh is in flight. The session
	// is still considered authenticated while it resolves.
	StateRefreshing
)

// String returns a short lowercase name for logs.
func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// SessionSnapshot is the externally visible session state. It is an
// immutable value: the machine hands out copies and never mutates one after
// publication.
//
// Invariants: IsAuthenticated implies User is present and the credential was
// judged valid at the last transition. IsLoading implies no authorization
// decision may be trusted: the route guard treats a loading snapshot as
// pending, never as denied nor allowed.
type SessionSnapshot struct {
	State           SessionState
	IsLoading       bool
	IsAuthenticated bool

	// SessionID is a fresh identifier minted per login, carried in logs.
	SessionID string

	// Role is decoded from the credential's own role claim and is
	// authoritative for authorization. It may diverge from User.Role,
	// which is a display cache.
	Role Role

	// User is a copy of the cached profile; absent when unauthenticated.
	User *UserRecord

	// LastError records the most recent login failure for form display.
	// Background refresh failures never land here.
	LastError error
}

// Credentials is the login input forwarded to the transport. The engine
// performs no hashing; that is the server's job.
type Credentials struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required,min=6"`
}

// LoginResult is returned by [Transport.Login].
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         UserRecord
}

// RefreshResult is returned by [Transport.Refresh]. Both tokens are replaced
// wholesale; the previous refresh credential is single-use and now dead.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// Transport is the network collaborator consumed by the engine. Errors
// should carry a [StatusClass] (wrap them in [*TransportError]) so the
// engine can distinguish client rejections from server or network trouble;
// retry and timeout policy stay on the implementation's side.
type Transport interface {
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error)
	Logout(ctx context.Context) error
	FetchProfile(ctx context.Context) (*UserRecord, error)
}

package guard

import (
	"testing"

	"github.com/platemarket/sessioncore"
	"github.com/platemarket/sessioncore/permission"
)

func authedSnapshot(role permission.Role) sessioncore.SessionSnapshot {
	return sessioncore.SessionSnapshot{
		State:           sessioncore.StateAuthenticated,
		IsAuthenticated: true,
		Role:            role,
		User:            &sessioncore.UserRecord{ID: "u-1", Role: role},
	}
}

func unauthedSnapshot() sessioncore.SessionSnapshot {
	return sessioncore.SessionSnapshot{State: sessioncore.StateUnauthenticated}
}

func loadingSnapshot() sessioncore.SessionSnapshot {
	return sessioncore.SessionSnapshot{State: sessioncore.StateInitializing, IsLoading: true}
}

func newGuard() *Guard {
	return New(permission.NewTable())
}

func TestLoadingSnapshotIsPending(t *testing.T) {
	g := newGuard()

	routes := []Route{
		{Path: "/", RequireAuth: false},
		{Path: "/admin/users", Capabilities: []permission.Capability{permission.CapManageUsers}},
		{Path: "/login", PublicOnly: true},
	}

	for _, route := range routes {
		if d := g.Decide(loadingSnapshot(), route); d.Kind != Pending {
			t.Fatalf("loading snapshot must be pending for %s, got %v", route.Path, d.Kind)
		}
	}
}

func TestPublicRouteAlwaysRenders(t *testing.T) {
	g := newGuard()

	if d := g.Decide(unauthedSnapshot(), Route{Path: "/about"}); d.Kind != Allow {
		t.Fatalf("public route must render for anonymous callers, got %v", d.Kind)
	}
	if d := g.Decide(authedSnapshot(permission.RoleVendor), Route{Path: "/about"}); d.Kind != Allow {
		t.Fatalf("public route must render for authenticated callers, got %v", d.Kind)
	}
}

func TestUnauthenticatedRedirectsToLoginWithReturnPath(t *testing.T) {
	g := newGuard()

	d := g.Decide(unauthedSnapshot(), Route{Path: "/vendor/orders", RequireAuth: true})
	if d.Kind != DenyRedirect {
		t.Fatalf("expected redirect, got %v", d.Kind)
	}
	if d.RedirectPath != DefaultLoginPath {
		t.Fatalf("expected login redirect, got %s", d.RedirectPath)
	}
	if d.ReturnTo != "/vendor/orders" {
		t.Fatalf("original path must be preserved, got %q", d.ReturnTo)
	}
}

func TestCapabilityRouteImpliesAuthentication(t *testing.T) {
	g := newGuard()

	d := g.Decide(unauthedSnapshot(), Route{
		Path:         "/admin/users",
		Capabilities: []permission.Capability{permission.CapManageUsers},
	})
	if d.Kind != DenyRedirect || d.RedirectPath != DefaultLoginPath {
		t.Fatalf("capability route must send anonymous callers to login, got %+v", d)
	}
}

func TestVendorDeniedManageUsersLandsOnVendorHome(t *testing.T) {
	g := newGuard()

	d := g.Decide(authedSnapshot(permission.RoleVendor), Route{
		Path:         "/admin/users",
		Capabilities: []permission.Capability{permission.CapManageUsers},
	})
	if d.Kind != DenyRedirect {
		t.Fatalf("expected deny, got %v", d.Kind)
	}
	if d.RedirectPath != "/vendor" {
		t.Fatalf("denied vendor must land on the vendor home, got %s", d.RedirectPath)
	}
	if d.ReturnTo != "" {
		t.Fatalf("capability denial carries no return path, got %q", d.ReturnTo)
	}
}

func TestAllowedCapabilityRenders(t *testing.T) {
	g := newGuard()

	d := g.Decide(authedSnapshot(permission.RoleAdministrator), Route{
		Path:         "/admin/users",
		Capabilities: []permission.Capability{permission.CapManageUsers},
	})
	if d.Kind != Allow {
		t.Fatalf("administrator must reach manage_users, got %v", d.Kind)
	}
}

func TestAnyOfRouteRequirement(t *testing.T) {
	g := newGuard()

	// A route acceptable to several roles lists their capabilities; holding
	// any one of them renders.
	route := Route{
		Path:         "/listings",
		Capabilities: []permission.Capability{permission.CapManageVendors, permission.CapListings},
	}

	if d := g.Decide(authedSnapshot(permission.RoleVendor), route); d.Kind != Allow {
		t.Fatalf("vendor holds listings, expected allow, got %v", d.Kind)
	}
}

func TestAuthenticatedManagerBouncedFromPublicOnlyRoute(t *testing.T) {
	g := newGuard()

	d := g.Decide(authedSnapshot(permission.RoleRestaurantManager), Route{
		Path:       "/register",
		PublicOnly: true,
	})
	if d.Kind != DenyRedirect {
		t.Fatalf("public-only route must not render for authenticated callers, got %v", d.Kind)
	}
	if d.RedirectPath != "/restaurant" {
		t.Fatalf("manager must land on the restaurant home, got %s", d.RedirectPath)
	}
}

func TestPublicOnlyRouteRendersForAnonymous(t *testing.T) {
	g := newGuard()

	if d := g.Decide(unauthedSnapshot(), Route{Path: "/register", PublicOnly: true}); d.Kind != Allow {
		t.Fatalf("public-only route must render for anonymous callers, got %v", d.Kind)
	}
}

func TestLandingPaths(t *testing.T) {
	g := newGuard()

	cases := map[permission.Role]string{
		permission.RoleAdministrator:     "/admin",
		permission.RoleVendor:            "/vendor",
		permission.RoleRestaurantOwner:   "/restaurant",
		permission.RoleRestaurantManager: "/restaurant",
		permission.RoleNone:              DefaultLoginPath,
	}

	for role, want := range cases {
		if got := g.LandingPath(role); got != want {
			t.Fatalf("landing path for %v = %s, want %s", role, got, want)
		}
	}
}

func TestOptionsOverridePaths(t *testing.T) {
	g := New(permission.NewTable(),
		WithLoginPath("/signin"),
		WithLandingPath(permission.RoleVendor, "/vendor/home"),
	)

	d := g.Decide(unauthedSnapshot(), Route{Path: "/x", RequireAuth: true})
	if d.RedirectPath != "/signin" {
		t.Fatalf("login path override ignored, got %s", d.RedirectPath)
	}
	if got := g.LandingPath(permission.RoleVendor); got != "/vendor/home" {
		t.Fatalf("landing override ignored, got %s", got)
	}
}

func TestDecisionIsPureFunctionOfInputs(t *testing.T) {
	g := newGuard()
	snap := authedSnapshot(permission.RoleVendor)
	route := Route{Path: "/admin/users", Capabilities: []permission.Capability{permission.CapManageUsers}}

	first := g.Decide(snap, route)
	for i := 0; i < 10; i++ {
		if got := g.Decide(snap, route); got != first {
			t.Fatalf("decision changed across identical inputs: %+v vs %+v", got, first)
		}
	}
}

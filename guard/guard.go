package guard

import (
	"github.com/platemarket/sessioncore"
	"github.com/platemarket/sessioncore/permission"
)

// Kind is the outcome category of a route decision.
type Kind uint8

const (
	// Pending means the snapshot is still loading and no decision may be
	// trusted yet. The caller keeps rendering its loading state.
	Pending Kind = iota
	// Allow means the route may render.
	Allow
	// DenyRedirect means the route must not render; RedirectPath says
	// where to go instead.
	DenyRedirect
)

// String returns a short lowercase name for logs and metrics.
func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case DenyRedirect:
		return "deny"
	default:
		return "pending"
	}
}

// Decision is the guard's verdict for one route against one snapshot.
type Decision struct {
	Kind Kind

	// RedirectPath is set for DenyRedirect: the login path for
	// unauthenticated callers, the role's default landing path otherwise.
	RedirectPath string

	// ReturnTo carries the originally requested path on a login redirect
	// so the caller can come back after authenticating.
	ReturnTo string
}

// Route is the declarative requirement a page attaches to itself.
type Route struct {
	// Path is the requested path, echoed into ReturnTo on login redirects.
	Path string

	// RequireAuth gates the route on authentication alone. A route with
	// Capabilities set requires authentication implicitly.
	RequireAuth bool

	// PublicOnly marks routes like login and registration that must not
	// render for an authenticated user.
	PublicOnly bool

	// Capabilities is the required capability set, ANY-of semantics. Empty
	// means no capability requirement.
	Capabilities []permission.Capability
}

// DefaultLoginPath is where unauthenticated callers are sent.
const DefaultLoginPath = "/login"

// defaultLandingPaths maps each role to its single default landing path.
// Owner and manager land on the same restaurant home.
var defaultLandingPaths = map[permission.Role]string{
	permission.RoleAdministrator:     "/admin",
	permission.RoleVendor:            "/vendor",
	permission.RoleRestaurantOwner:   "/restaurant",
	permission.RoleRestaurantManager: "/restaurant",
}

// Guard evaluates route requirements against session snapshots.
type Guard struct {
	table     *permission.Table
	loginPath string
	landing   map[permission.Role]string
}

// Option customizes a Guard.
type Option func(*Guard)

// WithLoginPath overrides the login redirect target.
func WithLoginPath(path string) Option {
	return func(g *Guard) {
		if path != "" {
			g.loginPath = path
		}
	}
}

// WithLandingPath overrides one role's default landing path.
func WithLandingPath(role permission.Role, path string) Option {
	return func(g *Guard) {
		if path != "" {
			g.landing[role] = path
		}
	}
}

// New creates a Guard over the given permission table.
func New(table *permission.Table, opts ...Option) *Guard {
	g := &Guard{
		table:     table,
		loginPath: DefaultLoginPath,
		landing:   make(map[permission.Role]string, len(defaultLandingPaths)),
	}
	for role, path := range defaultLandingPaths {
		g.landing[role] = path
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LandingPath returns the role's default landing path. RoleNone lands on
// the login path.
func (g *Guard) LandingPath(role permission.Role) string {
	if path, ok := g.landing[role]; ok {
		return path
	}
	return g.loginPath
}

// Decide reduces snapshot + route into a [Decision]. It is a pure function
// of its inputs: same snapshot, same route, same decision.
func (g *Guard) Decide(snap sessioncore.SessionSnapshot, route Route) Decision {
	d := g.decide(snap, route)
	sessioncore.GuardDecisionsTotal.WithLabelValues(d.Kind.String()).Inc()
	return d
}

func (g *Guard) decide(snap sessioncore.SessionSnapshot, route Route) Decision {
	// A loading snapshot means no decision may be trusted: not denied,
	// not allowed.
	if snap.IsLoading {
		return Decision{Kind: Pending}
	}

	if route.PublicOnly && snap.IsAuthenticated {
		return Decision{Kind: DenyRedirect, RedirectPath: g.LandingPath(snap.Role)}
	}

	needsAuth := route.RequireAuth || len(route.Capabilities) > 0
	if !needsAuth {
		return Decision{Kind: Allow}
	}

	if !snap.IsAuthenticated {
		return Decision{
			Kind:         DenyRedirect,
			RedirectPath: g.loginPath,
			ReturnTo:     route.Path,
		}
	}

	if len(route.Capabilities) == 0 {
		return Decision{Kind: Allow}
	}

	// The snapshot's Role comes from the credential's own claim; the
	// cached profile never participates in this decision.
	if g.table.Allowed(snap.Role, route.Capabilities...) {
		return Decision{Kind: Allow}
	}

	return Decision{Kind: DenyRedirect, RedirectPath: g.LandingPath(snap.Role)}
}

// Watch subscribes to the machine and re-decides the route on every
// snapshot change, starting with the current one. The returned function
// cancels the subscription.
func (g *Guard) Watch(m *sessioncore.Machine, route Route, fn func(Decision)) func() {
	fn(g.Decide(m.Snapshot(), route))
	return m.Subscribe(func(snap sessioncore.SessionSnapshot) {
		fn(g.Decide(snap, route))
	})
}

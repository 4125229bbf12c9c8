// Package sessioncore is the session and authorization engine of the Plate
// Market client applications (admin console, vendor portal, restaurant
// ordering app). It decides, at any moment, whether the caller is
// authenticated, which role they hold, whether the locally-held credential
// is still usable, and whether a given capability may be exercised.
//
// The package is the public surface. It exposes [Machine], [Builder],
// [Config], the [SessionSnapshot] value handed to readers, and the
// collaborator interfaces ([Transport], [NotifySink]) that hosts implement.
// Credential inspection, the permission table, the credential store, and the
// route guard live in their own sub-packages.
//
// # Concurrency contract
//
// Machine methods are safe for concurrent use. Refresh is single-flight: a
// second caller that observes a refresh in progress awaits its outcome
// instead of issuing a duplicate request (a duplicate against a single-use
// refresh token would invalidate the in-flight one). A logout that lands
// while a refresh is in flight wins: the refresh result is tagged with a
// session epoch and discarded when the epoch has moved on.
//
// # What this package must NOT do
//
//   - Render, route, or style anything; it hands immutable snapshots to the
//     presentation layer and nothing else.
//   - Impose retry or timeout policy on the transport; that belongs to the
//     collaborator.
//   - Let a credential-parsing failure escape to callers; parsing fails
//     closed into "no session".
package sessioncore

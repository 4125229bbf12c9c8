// Package guard is the declarative route gate consumed by the presentation
// layer. It reduces a session snapshot plus a route requirement into one of
// three decisions: render, redirect, or keep showing the loading state.
//
// Decisions are pure functions of a snapshot: they never block and never
// touch the network. Reactivity is push-based: [Guard.Watch] subscribes to
// the session machine and re-decides whenever the snapshot changes.
//
// A denied authenticated user is always redirected to their own role's
// default landing path, never to a dead-end error page. An unauthenticated
// user is sent to the login path with the originally requested path
// preserved so login can return there.
package guard

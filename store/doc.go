// Package store is the credential store of the session engine: pure data
// access over a scoped key-value persistence collaborator, no policy.
//
// The store holds exactly three values: the access credential, the refresh
// credential, and the cached user record. Persistence must survive process
// restarts; when the underlying facility is absent (nil KeyValue) every
// getter degrades to "absent" and every writer becomes a no-op rather than
// failing.
//
// ClearAll removes all three values in one operation. A partial clear is a
// defect, so both shipped KeyValue implementations delete multi-key in a
// single atomic step.
package store

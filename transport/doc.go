// Package transport implements the session engine's network collaborator
// over the Plate Market REST API. It owns request shaping, bearer
// attachment, and the mapping of HTTP failures into the engine's status
// classes (client / server / network). Retry and backoff policy belongs
// here, not in the engine; the shipped client deliberately does neither and
// leaves both to the http.Client it is given.
package transport

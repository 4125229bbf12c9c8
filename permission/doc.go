// Package permission holds the static authorization data of the marketplace
// client: the closed role enumeration, the capability catalogue, and the
// role→capability table consulted by every authorization decision.
//
// # Two independent mechanisms
//
// Capability membership (is this action in the role's grant set?) and role
// rank (is this role at least this privileged?) are tracked separately and
// must never be conflated. The grant sets are not nested by rank: restaurant
// owner and restaurant manager share an identical grant set despite holding
// different ranks.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import sessioncore, credential, or store.
//   - Mutate the table after construction.
package permission

// Package credential inspects locally-held access tokens without contacting
// the network. The client never verifies signatures, it holds no key, so
// every check here is structural (does the token decompose into a parseable
// claims payload?) or temporal (is the embedded expiry still outside the
// grace window?).
//
// All decode failures are answered with "invalid" or "expired", never with a
// panic or a propagated parse error: the checker fails closed.
package credential

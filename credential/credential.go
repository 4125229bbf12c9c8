package credential

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultExpiryBuffer is the grace window subtracted from a credential's
// remaining lifetime: a caller observing "temporally valid" still has this
// long to complete a request before actual expiry.
const DefaultExpiryBuffer = 300 * time.Second

// ErrMalformed is returned by [Parse] for any token that does not decompose
// into three dot-separated segments with a parseable claims payload carrying
// an expiry.
var ErrMalformed = errors.New("malformed credential")

// Claims is the decoded, unverified content of an access credential.
// Replaced wholesale on refresh, never mutated in place.
type Claims struct {
	Raw       string
	Subject   string
	RoleName  string
	ExpiresAt int64
	IssuedAt  int64
}

var parser = jwt.NewParser()

// Parse decodes the token without verifying its signature and returns the
// claims the session engine cares about. Any structural defect (wrong
// segment count, undecodable payload, non-JSON content, missing expiry)
// yields [ErrMalformed].
func Parse(token string) (*Claims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrMalformed
	}

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, ErrMalformed
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrMalformed
	}

	out := &Claims{
		Raw:       token,
		ExpiresAt: exp.Unix(),
	}

	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Unix()
	}
	if role, ok := claims["role"].(string); ok {
		out.RoleName = role
	}

	return out, nil
}

// IsStructurallyValid reports whether the token decomposes into three
// segments whose payload decodes to a record containing an expiry field.
func IsStructurallyValid(token string) bool {
	_, err := Parse(token)
	return err == nil
}

// IsTemporallyValid reports whether the token's expiry lies strictly beyond
// now plus the buffer. Malformed tokens are never temporally valid.
func IsTemporallyValid(token string, now time.Time, buffer time.Duration) bool {
	claims, err := Parse(token)
	if err != nil {
		return false
	}
	return claims.ExpiresAt > now.Add(buffer).Unix()
}

// WillExpireSoon is the negation boundary of [IsTemporallyValid], used to
// trigger proactive refresh: true when the expiry is at or inside the buffer
// window. Malformed tokens always report true.
func WillExpireSoon(token string, now time.Time, buffer time.Duration) bool {
	return !IsTemporallyValid(token, now, buffer)
}

// Checker binds a buffer and a clock so callers do not thread them through
// every call. The zero buffer means [DefaultExpiryBuffer].
type Checker struct {
	buffer time.Duration
	now    func() time.Time
}

// NewChecker creates a [Checker]. A nil clock defaults to [time.Now]; a
// non-positive buffer defaults to [DefaultExpiryBuffer].
func NewChecker(buffer time.Duration, now func() time.Time) *Checker {
	if buffer <= 0 {
		buffer = DefaultExpiryBuffer
	}
	if now == nil {
		now = time.Now
	}
	return &Checker{buffer: buffer, now: now}
}

// IsStructurallyValid reports whether the token parses at all.
func (c *Checker) IsStructurallyValid(token string) bool {
	return IsStructurallyValid(token)
}

// IsTemporallyValid reports whether the token is usable with the checker's
// grace window applied.
func (c *Checker) IsTemporallyValid(token string) bool {
	return IsTemporallyValid(token, c.now(), c.buffer)
}

// WillExpireSoon reports whether a proactive refresh should run before the
// next credential-gated action.
func (c *Checker) WillExpireSoon(token string) bool {
	return WillExpireSoon(token, c.now(), c.buffer)
}

// Buffer returns the checker's grace window.
func (c *Checker) Buffer() time.Duration {
	return c.buffer
}

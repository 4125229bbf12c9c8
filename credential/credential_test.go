package credential

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test token failed: %v", err)
	}
	return signed
}

func payloadToken(payload string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return header + "." + body + ".sig"
}

func TestParseExtractsClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	token := signedToken(t, jwt.MapClaims{
		"sub":  "u-42",
		"role": "vendor",
		"exp":  exp.Unix(),
		"iat":  exp.Add(-2 * time.Hour).Unix(),
	})

	claims, err := Parse(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.Subject != "u-42" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.RoleName != "vendor" {
		t.Fatalf("unexpected role %q", claims.RoleName)
	}
	if claims.ExpiresAt != exp.Unix() {
		t.Fatalf("unexpected expiry %d, want %d", claims.ExpiresAt, exp.Unix())
	}
}

func TestParseFailsClosed(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"two segments", "abc.def"},
		{"four segments", "a.b.c.d"},
		{"payload not base64", "header.!!!.sig"},
		{"payload not json", payloadToken("not json at all")},
		{"missing expiry", payloadToken(`{"role":"vendor"}`)},
		{"expiry wrong type", payloadToken(`{"exp":"soon"}`)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(tc.token); err == nil {
				t.Fatalf("expected parse error")
			}
			if IsStructurallyValid(tc.token) {
				t.Fatalf("expected structurally invalid")
			}
			if IsTemporallyValid(tc.token, time.Now(), DefaultExpiryBuffer) {
				t.Fatalf("expected temporally invalid")
			}
			if !WillExpireSoon(tc.token, time.Now(), DefaultExpiryBuffer) {
				t.Fatalf("expected malformed token to count as expiring")
			}
		})
	}
}

func TestTemporalBoundary(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	buffer := DefaultExpiryBuffer

	cases := []struct {
		name  string
		exp   time.Time
		valid bool
	}{
		{"already expired", now.Add(-time.Second), false},
		{"expires exactly at boundary", now.Add(buffer), false},
		{"one second past boundary", now.Add(buffer + time.Second), true},
		{"far future", now.Add(24 * time.Hour), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := signedToken(t, jwt.MapClaims{"role": "vendor", "exp": tc.exp.Unix()})

			if got := IsTemporallyValid(token, now, buffer); got != tc.valid {
				t.Fatalf("IsTemporallyValid = %v, want %v", got, tc.valid)
			}
			if got := WillExpireSoon(token, now, buffer); got != !tc.valid {
				t.Fatalf("WillExpireSoon = %v, want %v", got, !tc.valid)
			}
		})
	}
}

func TestExpiredCredentialScenario(t *testing.T) {
	now := time.Now()
	token := signedToken(t, jwt.MapClaims{"role": "vendor", "exp": now.Add(-time.Second).Unix()})

	if IsTemporallyValid(token, now, DefaultExpiryBuffer) {
		t.Fatalf("credential expired one second ago must not be temporally valid")
	}
	if !WillExpireSoon(token, now, DefaultExpiryBuffer) {
		t.Fatalf("credential expired one second ago must report expiring")
	}
	if !IsStructurallyValid(token) {
		t.Fatalf("expiry does not affect structural validity")
	}
}

func TestCheckerDefaults(t *testing.T) {
	c := NewChecker(0, nil)
	if c.Buffer() != DefaultExpiryBuffer {
		t.Fatalf("zero buffer must default to %v, got %v", DefaultExpiryBuffer, c.Buffer())
	}

	fixed := time.Unix(1_700_000_000, 0)
	c = NewChecker(time.Minute, func() time.Time { return fixed })

	token := signedToken(t, jwt.MapClaims{"role": "vendor", "exp": fixed.Add(2 * time.Minute).Unix()})
	if !c.IsTemporallyValid(token) {
		t.Fatalf("token beyond the buffer must be valid")
	}
	if c.WillExpireSoon(token) {
		t.Fatalf("token beyond the buffer must not report expiring")
	}

	token = signedToken(t, jwt.MapClaims{"role": "vendor", "exp": fixed.Add(30 * time.Second).Unix()})
	if c.IsTemporallyValid(token) {
		t.Fatalf("token inside the buffer must not be valid")
	}
	if !c.WillExpireSoon(token) {
		t.Fatalf("token inside the buffer must report expiring")
	}
}

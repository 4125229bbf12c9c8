package sessioncore

import (
	"errors"
	"time"

	"github.com/platemarket/sessioncore/credential"
)

// Config holds the tunable parts of the session engine.
//
// Config instances are intended to be filled during initialization and then
// treated as immutable.
type Config struct {
	Credential CredentialConfig
	Store      StoreConfig
	Notify     NotifyConfig
}

/*
====================================
CREDENTIAL CONFIG
====================================
*/

// CredentialConfig controls local credential inspection.
type CredentialConfig struct {
	// ExpiryBuffer is the grace window: a credential counts as expiring
	// once its expiry is at or inside now+ExpiryBuffer. Zero means the
	// default of 300 seconds.
	ExpiryBuffer time.Duration
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig controls the credential store's key scoping.
type StoreConfig struct {
	// Prefix scopes this engine's keys within a shared persistence
	// facility. Empty means "session".
	Prefix string
}

/*
====================================
NOTIFY CONFIG
====================================
*/

// NotifyConfig controls the fire-and-forget notification dispatcher.
type NotifyConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops notices instead of blocking the engine when the
	// buffer is saturated. The dispatcher counts drops.
	DropIfFull bool
}

func defaultConfig() Config {
	return Config{
		Credential: CredentialConfig{
			ExpiryBuffer: credential.DefaultExpiryBuffer,
		},
		Store: StoreConfig{
			Prefix: "session",
		},
		Notify: NotifyConfig{
			Enabled:    true,
			BufferSize: 64,
			DropIfFull: true,
		},
	}
}

// Validate rejects configurations the engine cannot honor.
func (c Config) Validate() error {
	if c.Credential.ExpiryBuffer < 0 {
		return errors.New("negative expiry buffer")
	}
	if c.Credential.ExpiryBuffer > time.Hour {
		return errors.New("expiry buffer exceeds one hour")
	}
	if c.Notify.BufferSize < 0 {
		return errors.New("negative notify buffer size")
	}
	return nil
}

func cloneConfig(c Config) Config {
	// All fields are value types today; the clone exists so later slice or
	// map fields cannot alias the caller's struct.
	return c
}

package sessioncore

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/platemarket/sessioncore/credential"
	"github.com/platemarket/sessioncore/permission"
	"github.com/platemarket/sessioncore/store"
)

// Builder assembles a [Machine]. Construction is allocation-only; no I/O
// happens until [Machine.Initialize].
type Builder struct {
	config    Config
	kv        store.KeyValue
	transport Transport
	sink      NotifySink
	logger    zerolog.Logger
	clock     func() time.Time

	built bool
}

// New creates a Builder carrying the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
		clock:  time.Now,
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithExpiryBuffer overrides only the credential grace window.
func (b *Builder) WithExpiryBuffer(d time.Duration) *Builder {
	b.config.Credential.ExpiryBuffer = d
	return b
}

// WithKeyValue supplies the persistence facility backing the credential
// store. Leaving it nil is allowed: the engine then starts every process
// unauthenticated and persists nothing.
func (b *Builder) WithKeyValue(kv store.KeyValue) *Builder {
	b.kv = kv
	return b
}

// WithTransport supplies the network collaborator. Required.
func (b *Builder) WithTransport(t Transport) *Builder {
	b.transport = t
	return b
}

// WithNotifySink supplies the notification sink. Defaults to [NoOpSink].
func (b *Builder) WithNotifySink(sink NotifySink) *Builder {
	b.sink = sink
	return b
}

// WithLogger supplies a structured logger. Defaults to zerolog.Nop().
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source. Test hook.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	if clock != nil {
		b.clock = clock
	}
	return b
}

// Build validates the configuration and assembles the machine. A Builder is
// single-use.
func (b *Builder) Build() (*Machine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.transport == nil {
		return nil, errors.New("transport required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b.built = true

	m := &Machine{
		config:    cfg,
		store:     store.New(b.kv, cfg.Store.Prefix),
		checker:   credential.NewChecker(cfg.Credential.ExpiryBuffer, b.clock),
		table:     permission.NewTable(),
		transport: b.transport,
		notify:    newNotifyDispatcher(cfg.Notify, b.sink),
		logger:    b.logger.With().Str("component", "sessioncore").Logger(),
		clock:     b.clock,
		state:     StateUninitialized,
		observers: make(map[int]func(SessionSnapshot)),
	}

	return m, nil
}

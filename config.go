package longpoll

import (
	"fmt"
	"time"
)

// ============================================================================
// Timing Configuration Model (Triple-Timer Coalescing)
// ============================================================================
//
// Each session interleaves three timers to realize an adaptive debounce:
//
//	┌─────────────────────────────────────────────────────────────────────┐
//	│ GracePeriod (G) - respond fast when the stream goes quiet           │
//	│   Armed only while the pending batch is non-empty; reset on every   │
//	│   new arrival. First to fire when events stop flowing.              │
//	├─────────────────────────────────────────────────────────────────────┤
//	│ RefreshInterval (R) - the long-poll ceiling before any event        │
//	│   Armed on every poll. Bounds how long a waiter can hang when       │
//	│   nothing ever arrives; an empty batch is a meaningful reply.       │
//	├─────────────────────────────────────────────────────────────────────┤
//	│ MaxWait (W) - the ceiling once events are flowing                   │
//	│   Replaces R when the first event lands, extending the window so    │
//	│   more events can be batched. Never reset by later arrivals.        │
//	├─────────────────────────────────────────────────────────────────────┤
//	│ KeepAliveTTL (K) - idle-session garbage collection                  │
//	│   Re-armed on every poll. Its expiry is the only terminal           │
//	│   transition: a client that stops polling for K loses the session.  │
//	└─────────────────────────────────────────────────────────────────────┘
//
// Constraint hierarchy:
//
//	GracePeriod < RefreshInterval < MaxWait
//	RefreshInterval < PollTimeout < KeepAliveTTL
//
// ============================================================================

// Config is the configuration for the Coordinator.
//
// All duration fields accept standard Go duration strings like "500ms",
// "30s", "5m" when loaded from YAML.
type Config struct {
	// GracePeriod is the quiet-period debounce deadline (G). While a waiter
	// is present and the pending batch is non-empty, the batch is delivered
	// GracePeriod after the most recent visible event.
	// Recommended: 1 second.
	GracePeriod time.Duration `yaml:"gracePeriod"`

	// RefreshInterval is the long-poll ceiling when no event has arrived
	// yet (R). A poll that sees no visible events is answered with an empty
	// batch after exactly this interval.
	// Recommended: 30 seconds.
	RefreshInterval time.Duration `yaml:"refreshInterval"`

	// MaxWait is the absolute delivery ceiling once the first visible event
	// has arrived (W). Must exceed RefreshInterval: discovering the first
	// event extends the window so more events can be batched behind it.
	// Recommended: 60 seconds.
	MaxWait time.Duration `yaml:"maxWait"`

	// KeepAliveTTL is the idle-session lifetime (K). It re-arms on every
	// poll; a session that receives no poll for this long terminates and
	// deregisters. Must exceed PollTimeout so an in-flight poll can never
	// outlive its own session.
	// Recommended: 5 minutes.
	KeepAliveTTL time.Duration `yaml:"keepAliveTtl"`

	// ResolveTimeout bounds cluster-wide name lookups.
	// Recommended: 2 seconds.
	ResolveTimeout time.Duration `yaml:"resolveTimeout"`

	// PollTimeout bounds the wait for a session's reply to a poll request.
	// Must be strictly greater than RefreshInterval, with a safety margin,
	// or healthy polls are misreported as StreamNotFound.
	// Recommended: RefreshInterval + 5 seconds.
	PollTimeout time.Duration `yaml:"pollTimeout"`

	// SubjectPrefix namespaces the NATS subjects and broadcast stream used
	// by the distributed registry backend. Must be a plain token.
	SubjectPrefix string `yaml:"subjectPrefix"`

	// SessionBuffer is the capacity of each session's serialized input
	// queue. Inputs beyond it apply backpressure to the transport.
	SessionBuffer int `yaml:"sessionBuffer"`
}

// DefaultConfig returns a Config with production defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		GracePeriod:     1 * time.Second,
		RefreshInterval: 30 * time.Second,
		MaxWait:         60 * time.Second,
		KeepAliveTTL:    5 * time.Minute,
		ResolveTimeout:  2 * time.Second,
		PollTimeout:     35 * time.Second,
		SubjectPrefix:   "longpoll",
		SessionBuffer:   64,
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = defaults.GracePeriod
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = defaults.RefreshInterval
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = defaults.MaxWait
	}
	if cfg.KeepAliveTTL == 0 {
		cfg.KeepAliveTTL = defaults.KeepAliveTTL
	}
	if cfg.ResolveTimeout == 0 {
		cfg.ResolveTimeout = defaults.ResolveTimeout
	}
	if cfg.PollTimeout == 0 {
		// Default: refresh ceiling plus a safety margin.
		cfg.PollTimeout = cfg.RefreshInterval + 5*time.Second
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = defaults.SubjectPrefix
	}
	if cfg.SessionBuffer == 0 {
		cfg.SessionBuffer = defaults.SessionBuffer
	}
}

// Validate checks configuration constraints and returns an error for
// invalid values.
//
// Hard validation rules:
//   - All durations > 0, SessionBuffer >= 1
//   - GracePeriod < RefreshInterval (or grace never fires before commit)
//   - MaxWait > RefreshInterval (the first event must extend the ceiling)
//   - PollTimeout > RefreshInterval (healthy polls must not time out)
//   - KeepAliveTTL > PollTimeout (a session must outlive in-flight polls)
//
// Returns:
//   - error: Validation error with clear explanation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.GracePeriod <= 0 || cfg.RefreshInterval <= 0 || cfg.MaxWait <= 0 ||
		cfg.KeepAliveTTL <= 0 || cfg.ResolveTimeout <= 0 || cfg.PollTimeout <= 0 {
		return fmt.Errorf("all timer durations must be > 0")
	}

	if cfg.SessionBuffer < 1 {
		return fmt.Errorf("SessionBuffer must be >= 1, got %d", cfg.SessionBuffer)
	}

	if cfg.GracePeriod >= cfg.RefreshInterval {
		return fmt.Errorf(
			"GracePeriod (%v) must be < RefreshInterval (%v), or the quiet-period debounce never fires before the refresh ceiling",
			cfg.GracePeriod, cfg.RefreshInterval,
		)
	}

	if cfg.MaxWait <= cfg.RefreshInterval {
		return fmt.Errorf(
			"MaxWait (%v) must be > RefreshInterval (%v): the first event extends the delivery ceiling",
			cfg.MaxWait, cfg.RefreshInterval,
		)
	}

	if cfg.PollTimeout <= cfg.RefreshInterval {
		return fmt.Errorf(
			"PollTimeout (%v) must be > RefreshInterval (%v) to avoid spurious StreamNotFound results",
			cfg.PollTimeout, cfg.RefreshInterval,
		)
	}

	if cfg.KeepAliveTTL <= cfg.PollTimeout {
		return fmt.Errorf(
			"KeepAliveTTL (%v) must be > PollTimeout (%v) so a session outlives its in-flight poll",
			cfg.KeepAliveTTL, cfg.PollTimeout,
		)
	}

	return nil
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Test timings are 50-200x faster than production defaults to enable rapid
// iteration without sacrificing coverage. Use DefaultConfig() for
// production deployments.
//
// Returns:
//   - Config: Configuration with fast timings for tests
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.GracePeriod = 40 * time.Millisecond
	cfg.RefreshInterval = 200 * time.Millisecond
	cfg.MaxWait = 500 * time.Millisecond
	cfg.KeepAliveTTL = 1500 * time.Millisecond
	cfg.ResolveTimeout = 300 * time.Millisecond
	cfg.PollTimeout = 700 * time.Millisecond

	return cfg
}

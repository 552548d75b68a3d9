// Package telemetry sends opt-in anonymous usage events. Everything is
// keyed to a random install ID; no request text, file paths, or generated
// content ever leaves the machine.
package telemetry

import (
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/posthog/posthog-go"
)

// Client is the telemetry surface the rest of the code sees. The default is
// a no-op so callers never need nil checks.
type Client interface {
	// Track enqueues an event asynchronously and returns immediately.
	Track(event string, properties map[string]any)

	// Close flushes pending events with the SDK's short internal timeout.
	Close() error
}

// Properties is the event property map.
type Properties = map[string]any

// Options configures the PostHog-backed client.
type Options struct {
	APIKey      string
	Endpoint    string
	Version     string
	AnonymousID string
	Enabled     bool
}

// New creates a telemetry client. Disabled telemetry or a missing API key
// yields the no-op client.
func New(opts Options) (Client, error) {
	if !opts.Enabled || opts.APIKey == "" || opts.AnonymousID == "" {
		return NoopClient{}, nil
	}

	cfg := posthog.Config{
		// CLI runs are short; flush quickly in small batches.
		BatchSize: 10,
		Interval:  time.Second,
		// Transport noise must never reach CLI output.
		Logger: quietLogger{},
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = opts.Endpoint
	}

	ph, err := posthog.NewWithConfig(opts.APIKey, cfg)
	if err != nil {
		return nil, err
	}
	return &posthogClient{client: ph, anonymousID: opts.AnonymousID, version: opts.Version}, nil
}

// enqueuer is the slice of the PostHog SDK we use, mockable in tests.
type enqueuer interface {
	io.Closer
	Enqueue(msg posthog.Message) error
}

type posthogClient struct {
	client      enqueuer
	anonymousID string
	version     string
	mu          sync.Mutex
}

func (c *posthogClient) Track(event string, properties map[string]any) {
	props := posthog.NewProperties()
	for k, v := range properties {
		props.Set(k, v)
	}
	props.Set("os", runtime.GOOS)
	props.Set("arch", runtime.GOARCH)
	props.Set("cli_version", c.version)
	// No person profiles: events stay anonymous.
	props.Set("$process_person_profile", false)

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.client.Enqueue(posthog.Capture{
		DistinctId: c.anonymousID,
		Event:      event,
		Properties: props,
	})
}

func (c *posthogClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.Close()
}

// NoopClient discards every event.
type NoopClient struct{}

func (NoopClient) Track(string, map[string]any) {}
func (NoopClient) Close() error                 { return nil }

type quietLogger struct{}

func (quietLogger) Debugf(string, ...interface{}) {}
func (quietLogger) Logf(string, ...interface{})   {}
func (quietLogger) Warnf(string, ...interface{})  {}
func (quietLogger) Errorf(string, ...interface{}) {}

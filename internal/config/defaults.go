package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultUpstreamURL         = "wss://backend.rugs.fun"
	DefaultFrontendVersion     = "1.0"
	DefaultReconnectBaseDelay  = 1 * time.Second
	DefaultReconnectMaxDelay   = 60 * time.Second
	DefaultPingTimeout         = 45 * time.Second
	DefaultWriteTimeout        = 10 * time.Second
	DefaultRawQueueCapacity    = 4096

	DefaultListenAddress = "0.0.0.0:8001"

	DefaultSchemasDir = "schemas"

	DefaultSubscriberBufferSize = 256
	DefaultHeartbeatInterval    = 30 * time.Second

	DefaultSnapshotsMaxAge = 10 * 24 * time.Hour
	DefaultEventsMaxAge    = 30 * 24 * time.Hour
	DefaultSweepInterval   = 1 * time.Hour

	DefaultDBPort     = 5432
	DefaultDBSSLMode  = "prefer"
	DefaultMaxConns   = 10
	DefaultMinConns   = 2

	DefaultWriterWorkers        = 4
	DefaultWriterQueueCapacity  = 2048
	DefaultFlushInterval        = 1 * time.Second
	DefaultVerifierWorkers      = 2
)

func (c *Config) applyDefaults() {
	if c.Upstream.URL == "" {
		c.Upstream.URL = DefaultUpstreamURL
	}
	if c.Upstream.FrontendVersion == "" {
		c.Upstream.FrontendVersion = DefaultFrontendVersion
	}
	if c.Upstream.ReconnectBaseDelay == 0 {
		c.Upstream.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Upstream.ReconnectMaxDelay == 0 {
		c.Upstream.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Upstream.PingTimeout == 0 {
		c.Upstream.PingTimeout = DefaultPingTimeout
	}
	if c.Upstream.WriteTimeout == 0 {
		c.Upstream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Upstream.RawQueueCapacity == 0 {
		c.Upstream.RawQueueCapacity = DefaultRawQueueCapacity
	}

	if c.Listen.Address == "" {
		c.Listen.Address = DefaultListenAddress
	}

	if c.Schemas.Dir == "" {
		c.Schemas.Dir = DefaultSchemasDir
	}

	if c.Broadcaster.SubscriberBufferSize == 0 {
		c.Broadcaster.SubscriberBufferSize = DefaultSubscriberBufferSize
	}
	if c.Broadcaster.HeartbeatInterval == 0 {
		c.Broadcaster.HeartbeatInterval = DefaultHeartbeatInterval
	}

	if c.Retention.Snapshots.MaxAge == 0 {
		c.Retention.Snapshots.MaxAge = DefaultSnapshotsMaxAge
	}
	if c.Retention.Events.MaxAge == 0 {
		c.Retention.Events.MaxAge = DefaultEventsMaxAge
	}
	if c.Retention.ConnectionEvents.MaxAge == 0 {
		c.Retention.ConnectionEvents.MaxAge = DefaultEventsMaxAge
	}
	// Ticks/Indices intentionally default to "no sweep" (MaxAge stays 0).
	if c.Retention.SweepInterval == 0 {
		c.Retention.SweepInterval = DefaultSweepInterval
	}

	applyDBDefaults(&c.Database)

	if c.Writers.Workers == 0 {
		c.Writers.Workers = DefaultWriterWorkers
	}
	if c.Writers.QueueCapacity == 0 {
		c.Writers.QueueCapacity = DefaultWriterQueueCapacity
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}
	if c.Writers.VerifierWorkers == 0 {
		c.Writers.VerifierWorkers = DefaultVerifierWorkers
	}
}

func applyDBDefaults(db *DatabaseConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

// Package config loads and validates the daemon's YAML configuration,
// layering flat environment-variable overrides on top (see Load and
// ApplyEnvOverrides).
package config

import "time"

// Config is the root configuration for the rugsdatad daemon.
type Config struct {
	Instance    InstanceConfig    `yaml:"instance"`
	Database    DatabaseConfig    `yaml:"database"`
	Upstream    UpstreamConfig    `yaml:"upstream"`
	Listen      ListenConfig      `yaml:"listen"`
	Schemas     SchemasConfig     `yaml:"schemas"`
	Broadcaster BroadcasterConfig `yaml:"broadcaster"`
	Retention   RetentionConfig   `yaml:"retention"`
	Cache       CacheConfig       `yaml:"cache"`
	Writers     WritersConfig     `yaml:"writers"`
}

// InstanceConfig identifies this process.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// DatabaseConfig is the Postgres connection and pool configuration.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// UpstreamConfig describes the read-only socket feed this service consumes.
type UpstreamConfig struct {
	URL                string        `yaml:"url"`
	FrontendVersion    string        `yaml:"frontend_version"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	MaxReconnects      int           `yaml:"max_reconnects"` // 0 = unlimited
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	WriteTimeout        time.Duration `yaml:"write_timeout"`
	RawQueueCapacity   int           `yaml:"raw_queue_capacity"`
}

// ListenConfig is the REST/WS HTTP listener.
type ListenConfig struct {
	Address     string   `yaml:"address"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// SchemasConfig points at the compiled JSON Schema set.
type SchemasConfig struct {
	Dir string `yaml:"dir"`
}

// BroadcasterConfig tunes the downstream fan-out.
type BroadcasterConfig struct {
	SubscriberBufferSize int           `yaml:"subscriber_buffer_size"`
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
}

// RetentionConfig configures the sweeper's per-collection TTL emulation.
// A zero MaxAge disables sweeping for that collection. The sweeper reads
// only Snapshots, Events and ConnectionEvents; Ticks and Indices are
// accepted but not applied.
type RetentionConfig struct {
	Snapshots        TTLConfig `yaml:"snapshots"`
	Events           TTLConfig `yaml:"events"`
	ConnectionEvents TTLConfig `yaml:"connection_events"`
	Ticks            TTLConfig `yaml:"ticks"`
	Indices          TTLConfig `yaml:"indices"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
}

// TTLConfig is a single retention window. MaxAge == 0 disables the sweep.
type TTLConfig struct {
	MaxAge time.Duration `yaml:"max_age"`
}

// CacheConfig is the optional Redis write-through cache for live_state.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// WritersConfig tunes the persistence worker pool.
type WritersConfig struct {
	Workers       int           `yaml:"workers"`
	QueueCapacity int           `yaml:"queue_capacity"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	VerifierWorkers int         `yaml:"verifier_workers"`
}

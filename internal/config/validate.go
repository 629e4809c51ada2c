package config

import (
	"errors"
	"fmt"
)

// Validate checks required fields and value ranges after defaults have
// been applied.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.Upstream.URL == "" {
		return errors.New("upstream.url is required")
	}
	if c.Upstream.RawQueueCapacity < 1 {
		return errors.New("upstream.raw_queue_capacity must be >= 1")
	}

	if c.Broadcaster.SubscriberBufferSize < 1 {
		return errors.New("broadcaster.subscriber_buffer_size must be >= 1")
	}

	if c.Writers.Workers < 1 {
		return errors.New("writers.workers must be >= 1")
	}
	if c.Writers.QueueCapacity < 1 {
		return errors.New("writers.queue_capacity must be >= 1")
	}
	if c.Writers.VerifierWorkers < 1 {
		return errors.New("writers.verifier_workers must be >= 1")
	}

	return nil
}

func (db *DatabaseConfig) validate(prefix string) error {
	if db.DSN != "" {
		return nil
	}
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

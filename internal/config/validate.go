package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateItems(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateJournal(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q is not a host:port address: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateItems() error {
	if c.Items.InitialSize < 0 {
		return errors.New("items.initial_size must not be negative")
	}
	if c.Items.DefaultLimit <= 0 {
		return errors.New("items.default_limit must be positive")
	}
	if c.Items.MaxLimit < 0 {
		return errors.New("items.max_limit must not be negative")
	}
	if c.Items.MaxLimit > 0 && c.Items.DefaultLimit > c.Items.MaxLimit {
		return errors.New("items.default_limit must not exceed items.max_limit")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if err := ensurePositiveMap(map[string]int{
		"queue.time_unit_ms":      c.Queue.TimeUnitMillis,
		"queue.fast_window_units": c.Queue.FastWindowUnits,
		"queue.slow_window_units": c.Queue.SlowWindowUnits,
	}); err != nil {
		return err
	}
	if c.Queue.SlowWindowUnits < c.Queue.FastWindowUnits {
		return errors.New("queue.slow_window_units must be at least queue.fast_window_units")
	}
	return nil
}

func (c *Config) validateJournal() error {
	if c.Journal.Enabled && c.Journal.MaxBatches <= 0 {
		return errors.New("journal.max_batches must be positive when journal.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

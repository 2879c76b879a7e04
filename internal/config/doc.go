// Package config loads, normalizes, and validates picker configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PORT and PICKER_API_BIND. The Config type centralizes every knob the daemon
// and CLI need: state and log directories, the initial universe size, page
// limits, queue window timing, CORS origins, and journal retention.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, derived intervals, and clear validation errors.
package config

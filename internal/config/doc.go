// Package config loads, normalizes, and validates backend configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TOD_SECRET_KEY and GROQ_API_KEY. The Config type centralizes every knob the
// API server and queue worker need, allowing data directories, broker keys,
// and external service credentials to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

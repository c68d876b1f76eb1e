// Package config loads, normalizes, and validates slidesift configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SLIDESIFT_PG_DSN and HF_TOKEN. The Config type centralizes every knob the
// pipeline stages and CLI need: scene threshold, embedding generator,
// clustering radii, OCR and transcription settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

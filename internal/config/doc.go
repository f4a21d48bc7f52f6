// Package config loads application configuration from a YAML file with
// environment variable overrides.
//
// Precedence, lowest to highest: built-in defaults, YAML file, environment.
// Sensitive values (OAuth client secret, Gemini API key) are normally supplied
// via environment rather than the file.
package config

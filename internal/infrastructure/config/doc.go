// Package config loads service settings from the environment.
//
// Every field has an envconfig default, so an empty environment yields a
// runnable configuration. Load validates the result; LoadOrDefault falls
// back to Default on any error.
package config

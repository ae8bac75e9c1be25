// Package config handles configuration loading and management for smokecheck.
//
// It provides functionality for:
//   - Loading configuration from smokecheck.yaml or .smokecheck.yaml files
//   - Default targets, timeouts and reporters
//   - ${VAR} and ${VAR:-default} expansion of file values
//   - Merging CLI overrides over file values
package config

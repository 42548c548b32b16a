// Package config loads the panel configuration from a YAML file, environment
// variables and command-line flags, in increasing order of precedence. It
// covers the monitored service URL, request timeout, wait-mode deadline,
// clipboard backend, listen address and logging level.
package config

// Package config loads server settings from defaults, an optional YAML file
// (~/.ue-knowledge/config.yaml or --config), UEKB_* environment variables and
// bound command-line flags, in increasing precedence.
package config

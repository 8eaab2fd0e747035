// Package config provides configuration management for relay.
//
// Configuration is loaded from a YAML file, decoded on top of the defaults,
// overridden by environment variables and validated before use:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("relay.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention RELAY_SECTION_FIELD:
//
//   - RELAY_PROXY_RESTRICT_TO_LOOPBACK overrides proxy.restrict_to_loopback
//   - RELAY_UPSTREAM_USE_PROXY overrides upstream.use_proxy
//   - RELAY_UPSTREAM_PROXY_HOST overrides upstream.proxy_host
//   - RELAY_UPSTREAM_PROXY_PORT overrides upstream.proxy_port
//   - RELAY_CAPTURE_HOSTS overrides capture.hosts (comma separated)
//
// A malformed override value fails loading instead of being ignored.
//
// # Hot Reload
//
// Watcher observes the configuration file with fsnotify. Only the capture
// rules and the decoder rules are applied live; every other section needs a
// restart.
package config

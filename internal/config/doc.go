// Package config provides configuration management for the download client.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Default configuration values
//   - Interval and timeout accessors for the session loops
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Server URL points at the public service
//	// Heartbeat every 60s, status poll every 10s
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.json")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// User overrides merge onto the defaults: keys present in the file win,
// everything else keeps its default.
//
// # Credentials
//
// The user section never stores a plaintext password. The session writes
// the one-way transmission digest instead, so auto-login works without the
// clear password ever touching disk.
package config

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// ServerSettings configures how to reach the service.
type ServerSettings struct {
	URL            string `json:"url"`
	TimeoutSeconds int    `json:"timeout"`
}

// UserSettings holds the remembered user identity.
//
// Password is a credential reference, not the plaintext: the session stores
// the one-way transmission digest here so auto-login can replay it without
// the clear password ever being written to disk.
type UserSettings struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	LicenseKey string `json:"license_key"`
	AutoLogin  bool   `json:"auto_login"`
	Password   string `json:"password"`
}

// ConnectionSettings configures the background loops.
type ConnectionSettings struct {
	HeartbeatIntervalSeconds   int  `json:"heartbeat_interval"`
	StatusCheckIntervalSeconds int  `json:"status_check_interval"`
	AutoReconnect              bool `json:"auto_reconnect"`
}

// Settings holds all configuration options, grouped the way the service's
// config file lays them out.
type Settings struct {
	Server     ServerSettings     `json:"server"`
	User       UserSettings       `json:"user"`
	Connection ConnectionSettings `json:"connection"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		Server: ServerSettings{
			URL:            "https://xuke.ambition.qzz.io",
			TimeoutSeconds: 30,
		},
		Connection: ConnectionSettings{
			HeartbeatIntervalSeconds:   60,
			StatusCheckIntervalSeconds: 10,
			AutoReconnect:              true,
		},
	}
}

// HeartbeatInterval returns the heartbeat period as a duration, falling back
// to the default when the configured value is not positive.
func (s *Settings) HeartbeatInterval() time.Duration {
	if s.Connection.HeartbeatIntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(s.Connection.HeartbeatIntervalSeconds) * time.Second
}

// StatusCheckInterval returns the status-poll period as a duration, falling
// back to the default when the configured value is not positive.
func (s *Settings) StatusCheckInterval() time.Duration {
	if s.Connection.StatusCheckIntervalSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.Connection.StatusCheckIntervalSeconds) * time.Second
}

// Timeout returns the request timeout as a duration.
func (s *Settings) Timeout() time.Duration {
	if s.Server.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.Server.TimeoutSeconds) * time.Second
}

// Load reads settings from a JSON file.
//
// Values present in the file override the defaults section by section;
// missing keys keep their default values. A missing file is not an error
// and yields the defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// validJWTSecret meets the 32-character minimum requirement.
const validJWTSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

// validConfig returns a config that passes Validate, for mutation in table tests.
func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWT.Secret = validJWTSecret
	return cfg
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: "test-site"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
relay:
  binary: "/usr/local/bin/ffmpeg"
  local_endpoint: "rtmp://10.0.0.5:1935"
  publish_base: "rtmp://10.0.0.5:1935/live"
  grace_period: 3s
scheduler:
  enabled: true
  tick_interval: 15s
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.Relay.Binary != "/usr/local/bin/ffmpeg" {
		t.Errorf("Relay.Binary = %q, want %q", cfg.Relay.Binary, "/usr/local/bin/ffmpeg")
	}
	if cfg.Relay.GracePeriod != 3*time.Second {
		t.Errorf("Relay.GracePeriod = %v, want 3s", cfg.Relay.GracePeriod)
	}
	if cfg.Scheduler.TickInterval != 15*time.Second {
		t.Errorf("Scheduler.TickInterval = %v, want 15s", cfg.Scheduler.TickInterval)
	}
	// Unset keys keep their defaults.
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want default 8080", cfg.API.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: ""
database:
  path: "/tmp/test.db"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}, wantErr: false},
		{name: "missing site ID", mutate: func(c *Config) { c.Site.ID = "" }, wantErr: true},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "invalid port low", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "invalid port high", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: true},
		{name: "missing local endpoint", mutate: func(c *Config) { c.Relay.LocalEndpoint = "" }, wantErr: true},
		{name: "missing publish base", mutate: func(c *Config) { c.Relay.PublishBase = "" }, wantErr: true},
		{name: "zero grace period", mutate: func(c *Config) { c.Relay.GracePeriod = 0 }, wantErr: true},
		{name: "tick interval too short", mutate: func(c *Config) { c.Scheduler.TickInterval = 100 * time.Millisecond }, wantErr: true},
		{
			name: "short tick ignored when scheduler disabled",
			mutate: func(c *Config) {
				c.Scheduler.Enabled = false
				c.Scheduler.TickInterval = 0
			},
			wantErr: false,
		},
		{name: "missing JWT secret", mutate: func(c *Config) { c.Security.JWT.Secret = "" }, wantErr: true},
		{name: "JWT secret too short", mutate: func(c *Config) { c.Security.JWT.Secret = "short" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("STUDIOCAST_DATABASE_PATH", "/custom/path.db")
	t.Setenv("STUDIOCAST_MQTT_HOST", "mqtt.example.com")
	t.Setenv("STUDIOCAST_MQTT_USERNAME", "testuser")
	t.Setenv("STUDIOCAST_MQTT_PASSWORD", "testpass")
	t.Setenv("STUDIOCAST_API_HOST", "192.168.1.1")
	t.Setenv("STUDIOCAST_API_PORT", "9090")
	t.Setenv("STUDIOCAST_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("STUDIOCAST_RELAY_BINARY", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("STUDIOCAST_RELAY_LOCAL_ENDPOINT", "rtmp://media:1935")
	t.Setenv("STUDIOCAST_SCHEDULER_TICK_INTERVAL", "45s")
	t.Setenv("STUDIOCAST_JWT_SECRET", "jwt-secret")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Relay.Binary != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("Relay.Binary = %q, want %q", cfg.Relay.Binary, "/opt/ffmpeg/bin/ffmpeg")
	}
	if cfg.Relay.LocalEndpoint != "rtmp://media:1935" {
		t.Errorf("Relay.LocalEndpoint = %q, want %q", cfg.Relay.LocalEndpoint, "rtmp://media:1935")
	}
	if cfg.Scheduler.TickInterval != 45*time.Second {
		t.Errorf("Scheduler.TickInterval = %v, want 45s", cfg.Scheduler.TickInterval)
	}
	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "jwt-secret")
	}
}

func TestApplyEnvOverrides_IgnoresMalformedValues(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("STUDIOCAST_API_PORT", "not-a-port")
	t.Setenv("STUDIOCAST_SCHEDULER_TICK_INTERVAL", "soon")

	applyEnvOverrides(cfg)

	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want default 8080", cfg.API.Port)
	}
	if cfg.Scheduler.TickInterval != 30*time.Second {
		t.Errorf("Scheduler.TickInterval = %v, want default 30s", cfg.Scheduler.TickInterval)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Site.ID == "" {
		t.Error("defaultConfig should have non-empty Site.ID")
	}
	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.Relay.GracePeriod != 5*time.Second {
		t.Errorf("defaultConfig Relay.GracePeriod = %v, want 5s", cfg.Relay.GracePeriod)
	}
	if cfg.Relay.Binary != "" {
		t.Errorf("defaultConfig Relay.Binary = %q, want empty ($PATH lookup)", cfg.Relay.Binary)
	}
}

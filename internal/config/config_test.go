package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
app:
  name: "termin-test"
database:
  path: "test.db"
api:
  enabled: true
  http:
    enabled: true
    port: 8181
  auth:
    enabled: true
    api_keys:
      - key: "secret"
        name: "admin-app"
        admin: true
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "termin-test" {
		t.Errorf("expected app name termin-test, got %s", cfg.App.Name)
	}
	if cfg.Database.Path != "test.db" {
		t.Errorf("expected database path test.db, got %s", cfg.Database.Path)
	}
	if cfg.API.HTTP.Port != 8181 {
		t.Errorf("expected port 8181, got %d", cfg.API.HTTP.Port)
	}
	if len(cfg.API.Auth.APIKeys) != 1 || !cfg.API.Auth.APIKeys[0].Admin {
		t.Errorf("expected one admin api key, got %+v", cfg.API.Auth.APIKeys)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
database:
  path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected default level info, got %s", cfg.Logging.Level)
	}
	if cfg.API.Auth.HeaderAPIKey != "x-api-key" {
		t.Errorf("expected default auth header, got %s", cfg.API.Auth.HeaderAPIKey)
	}
	if cfg.Booking.StoreTimeoutSeconds != 5 {
		t.Errorf("expected default store timeout 5, got %d", cfg.Booking.StoreTimeoutSeconds)
	}
	if cfg.Booking.CacheTTLSeconds != 300 {
		t.Errorf("expected default cache ttl 300, got %d", cfg.Booking.CacheTTLSeconds)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     Config{Database: DatabaseConfig{Path: "path"}},
			wantErr: false,
		},
		{
			name:    "missing database path",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name: "auth enabled without keys",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				API:      APIConfig{Enabled: true, Auth: APIAuthConfig{Enabled: true}},
			},
			wantErr: true,
		},
		{
			name: "empty api key",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				API: APIConfig{Auth: APIAuthConfig{
					APIKeys: []APIClientKey{{Name: "noop"}},
				}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigEnvExpansion(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("TERMIN_DB_PATH", "env.db")

	yamlContent := `
database:
  path: "${TERMIN_DB_PATH}"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.Path != "env.db" {
		t.Errorf("expected env expansion to env.db, got %s", cfg.Database.Path)
	}
}

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
backend:
  base_url: "http://localhost:9000"
rooms:
  catalog_path: "rooms.json"
refresh:
  events: 5
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Backend.BaseURL != "http://localhost:9000" {
		t.Errorf("expected base_url http://localhost:9000, got %s", cfg.Backend.BaseURL)
	}

	if cfg.Refresh.Events != 5 {
		t.Errorf("expected events refresh 5, got %d", cfg.Refresh.Events)
	}

	// Defaults fill everything the file omits.
	if cfg.Backend.Timeout != 30 {
		t.Errorf("expected default timeout 30, got %d", cfg.Backend.Timeout)
	}
	if cfg.Timezone != "Asia/Taipei" {
		t.Errorf("expected default timezone Asia/Taipei, got %s", cfg.Timezone)
	}
	if cfg.Refresh.Stats != 30 || cfg.Refresh.ActivePlans != 15 {
		t.Errorf("unexpected refresh defaults: %+v", cfg.Refresh)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("HAPP_API_URL", "http://happ.internal")

	yamlContent := `
backend:
  base_url: "${HAPP_API_URL}"
rooms:
  catalog_path: "rooms.json"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Backend.BaseURL != "http://happ.internal" {
		t.Errorf("expected expanded base_url, got %s", cfg.Backend.BaseURL)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Backend: BackendConfig{BaseURL: "http://localhost:9000"},
				Rooms:   RoomsConfig{CatalogPath: "rooms.json"},
			},
			wantErr: false,
		},
		{
			name: "missing base_url",
			cfg: Config{
				Rooms: RoomsConfig{CatalogPath: "rooms.json"},
			},
			wantErr: true,
		},
		{
			name: "missing catalog",
			cfg: Config{
				Backend: BackendConfig{BaseURL: "http://localhost:9000"},
			},
			wantErr: true,
		},
		{
			name: "redis enabled without address",
			cfg: Config{
				Backend: BackendConfig{BaseURL: "http://localhost:9000"},
				Rooms:   RoomsConfig{CatalogPath: "rooms.json"},
				Redis:   RedisConfig{Enabled: true},
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

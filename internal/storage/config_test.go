package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadServerConfigCreatesDefaults(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	cfg, err := LoadServerConfig(dir)
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	if cfg.Quotas != DefaultResourceQuotas() {
		t.Errorf("Quotas = %+v", cfg.Quotas)
	}
	if cfg.RateLimits != DefaultRateLimits() {
		t.Errorf("RateLimits = %+v", cfg.RateLimits)
	}

	// The file is created so operators can edit it.
	if _, err := os.Stat(filepath.Join(dir, "server_config.json")); err != nil {
		t.Errorf("server_config.json not created: %v", err)
	}
}

func TestLoadServerConfigRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	cfg, err := LoadServerConfig(dir)
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	cfg.Quotas.MaxLayers = 7
	cfg.RateLimits.WriteRatePerMin = 3
	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadServerConfig(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Quotas.MaxLayers != 7 || loaded.RateLimits.WriteRatePerMin != 3 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestLoadServerConfigRejectsInvalid(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	bad := `{"quotas":{"max_layers":-1}}`
	if err := os.WriteFile(filepath.Join(dir, "server_config.json"), []byte(bad), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadServerConfig(dir); err == nil {
		t.Fatal("expected validation error")
	}
}

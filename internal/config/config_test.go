package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"posrecon/internal/model"
)

func TestLoadConfigWithInfo_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
port = 8088

[run]
max_attempts = 5

[[business.stores]]
code = "CH01"
name = "CHXD Số 1"

[[business.stores]]
code = "CH02"
name = "CHXD Số 2"

[business.volume_mapping]
"KT01" = "CH01"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("POSRECON_INTERNAL_API_KEY", "secret")

	cfg, info, err := LoadConfigWithInfo(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !info.Found || !info.PortSpecified {
		t.Fatalf("info got=%+v", info)
	}
	if cfg.Server.Port != 8088 || cfg.Run.MaxAttempts != 5 {
		t.Fatalf("overrides not applied: port=%d attempts=%d", cfg.Server.Port, cfg.Run.MaxAttempts)
	}
	if cfg.Run.RetryDelaySeconds != 5 {
		t.Fatalf("default retry delay lost: %d", cfg.Run.RetryDelaySeconds)
	}
	if len(cfg.Business.Stores) != 2 || cfg.Business.VolumeMapping["KT01"] != "CH01" {
		t.Fatalf("business tables got=%+v", cfg.Business)
	}
	if cfg.Server.InternalAPIKey != "secret" {
		t.Fatalf("env override got=%q", cfg.Server.InternalAPIKey)
	}
	if name, ok := cfg.Business.StoreName("CH02"); !ok || name != "CHXD Số 2" {
		t.Fatalf("StoreName got=%q ok=%v", name, ok)
	}
}

func TestLoadConfigWithInfo_Missing(t *testing.T) {
	t.Parallel()

	cfg, info, err := LoadConfigWithInfo(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if info.Found {
		t.Fatalf("expected Found=false")
	}
	if len(cfg.Business.Products) != 5 || len(cfg.Business.VolumeColumns) != 5 {
		t.Fatalf("defaults missing: %+v", cfg.Business)
	}
}

func TestBusinessValidate(t *testing.T) {
	t.Parallel()

	base := DefaultConfig().Business
	base.Stores = []model.Store{{Code: "CH01", Name: "CHXD Số 1"}}

	dup := base
	dup.Stores = append([]model.Store{}, base.Stores[0], base.Stores[0])
	if err := dup.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("duplicate store err=%v", err)
	}

	badMap := base
	badMap.CashMapping = map[string]string{"KT9": "CH99"}
	if err := badMap.Validate(); err == nil {
		t.Fatalf("expected unknown store error")
	}

	noProducts := base
	noProducts.Products = nil
	if err := noProducts.Validate(); err == nil {
		t.Fatalf("expected empty products error")
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestSaveConfigReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Server.Port = 8088
	cfg.Business.Stores = []model.Store{{Code: "S1", Name: "CHXD A"}}
	cfg.Business.CashMapping = map[string]string{"TM01": "S1"}
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, info, err := LoadConfigWithInfo(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !info.Found || !info.PortSpecified || got.Server.Port != 8088 {
		t.Fatalf("info=%+v port=%d", info, got.Server.Port)
	}
	if name, ok := got.Business.StoreName("S1"); !ok || name != "CHXD A" {
		t.Fatalf("store got=%q ok=%v", name, ok)
	}
	if got.Business.CashMapping["TM01"] != "S1" {
		t.Fatalf("cash mapping got=%v", got.Business.CashMapping)
	}
}

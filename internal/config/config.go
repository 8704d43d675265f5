package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"posrecon/internal/model"
)

// AppConfig application configuration read from config.toml.
type AppConfig struct {
	Server    ServerConfig    `toml:"server"`
	Data      DataConfig      `toml:"data"`
	Log       LogConfig       `toml:"log"`
	Run       RunConfig       `toml:"run"`
	Source    SourceConfig    `toml:"source"`
	Directory DirectoryConfig `toml:"directory"`
	Business  BusinessConfig  `toml:"business"`
}

// ServerConfig HTTP server settings.
type ServerConfig struct {
	Port           int    `toml:"port"`
	DevMode        bool   `toml:"dev_mode"`
	OpenBrowser    bool   `toml:"open_browser"`
	InternalAPIKey string `toml:"internal_api_key"` // guards /internal routes; empty disables them
}

// DataConfig storage settings.
type DataConfig struct {
	DataDir string `toml:"data_dir"`
	DBName  string `toml:"db_name"`
}

// LogConfig logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// RunConfig daily run settings.
type RunConfig struct {
	MaxAttempts       int    `toml:"max_attempts"`
	RetryDelaySeconds int    `toml:"retry_delay_seconds"`
	Workers           int    `toml:"workers"`
	Timezone          string `toml:"timezone"`
	ScheduleAt        string `toml:"schedule_at"` // HH:MM local time
}

// SourceConfig where downloaded vendor reports are picked up.
type SourceConfig struct {
	ReportDir string `toml:"report_dir"`
}

// DirectoryConfig customer directory (DSKH) location.
// A spreadsheet id takes precedence over the local workbook.
type DirectoryConfig struct {
	XLSXPath        string `toml:"xlsx_path"`
	SheetName       string `toml:"sheet_name"`
	SpreadsheetID   string `toml:"spreadsheet_id"`
	CredentialsFile string `toml:"credentials_file"`
}

// VolumeColumn ties a POS product to the suffix of its date-stamped ledger column.
type VolumeColumn struct {
	Product string `toml:"product"`
	Suffix  string `toml:"suffix"`
}

// BusinessConfig reference tables for parsing and reconciliation.
type BusinessConfig struct {
	Products             []string          `toml:"products"`
	Stores               []model.Store     `toml:"stores"`
	VolumeMapping        map[string]string `toml:"volume_mapping"` // ledger entity code -> store code
	CashMapping          map[string]string `toml:"cash_mapping"`
	DebtStoreMapping     map[string]string `toml:"debt_store_mapping"` // ledger store code -> store code, optional
	VolumeColumns        []VolumeColumn    `toml:"volume_columns"`
	DebtStoreRowPrefix   string            `toml:"debt_store_row_prefix"`
	ExcludedCustomers    []string          `toml:"excluded_customers"`
	PlaceholderCustomers []string          `toml:"placeholder_customers"`
	UnknownCode          string            `toml:"unknown_code"`
}

// LoadConfigInfo metadata about how the configuration was loaded.
type LoadConfigInfo struct {
	Path          string
	Found         bool
	PortSpecified bool
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:        20262,
			OpenBrowser: true,
		},
		Data: DataConfig{
			DataDir: "data",
			DBName:  "posrecon.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Run: RunConfig{
			MaxAttempts:       3,
			RetryDelaySeconds: 5,
			Workers:           4,
			Timezone:          "Asia/Ho_Chi_Minh",
			ScheduleAt:        "06:30",
		},
		Source: SourceConfig{
			ReportDir: "reports",
		},
		Directory: DirectoryConfig{
			SheetName: "DSKH",
		},
		Business: BusinessConfig{
			Products: []string{
				"Xăng RON95 Mức 3",
				"Xăng E5 RON92 Mức 2",
				"Dầu Điêzen 0,05S Mức 2",
				"Dầu Điêzen 0,001S Mức 5",
				"Dầu mỡ nhờn",
			},
			VolumeMapping:    map[string]string{},
			CashMapping:      map[string]string{},
			DebtStoreMapping: map[string]string{},
			VolumeColumns: []VolumeColumn{
				{Product: "Dầu Điêzen 0,001S Mức 5", Suffix: "Dầu DO 0,001S-V"},
				{Product: "Dầu mỡ nhờn", Suffix: "Dầu mỡ nhờn"},
				{Product: "Dầu Điêzen 0,05S Mức 2", Suffix: "DO"},
				{Product: "Xăng RON95 Mức 3", Suffix: "Xăng A95"},
				{Product: "Xăng E5 RON92 Mức 2", Suffix: "Xăng E5"},
			},
			DebtStoreRowPrefix:   "Cửa hàng",
			ExcludedCustomers:    []string{"Công nợ chung"},
			PlaceholderCustomers: []string{"Khách lẻ", "Khách hàng lẻ", "Khách vãng lai"},
			UnknownCode:          "Không tìm thấy mã khách",
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}
	serverMap, ok := raw["server"].(map[string]any)
	if !ok {
		return false
	}
	_, ok = serverMap["port"]
	return ok
}

// GetExeDir returns the directory holding the running executable.
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultConfigPath is config.toml next to the executable.
func DefaultConfigPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, "config.toml")
}

// LoadConfigWithInfo loads path (or config.toml beside the executable when path is empty),
// applies environment overrides and validates the business tables.
func LoadConfigWithInfo(path string) (*AppConfig, LoadConfigInfo, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	info := LoadConfigInfo{Path: path}
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		info.Found = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, info, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, info, err
	}

	applyEnv(cfg)

	if err := cfg.Business.Validate(); err != nil {
		return nil, info, err
	}
	return cfg, info, nil
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("POSRECON_INTERNAL_API_KEY"); v != "" {
		cfg.Server.InternalAPIKey = v
	}
	if v := os.Getenv("POSRECON_DATA_DIR"); v != "" {
		cfg.Data.DataDir = v
	}
	if v := os.Getenv("POSRECON_REPORT_DIR"); v != "" {
		cfg.Source.ReportDir = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" && cfg.Directory.CredentialsFile == "" {
		cfg.Directory.CredentialsFile = v
	}
}

// SaveConfig writes cfg to path as TOML.
func SaveConfig(cfg *AppConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects reference tables that would make reconciliation ambiguous.
func (b BusinessConfig) Validate() error {
	if len(b.Products) == 0 {
		return fmt.Errorf("business.products must not be empty")
	}
	if strings.TrimSpace(b.UnknownCode) == "" {
		return fmt.Errorf("business.unknown_code must not be empty")
	}

	codes := make(map[string]bool, len(b.Stores))
	for _, s := range b.Stores {
		if s.Code == "" || s.Name == "" {
			return fmt.Errorf("business.stores: code and name are required (code=%q name=%q)", s.Code, s.Name)
		}
		if codes[s.Code] {
			return fmt.Errorf("business.stores: duplicate code %q", s.Code)
		}
		codes[s.Code] = true
	}

	for name, m := range map[string]map[string]string{
		"volume_mapping":     b.VolumeMapping,
		"cash_mapping":       b.CashMapping,
		"debt_store_mapping": b.DebtStoreMapping,
	} {
		for ledgerCode, storeCode := range m {
			if !codes[storeCode] {
				return fmt.Errorf("business.%s: %q maps to unknown store %q", name, ledgerCode, storeCode)
			}
		}
	}

	products := make(map[string]bool, len(b.Products))
	for _, p := range b.Products {
		products[p] = true
	}
	for _, c := range b.VolumeColumns {
		if !products[c.Product] {
			return fmt.Errorf("business.volume_columns: unknown product %q", c.Product)
		}
	}
	return nil
}

// StoreName returns the display name for a store code.
func (b BusinessConfig) StoreName(code string) (string, bool) {
	for _, s := range b.Stores {
		if s.Code == code {
			return s.Name, true
		}
	}
	return "", false
}

// RetryDelay pause between store retry attempts.
func (r RunConfig) RetryDelay() time.Duration {
	return time.Duration(r.RetryDelaySeconds) * time.Second
}

// Location resolves the configured timezone, falling back to UTC+7.
func (r RunConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(r.Timezone); err == nil {
		return loc
	}
	return time.FixedZone("ICT", 7*3600)
}

// EnsureDataDir creates the data directory and its subdirectories, relative to the executable
// unless DataDir is absolute.
func EnsureDataDir(cfg *AppConfig) (string, error) {
	dataDir := resolveDir(cfg.Data.DataDir)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	for _, subdir := range []string{"uploads", "exports"} {
		if err := os.MkdirAll(filepath.Join(dataDir, subdir), 0755); err != nil {
			return "", err
		}
	}
	return dataDir, nil
}

// DBPath sqlite database path inside the data directory.
func DBPath(cfg *AppConfig) string {
	return filepath.Join(resolveDir(cfg.Data.DataDir), cfg.Data.DBName)
}

// ReportDir resolves the report source directory.
func ReportDir(cfg *AppConfig) string {
	return resolveDir(cfg.Source.ReportDir)
}

func resolveDir(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	exeDir, err := GetExeDir()
	if err != nil || exeDir == "" {
		exeDir = "."
	}
	return filepath.Join(exeDir, dir)
}

package findduplicatefiles

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, DefaultConfigFile)

	// Load config (missing file gives defaults)
	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	all := config.GetAllConfig()
	if all.Hash.Default != "sha256" {
		t.Errorf("Expected default hash algorithm 'sha256', got '%s'", all.Hash.Default)
	}
	if all.Performance.PrefixSize != "64K" {
		t.Errorf("Expected default prefix size '64K', got '%s'", all.Performance.PrefixSize)
	}
	if all.Performance.ReadTimeout != 30*time.Second {
		t.Errorf("Expected default read timeout 30s, got %s", all.Performance.ReadTimeout)
	}
	if all.Symlink.Mode != SymlinkContained {
		t.Errorf("Expected default symlink mode 'contained', got '%s'", all.Symlink.Mode)
	}
	if all.Store.Driver != DriverSQLite {
		t.Errorf("Expected default store driver 'sqlite', got '%s'", all.Store.Driver)
	}
	if all.App.DatabasePath != DefaultDatabasePath {
		t.Errorf("Expected default database path '%s', got '%s'", DefaultDatabasePath, all.App.DatabasePath)
	}

	// Loading must not write anything
	if _, err := os.Stat(configPath); !os.IsNotExist(err) {
		t.Error("Config file should not be created by LoadConfig")
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestSaveDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "finddups.ini")

	if err := SaveDefaultConfig(configPath); err != nil {
		t.Fatalf("Failed to save default config: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	for _, want := range []string{"[filehash]", "[performance]", "prefix_size", "[store]"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Saved config missing %q", want)
		}
	}

	// Refuses to overwrite
	err = SaveDefaultConfig(configPath)
	if !errors.Is(err, os.ErrExist) {
		t.Errorf("Expected ErrExist on second save, got %v", err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "finddups.ini")
	content := `[app]
folder_start = /data
delete_prior = true

[filehash]
default = sha512
verify = true

[performance]
hash_workers = 8
prefix_size = 128K
read_timeout = 5s
io_limit = 10M

[scan]
hardlinks = true
min_size = 1K
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	app := config.GetAppConfig()
	if app.FolderStart != "/data" || !app.DeletePrior {
		t.Errorf("Unexpected app config: %+v", app)
	}

	opts, err := config.Options(nil)
	if err != nil {
		t.Fatalf("Failed to build options: %v", err)
	}
	if opts.HashAlgorithm != "sha512" || !opts.Verify {
		t.Errorf("Unexpected hash options: %s verify=%v", opts.HashAlgorithm, opts.Verify)
	}
	if opts.Workers != 8 {
		t.Errorf("Expected 8 workers, got %d", opts.Workers)
	}
	if opts.PrefixSize != 128*1024 {
		t.Errorf("Expected prefix size 131072, got %d", opts.PrefixSize)
	}
	if opts.ReadTimeout != 5*time.Second {
		t.Errorf("Expected read timeout 5s, got %s", opts.ReadTimeout)
	}
	if opts.IOLimit != 10*1024*1024 {
		t.Errorf("Expected io limit 10M, got %d", opts.IOLimit)
	}
	if !opts.Hardlinks || opts.MinSize != 1024 {
		t.Errorf("Unexpected scan options: hardlinks=%v min_size=%d", opts.Hardlinks, opts.MinSize)
	}
	if opts.Logger == nil {
		t.Error("Options should always carry a logger")
	}
	// Unset keys keep their defaults
	if opts.SymlinkMode != SymlinkContained {
		t.Errorf("Expected default symlink mode, got %s", opts.SymlinkMode)
	}
}

func TestConfigOverrides(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "none.ini"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	err = config.ApplyOverrides([]string{
		"default:sha1",
		"format:json",
		"level:2",
		"performance.prefix_size:4K",
		"mode: none",
	})
	if err != nil {
		t.Fatalf("Failed to apply overrides: %v", err)
	}

	all := config.GetAllConfig()
	if all.Hash.Default != "sha1" {
		t.Errorf("Expected hash algorithm 'sha1' after override, got '%s'", all.Hash.Default)
	}
	if all.Output.Format != "json" {
		t.Errorf("Expected output format 'json' after override, got '%s'", all.Output.Format)
	}
	if all.Verbose.Level != 2 {
		t.Errorf("Expected verbose level 2 after override, got %d", all.Verbose.Level)
	}
	if all.Performance.PrefixSize != "4K" {
		t.Errorf("Expected prefix size '4K' after override, got '%s'", all.Performance.PrefixSize)
	}
	if all.Symlink.Mode != "none" {
		t.Errorf("Expected symlink mode 'none' after override, got '%s'", all.Symlink.Mode)
	}
}

func TestConfigOverridesInvalid(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "none.ini"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	testCases := []string{
		"no-colon",
		"unknown:value",
		"filehash.prefix_size:1K", // key exists, but not in that section
	}
	for _, override := range testCases {
		if err := config.ApplyOverrides([]string{override}); err == nil {
			t.Errorf("Override %q should be rejected", override)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		override string
		field    string
	}{
		{"default:md5", "filehash.default"},
		{"hash_workers:0", "performance.hash_workers"},
		{"hash_workers:65", "performance.hash_workers"},
		{"prefix_size:0", "performance.prefix_size"},
		{"hash_buffer:lots", "performance.hash_buffer"},
		{"read_timeout:-1s", "performance.read_timeout"},
		{"read_timeout:soon", "performance.read_timeout"},
		{"io_limit:fast", "performance.io_limit"},
		{"mode:sometimes", "symlink.mode"},
		{"min_size:-", "scan.min_size"},
		{"level:9", "verbose.level"},
		{"format:xml", "output.format"},
		{"driver:postgres", "store.driver"},
		{"driver:mysql", "store.dsn"},
	}

	for _, tc := range testCases {
		config, err := LoadConfig(filepath.Join(t.TempDir(), "none.ini"))
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if err := config.ApplyOverrides([]string{tc.override}); err != nil {
			t.Fatalf("Failed to apply override %q: %v", tc.override, err)
		}

		err = config.Validate()
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("Override %q: expected *ConfigError, got %v", tc.override, err)
			continue
		}
		if cfgErr.Field != tc.field {
			t.Errorf("Override %q: expected field %s, got %s", tc.override, tc.field, cfgErr.Field)
		}

		if _, err := config.Options(nil); err == nil {
			t.Errorf("Override %q: Options should fail on invalid config", tc.override)
		}
	}
}

func TestConfigIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	ignorePath := filepath.Join(dir, "ignore")
	if err := os.WriteFile(ignorePath, []byte("# comment\n\\.git$\n"), 0644); err != nil {
		t.Fatalf("Failed to write ignore file: %v", err)
	}

	config, err := LoadConfig(filepath.Join(dir, "none.ini"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if err := config.ApplyOverrides([]string{"ignore_file:" + ignorePath}); err != nil {
		t.Fatalf("Failed to apply override: %v", err)
	}

	opts, err := config.Options(nil)
	if err != nil {
		t.Fatalf("Failed to build options: %v", err)
	}
	if !opts.Ignore.ShouldIgnore("repo/.git") {
		t.Error("Expected .git to be ignored")
	}

	if err := config.ApplyOverrides([]string{"ignore_file:" + filepath.Join(dir, "missing")}); err != nil {
		t.Fatalf("Failed to apply override: %v", err)
	}
	if _, err := config.Options(nil); err == nil {
		t.Error("Expected error for missing ignore file")
	}
}

func TestHashAlgorithmValidation(t *testing.T) {
	testCases := []struct {
		algorithm string
		valid     bool
	}{
		{"sha1", true},
		{"sha256", true},
		{"sha512", true},
		{"crc64", true},
		{"SHA256", true}, // case insensitive
		{"md5", false},
		{"", false},
	}

	for _, tc := range testCases {
		err := ValidateHashAlgorithm(tc.algorithm)
		if tc.valid && err != nil {
			t.Errorf("Algorithm '%s' should be valid but got error: %v", tc.algorithm, err)
		}
		if !tc.valid && err == nil {
			t.Errorf("Algorithm '%s' should be invalid but no error returned", tc.algorithm)
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("Default options should validate: %v", err)
	}

	mutations := map[string]func(*Options){
		"prefix_size":  func(o *Options) { o.PrefixSize = -1 },
		"symlink_mode": func(o *Options) { o.SymlinkMode = "sometimes" },
		"hash_workers": func(o *Options) { o.Workers = 100 },
		"hash_buffer":  func(o *Options) { o.BufferSize = -5 },
		"read_timeout": func(o *Options) { o.ReadTimeout = -time.Second },
		"io_limit":     func(o *Options) { o.IOLimit = -1 },
		"min_size":     func(o *Options) { o.MinSize = -1 },
	}

	for field, mutate := range mutations {
		opts := DefaultOptions()
		mutate(&opts)

		var cfgErr *ConfigError
		if err := opts.Validate(); !errors.As(err, &cfgErr) || cfgErr.Field != field {
			t.Errorf("Expected ConfigError for %s, got %v", field, err)
		}
	}

	if FollowSymlinks(true) != SymlinkContained || FollowSymlinks(false) != SymlinkNone {
		t.Error("FollowSymlinks mapping is wrong")
	}
}

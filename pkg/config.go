package findduplicatefiles

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-ini/ini"
)

// Config represents the finddups configuration file
type Config struct {
	configPath string
	ini        *ini.File
}

// AppConfig represents the [app] section
type AppConfig struct {
	FolderStart  string // Default search root
	DatabasePath string // SQLite database or file store location
	DeletePrior  bool   // Remove earlier searches of the same root before saving
	Debug        bool   // Raise verbosity to debug level
}

// HashConfig represents hash algorithm configuration
type HashConfig struct {
	Default string // Default hash algorithm
	Verify  bool   // Confirm groups byte for byte
}

// PerformanceConfig represents performance-related configuration
type PerformanceConfig struct {
	HashWorkers int           // Number of concurrent hash workers (default: 4)
	HashBuffer  string        // Read buffer size (default: "2M")
	PrefixSize  string        // Bytes read in the prefix phase (default: "64K")
	ReadTimeout time.Duration // Deadline for each open or buffer read (default: 30s)
	IOLimit     string        // Read throughput cap per second, "0" for none
}

// SymlinkConfig represents symlink handling configuration
type SymlinkConfig struct {
	Mode string // none, contained, all
}

// ScanConfig represents traversal configuration
type ScanConfig struct {
	Hardlinks  bool   // Report every hard link separately
	MinSize    string // Ignore files smaller than this
	IgnoreFile string // File of path regexes to skip
}

// VerboseConfig represents verbosity configuration
type VerboseConfig struct {
	Level int // 0=warnings, 1=progress, 2=debug, 3=trace
}

// OutputConfig represents output format configuration
type OutputConfig struct {
	Format string // human, json, fdupes
}

// StoreConfig represents persistence configuration
type StoreConfig struct {
	Driver string // file or mysql
	DSN    string // MySQL data source name
}

// AllConfig represents all configuration options
type AllConfig struct {
	App         *AppConfig
	Hash        *HashConfig
	Performance *PerformanceConfig
	Symlink     *SymlinkConfig
	Scan        *ScanConfig
	Verbose     *VerboseConfig
	Output      *OutputConfig
	Store       *StoreConfig
}

type setting struct {
	section string
	key     string
	value   string
}

// defaultSettings lists every supported key with its default. Key names are
// unique across sections so overrides can address them without the section.
var defaultSettings = []setting{
	{"app", "folder_start", "."},
	{"app", "database_path", DefaultDatabasePath},
	{"app", "delete_prior", "false"},
	{"app", "debug", "false"},
	{"filehash", "default", DefaultHashAlgorithm},
	{"filehash", "verify", "false"},
	{"performance", "hash_workers", fmt.Sprint(DefaultHashWorkers)},
	{"performance", "hash_buffer", DefaultHashBuffer},
	{"performance", "prefix_size", DefaultPrefixSize},
	{"performance", "read_timeout", DefaultReadTimeout.String()},
	{"performance", "io_limit", "0"},
	{"symlink", "mode", DefaultSymlinkMode},
	{"scan", "hardlinks", "false"},
	{"scan", "min_size", "0"},
	{"scan", "ignore_file", ""},
	{"verbose", "level", "0"},
	{"output", "format", DefaultOutputFormat},
	{"store", "driver", DefaultStoreDriver},
	{"store", "dsn", ""},
}

// LoadConfig loads configuration from path. A missing file yields the
// defaults; nothing is written.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		configPath: configPath,
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		cfg.ini = ini.Empty()
		if err := cfg.setDefaults(); err != nil {
			return nil, fmt.Errorf("failed to set default config: %w", err)
		}
		return cfg, nil
	}

	iniFile, err := ini.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	cfg.ini = iniFile

	return cfg, nil
}

// SaveDefaultConfig writes a config file holding every default. It refuses to
// overwrite an existing file.
func SaveDefaultConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file %s: %w", configPath, os.ErrExist)
	}

	cfg := &Config{configPath: configPath, ini: ini.Empty()}
	if err := cfg.setDefaults(); err != nil {
		return fmt.Errorf("failed to set default config: %w", err)
	}
	return cfg.Save()
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() error {
	for _, s := range defaultSettings {
		section := c.ini.Section(s.section)
		if _, err := section.NewKey(s.key, s.value); err != nil {
			return fmt.Errorf("failed to set default %s.%s: %w", s.section, s.key, err)
		}
	}
	return nil
}

// Path returns the file the configuration was loaded from
func (c *Config) Path() string {
	return c.configPath
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	return c.ini.SaveTo(c.configPath)
}

// lookup returns the value of section.key, or fallback when unset
func (c *Config) lookup(section, key, fallback string) string {
	if !c.ini.HasSection(section) {
		return fallback
	}
	s := c.ini.Section(section)
	if !s.HasKey(key) {
		return fallback
	}
	return strings.TrimSpace(s.Key(key).String())
}

func (c *Config) lookupBool(section, key string, fallback bool) bool {
	if c.ini.HasSection(section) && c.ini.Section(section).HasKey(key) {
		if v, err := c.ini.Section(section).Key(key).Bool(); err == nil {
			return v
		}
	}
	return fallback
}

// GetAppConfig returns the application configuration
func (c *Config) GetAppConfig() *AppConfig {
	return &AppConfig{
		FolderStart:  c.lookup("app", "folder_start", "."),
		DatabasePath: c.lookup("app", "database_path", DefaultDatabasePath),
		DeletePrior:  c.lookupBool("app", "delete_prior", false),
		Debug:        c.lookupBool("app", "debug", false),
	}
}

// GetHashConfig returns the hash configuration
func (c *Config) GetHashConfig() *HashConfig {
	return &HashConfig{
		Default: c.lookup("filehash", "default", DefaultHashAlgorithm),
		Verify:  c.lookupBool("filehash", "verify", false),
	}
}

// GetPerformanceConfig returns the performance configuration
func (c *Config) GetPerformanceConfig() *PerformanceConfig {
	performanceConfig := &PerformanceConfig{
		HashWorkers: DefaultHashWorkers,
		HashBuffer:  c.lookup("performance", "hash_buffer", DefaultHashBuffer),
		PrefixSize:  c.lookup("performance", "prefix_size", DefaultPrefixSize),
		ReadTimeout: DefaultReadTimeout,
		IOLimit:     c.lookup("performance", "io_limit", "0"),
	}

	if c.ini.HasSection("performance") {
		section := c.ini.Section("performance")
		if section.HasKey("hash_workers") {
			if workers, err := section.Key("hash_workers").Int(); err == nil {
				performanceConfig.HashWorkers = workers
			}
		}
		if section.HasKey("read_timeout") {
			if timeout, err := section.Key("read_timeout").Duration(); err == nil {
				performanceConfig.ReadTimeout = timeout
			}
		}
	}

	return performanceConfig
}

// GetSymlinkConfig returns the symlink configuration
func (c *Config) GetSymlinkConfig() *SymlinkConfig {
	return &SymlinkConfig{
		Mode: c.lookup("symlink", "mode", DefaultSymlinkMode),
	}
}

// GetScanConfig returns the traversal configuration
func (c *Config) GetScanConfig() *ScanConfig {
	return &ScanConfig{
		Hardlinks:  c.lookupBool("scan", "hardlinks", false),
		MinSize:    c.lookup("scan", "min_size", "0"),
		IgnoreFile: c.lookup("scan", "ignore_file", ""),
	}
}

// GetVerboseConfig returns the verbose configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	verboseConfig := &VerboseConfig{}

	if c.ini.HasSection("verbose") && c.ini.Section("verbose").HasKey("level") {
		if level, err := c.ini.Section("verbose").Key("level").Int(); err == nil {
			verboseConfig.Level = level
		}
	}

	return verboseConfig
}

// GetOutputConfig returns the output configuration
func (c *Config) GetOutputConfig() *OutputConfig {
	return &OutputConfig{
		Format: c.lookup("output", "format", DefaultOutputFormat),
	}
}

// GetStoreConfig returns the persistence configuration
func (c *Config) GetStoreConfig() *StoreConfig {
	return &StoreConfig{
		Driver: c.lookup("store", "driver", DefaultStoreDriver),
		DSN:    c.lookup("store", "dsn", ""),
	}
}

// GetAllConfig returns all configuration options
func (c *Config) GetAllConfig() *AllConfig {
	return &AllConfig{
		App:         c.GetAppConfig(),
		Hash:        c.GetHashConfig(),
		Performance: c.GetPerformanceConfig(),
		Symlink:     c.GetSymlinkConfig(),
		Scan:        c.GetScanConfig(),
		Verbose:     c.GetVerboseConfig(),
		Output:      c.GetOutputConfig(),
		Store:       c.GetStoreConfig(),
	}
}

// ApplyOverrides applies command-line overrides to the configuration.
// Accepts strings like "default:sha512", "format:json", "level:2" or the
// qualified form "performance.prefix_size:128K".
func (c *Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid override format '%s', expected 'key:value'", override)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		section, name, ok := resolveSettingKey(key)
		if !ok {
			return fmt.Errorf("unsupported override key '%s' (supported: %s)", key, strings.Join(settingKeys(), ", "))
		}
		c.ini.Section(section).Key(name).SetValue(value)
	}

	return nil
}

// resolveSettingKey maps "key" or "section.key" to a known setting
func resolveSettingKey(key string) (string, string, bool) {
	section, name, qualified := strings.Cut(key, ".")
	if !qualified {
		name, section = section, ""
	}
	for _, s := range defaultSettings {
		if s.key == name && (section == "" || s.section == section) {
			return s.section, s.key, true
		}
	}
	return "", "", false
}

func settingKeys() []string {
	keys := make([]string, len(defaultSettings))
	for i, s := range defaultSettings {
		keys[i] = s.key
	}
	return keys
}

// Validate checks every setting and returns the first problem as a *ConfigError
func (c *Config) Validate() error {
	all := c.GetAllConfig()

	checks := []struct {
		field string
		value string
		err   error
	}{
		{"filehash.default", all.Hash.Default, ValidateHashAlgorithm(all.Hash.Default)},
		{"performance.hash_workers", fmt.Sprint(all.Performance.HashWorkers), ValidateHashWorkers(all.Performance.HashWorkers)},
		{"performance.hash_buffer", all.Performance.HashBuffer, ValidatePositiveSize(all.Performance.HashBuffer)},
		{"performance.prefix_size", all.Performance.PrefixSize, ValidatePositiveSize(all.Performance.PrefixSize)},
		{"performance.read_timeout", c.lookup("performance", "read_timeout", ""), ValidateDuration(c.lookup("performance", "read_timeout", "0s"))},
		{"performance.io_limit", all.Performance.IOLimit, ValidateSize(all.Performance.IOLimit)},
		{"symlink.mode", all.Symlink.Mode, ValidateSymlinkMode(all.Symlink.Mode)},
		{"scan.min_size", all.Scan.MinSize, ValidateSize(all.Scan.MinSize)},
		{"verbose.level", fmt.Sprint(all.Verbose.Level), ValidateVerboseLevel(all.Verbose.Level)},
		{"output.format", all.Output.Format, ValidateOutputFormat(all.Output.Format)},
		{"store.driver", all.Store.Driver, ValidateStoreDriver(all.Store.Driver)},
	}

	for _, check := range checks {
		if check.err != nil {
			return &ConfigError{Field: check.field, Value: check.value, Err: check.err}
		}
	}

	if all.Store.Driver == DriverMySQL && all.Store.DSN == "" {
		return &ConfigError{Field: "store.dsn", Err: errors.New("required for the mysql driver")}
	}
	return nil
}

// Options converts the configuration into search options. logger is used as
// the search logger and may be nil.
func (c *Config) Options(logger *Logger) (Options, error) {
	if err := c.Validate(); err != nil {
		return Options{}, err
	}

	all := c.GetAllConfig()

	// Sizes were checked by Validate
	prefixSize, _ := ParseHumanSize(all.Performance.PrefixSize)
	bufferSize, _ := ParseHumanSize(all.Performance.HashBuffer)
	ioLimit, _ := ParseHumanSize(all.Performance.IOLimit)
	minSize, _ := ParseHumanSize(all.Scan.MinSize)

	var ignore *IgnoreManager
	if all.Scan.IgnoreFile != "" {
		var err error
		if ignore, err = LoadIgnoreFile(all.Scan.IgnoreFile); err != nil {
			return Options{}, &ConfigError{Field: "scan.ignore_file", Value: all.Scan.IgnoreFile, Err: err}
		}
	}

	opts := Options{
		PrefixSize:    prefixSize,
		HashAlgorithm: strings.ToLower(all.Hash.Default),
		Verify:        all.Hash.Verify,
		SymlinkMode:   strings.ToLower(all.Symlink.Mode),
		Workers:       all.Performance.HashWorkers,
		BufferSize:    int(bufferSize),
		ReadTimeout:   all.Performance.ReadTimeout,
		IOLimit:       ioLimit,
		Hardlinks:     all.Scan.Hardlinks,
		MinSize:       minSize,
		Ignore:        ignore,
		Logger:        logger,
	}

	opts = opts.withDefaults()
	return opts, opts.Validate()
}

// ValidateHashAlgorithm validates that a hash algorithm is supported
func ValidateHashAlgorithm(algorithm string) error {
	if _, err := GetHashAlgorithm(algorithm); err != nil {
		return fmt.Errorf("%w (supported: sha1, sha256, sha512, crc64)", err)
	}
	return nil
}

// ValidateOutputFormat validates that an output format is supported
func ValidateOutputFormat(format string) error {
	switch strings.ToLower(format) {
	case FormatHuman, FormatJSON, FormatFdupes:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s (supported: human, json, fdupes)", format)
	}
}

// ValidateVerboseLevel validates that a verbose level is valid
func ValidateVerboseLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("invalid verbose level: %d (supported: 0-3)", level)
	}
	return nil
}

// ValidateSymlinkMode validates that a symlink mode is supported
func ValidateSymlinkMode(mode string) error {
	switch strings.ToLower(mode) {
	case SymlinkAll, SymlinkContained, SymlinkNone:
		return nil
	default:
		return fmt.Errorf("unsupported symlink mode: %s (supported: all, contained, none)", mode)
	}
}

// ValidateHashWorkers validates that the hash worker count is reasonable
func ValidateHashWorkers(workers int) error {
	if workers < 1 {
		return fmt.Errorf("hash workers must be at least 1, got: %d", workers)
	}
	if workers > 64 {
		return fmt.Errorf("hash workers should not exceed 64, got: %d", workers)
	}
	return nil
}

// ValidateStoreDriver validates that a store driver is supported
func ValidateStoreDriver(driver string) error {
	switch driver {
	case DriverSQLite, DriverMySQL, DriverFile:
		return nil
	default:
		return fmt.Errorf("unsupported store driver: %s (supported: sqlite, mysql, file)", driver)
	}
}

// ValidateSize validates a human-readable size that may be zero
func ValidateSize(size string) error {
	_, err := ParseHumanSize(size)
	return err
}

// ValidatePositiveSize validates a human-readable size of at least one byte
func ValidatePositiveSize(size string) error {
	n, err := ParseHumanSize(size)
	if err != nil {
		return err
	}
	if n < 1 {
		return fmt.Errorf("size must be at least 1 byte, got: %s", size)
	}
	return nil
}

// ValidateDuration validates a Go duration string that is not negative
func ValidateDuration(duration string) error {
	d, err := time.ParseDuration(duration)
	if err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("duration must not be negative, got: %s", duration)
	}
	return nil
}

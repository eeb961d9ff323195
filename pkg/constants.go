package findduplicatefiles

import "time"

// Hash type constants
const (
	HashTypeSHA1   uint16 = 1 // SHA-1 (20 bytes)
	HashTypeSHA256 uint16 = 2 // SHA-256 (32 bytes)
	HashTypeSHA512 uint16 = 3 // SHA-512 (64 bytes)
	HashTypeCRC64  uint16 = 4 // CRC-64/ECMA (8 bytes), not collision resistant
)

// Hash size constants
const (
	HashSizeSHA1   = 20
	HashSizeSHA256 = 32
	HashSizeSHA512 = 64
	HashSizeCRC64  = 8
)

// HashTypeName returns the human-readable name for a hash type
func HashTypeName(hashType uint16) string {
	switch hashType {
	case HashTypeSHA1:
		return "sha1"
	case HashTypeSHA256:
		return "sha256"
	case HashTypeSHA512:
		return "sha512"
	case HashTypeCRC64:
		return "crc64"
	default:
		return "unknown"
	}
}

// Symlink handling modes
const (
	SymlinkNone      = "none"      // never follow symlinks
	SymlinkContained = "contained" // follow symlinks whose target is inside the root
	SymlinkAll       = "all"       // follow every symlink
)

// Output formats
const (
	FormatHuman  = "human"
	FormatJSON   = "json"
	FormatFdupes = "fdupes"
)

// Store drivers
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverFile   = "file"
)

// Defaults used when neither the config file nor the command line sets a value
const (
	DefaultConfigFile    = "finddups.ini"
	DefaultDatabasePath  = "finddups.db"
	DefaultHashAlgorithm = "sha256"
	DefaultHashWorkers   = 4
	DefaultHashBuffer    = "2M"
	DefaultPrefixSize    = "64K"
	DefaultReadTimeout   = 30 * time.Second
	DefaultSymlinkMode   = SymlinkContained
	DefaultOutputFormat  = FormatHuman
	DefaultStoreDriver   = DriverSQLite
)

// Walk queue contexts
const (
	rootContext  = "root"
	entryContext = "entry"
)

package findduplicatefiles

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ParseHumanSize parses human-readable size strings (e.g., "2M", "512k", "1G").
// "0" is accepted and means "unset" for options such as io_limit and min_size.
func ParseHumanSize(sizeStr string) (int64, error) {
	if sizeStr == "" {
		return 0, fmt.Errorf("empty size string")
	}

	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))

	// Extract numeric part and suffix
	var numPart string
	var suffix string
	for i, char := range sizeStr {
		if char >= '0' && char <= '9' || char == '.' {
			numPart += string(char)
		} else {
			suffix = strings.TrimSpace(sizeStr[i:])
			break
		}
	}

	if numPart == "" {
		return 0, fmt.Errorf("no numeric part in size string: %s", sizeStr)
	}

	num, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric part in size string %s: %w", sizeStr, err)
	}

	var multiplier int64
	switch suffix {
	case "", "B":
		multiplier = 1
	case "K", "KB", "KIB":
		multiplier = 1 << 10
	case "M", "MB", "MIB":
		multiplier = 1 << 20
	case "G", "GB", "GIB":
		multiplier = 1 << 30
	default:
		return 0, fmt.Errorf("unknown size suffix: %s", suffix)
	}

	result := num * float64(multiplier)
	if result >= float64(int64(^uint64(0)>>1)) {
		return 0, fmt.Errorf("size too large: %s", sizeStr)
	}

	return int64(result), nil
}

// FormatHumanSize renders a byte count the way ParseHumanSize reads it.
func FormatHumanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%dB", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit && exp < 2; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%c", float64(size)/float64(div), "KMG"[exp])
}

// isPathContained checks if targetPath is contained within containerPath.
// Both paths are expected to be absolute and symlink-free.
func isPathContained(targetPath, containerPath string) bool {
	targetPath = filepath.Clean(targetPath)
	containerPath = filepath.Clean(containerPath)

	if targetPath == containerPath {
		return true
	}

	// Check if targetPath starts with containerPath + separator
	containerWithSep := containerPath
	if !strings.HasSuffix(containerWithSep, string(filepath.Separator)) {
		containerWithSep += string(filepath.Separator)
	}
	return strings.HasPrefix(targetPath, containerWithSep)
}

package server

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/iwvelando/estimate-engine/internal/config"
	"github.com/iwvelando/estimate-engine/internal/engine"
	"github.com/iwvelando/estimate-engine/pkg/constants"
	"gopkg.in/yaml.v3"
)

// Config is the estimate server file. Calibration is the base that every
// uploaded request file overlays; MaxUploadSize bounds both single valuation
// bodies and batch request files.
type Config struct {
	Address       string               `yaml:"address"`
	MaxUploadSize string               `yaml:"maxUploadSize"`
	Logging       config.LoggingConfig `yaml:"logging"`
	Calibration   engine.Calibration   `yaml:"calibration"`

	uploadLimit int64
}

// DefaultConfig listens on the default address with the default calibration.
func DefaultConfig() *Config {
	return &Config{
		Address:       constants.DefaultServerAddress,
		MaxUploadSize: strconv.FormatInt(constants.DefaultMaxUploadSizeBytes, 10),
		Calibration:   engine.DefaultCalibration(),
		uploadLimit:   constants.DefaultMaxUploadSizeBytes,
	}
}

// LoadConfig reads the server file at path over DefaultConfig. An empty path
// or a missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}

	if strings.TrimSpace(cfg.Address) == "" {
		cfg.Address = constants.DefaultServerAddress
	}
	if err := cfg.Calibration.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server calibration: %w", err)
	}
	limit, err := ParseSize(cfg.MaxUploadSize)
	if err != nil {
		return nil, fmt.Errorf("invalid maxUploadSize: %w", err)
	}
	cfg.uploadLimit = constants.DefaultMaxUploadSizeBytes
	cfg.SetUploadSizeBytes(limit)
	return cfg, nil
}

// UploadSizeBytes is the request body limit in bytes.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadLimit
}

// SetUploadSizeBytes replaces the request body limit. Non-positive sizes keep
// the current limit.
func (c *Config) SetUploadSizeBytes(size int64) {
	if size <= 0 {
		return
	}
	c.uploadLimit = size
	c.MaxUploadSize = strconv.FormatInt(size, 10)
}

var sizeUnits = map[string]int64{
	"":   1,
	"B":  1,
	"K":  1 << 10,
	"KB": 1 << 10,
	"M":  1 << 20,
	"MB": 1 << 20,
	"G":  1 << 30,
	"GB": 1 << 30,
}

// ParseSize reads a body limit such as "512K" or "10MB". Units are binary
// multiples and are case-insensitive. A blank value is the default limit.
func ParseSize(value string) (int64, error) {
	s := strings.ToUpper(strings.TrimSpace(value))
	if s == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	end := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if end < 0 {
		end = len(s)
	}
	if end == 0 {
		return 0, fmt.Errorf("size %q does not start with a number", value)
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	unit, ok := sizeUnits[strings.TrimSpace(s[end:])]
	if !ok {
		return 0, fmt.Errorf("unsupported size unit in %q", value)
	}
	if n > math.MaxInt64/unit {
		return 0, fmt.Errorf("size %q overflows", value)
	}
	return n * unit, nil
}

// Package config defines the request file layout and includes functions for
// loading and validating it.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iwvelando/estimate-engine/internal/engine"
	"github.com/iwvelando/estimate-engine/internal/timeline"
	"github.com/iwvelando/estimate-engine/pkg/validation"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Configuration holds everything in a request file.
type Configuration struct {
	Logging     LoggingConfig      `yaml:"logging,omitempty"`
	Output      OutputConfig       `yaml:"output,omitempty"`
	Calibration engine.Calibration `yaml:"calibration,omitempty"`
	Properties  []engine.Property  `yaml:"properties"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.SetEnvPrefix("ESTIMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %w", err)
	}
	return decode(v, engine.DefaultCalibration())
}

// LoadConfigurationFromReader loads a YAML configuration from r, as uploaded
// to the server.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	return LoadConfigurationFromReaderWithBase(r, engine.DefaultCalibration())
}

// LoadConfigurationFromReaderWithBase is LoadConfigurationFromReader with the
// calibration section applied on top of base instead of the defaults.
func LoadConfigurationFromReaderWithBase(r io.Reader, base engine.Calibration) (*Configuration, error) {
	v := viper.New()
	v.SetConfigType("yml")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %w", err)
	}
	return decode(v, base)
}

// decode unmarshals on top of base so a file only needs the constants it
// changes. Bands are replaced as a whole.
func decode(v *viper.Viper, base engine.Calibration) (*Configuration, error) {
	bands := append([]timeline.Band(nil), base.Timeline.Bands...)
	configuration := Configuration{Calibration: base}
	configuration.Calibration.Timeline.Bands = nil

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		validation.NumberDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&configuration, hook); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	if len(configuration.Calibration.Timeline.Bands) == 0 {
		configuration.Calibration.Timeline.Bands = bands
	}
	return &configuration, nil
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings. Request-level warnings come from e.
func (c *Configuration) ValidateConfiguration(e *engine.Engine, now time.Time) []string {
	var warnings []string

	active := 0
	seen := make(map[string]int, len(c.Properties))
	for i, property := range c.Properties {
		label := property.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
			warnings = append(warnings, fmt.Sprintf("property %s has no name", label))
		} else if prev, dup := seen[label]; dup {
			warnings = append(warnings, fmt.Sprintf("property %s is defined twice (#%d and #%d)", label, prev+1, i+1))
		} else {
			seen[label] = i
		}

		if !property.Active {
			continue
		}
		active++

		requestWarnings, err := e.ValidateRequest(property.ValuationRequest, now)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("property %s: %v", label, err))
			continue
		}
		for _, w := range requestWarnings {
			warnings = append(warnings, fmt.Sprintf("property %s: %s", label, w))
		}
	}

	if active == 0 {
		warnings = append(warnings, "no active properties to compute")
	}
	return warnings
}

package camera

import (
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/derpvision/procam/config"
	"github.com/derpvision/procam/logging"
	"github.com/derpvision/procam/rimage/transform"
)

const (
	defaultStatsWindow = 30
	maxStatsWindow     = 10000
)

// Config are the attributes of a camera session.
type Config struct {
	// Serial selects the device; empty picks the first one the driver reports.
	Serial       string              `json:"serial,omitempty"`
	LogLevel     string              `json:"log_level,omitempty"`
	LogFile      string              `json:"log_file,omitempty"`
	LogMaxSizeMB int                 `json:"log_max_size_mb,omitempty"`
	Registration *RegistrationConfig `json:"registration,omitempty"`
	// StatsWindow is how many publish intervals Stats averages over.
	StatsWindow int `json:"stats_window,omitempty"`

	Clock clock.Clock `json:"-"`
}

// RegistrationConfig tunes the depth/color registration.
type RegistrationConfig struct {
	FilterOcclusion *bool    `json:"filter_occlusion,omitempty"`
	FilterTolerance *float64 `json:"filter_tolerance,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.LogLevel != "" {
		if _, err := logging.LevelFromString(conf.LogLevel); err != nil {
			return config.NewConfigValidationError(path, err.Error())
		}
	}
	if conf.LogMaxSizeMB < 0 {
		return config.NewConfigValidationError(path, "log_max_size_mb must not be negative")
	}
	if conf.StatsWindow < 0 {
		return config.NewConfigValidationError(path, "stats_window must not be negative")
	}
	if conf.StatsWindow > maxStatsWindow {
		return config.NewConfigValidationError(path, fmt.Sprintf("stats_window must be at most %d", maxStatsWindow))
	}
	if conf.Registration != nil && conf.Registration.FilterTolerance != nil && *conf.Registration.FilterTolerance < 0 {
		return config.NewConfigValidationError(path, "registration.filter_tolerance must not be negative")
	}
	return nil
}

func (conf *Config) registrationOptions() transform.RegistrationOptions {
	opts := transform.DefaultRegistrationOptions()
	if conf.Registration == nil {
		return opts
	}
	if conf.Registration.FilterOcclusion != nil {
		opts.FilterOcclusion = *conf.Registration.FilterOcclusion
	}
	if conf.Registration.FilterTolerance != nil {
		opts.FilterTolerance = *conf.Registration.FilterTolerance
	}
	return opts
}

func (conf *Config) statsWindow() int {
	if conf.StatsWindow == 0 {
		return defaultStatsWindow
	}
	return conf.StatsWindow
}

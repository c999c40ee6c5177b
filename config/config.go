// Package config defines the structures to configure a procam session and reads them from disk.
package config

import (
	"github.com/pkg/errors"
)

// Config describes one sensor session: which driver backs it and how the camera session is tuned.
type Config struct {
	ConfigFilePath string `json:"-"`

	Driver DriverConfig `json:"driver"`
	// Camera holds the session attributes; see camera.Config.
	Camera AttributeMap `json:"camera"`
}

// DriverConfig names a device backend and carries its attributes.
type DriverConfig struct {
	Type       string       `json:"type"`
	Attributes AttributeMap `json:"attributes,omitempty"`
}

// Validator is implemented by typed attribute structs.
type Validator interface {
	Validate(path string) error
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	if c.Driver.Type == "" {
		return errors.New(`"driver.type" is required`)
	}
	return nil
}

// Decode converts attributes into to and validates the result when to is a Validator. path names
// the attributes in errors.
func Decode(path string, attributes AttributeMap, to interface{}) error {
	if _, err := TransformAttributeMapToStruct(to, attributes); err != nil {
		return errors.Wrapf(err, "error processing %q", path)
	}
	if v, ok := to.(Validator); ok {
		return v.Validate(path)
	}
	return nil
}

// NewConfigValidationError returns an error specifying the path and the reason a config is invalid.
func NewConfigValidationError(path, reason string) error {
	return errors.Errorf("error validating %q: %s", path, reason)
}

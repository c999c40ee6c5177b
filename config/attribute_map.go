package config

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// AttributeMap is a convenience wrapper for pulling out
// typed information from a map.
type AttributeMap map[string]interface{}

// Has returns whether or not the given name is in the map.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// String attempts to return a string present in the map with
// the given name; returns an empty string otherwise.
func (am AttributeMap) String(name string) string {
	x := am[name]
	if x == nil {
		return ""
	}
	if s, ok := x.(string); ok {
		return s
	}
	panic(fmt.Errorf("wanted a string for (%s) but got (%v) %T", name, x, x))
}

// Int attempts to return an integer present in the map with
// the given name; returns the given default otherwise.
func (am AttributeMap) Int(name string, def int) int {
	x, has := am[name]
	if !has {
		return def
	}
	switch v := x.(type) {
	case int:
		return v
	case float64:
		// json numbers decode as float64
		return int(v)
	}
	panic(fmt.Errorf("wanted an int for (%s) but got (%v) %T", name, x, x))
}

// Float64 attempts to return a float64 present in the map with
// the given name; returns the given default otherwise.
func (am AttributeMap) Float64(name string, def float64) float64 {
	x, has := am[name]
	if !has {
		return def
	}
	switch v := x.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	panic(fmt.Errorf("wanted a float for (%s) but got (%v) %T", name, x, x))
}

// Bool attempts to return a boolean present in the map with
// the given name; returns the given default otherwise.
func (am AttributeMap) Bool(name string, def bool) bool {
	x, has := am[name]
	if !has {
		return def
	}
	if v, ok := x.(bool); ok {
		return v
	}
	panic(fmt.Errorf("wanted a bool for (%s) but got (%v) %T", name, x, x))
}

// StringSlice attempts to return a slice of strings present in the map with
// the given name; returns nil otherwise.
func (am AttributeMap) StringSlice(name string) []string {
	x := am[name]
	if x == nil {
		return nil
	}
	if ss, ok := x.([]string); ok {
		return ss
	}
	raw, ok := x.([]interface{})
	if !ok {
		panic(fmt.Errorf("wanted a []string for (%s) but got (%v) %T", name, x, x))
	}
	ss := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			panic(fmt.Errorf("values in (%s) need to be strings but got %T", name, v))
		}
		ss = append(ss, s)
	}
	return ss
}

// TransformAttributeMapToStruct uses an attribute map to transform attributes to the prescribed format.
func TransformAttributeMapToStruct(to interface{}, attributes AttributeMap) (interface{}, error) {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      to,
		ErrorUnused: true,
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "error decoding attributes")
	}
	return to, nil
}

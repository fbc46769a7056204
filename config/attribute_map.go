// Package config loads the mapping pipeline's tunables from a generic
// attribute map. Typed accessors return errors rather than panicking; there
// is no supervisor above the entrypoint to catch a startup panic.
package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// AttributeMap is a loosely typed bag of config values, typically decoded
// from JSON or YAML into map[string]interface{}.
type AttributeMap map[string]interface{}

func (am AttributeMap) wrap(key string, err error) error {
	return errors.Wrapf(err, "attribute %q", key)
}

// Float64 returns the named attribute as a float64, or def if the key is
// absent.
func (am AttributeMap) Float64(key string, def float64) (float64, error) {
	v, ok := am[key]
	if !ok {
		return def, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, am.wrap(key, err)
	}
	return f, nil
}

// Bool returns the named attribute as a bool, or def if the key is absent.
func (am AttributeMap) Bool(key string, def bool) (bool, error) {
	v, ok := am[key]
	if !ok {
		return def, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, am.wrap(key, err)
	}
	return b, nil
}

// String returns the named attribute as a string, or def if the key is
// absent.
func (am AttributeMap) String(key, def string) (string, error) {
	v, ok := am[key]
	if !ok {
		return def, nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", am.wrap(key, err)
	}
	return s, nil
}

// Int returns the named attribute as an int, or def if the key is absent.
func (am AttributeMap) Int(key string, def int) (int, error) {
	v, ok := am[key]
	if !ok {
		return def, nil
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return 0, am.wrap(key, err)
	}
	return i, nil
}

// Float64Slice returns the named attribute as a []float64, or nil if the
// key is absent. Extrinsics and distortion coefficients arrive this way.
func (am AttributeMap) Float64Slice(key string) ([]float64, error) {
	v, ok := am[key]
	if !ok {
		return nil, nil
	}
	raw, err := cast.ToSliceE(v)
	if err != nil {
		return nil, am.wrap(key, err)
	}
	out := make([]float64, len(raw))
	for i, e := range raw {
		f, err := cast.ToFloat64E(e)
		if err != nil {
			return nil, am.wrap(key, errors.Wrapf(err, "index %d", i))
		}
		out[i] = f
	}
	return out, nil
}

// Package matrix turns the axis definition and layered configuration into
// one named job spec per platform/distribution cell.
package matrix

import (
	"fmt"
	"sort"

	"github.com/mitchellh/copystructure"

	"github.com/gurumnet/ci-jobs/src/config"
)

// Overlay is a partial mapping laid over a configuration. Keys absent from
// the overlay leave the underlying value untouched.
type Overlay map[string]any

// Values is a fully merged job configuration.
type Values map[string]any

// Keys returns the keys of v in sorted order.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the value of key as a string, or "" when it is absent or not a string.
func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

// Base is the immutable base configuration of one run. The zero value is empty.
type Base struct {
	values map[string]any
}

// NewBase copies values into a Base. Later changes to values are not observed.
func NewBase(values map[string]any) (Base, error) {
	if len(values) == 0 {
		return Base{}, &config.PreconditionError{Reason: "base configuration must not be empty"}
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		c, err := clone(v)
		if err != nil {
			return Base{}, config.Precondition(err, "base value %q", k)
		}
		out[k] = c
	}
	return Base{values: out}, nil
}

// Assemble merges overlays over base in order: later overlays win on key
// collision. The merge is shallow; a nested value in an overlay replaces the
// earlier one whole. Neither base nor the overlays are modified, and the
// result shares no nested value with them. A value that cannot be deep-copied
// is an error.
func Assemble(base Base, overlays ...Overlay) (Values, error) {
	out := make(Values, len(base.values))
	for k, v := range base.values {
		c, err := clone(v)
		if err != nil {
			return nil, fmt.Errorf("copying base value %q: %w", k, err)
		}
		out[k] = c
	}
	for _, o := range overlays {
		for k, v := range o {
			c, err := clone(v)
			if err != nil {
				return nil, fmt.Errorf("copying value %q: %w", k, err)
			}
			out[k] = c
		}
	}
	return out, nil
}

// clone deep-copies maps, slices and structs.
func clone(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, int, int64, float64:
		return v, nil
	}
	return copystructure.Copy(v)
}

package config

import (
	"fmt"
	"strconv"
)

// KeyValue is one configuration entry for display.
type KeyValue struct {
	Key   string
	Value string
}

// ShowAll returns every known config key with its effective value.
// Secret values are masked.
func ShowAll(cfg Config) []KeyValue {
	out := make([]KeyValue, 0, len(specs))
	for _, s := range specs {
		v := fmt.Sprintf("%v", s.extract(cfg))
		if s.secret && v != "" {
			v = "********"
		}
		out = append(out, KeyValue{Key: s.key, Value: v})
	}
	return out
}

// SetKey writes one configuration value to the file backend.
func SetKey(key, value string) error {
	b := newFileBackend()
	for _, s := range specs {
		if s.key != key {
			continue
		}
		switch s.typ {
		case kInt:
			i, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("value for %s must be an integer: %w", key, err)
			}
			return b.SetInt(key, i)
		default:
			return b.SetString(key, value)
		}
	}
	return fmt.Errorf("unknown config key %q", key)
}

package flagx

import (
	"fmt"
	"os"
	"time"
)

// StringFromEnv overwrites *dst with the first non-empty variable among keys.
func StringFromEnv(dst *string, keys ...string) {
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok && v != "" {
			*dst = v
			return
		}
	}
}

// DurationFromEnv parses a Go duration string from key into *dst. An unset
// variable leaves *dst untouched.
func DurationFromEnv(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

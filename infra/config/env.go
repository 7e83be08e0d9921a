package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// GetEnv parses key into the type of defaultValue, returning defaultValue
// when the variable is unset.
func GetEnv[T any](key string, defaultValue T) (T, error) {
	v, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}

	var err error
	var parsed any

	switch any(defaultValue).(type) {
	case string:
		return any(v).(T), nil
	case bool:
		parsed, err = strconv.ParseBool(v)
	case int:
		parsed, err = strconv.Atoi(v)
	case []string:
		parsed = strings.Fields(strings.ReplaceAll(v, ",", " "))
	default:
		return defaultValue, fmt.Errorf("unsupported type for env var %s: %T", key, defaultValue)
	}

	if err != nil {
		return defaultValue, fmt.Errorf("failed to parse env %s as %T: %w", key, defaultValue, err)
	}
	return parsed.(T), nil
}

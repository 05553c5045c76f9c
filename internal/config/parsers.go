// Package config provides configuration loading and parsing for restauth.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// lookupSetting searches for a value in settings using multiple candidate keys.
// It performs case-insensitive matching by also checking lowercase versions.
func lookupSetting(settings map[string]interface{}, candidates ...string) (interface{}, bool) {
	for _, key := range candidates {
		if val, ok := settings[key]; ok {
			return val, true
		}
		lower := strings.ToLower(key)
		if val, ok := settings[lower]; ok {
			return val, true
		}
	}
	return nil, false
}

// asString converts an interface value to a string.
func asString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case []byte:
		return string(v), nil
	case map[string]interface{}, map[interface{}]interface{}, []interface{}:
		return "", fmt.Errorf("expected scalar, got %T", value)
	default:
		return fmt.Sprint(v), nil
	}
}

// asFloat64 converts an interface value to a float64.
func asFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unsupported float type %T", value)
	}
}

// asBool converts an interface value to a bool.
func asBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return false, nil
		}
		return strconv.ParseBool(strings.TrimSpace(v))
	default:
		return false, fmt.Errorf("unsupported boolean type %T", value)
	}
}

// asDuration converts an interface value to a time.Duration. Strings are
// parsed with time.ParseDuration unless they are a bare number, which like
// any numeric value is read as seconds (revalidate_token_time is configured
// in seconds by most drivers).
func asDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, nil
		}
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			return secondsToDuration(secs), nil
		}
		return time.ParseDuration(v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		secs, err := asFloat64(toFloatable(v))
		if err != nil {
			return 0, err
		}
		return secondsToDuration(secs), nil
	default:
		return 0, fmt.Errorf("unsupported duration type %T", value)
	}
}

func toFloatable(value interface{}) interface{} {
	switch v := value.(type) {
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case uint:
		return uint64(v)
	case uint8:
		return uint64(v)
	case uint16:
		return uint64(v)
	case uint32:
		return uint64(v)
	default:
		return v
	}
}

func secondsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}

// toStringKeyMap converts a map with various key types to map[string]interface{}.
// Keys are normalized to lowercase.
func toStringKeyMap(value interface{}) (map[string]interface{}, error) {
	result := map[string]interface{}{}
	switch v := value.(type) {
	case map[string]interface{}:
		for key, val := range v {
			result[strings.ToLower(strings.TrimSpace(key))] = val
		}
	case map[interface{}]interface{}:
		for key, val := range v {
			str, err := asString(key)
			if err != nil {
				return nil, err
			}
			result[strings.ToLower(strings.TrimSpace(str))] = val
		}
	default:
		return nil, fmt.Errorf("expected map, got %T", value)
	}
	return result, nil
}

// ParseAuthenticatorClass normalizes an authenticator class name. Besides the
// short names it accepts the strategy class names drivers commonly put in
// their connection options, with or without a namespace.
func ParseAuthenticatorClass(raw string) AuthenticatorClass {
	name := strings.TrimSpace(raw)
	if idx := strings.LastIndexAny(name, `\/.`); idx >= 0 {
		name = name[idx+1:]
	}
	switch strings.ToLower(name) {
	case "":
		return ""
	case "jwt", "jwtauthentication":
		return AuthenticatorJWT
	case "basic", "httpbasic", "httpbasicauthentication":
		return AuthenticatorHTTPBasic
	case "none", "noauthentication":
		return AuthenticatorNone
	default:
		return AuthenticatorClass(strings.TrimSpace(raw))
	}
}

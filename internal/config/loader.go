package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envUser     = "RESTAUTH_USER"
	envPassword = "RESTAUTH_PASSWORD"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// FromFlags builds a Config from an already parsed flag set carrying the
// flags registered by RegisterFlags.
func (Loader) FromFlags(flagSet *pflag.FlagSet) (*Config, error) {
	if flagSet == nil {
		return nil, errors.New("flag set cannot be nil")
	}

	if envFile := flagValue(flagSet, "env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	configPath := flagValue(flagSet, "config")
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := Defaults()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(&cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(&cfg, flagSet); err != nil {
		return nil, err
	}

	applyEnvFallbacks(&cfg)

	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.DriverOptions.JWTURL = strings.TrimSpace(cfg.DriverOptions.JWTURL)
	cfg.Session.Dir = strings.TrimSpace(cfg.Session.Dir)

	return &cfg, nil
}

func flagValue(fs *pflag.FlagSet, name string) string {
	if f := fs.Lookup(name); f != nil {
		return strings.TrimSpace(f.Value.String())
	}
	return ""
}

// applyEnvFallbacks fills credentials that were neither in the file nor on
// the command line from the environment, keeping secrets out of argv.
func applyEnvFallbacks(cfg *Config) {
	if cfg.User == "" {
		if v := os.Getenv(envUser); v != "" {
			cfg.User = v
		}
	}
	if cfg.Password == "" {
		if v := os.Getenv(envPassword); v != "" {
			cfg.Password = v
		}
	}
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "user", "username"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("user: %w", err)
		}
		cfg.User = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "password"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("password: %w", err)
		}
		cfg.Password = val
	}

	if raw, ok := lookupSetting(settings, "host"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("host: %w", err)
		}
		cfg.Host = val
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		val, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = val
	}

	if raw, ok := lookupSetting(settings, "driveroptions", "driver_options", "driver-options", "options"); ok {
		if err := parseDriverOptions(&cfg.DriverOptions, raw); err != nil {
			return fmt.Errorf("driver_options: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "session"); ok {
		if err := parseSession(&cfg.Session, raw); err != nil {
			return fmt.Errorf("session: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "log", "logging"); ok {
		if err := parseLog(&cfg.Log, raw); err != nil {
			return fmt.Errorf("log: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := parseTracing(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	return nil
}

func parseDriverOptions(opts *DriverOptions, value interface{}) error {
	if value == nil {
		return nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(settings, "authenticatorclass", "authenticator_class", "authenticator-class"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("authenticator_class: %w", err)
		}
		opts.AuthenticatorClass = ParseAuthenticatorClass(val)
	}
	if raw, ok := lookupSetting(settings, "jwturl", "jwt_url", "jwt-url"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("jwt_url: %w", err)
		}
		opts.JWTURL = strings.TrimSpace(val)
	}
	// The prefix is used verbatim, trailing spaces included ("Bearer ").
	if raw, ok := lookupSetting(settings, "jwtprefix", "jwt_prefix", "jwt-prefix"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("jwt_prefix: %w", err)
		}
		opts.JWTPrefix = val
	}
	if raw, ok := lookupSetting(settings, "revalidatetokentime", "revalidate_token_time", "revalidate-token-time"); ok {
		val, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("revalidate_token_time: %w", err)
		}
		opts.RevalidateTokenTime = val
	}
	return nil
}

func parseSession(s *SessionConfig, value interface{}) error {
	if value == nil {
		return nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(settings, "type"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("type: %w", err)
		}
		s.Type = SessionType(strings.ToLower(strings.TrimSpace(val)))
	}
	if raw, ok := lookupSetting(settings, "dir", "directory", "path"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("dir: %w", err)
		}
		s.Dir = val
	}
	if raw, ok := lookupSetting(settings, "id"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("id: %w", err)
		}
		s.ID = strings.TrimSpace(val)
	}
	return nil
}

func parseLog(l *LogConfig, value interface{}) error {
	if value == nil {
		return nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(settings, "level"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("level: %w", err)
		}
		l.Level = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "format"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("format: %w", err)
		}
		l.Format = strings.ToLower(strings.TrimSpace(val))
	}
	return nil
}

func parseTracing(t *TracingConfig, value interface{}) error {
	if value == nil {
		return nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(settings, "enabled"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("enabled: %w", err)
		}
		t.Enable = val
	}
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		t.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
		t.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("service_name: %w", err)
		}
		t.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		t.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
		t.SampleRate = val
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("propagate: %w", err)
		}
		t.Propagate = val
	}
	return nil
}

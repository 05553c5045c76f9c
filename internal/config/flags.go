package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers the configuration flags on a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.PersistentFlags())
}

// configureFlags sets up all configuration flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to configuration file (JSON or YAML)")
	flags.String("env-file", "", "Path to a .env file loaded before reading the environment")

	// Connection
	flags.String("user", "", "User name sent to the identity endpoint (or $"+envUser+")")
	flags.String("password", "", "Password sent to the identity endpoint (prefer $"+envPassword+")")
	flags.String("host", "", "Base URL of the REST API")
	flags.Duration("timeout", DefaultTimeout, "HTTP timeout for API and identity requests")

	// Driver options
	flags.String("auth", "", "Authenticator class: jwt, basic or none")
	flags.String("jwt-url", "", "Identity endpoint that issues tokens")
	flags.String("jwt-prefix", "", "Text placed before the token in the X-API-Token header")
	flags.String("revalidate-token-time", "", "Token age after issuance at which it is fetched again, in seconds or as a duration (default "+DefaultRevalidateTokenTime.String()+")")

	// Session
	flags.String("session", string(SessionTypeMemory), "Session storage: memory or file")
	flags.String("session-dir", "", "Directory holding file sessions")
	flags.String("session-id", "", "Session id (a new one is generated when empty)")

	// Logging
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "console", "Log format: console or json")

	// Tracing
	flags.Bool("tracing", false, "Export OpenTelemetry spans for token fetches")
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (defaults to $OTEL_EXPORTER_OTLP_ENDPOINT)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("tracing-sample-rate", 1.0, "Trace sampling ratio between 0.0 and 1.0")
}

func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if err := overrideString(fs, "user", func(v string) { cfg.User = strings.TrimSpace(v) }); err != nil {
		return err
	}
	if err := overrideString(fs, "password", func(v string) { cfg.Password = v }); err != nil {
		return err
	}
	if err := overrideString(fs, "host", func(v string) { cfg.Host = v }); err != nil {
		return err
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}

	if err := overrideString(fs, "auth", func(v string) { cfg.DriverOptions.AuthenticatorClass = ParseAuthenticatorClass(v) }); err != nil {
		return err
	}
	if err := overrideString(fs, "jwt-url", func(v string) { cfg.DriverOptions.JWTURL = v }); err != nil {
		return err
	}
	if err := overrideString(fs, "jwt-prefix", func(v string) { cfg.DriverOptions.JWTPrefix = v }); err != nil {
		return err
	}
	if fs.Changed("revalidate-token-time") {
		raw, err := fs.GetString("revalidate-token-time")
		if err != nil {
			return err
		}
		val, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid --revalidate-token-time %q: %w", raw, err)
		}
		cfg.DriverOptions.RevalidateTokenTime = val
	}

	if err := overrideString(fs, "session", func(v string) { cfg.Session.Type = SessionType(strings.ToLower(strings.TrimSpace(v))) }); err != nil {
		return err
	}
	if err := overrideString(fs, "session-dir", func(v string) { cfg.Session.Dir = v }); err != nil {
		return err
	}
	if err := overrideString(fs, "session-id", func(v string) { cfg.Session.ID = strings.TrimSpace(v) }); err != nil {
		return err
	}

	if err := overrideString(fs, "log-level", func(v string) { cfg.Log.Level = strings.ToLower(strings.TrimSpace(v)) }); err != nil {
		return err
	}
	if err := overrideString(fs, "log-format", func(v string) { cfg.Log.Format = strings.ToLower(strings.TrimSpace(v)) }); err != nil {
		return err
	}

	if fs.Changed("tracing") {
		val, err := fs.GetBool("tracing")
		if err != nil {
			return err
		}
		cfg.Tracing.Enable = val
	}
	if err := overrideString(fs, "tracing-endpoint", func(v string) { cfg.Tracing.Endpoint = strings.TrimSpace(v) }); err != nil {
		return err
	}
	if err := overrideString(fs, "tracing-protocol", func(v string) { cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(v)) }); err != nil {
		return err
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}

	return nil
}

func overrideString(fs *pflag.FlagSet, name string, set func(string)) error {
	if fs.Lookup(name) == nil || !fs.Changed(name) {
		return nil
	}
	val, err := fs.GetString(name)
	if err != nil {
		return err
	}
	set(val)
	return nil
}

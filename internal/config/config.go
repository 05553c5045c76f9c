package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// AuthenticatorClass selects the strategy that decorates driver requests.
type AuthenticatorClass string

const (
	AuthenticatorNone      AuthenticatorClass = "none"
	AuthenticatorJWT       AuthenticatorClass = "jwt"
	AuthenticatorHTTPBasic AuthenticatorClass = "basic"
)

// SessionType selects where session-scoped values such as cached tokens live.
type SessionType string

const (
	SessionTypeMemory SessionType = "memory"
	SessionTypeFile   SessionType = "file"
)

const (
	DefaultRevalidateTokenTime = 5 * time.Second
	DefaultTimeout             = 30 * time.Second
)

type Config struct {
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	Host          string        `mapstructure:"host"`
	DriverOptions DriverOptions `mapstructure:"driver_options"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Session       SessionConfig `mapstructure:"session"`
	Log           LogConfig     `mapstructure:"log"`
	Tracing       TracingConfig `mapstructure:"tracing"`
	ConfigFile    string        `mapstructure:"-"`
}

// DriverOptions mirrors the driverOptions block of a driver connection.
type DriverOptions struct {
	AuthenticatorClass  AuthenticatorClass `mapstructure:"authenticator_class"`
	JWTURL              string             `mapstructure:"jwt_url"`
	JWTPrefix           string             `mapstructure:"jwt_prefix"`
	RevalidateTokenTime time.Duration      `mapstructure:"revalidate_token_time"`
}

type SessionConfig struct {
	Type SessionType `mapstructure:"type"`
	Dir  string      `mapstructure:"dir"`
	ID   string      `mapstructure:"id"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
}

type TracingConfig struct {
	Enable      bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // grpc or http
	ServiceName string  `mapstructure:"service_name"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   bool    `mapstructure:"propagate"`
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return t.Enable
}

// ShouldPropagate reports whether trace context is forwarded to the
// identity endpoint.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Enable && t.Propagate
}

// Defaults returns a Config populated with the values used when a setting is
// absent from both the config file and the flags.
func Defaults() Config {
	return Config{
		DriverOptions: DriverOptions{
			AuthenticatorClass:  AuthenticatorNone,
			RevalidateTokenTime: DefaultRevalidateTokenTime,
		},
		Timeout: DefaultTimeout,
		Session: SessionConfig{Type: SessionTypeMemory},
		Log:     LogConfig{Level: "info", Format: "console"},
		Tracing: TracingConfig{SampleRate: 1.0, Propagate: true},
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if host := strings.TrimSpace(c.Host); host != "" {
		if err := validateHTTPURL(host); err != nil {
			issues = append(issues, fmt.Sprintf("host: %v", err))
		}
	}

	issues = append(issues, validateDriverOptions(c)...)
	issues = append(issues, validateSessionConfig(c.Session)...)
	issues = append(issues, validateLogConfig(c.Log)...)
	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateDriverOptions(c Config) []string {
	var issues []string
	opts := c.DriverOptions

	if opts.RevalidateTokenTime < 0 {
		issues = append(issues, "driver_options: revalidate_token_time must be >= 0")
	}

	switch opts.AuthenticatorClass {
	case "", AuthenticatorNone:
	case AuthenticatorJWT:
		if strings.TrimSpace(opts.JWTURL) == "" {
			issues = append(issues, "driver_options: jwt_url is required for jwt authentication")
		} else if err := validateHTTPURL(opts.JWTURL); err != nil {
			issues = append(issues, fmt.Sprintf("driver_options: jwt_url: %v", err))
		}
		if strings.TrimSpace(c.User) == "" {
			issues = append(issues, "user is required for jwt authentication")
		}
		if strings.ContainsAny(opts.JWTPrefix, "\r\n") {
			issues = append(issues, "driver_options: jwt_prefix must not contain line breaks")
		}
	case AuthenticatorHTTPBasic:
		if strings.TrimSpace(c.User) == "" {
			issues = append(issues, "user is required for basic authentication")
		}
		if strings.Contains(c.User, ":") {
			issues = append(issues, "user must not contain ':' for basic authentication")
		}
	default:
		issues = append(issues, fmt.Sprintf("driver_options: unsupported authenticator_class %q", opts.AuthenticatorClass))
	}
	return issues
}

func validateSessionConfig(s SessionConfig) []string {
	var issues []string
	switch s.Type {
	case "", SessionTypeMemory:
	case SessionTypeFile:
		if strings.TrimSpace(s.Dir) == "" {
			issues = append(issues, "session: dir is required for file sessions")
		}
	default:
		issues = append(issues, fmt.Sprintf("session: type must be 'memory' or 'file', got %q", s.Type))
	}
	return issues
}

func validateLogConfig(l LogConfig) []string {
	var issues []string
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		issues = append(issues, fmt.Sprintf("log: unsupported level %q", l.Level))
	}
	switch strings.ToLower(l.Format) {
	case "", "console", "json":
	default:
		issues = append(issues, fmt.Sprintf("log: format must be 'console' or 'json', got %q", l.Format))
	}
	return issues
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	if t.SampleRate < 0 || t.SampleRate > 1.0 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	return issues
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is missing in %q", raw)
	}
	return nil
}

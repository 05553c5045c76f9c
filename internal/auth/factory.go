package auth

import (
	"fmt"

	"github.com/torosent/restauth/internal/config"
	"github.com/torosent/restauth/internal/session"
)

// Authenticator is both a Strategy and a Provider.
type Authenticator interface {
	Strategy
	Provider
}

var (
	_ Authenticator = (*JWTAuthentication)(nil)
	_ Authenticator = (*HTTPBasicAuthentication)(nil)
	_ Authenticator = NoAuthentication{}
)

// NewStrategy builds the authenticator selected by
// cfg.DriverOptions.AuthenticatorClass. store backs the JWT token cache;
// opts apply to the JWT strategy only.
func NewStrategy(cfg *config.Config, store session.Store, opts ...Option) (Authenticator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	switch cfg.DriverOptions.AuthenticatorClass {
	case "", config.AuthenticatorNone:
		return NoAuthentication{}, nil
	case config.AuthenticatorHTTPBasic:
		return NewHTTPBasicAuthentication(cfg.User, cfg.Password), nil
	case config.AuthenticatorJWT:
		options := append([]Option{WithStore(store)}, opts...)
		return NewJWTAuthentication(JWTOptions{
			User:                cfg.User,
			Password:            cfg.Password,
			URL:                 cfg.DriverOptions.JWTURL,
			Prefix:              cfg.DriverOptions.JWTPrefix,
			RevalidateTokenTime: cfg.DriverOptions.RevalidateTokenTime,
		}, options...)
	default:
		return nil, fmt.Errorf("unsupported authenticator class %q", cfg.DriverOptions.AuthenticatorClass)
	}
}

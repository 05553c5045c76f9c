package session

import (
	"fmt"

	"github.com/torosent/restauth/internal/config"
)

// Open creates the store described by cfg and returns it together with the
// session id in use. An empty id is replaced by a freshly generated one.
func Open(cfg config.SessionConfig) (Store, string, error) {
	id := cfg.ID
	if id == "" {
		id = NewID()
	}

	switch cfg.Type {
	case "", config.SessionTypeMemory:
		return NewMemoryStore(), id, nil
	case config.SessionTypeFile:
		store, err := NewFileStore(cfg.Dir, id)
		if err != nil {
			return nil, "", err
		}
		return store, id, nil
	default:
		return nil, "", fmt.Errorf("unsupported session type %q", cfg.Type)
	}
}

package filestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/koustreak/bucketfs/internal/errs"
)

// Factory builds a Client for one provider.
type Factory func(ctx context.Context, cfg *Config) (Client, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[Provider]Factory)
)

// Register makes a provider available to Open. Driver packages call it from
// an init function, so importing the driver is enough to enable it.
func Register(p Provider, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[p] = f
}

// Open validates cfg and builds a Client with the registered factory for
// cfg.Provider.
func Open(ctx context.Context, cfg *Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidArgument, "invalid storage config", err)
	}

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, errs.New(errs.ErrKindUnsupported,
			fmt.Sprintf("provider %q is not registered; import its driver package", cfg.Provider))
	}
	return f(ctx, cfg)
}

package cryptoprov

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xcsr", "cryptoprov")

// DefaultManufacturer is used when a provider configuration is not specified
const DefaultManufacturer = "inmem"

// ProviderLoader is interface for loading provider by manufacturer
type ProviderLoader func(cfg TokenConfig) (Provider, error)

var (
	lockLoaders sync.RWMutex
	loaders     = make(map[string]ProviderLoader)
)

// Register provider loader by manufacturer
func Register(manufacturer string, loader ProviderLoader) error {
	lockLoaders.Lock()
	defer lockLoaders.Unlock()

	if _, ok := loaders[manufacturer]; ok {
		return errors.Errorf("already registered: %s", manufacturer)
	}

	loaders[manufacturer] = loader

	return nil
}

// Unregister provider loader by manufacturer
func Unregister(manufacturer string) (ProviderLoader, error) {
	lockLoaders.Lock()
	defer lockLoaders.Unlock()

	if loader, ok := loaders[manufacturer]; ok {
		delete(loaders, manufacturer)
		return loader, nil
	}

	return nil, errors.Errorf("not registered: %s", manufacturer)
}

// Registered returns sorted names of registered providers
func Registered() []string {
	lockLoaders.RLock()
	defer lockLoaders.RUnlock()

	list := []string{}
	for m := range loaders {
		list = append(list, m)
	}
	sort.Strings(list)
	return list
}

// LoadProvider load a single provider.
// If configLocation is empty, the default inmem provider is loaded.
func LoadProvider(configLocation string) (Provider, error) {
	var tc TokenConfig
	if configLocation == "" {
		tc = NewTokenConfig(DefaultManufacturer, DefaultManufacturer, "")
	} else {
		var err error
		tc, err = LoadTokenConfig(configLocation)
		if err != nil {
			return nil, err
		}
	}

	return LoadProviderWithConfig(tc)
}

// LoadProviderWithConfig loads a provider for the token configuration
func LoadProviderWithConfig(tc TokenConfig) (Provider, error) {
	manufacturer := tc.Manufacturer()

	lockLoaders.RLock()
	loader, ok := loaders[manufacturer]
	lockLoaders.RUnlock()

	if !ok {
		return nil, errors.Errorf("provider not registered: %s", manufacturer)
	}

	prov, err := loader(tc)
	if err != nil {
		return nil, errors.WithMessagef(err, "unable to load provider: %s", manufacturer)
	}

	logger.KV(xlog.DEBUG, "manufacturer", manufacturer, "model", tc.Model())
	return prov, nil
}

// Load returns Crypto with loaded providers from the given config locations
func Load(defaultConfig string, providersConfigs []string) (*Crypto, error) {
	p, err := LoadProvider(defaultConfig)
	if err != nil {
		return nil, err
	}

	c, err := New(p, nil)
	if err != nil {
		return nil, err
	}
	for _, configLocation := range providersConfigs {
		p, err := LoadProvider(configLocation)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		err = c.Add(p)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	return c, nil
}

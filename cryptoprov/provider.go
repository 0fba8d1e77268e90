package cryptoprov

import (
	"crypto"
	"crypto/elliptic"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

// Key purposes for GenerateRSAKey
const (
	PurposeSign    = 1
	PurposeEncrypt = 2
)

// Provider defines an interface to generate and load keys
type Provider interface {
	// GenerateRSAKey creates a key of the given size and purpose
	GenerateRSAKey(label string, bits int, purpose int) (crypto.PrivateKey, error)
	// GenerateECDSAKey creates a key on the curve
	GenerateECDSAKey(label string, curve elliptic.Curve) (crypto.PrivateKey, error)
	// IdentifyKey returns key id and label for the given private key
	IdentifyKey(crypto.PrivateKey) (keyID, label string, err error)
	// GetKey returns the private key by id
	GetKey(keyID string) (crypto.PrivateKey, error)
	// ExportKey returns the URI of the key, and the PEM encoded key
	// if the provider allows to export it
	ExportKey(keyID string) (string, []byte, error)
	// Manufacturer returns manufacturer for the provider
	Manufacturer() string
	// Model returns model for the provider
	Model() string
	// Close releases resources held by the provider
	Close() error
}

// Ed25519Generator is implemented by providers supporting Ed25519 keys
type Ed25519Generator interface {
	GenerateEd25519Key(label string) (crypto.PrivateKey, error)
}

// Crypto exposes instances of Provider
type Crypto struct {
	lock      sync.RWMutex
	provider  Provider
	providers []Provider
}

// New creates an instance of Crypto with the default provider,
// and additional providers
func New(defaultProvider Provider, providers []Provider) (*Crypto, error) {
	if defaultProvider == nil {
		return nil, errors.New("default provider is required")
	}

	c := &Crypto{
		provider:  defaultProvider,
		providers: []Provider{defaultProvider},
	}

	for _, p := range providers {
		if err := c.Add(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Default returns the default crypto provider
func (c *Crypto) Default() Provider {
	return c.provider
}

// Add will add a new provider.
// A provider with the same manufacturer and model replaces the existing one,
// including the default, and the replaced provider is closed.
func (c *Crypto) Add(p Provider) error {
	if p == nil {
		return errors.New("provider is required")
	}
	if p.Manufacturer() == "" {
		return errors.New("manufacturer is required")
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	for i, existing := range c.providers {
		if existing.Manufacturer() == p.Manufacturer() && existing.Model() == p.Model() {
			if existing == p {
				return nil
			}
			c.providers[i] = p
			if existing == c.provider {
				c.provider = p
			}
			logger.KV(xlog.DEBUG, "replaced", p.Manufacturer(), "model", p.Model())
			return errors.WithMessagef(existing.Close(), "failed to close replaced provider: %s", existing.Manufacturer())
		}
	}
	c.providers = append(c.providers, p)
	logger.KV(xlog.DEBUG, "manufacturer", p.Manufacturer(), "model", p.Model())
	return nil
}

// ByManufacturer returns a provider by manufacturer and model.
// An empty model matches any model of the manufacturer.
func (c *Crypto) ByManufacturer(manufacturer, model string) (Provider, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	for _, p := range c.providers {
		if p.Manufacturer() == manufacturer && (model == "" || p.Model() == model) {
			return p, nil
		}
	}

	return nil, errors.Errorf("provider for %q and model %q not found", manufacturer, model)
}

// Close closes all providers
func (c *Crypto) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	var errs error
	for _, p := range c.providers {
		if err := p.Close(); err != nil {
			logger.KV(xlog.ERROR, "manufacturer", p.Manufacturer(), "err", err.Error())
			errs = errors.CombineErrors(errs, err)
		}
	}
	c.providers = nil
	return errs
}

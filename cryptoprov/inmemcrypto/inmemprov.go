// Package inmemcrypto provides a key provider that keeps software keys
// in process memory.
package inmemcrypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/guid"
	"github.com/effective-security/xcsr/certutil"
	"github.com/effective-security/xcsr/cryptoprov"
	"github.com/effective-security/xcsr/metricskey"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xcsr", "inmemcrypto")

// ProviderName specifies a provider name
const ProviderName = cryptoprov.DefaultManufacturer

func init() {
	_ = cryptoprov.Register(ProviderName, Loader)
}

type keyEntry struct {
	label  string
	signer crypto.Signer
}

// Provider implements cryptoprov.Provider with software keys
type Provider struct {
	model string

	lock sync.RWMutex
	keys map[string]*keyEntry
}

// NewProvider returns an in-memory provider
func NewProvider(model string) *Provider {
	return &Provider{
		model: model,
		keys:  make(map[string]*keyEntry),
	}
}

// Loader provides loader for the in-memory provider
func Loader(tc cryptoprov.TokenConfig) (cryptoprov.Provider, error) {
	return NewProvider(tc.Model()), nil
}

// Manufacturer returns manufacturer for the provider
func (p *Provider) Manufacturer() string {
	return ProviderName
}

// Model returns model for the provider
func (p *Provider) Model() string {
	return p.model
}

// GenerateRSAKey creates signer using randomly generated RSA key
func (p *Provider) GenerateRSAKey(label string, bits int, purpose int) (crypto.PrivateKey, error) {
	defer metricskey.PerfCryptoOperation.MeasureSince(time.Now(), ProviderName, "genkey_rsa")

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return p.add(label, key), nil
}

// GenerateECDSAKey creates signer using randomly generated ECDSA key
func (p *Provider) GenerateECDSAKey(label string, curve elliptic.Curve) (crypto.PrivateKey, error) {
	defer metricskey.PerfCryptoOperation.MeasureSince(time.Now(), ProviderName, "genkey_ecdsa")

	if curve == nil {
		return nil, errors.New("unsupported curve")
	}
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return p.add(label, key), nil
}

// GenerateEd25519Key creates signer using randomly generated Ed25519 key
func (p *Provider) GenerateEd25519Key(label string) (crypto.PrivateKey, error) {
	defer metricskey.PerfCryptoOperation.MeasureSince(time.Now(), ProviderName, "genkey_ed25519")

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return p.add(label, key), nil
}

// add stores the key and returns it as is,
// so callers can use concrete key types
func (p *Provider) add(label string, key crypto.Signer) crypto.Signer {
	id := guid.MustCreate()

	p.lock.Lock()
	p.keys[id] = &keyEntry{
		label:  label,
		signer: key,
	}
	p.lock.Unlock()

	logger.KV(xlog.DEBUG, "id", id, "label", label)
	return key
}

// IdentifyKey returns key id and label for the given private key
func (p *Provider) IdentifyKey(priv crypto.PrivateKey) (keyID, label string, err error) {
	type equaler interface {
		Equal(crypto.PrivateKey) bool
	}
	eq, ok := priv.(equaler)
	if !ok {
		return "", "", errors.Errorf("not supported key: %T", priv)
	}

	p.lock.RLock()
	defer p.lock.RUnlock()

	for id, k := range p.keys {
		if eq.Equal(k.signer) {
			return id, k.label, nil
		}
	}
	return "", "", errors.New("key not found")
}

// GetKey returns the key by id
func (p *Provider) GetKey(keyID string) (crypto.PrivateKey, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	k, ok := p.keys[keyID]
	if !ok {
		return nil, errors.Errorf("key not found: %s", keyID)
	}
	return k.signer, nil
}

// ExportKey returns the key URI and PEM encoded key
func (p *Provider) ExportKey(keyID string) (string, []byte, error) {
	pvk, err := p.GetKey(keyID)
	if err != nil {
		return "", nil, err
	}

	pem, err := certutil.EncodePrivateKeyToPEM(pvk)
	if err != nil {
		return "", nil, err
	}

	uri := cryptoprov.KeyURI(p.Manufacturer(), p.Model(), keyID, "")
	return uri, pem, nil
}

// Close removes all keys
func (p *Provider) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.keys = make(map[string]*keyEntry)
	return nil
}

var _ cryptoprov.Provider = (*Provider)(nil)
var _ cryptoprov.Ed25519Generator = (*Provider)(nil)

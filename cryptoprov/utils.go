package cryptoprov

import (
	"bytes"
	"crypto"
	"crypto/elliptic"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcsr/certutil"
	"github.com/effective-security/xcsr/metricskey"
	"github.com/effective-security/xlog"
)

// LoadPrivateKey returns crypto.PrivateKey.
// The input key can be in PEM encoded format, or a key URI.
// The returned provider is nil for PEM encoded keys.
func (c *Crypto) LoadPrivateKey(key []byte) (Provider, crypto.PrivateKey, error) {
	key = bytes.TrimSpace(key)

	if !bytes.HasPrefix(key, []byte(KeyURIScheme)) {
		pvk, err := certutil.ParsePrivateKeyPEM(key)
		if err != nil {
			return nil, nil, errors.WithMessage(err, "failed to parse key")
		}
		return nil, pvk, nil
	}

	pkuri, err := ParsePrivateKeyURI(string(key))
	if err != nil {
		return nil, nil, errors.WithMessage(err, "failed to parse key")
	}

	provider, err := c.ByManufacturer(pkuri.Manufacturer(), pkuri.Model())
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "provider not found: %s model: %s",
			pkuri.Manufacturer(), pkuri.Model())
	}

	pvk, err := provider.GetKey(pkuri.ID())
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "unable to get key: %s", pkuri.ID())
	}

	return provider, pvk, nil
}

// GenerateKey creates a key with the provider and returns its signer.
// The algo is one of RSA, ECDSA or Ed25519, and size is RSA modulus size
// or ECDSA curve size. Zero size selects the default for the algorithm.
func GenerateKey(prov Provider, algo string, size int, label string) (crypto.Signer, error) {
	defer metricskey.PerfCryptoOperation.MeasureSince(time.Now(), prov.Manufacturer(), "genkey")

	var pvk crypto.PrivateKey
	var err error

	switch strings.ToUpper(algo) {
	case "RSA":
		if size == 0 {
			size = 2048
		}
		if size < 2048 || size > 8192 {
			return nil, errors.Errorf("invalid RSA key size: %d", size)
		}
		pvk, err = prov.GenerateRSAKey(label, size, PurposeSign)
	case "ECDSA", "EC":
		curve, cerr := curveForSize(size)
		if cerr != nil {
			return nil, cerr
		}
		pvk, err = prov.GenerateECDSAKey(label, curve)
	case "ED25519":
		gen, ok := prov.(Ed25519Generator)
		if !ok {
			return nil, errors.Errorf("Ed25519 is not supported by %s provider", prov.Manufacturer())
		}
		pvk, err = gen.GenerateEd25519Key(label)
	default:
		return nil, errors.Errorf("unsupported key algorithm: %q", algo)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "unable to generate key: %s", algo)
	}

	signer, ok := pvk.(crypto.Signer)
	if !ok {
		return nil, errors.Errorf("generated key of %T type does not support crypto.Signer", pvk)
	}

	logger.KV(xlog.INFO, "provider", prov.Manufacturer(), "algo", algo, "size", size, "label", label)
	return signer, nil
}

func curveForSize(size int) (elliptic.Curve, error) {
	switch size {
	case 0, 256:
		return elliptic.P256(), nil
	case 384:
		return elliptic.P384(), nil
	case 521:
		return elliptic.P521(), nil
	default:
		return nil, errors.Errorf("invalid ECDSA curve size: %d", size)
	}
}

package cryptoprov

import (
	"crypto"
	"os"

	"github.com/cockroachdb/errors"
)

// NewSignerFromFile returns a signer from a key file,
// that contains PEM encoded key or a key URI
func (c *Crypto) NewSignerFromFile(keyFile string) (crypto.Signer, error) {
	key, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, errors.WithMessagef(err, "load key file")
	}

	s, err := c.NewSignerFromPEM(key)
	if err != nil {
		return nil, errors.WithMessagef(err, "load key from file: %s", keyFile)
	}
	return s, nil
}

// NewSignerFromPEM returns a signer from PEM encoded key,
// or a key URI
func (c *Crypto) NewSignerFromPEM(key []byte) (crypto.Signer, error) {
	_, pvk, err := c.LoadPrivateKey(key)
	if err != nil {
		return nil, err
	}

	signer, supported := pvk.(crypto.Signer)
	if !supported {
		return nil, errors.Errorf("loaded key of %T type does not support crypto.Signer", pvk)
	}

	return signer, nil
}

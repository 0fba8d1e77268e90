package cryptoprov

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// KeyURIScheme is the scheme of the private key URI
const KeyURIScheme = "pkcs11:"

// PrivateKeyURI holds information from the key URI
type PrivateKeyURI interface {
	Manufacturer() string
	Model() string
	Serial() string
	ID() string
}

type keyURI struct {
	manufacturer string
	model        string
	serial       string
	id           string
}

func (k *keyURI) Manufacturer() string { return k.manufacturer }
func (k *keyURI) Model() string        { return k.model }
func (k *keyURI) Serial() string       { return k.serial }
func (k *keyURI) ID() string           { return k.id }

// KeyURI returns the URI of the key
func KeyURI(manufacturer, model, keyID, serial string) string {
	uri := fmt.Sprintf("%smanufacturer=%s;model=%s;id=%s", KeyURIScheme, manufacturer, model, keyID)
	if serial != "" {
		uri += ";serial=" + serial
	}
	return uri + ";type=private"
}

// ParsePrivateKeyURI parses the URI in the form of
// `pkcs11:manufacturer=<name>;model=<model>;id=<key id>;serial=<serial>;type=private`.
// The manufacturer and id are required.
func ParsePrivateKeyURI(uri string) (PrivateKeyURI, error) {
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, KeyURIScheme) {
		return nil, errors.Errorf("invalid URI scheme: %q", uri)
	}

	k := new(keyURI)
	for _, part := range strings.Split(uri[len(KeyURIScheme):], ";") {
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return nil, errors.Errorf("invalid URI attribute: %q", part)
		}
		switch key {
		case "manufacturer":
			k.manufacturer = val
		case "model":
			k.model = val
		case "serial":
			k.serial = val
		case "id":
			k.id = val
		case "type":
			if val != "private" {
				return nil, errors.Errorf("unsupported key type: %q", val)
			}
		default:
			return nil, errors.Errorf("unsupported URI attribute: %q", key)
		}
	}

	if k.manufacturer == "" {
		return nil, errors.Errorf("manufacturer is missing in URI: %q", uri)
	}
	if k.id == "" {
		return nil, errors.Errorf("id is missing in URI: %q", uri)
	}
	return k, nil
}

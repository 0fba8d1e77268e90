package cryptoprov

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// TokenConfig holds configuration of a key provider.
type TokenConfig interface {
	// Manufacturer name of the manufacturer
	Manufacturer() string

	// Model name of the device
	Model() string

	// Comma separated key=value pair of attributes(e.g. "Region=us-west-2,Endpoint=http://localhost:4566")
	Attributes() string
}

type tokenConfig struct {
	Man   string `json:"Manufacturer" yaml:"manufacturer"`
	Mod   string `json:"Model"        yaml:"model"`
	Attrs string `json:"Attributes"   yaml:"attributes"`
}

// NewTokenConfig returns TokenConfig
func NewTokenConfig(manufacturer, model, attributes string) TokenConfig {
	return &tokenConfig{
		Man:   manufacturer,
		Mod:   model,
		Attrs: attributes,
	}
}

// Manufacturer name of the manufacturer
func (c *tokenConfig) Manufacturer() string {
	return c.Man
}

// Model name of the device
func (c *tokenConfig) Model() string {
	return c.Mod
}

// Attributes is list of additional key=value pairs
func (c *tokenConfig) Attributes() string {
	return c.Attrs
}

// LoadTokenConfig loads provider configuration.
// Files with .json extension are decoded as JSON, all others as YAML.
func LoadTokenConfig(filename string) (TokenConfig, error) {
	cfr, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer cfr.Close()
	tokenConfig := new(tokenConfig)

	if strings.HasSuffix(filename, ".json") {
		err = json.NewDecoder(cfr).Decode(tokenConfig)
	} else {
		err = yaml.NewDecoder(cfr).Decode(tokenConfig)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to decode file: %s", filename)
	}
	if tokenConfig.Man == "" {
		return nil, errors.Errorf("manufacturer is not specified: %s", filename)
	}

	return tokenConfig, nil
}

// ParseAttributes returns a map of attributes from
// comma separated key=value pairs
func ParseAttributes(attributes string) (map[string]string, error) {
	res := make(map[string]string)

	for _, v := range strings.Split(attributes, ",") {
		if strings.TrimSpace(v) == "" {
			continue
		}
		key, val, ok := strings.Cut(v, "=")
		if !ok {
			return nil, errors.Errorf("invalid attribute: %q", v)
		}
		res[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}

	return res, nil
}

package cryptoprov_test

import (
	"testing"

	"github.com/effective-security/x/slices"
	"github.com/effective-security/xcsr/cryptoprov"
	"github.com/effective-security/xcsr/cryptoprov/awskmscrypto"
	"github.com/effective-security/xcsr/cryptoprov/gcpkmscrypto"
	"github.com/effective-security/xcsr/cryptoprov/inmemcrypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistered(t *testing.T) {
	l := cryptoprov.Registered()
	require.NotEmpty(t, l)

	assert.True(t, slices.ContainsString(l, inmemcrypto.ProviderName))
	assert.True(t, slices.ContainsString(l, awskmscrypto.ProviderName))
	assert.True(t, slices.ContainsString(l, gcpkmscrypto.ProviderName))
}

func TestRegister(t *testing.T) {
	err := cryptoprov.Register(inmemcrypto.ProviderName, inmemcrypto.Loader)
	assert.EqualError(t, err, "already registered: inmem")

	_, err = cryptoprov.Unregister("testprov")
	assert.EqualError(t, err, "not registered: testprov")

	require.NoError(t, cryptoprov.Register("testprov", inmemcrypto.Loader))
	loader, err := cryptoprov.Unregister("testprov")
	require.NoError(t, err)
	assert.NotNil(t, loader)
}

func TestLoadProvider(t *testing.T) {
	p, err := cryptoprov.LoadProvider("testdata/inmem.json")
	require.NoError(t, err)
	assert.Equal(t, inmemcrypto.ProviderName, p.Manufacturer())
	assert.Equal(t, "json", p.Model())

	p, err = cryptoprov.LoadProvider("testdata/inmem.yaml")
	require.NoError(t, err)
	assert.Equal(t, "yaml", p.Model())

	p, err = cryptoprov.LoadProvider("")
	require.NoError(t, err)
	assert.Equal(t, inmemcrypto.ProviderName, p.Manufacturer())

	_, err = cryptoprov.LoadProvider("testdata/unknown.yaml")
	assert.EqualError(t, err, "provider not registered: NetHSM")

	_, err = cryptoprov.LoadProvider("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	cp, err := cryptoprov.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, inmemcrypto.ProviderName, cp.Default().Manufacturer())
	require.NoError(t, cp.Close())

	cp, err = cryptoprov.Load("testdata/inmem.json", []string{"testdata/inmem.yaml"})
	require.NoError(t, err)
	defer cp.Close()
	assert.Equal(t, "json", cp.Default().Model())

	p, err := cp.ByManufacturer(inmemcrypto.ProviderName, "yaml")
	require.NoError(t, err)
	assert.Equal(t, "yaml", p.Model())

	_, err = cryptoprov.Load("testdata/inmem.json", []string{"testdata/unknown.yaml"})
	assert.Error(t, err)
	_, err = cryptoprov.Load("testdata/unknown.yaml", nil)
	assert.Error(t, err)
}

package inmemcrypto_test

import (
	"crypto/elliptic"
	"testing"

	"github.com/effective-security/xcsr/cryptoprov"
	"github.com/effective-security/xcsr/cryptoprov/inmemcrypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider(t *testing.T) {
	prov, err := inmemcrypto.Loader(cryptoprov.NewTokenConfig(inmemcrypto.ProviderName, "unittest", ""))
	require.NoError(t, err)

	assert.Equal(t, inmemcrypto.ProviderName, prov.Manufacturer())
	assert.Equal(t, "unittest", prov.Model())

	rsaKey, err := prov.GenerateRSAKey("rsa", 2048, cryptoprov.PurposeSign)
	require.NoError(t, err)
	ecKey, err := prov.GenerateECDSAKey("ecdsa", elliptic.P384())
	require.NoError(t, err)
	edKey, err := prov.(cryptoprov.Ed25519Generator).GenerateEd25519Key("ed25519")
	require.NoError(t, err)

	_, err = prov.GenerateECDSAKey("nil", nil)
	assert.EqualError(t, err, "unsupported curve")

	for label, key := range map[string]any{"rsa": rsaKey, "ecdsa": ecKey, "ed25519": edKey} {
		keyID, keyLabel, err := prov.IdentifyKey(key)
		require.NoError(t, err)
		assert.Equal(t, label, keyLabel)

		uri, pem, err := prov.ExportKey(keyID)
		require.NoError(t, err)
		assert.Equal(t, "pkcs11:manufacturer=inmem;model=unittest;id="+keyID+";type=private", uri)
		assert.Contains(t, string(pem), "PRIVATE KEY-----")
	}

	_, _, err = prov.IdentifyKey("key")
	assert.EqualError(t, err, "not supported key: string")

	other, err := inmemcrypto.NewProvider("other").GenerateECDSAKey("other", elliptic.P256())
	require.NoError(t, err)
	_, _, err = prov.IdentifyKey(other)
	assert.EqualError(t, err, "key not found")

	_, _, err = prov.ExportKey("123")
	assert.EqualError(t, err, "key not found: 123")

	keyID, _, err := prov.IdentifyKey(ecKey)
	require.NoError(t, err)
	require.NoError(t, prov.Close())
	_, err = prov.GetKey(keyID)
	assert.Error(t, err)
}

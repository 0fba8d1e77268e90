package cryptoprov_test

import (
	"crypto/ecdsa"
	"os"
	"path/filepath"
	"testing"

	"github.com/effective-security/xcsr/cryptoprov"
	"github.com/effective-security/xcsr/cryptoprov/inmemcrypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSigner(t *testing.T) {
	prov := inmemcrypto.NewProvider("test")
	cp, err := cryptoprov.New(prov, nil)
	require.NoError(t, err)
	defer cp.Close()

	_, err = cp.NewSignerFromFile("not_found")
	assert.EqualError(t, err, "load key file: open not_found: no such file or directory")

	_, err = cp.NewSignerFromFile("testdata/inmem.json")
	assert.EqualError(t, err, "load key from file: testdata/inmem.json: failed to parse key: unable to decode private key")

	pvk, err := cryptoprov.GenerateKey(prov, "ECDSA", 256, "signer")
	require.NoError(t, err)
	keyID, _, err := prov.IdentifyKey(pvk)
	require.NoError(t, err)
	keyURI, keyPEM, err := prov.ExportKey(keyID)
	require.NoError(t, err)

	dir := t.TempDir()
	uriFile := filepath.Join(dir, "key.uri")
	pemFile := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(uriFile, []byte(keyURI), 0600))
	require.NoError(t, os.WriteFile(pemFile, keyPEM, 0600))

	s, err := cp.NewSignerFromFile(uriFile)
	require.NoError(t, err)
	assert.Equal(t, pvk, s)

	s, err = cp.NewSignerFromFile(pemFile)
	require.NoError(t, err)
	assert.True(t, pvk.Public().(*ecdsa.PublicKey).Equal(s.Public()))
}

package certutil_test

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/effective-security/xcsr/certutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSigned(t *testing.T) (*x509.Certificate, *ecdsa.PrivateKey) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "certutil", Organization: []string{"xcsr"}},
		NotBefore:    now,
		NotAfter:     now.Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, key.Public(), key)
	require.NoError(t, err)
	crt, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return crt, key
}

func TestEncodeToPEM(t *testing.T) {
	crt, key := selfSigned(t)

	s, err := certutil.EncodeToPEMString(true, crt)
	require.NoError(t, err)
	assert.Contains(t, s, "#   Subject: O=xcsr, CN=certutil")
	assert.Contains(t, s, "-----BEGIN CERTIFICATE-----")

	s, err = certutil.EncodeToPEMString(false)
	require.NoError(t, err)
	assert.Empty(t, s)

	var b bytes.Buffer
	require.NoError(t, certutil.EncodeToPEM(&b, false, crt, nil))

	parsed, err := certutil.ParseFromPEM(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, crt.Raw, parsed.Raw)

	file := filepath.Join(t.TempDir(), "cert.pem")
	require.NoError(t, os.WriteFile(file, b.Bytes(), 0600))
	loaded, err := certutil.LoadFromPEM(file)
	require.NoError(t, err)
	assert.Equal(t, crt.Raw, loaded.Raw)

	_, err = certutil.LoadFromPEM(file + ".missing")
	assert.Error(t, err)
	_, err = certutil.ParseFromPEM([]byte("not PEM"))
	assert.EqualError(t, err, "unable to parse PEM")

	pub, err := certutil.ParsePublicKeyFromPEM(b.Bytes())
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))
}

func TestPublicKeyPEM(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pemKey, err := certutil.EncodePublicKeyToPEM(key.Public())
	require.NoError(t, err)
	assert.Contains(t, string(pemKey), "PUBLIC KEY")

	pub, err := certutil.ParsePublicKeyFromPEM(pemKey)
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))

	_, err = certutil.ParsePublicKeyFromPEM([]byte("garbage"))
	assert.EqualError(t, err, "key must be PEM encoded")

	priv, err := certutil.EncodePrivateKeyToPEM(key)
	require.NoError(t, err)
	_, err = certutil.ParsePublicKeyFromPEM(priv)
	assert.EqualError(t, err, "unsupported PEM type: RSA PRIVATE KEY")
}

func TestPrivateKeyPEM(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	for _, k := range []any{rsaKey, ecKey, edKey} {
		pemKey, err := certutil.EncodePrivateKeyToPEM(k)
		require.NoError(t, err)

		s, err := certutil.ParsePrivateKeyPEM(pemKey)
		require.NoError(t, err)
		assert.IsType(t, k, s)
	}

	_, err = certutil.EncodePrivateKeyToPEM("key")
	assert.EqualError(t, err, "unsupported key: string")

	_, err = certutil.ParsePrivateKeyPEM([]byte("garbage"))
	assert.EqualError(t, err, "unable to decode private key")

	_, err = certutil.ParsePrivateKeyDER([]byte{1, 2, 3})
	assert.EqualError(t, err, "unable to parse private key")
}

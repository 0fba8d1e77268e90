package print_test

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcsr/oid"
	"github.com/effective-security/xcsr/x/print"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}

func sanValue(t *testing.T) []byte {
	val, err := asn1.Marshal([]asn1.RawValue{
		{Tag: 2, Class: asn1.ClassContextSpecific, Bytes: []byte("ekspand.com")},
		{Tag: 1, Class: asn1.ClassContextSpecific, Bytes: []byte("ca@ekspand.com")},
		{Tag: 7, Class: asn1.ClassContextSpecific, Bytes: net.ParseIP("127.0.0.1").To4()},
		{Tag: 6, Class: asn1.ClassContextSpecific, Bytes: []byte("spiffe://domain/workflow")},
	})
	require.NoError(t, err)
	return val
}

func TestCertificateRequest(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	ri := &print.RequestInfo{
		Version: 0,
		Subject: pkix.Name{
			CommonName: "localhost",
			Names: []pkix.AttributeTypeAndValue{
				{Type: oid.NameCN, Value: "localhost"},
			},
		},
		PublicKey:          key.Public(),
		Extensions:         []pkix.Extension{{Id: oid.ExtensionSubjectAltName, Value: sanValue(t)}},
		Attributes:         []asn1.ObjectIdentifier{oid.AttributeExtensionRequest},
		SignatureAlgorithm: x509.ECDSAWithSHA256.String(),
		Signature:          []byte{1, 2, 3},
	}

	w := bytes.NewBuffer([]byte{})
	require.NoError(t, print.CertificateRequest(w, ri))

	out := w.String()
	assert.NotContains(t, out, "ERROR:")
	assert.Contains(t, out, "Version: 1\n")
	assert.Contains(t, out, "Subject: CN=localhost\n")
	assert.Contains(t, out, "Public Key: ECDSA 256\n")
	assert.Contains(t, out, "Key Thumbprint: ")
	assert.Contains(t, out, "Attribute: Requested Extensions\n")
	assert.Contains(t, out, "DNS:ekspand.com, email:ca@ekspand.com, IP:127.0.0.1, URI:spiffe://domain/workflow")
	assert.Contains(t, out, "Signature Algorithm: ECDSA-SHA256\n")
	assert.Contains(t, out, "Signature: 010203\n")

	w.Reset()
	require.NoError(t, print.CertificateRequest(w, &print.RequestInfo{}))
	out = w.String()
	assert.Contains(t, out, "Subject: <empty>\n")
	assert.Contains(t, out, "Public Key: <not set>\n")
	assert.Contains(t, out, "Signature: <not signed>\n")

	err = print.CertificateRequest(failingWriter{}, ri)
	assert.EqualError(t, err, "write failed")
}

func TestCertificate(t *testing.T) {
	pub, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(100),
		Subject:      pkix.Name{CommonName: "print", Organization: []string{"xcsr"}},
		NotBefore:    now,
		NotAfter:     now.Add(time.Hour),
		SubjectKeyId: []byte{1, 2},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, pub, key)
	require.NoError(t, err)
	crt, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	w := bytes.NewBuffer([]byte{})
	require.NoError(t, print.Certificate(w, crt))

	out := w.String()
	assert.Contains(t, out, "Subject: O=xcsr, CN=print\n")
	assert.Contains(t, out, "Issuer: O=xcsr, CN=print\n")
	assert.Contains(t, out, "Serial: 100\n")
	assert.Contains(t, out, "SKID: 0102\n")
	assert.Contains(t, out, "Expires: ")
	assert.Contains(t, out, "CA: false\n")
	assert.Contains(t, out, "Public Key: Ed25519")

	assert.Error(t, print.Certificate(failingWriter{}, crt))
}

func TestCertAndKey(t *testing.T) {
	w := bytes.NewBuffer([]byte{})
	require.NoError(t, print.CertAndKey(w, []byte("key"), []byte("csr"), []byte("cert")))
	assert.Equal(t, "{\"cert\":\"cert\",\"csr\":\"csr\",\"key\":\"key\"}\n", w.String())

	w.Reset()
	require.NoError(t, print.CertAndKey(w, nil, []byte("csr"), nil))
	assert.Equal(t, "{\"csr\":\"csr\"}\n", w.String())
}

func TestKeyThumbprint(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tp, err := print.KeyThumbprint(key.Public())
	require.NoError(t, err)
	assert.Len(t, tp, 64)

	tp2, err := print.KeyThumbprint(key.Public())
	require.NoError(t, err)
	assert.Equal(t, tp, tp2)

	_, err = print.KeyThumbprint("key")
	assert.Error(t, err)
}

package csr_test

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509/pkix"
	"io"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcsr/csr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	rsaOnce sync.Once
	rsaKey  *rsa.PrivateKey
)

func rsaTestKey(t *testing.T) *rsa.PrivateKey {
	rsaOnce.Do(func() {
		var err error
		rsaKey, err = rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
	})
	return rsaKey
}

func ecdsaTestKey(t *testing.T) *ecdsa.PrivateKey {
	k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return k
}

func ed25519TestKey(t *testing.T) ed25519.PrivateKey {
	_, k, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return k
}

func testSubject() pkix.Name {
	return pkix.Name{
		CommonName:   "localhost",
		Organization: []string{"xcsr"},
		Country:      []string{"US"},
	}
}

// newSignedRequest returns a request signed with the key
func newSignedRequest(t *testing.T, key crypto.Signer, hash crypto.Hash) *csr.Request {
	r, err := csr.NewWith(0, testSubject(), key.Public())
	require.NoError(t, err)
	require.NoError(t, r.Sign(key, hash))
	t.Cleanup(func() { _ = r.Close() })
	return r
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}

type failingSigner struct {
	crypto.Signer
}

func (failingSigner) Sign(io.Reader, []byte, crypto.SignerOpts) ([]byte, error) {
	return nil, errors.New("token is not available")
}

func TestNew(t *testing.T) {
	r, err := csr.New()
	require.NoError(t, err)
	defer r.Close()

	ver, err := r.Version()
	require.NoError(t, err)
	assert.Equal(t, 0, ver)

	subj, err := r.Subject()
	require.NoError(t, err)
	assert.Empty(t, subj.Names)

	raw, err := r.RawSubject()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x30, 0x00}, raw)

	_, err = r.PublicKey()
	assert.True(t, errors.Is(err, csr.ErrCrypto))

	exts, err := r.Extensions()
	require.NoError(t, err)
	assert.Empty(t, exts)

	assert.False(t, r.IsSigned())
}

func TestNewWith(t *testing.T) {
	key := ecdsaTestKey(t)

	r, err := csr.NewWith(1, testSubject(), key)
	require.NoError(t, err)
	defer r.Close()

	ver, err := r.Version()
	require.NoError(t, err)
	assert.Equal(t, 1, ver)

	subj, err := r.Subject()
	require.NoError(t, err)
	assert.True(t, csr.EqualNames(testSubject(), subj))

	pub, err := r.PublicKey()
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))

	_, err = csr.NewWith(3, testSubject(), key)
	assert.True(t, errors.Is(err, csr.ErrConfiguration))

	_, err = csr.NewWith(0, testSubject(), "not a key")
	assert.True(t, errors.Is(err, csr.ErrConfiguration))

	_, err = csr.NewWith(0, testSubject(), nil)
	assert.True(t, errors.Is(err, csr.ErrConfiguration))
}

func TestVersion(t *testing.T) {
	r, err := csr.New()
	require.NoError(t, err)
	defer r.Close()

	for _, v := range []int{0, 1, 2} {
		require.NoError(t, r.SetVersion(v))
		ver, err := r.Version()
		require.NoError(t, err)
		assert.Equal(t, v, ver)
	}

	for _, v := range []int{-1, 3} {
		err = r.SetVersion(v)
		require.Error(t, err)
		assert.True(t, errors.Is(err, csr.ErrConfiguration))
	}

	// failed set does not change the value
	ver, err := r.Version()
	require.NoError(t, err)
	assert.Equal(t, 2, ver)
}

func TestGettersReturnCopies(t *testing.T) {
	key := ecdsaTestKey(t)
	r, err := csr.NewWith(0, testSubject(), key.Public())
	require.NoError(t, err)
	defer r.Close()

	s1, err := r.Subject()
	require.NoError(t, err)
	s2, err := r.Subject()
	require.NoError(t, err)
	assert.Equal(t, s1, s2)

	s1.Organization[0] = "changed"
	s1.Names[0].Value = "changed"
	s3, err := r.Subject()
	require.NoError(t, err)
	assert.Equal(t, s2, s3)

	p1, err := r.PublicKey()
	require.NoError(t, err)
	p2, err := r.PublicKey()
	require.NoError(t, err)
	assert.True(t, p1.(*ecdsa.PublicKey).Equal(p2))

	p1.(*ecdsa.PublicKey).X.SetInt64(1)
	p3, err := r.PublicKey()
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(p3))

	raw, err := r.RawSubject()
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	s4, err := r.Subject()
	require.NoError(t, err)
	assert.Equal(t, s2, s4)
}

func TestSetters(t *testing.T) {
	r, err := csr.New()
	require.NoError(t, err)
	defer r.Close()

	key := ed25519TestKey(t)
	require.NoError(t, r.SetPublicKey(key))
	pub, err := r.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, key.Public(), pub)

	other := testSubject()
	other.CommonName = "other"
	require.NoError(t, r.SetSubject(other))
	subj, err := r.Subject()
	require.NoError(t, err)
	assert.Equal(t, "other", subj.CommonName)

	r2, err := csr.NewWith(0, testSubject(), key)
	require.NoError(t, err)
	defer r2.Close()
	raw, err := r2.RawSubject()
	require.NoError(t, err)

	require.NoError(t, r.SetRawSubject(raw))
	subj, err = r.Subject()
	require.NoError(t, err)
	assert.True(t, csr.EqualNames(testSubject(), subj))

	err = r.SetRawSubject([]byte{1, 2, 3})
	assert.True(t, errors.Is(err, csr.ErrConfiguration))
	err = r.SetRawSubject(append(raw, 0))
	assert.True(t, errors.Is(err, csr.ErrConfiguration))
}

func TestClose(t *testing.T) {
	r, err := csr.NewWith(0, testSubject(), ecdsaTestKey(t))
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.Version()
	assert.True(t, errors.Is(err, csr.ErrAllocation))
	_, err = r.Subject()
	assert.True(t, errors.Is(err, csr.ErrAllocation))
	err = r.SetVersion(1)
	assert.True(t, errors.Is(err, csr.ErrAllocation))
	err = r.Sign(ecdsaTestKey(t), crypto.SHA256)
	assert.True(t, errors.Is(err, csr.ErrAllocation))
	_, err = r.Verify(nil)
	assert.True(t, errors.Is(err, csr.ErrAllocation))
	assert.False(t, r.IsSigned())

	var nilReq *csr.Request
	assert.NoError(t, nilReq.Close())
	_, err = nilReq.Version()
	assert.True(t, errors.Is(err, csr.ErrAllocation))
}

func TestEqualNames(t *testing.T) {
	a := testSubject()
	b := testSubject()
	assert.True(t, csr.EqualNames(a, b))

	b.Organization = []string{"other"}
	assert.False(t, csr.EqualNames(a, b))
	assert.False(t, csr.EqualNames(a, pkix.Name{}))
	assert.True(t, csr.EqualNames(pkix.Name{}, pkix.Name{}))
}

func TestPrint(t *testing.T) {
	r := newSignedRequest(t, ecdsaTestKey(t), crypto.SHA256)
	ext, err := csr.SANExtension([]string{"localhost", "127.0.0.1"})
	require.NoError(t, err)

	require.NoError(t, r.ClearSignature())
	require.NoError(t, r.AddExtension(ext))

	w := bytes.NewBuffer([]byte{})
	require.NoError(t, r.Print(w))
	out := w.String()
	assert.Contains(t, out, "Version: 1\n")
	assert.Contains(t, out, "Subject: C=US, O=xcsr, CN=localhost\n")
	assert.Contains(t, out, "Public Key: ECDSA 256\n")
	assert.Contains(t, out, "DNS:localhost, IP:127.0.0.1")
	assert.Contains(t, out, "Signature: <not signed>\n")

	require.NoError(t, r.Sign(ecdsaTestKey(t), crypto.SHA384))
	w.Reset()
	require.NoError(t, r.Print(w))
	assert.Contains(t, w.String(), "Signature Algorithm: ECDSA-SHA384\n")

	err = r.Print(failingWriter{})
	assert.True(t, errors.Is(err, csr.ErrIO))
}

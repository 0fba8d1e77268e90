package csr

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"strings"

	// register hash functions
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcsr/oid"
)

type signatureAlgorithm struct {
	algo       x509.SignatureAlgorithm
	oid        asn1.ObjectIdentifier
	keyAlgo    x509.PublicKeyAlgorithm
	hash       crypto.Hash
	nullParams bool
}

var signatureAlgorithms = []signatureAlgorithm{
	{x509.SHA1WithRSA, oid.SignatureSHA1WithRSA, x509.RSA, crypto.SHA1, true},
	{x509.SHA256WithRSA, oid.SignatureSHA256WithRSA, x509.RSA, crypto.SHA256, true},
	{x509.SHA384WithRSA, oid.SignatureSHA384WithRSA, x509.RSA, crypto.SHA384, true},
	{x509.SHA512WithRSA, oid.SignatureSHA512WithRSA, x509.RSA, crypto.SHA512, true},
	{x509.ECDSAWithSHA1, oid.SignatureECDSAWithSHA1, x509.ECDSA, crypto.SHA1, false},
	{x509.ECDSAWithSHA256, oid.SignatureECDSAWithSHA256, x509.ECDSA, crypto.SHA256, false},
	{x509.ECDSAWithSHA384, oid.SignatureECDSAWithSHA384, x509.ECDSA, crypto.SHA384, false},
	{x509.ECDSAWithSHA512, oid.SignatureECDSAWithSHA512, x509.ECDSA, crypto.SHA512, false},
	{x509.PureEd25519, oid.SignatureEd25519, x509.Ed25519, 0, false},
}

// digestAlgorithms maps normalized names to hash functions
var digestAlgorithms = map[string]crypto.Hash{
	"SHA1":   crypto.SHA1,
	"SHA224": crypto.SHA224,
	"SHA256": crypto.SHA256,
	"SHA384": crypto.SHA384,
	"SHA512": crypto.SHA512,
}

var digestNameReplacer = strings.NewReplacer("-", "", "_", "")

// HashByName returns hash function by its name, e.g. SHA256 or sha-256
func HashByName(name string) (crypto.Hash, error) {
	n := strings.ToUpper(digestNameReplacer.Replace(strings.TrimSpace(name)))
	h, ok := digestAlgorithms[n]
	if !ok || !h.Available() {
		return 0, markError(ErrCrypto, nil, "unsupported digest algorithm: %q", name)
	}
	return h, nil
}

func (a *signatureAlgorithm) identifier() pkix.AlgorithmIdentifier {
	ai := pkix.AlgorithmIdentifier{Algorithm: a.oid}
	if a.nullParams {
		ai.Parameters = asn1.NullRawValue
	}
	return ai
}

// validParameters reports whether params are allowed for the algorithm:
// absent or NULL for RSA PKCS#1 v1.5, absent for ECDSA and Ed25519.
func (a *signatureAlgorithm) validParameters(params asn1.RawValue) bool {
	if len(params.FullBytes) == 0 {
		return true
	}
	return a.nullParams && bytes.Equal(params.FullBytes, asn1.NullBytes)
}

func signatureAlgorithmByOID(id asn1.ObjectIdentifier) *signatureAlgorithm {
	for i := range signatureAlgorithms {
		if signatureAlgorithms[i].oid.Equal(id) {
			return &signatureAlgorithms[i]
		}
	}
	return nil
}

func signatureAlgorithmFor(pub crypto.PublicKey, hash crypto.Hash) (*signatureAlgorithm, error) {
	keyAlgo := publicKeyAlgorithm(pub)
	if keyAlgo == x509.UnknownPublicKeyAlgorithm {
		return nil, errors.Errorf("unsupported key type: %T", pub)
	}
	for i := range signatureAlgorithms {
		a := &signatureAlgorithms[i]
		if a.keyAlgo == keyAlgo && a.hash == hash {
			return a, nil
		}
	}
	if keyAlgo == x509.Ed25519 {
		return nil, errors.Errorf("Ed25519 signs the message without a pre-hash, got %s", hash)
	}
	return nil, errors.Errorf("unsupported hash %s for %s key", hash, keyAlgo)
}

func publicKeyAlgorithm(pub crypto.PublicKey) x509.PublicKeyAlgorithm {
	switch pub.(type) {
	case *rsa.PublicKey:
		return x509.RSA
	case *ecdsa.PublicKey:
		return x509.ECDSA
	case ed25519.PublicKey:
		return x509.Ed25519
	default:
		return x509.UnknownPublicKeyAlgorithm
	}
}

// publicKey returns the public part of a key pair, or the key itself
func publicKey(key any) crypto.PublicKey {
	if k, ok := key.(interface{ Public() crypto.PublicKey }); ok {
		return k.Public()
	}
	return key
}

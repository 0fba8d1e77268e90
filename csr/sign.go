package csr

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcsr/metricskey"
	"github.com/effective-security/xcsr/rawview"
	"github.com/effective-security/xlog"
)

// Sign signs the request info with the key.
// The hash must be 0 for Ed25519 keys.
func (r *Request) Sign(key crypto.Signer, hash crypto.Hash) error {
	defer metricskey.PerfCSROperation.MeasureSince(time.Now(), "sign")

	v, err := r.view("sign")
	if err != nil {
		return err
	}
	if key == nil {
		return markError(ErrSigning, nil, "sign: signer is required")
	}
	if rawview.IsEmptyPublicKey(v.PublicKey) {
		return markError(ErrSigning, nil, "sign: public key is not set")
	}

	alg, err := signatureAlgorithmFor(key.Public(), hash)
	if err != nil {
		return markError(ErrSigning, err, "sign")
	}

	signed := r.info
	var opts crypto.SignerOpts = alg.hash
	if alg.hash != 0 {
		h := alg.hash.New()
		_, _ = h.Write(r.info)
		signed = h.Sum(nil)
	}

	sig, err := key.Sign(rand.Reader, signed, opts)
	if err != nil {
		logger.KV(xlog.ERROR, "algo", alg.algo.String(), "err", err.Error())
		return markError(ErrSigning, err, "sign: %s", alg.algo)
	}

	ai := alg.identifier()
	req := &rawview.Request{
		Info:               asn1.RawValue{FullBytes: r.info},
		SignatureAlgorithm: ai,
		Signature:          asn1.BitString{Bytes: sig, BitLength: len(sig) * 8},
	}
	der, err := req.Marshal()
	if err != nil {
		return markError(ErrSigning, err, "sign")
	}

	r.sig = &signature{
		algorithm: ai,
		value:     sig,
		der:       der,
	}
	logger.KV(xlog.DEBUG, "status", "signed", "algo", alg.algo.String())
	return nil
}

// IsSigned returns true if the request has a signature
func (r *Request) IsSigned() bool {
	return r != nil && !r.released && r.sig != nil
}

// ClearSignature drops the signature, so the request can be modified
func (r *Request) ClearSignature() error {
	if _, err := r.view("clear signature"); err != nil {
		return err
	}
	if r.sig != nil {
		clear(r.sig.der)
		r.sig = nil
	}
	return nil
}

// SignatureAlgorithm returns the signature algorithm of a signed request,
// x509.UnknownSignatureAlgorithm is returned for unsupported algorithms.
func (r *Request) SignatureAlgorithm() (x509.SignatureAlgorithm, error) {
	if _, err := r.view("signature algorithm"); err != nil {
		return x509.UnknownSignatureAlgorithm, err
	}
	if r.sig == nil {
		return x509.UnknownSignatureAlgorithm, markError(ErrCrypto, nil, "request is not signed")
	}
	if alg := signatureAlgorithmByOID(r.sig.algorithm.Algorithm); alg != nil {
		return alg.algo, nil
	}
	return x509.UnknownSignatureAlgorithm, nil
}

// Verify checks the signature with the public key.
// A signature that does not match returns false without error,
// ErrCrypto is returned when the check can not be performed.
func (r *Request) Verify(key crypto.PublicKey) (bool, error) {
	defer metricskey.PerfCSROperation.MeasureSince(time.Now(), "verify")

	if _, err := r.view("verify"); err != nil {
		return false, err
	}

	code, err := r.verify(publicKey(key))
	res := verifyResults[code]
	if res.kind != nil {
		return false, markError(res.kind, err, "verify")
	}
	return res.valid, nil
}

// CheckSignature verifies the signature with the public key of the request
func (r *Request) CheckSignature() (bool, error) {
	pub, err := r.PublicKey()
	if err != nil {
		return false, err
	}
	return r.Verify(pub)
}

func (r *Request) verify(pub crypto.PublicKey) (verifyCode, error) {
	if r.sig == nil {
		return verifyFailed, errors.New("request is not signed")
	}
	alg := signatureAlgorithmByOID(r.sig.algorithm.Algorithm)
	if alg == nil {
		return verifyFailed, errors.Errorf("unsupported signature algorithm: %s", r.sig.algorithm.Algorithm)
	}
	if !alg.validParameters(r.sig.algorithm.Parameters) {
		return verifyFailed, errors.Errorf("invalid parameters for %s signature algorithm", alg.algo)
	}
	if publicKeyAlgorithm(pub) != alg.keyAlgo {
		return verifyFailed, errors.Errorf("%T can not verify %s signature", pub, alg.algo)
	}

	var digest []byte
	if alg.hash != 0 {
		if !alg.hash.Available() {
			return verifyFailed, errors.Errorf("hash is not available: %s", alg.hash)
		}
		h := alg.hash.New()
		_, _ = h.Write(r.info)
		digest = h.Sum(nil)
	}

	switch pub := pub.(type) {
	case *rsa.PublicKey:
		if err := rsa.VerifyPKCS1v15(pub, alg.hash, digest, r.sig.value); err != nil {
			return verifyMismatch, nil
		}
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(pub, digest, r.sig.value) {
			return verifyMismatch, nil
		}
	case ed25519.PublicKey:
		if len(pub) != ed25519.PublicKeySize {
			return verifyFailed, errors.Errorf("invalid Ed25519 key size: %d", len(pub))
		}
		if !ed25519.Verify(pub, r.info, r.sig.value) {
			return verifyMismatch, nil
		}
	}
	return verifyOK, nil
}

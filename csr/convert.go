package csr

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcsr/metricskey"
	"github.com/effective-security/xlog"
)

var maxSerial = new(big.Int).Lsh(big.NewInt(1), 128)

// CreateCertificate returns a certificate for the request key,
// valid for the number of days since now and signed by the issuer.
// Both subject and issuer of the certificate are the request subject.
func (r *Request) CreateCertificate(validityDays int, issuer crypto.Signer) (*x509.Certificate, error) {
	defer metricskey.PerfCSROperation.MeasureSince(time.Now(), "create_certificate")

	v, err := r.view("create certificate")
	if err != nil {
		return nil, err
	}
	if validityDays <= 0 {
		return nil, markError(ErrConversion, nil, "create certificate: invalid validity period: %d days", validityDays)
	}
	if issuer == nil {
		return nil, markError(ErrConversion, nil, "create certificate: issuer is required")
	}
	pub, err := r.PublicKey()
	if err != nil {
		return nil, markError(ErrConversion, err, "create certificate")
	}
	serial, err := newSerialNumber()
	if err != nil {
		return nil, markError(ErrConversion, err, "create certificate")
	}

	subject := bytes.Clone(v.Subject)
	notBefore := time.Now().UTC()
	template := &x509.Certificate{
		SerialNumber: serial,
		RawSubject:   subject,
		NotBefore:    notBefore,
		NotAfter:     notBefore.Add(time.Duration(validityDays) * 24 * time.Hour),
	}
	parent := &x509.Certificate{
		RawSubject: subject,
		PublicKey:  issuer.Public(),
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, pub, issuer)
	if err != nil {
		return nil, markError(ErrConversion, err, "create certificate")
	}
	crt, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, markError(ErrConversion, err, "create certificate")
	}

	logger.KV(xlog.INFO,
		"status", "certificate_created",
		"serial", crt.SerialNumber.String(),
		"days", validityDays)
	return crt, nil
}

// newSerialNumber returns a random positive 128 bits serial number
func newSerialNumber() (*big.Int, error) {
	s, err := rand.Int(rand.Reader, maxSerial)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to generate serial number")
	}
	// serial must be positive
	return s.Add(s, big.NewInt(1)), nil
}

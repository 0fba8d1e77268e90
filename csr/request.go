package csr

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcsr/rawview"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xcsr", "csr")

// Supported versions of CertificationRequestInfo
const (
	// MinVersion is the lowest accepted version, v1 is encoded as 0
	MinVersion = 0
	// MaxVersion is the highest accepted version
	MaxVersion = 2
)

// Request is a PKCS#10 Certificate Signing Request
type Request struct {
	// info is DER encoded CertificationRequestInfo
	info     []byte
	sig      *signature
	released bool
}

type signature struct {
	algorithm pkix.AlgorithmIdentifier
	value     []byte
	// der is the encoded CertificationRequest
	der []byte
}

// New returns an empty request of version 0,
// with empty subject and without public key
func New() (*Request, error) {
	subject, err := asn1.Marshal(pkix.RDNSequence{})
	if err != nil {
		return nil, markError(ErrAllocation, err, "failed to encode empty subject")
	}

	info := &rawview.Info{
		Version:   MinVersion,
		Subject:   asn1.RawValue{FullBytes: subject},
		PublicKey: asn1.RawValue{FullBytes: rawview.EmptyPublicKey},
	}
	der, err := info.Marshal()
	if err != nil {
		return nil, markError(ErrAllocation, err, "failed to allocate request")
	}
	return &Request{info: der}, nil
}

// NewWith returns a request with the provided version, subject and key.
// The key can be a public key, or a key pair with Public method.
func NewWith(version int, subject pkix.Name, key any) (*Request, error) {
	r, err := New()
	if err != nil {
		return nil, err
	}

	err = r.SetVersion(version)
	if err == nil {
		err = r.SetSubject(subject)
	}
	if err == nil {
		err = r.SetPublicKey(key)
	}
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// Close releases the request and wipes its encoding.
// Any operation on a closed request fails with ErrAllocation.
func (r *Request) Close() error {
	if r == nil || r.released {
		return nil
	}
	clear(r.info)
	r.info = nil
	if r.sig != nil {
		clear(r.sig.der)
		r.sig = nil
	}
	r.released = true
	return nil
}

func (r *Request) view(op string) (*rawview.InfoView, error) {
	if r == nil || r.released {
		return nil, markError(ErrAllocation, nil, "%s: request is released", op)
	}
	v, err := rawview.ProjectInfo(r.info)
	if err != nil {
		return nil, markError(ErrParse, err, "%s", op)
	}
	return v, nil
}

// update mirrors the request info, applies the change and re-encodes it
func (r *Request) update(op string, apply func(*rawview.Info) error) error {
	v, err := r.view(op)
	if err != nil {
		return err
	}
	if r.sig != nil {
		return markError(ErrConfiguration, nil, "%s: request is signed, the signature must be cleared first", op)
	}

	info, err := rawview.Native.Mirror(v)
	if err != nil {
		return markError(ErrConfiguration, err, "%s", op)
	}
	if err = apply(info); err != nil {
		return markError(ErrConfiguration, err, "%s", op)
	}
	der, err := info.Marshal()
	if err != nil {
		return markError(ErrConfiguration, err, "%s", op)
	}
	r.info = der
	return nil
}

// Version returns the version of the request
func (r *Request) Version() (int, error) {
	v, err := r.view("version")
	if err != nil {
		return 0, err
	}
	ver, err := rawview.Native.Version(v)
	if err != nil {
		return 0, markError(ErrParse, err, "version")
	}
	return int(ver), nil
}

// SetVersion sets the version, which must be in MinVersion..MaxVersion range
func (r *Request) SetVersion(version int) error {
	return r.update("set version", func(info *rawview.Info) error {
		if version < MinVersion || version > MaxVersion {
			return errors.Errorf("unsupported version %d, expected %d..%d", version, MinVersion, MaxVersion)
		}
		info.Version = version
		return nil
	})
}

// Subject returns a copy of the subject name
func (r *Request) Subject() (pkix.Name, error) {
	var name pkix.Name
	v, err := r.view("subject")
	if err != nil {
		return name, err
	}

	var rdn pkix.RDNSequence
	if err = unmarshalStrict(v.Subject, &rdn); err != nil {
		return name, markError(ErrParse, err, "subject")
	}
	name.FillFromRDNSequence(&rdn)
	return name, nil
}

// RawSubject returns a copy of DER encoded subject
func (r *Request) RawSubject() ([]byte, error) {
	v, err := r.view("subject")
	if err != nil {
		return nil, err
	}
	return bytes.Clone(v.Subject), nil
}

// SetSubject replaces the subject name
func (r *Request) SetSubject(name pkix.Name) error {
	return r.update("set subject", func(info *rawview.Info) error {
		der, err := asn1.Marshal(name.ToRDNSequence())
		if err != nil {
			return errors.WithMessage(err, "failed to encode subject")
		}
		info.Subject = asn1.RawValue{FullBytes: der}
		return nil
	})
}

// SetRawSubject replaces the subject with DER encoded Name
func (r *Request) SetRawSubject(der []byte) error {
	return r.update("set subject", func(info *rawview.Info) error {
		var rdn pkix.RDNSequence
		if err := unmarshalStrict(der, &rdn); err != nil {
			return errors.WithMessage(err, "invalid subject")
		}
		info.Subject = asn1.RawValue{FullBytes: bytes.Clone(der)}
		return nil
	})
}

// PublicKey returns a copy of the public key,
// ErrCrypto is returned if the key is not set or can not be decoded
func (r *Request) PublicKey() (crypto.PublicKey, error) {
	v, err := r.view("public key")
	if err != nil {
		return nil, err
	}
	if rawview.IsEmptyPublicKey(v.PublicKey) {
		return nil, markError(ErrCrypto, nil, "public key is not set")
	}
	pub, err := x509.ParsePKIXPublicKey(bytes.Clone(v.PublicKey))
	if err != nil {
		return nil, markError(ErrCrypto, err, "public key")
	}
	return pub, nil
}

// SetPublicKey replaces the public key.
// The key can be a public key, or a key pair with Public method.
func (r *Request) SetPublicKey(key any) error {
	return r.update("set public key", func(info *rawview.Info) error {
		der, err := x509.MarshalPKIXPublicKey(publicKey(key))
		if err != nil {
			return errors.WithStack(err)
		}
		info.PublicKey = asn1.RawValue{FullBytes: der}
		return nil
	})
}

// RawInfo returns a copy of DER encoded CertificationRequestInfo
func (r *Request) RawInfo() ([]byte, error) {
	v, err := r.view("info")
	if err != nil {
		return nil, err
	}
	return bytes.Clone(v.Raw), nil
}

// EqualNames returns true if both names have the same encoding
func EqualNames(a, b pkix.Name) bool {
	da, err := asn1.Marshal(a.ToRDNSequence())
	if err != nil {
		return false
	}
	db, err := asn1.Marshal(b.ToRDNSequence())
	if err != nil {
		return false
	}
	return bytes.Equal(da, db)
}

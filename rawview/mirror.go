package rawview

import (
	"bytes"
	"crypto/x509/pkix"
	"encoding/asn1"

	"github.com/cockroachdb/errors"
)

// Format names the mirrored structures
const Format = "RFC2986"

// EmptyPublicKey is the placeholder encoded when a request has no key
var EmptyPublicKey = []byte{0x30, 0x00}

// Info mirrors CertificationRequestInfo
type Info struct {
	Raw        asn1.RawContent
	Version    int
	Subject    asn1.RawValue
	PublicKey  asn1.RawValue
	Attributes []asn1.RawValue `asn1:"tag:0"`
}

// Request mirrors CertificationRequest
type Request struct {
	Raw                asn1.RawContent
	Info               asn1.RawValue
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Signature          asn1.BitString
}

// Attribute mirrors the PKCS#10 Attribute
type Attribute struct {
	Type   asn1.ObjectIdentifier
	Values []asn1.RawValue `asn1:"set"`
}

// Marshal returns DER encoding of the request info
func (i *Info) Marshal() ([]byte, error) {
	m := *i
	m.Raw = nil
	der, err := asn1.Marshal(m)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to encode request info")
	}
	return der, nil
}

// Marshal returns DER encoding of the request
func (r *Request) Marshal() ([]byte, error) {
	m := *r
	m.Raw = nil
	der, err := asn1.Marshal(m)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to encode request")
	}
	return der, nil
}

// IsEmptyPublicKey returns true if the encoded key is the placeholder
func IsEmptyPublicKey(spki []byte) bool {
	return bytes.Equal(spki, EmptyPublicKey)
}

func asn1RawValue(der []byte) asn1.RawValue {
	return asn1.RawValue{FullBytes: bytes.Clone(der)}
}

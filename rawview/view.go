package rawview

import (
	encoding_asn1 "encoding/asn1"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var (
	// ErrMalformed is returned when the DER does not match the structure
	ErrMalformed = errors.New("malformed certification request")
	// ErrVersionOverflow is returned when the version does not fit the layout
	ErrVersionOverflow = errors.New("version overflow")
)

var tagAttributes = cbasn1.Tag(0).Constructed().ContextSpecific()

// InfoView is a projection of CertificationRequestInfo.
// Every field aliases the projected buffer.
type InfoView struct {
	// Raw is the complete encoding of the request info
	Raw []byte
	// Version is the encoded INTEGER element
	Version []byte
	// Subject is the encoded Name element
	Subject []byte
	// PublicKey is the encoded SubjectPublicKeyInfo element
	PublicKey []byte
	// Attributes is the content of the [0] attributes set, may be empty
	Attributes []byte
}

// RequestView is a projection of CertificationRequest.
// Every field aliases the projected buffer.
type RequestView struct {
	Raw  []byte
	Info InfoView
	// SignatureAlgorithm is the encoded AlgorithmIdentifier element
	SignatureAlgorithm []byte
	// Signature is the value of the signature BIT STRING
	Signature []byte
}

// ProjectInfo returns the view of DER encoded CertificationRequestInfo
func ProjectInfo(der []byte) (*InfoView, error) {
	input := cryptobyte.String(der)
	var info cryptobyte.String
	if !input.ReadASN1Element(&info, cbasn1.SEQUENCE) {
		return nil, errors.Mark(errors.New("invalid request info"), ErrMalformed)
	}
	if !input.Empty() {
		return nil, errors.Mark(errors.New("trailing data after request info"), ErrMalformed)
	}
	return projectInfo(info)
}

func projectInfo(element cryptobyte.String) (*InfoView, error) {
	v := &InfoView{Raw: element}

	var body cryptobyte.String
	if !element.ReadASN1(&body, cbasn1.SEQUENCE) {
		return nil, errors.Mark(errors.New("invalid request info"), ErrMalformed)
	}

	var version, subject, spki cryptobyte.String
	if !body.ReadASN1Element(&version, cbasn1.INTEGER) {
		return nil, errors.Mark(errors.New("invalid version"), ErrMalformed)
	}
	if !body.ReadASN1Element(&subject, cbasn1.SEQUENCE) {
		return nil, errors.Mark(errors.New("invalid subject"), ErrMalformed)
	}
	if !body.ReadASN1Element(&spki, cbasn1.SEQUENCE) {
		return nil, errors.Mark(errors.New("invalid public key info"), ErrMalformed)
	}

	var attrs cryptobyte.String
	var present bool
	if !body.ReadOptionalASN1(&attrs, &present, tagAttributes) {
		return nil, errors.Mark(errors.New("invalid attributes"), ErrMalformed)
	}
	if !body.Empty() {
		return nil, errors.Mark(errors.New("trailing data in request info"), ErrMalformed)
	}

	v.Version = version
	v.Subject = subject
	v.PublicKey = spki
	v.Attributes = attrs
	return v, nil
}

// Project returns the view of DER encoded CertificationRequest
func Project(der []byte) (*RequestView, error) {
	input := cryptobyte.String(der)
	var outer cryptobyte.String
	if !input.ReadASN1(&outer, cbasn1.SEQUENCE) {
		return nil, errors.Mark(errors.New("invalid certification request"), ErrMalformed)
	}
	if !input.Empty() {
		return nil, errors.Mark(errors.New("trailing data after certification request"), ErrMalformed)
	}

	var info, algo cryptobyte.String
	if !outer.ReadASN1Element(&info, cbasn1.SEQUENCE) {
		return nil, errors.Mark(errors.New("invalid request info"), ErrMalformed)
	}
	if !outer.ReadASN1Element(&algo, cbasn1.SEQUENCE) {
		return nil, errors.Mark(errors.New("invalid signature algorithm"), ErrMalformed)
	}
	var sig encoding_asn1.BitString
	if !outer.ReadASN1BitString(&sig) {
		return nil, errors.Mark(errors.New("invalid signature"), ErrMalformed)
	}
	if !outer.Empty() {
		return nil, errors.Mark(errors.New("trailing data in certification request"), ErrMalformed)
	}
	if sig.BitLength%8 != 0 {
		return nil, errors.Mark(errors.New("signature is not octet aligned"), ErrMalformed)
	}

	iv, err := projectInfo(info)
	if err != nil {
		return nil, err
	}

	return &RequestView{
		Raw:                der,
		Info:               *iv,
		SignatureAlgorithm: algo,
		Signature:          sig.Bytes,
	}, nil
}

// AttributeElements splits the attributes set into encoded Attribute elements.
// The returned slices alias the view.
func (v *InfoView) AttributeElements() ([][]byte, error) {
	var list [][]byte
	s := cryptobyte.String(v.Attributes)
	for !s.Empty() {
		var el cryptobyte.String
		if !s.ReadASN1Element(&el, cbasn1.SEQUENCE) {
			return nil, errors.Mark(errors.New("invalid attribute"), ErrMalformed)
		}
		list = append(list, el)
	}
	return list, nil
}

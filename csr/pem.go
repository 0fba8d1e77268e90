package csr

import (
	"bytes"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcsr/certutil"
	"github.com/effective-security/xcsr/rawview"
	"github.com/effective-security/xlog"
)

// MaxPEMSize is the limit of PEM input read by FromPEM
const MaxPEMSize = 1 << 20

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// FromPEM reads PEM encoded request from the reader.
// The reader is not closed.
func FromPEM(rd io.Reader) (*Request, error) {
	if rd == nil {
		return nil, markError(ErrIO, nil, "reader is required")
	}
	b, err := io.ReadAll(io.LimitReader(rd, MaxPEMSize+1))
	if err != nil {
		return nil, markError(ErrIO, err, "failed to read request")
	}
	if len(b) > MaxPEMSize {
		return nil, markError(ErrParse, nil, "request exceeds %d bytes", MaxPEMSize)
	}

	block, _ := pem.Decode(b)
	if block == nil {
		return nil, markError(ErrParse, nil, "unable to parse PEM")
	}
	if block.Type != certutil.PEMTypeCertificateRequest && block.Type != certutil.PEMTypeNewCertRequest {
		return nil, markError(ErrParse, nil, "unsupported type in PEM: %s", block.Type)
	}
	return FromDER(block.Bytes)
}

// FromDER parses DER encoded request.
// The returned request does not reference der.
func FromDER(der []byte) (*Request, error) {
	v, err := rawview.Project(der)
	if err != nil {
		logger.KV(xlog.DEBUG, "reason", "project", "err", err.Error())
		return nil, markError(ErrParse, err, "invalid request")
	}
	if _, err = rawview.Native.Version(&v.Info); err != nil {
		return nil, markError(ErrParse, err, "invalid request version")
	}

	var rdn pkix.RDNSequence
	if err = unmarshalStrict(v.Info.Subject, &rdn); err != nil {
		return nil, markError(ErrParse, err, "invalid request subject")
	}
	if _, err = v.Info.AttributeElements(); err != nil {
		return nil, markError(ErrParse, err, "invalid request attributes")
	}

	algDER := bytes.Clone(v.SignatureAlgorithm)
	var ai pkix.AlgorithmIdentifier
	if err = unmarshalStrict(algDER, &ai); err != nil {
		return nil, markError(ErrParse, err, "invalid signature algorithm")
	}

	return &Request{
		info: bytes.Clone(v.Info.Raw),
		sig: &signature{
			algorithm: ai,
			value:     bytes.Clone(v.Signature),
			der:       bytes.Clone(v.Raw),
		},
	}, nil
}

// DER returns a copy of DER encoded signed request.
// An unsigned request can not be encoded and fails with ErrEncoding.
func (r *Request) DER() ([]byte, error) {
	if _, err := r.view("encode"); err != nil {
		return nil, err
	}
	if r.sig == nil {
		return nil, markError(ErrEncoding, nil, "encode: request is not signed")
	}
	return bytes.Clone(r.sig.der), nil
}

// Write writes PEM encoded signed request,
// an unsigned request fails with ErrEncoding.
func (r *Request) Write(w io.Writer) error {
	der, err := r.DER()
	if err != nil {
		return err
	}
	err = pem.Encode(w, &pem.Block{
		Type:  certutil.PEMTypeCertificateRequest,
		Bytes: der,
	})
	if err != nil {
		return markError(ErrIO, err, "write")
	}
	return nil
}

// PEM returns PEM encoded signed request.
// Only signed requests round-trip through PEM: an unsigned request
// fails with ErrEncoding, use RawInfo for its encoded info.
func (r *Request) PEM() (string, error) {
	b := bufferPool.Get().(*bytes.Buffer)
	defer func() {
		b.Reset()
		bufferPool.Put(b)
	}()

	if err := r.Write(b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func unmarshalStrict(der []byte, v any) error {
	rest, err := asn1.Unmarshal(der, v)
	if err != nil {
		return errors.WithStack(err)
	}
	if len(rest) > 0 {
		return errors.New("trailing data")
	}
	return nil
}

package csr

import (
	"io"

	"github.com/effective-security/xcsr/oid"
	"github.com/effective-security/xcsr/x/print"
)

// Print writes human readable description of the request
func (r *Request) Print(w io.Writer) error {
	ri, err := r.printInfo()
	if err != nil {
		return err
	}
	if err = print.CertificateRequest(w, ri); err != nil {
		return markError(ErrIO, err, "print")
	}
	return nil
}

func (r *Request) printInfo() (*print.RequestInfo, error) {
	ver, err := r.Version()
	if err != nil {
		return nil, err
	}
	subject, err := r.Subject()
	if err != nil {
		return nil, err
	}
	ri := &print.RequestInfo{
		Version: ver,
		Subject: subject,
	}

	// the key and attributes are optional for printing
	ri.PublicKey, _ = r.PublicKey()
	ri.Extensions, _ = r.Extensions()
	ri.Attributes, _ = r.AttributeTypes()

	if r.sig != nil {
		ri.SignatureAlgorithm = oid.Name(r.sig.algorithm.Algorithm)
		if alg := signatureAlgorithmByOID(r.sig.algorithm.Algorithm); alg != nil {
			ri.SignatureAlgorithm = alg.algo.String()
		}
		ri.Signature = append([]byte(nil), r.sig.value...)
	}
	return ri, nil
}

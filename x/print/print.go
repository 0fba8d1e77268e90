// Package print renders certificate requests and certificates in text
package print

import (
	"crypto"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xcsr/certutil"
	"github.com/effective-security/xcsr/oid"
	jose "github.com/go-jose/go-jose/v3"
)

// RequestInfo provides printable fields of a certificate request
type RequestInfo struct {
	Version    int
	Subject    pkix.Name
	PublicKey  crypto.PublicKey
	Extensions []pkix.Extension
	// Attributes are types of all attributes in the request
	Attributes []asn1.ObjectIdentifier
	// SignatureAlgorithm is empty for unsigned requests
	SignatureAlgorithm string
	Signature          []byte
}

// errWriter keeps the first write error
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// CertificateRequest prints certificate request
func CertificateRequest(w io.Writer, r *RequestInfo) error {
	ew := &errWriter{w: w}

	ew.printf("Version: %d\n", r.Version+1)
	ew.printf("Subject: %s\n", values.Select(len(r.Subject.Names) > 0, certutil.NameToString(&r.Subject), "<empty>"))
	printPublicKey(ew, r.PublicKey)

	for _, a := range r.Attributes {
		ew.printf("Attribute: %s\n", oid.Name(a))
	}
	printExtensions(ew, r.Extensions)

	if r.SignatureAlgorithm == "" {
		ew.printf("Signature: <not signed>\n")
	} else {
		ew.printf("Signature Algorithm: %s\n", r.SignatureAlgorithm)
		ew.printf("Signature: %s\n", hex.EncodeToString(r.Signature))
	}
	return errors.WithStack(ew.err)
}

// Certificate prints certificate
func Certificate(w io.Writer, crt *x509.Certificate) error {
	ew := &errWriter{w: w}

	ew.printf("Subject: %s\n", certutil.NameToString(&crt.Subject))
	ew.printf("Issuer: %s\n", certutil.NameToString(&crt.Issuer))
	ew.printf("Serial: %s\n", crt.SerialNumber.String())
	if len(crt.SubjectKeyId) > 0 {
		ew.printf("SKID: %s\n", hex.EncodeToString(crt.SubjectKeyId))
	}
	if len(crt.AuthorityKeyId) > 0 {
		ew.printf("IKID: %s\n", hex.EncodeToString(crt.AuthorityKeyId))
	}
	ew.printf("Issued: %s\n", crt.NotBefore.UTC().Format(time.RFC3339))
	ew.printf("Expires: %s\n", crt.NotAfter.UTC().Format(time.RFC3339))
	ew.printf("CA: %t\n", crt.IsCA)
	ew.printf("Signature Algorithm: %s\n", crt.SignatureAlgorithm.String())
	printPublicKey(ew, crt.PublicKey)
	printExtensions(ew, crt.Extensions)
	return errors.WithStack(ew.err)
}

// CertAndKey prints JSON with PEM encoded key, request and certificate
func CertAndKey(w io.Writer, key, csr, cert []byte) error {
	out := map[string]string{}
	if len(cert) > 0 {
		out["cert"] = string(cert)
	}
	if len(csr) > 0 {
		out["csr"] = string(csr)
	}
	if len(key) > 0 {
		out["key"] = string(key)
	}
	return errors.WithStack(json.NewEncoder(w).Encode(out))
}

// KeyThumbprint returns SHA-256 JWK thumbprint of the key, RFC 7638
func KeyThumbprint(pub crypto.PublicKey) (string, error) {
	jwk := jose.JSONWebKey{Key: pub}
	tp, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", errors.WithMessage(err, "unable to compute thumbprint")
	}
	return hex.EncodeToString(tp), nil
}

func printPublicKey(ew *errWriter, pub crypto.PublicKey) {
	if pub == nil {
		ew.printf("Public Key: <not set>\n")
		return
	}
	ki, err := certutil.NewKeyInfo(pub)
	if err != nil {
		ew.printf("Public Key: ERROR: %s\n", err.Error())
		return
	}
	if ki.KeySize > 0 {
		ew.printf("Public Key: %s %d\n", ki.Type, ki.KeySize)
	} else {
		ew.printf("Public Key: %s\n", ki.Type)
	}
	if tp, err := KeyThumbprint(pub); err == nil {
		ew.printf("Key Thumbprint: %s\n", tp)
	}
}

func printExtensions(ew *errWriter, list []pkix.Extension) {
	if len(list) == 0 {
		return
	}
	ew.printf("Extensions:\n")
	for _, ext := range list {
		ew.printf("  %s%s: %s\n",
			oid.Name(ext.Id),
			values.Select(ext.Critical, " (critical)", ""),
			extensionValue(ext))
	}
}

func extensionValue(ext pkix.Extension) string {
	if ext.Id.Equal(oid.ExtensionSubjectAltName) {
		if names, err := subjectAltNames(ext.Value); err == nil {
			return strings.Join(names, ", ")
		}
	}
	return hex.EncodeToString(ext.Value)
}

// subjectAltNames decodes DNS, email, URI and IP names
func subjectAltNames(val []byte) ([]string, error) {
	var seq []asn1.RawValue
	rest, err := asn1.Unmarshal(val, &seq)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(rest) > 0 {
		return nil, errors.New("trailing data after subjectAltName")
	}

	var list []string
	for _, v := range seq {
		switch v.Tag {
		case 1:
			list = append(list, "email:"+string(v.Bytes))
		case 2:
			list = append(list, "DNS:"+string(v.Bytes))
		case 6:
			list = append(list, "URI:"+string(v.Bytes))
		case 7:
			list = append(list, "IP:"+ipString(v.Bytes))
		default:
			list = append(list, fmt.Sprintf("tag%d:%s", v.Tag, hex.EncodeToString(v.Bytes)))
		}
	}
	return list, nil
}

func ipString(b []byte) string {
	if len(b) == net.IPv4len || len(b) == net.IPv6len {
		return net.IP(b).String()
	}
	return hex.EncodeToString(b)
}

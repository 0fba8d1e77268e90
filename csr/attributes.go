package csr

import (
	"bytes"
	"crypto/x509/pkix"
	"encoding/asn1"
	"net"
	"net/mail"
	"net/url"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcsr/certutil"
	"github.com/effective-security/xcsr/oid"
	"github.com/effective-security/xcsr/rawview"
	"github.com/effective-security/xlog"
)

// GeneralName tags, RFC 5280 4.2.1.6
const (
	nameTypeEmail = 1
	nameTypeDNS   = 2
	nameTypeURI   = 6
	nameTypeIP    = 7
)

// Extensions returns a copy of extensions requested with
// the PKCS#9 extensionRequest attribute
func (r *Request) Extensions() ([]pkix.Extension, error) {
	v, err := r.view("extensions")
	if err != nil {
		return nil, err
	}
	attrs, err := parseAttributes(v)
	if err != nil {
		return nil, markError(ErrParse, err, "extensions")
	}

	var list []pkix.Extension
	for _, a := range attrs {
		if !a.Type.Equal(oid.AttributeExtensionRequest) {
			continue
		}
		for _, val := range a.Values {
			exts, err := unmarshalExtensions(val.FullBytes)
			if err != nil {
				return nil, markError(ErrParse, err, "extensions")
			}
			list = append(list, exts...)
		}
	}
	return list, nil
}

// AttributeTypes returns types of all attributes in the request
func (r *Request) AttributeTypes() ([]asn1.ObjectIdentifier, error) {
	v, err := r.view("attributes")
	if err != nil {
		return nil, err
	}
	attrs, err := parseAttributes(v)
	if err != nil {
		return nil, markError(ErrParse, err, "attributes")
	}
	list := make([]asn1.ObjectIdentifier, 0, len(attrs))
	for _, a := range attrs {
		list = append(list, a.Type)
	}
	return list, nil
}

// AddExtension adds the extension to the extensionRequest attribute,
// an extension with the same ID can be requested only once.
func (r *Request) AddExtension(ext pkix.Extension) error {
	return r.update("add extension", func(info *rawview.Info) error {
		if len(ext.Id) == 0 {
			return errors.New("extension ID is required")
		}

		for i, raw := range info.Attributes {
			var a rawview.Attribute
			if _, err := asn1.Unmarshal(raw.FullBytes, &a); err != nil {
				return errors.WithMessage(err, "invalid attribute")
			}
			if !a.Type.Equal(oid.AttributeExtensionRequest) {
				continue
			}

			if len(a.Values) > 1 {
				return errors.Errorf("extension request with %d values is not supported", len(a.Values))
			}

			var exts []pkix.Extension
			if len(a.Values) == 1 {
				var err error
				if exts, err = unmarshalExtensions(a.Values[0].FullBytes); err != nil {
					return err
				}
			}
			if certutil.FindExtension(exts, ext.Id) != nil {
				return errors.Errorf("extension already requested: %s", ext.Id)
			}

			der, err := marshalExtensionRequest(append(exts, ext))
			if err != nil {
				return err
			}
			info.Attributes[i] = asn1.RawValue{FullBytes: der}
			sortAttributes(info.Attributes)
			return nil
		}

		der, err := marshalExtensionRequest([]pkix.Extension{ext})
		if err != nil {
			return err
		}
		info.Attributes = append(info.Attributes, asn1.RawValue{FullBytes: der})
		sortAttributes(info.Attributes)
		return nil
	})
}

// ExtensionValue returns a copy of the requested extension value,
// or nil if the extension is not requested
func (r *Request) ExtensionValue(id asn1.ObjectIdentifier) ([]byte, error) {
	exts, err := r.Extensions()
	if err != nil {
		return nil, err
	}
	return certutil.FindExtensionValue(exts, id), nil
}

// sortAttributes orders the attributes SET OF by their encodings, X.690 11.6
func sortAttributes(attrs []asn1.RawValue) {
	slices.SortStableFunc(attrs, func(a, b asn1.RawValue) int {
		return bytes.Compare(a.FullBytes, b.FullBytes)
	})
}

// SANExtension returns subjectAltName extension,
// the values are classified as URI, IP, email or DNS name
func SANExtension(san []string) (pkix.Extension, error) {
	ext := pkix.Extension{Id: oid.ExtensionSubjectAltName}
	if len(san) == 0 {
		return ext, errors.New("SAN list is empty")
	}

	var names []asn1.RawValue
	for _, s := range san {
		if strings.Contains(s, "://") {
			u, err := url.Parse(s)
			if err != nil {
				logger.KV(xlog.ERROR, "uri", s, "err", err.Error())
				return ext, errors.WithMessagef(err, "invalid URI: %s", s)
			}
			names = append(names, asn1.RawValue{Tag: nameTypeURI, Class: asn1.ClassContextSpecific, Bytes: []byte(u.String())})
		} else if ip := net.ParseIP(s); ip != nil {
			if ip4 := ip.To4(); ip4 != nil {
				ip = ip4
			}
			names = append(names, asn1.RawValue{Tag: nameTypeIP, Class: asn1.ClassContextSpecific, Bytes: ip})
		} else if email, err := mail.ParseAddress(s); err == nil && email != nil {
			names = append(names, asn1.RawValue{Tag: nameTypeEmail, Class: asn1.ClassContextSpecific, Bytes: []byte(email.Address)})
		} else {
			names = append(names, asn1.RawValue{Tag: nameTypeDNS, Class: asn1.ClassContextSpecific, Bytes: []byte(s)})
		}
	}

	val, err := asn1.Marshal(names)
	if err != nil {
		return ext, errors.WithStack(err)
	}
	ext.Value = val
	return ext, nil
}

func parseAttributes(v *rawview.InfoView) ([]rawview.Attribute, error) {
	elements, err := v.AttributeElements()
	if err != nil {
		return nil, err
	}
	attrs := make([]rawview.Attribute, 0, len(elements))
	for _, el := range elements {
		var a rawview.Attribute
		rest, err := asn1.Unmarshal(el, &a)
		if err != nil {
			return nil, errors.WithMessage(err, "invalid attribute")
		}
		if len(rest) > 0 {
			return nil, errors.New("trailing data after attribute")
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

func unmarshalExtensions(der []byte) ([]pkix.Extension, error) {
	var exts []pkix.Extension
	rest, err := asn1.Unmarshal(der, &exts)
	if err != nil {
		return nil, errors.WithMessage(err, "invalid extension request")
	}
	if len(rest) > 0 {
		return nil, errors.New("trailing data after extension request")
	}
	return exts, nil
}

func marshalExtensionRequest(exts []pkix.Extension) ([]byte, error) {
	val, err := asn1.Marshal(exts)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to encode extensions")
	}
	der, err := asn1.Marshal(rawview.Attribute{
		Type:   oid.AttributeExtensionRequest,
		Values: []asn1.RawValue{{FullBytes: val}},
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to encode extension request")
	}
	return der, nil
}

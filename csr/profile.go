package csr

import (
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xcsr/oid"
	"github.com/jinzhu/copier"
)

// X509Name contains the SubjectInfo fields.
type X509Name struct {
	Country            string `json:"c" yaml:"c"`
	Province           string `json:"st" yaml:"st"`
	Locality           string `json:"l" yaml:"l"`
	Organization       string `json:"o" yaml:"o"`
	OrganizationalUnit string `json:"ou" yaml:"ou"`
	EmailAddress       string `json:"email" yaml:"email"` // 1.2.840.113549.1.9.1
	SerialNumber       string `json:"serial_number" yaml:"serial_number"`
}

// X509Subject contains the information that should be used to override the
// subject information of the request.
type X509Subject struct {
	CommonName   string     `json:"common_name" yaml:"common_name"`
	Names        []X509Name `json:"names" yaml:"names"`
	SerialNumber string     `json:"serial_number" yaml:"serial_number"`
}

// X509Extension represents a raw extension to be included in the request.
// The "value" field must be hex or base64 encoded.
type X509Extension struct {
	ID       OID    `json:"id" yaml:"id"`
	Critical bool   `json:"critical" yaml:"critical"`
	Value    string `json:"value" yaml:"value"`
}

// KeyRequest describes the key to generate for the request
type KeyRequest struct {
	Label string `json:"label" yaml:"label"`
	// Algo is one of RSA, ECDSA or Ed25519
	Algo string `json:"algo" yaml:"algo"`
	Size int    `json:"size" yaml:"size"`
}

// GetValue returns raw value.
// if prefix is hex or base64, then it's decoded,
// otherwise hex decoding is tried first then base64
func (ext X509Extension) GetValue() ([]byte, error) {
	var rawValue []byte
	var err error
	if strings.HasPrefix(ext.Value, "hex:") {
		rawValue, err = hex.DecodeString(ext.Value[4:])
	} else if strings.HasPrefix(ext.Value, "base64:") {
		rawValue, err = base64.StdEncoding.DecodeString(ext.Value[7:])
	} else {
		rawValue, err = hex.DecodeString(ext.Value)
		if err != nil {
			rawValue, err = base64.StdEncoding.DecodeString(ext.Value)
		}
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to decode extension: %s", ext.Value)
	}
	return rawValue, nil
}

// A CertificateRequest is a profile to create the request from
type CertificateRequest struct {
	// CommonName of the Subject
	CommonName string `json:"common_name" yaml:"common_name"`
	// Names of the Subject
	Names []X509Name `json:"names" yaml:"names"`
	// SerialNumber of the Subject
	SerialNumber string `json:"serial_number,omitempty" yaml:"serial_number,omitempty"`
	// SAN is Subject Alt Names
	SAN []string `json:"san" yaml:"san"`
	// KeyRequest for generated key
	KeyRequest *KeyRequest `json:"key,omitempty" yaml:"key,omitempty"`
	// Extensions for the request
	Extensions []X509Extension `json:"extensions,omitempty" yaml:"extensions,omitempty"`
}

// Validate checks that the subject of the profile is not empty
func (r *CertificateRequest) Validate() error {
	if r.CommonName != "" {
		return nil
	}
	if len(r.Names) == 0 {
		return errors.New("missing subject information")
	}
	for _, n := range r.Names {
		if isNameEmpty(n) {
			return errors.New("empty name")
		}
	}
	return nil
}

// AddSAN adds a SAN value to the request
func (r *CertificateRequest) AddSAN(s string) {
	if found := slices.ContainsString(r.SAN, s); !found {
		r.SAN = append(r.SAN, s)
	}
}

// Copy returns a deep copy of the profile
func (r *CertificateRequest) Copy() *CertificateRequest {
	c := new(CertificateRequest)
	_ = copier.CopyWithOption(c, r, copier.Option{DeepCopy: true})
	return c
}

// Name returns the PKIX name for the request.
func (r *CertificateRequest) Name() pkix.Name {
	subs := X509Subject{
		CommonName:   r.CommonName,
		SerialNumber: r.SerialNumber,
		Names:        r.Names,
	}

	return subs.Name()
}

// Apply sets the subject and requested extensions of the profile to req
func (r *CertificateRequest) Apply(req *Request) error {
	if err := r.Validate(); err != nil {
		return markError(ErrConfiguration, err, "invalid profile")
	}
	if err := req.SetSubject(r.Name()); err != nil {
		return err
	}

	if len(r.SAN) > 0 {
		ext, err := SANExtension(r.SAN)
		if err != nil {
			return markError(ErrConfiguration, err, "invalid SAN")
		}
		if err = req.AddExtension(ext); err != nil {
			return err
		}
	}

	for _, e := range r.Extensions {
		val, err := e.GetValue()
		if err != nil {
			return markError(ErrConfiguration, err, "invalid extension %s", e.ID)
		}
		err = req.AddExtension(pkix.Extension{
			Id:       []int(e.ID),
			Critical: e.Critical,
			Value:    val,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Name returns the PKIX name for the subject.
func (s *X509Subject) Name() pkix.Name {
	var name pkix.Name
	name.CommonName = s.CommonName
	name.SerialNumber = s.SerialNumber

	for _, n := range s.Names {
		appendIf(n.Country, &name.Country)
		appendIf(n.Province, &name.Province)
		appendIf(n.Locality, &name.Locality)
		appendIf(n.Organization, &name.Organization)
		appendIf(n.OrganizationalUnit, &name.OrganizationalUnit)

		if n.EmailAddress != "" {
			name.ExtraNames = append(name.ExtraNames, pkix.AttributeTypeAndValue{
				Type:  oid.NameEmailAddress,
				Value: n.EmailAddress,
			})
		}
		if n.SerialNumber != "" && name.SerialNumber == "" {
			name.SerialNumber = n.SerialNumber
		}
	}
	return name
}

// isNameEmpty returns true if the name has no identifying information in it.
func isNameEmpty(n X509Name) bool {
	empty := func(s string) bool { return strings.TrimSpace(s) == "" }

	if empty(n.Country) && empty(n.Province) && empty(n.Locality) && empty(n.Organization) && empty(n.OrganizationalUnit) {
		return true
	}
	return false
}

// appendIf appends to a if s is not an empty string.
func appendIf(s string, a *[]string) {
	if s != "" {
		*a = append(*a, s)
	}
}

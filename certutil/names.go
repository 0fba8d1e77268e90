package certutil

import (
	"crypto/x509/pkix"
	"strings"
)

const certTimeFormat = "Jan 2 15:04:05 2006 GMT"

// NameToString converts pkix.Name to string,
// in the order from the most specific to the least
func NameToString(name *pkix.Name) string {
	var b strings.Builder
	add := func(prefix string, values ...string) {
		for _, v := range values {
			if v == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString(", ")
			}
			b.WriteString(prefix)
			b.WriteString(v)
		}
	}

	add("C=", name.Country...)
	add("ST=", name.Province...)
	add("L=", name.Locality...)
	add("O=", name.Organization...)
	add("OU=", name.OrganizationalUnit...)
	add("CN=", name.CommonName)
	add("SERIALNUMBER=", name.SerialNumber)
	return b.String()
}

package cli

import (
	"bytes"
	"crypto"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/guid"
	"github.com/effective-security/xcsr/certutil"
	"github.com/effective-security/xcsr/cryptoprov"
	"github.com/effective-security/xcsr/csr"
	"github.com/effective-security/xcsr/x/print"
	"github.com/effective-security/xlog"
	"gopkg.in/yaml.v3"
)

// CsrCmd is the parent for CSR command
type CsrCmd struct {
	Create CsrCreateCmd `cmd:"" help:"create certificate request"`
	Info   CsrInfoCmd   `cmd:"" help:"print certificate request info"`
	Verify CsrVerifyCmd `cmd:"" help:"verify certificate request signature"`
	Digest CsrDigestCmd `cmd:"" help:"print digest of the certificate request info"`
	Cert   CsrCertCmd   `cmd:"" help:"create certificate from the request"`
}

// CsrCreateCmd specifies flags for Create command
type CsrCreateCmd struct {
	CsrProfile string   `required:"" help:"file name with CSR profile"`
	KeyLabel   string   `help:"name for generated key"`
	Algo       string   `help:"key algorithm: RSA, ECDSA or Ed25519; overrides the profile"`
	Size       int      `help:"key size; overrides the profile"`
	Provider   string   `help:"manufacturer of the provider to generate key with; the default provider is used if not set"`
	San        []string `help:"Subject Alt Names to add to the request"`
	Hash       string   `help:"signature hash, the default is selected by the key"`
	Output     string   `help:"the optional prefix for output files; if not set, the output will be printed to STDOUT only"`
}

// Run the command
func (a *CsrCreateCmd) Run(ctx *Cli) error {
	crypt, err := ctx.CryptoProv()
	if err != nil {
		return err
	}

	prov := crypt.Default()
	if a.Provider != "" {
		prov, err = crypt.ByManufacturer(a.Provider, "")
		if err != nil {
			return err
		}
	}

	profile, err := loadProfile(ctx, a.CsrProfile)
	if err != nil {
		return err
	}
	profile = profile.Copy()
	for _, s := range a.San {
		profile.AddSAN(s)
	}

	algo, size, label := "ECDSA", 256, a.KeyLabel
	if kr := profile.KeyRequest; kr != nil {
		if kr.Algo != "" {
			algo, size = kr.Algo, kr.Size
		}
		if label == "" {
			label = kr.Label
		}
	}
	if a.Algo != "" {
		algo, size = a.Algo, 0
	}
	if a.Size != 0 {
		size = a.Size
	}
	if label == "" {
		label = "xcsr_" + guid.MustCreate()
	}

	signer, err := cryptoprov.GenerateKey(prov, algo, size, label)
	if err != nil {
		return errors.WithMessage(err, "generate key")
	}

	hash := certutil.DefaultHash(signer.Public())
	if a.Hash != "" {
		if hash, err = csr.HashByName(a.Hash); err != nil {
			return err
		}
	}

	csrPEM, err := createRequest(profile, signer, hash)
	if err != nil {
		return errors.WithMessage(err, "process CSR")
	}

	keyID, _, err := prov.IdentifyKey(signer)
	if err != nil {
		return errors.WithMessage(err, "identify key")
	}
	uri, key, err := prov.ExportKey(keyID)
	if err != nil {
		return errors.WithMessage(err, "export key")
	}
	if len(key) == 0 {
		key = []byte(uri + "\n")
	}
	logger.KV(xlog.INFO, "status", "created", "label", label, "uri", uri)

	if a.Output == "" {
		return print.CertAndKey(ctx.Writer(), key, csrPEM, nil)
	}
	return saveCert(a.Output, key, csrPEM, nil)
}

func loadProfile(ctx *Cli, file string) (*csr.CertificateRequest, error) {
	b, err := ctx.ReadFile(file)
	if err != nil {
		return nil, errors.WithMessage(err, "read CSR profile")
	}

	profile := new(csr.CertificateRequest)
	if strings.HasSuffix(file, ".json") {
		err = json.Unmarshal(b, profile)
	} else {
		err = yaml.Unmarshal(b, profile)
	}
	if err != nil {
		return nil, errors.WithMessage(err, "invalid CSR profile")
	}
	return profile, nil
}

func createRequest(profile *csr.CertificateRequest, signer crypto.Signer, hash crypto.Hash) ([]byte, error) {
	r, err := csr.New()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if err = r.SetPublicKey(signer.Public()); err != nil {
		return nil, err
	}
	if err = profile.Apply(r); err != nil {
		return nil, err
	}
	if err = r.Sign(signer, hash); err != nil {
		return nil, err
	}
	pem, err := r.PEM()
	if err != nil {
		return nil, err
	}
	return []byte(pem), nil
}

func loadRequest(ctx *Cli, file string) (*csr.Request, error) {
	b, err := ctx.ReadFile(file)
	if err != nil {
		return nil, errors.WithMessage(err, "read CSR")
	}
	return csr.FromPEM(bytes.NewReader(b))
}

// CsrInfoCmd prints the request
type CsrInfoCmd struct {
	Csr string `kong:"arg" required:"" help:"file name with pem-encoded CSR, or '-' for stdin"`
}

// Run the command
func (a *CsrInfoCmd) Run(ctx *Cli) error {
	r, err := loadRequest(ctx, a.Csr)
	if err != nil {
		return err
	}
	defer r.Close()

	return r.Print(ctx.Writer())
}

// CsrVerifyCmd verifies the request signature
type CsrVerifyCmd struct {
	Csr string `kong:"arg" required:"" help:"file name with pem-encoded CSR, or '-' for stdin"`
	Key string `help:"file name with pem-encoded public key; the request key is used if not set"`
}

// Run the command
func (a *CsrVerifyCmd) Run(ctx *Cli) error {
	r, err := loadRequest(ctx, a.Csr)
	if err != nil {
		return err
	}
	defer r.Close()

	var valid bool
	if a.Key != "" {
		b, err := ctx.ReadFile(a.Key)
		if err != nil {
			return errors.WithMessage(err, "read key")
		}
		pub, err := certutil.ParsePublicKeyFromPEM(b)
		if err != nil {
			return err
		}
		valid, err = r.Verify(pub)
		if err != nil {
			return err
		}
	} else {
		valid, err = r.CheckSignature()
		if err != nil {
			return err
		}
	}

	if !valid {
		return errors.New("signature verification failed")
	}
	fmt.Fprintln(ctx.Writer(), "signature verified")
	return nil
}

// CsrDigestCmd prints the digest of the request info
type CsrDigestCmd struct {
	Csr  string `kong:"arg" required:"" help:"file name with pem-encoded CSR, or '-' for stdin"`
	Algo string `help:"digest algorithm: SHA1, SHA224, SHA256, SHA384 or SHA512" default:"SHA256"`
}

// Run the command
func (a *CsrDigestCmd) Run(ctx *Cli) error {
	r, err := loadRequest(ctx, a.Csr)
	if err != nil {
		return err
	}
	defer r.Close()

	d, err := r.Digest(a.Algo, make([]byte, crypto.SHA512.Size()))
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.Writer(), hex.EncodeToString(d))
	return nil
}

// CsrCertCmd creates a certificate from the request
type CsrCertCmd struct {
	Csr     string `kong:"arg" required:"" help:"file name with pem-encoded CSR, or '-' for stdin"`
	Key     string `required:"" help:"file name of the signing key, PEM or key URI"`
	Days    int    `help:"validity period in days" default:"365"`
	PemInfo bool   `help:"Include certificate info in PEM file"`
	Print   bool   `help:"Print certificate details"`
	Output  string `help:"the optional prefix for output files; if not set, the output will be printed to STDOUT only"`
}

// Run the command
func (a *CsrCertCmd) Run(ctx *Cli) error {
	crypt, err := ctx.CryptoProv()
	if err != nil {
		return err
	}

	r, err := loadRequest(ctx, a.Csr)
	if err != nil {
		return err
	}
	defer r.Close()

	valid, err := r.CheckSignature()
	if err != nil {
		return err
	}
	if !valid {
		return errors.New("signature verification failed")
	}

	issuer, err := crypt.NewSignerFromFile(a.Key)
	if err != nil {
		return err
	}

	crt, err := r.CreateCertificate(a.Days, issuer)
	if err != nil {
		return err
	}

	if a.Print {
		if err = print.Certificate(ctx.Writer(), crt); err != nil {
			return err
		}
	}

	pem, err := certutil.EncodeToPEMString(a.PemInfo, crt)
	if err != nil {
		return err
	}

	if a.Output == "" {
		fmt.Fprintln(ctx.Writer(), pem)
		return nil
	}
	return saveCert(a.Output, nil, nil, []byte(pem+"\n"))
}

// saveCert to files with the base name
func saveCert(baseName string, key, csrPEM, certPEM []byte) error {
	var err error
	if len(certPEM) > 0 {
		err = os.WriteFile(baseName+".pem", certPEM, 0664)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	if len(csrPEM) > 0 {
		err = os.WriteFile(baseName+".csr", csrPEM, 0664)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	if len(key) > 0 {
		err = os.WriteFile(baseName+".key", key, 0600)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// Package gcpkmscrypto provides a key provider backed by Google Cloud KMS.
package gcpkmscrypto

import (
	"context"
	"crypto"
	"crypto/elliptic"
	"hash/crc32"
	"regexp"
	"strings"
	"time"

	kms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/guid"
	"github.com/effective-security/xcsr/certutil"
	"github.com/effective-security/xcsr/cryptoprov"
	"github.com/effective-security/xcsr/metricskey"
	"github.com/effective-security/xlog"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xcsr", "gcpkmscrypto")

// ProviderName specifies a provider name
const ProviderName = "GCPKMS"

const (
	labelKey     = "label"
	firstVersion = "/cryptoKeyVersions/1"
)

func init() {
	_ = cryptoprov.Register(ProviderName, KmsLoader)
}

// KmsClient interface
type KmsClient interface {
	CreateCryptoKey(context.Context, *kmspb.CreateCryptoKeyRequest, ...gax.CallOption) (*kmspb.CryptoKey, error)
	GetCryptoKey(context.Context, *kmspb.GetCryptoKeyRequest, ...gax.CallOption) (*kmspb.CryptoKey, error)
	GetCryptoKeyVersion(context.Context, *kmspb.GetCryptoKeyVersionRequest, ...gax.CallOption) (*kmspb.CryptoKeyVersion, error)
	GetPublicKey(context.Context, *kmspb.GetPublicKeyRequest, ...gax.CallOption) (*kmspb.PublicKey, error)
	AsymmetricSign(context.Context, *kmspb.AsymmetricSignRequest, ...gax.CallOption) (*kmspb.AsymmetricSignResponse, error)
	Close() error
}

// KmsClientFactory override for unittest
var KmsClientFactory = func(ctx context.Context, opts ...option.ClientOption) (KmsClient, error) {
	return kms.NewKeyManagementClient(ctx, opts...)
}

// PendingWaitInterval specifies the interval to wait for a key version
// in PENDING_GENERATION state
var PendingWaitInterval = time.Second

// Provider implements Provider interface for KMS
type Provider struct {
	tc        cryptoprov.TokenConfig
	kmsClient KmsClient
	keyRing   string
}

// Init configures Kms based provider.
// Supported attributes: KeyRing (required), CredentialsFile, Endpoint.
func Init(tc cryptoprov.TokenConfig) (*Provider, error) {
	attrs, err := cryptoprov.ParseAttributes(tc.Attributes())
	if err != nil {
		return nil, err
	}

	keyRing := attrs["KeyRing"]
	if keyRing == "" {
		return nil, errors.New("KeyRing attribute is required")
	}

	var opts []option.ClientOption
	if creds := attrs["CredentialsFile"]; creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	if endpoint := attrs["Endpoint"]; endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	client, err := KmsClientFactory(context.Background(), opts...)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create KMS client")
	}

	logger.KV(xlog.DEBUG, "keyring", keyRing)
	return &Provider{
		tc:        tc,
		kmsClient: client,
		keyRing:   keyRing,
	}, nil
}

// KmsLoader provides loader for KMS provider
func KmsLoader(tc cryptoprov.TokenConfig) (cryptoprov.Provider, error) {
	p, err := Init(tc)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Manufacturer returns manufacturer for the provider
func (p *Provider) Manufacturer() string {
	return p.tc.Manufacturer()
}

// Model returns model for the provider
func (p *Provider) Model() string {
	return p.tc.Model()
}

// GenerateRSAKey creates signer using randomly generated RSA key
func (p *Provider) GenerateRSAKey(label string, bits int, purpose int) (crypto.PrivateKey, error) {
	defer metricskey.PerfCryptoOperation.MeasureSince(time.Now(), ProviderName, "genkey_rsa")

	if purpose != cryptoprov.PurposeSign {
		return nil, errors.Errorf("unsupported purpose: %d", purpose)
	}

	var algo kmspb.CryptoKeyVersion_CryptoKeyVersionAlgorithm
	switch bits {
	case 2048:
		algo = kmspb.CryptoKeyVersion_RSA_SIGN_PKCS1_2048_SHA256
	case 3072:
		algo = kmspb.CryptoKeyVersion_RSA_SIGN_PKCS1_3072_SHA256
	case 4096:
		algo = kmspb.CryptoKeyVersion_RSA_SIGN_PKCS1_4096_SHA256
	default:
		return nil, errors.Errorf("unsupported RSA key size: %d", bits)
	}
	return p.createKey(label, algo)
}

// GenerateECDSAKey creates signer using randomly generated ECDSA key
func (p *Provider) GenerateECDSAKey(label string, curve elliptic.Curve) (crypto.PrivateKey, error) {
	defer metricskey.PerfCryptoOperation.MeasureSince(time.Now(), ProviderName, "genkey_ecdsa")

	var algo kmspb.CryptoKeyVersion_CryptoKeyVersionAlgorithm
	switch curve {
	case elliptic.P256():
		algo = kmspb.CryptoKeyVersion_EC_SIGN_P256_SHA256
	case elliptic.P384():
		algo = kmspb.CryptoKeyVersion_EC_SIGN_P384_SHA384
	default:
		return nil, errors.New("unsupported curve")
	}
	return p.createKey(label, algo)
}

// GenerateEd25519Key creates signer using randomly generated Ed25519 key
func (p *Provider) GenerateEd25519Key(label string) (crypto.PrivateKey, error) {
	defer metricskey.PerfCryptoOperation.MeasureSince(time.Now(), ProviderName, "genkey_ed25519")
	return p.createKey(label, kmspb.CryptoKeyVersion_EC_SIGN_ED25519)
}

func (p *Provider) createKey(label string, algo kmspb.CryptoKeyVersion_CryptoKeyVersionAlgorithm) (crypto.PrivateKey, error) {
	ctx := context.Background()

	cryptoKey, err := p.kmsClient.CreateCryptoKey(ctx, &kmspb.CreateCryptoKeyRequest{
		Parent:      p.keyRing,
		CryptoKeyId: "xcsr-" + guid.MustCreate(),
		CryptoKey: &kmspb.CryptoKey{
			Purpose: kmspb.CryptoKey_ASYMMETRIC_SIGN,
			Labels:  map[string]string{labelKey: labelValue(label)},
			VersionTemplate: &kmspb.CryptoKeyVersionTemplate{
				Algorithm: algo,
			},
		},
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create key with label: %q", label)
	}

	logger.KV(xlog.INFO, "name", cryptoKey.Name, "label", label, "algo", algo.String())

	keyID := cryptoKey.Name + firstVersion
	if err = p.waitEnabled(ctx, keyID); err != nil {
		return nil, err
	}
	return p.signer(ctx, keyID, label)
}

// waitEnabled waits for the key version to be generated
func (p *Provider) waitEnabled(ctx context.Context, keyID string) error {
	for i := 0; ; i++ {
		ver, err := p.kmsClient.GetCryptoKeyVersion(ctx, &kmspb.GetCryptoKeyVersionRequest{Name: keyID})
		if err != nil {
			return errors.WithMessagef(err, "failed to get key version, id=%s", keyID)
		}
		switch ver.State {
		case kmspb.CryptoKeyVersion_ENABLED:
			return nil
		case kmspb.CryptoKeyVersion_PENDING_GENERATION:
			if i >= 10 {
				return errors.Errorf("key version is not generated, id=%s", keyID)
			}
			time.Sleep(PendingWaitInterval)
		default:
			return errors.Errorf("key is not enabled, id=%s, state=%s", keyID, ver.State)
		}
	}
}

func (p *Provider) signer(ctx context.Context, keyID, label string) (crypto.Signer, error) {
	resp, err := p.kmsClient.GetPublicKey(ctx, &kmspb.GetPublicKeyRequest{Name: keyID})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to get public key, id=%s", keyID)
	}
	if resp.Name != keyID {
		return nil, errors.Errorf("public key request corrupted in-transit, id=%s", keyID)
	}
	if resp.PemCrc32C != nil && crc32c([]byte(resp.Pem)) != resp.PemCrc32C.Value {
		return nil, errors.Errorf("public key response corrupted in-transit, id=%s", keyID)
	}

	pub, err := certutil.ParsePublicKeyFromPEM([]byte(resp.Pem))
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to parse public key, id=%s", keyID)
	}
	return NewSigner(keyID, label, resp.Algorithm, pub, p.kmsClient), nil
}

// IdentifyKey returns key id and label for the given private key
func (p *Provider) IdentifyKey(priv crypto.PrivateKey) (keyID, label string, err error) {
	if s, ok := priv.(*Signer); ok {
		return s.KeyID(), s.Label(), nil
	}
	return "", "", errors.New("not supported key")
}

// GetKey returns signer for the given key version name
func (p *Provider) GetKey(keyID string) (crypto.PrivateKey, error) {
	defer metricskey.PerfCryptoOperation.MeasureSince(time.Now(), ProviderName, "getkey")

	ctx := context.Background()
	logger.KV(xlog.DEBUG, "api", "GetKey", "keyID", keyID)

	keyName, _, ok := strings.Cut(keyID, "/cryptoKeyVersions/")
	if !ok {
		return nil, errors.Errorf("invalid key version name: %s", keyID)
	}

	ck, err := p.kmsClient.GetCryptoKey(ctx, &kmspb.GetCryptoKeyRequest{Name: keyName})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to get key, id=%s", keyName)
	}
	if err = p.waitEnabled(ctx, keyID); err != nil {
		return nil, err
	}

	return p.signer(ctx, keyID, ck.Labels[labelKey])
}

// ExportKey returns the key URI for specified key ID.
// It does not return key bytes
func (p *Provider) ExportKey(keyID string) (string, []byte, error) {
	if _, err := p.kmsClient.GetCryptoKeyVersion(context.Background(), &kmspb.GetCryptoKeyVersionRequest{Name: keyID}); err != nil {
		return "", nil, errors.WithMessagef(err, "failed to get key version, id=%s", keyID)
	}
	return cryptoprov.KeyURI(p.Manufacturer(), p.Model(), keyID, ""), nil, nil
}

// Close closes KMS client
func (p *Provider) Close() error {
	return errors.WithStack(p.kmsClient.Close())
}

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

func crc32c(data []byte) int64 {
	return int64(crc32.Checksum(data, crc32cTable))
}

var labelInvalidChars = regexp.MustCompile(`[^a-z0-9_-]`)

// labelValue returns a value allowed for KMS labels
func labelValue(label string) string {
	v := labelInvalidChars.ReplaceAllString(strings.ToLower(label), "_")
	if len(v) > 63 {
		v = v[:63]
	}
	return v
}

// Ensure compiles
var _ cryptoprov.Provider = (*Provider)(nil)
var _ cryptoprov.Ed25519Generator = (*Provider)(nil)

package gcpkmscrypto

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcsr/metricskey"
	"github.com/effective-security/xlog"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Signer implements crypto.Signer interface
type Signer struct {
	keyID     string
	label     string
	algorithm kmspb.CryptoKeyVersion_CryptoKeyVersionAlgorithm
	pubKey    crypto.PublicKey
	kmsClient KmsClient
}

// NewSigner creates new signer
func NewSigner(keyID string, label string, algorithm kmspb.CryptoKeyVersion_CryptoKeyVersionAlgorithm, publicKey crypto.PublicKey, kmsClient KmsClient) crypto.Signer {
	logger.KV(xlog.DEBUG, "id", keyID, "label", label, "algo", algorithm.String())
	return &Signer{
		keyID:     keyID,
		label:     label,
		algorithm: algorithm,
		pubKey:    publicKey,
		kmsClient: kmsClient,
	}
}

// KeyID returns key id of the signer
func (s *Signer) KeyID() string {
	return s.keyID
}

// Label returns key label of the signer
func (s *Signer) Label() string {
	return s.label
}

// Public returns public key for the signer
func (s *Signer) Public() crypto.PublicKey {
	return s.pubKey
}

func (s *Signer) String() string {
	return fmt.Sprintf("id=%s, label=%s, algo=%s",
		s.KeyID(),
		s.Label(),
		s.algorithm,
	)
}

// Sign signs the digest with the KMS key.
// For Ed25519 keys the message is signed as is.
func (s *Signer) Sign(_ io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	defer metricskey.PerfCryptoOperation.MeasureSince(time.Now(), ProviderName, "sign")

	req := &kmspb.AsymmetricSignRequest{
		Name: s.keyID,
	}

	if _, ok := s.pubKey.(ed25519.PublicKey); ok {
		if opts.HashFunc() != crypto.Hash(0) {
			return nil, errors.Errorf("unsupported hash for Ed25519: %s", opts.HashFunc())
		}
		req.Data = digest
		req.DataCrc32C = wrapperspb.Int64(crc32c(digest))
	} else {
		if _, ok := opts.(*rsa.PSSOptions); ok {
			return nil, errors.New("RSA-PSS is not supported")
		}
		d, err := kmsDigest(digest, opts.HashFunc())
		if err != nil {
			return nil, err
		}
		req.Digest = d
		req.DigestCrc32C = wrapperspb.Int64(crc32c(digest))
	}

	resp, err := s.kmsClient.AsymmetricSign(context.Background(), req)
	if err != nil {
		return nil, errors.WithMessagef(err, "unable to sign")
	}

	verified := resp.VerifiedDigestCrc32C
	if req.Data != nil {
		verified = resp.VerifiedDataCrc32C
	}
	if !verified || resp.Name != s.keyID {
		return nil, errors.Errorf("sign request corrupted in-transit, id=%s", s.keyID)
	}
	if resp.SignatureCrc32C == nil || crc32c(resp.Signature) != resp.SignatureCrc32C.Value {
		return nil, errors.Errorf("sign response corrupted in-transit, id=%s", s.keyID)
	}

	return resp.Signature, nil
}

func kmsDigest(digest []byte, hash crypto.Hash) (*kmspb.Digest, error) {
	var d *kmspb.Digest
	switch hash {
	case crypto.SHA256:
		d = &kmspb.Digest{Digest: &kmspb.Digest_Sha256{Sha256: digest}}
	case crypto.SHA384:
		d = &kmspb.Digest{Digest: &kmspb.Digest_Sha384{Sha384: digest}}
	case crypto.SHA512:
		d = &kmspb.Digest{Digest: &kmspb.Digest_Sha512{Sha512: digest}}
	default:
		return nil, errors.Errorf("unsupported hash: %s", hash)
	}

	if len(digest) != hash.Size() {
		return nil, errors.Errorf("invalid digest size: %d", len(digest))
	}
	return d, nil
}

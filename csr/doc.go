// Package csr implements PKCS#10 Certificate Signing Requests (RFC 2986).
//
// A Request owns the DER encoding of its CertificationRequestInfo and,
// once signed, the encoded request with its signature. Accessors project the
// encoding through the rawview package and always return independent copies,
// so nothing returned by a getter aliases the request.
//
// Lifecycle:
//
//	req, err := csr.New()
//	defer req.Close()
//	err = req.SetSubject(pkix.Name{CommonName: "test"})
//	err = req.SetPublicKey(key.Public())
//	err = req.Sign(key, crypto.SHA256)
//	pem, err := req.PEM()
//
// A signed request is frozen: setters fail with ErrConfiguration until
// ClearSignature is called, after which the request has to be signed again.
// Requests parsed with FromPEM or FromDER are signed.
//
// Errors are marked with one of the Err* kinds and can be tested with errors.Is.
// A signature mismatch is reported by Verify as false, not as an error.
//
// A Request is not safe for concurrent mutation. A signed request may be read
// concurrently, as getters only project and copy its encoding.
package csr

package csr

import "github.com/cockroachdb/errors"

// Error kinds of Request operations
var (
	// ErrAllocation is returned when a request can not be allocated,
	// or is used after Close
	ErrAllocation = errors.New("allocation error")
	// ErrConfiguration is returned when a field can not be set
	ErrConfiguration = errors.New("configuration error")
	// ErrParse is returned when the input is not a well-formed request
	ErrParse = errors.New("parse error")
	// ErrSigning is returned when the request can not be signed
	ErrSigning = errors.New("signing error")
	// ErrCrypto is returned when a key or digest operation fails
	ErrCrypto = errors.New("crypto error")
	// ErrConversion is returned when a certificate can not be created
	ErrConversion = errors.New("conversion error")
	// ErrEncoding is returned when the request can not be encoded
	ErrEncoding = errors.New("encoding error")
	// ErrIO is returned when a stream fails
	ErrIO = errors.New("I/O error")
)

func markError(kind error, cause error, format string, args ...any) error {
	var err error
	if cause == nil {
		err = errors.Newf(format, args...)
	} else {
		err = errors.WithMessagef(cause, format, args...)
	}
	return errors.Mark(err, kind)
}

// verifyCode is the outcome of a signature check:
// 1 for a valid signature, 0 for a mismatch, -1 when the check could not run
type verifyCode int

const (
	verifyFailed   verifyCode = -1
	verifyMismatch verifyCode = 0
	verifyOK       verifyCode = 1
)

// verifyResults translates outcomes of signature checks
var verifyResults = map[verifyCode]struct {
	valid bool
	kind  error
}{
	verifyOK:       {valid: true},
	verifyMismatch: {valid: false},
	verifyFailed:   {valid: false, kind: ErrCrypto},
}

// Package rawview provides a structural view of DER encoded PKCS#10
// certification requests (RFC 2986).
//
// Two representations are offered:
//   - InfoView and RequestView project an encoded request without copying,
//     every field aliases the projected buffer;
//   - Info and Request mirror the ASN.1 structures and are used to encode them.
//
// The only platform dependent detail of the mirror is the width of its
// Version field, which is a machine word. Layout describes that width, so the
// projection can be checked against 32-bit and 64-bit words independently of
// the platform running the code.
package rawview

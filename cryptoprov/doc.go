// Package cryptoprov provides key providers that produce crypto.Signer
// objects for signing certificate requests and certificates.
//
// Providers are registered by manufacturer name and loaded from a token
// configuration file:
//   - inmem keeps software keys in process memory, and is the default
//   - AWSKMS keeps keys in AWS KMS
//   - GCPKMS keeps keys in Google Cloud KMS
//
// Keys held by a provider are referenced by URI in the form of
// `pkcs11:manufacturer=<name>;model=<model>;id=<key id>`,
// so the same key file can carry either a PEM encoded key or a reference
// to a key in a provider.
package cryptoprov

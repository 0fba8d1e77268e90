package csr

// Digest computes the hash of the encoded request info into out,
// and returns out sliced to the digest size.
// The algorithm is one of SHA1, SHA224, SHA256, SHA384 or SHA512.
func (r *Request) Digest(algorithm string, out []byte) ([]byte, error) {
	if _, err := r.view("digest"); err != nil {
		return nil, err
	}
	h, err := HashByName(algorithm)
	if err != nil {
		return nil, err
	}
	if len(out) < h.Size() {
		return nil, markError(ErrCrypto, nil,
			"digest: buffer of %d bytes is too small for %s, %d bytes required", len(out), algorithm, h.Size())
	}

	hf := h.New()
	_, _ = hf.Write(r.info)
	return hf.Sum(out[:0]), nil
}

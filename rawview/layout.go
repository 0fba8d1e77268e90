package rawview

import (
	"math/big"
	"strconv"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/cryptobyte"
)

// Layout describes the word size used by integer fields of the mirror
type Layout struct {
	Name     string
	WordBits int
}

var (
	// Layout32 is the layout of platforms with 32-bit words
	Layout32 = Layout{Name: "ilp32", WordBits: 32}
	// Layout64 is the layout of platforms with 64-bit words
	Layout64 = Layout{Name: "lp64", WordBits: 64}
	// Native is the layout of the running platform
	Native = Layout{Name: "native", WordBits: strconv.IntSize}
)

func (l Layout) String() string {
	return l.Name + "/" + strconv.Itoa(l.WordBits)
}

// Fits returns true if v can be stored in a signed word of the layout
func (l Layout) Fits(v int64) bool {
	switch {
	case l.WordBits >= 64:
		return true
	case l.WordBits <= 0:
		return false
	}
	limit := int64(1) << (l.WordBits - 1)
	return v >= -limit && v < limit
}

// Version decodes the version of the projected request info,
// the value must fit the word of the layout.
func (l Layout) Version(v *InfoView) (int64, error) {
	if v == nil {
		return 0, errors.Mark(errors.New("nil view"), ErrMalformed)
	}

	n := new(big.Int)
	s := cryptobyte.String(v.Version)
	if !s.ReadASN1Integer(n) || !s.Empty() {
		return 0, errors.Mark(errors.New("invalid version encoding"), ErrMalformed)
	}
	if !n.IsInt64() || !l.Fits(n.Int64()) {
		return 0, errors.Mark(errors.Newf("version %s does not fit %s", n.String(), l), ErrVersionOverflow)
	}
	return n.Int64(), nil
}

// Mirror returns a copy of the projected request info.
// The returned Info does not share memory with the view.
func (l Layout) Mirror(v *InfoView) (*Info, error) {
	ver, err := l.Version(v)
	if err != nil {
		return nil, err
	}
	// the mirror stores the version in a native word
	if !Native.Fits(ver) {
		return nil, errors.Mark(errors.Newf("version %d does not fit %s", ver, Native), ErrVersionOverflow)
	}

	elements, err := v.AttributeElements()
	if err != nil {
		return nil, err
	}

	info := &Info{
		Version:   int(ver),
		Subject:   asn1RawValue(v.Subject),
		PublicKey: asn1RawValue(v.PublicKey),
	}
	for _, el := range elements {
		info.Attributes = append(info.Attributes, asn1RawValue(el))
	}
	return info, nil
}

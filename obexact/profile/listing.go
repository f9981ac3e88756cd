package profile

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/pkg/errors"

	"mynewt.apache.org/obexmgr/obexact/obexutil"
)

// Walks an XML object listing and calls fn with the attributes of every
// element named elem, in document order.
func DecodeListing(b []byte, elem string,
	fn func(attrs map[string]string)) error {

	dec := xml.NewDecoder(bytes.NewReader(b))
	dec.Strict = false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(obexutil.NewProtocolError(err.Error()),
				"malformed listing")
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != elem {
			continue
		}

		attrs := make(map[string]string, len(se.Attr))
		for _, a := range se.Attr {
			attrs[a.Name.Local] = a.Value
		}
		fn(attrs)
	}
}

// Accumulates a listing body across packets.
type ListingBuffer struct {
	b []byte
}

func (lb *ListingBuffer) Reset() {
	lb.b = lb.b[:0]
}

func (lb *ListingBuffer) Append(data []byte) {
	lb.b = append(lb.b, data...)
}

func (lb *ListingBuffer) Bytes() []byte {
	return lb.b
}

package delta

import (
	"bytes"

	"github.com/ugorji/go/codec"
)

// The canonical encoding is msgpack with structs written as arrays, in field
// declaration order. Field order is therefore part of the wire format and
// fields must only ever be appended.
var canonicalHandle = newCanonicalHandle()

func newCanonicalHandle() *codec.MsgpackHandle {
	mh := new(codec.MsgpackHandle)
	mh.WriteExt = true
	mh.StructToArray = true
	mh.Canonical = true
	return mh
}

// CanonicalHandle returns the codec handle used for hashed and gossiped
// structures.
func CanonicalHandle() *codec.MsgpackHandle {
	return canonicalHandle
}

func encode(v interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	enc := codec.NewEncoder(b, canonicalHandle)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func decode(data []byte, v interface{}) error {
	dec := codec.NewDecoderBytes(data, canonicalHandle)
	return dec.Decode(v)
}

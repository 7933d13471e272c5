// Package codec is the CBOR encoding used for every persisted patpack
// structure: strategies, calibrations, configs and chunk manifests.
//
// Encoding is Core Deterministic (RFC 8949 §4.2) so the same value always
// produces the same bytes. Types implementing encoding.TextMarshaler, such
// as format.Algorithm, are written as text strings.
package codec

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/arloliu/patpack/errs"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v. Failures are reported as serialization errors.
func Marshal(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, errs.Wrap(errs.KindSerialization, "cbor encode", err)
	}

	return data, nil
}

// Unmarshal decodes data into v. Failures are reported as serialization
// errors.
func Unmarshal(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return errs.Wrap(errs.KindSerialization, "cbor decode", err)
	}

	return nil
}

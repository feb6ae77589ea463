package encode

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"howett.net/plist"

	"github.com/wippyai/nskeyed/errors"
	"github.com/wippyai/nskeyed/value"
)

// Format selects the output encoding.
type Format int

const (
	// XML is the text property-list format.
	XML Format = iota
	// Binary is the binary property-list format.
	Binary
	// OpenStep is the legacy text property-list format.
	OpenStep
	// JSON encodes dates as RFC 3339 strings and byte sequences as base64.
	JSON
)

// String returns the format name used in diagnostics
func (f Format) String() string {
	switch f {
	case XML:
		return "xml"
	case Binary:
		return "binary"
	case OpenStep:
		return "openstep"
	case JSON:
		return "json"
	}
	return "unknown"
}

// Write serializes a value tree to w in the chosen format. Dictionary keys
// are emitted in the collaborating codec's canonical order (sorted), which
// keeps output bytes deterministic.
func Write(w io.Writer, v value.Value, f Format) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "\t")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(Native(v, f)); err != nil {
			return errors.Codec(errors.PhaseEncode, err, "encode JSON")
		}
		return nil
	case XML, Binary, OpenStep:
		enc := plist.NewEncoderForFormat(w, plistFormat(f))
		enc.Indent("\t")
		if err := enc.Encode(Native(v, f)); err != nil {
			return errors.Codec(errors.PhaseEncode, err, "encode %s property list", f)
		}
		return nil
	}
	return errors.New(errors.PhaseEncode, errors.KindInvalidFormat).
		Detail("unknown output format %d", int(f)).
		Build()
}

// Bytes serializes a value tree to a byte slice in the chosen format
func Bytes(v value.Value, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, v, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func plistFormat(f Format) int {
	switch f {
	case Binary:
		return plist.BinaryFormat
	case OpenStep:
		return plist.OpenStepFormat
	default:
		return plist.XMLFormat
	}
}

// nullMarker stands in for Null in property-list output; the plist type
// repertoire has no null, so the archiver's own sentinel string stays
// recognizable. JSON has a native null.
const nullMarker = "$null"

// Native converts a value tree into the Go types the external codecs
// consume: maps, slices, time.Time and []byte. For the property-list
// formats Null lowers to the "$null" marker string, so a decode of the
// output sees a String where the input had a Null; JSON keeps a native
// null and round-trips the kind exactly.
func Native(v value.Value, f Format) any {
	switch tv := v.(type) {
	case value.Null:
		if f == JSON {
			return nil
		}
		return nullMarker
	case value.Boolean:
		return bool(tv)
	case value.Integer:
		if i, ok := tv.Int64(); ok {
			return i
		}
		u, _ := tv.Uint64()
		return u
	case value.Real:
		return float64(tv)
	case value.String:
		return string(tv)
	case value.Date:
		return time.Time(tv)
	case value.Bytes:
		return []byte(tv)
	case value.Array:
		out := make([]any, 0, len(tv))
		for _, e := range tv {
			out = append(out, Native(e, f))
		}
		return out
	case *value.Dict:
		out := make(map[string]any, tv.Len())
		tv.Range(func(k string, e value.Value) bool {
			out[k] = Native(e, f)
			return true
		})
		return out
	}
	return nil
}

package nskeyed

import (
	"io"
	"os"

	"github.com/wippyai/nskeyed/archive"
	"github.com/wippyai/nskeyed/decoder"
	"github.com/wippyai/nskeyed/encode"
	"github.com/wippyai/nskeyed/errors"
	"github.com/wippyai/nskeyed/value"
)

// Options configure a conversion.
type Options struct {
	// Format selects the output encoding; the zero value is a text (XML)
	// property list.
	Format encode.Format

	// RawClasses skips collection reinterpretation and keeps class
	// metadata under $classes.
	RawClasses bool

	// RetainNulls keeps null values inside containers.
	RetainNulls bool
}

func (o Options) decoderOptions() decoder.Options {
	return decoder.Options{
		RawClasses:  o.RawClasses,
		RetainNulls: o.RetainNulls,
	}
}

// Decode parses archive bytes and resolves them into the value model
func Decode(data []byte, opts Options) (*value.Dict, error) {
	ar, err := archive.FromBytes(data)
	if err != nil {
		return nil, err
	}
	return decoder.Decode(ar, opts.decoderOptions())
}

// DecodeReader parses an archive from a seekable stream and resolves it
// into the value model
func DecodeReader(r io.ReadSeeker, opts Options) (*value.Dict, error) {
	ar, err := archive.FromReader(r)
	if err != nil {
		return nil, err
	}
	return decoder.Decode(ar, opts.decoderOptions())
}

// DecodeFile reads an archive file and resolves it into the value model
func DecodeFile(path string, opts Options) (*value.Dict, error) {
	ar, err := archive.FromFile(path)
	if err != nil {
		return nil, err
	}
	return decoder.Decode(ar, opts.decoderOptions())
}

// Convert decodes archive bytes and re-encodes them in the chosen format
func Convert(data []byte, opts Options) ([]byte, error) {
	tree, err := Decode(data, opts)
	if err != nil {
		return nil, err
	}
	return encode.Bytes(tree, opts.Format)
}

// ConvertFile decodes an archive file and writes the converted output to
// outPath. No partial output is written: encoding happens in memory and the
// file is only created once decoding has succeeded.
func ConvertFile(inPath, outPath string, opts Options) error {
	tree, err := DecodeFile(inPath, opts)
	if err != nil {
		return err
	}
	out, err := encode.Bytes(tree, opts.Format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return errors.IO(err, "write %s", outPath)
	}
	return nil
}

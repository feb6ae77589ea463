package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseParse  Phase = "parse"  // container parsing and envelope validation
	PhaseDecode Phase = "decode" // reference resolution
	PhaseEncode Phase = "encode" // output generation
	PhaseIO     Phase = "io"     // file and stream handling
)

// Kind categorizes the error
type Kind string

const (
	KindMalformedEnvelope   Kind = "malformed_envelope"
	KindUnsupportedArchiver Kind = "unsupported_archiver"
	KindUnsupportedVersion  Kind = "unsupported_version"
	KindMissingTopLevelKey  Kind = "missing_top_level_key"
	KindDanglingReference   Kind = "dangling_reference"
	KindCyclicReference     Kind = "cyclic_reference"
	KindMalformedCollection Kind = "malformed_collection"
	KindUnsupportedKeyType  Kind = "unsupported_key_type"
	KindInvalidEncoding     Kind = "invalid_encoding"
	KindDepthExceeded       Kind = "depth_exceeded"
	KindInvalidFormat       Kind = "invalid_format"
	KindCodec               Kind = "codec_failure"
	KindFileIO              Kind = "file_io"
)

// Error is the structured error type used throughout the converter
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Ref    uint64
	HasRef bool
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.HasRef {
		b.WriteString(" (ref ")
		b.WriteString(strconv.FormatUint(e.Ref, 10))
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the key path leading to the offending value
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Ref sets the offending object-table reference
func (b *Builder) Ref(ref uint64) *Builder {
	b.err.Ref = ref
	b.err.HasRef = true
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// MissingKey creates an error for a required envelope key that is absent
func MissingKey(key string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindMissingTopLevelKey,
		Detail: fmt.Sprintf("missing %q header key", key),
	}
}

// WrongType creates an error for an envelope key with an unexpected type
func WrongType(key, want string, got any) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindMalformedEnvelope,
		Detail: fmt.Sprintf("expected %q to be %s, got %T", key, want, got),
	}
}

// DanglingReference creates an error for a reference outside the object table
func DanglingReference(path []string, ref uint64, tableLen int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindDanglingReference,
		Path:   path,
		Ref:    ref,
		HasRef: true,
		Detail: fmt.Sprintf("object table holds %d records", tableLen),
	}
}

// CyclicReference creates an error for a reference already being resolved
func CyclicReference(path []string, ref uint64) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindCyclicReference,
		Path:   path,
		Ref:    ref,
		HasRef: true,
		Detail: "object graph contains a cycle",
	}
}

// MalformedCollection creates an error for a collection record with bad fields
func MalformedCollection(path []string, ref uint64, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindMalformedCollection,
		Path:   path,
		Ref:    ref,
		HasRef: true,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// UnsupportedKeyType creates an error for a dictionary key that is not a string
func UnsupportedKeyType(path []string, ref uint64, got string) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnsupportedKeyType,
		Path:   path,
		Ref:    ref,
		HasRef: true,
		Detail: fmt.Sprintf("dictionary key resolved to %s, want string", got),
	}
}

// InvalidEncoding creates an error for a record that cannot be interpreted
func InvalidEncoding(path []string, ref uint64, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidEncoding,
		Path:   path,
		Ref:    ref,
		HasRef: true,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// DepthExceeded creates an error for resolution deeper than the configured bound
func DepthExceeded(path []string, ref uint64, limit int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindDepthExceeded,
		Path:   path,
		Ref:    ref,
		HasRef: true,
		Detail: fmt.Sprintf("resolution exceeded depth limit %d", limit),
	}
}

// Codec wraps a failure from an external container or output codec
func Codec(phase Phase, err error, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCodec,
		Cause:  err,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// IO wraps a file or stream failure
func IO(err error, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseIO,
		Kind:   KindFileIO,
		Cause:  err,
		Detail: fmt.Sprintf(detail, args...),
	}
}
